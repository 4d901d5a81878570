package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Idempotency of sale creation: idem:sale:create:{key} -> sale id
	KeyIdemSaleCreate = "idem:sale:create:%s"
)

var TTLIdempotency = 24 * time.Hour

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// IdempotencyStore remembers which sale an Idempotency-Key produced.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: TTLIdempotency}
}

// pendingSale marks a key whose sale is still being recorded.
const pendingSale = "pending"

// Reserve claims key with SETNX. When another request holds it, the stored sale
// id is returned, or "" while that request is still in flight.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (string, bool, error) {
	k := fmt.Sprintf(KeyIdemSaleCreate, key)
	ok, err := s.rdb.SetNX(ctx, k, pendingSale, s.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	id, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// released between the two calls; the owner failed, the caller may retry
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if id == pendingSale {
		return "", false, nil
	}
	return id, false, nil
}

// Complete stores the sale id a reservation produced.
func (s *IdempotencyStore) Complete(ctx context.Context, key, saleID string) error {
	return s.rdb.Set(ctx, fmt.Sprintf(KeyIdemSaleCreate, key), saleID, s.ttl).Err()
}

// Release drops a reservation whose sale failed so the key can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(KeyIdemSaleCreate, key)).Err()
}
