// Package inventory is the stock client used by the sales saga.
package inventory

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"resty.dev/v3"

	"sales_saga/internal/sales"
)

var _ sales.StockClient = (*Client)(nil)

type productDTO struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
}

// Client calls the inventory service REST API.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the inventory service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Client{http: c}
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.http.Close()
}

// GetProduct fetches the current snapshot of a product.
func (c *Client) GetProduct(ctx context.Context, id string) (sales.ProductSnapshot, error) {
	var dto productDTO
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&dto).
		Get("/api/products/{id}")
	if err != nil {
		return sales.ProductSnapshot{}, fmt.Errorf("%w: get product %s: %w", sales.ErrInfrastructure, id, err)
	}
	if err := checkStatus(resp, "get product", id); err != nil {
		return sales.ProductSnapshot{}, err
	}
	return sales.ProductSnapshot{
		ID:            id,
		Name:          dto.Name,
		Price:         dto.Price,
		StockQuantity: dto.StockQuantity,
	}, nil
}

// SetStock overwrites the stock level of a product.
func (c *Client) SetStock(ctx context.Context, id string, newQuantity int) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetQueryParam("newStock", strconv.Itoa(newQuantity)).
		Put("/api/products/{id}/stock")
	if err != nil {
		return fmt.Errorf("%w: set stock of product %s: %w", sales.ErrInfrastructure, id, err)
	}
	return checkStatus(resp, "set stock of product", id)
}

func checkStatus(resp *resty.Response, op, id string) error {
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%w: %s", sales.ErrProductNotFound, id)
	case !resp.IsSuccess():
		return fmt.Errorf("%w: %s %s: inventory returned status %d", sales.ErrInfrastructure, op, id, resp.StatusCode())
	}
	return nil
}
