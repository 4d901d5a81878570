package config

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "SALES"

type Config struct {
	HTTPAddr             string        `mapstructure:"http_addr"`
	InventoryURL         string        `mapstructure:"inventory_url"`
	LedgerURL            string        `mapstructure:"ledger_url"`
	CallTimeout          time.Duration `mapstructure:"call_timeout"`
	AccountCode          string        `mapstructure:"account_code"`
	AccountName          string        `mapstructure:"account_name"`
	CreatedBy            string        `mapstructure:"created_by"`
	CompensationAttempts uint          `mapstructure:"compensation_attempts"`
	CompensationDelay    time.Duration `mapstructure:"compensation_delay"`
	PostgresDSN          string        `mapstructure:"postgres_dsn"`
	PostgresMaxConns     int32         `mapstructure:"postgres_max_conns"`
	RedisAddr            string        `mapstructure:"redis_addr"`
	KafkaBrokers         []string      `mapstructure:"kafka_brokers"`
	KafkaTopic           string        `mapstructure:"kafka_topic"`
	ServiceName          string        `mapstructure:"service_name"`
}

var defaults = map[string]any{
	"http_addr":             ":8081",
	"inventory_url":         "http://localhost:8082",
	"ledger_url":            "http://localhost:8083",
	"call_timeout":          "5s",
	"account_code":          "4000",
	"account_name":          "Sales Revenue",
	"created_by":            "sales-service",
	"compensation_attempts": 1,
	"compensation_delay":    "100ms",
	"postgres_dsn":          "",
	"postgres_max_conns":    8,
	"redis_addr":            "",
	"kafka_brokers":         "",
	"kafka_topic":           "sales.saga",
	"service_name":          "sales-service",
}

// Load reads .env, then SALES_* environment variables, on top of the defaults.
func Load() (Config, error) {
	_ = godotenv.Load()
	return LoadFromViper(viper.New())
}

// LoadFromViper is Load on a caller provided viper session.
func LoadFromViper(v *viper.Viper) (Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct, %w", err)
	}
	cfg.KafkaBrokers = splitCSV(v.GetString("kafka_brokers"))
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.InventoryURL, validation.Required, is.URL),
		validation.Field(&c.LedgerURL, validation.Required, is.URL),
		validation.Field(&c.CallTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.AccountCode, validation.Required),
		validation.Field(&c.AccountName, validation.Required),
		validation.Field(&c.CreatedBy, validation.Required),
		validation.Field(&c.CompensationAttempts, validation.Required, validation.Min(uint(1))),
		validation.Field(&c.PostgresMaxConns, validation.Required, validation.Min(int32(1))),
		validation.Field(&c.KafkaTopic, validation.When(len(c.KafkaBrokers) > 0, validation.Required)),
	)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
