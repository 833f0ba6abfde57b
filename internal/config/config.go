package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/tax"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Tally"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"tally"`
		Migrate  bool   `envconfig:"DB_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	// Billing holds the business defaults applied to new documents.
	Billing struct {
		MaterialTaxRate  decimal.Decimal `envconfig:"TAX_RATE_MATERIAL" default:"0"`
		LaborTaxRate     decimal.Decimal `envconfig:"TAX_RATE_LABOR" default:"0"`
		EquipmentTaxRate decimal.Decimal `envconfig:"TAX_RATE_EQUIPMENT" default:"0"`
		OtherTaxRate     decimal.Decimal `envconfig:"TAX_RATE_OTHER" default:"0"`
		MaterialMarkup   decimal.Decimal `envconfig:"MARKUP_MATERIAL" default:"0"`
		LaborMarkup      decimal.Decimal `envconfig:"MARKUP_LABOR" default:"0"`
	}

	Auth struct {
		// JWTSecret enables bearer token checks on the API when set.
		JWTSecret string `envconfig:"JWT_SECRET"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// Settings converts the billing section into invoice settings, rejecting
// rates or markups outside [0,100].
func (c *Config) Settings() (invoice.Settings, error) {
	rates, err := tax.RatesFromMap(map[lineitem.Bucket]decimal.Decimal{
		lineitem.BucketMaterial:  c.Billing.MaterialTaxRate,
		lineitem.BucketLabor:     c.Billing.LaborTaxRate,
		lineitem.BucketEquipment: c.Billing.EquipmentTaxRate,
		lineitem.BucketOther:     c.Billing.OtherTaxRate,
	})
	if err != nil {
		return invoice.Settings{}, fmt.Errorf("billing config: %w", err)
	}

	hundred := decimal.NewFromInt(100)
	for name, m := range map[string]decimal.Decimal{
		"MARKUP_MATERIAL": c.Billing.MaterialMarkup,
		"MARKUP_LABOR":    c.Billing.LaborMarkup,
	} {
		if m.IsNegative() || m.GreaterThan(hundred) {
			return invoice.Settings{}, fmt.Errorf("billing config: %s must be within [0,100], got %s", name, m)
		}
	}

	return invoice.Settings{
		TaxRates:       rates,
		MaterialMarkup: c.Billing.MaterialMarkup,
		LaborMarkup:    c.Billing.LaborMarkup,
	}, nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
