package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration, loadable from
// environment variables (KART_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (KART_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	TokenPepper string `usage:"HMAC pepper for session token and API key hashing (KART_TOKEN_PEPPER)" flag:"token-pepper"`
	Checkout    CheckoutConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// CheckoutConfig controls order totals and identifier issuance.
type CheckoutConfig struct {
	TaxRate            string `default:"0.18" usage:"Tax rate applied to the subtotal" flag:"tax-rate"`
	DeliveryFee        string `default:"7.50" usage:"Flat delivery fee per order" flag:"delivery-fee"`
	IdentifierAttempts int    `default:"10" usage:"Max attempts to issue a unique order or invoice number" flag:"identifier-attempts"`
	// RegistryCapacity sizes the bloom filter of issued numbers.
	RegistryCapacity uint   `default:"1000000" usage:"Expected number of issued identifiers" flag:"registry-capacity"`
	PaymentStepURL   string `default:"/checkout/payment" usage:"Redirect target when a session has no confirmation" flag:"payment-step-url"`
}

// Rates parses the configured tax rate and delivery fee.
func (c CheckoutConfig) Rates() (taxRate, deliveryFee decimal.Decimal, err error) {
	if taxRate, err = decimal.NewFromString(c.TaxRate); err != nil {
		return taxRate, deliveryFee, errors.Wrap(err, "tax rate")
	}
	if deliveryFee, err = decimal.NewFromString(c.DeliveryFee); err != nil {
		return taxRate, deliveryFee, errors.Wrap(err, "delivery fee")
	}
	if taxRate.IsNegative() || deliveryFee.IsNegative() {
		return taxRate, deliveryFee, errors.New("tax rate and delivery fee must not be negative")
	}
	return taxRate, deliveryFee, nil
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KART",
		Args:      args,
		Files:     []string{"config.yaml", "/etc/kart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set KART_DATABASE_URL or DATABASE_URL")
	}
	if _, _, err := cfg.Checkout.Rates(); err != nil {
		return nil, errors.Wrap(err, "checkout config")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's KART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
