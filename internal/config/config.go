package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL     string `env:"DATABASE_URL,required" validate:"required"`
	DatabaseMigrate bool   `env:"DATABASE_MIGRATE" envDefault:"false"`

	MercadoPagoAccessToken string `env:"MERCADOPAGO_ACCESS_TOKEN,required" validate:"required"`
	MercadoPagoBaseURL     string `env:"MERCADOPAGO_BASE_URL" envDefault:"https://api.mercadopago.com" validate:"required,url"`

	EnviaAccessToken    string `env:"ENVIA_ACCESS_TOKEN,required" validate:"required"`
	EnviaBaseURL        string `env:"ENVIA_BASE_URL" envDefault:"https://api.envia.com" validate:"required,url"`
	ShipmentProfilePath string `env:"SHIPMENT_PROFILE_PATH"`

	ResendAPIKey    string `env:"RESEND_API_KEY"`
	EmailFrom       string `env:"EMAIL_FROM" envDefault:"MNL Tecno <soporte@assistify.lat>" validate:"required"`
	AdminEmail      string `env:"ADMIN_EMAIL" validate:"omitempty,email"`
	AdminEmailFrom  string `env:"ADMIN_EMAIL_FROM" envDefault:"MNL Bot <soporte@assistify.lat>" validate:"required"`
	StoreName       string `env:"STORE_NAME" envDefault:"MNL Tecno" validate:"required"`
	StoreURL        string `env:"STORE_URL" envDefault:"https://migue-iphones.vercel.app/" validate:"required,url"`
	SupportWhatsApp string `env:"SUPPORT_WHATSAPP" validate:"omitempty,numeric"`

	CacheProvider         string        `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string        `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`
	NotificationDedupeTTL time.Duration `env:"NOTIFICATION_DEDUPE_TTL" envDefault:"720h" validate:"gt=0"`

	PaymentLookupTimeout time.Duration `env:"PAYMENT_LOOKUP_TIMEOUT" envDefault:"5s" validate:"gt=0"`
	LabelTimeout         time.Duration `env:"LABEL_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	StoreTimeout         time.Duration `env:"STORE_TIMEOUT" envDefault:"5s" validate:"gt=0"`
	NotifyTimeout        time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	TrackingLockLease    time.Duration `env:"TRACKING_LOCK_LEASE" envDefault:"2m" validate:"gt=0"`

	QuoteRateLimit float64 `env:"QUOTE_RATE_LIMIT" envDefault:"5" validate:"gt=0"`
	QuoteRateBurst int     `env:"QUOTE_RATE_BURST" envDefault:"10" validate:"gte=1"`

	SentryDSN              string  `env:"SENTRY_DSN" validate:"omitempty,url"`
	SentryEnvironment      string  `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	SentryTracesSampleRate float64 `env:"SENTRY_TRACES_SAMPLE_RATE" envDefault:"0.2" validate:"gte=0,lte=1"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	// A lease shorter than one label attempt would let a second invocation take
	// over an attempt that is still running.
	if c.TrackingLockLease <= c.LabelTimeout+c.StoreTimeout {
		return fmt.Errorf("TRACKING_LOCK_LEASE must exceed LABEL_TIMEOUT + STORE_TIMEOUT")
	}

	for name, raw := range map[string]string{
		"MERCADOPAGO_BASE_URL": c.MercadoPagoBaseURL,
		"ENVIA_BASE_URL":       c.EnviaBaseURL,
	} {
		parsed, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || parsed.Hostname() == "" {
			return fmt.Errorf("%s must be a valid absolute URL", name)
		}
		if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
			return fmt.Errorf("%s must use https outside local development", name)
		}
	}

	return nil
}

// EmailEnabled reports whether outbound notifications can be delivered.
func (c *Config) EmailEnabled() bool {
	return strings.TrimSpace(c.ResendAPIKey) != ""
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
