package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/gitshopapp/orderhook/internal/cache"
	"github.com/gitshopapp/orderhook/internal/config"
	"github.com/gitshopapp/orderhook/internal/db"
	"github.com/gitshopapp/orderhook/internal/email"
	"github.com/gitshopapp/orderhook/internal/envia"
	"github.com/gitshopapp/orderhook/internal/handlers"
	"github.com/gitshopapp/orderhook/internal/logging"
	"github.com/gitshopapp/orderhook/internal/mercadopago"
	"github.com/gitshopapp/orderhook/internal/services"
)

const sentryFlushTimeout = 2 * time.Second

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers
	sentryEnabled bool
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// Sentry goes first so the log handler binds to an initialized client.
	sentryEnabled, err := initSentry(cfg)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	if cfg.DatabaseMigrate {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("database migrations applied")
	}

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	profile, err := envia.LoadShipmentProfile(cfg.ShipmentProfilePath)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to load shipment profile: %w", err)
	}

	paymentClient, err := mercadopago.NewClient(mercadopago.Config{
		BaseURL:     cfg.MercadoPagoBaseURL,
		AccessToken: cfg.MercadoPagoAccessToken,
		Timeout:     cfg.PaymentLookupTimeout,
	}, logger.With("component", "mercadopago_client"))
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize MercadoPago client: %w", err)
	}

	shippingClient, err := envia.NewClient(envia.Config{
		BaseURL:     cfg.EnviaBaseURL,
		AccessToken: cfg.EnviaAccessToken,
		Timeout:     cfg.LabelTimeout,
		Profile:     profile,
	}, logger.With("component", "envia_client"))
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize Envia client: %w", err)
	}

	emailProvider, err := email.NewProvider(email.Config{
		APIKey: cfg.ResendAPIKey,
		From:   cfg.EmailFrom,
	}, logger.With("component", "email_provider"))
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}
	if cfg.EmailEnabled() {
		if err := emailProvider.ValidateAPIKey(startupCtx); err != nil {
			logger.Warn("email provider rejected the API key, notifications will fail until it is fixed", "error", err)
		}
	} else {
		logger.Warn("RESEND_API_KEY is not set, notifications will only be logged")
	}

	notifier, err := services.NewEmailNotifier(emailProvider, cacheProvider, notifierConfig(cfg), logger.With("component", "email_notifier"))
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}

	orderStore := db.NewOrderStore(database)
	reconcileService := services.NewReconcileService(
		orderStore,
		paymentClient,
		shippingClient,
		notifier,
		services.ReconcileConfig{
			PaymentLookupTimeout: cfg.PaymentLookupTimeout,
			LabelTimeout:         cfg.LabelTimeout,
			StoreTimeout:         cfg.StoreTimeout,
			NotifyTimeout:        cfg.NotifyTimeout,
			TrackingLockLease:    cfg.TrackingLockLease,
		},
		logger.With("component", "reconcile_service"),
	)
	quoteService := services.NewQuoteService(profile.Quote, logger.With("component", "quote_service"))

	h, err := handlers.New(handlers.Dependencies{
		Config:     cfg,
		Reconciler: reconcileService,
		Quoter:     quoteService,
		DB:         orderStore,
		Logger:     logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Handlers:      h,
		sentryEnabled: sentryEnabled,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.sentryEnabled {
		sentry.Flush(sentryFlushTimeout)
	}
}

// newLogger writes to stdout in the configured format and mirrors records into
// Sentry.
func newLogger(cfg *config.Config) *slog.Logger {
	var console slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.LogFormat)) {
	case "json":
		console = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	default:
		console = tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel})
	}
	return slog.New(logging.Tee(console, logging.NewSentryHandler(context.Background(), cfg.LogLevel)))
}

func notifierConfig(cfg *config.Config) services.EmailNotifierConfig {
	return services.EmailNotifierConfig{
		Store: services.StoreInfo{
			Name:            cfg.StoreName,
			URL:             cfg.StoreURL,
			SupportWhatsApp: cfg.SupportWhatsApp,
		},
		AdminEmail: cfg.AdminEmail,
		AdminFrom:  cfg.AdminEmailFrom,
		DedupeTTL:  cfg.NotificationDedupeTTL,
	}
}

func initSentry(cfg *config.Config) (bool, error) {
	if strings.TrimSpace(cfg.SentryDSN) == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		EnableTracing:    true,
		EnableLogs:       true,
		TracesSampleRate: cfg.SentryTracesSampleRate,
	})
	if err != nil {
		return false, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return true, nil
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
