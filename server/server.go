package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/mux"

	"github.com/gitshopapp/orderhook/internal/config"
	"github.com/gitshopapp/orderhook/internal/handlers"
	"github.com/gitshopapp/orderhook/internal/services"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: false})
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           sentryHandler.Handle(s.routes()),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

// writeTimeout leaves room for the slowest reconciliation the configured
// timeouts allow.
func writeTimeout(cfg *config.Config) time.Duration {
	budget := services.ReconcileConfig{
		PaymentLookupTimeout: cfg.PaymentLookupTimeout,
		LabelTimeout:         cfg.LabelTimeout,
		StoreTimeout:         cfg.StoreTimeout,
		NotifyTimeout:        cfg.NotifyTimeout,
	}.MaxDuration()
	if budget < 15*time.Second {
		return 15 * time.Second
	}
	return budget + 5*time.Second
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// routes answers preflight requests for any path, then dispatches to the
// router.
func (s *Server) routes() http.Handler {
	return s.handlers.Preflight(s.buildRouter())
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.MetricsContext)
	r.Use(h.SecurityHeaders)
	r.Use(h.CORS)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet).Name("health")
	r.HandleFunc("/webhooks/mercadopago", h.MercadoPagoWebhook).Methods(http.MethodPost).Name("webhooks.mercadopago")
	r.HandleFunc("/shipping/quote", h.ShippingQuote).Methods(http.MethodPost).Name("shipping.quote")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r
}
