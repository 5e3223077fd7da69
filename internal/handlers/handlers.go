package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/gitshopapp/orderhook/internal/config"
	"github.com/gitshopapp/orderhook/internal/logging"
	"github.com/gitshopapp/orderhook/internal/services"
)

const maxWebhookBodyBytes = 1 << 20 // 1 MB

type Reconciler interface {
	Reconcile(ctx context.Context, n services.Notification) (services.Result, error)
}

type Quoter interface {
	Quote(ctx context.Context, req services.QuoteRequest) (*services.QuoteResponse, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers provides the HTTP handlers for payment webhooks and checkout helpers.
type Handlers struct {
	config       *config.Config
	reconciler   Reconciler
	quoter       Quoter
	db           Pinger
	quoteLimiter *rate.Limiter
	logger       *slog.Logger
}

type Dependencies struct {
	Config     *config.Config
	Reconciler Reconciler
	Quoter     Quoter
	DB         Pinger
	Logger     *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.Reconciler == nil {
		return nil, fmt.Errorf("handlers dependencies: reconciler is required")
	}
	if deps.Quoter == nil {
		return nil, fmt.Errorf("handlers dependencies: quoter is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}

	return &Handlers{
		config:       deps.Config,
		reconciler:   deps.Reconciler,
		quoter:       deps.Quoter,
		db:           deps.DB,
		quoteLimiter: rate.NewLimiter(rate.Limit(deps.Config.QuoteRateLimit), deps.Config.QuoteRateBurst),
		logger:       logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.loggerFromContext(ctx).Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}
