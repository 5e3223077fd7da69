package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gitshopapp/orderhook/internal/cache"
	"github.com/gitshopapp/orderhook/internal/email"
	"github.com/gitshopapp/orderhook/internal/logging"
	"github.com/gitshopapp/orderhook/internal/models"
)

type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

const (
	audienceClient = "client"
	audienceAdmin  = "admin"
)

// OrderNotification is the reconciled state handed to the notifier.
type OrderNotification struct {
	Order            *models.Order
	PaymentReference string
	TrackingNumber   *string
	Carrier          *models.CarrierSelection
	Outcome          Outcome
}

func (n OrderNotification) trackingCode() string {
	if n.TrackingNumber == nil || *n.TrackingNumber == models.TrackingInProgress {
		return ""
	}
	return strings.TrimSpace(*n.TrackingNumber)
}

// OrderNotifier delivers customer and admin notifications. Errors are reported
// to the caller, which decides whether they matter.
type OrderNotifier interface {
	Notify(ctx context.Context, note OrderNotification) error
}

type EmailNotifierConfig struct {
	Store      StoreInfo
	AdminEmail string
	AdminFrom  string
	DedupeTTL  time.Duration
}

type EmailNotifier struct {
	provider email.Provider
	renderer *email.Renderer
	sent     cache.Provider
	cfg      EmailNotifierConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewEmailNotifier(provider email.Provider, sent cache.Provider, cfg EmailNotifierConfig, logger *slog.Logger) (*EmailNotifier, error) {
	if provider == nil {
		return nil, fmt.Errorf("email provider is required")
	}
	renderer, err := email.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return &EmailNotifier{
		provider: provider,
		renderer: renderer,
		sent:     sent,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Notify sends the client email for the outcome and, for approvals, the admin
// sale email. Each email is sent at most once per order, outcome and
// tracking code.
func (n *EmailNotifier) Notify(ctx context.Context, note OrderNotification) error {
	if note.Order == nil {
		return fmt.Errorf("notification order is required")
	}
	logger := logging.FromContext(ctx, n.logger)
	info := BuildOrderInfo(n.cfg.Store, note, n.now())

	clientTemplate := email.TemplateRejected
	if note.Outcome == OutcomeApproved {
		clientTemplate = email.TemplateApprovedManual
		if info.TrackingNumber != "" {
			clientTemplate = email.TemplateApprovedWithTracking
		}
	}

	var g errgroup.Group
	if recipient := strings.TrimSpace(note.Order.PayerEmail); recipient != "" {
		g.Go(func() error {
			return n.deliver(ctx, note, audienceClient, clientTemplate, recipient, "", info)
		})
	} else {
		logger.Warn("order has no payer email, skipping client notification", "order_id", note.Order.ID)
	}
	if note.Outcome == OutcomeApproved && strings.TrimSpace(n.cfg.AdminEmail) != "" {
		g.Go(func() error {
			return n.deliver(ctx, note, audienceAdmin, email.TemplateAdminSale, n.cfg.AdminEmail, n.cfg.AdminFrom, info)
		})
	}
	return g.Wait()
}

func (n *EmailNotifier) deliver(ctx context.Context, note OrderNotification, audience, templateName, to, from string, info *email.OrderInfo) error {
	logger := logging.FromContext(ctx, n.logger)
	key := cache.NotificationKey(note.Order.ID.String(), string(note.Outcome), info.TrackingNumber, audience)

	if n.sent != nil {
		_, err := n.sent.Get(ctx, key)
		switch {
		case err == nil:
			logger.Debug("notification already delivered", "key", key)
			return nil
		case !errors.Is(err, cache.ErrNotFound):
			logger.Warn("failed to check notification dedupe key, sending anyway", "key", key, "error", err)
		}
	}

	msg, err := n.renderer.Render(ctx, templateName, info)
	if err != nil {
		return fmt.Errorf("failed to render %s email: %w", audience, err)
	}
	msg.To = to
	msg.From = from

	if err := n.provider.SendEmail(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %s email: %w", audience, err)
	}
	logger.Info("notification sent", "audience", audience, "template", templateName, "order_id", note.Order.ID)

	if n.sent != nil {
		if err := n.sent.Set(ctx, key, n.now().UTC().Format(time.RFC3339), n.cfg.DedupeTTL); err != nil {
			logger.Warn("failed to record delivered notification", "key", key, "error", err)
		}
	}
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, OrderNotification) error {
	return nil
}
