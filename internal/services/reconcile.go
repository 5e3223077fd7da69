package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/gitshopapp/orderhook/internal/db"
	"github.com/gitshopapp/orderhook/internal/envia"
	"github.com/gitshopapp/orderhook/internal/logging"
	"github.com/gitshopapp/orderhook/internal/mercadopago"
	"github.com/gitshopapp/orderhook/internal/models"
	"github.com/gitshopapp/orderhook/internal/observability"
)

const (
	ResultIgnored            = "ignored"
	ResultVerificationFailed = "verification failed"
	ResultNoReference        = "no reference"
	ResultPending            = "pending"
	ResultRejected           = "rejected processed"
	ResultAlreadyProcessing  = "already processing"
	ResultOK                 = "ok"
)

// Notification is an inbound payment notification. Only the payment id is
// used; everything else is looked up from the payment provider.
type Notification struct {
	PaymentID string
	Topic     string
}

func (n Notification) isPaymentTopic() bool {
	topic := strings.ToLower(strings.TrimSpace(n.Topic))
	return topic == "" || topic == "payment"
}

type Result struct {
	Message string
}

type OrderStore interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus, paymentReference string) (*models.Order, error)
	ConditionalSetTrackingNumber(ctx context.Context, orderID uuid.UUID, expectedOld, newValue *string) (*models.Order, error)
	ReclaimStaleTrackingLock(ctx context.Context, orderID uuid.UUID, lease time.Duration) (*models.Order, error)
}

type PaymentVerifier interface {
	FetchPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type ShipmentRequester interface {
	Issue(ctx context.Context, req envia.ShipmentRequest) (*envia.Label, error)
}

type ReconcileConfig struct {
	PaymentLookupTimeout time.Duration
	LabelTimeout         time.Duration
	StoreTimeout         time.Duration
	NotifyTimeout        time.Duration
	TrackingLockLease    time.Duration
}

func (c ReconcileConfig) withDefaults() ReconcileConfig {
	if c.PaymentLookupTimeout <= 0 {
		c.PaymentLookupTimeout = 5 * time.Second
	}
	if c.LabelTimeout <= 0 {
		c.LabelTimeout = 30 * time.Second
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 10 * time.Second
	}
	if c.TrackingLockLease <= 0 {
		c.TrackingLockLease = 2 * time.Minute
	}
	return c
}

// maxStoreCalls is the most store round trips one reconciliation makes: the
// status update, a reload after a refused transition, the lock write, the lock
// inspection, the reclaim and the final tracking write.
const maxStoreCalls = 6

// MaxDuration is how long a reconciliation can run when every call it makes
// uses its full timeout.
func (c ReconcileConfig) MaxDuration() time.Duration {
	c = c.withDefaults()
	return c.PaymentLookupTimeout + c.LabelTimeout + maxStoreCalls*c.StoreTimeout + c.NotifyTimeout
}

var errTrackingLockHeld = errors.New("tracking lock held by another attempt")

// ReconcileService applies payment notifications to orders and issues each
// ship order's label at most once.
type ReconcileService struct {
	store     OrderStore
	verifier  PaymentVerifier
	requester ShipmentRequester
	notifier  OrderNotifier
	cfg       ReconcileConfig
	logger    *slog.Logger
}

func NewReconcileService(store OrderStore, verifier PaymentVerifier, requester ShipmentRequester, notifier OrderNotifier, cfg ReconcileConfig, logger *slog.Logger) *ReconcileService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ReconcileService{
		store:     store,
		verifier:  verifier,
		requester: requester,
		notifier:  notifier,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

func (s *ReconcileService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Reconcile processes one notification. A returned error means the order could
// not be read or written and the notification should be redelivered; every
// other outcome, including provider failures, is reported through Result.
func (s *ReconcileService) Reconcile(ctx context.Context, n Notification) (Result, error) {
	span := sentry.StartSpan(
		ctx,
		"service.reconcile",
		sentry.WithOpName("service.reconcile"),
		sentry.WithDescription("ReconcileService.Reconcile"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("webhook.provider", "mercadopago"))
	meter.Count("reconcile.received", 1)

	finish := func(message string) (Result, error) {
		meter.Count("reconcile.completed", 1, sentry.WithAttributes(attribute.String("result", message)))
		span.Status = sentry.SpanStatusOK
		return Result{Message: message}, nil
	}
	fail := func(reason string, err error) (Result, error) {
		meter.Count("reconcile.failed", 1, sentry.WithAttributes(attribute.String("reason", reason)))
		span.Status = sentry.SpanStatusInternalError
		return Result{}, err
	}

	paymentID := strings.TrimSpace(n.PaymentID)
	if paymentID == "" || !n.isPaymentTopic() {
		s.loggerFromContext(ctx).Info("ignoring notification", "payment_id", paymentID, "topic", n.Topic)
		return finish(ResultIgnored)
	}
	span.SetTag("payment_id", paymentID)
	ctx = logging.With(ctx, s.logger, "payment_id", paymentID)
	logger := s.loggerFromContext(ctx)

	payment, err := s.fetchPayment(ctx, paymentID)
	if err != nil {
		logger.Warn("payment verification failed", "error", err)
		return finish(ResultVerificationFailed)
	}
	if payment.ExternalReference == "" {
		logger.Info("payment has no external reference", "status", payment.Status)
		return finish(ResultNoReference)
	}

	orderID, err := uuid.Parse(payment.ExternalReference)
	if err != nil {
		logger.Error("payment references an invalid order id", "external_reference", payment.ExternalReference)
		return fail("invalid_reference", fmt.Errorf("external reference %q is not an order id: %w", payment.ExternalReference, err))
	}
	span.SetTag("order_id", orderID.String())
	ctx = logging.With(ctx, s.logger, "order_id", orderID)
	logger = s.loggerFromContext(ctx)

	target := payment.OrderStatus()
	order, err := s.updateStatus(ctx, orderID, target, paymentID)
	switch {
	case err == nil:
		logger.Info("order status updated", "status", order.Status, "payment_status", payment.Status)
	case errors.Is(err, db.ErrInvalidStatusTransition):
		logger.Info("ignoring payment status that would regress the order", "payment_status", payment.Status, "error", err)
		order, err = s.getOrder(ctx, orderID)
		if err != nil {
			logger.Error("failed to reload order", "error", err)
			return fail("order_reload_failed", fmt.Errorf("failed to reload order: %w", err))
		}
	case errors.Is(err, db.ErrOrderNotFound):
		logger.Error("order referenced by payment does not exist")
		return fail("order_not_found", fmt.Errorf("failed to update order status: %w", err))
	default:
		logger.Error("failed to update order status", "error", err)
		return fail("status_update_failed", fmt.Errorf("failed to update order status: %w", err))
	}

	switch order.Status {
	case models.StatusRejected, models.StatusCancelled:
		if code := order.TrackingCode(); code != "" {
			logger.Warn("order closed after its label was issued; the label is not voided", "status", order.Status, "tracking_number", code)
		}
		s.notify(ctx, order, paymentID, nil, OutcomeRejected)
		return finish(ResultRejected)
	case models.StatusPending:
		return finish(ResultPending)
	}

	var issued *envia.Label
	if order.NeedsShipment() && order.TrackingCode() == "" {
		order, issued, err = s.ensureShipment(ctx, order, payment)
		switch {
		case errors.Is(err, errTrackingLockHeld):
			logger.Info("label attempt already in progress, skipping")
			meter.Count("reconcile.shipment.skipped", 1)
			return finish(ResultAlreadyProcessing)
		case err != nil:
			logger.Error("failed to lock order for shipment", "error", err)
			return fail("tracking_lock_failed", err)
		}
	}

	carrier := ShipmentCarrier(order)
	if issued != nil && carrier != nil {
		carrier = &models.CarrierSelection{Carrier: issued.Carrier, Service: issued.Service}
	}
	s.notify(ctx, order, paymentID, carrier, OutcomeApproved)
	return finish(ResultOK)
}

// ensureShipment takes the tracking lock, requests the label and releases the
// lock with the outcome. It returns the best known order snapshot and the label
// when one was issued. errTrackingLockHeld means another attempt owns the lock
// or already finished; any other error is a store failure before anything was
// written.
func (s *ReconcileService) ensureShipment(ctx context.Context, order *models.Order, payment *mercadopago.Payment) (*models.Order, *envia.Label, error) {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	locked, err := s.acquireTrackingLock(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}

	sentinel := models.TrackingInProgress
	req := envia.NewShipmentRequest(locked, payment.PayerIdentification)

	issueCtx, cancel := context.WithTimeout(ctx, s.cfg.LabelTimeout)
	label, issueErr := s.requester.Issue(issueCtx, req)
	cancel()

	if issueErr != nil {
		meter.Count("reconcile.shipment.failed", 1)
		var providerErr *envia.ProviderError
		if errors.As(issueErr, &providerErr) {
			logger.Error("shipping label request failed", "error", issueErr, "provider_status", providerErr.StatusCode, "carrier", req.Carrier.Slug)
		} else {
			logger.Error("shipping label request failed", "error", issueErr, "carrier", req.Carrier.Slug)
		}

		released, err := s.setTrackingNumber(ctx, order.ID, &sentinel, nil)
		if err != nil {
			logger.Error("failed to roll back tracking lock", "error", err)
			snapshot := *locked
			snapshot.TrackingNumber = nil
			return &snapshot, nil, nil
		}
		return released, nil, nil
	}

	meter.Count("reconcile.shipment.issued", 1, sentry.WithAttributes(attribute.String("carrier", label.Carrier)))
	code := label.TrackingNumber
	stored, err := s.setTrackingNumber(ctx, order.ID, &sentinel, &code)
	if err != nil {
		logger.Error("failed to store tracking number", "error", err, "tracking_number", code)
		snapshot := *locked
		snapshot.TrackingNumber = &code
		return &snapshot, label, nil
	}
	return stored, label, nil
}

func (s *ReconcileService) acquireTrackingLock(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	logger := s.loggerFromContext(ctx)
	sentinel := models.TrackingInProgress

	locked, err := s.setTrackingNumber(ctx, orderID, nil, &sentinel)
	if err == nil {
		return locked, nil
	}
	if !errors.Is(err, db.ErrNoMatch) {
		return nil, fmt.Errorf("failed to lock order for shipment: %w", err)
	}

	current, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect tracking lock: %w", err)
	}
	if !current.TrackingLocked() {
		return nil, errTrackingLockHeld
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	reclaimed, err := s.store.ReclaimStaleTrackingLock(storeCtx, orderID, s.cfg.TrackingLockLease)
	if errors.Is(err, db.ErrNoMatch) {
		return nil, errTrackingLockHeld
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reclaim tracking lock: %w", err)
	}
	logger.Warn("reclaimed stale tracking lock", "locked_at", current.TrackingLockedAt)
	observability.MeterFromContext(ctx).Count("reconcile.shipment.lock_reclaimed", 1)
	return reclaimed, nil
}

func (s *ReconcileService) notify(ctx context.Context, order *models.Order, paymentID string, carrier *models.CarrierSelection, outcome Outcome) {
	notifyCtx, cancel := context.WithTimeout(ctx, s.cfg.NotifyTimeout)
	defer cancel()

	err := s.notifier.Notify(notifyCtx, OrderNotification{
		Order:            order,
		PaymentReference: paymentID,
		TrackingNumber:   order.TrackingNumber,
		Carrier:          carrier,
		Outcome:          outcome,
	})
	if err != nil {
		s.loggerFromContext(ctx).Error("failed to send order notifications", "error", err, "outcome", outcome)
		observability.MeterFromContext(ctx).Count("reconcile.notify.failed", 1)
	}
}

func (s *ReconcileService) fetchPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentLookupTimeout)
	defer cancel()
	return s.verifier.FetchPayment(lookupCtx, paymentID)
}

func (s *ReconcileService) updateStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus, paymentID string) (*models.Order, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.store.UpdateStatus(storeCtx, orderID, status, paymentID)
}

func (s *ReconcileService) getOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.store.GetByID(storeCtx, orderID)
}

func (s *ReconcileService) setTrackingNumber(ctx context.Context, orderID uuid.UUID, expectedOld, newValue *string) (*models.Order, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.store.ConditionalSetTrackingNumber(storeCtx, orderID, expectedOld, newValue)
}
