package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gitshopapp/orderhook/internal/models"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	// ErrNoMatch reports a conditional write whose precondition did not hold.
	ErrNoMatch = errors.New("conditional write precondition not met")
)

const orderColumns = `id, status, delivery_type, shipping_address, tracking_number, tracking_locked_at,
	carrier_slug, carrier_service, payment_reference, payer_email, total_amount::text,
	shipping_cost::text, order_items, created_at, updated_at`

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(s.pool.QueryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// UpdateStatus writes the status reported by the payment provider. The write only
// applies when the stored status may move to the new one; re-applying the same
// status is a no-op in effect.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus, paymentReference string) (*Order, error) {
	allowed := models.AllowedPredecessors(status)
	if len(allowed) == 0 {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidStatusTransition, status)
	}
	from := make([]string, len(allowed))
	for i, st := range allowed {
		from[i] = string(st)
	}

	query := `
		UPDATE orders
		SET status = $2,
		    payment_reference = COALESCE(NULLIF($3, ''), payment_reference),
		    updated_at = NOW()
		WHERE id = $1 AND status = ANY($4)
		RETURNING ` + orderColumns
	order, err := scanOrder(s.pool.QueryRow(ctx, query, orderID, string(status), paymentReference, from))
	if errors.Is(err, pgx.ErrNoRows) {
		current, getErr := s.GetByID(ctx, orderID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, status)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return order, nil
}

// ConditionalSetTrackingNumber atomically replaces the tracking number only when
// the stored value equals expectedOld (nil meaning absent). Writing the
// in-progress marker stamps the lock time; any other value clears it.
func (s *OrderStore) ConditionalSetTrackingNumber(ctx context.Context, orderID uuid.UUID, expectedOld, newValue *string) (*Order, error) {
	query := `
		UPDATE orders
		SET tracking_number = $3::text,
		    tracking_locked_at = CASE WHEN $3::text = $4 THEN NOW() ELSE NULL END,
		    updated_at = NOW()
		WHERE id = $1 AND tracking_number IS NOT DISTINCT FROM $2::text
		RETURNING ` + orderColumns
	order, err := scanOrder(s.pool.QueryRow(ctx, query, orderID, expectedOld, newValue, models.TrackingInProgress))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.noMatch(ctx, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set tracking number: %w", err)
	}
	return order, nil
}

// ReclaimStaleTrackingLock refreshes an in-progress marker older than lease,
// handing the label attempt to the caller. The age is measured on the database
// clock, the same clock that stamped the lock.
func (s *OrderStore) ReclaimStaleTrackingLock(ctx context.Context, orderID uuid.UUID, lease time.Duration) (*Order, error) {
	query := `
		UPDATE orders
		SET tracking_locked_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND tracking_number = $2
		  AND (tracking_locked_at IS NULL OR tracking_locked_at < NOW() - $3::interval)
		RETURNING ` + orderColumns
	order, err := scanOrder(s.pool.QueryRow(ctx, query, orderID, models.TrackingInProgress, lease))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.noMatch(ctx, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reclaim tracking lock: %w", err)
	}
	return order, nil
}

func (s *OrderStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *OrderStore) noMatch(ctx context.Context, orderID uuid.UUID) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return ErrNoMatch
}

type orderRow struct {
	ID               uuid.UUID
	Status           string
	DeliveryType     string
	ShippingAddress  []byte
	TrackingNumber   pgtype.Text
	TrackingLockedAt pgtype.Timestamptz
	CarrierSlug      pgtype.Text
	CarrierService   pgtype.Text
	PaymentReference pgtype.Text
	PayerEmail       string
	TotalAmount      string
	ShippingCost     string
	OrderItems       []byte
	CreatedAt        pgtype.Timestamptz
	UpdatedAt        pgtype.Timestamptz
}

func scanOrder(row pgx.Row) (*Order, error) {
	var r orderRow
	if err := row.Scan(
		&r.ID,
		&r.Status,
		&r.DeliveryType,
		&r.ShippingAddress,
		&r.TrackingNumber,
		&r.TrackingLockedAt,
		&r.CarrierSlug,
		&r.CarrierService,
		&r.PaymentReference,
		&r.PayerEmail,
		&r.TotalAmount,
		&r.ShippingCost,
		&r.OrderItems,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return rowToOrder(r)
}

func rowToOrder(row orderRow) (*Order, error) {
	order := &Order{
		ID:           row.ID,
		Status:       OrderStatus(row.Status),
		DeliveryType: models.ParseDeliveryType(row.DeliveryType),
		PayerEmail:   row.PayerEmail,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}

	if row.TrackingNumber.Valid {
		tracking := row.TrackingNumber.String
		order.TrackingNumber = &tracking
	}
	if row.TrackingLockedAt.Valid {
		order.TrackingLockedAt = row.TrackingLockedAt.Time
	}
	if row.PaymentReference.Valid {
		order.PaymentReference = row.PaymentReference.String
	}
	if row.CarrierSlug.Valid && strings.TrimSpace(row.CarrierSlug.String) != "" {
		order.Carrier = &models.CarrierSelection{
			Carrier: row.CarrierSlug.String,
			Service: row.CarrierService.String,
		}
	}

	var err error
	if order.TotalAmount, err = decimal.NewFromString(row.TotalAmount); err != nil {
		return nil, fmt.Errorf("invalid total amount %q: %w", row.TotalAmount, err)
	}
	if order.ShippingCost, err = decimal.NewFromString(row.ShippingCost); err != nil {
		return nil, fmt.Errorf("invalid shipping cost %q: %w", row.ShippingCost, err)
	}

	if len(row.ShippingAddress) > 0 && string(row.ShippingAddress) != "null" && string(row.ShippingAddress) != "{}" {
		var address models.Address
		if err := json.Unmarshal(row.ShippingAddress, &address); err != nil {
			return nil, fmt.Errorf("invalid shipping address: %w", err)
		}
		order.ShippingAddress = &address
	}

	if len(row.OrderItems) > 0 {
		if err := json.Unmarshal(row.OrderItems, &order.Items); err != nil {
			return nil, fmt.Errorf("invalid order items: %w", err)
		}
	}

	return order, nil
}
