package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusApproved  OrderStatus = "approved"
	StatusRejected  OrderStatus = "rejected"
	StatusCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether the status ends the payment lifecycle.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// AllowedPredecessors lists the stored statuses an order may hold for a write of
// the given status to apply. Only cancellation may leave a terminal state.
func AllowedPredecessors(to OrderStatus) []OrderStatus {
	switch to {
	case StatusPending:
		return []OrderStatus{StatusPending}
	case StatusApproved:
		return []OrderStatus{StatusPending, StatusRejected, StatusApproved}
	case StatusRejected:
		return []OrderStatus{StatusPending, StatusRejected}
	case StatusCancelled:
		return []OrderStatus{StatusPending, StatusApproved, StatusRejected, StatusCancelled}
	default:
		return nil
	}
}

// CanTransition reports whether an order stored with from may be moved to to.
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range AllowedPredecessors(to) {
		if allowed == from {
			return true
		}
	}
	return false
}

type DeliveryType string

const (
	DeliveryPickup DeliveryType = "pickup"
	DeliveryShip   DeliveryType = "ship"
)

// ParseDeliveryType accepts the canonical values and the storefront's legacy
// spanish ones ("envio", "retiro").
func ParseDeliveryType(value string) DeliveryType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "ship", "envio", "envío":
		return DeliveryShip
	default:
		return DeliveryPickup
	}
}

// TrackingInProgress marks an order whose label is being issued. It is never a
// real tracking code.
const TrackingInProgress = "PROCESSING..."

type Address struct {
	Name         string `json:"name,omitempty"`
	StreetName   string `json:"street_name,omitempty"`
	StreetNumber string `json:"street_number,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zip_code,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

type CarrierSelection struct {
	Carrier string `json:"carrier"`
	Service string `json:"service"`
}

// FlexibleID decodes identifiers the storefront and payment provider send either
// as JSON strings or as JSON numbers.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*id = FlexibleID(strings.TrimSpace(value))
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*id = FlexibleID(number.String())
	return nil
}

func (id FlexibleID) String() string {
	return string(id)
}

type OrderItem struct {
	ID           FlexibleID      `json:"id"`
	Title        string          `json:"title"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	SelectedSize string          `json:"selected_size,omitempty"`
}

type Order struct {
	ID               uuid.UUID         `json:"id"`
	Status           OrderStatus       `json:"status"`
	DeliveryType     DeliveryType      `json:"delivery_type"`
	ShippingAddress  *Address          `json:"shipping_address,omitempty"`
	TrackingNumber   *string           `json:"tracking_number,omitempty"`
	TrackingLockedAt time.Time         `json:"tracking_locked_at"`
	Carrier          *CarrierSelection `json:"carrier,omitempty"`
	PaymentReference string            `json:"payment_reference"`
	PayerEmail       string            `json:"payer_email"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	ShippingCost     decimal.Decimal   `json:"shipping_cost"`
	Items            []OrderItem       `json:"order_items"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NeedsShipment reports whether the order requires a carrier label.
func (o *Order) NeedsShipment() bool {
	return o != nil && o.DeliveryType == DeliveryShip
}

// TrackingAbsent reports whether no label attempt holds or has filled the field.
func (o *Order) TrackingAbsent() bool {
	return o == nil || o.TrackingNumber == nil
}

// TrackingLocked reports whether a label attempt currently holds the field.
func (o *Order) TrackingLocked() bool {
	return o != nil && o.TrackingNumber != nil && *o.TrackingNumber == TrackingInProgress
}

// TrackingCode returns the carrier tracking code, or "" when none is assigned.
func (o *Order) TrackingCode() string {
	if o == nil || o.TrackingNumber == nil || *o.TrackingNumber == TrackingInProgress {
		return ""
	}
	return *o.TrackingNumber
}

// ShortID is the customer-facing order reference.
func (o *Order) ShortID() string {
	if o == nil {
		return ""
	}
	return strings.ToUpper(o.ID.String()[:8])
}
