package mercadopago

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gitshopapp/orderhook/internal/models"
)

const (
	StatusPending     = "pending"
	StatusApproved    = "approved"
	StatusAuthorized  = "authorized"
	StatusInProcess   = "in_process"
	StatusInMediation = "in_mediation"
	StatusRejected    = "rejected"
	StatusCancelled   = "cancelled"
	StatusRefunded    = "refunded"
	StatusChargedBack = "charged_back"
)

type Payment struct {
	ID                  string
	Status              string
	StatusDetail        string
	ExternalReference   string
	PayerEmail          string
	PayerIdentification string
	TransactionAmount   decimal.Decimal
}

// OrderStatus is the order status this payment implies.
func (p *Payment) OrderStatus() models.OrderStatus {
	if p == nil {
		return models.StatusPending
	}
	return ToOrderStatus(p.Status)
}

type paymentResponse struct {
	ID                models.FlexibleID `json:"id"`
	Status            string            `json:"status"`
	StatusDetail      string            `json:"status_detail"`
	ExternalReference string            `json:"external_reference"`
	TransactionAmount decimal.Decimal   `json:"transaction_amount"`
	Payer             struct {
		Email          string `json:"email"`
		Identification struct {
			Type   string            `json:"type"`
			Number models.FlexibleID `json:"number"`
		} `json:"identification"`
	} `json:"payer"`
}

func (r paymentResponse) toPayment() *Payment {
	return &Payment{
		ID:                  r.ID.String(),
		Status:              strings.ToLower(strings.TrimSpace(r.Status)),
		StatusDetail:        r.StatusDetail,
		ExternalReference:   strings.TrimSpace(r.ExternalReference),
		PayerEmail:          strings.TrimSpace(r.Payer.Email),
		PayerIdentification: strings.TrimSpace(r.Payer.Identification.Number.String()),
		TransactionAmount:   r.TransactionAmount,
	}
}
