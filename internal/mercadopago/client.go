// Package mercadopago looks up the authoritative state of a payment.
package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/gitshopapp/orderhook/internal/logging"
	"github.com/gitshopapp/orderhook/internal/models"
	"github.com/gitshopapp/orderhook/internal/observability"
)

const DefaultBaseURL = "https://api.mercadopago.com"

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrUnauthorized    = errors.New("payment provider rejected credentials")
)

// APIError is returned for any other non-2xx answer from the payments API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercadopago: unexpected status %d: %s", e.StatusCode, truncate(e.Body, 256))
}

type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, fmt.Errorf("mercadopago access token is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := resty.NewWithClient(observability.NewHTTPClient(cfg.Timeout)).
		SetBaseURL(baseURL).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, logger: logger}, nil
}

// FetchPayment returns the payment as the provider currently reports it.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("payment id is required")
	}
	logger := logging.FromContext(ctx, c.logger)

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", paymentID).
		Get("/v1/payments/{id}")
	if err != nil {
		return nil, fmt.Errorf("payment lookup failed: %w", err)
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusNotFound:
		return nil, ErrPaymentNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, ErrUnauthorized
	case !resp.IsSuccess():
		return nil, &APIError{StatusCode: status, Body: resp.String()}
	}

	var payload paymentResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payment %s: %w", paymentID, err)
	}

	payment := payload.toPayment()
	if payment.ID == "" {
		payment.ID = paymentID
	}
	logger.Debug("payment fetched", "payment_id", payment.ID, "status", payment.Status, "status_detail", payment.StatusDetail)
	return payment, nil
}

// ToOrderStatus maps a provider payment status onto the order lifecycle.
func ToOrderStatus(status string) models.OrderStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusApproved:
		return models.StatusApproved
	case StatusRejected:
		return models.StatusRejected
	case StatusCancelled, StatusRefunded, StatusChargedBack:
		return models.StatusCancelled
	default:
		return models.StatusPending
	}
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
