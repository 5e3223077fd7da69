// Package envia issues carrier shipping labels through the Envia API.
package envia

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/gitshopapp/orderhook/internal/logging"
	"github.com/gitshopapp/orderhook/internal/observability"
)

const (
	DefaultBaseURL = "https://api.envia.com"
	metaGenerate   = "generate"
)

// ProviderError describes any label attempt that did not produce a tracking
// code. Raw holds the provider's response body when there was one.
type ProviderError struct {
	StatusCode int
	Raw        string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode == 0:
		return fmt.Sprintf("envia: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("envia: status %d: %v", e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("envia: status %d: %s", e.StatusCode, truncate(e.Raw, 256))
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

type Label struct {
	TrackingNumber string
	Carrier        string
	Service        string
	LabelURL       string
}

type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	Profile     ShipmentProfile
}

type Client struct {
	http    *resty.Client
	profile ShipmentProfile
	regions RegionMapper
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, fmt.Errorf("envia access token is required")
	}
	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := resty.NewWithClient(observability.NewHTTPClient(cfg.Timeout)).
		SetBaseURL(baseURL).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:    httpClient,
		profile: cfg.Profile,
		regions: DefaultRegionMapper(),
		logger:  logger,
	}, nil
}

type generateResponse struct {
	Meta string `json:"meta"`
	Data []struct {
		Carrier        string `json:"carrier"`
		Service        string `json:"service"`
		TrackingNumber string `json:"trackingNumber"`
		Label          string `json:"label"`
	} `json:"data"`
}

// Issue requests a label. Every failure, including transport errors and
// responses that cannot be decoded, is reported as a *ProviderError.
func (c *Client) Issue(ctx context.Context, req ShipmentRequest) (*Label, error) {
	logger := logging.FromContext(ctx, c.logger)
	body := buildGenerateRequest(c.profile, c.regions, req)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/ship/generate/")
	if err != nil {
		return nil, &ProviderError{Err: err}
	}

	raw := resp.String()
	if !resp.IsSuccess() {
		return nil, &ProviderError{StatusCode: resp.StatusCode(), Raw: raw}
	}

	var payload generateResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode(), Raw: raw, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if payload.Meta != metaGenerate {
		return nil, &ProviderError{StatusCode: resp.StatusCode(), Raw: raw, Err: fmt.Errorf("unexpected meta %q", payload.Meta)}
	}
	if len(payload.Data) == 0 || strings.TrimSpace(payload.Data[0].TrackingNumber) == "" {
		return nil, &ProviderError{StatusCode: resp.StatusCode(), Raw: raw, Err: fmt.Errorf("response has no tracking number")}
	}

	first := payload.Data[0]
	label := &Label{
		TrackingNumber: strings.TrimSpace(first.TrackingNumber),
		Carrier:        orDefault(first.Carrier, body.Shipment.Carrier),
		Service:        orDefault(first.Service, body.Shipment.Service),
		LabelURL:       first.Label,
	}
	logger.Info("shipping label issued", "order_id", req.OrderID, "carrier", label.Carrier, "tracking_number", label.TrackingNumber)
	return label, nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
