package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/gitshopapp/orderhook/internal/envia"
	"github.com/gitshopapp/orderhook/internal/services"
)

func newQuoteHandlers(limiter *rate.Limiter) *Handlers {
	h := newTestHandlers(&recordingReconciler{})
	h.quoter = services.NewQuoteService(envia.DefaultShipmentProfile().Quote, nil)
	if limiter != nil {
		h.quoteLimiter = limiter
	}
	return h
}

func TestShippingQuote_ReturnsRates(t *testing.T) {
	t.Parallel()

	h := newQuoteHandlers(nil)

	body := `{"zip_code":"1425","province":"CABA","packages":[{"weight":1,"quantity":2}]}`
	req := httptest.NewRequest(http.MethodPost, "/shipping/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ShippingQuote(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp services.QuoteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(resp.Rates) != 3 {
		t.Fatalf("expected 3 rates, got %d", len(resp.Rates))
	}
	// 4500 + 2kg * 500
	if got := resp.Rates[0].Price.String(); got != "5500.00" {
		t.Fatalf("unexpected base rate price %s", got)
	}
}

func TestShippingQuote_WireFormatAndBasePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "packages omitted", body: `{"zip_code":"1428"}`},
		{name: "empty packages", body: `{"zip_code":"1428","packages":[]}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newQuoteHandlers(nil)
			req := httptest.NewRequest(http.MethodPost, "/shipping/quote", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ShippingQuote(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
			}

			var resp struct {
				Rates []map[string]any `json:"rates"`
			}
			dec := json.NewDecoder(rec.Body)
			dec.UseNumber()
			if err := dec.Decode(&resp); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if len(resp.Rates) != 3 {
				t.Fatalf("expected 3 rates, got %d", len(resp.Rates))
			}
			for _, key := range []string{"correo", "servicio", "precio", "horas_min", "horas_max"} {
				if _, ok := resp.Rates[0][key]; !ok {
					t.Fatalf("rate is missing %q: %v", key, resp.Rates[0])
				}
			}
			if _, ok := resp.Rates[0]["price"]; ok {
				t.Fatalf("rate carries an unexpected english key: %v", resp.Rates[0])
			}

			want := []string{"4500.00", "5400.00", "7200.00"}
			for i, rate := range resp.Rates {
				if got := fmt.Sprint(rate["precio"]); got != want[i] {
					t.Fatalf("rate %d: unexpected price %s want %s", i, got, want[i])
				}
			}
			if got := resp.Rates[0]["correo"]; got != "Correo Argentino" {
				t.Fatalf("unexpected carrier %v", got)
			}
		})
	}
}

func TestShippingQuote_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"zip_code":`},
		{name: "missing zip", body: `{"packages":[{"weight":1,"quantity":1}]}`},
		{name: "zero weight", body: `{"zip_code":"1000","packages":[{"weight":0,"quantity":1}]}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newQuoteHandlers(nil)
			req := httptest.NewRequest(http.MethodPost, "/shipping/quote", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ShippingQuote(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestShippingQuote_RateLimited(t *testing.T) {
	t.Parallel()

	h := newQuoteHandlers(rate.NewLimiter(rate.Limit(0.001), 1))
	body := `{"zip_code":"1000","packages":[{"weight":1,"quantity":1}]}`

	first := httptest.NewRecorder()
	h.ShippingQuote(first, httptest.NewRequest(http.MethodPost, "/shipping/quote", strings.NewReader(body)))
	if first.Code != http.StatusOK {
		t.Fatalf("unexpected status for first request: %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.ShippingQuote(second, httptest.NewRequest(http.MethodPost, "/shipping/quote", strings.NewReader(body)))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status for second request: got=%d want=%d", second.Code, http.StatusTooManyRequests)
	}
}

type failingPinger struct {
	err error
}

func (p failingPinger) Ping(context.Context) error {
	return p.err
}

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{name: "healthy", wantStatus: http.StatusOK},
		{name: "database down", pingErr: errors.New("dial tcp: refused"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandlers(&recordingReconciler{})
			h.db = failingPinger{err: tt.pingErr}

			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestPreflightAndCORS(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(&recordingReconciler{})

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	h.Preflight(next).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/shipping/quote", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "content-type") {
		t.Fatalf("unexpected allow headers %q", got)
	}

	rec = httptest.NewRecorder()
	h.SecurityHeaders(h.CORS(next)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected CORS origin header, got %q", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff header, got %q", got)
	}
}
