package mercadopago

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitshopapp/orderhook/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, AccessToken: "APP_USR-test"}, nil)
	require.NoError(t, err)
	return client
}

func TestFetchPaymentApproved(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/123456", r.URL.Path)
		assert.Equal(t, "Bearer APP_USR-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 123456,
			"status": "approved",
			"status_detail": "accredited",
			"external_reference": "4b5d0d6e-3c55-4b4f-8f0c-2f0b8c0c9a11",
			"transaction_amount": 15999.5,
			"payer": {"email": "buyer@example.com", "identification": {"type": "DNI", "number": "30111222"}}
		}`))
	})

	payment, err := client.FetchPayment(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, "123456", payment.ID)
	assert.Equal(t, StatusApproved, payment.Status)
	assert.Equal(t, "4b5d0d6e-3c55-4b4f-8f0c-2f0b8c0c9a11", payment.ExternalReference)
	assert.Equal(t, "30111222", payment.PayerIdentification)
	assert.Equal(t, "buyer@example.com", payment.PayerEmail)
	assert.Equal(t, "15999.5", payment.TransactionAmount.String())
	assert.Equal(t, models.StatusApproved, payment.OrderStatus())
}

func TestFetchPaymentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"message":"Payment not found"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrPaymentNotFound)
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"message":"invalid access token"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   "upstream down",
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
				assert.Equal(t, "upstream down", apiErr.Body)
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{"id":`,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "failed to decode payment")
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			payment, err := client.FetchPayment(context.Background(), "42")
			require.Error(t, err)
			assert.Nil(t, payment)
			tt.check(t, err)
		})
	}
}

func TestFetchPaymentRequiresID(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("provider must not be called without an id")
	})

	_, err := client.FetchPayment(context.Background(), "  ")
	require.Error(t, err)
}

func TestNewClientRequiresToken(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, nil)
	require.Error(t, err)
}

func TestToOrderStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]models.OrderStatus{
		"approved":     models.StatusApproved,
		"APPROVED":     models.StatusApproved,
		"rejected":     models.StatusRejected,
		"cancelled":    models.StatusCancelled,
		"refunded":     models.StatusCancelled,
		"charged_back": models.StatusCancelled,
		"pending":      models.StatusPending,
		"in_process":   models.StatusPending,
		"authorized":   models.StatusPending,
		"in_mediation": models.StatusPending,
		"":             models.StatusPending,
		"something":    models.StatusPending,
	}

	for in, want := range tests {
		assert.Equal(t, want, ToOrderStatus(in), "status %q", in)
	}
}
