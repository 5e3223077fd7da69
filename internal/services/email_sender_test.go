package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitshopapp/orderhook/internal/cache"
	"github.com/gitshopapp/orderhook/internal/email"
	"github.com/gitshopapp/orderhook/internal/models"
)

type recordingEmailProvider struct {
	mu     sync.Mutex
	sent   []*email.Email
	failTo string
}

func (p *recordingEmailProvider) SendEmail(_ context.Context, msg *email.Email) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failTo != "" && msg.To == p.failTo {
		return errors.New("provider rejected message")
	}
	p.sent = append(p.sent, msg)
	return nil
}

func (p *recordingEmailProvider) ValidateAPIKey(context.Context) error {
	return nil
}

func (p *recordingEmailProvider) byRecipient() map[string]*email.Email {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]*email.Email, len(p.sent))
	for _, msg := range p.sent {
		out[msg.To] = msg
	}
	return out
}

func (p *recordingEmailProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func newTestNotifier(t *testing.T, provider email.Provider) *EmailNotifier {
	t.Helper()

	sent, err := cache.NewMemoryProvider(100)
	require.NoError(t, err)

	notifier, err := NewEmailNotifier(provider, sent, EmailNotifierConfig{
		Store:      StoreInfo{Name: "MNL Tecno", URL: "https://shop.example.com/", SupportWhatsApp: "5491100000000"},
		AdminEmail: "admin@example.com",
		AdminFrom:  "Ventas <ventas@example.com>",
	}, nil)
	require.NoError(t, err)
	return notifier
}

func notificationOrder() *models.Order {
	return &models.Order{
		ID:           uuid.MustParse("8f14e45f-ceea-467f-a0e6-0c0f2b1d9a11"),
		Status:       models.StatusApproved,
		DeliveryType: models.DeliveryShip,
		PayerEmail:   "buyer@example.com",
		TotalAmount:  decimal.RequireFromString("15000"),
		ShippingAddress: &models.Address{
			Name:         "Ana Pérez",
			StreetName:   "Av. Corrientes",
			StreetNumber: "1234",
			City:         "Buenos Aires",
			State:        "CABA",
			ZipCode:      "1043",
		},
		Items: []models.OrderItem{{ID: "1", Title: "iPhone 13", Quantity: 1, Price: decimal.RequireFromString("15000")}},
	}
}

func TestEmailNotifierApprovedWithTracking(t *testing.T) {
	t.Parallel()

	provider := &recordingEmailProvider{}
	notifier := newTestNotifier(t, provider)
	code := "CA123456789AR"

	err := notifier.Notify(context.Background(), OrderNotification{
		Order:            notificationOrder(),
		PaymentReference: "9001",
		TrackingNumber:   &code,
		Carrier:          &models.CarrierSelection{Carrier: "correoArgentino", Service: "standard_dom"},
		Outcome:          OutcomeApproved,
	})
	require.NoError(t, err)

	sent := provider.byRecipient()
	require.Len(t, sent, 2)

	client := sent["buyer@example.com"]
	require.NotNil(t, client)
	assert.Equal(t, "Tu pedido #8F14E45F está en camino 🚀", client.Subject)
	assert.Contains(t, client.HTML, code)
	assert.Contains(t, client.Text, code)
	assert.Empty(t, client.From)

	admin := sent["admin@example.com"]
	require.NotNil(t, admin)
	assert.True(t, strings.HasPrefix(admin.Subject, "[VENTA] $"))
	assert.Contains(t, admin.Subject, "buyer@example.com")
	assert.Equal(t, "Ventas <ventas@example.com>", admin.From)
}

func TestEmailNotifierApprovedWithoutTrackingAsksForContact(t *testing.T) {
	t.Parallel()

	provider := &recordingEmailProvider{}
	notifier := newTestNotifier(t, provider)

	err := notifier.Notify(context.Background(), OrderNotification{
		Order:   notificationOrder(),
		Outcome: OutcomeApproved,
	})
	require.NoError(t, err)

	client := provider.byRecipient()["buyer@example.com"]
	require.NotNil(t, client)
	assert.Equal(t, "Confirmación de Pedido #8F14E45F (Acción Requerida)", client.Subject)
}

func TestEmailNotifierRejectedSkipsAdmin(t *testing.T) {
	t.Parallel()

	provider := &recordingEmailProvider{}
	notifier := newTestNotifier(t, provider)

	order := notificationOrder()
	order.Status = models.StatusRejected
	err := notifier.Notify(context.Background(), OrderNotification{Order: order, Outcome: OutcomeRejected})
	require.NoError(t, err)

	sent := provider.byRecipient()
	require.Len(t, sent, 1)
	assert.Equal(t, "Problema con tu pago en MNL Tecno", sent["buyer@example.com"].Subject)
}

func TestEmailNotifierDeduplicatesDeliveries(t *testing.T) {
	t.Parallel()

	provider := &recordingEmailProvider{}
	notifier := newTestNotifier(t, provider)
	order := notificationOrder()
	code := "CA1"

	note := OrderNotification{Order: order, TrackingNumber: &code, Outcome: OutcomeApproved}
	require.NoError(t, notifier.Notify(context.Background(), note))
	require.NoError(t, notifier.Notify(context.Background(), note))
	assert.Equal(t, 2, provider.count())

	// A new tracking code is a different notification.
	other := "CA2"
	note.TrackingNumber = &other
	require.NoError(t, notifier.Notify(context.Background(), note))
	assert.Equal(t, 4, provider.count())
}

func TestEmailNotifierRetriesOnlyFailedAudience(t *testing.T) {
	t.Parallel()

	provider := &recordingEmailProvider{failTo: "admin@example.com"}
	notifier := newTestNotifier(t, provider)
	note := OrderNotification{Order: notificationOrder(), Outcome: OutcomeApproved}

	err := notifier.Notify(context.Background(), note)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin")
	assert.Equal(t, 1, provider.count())

	provider.mu.Lock()
	provider.failTo = ""
	provider.mu.Unlock()

	require.NoError(t, notifier.Notify(context.Background(), note))
	sent := provider.byRecipient()
	assert.Equal(t, 2, provider.count())
	assert.NotNil(t, sent["admin@example.com"])
}

func TestEmailNotifierWithoutPayerEmail(t *testing.T) {
	t.Parallel()

	provider := &recordingEmailProvider{}
	notifier := newTestNotifier(t, provider)

	order := notificationOrder()
	order.PayerEmail = ""
	require.NoError(t, notifier.Notify(context.Background(), OrderNotification{Order: order, Outcome: OutcomeRejected}))
	assert.Zero(t, provider.count())
}

func TestNewEmailNotifierRequiresProvider(t *testing.T) {
	t.Parallel()

	_, err := NewEmailNotifier(nil, nil, EmailNotifierConfig{}, nil)
	require.Error(t, err)
}
