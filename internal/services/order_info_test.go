package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gitshopapp/orderhook/internal/models"
)

func TestBuildOrderInfo(t *testing.T) {
	t.Parallel()

	tracking := "360000999"
	order := &models.Order{
		ID:           uuid.MustParse("0b4f7c1e-9d2a-4d0e-8a57-1e9c2f3b4a5d"),
		Status:       models.StatusApproved,
		DeliveryType: models.DeliveryShip,
		PayerEmail:   " buyer@example.com ",
		TotalAmount:  decimal.RequireFromString("17000"),
		ShippingAddress: &models.Address{
			Name:         "Ana",
			StreetName:   "Av. Rivadavia",
			StreetNumber: "5000",
			City:         "Caballito",
			ZipCode:      "1424",
		},
		Items: []models.OrderItem{
			{ID: "1", Title: "Funda", Quantity: 2, Price: decimal.RequireFromString("8500"), SelectedSize: "Pro"},
		},
	}

	info := BuildOrderInfo(
		StoreInfo{Name: "MNL Tecno", URL: "https://shop.example.com/", SupportWhatsApp: "5491134272488"},
		OrderNotification{
			Order:            order,
			PaymentReference: "123",
			TrackingNumber:   &tracking,
			Carrier:          &models.CarrierSelection{Carrier: "andreani", Service: "ground"},
			Outcome:          OutcomeApproved,
		},
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	)

	if info.ShortID != "0B4F7C1E" {
		t.Fatalf("unexpected short id %q", info.ShortID)
	}
	if info.Total != "17000.00" || info.Items[0].UnitPrice != "8500.00" {
		t.Fatalf("unexpected amounts: total=%q item=%q", info.Total, info.Items[0].UnitPrice)
	}
	if info.TrackingURL != "https://www.andreani.com/#!/informacionEnvio/360000999" || info.CarrierName != "Andreani" {
		t.Fatalf("unexpected tracking data: %q %q", info.TrackingURL, info.CarrierName)
	}
	if info.AddressLine != "Av. Rivadavia 5000, Caballito (1424)" {
		t.Fatalf("unexpected address line %q", info.AddressLine)
	}
	if info.PayerEmail != "buyer@example.com" || info.Year != 2026 {
		t.Fatalf("unexpected payer/year: %q %d", info.PayerEmail, info.Year)
	}
	if info.ManualFollowURL == "" || info.SupportURL != "https://wa.me/5491134272488" {
		t.Fatalf("unexpected support links: %q %q", info.ManualFollowURL, info.SupportURL)
	}
}

func TestBuildOrderInfoIgnoresSentinel(t *testing.T) {
	t.Parallel()

	sentinel := models.TrackingInProgress
	info := BuildOrderInfo(StoreInfo{Name: "Shop"}, OrderNotification{
		Order:          &models.Order{ID: uuid.New(), DeliveryType: models.DeliveryShip},
		TrackingNumber: &sentinel,
		Outcome:        OutcomeApproved,
	}, time.Now())

	if info.TrackingNumber != "" || info.TrackingURL != "" {
		t.Fatalf("sentinel must not be shown as a tracking code: %+v", info)
	}
}
