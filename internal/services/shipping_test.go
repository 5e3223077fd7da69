package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/gitshopapp/orderhook/internal/models"
)

func TestShipmentCarrier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		order       *models.Order
		wantCarrier string
		wantService string
		wantNil     bool
	}{
		{
			name:    "pickup has no carrier",
			order:   &models.Order{ID: uuid.New(), DeliveryType: models.DeliveryPickup},
			wantNil: true,
		},
		{
			name:        "ship without selection defaults to correo",
			order:       &models.Order{ID: uuid.New(), DeliveryType: models.DeliveryShip},
			wantCarrier: "correoArgentino",
			wantService: "standard_dom",
		},
		{
			name: "andreani selection",
			order: &models.Order{
				ID:           uuid.New(),
				DeliveryType: models.DeliveryShip,
				Carrier:      &models.CarrierSelection{Carrier: "andreani", Service: "urgente"},
			},
			wantCarrier: "andreani",
			wantService: "ground",
		},
		{
			name: "legacy slug normalizes to correo",
			order: &models.Order{
				ID:           uuid.New(),
				DeliveryType: models.DeliveryShip,
				Carrier:      &models.CarrierSelection{Carrier: "correo-argentino"},
			},
			wantCarrier: "correoArgentino",
			wantService: "standard_dom",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ShipmentCarrier(tc.order)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("expected nil carrier, got %+v", got)
				}
				return
			}
			if got == nil || got.Carrier != tc.wantCarrier || got.Service != tc.wantService {
				t.Fatalf("ShipmentCarrier() = %+v, want %s/%s", got, tc.wantCarrier, tc.wantService)
			}
		})
	}
}

func TestBuildTrackingURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		carrier  string
		tracking string
		want     string
	}{
		{name: "andreani", carrier: "andreani", tracking: "360000123", want: "https://www.andreani.com/#!/informacionEnvio/360000123"},
		{name: "correo uses envia tracker", carrier: "correoArgentino", tracking: "CA1 2", want: "https://envia.com/rastreo?label=CA1+2&cntry_code=ar"},
		{name: "empty tracking", carrier: "andreani", tracking: "", want: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := BuildTrackingURL(tc.carrier, tc.tracking); got != tc.want {
				t.Fatalf("BuildTrackingURL() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWhatsAppURL(t *testing.T) {
	t.Parallel()

	if got := WhatsAppURL("+54 9 11 3427-2488", ""); got != "https://wa.me/5491134272488" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := WhatsAppURL("5491134272488", "Hola, pedido ABC"); got != "https://wa.me/5491134272488?text=Hola%2C+pedido+ABC" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := WhatsAppURL("", "hola"); got != "" {
		t.Fatalf("expected empty url, got %q", got)
	}
	if got := CarrierDisplayName("andreani"); got != "Andreani" {
		t.Fatalf("unexpected display name %q", got)
	}
	if got := CarrierDisplayName(""); got != "" {
		t.Fatalf("expected empty display name, got %q", got)
	}
}
