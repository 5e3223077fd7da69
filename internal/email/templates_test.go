package email

import (
	"context"
	"strings"
	"testing"
)

func sampleInfo() *OrderInfo {
	return &OrderInfo{
		ShortID:          "0B4F7C1E",
		StoreName:        "MNL Tecno",
		StoreURL:         "https://shop.example.com/",
		PaymentReference: "123456",
		PayerEmail:       "buyer@example.com",
		RecipientName:    "Ana <Admin>",
		AddressLine:      "Av. Rivadavia 5000, Caballito (1424)",
		SupportURL:       "https://wa.me/5491100000000",
		Items: []OrderItem{
			{Title: "Funda iPhone 15", Size: "Pro", Quantity: 2, UnitPrice: "8500.00"},
		},
		Total: "17000.00",
		Year:  2026,
	}
}

func TestRenderApprovedWithTracking(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	info := sampleInfo()
	info.TrackingNumber = "CA123AR"
	info.TrackingURL = "https://envia.com/rastreo?label=CA123AR&cntry_code=ar"
	info.CarrierName = "Correo Argentino"

	msg, err := renderer.Render(context.Background(), TemplateApprovedWithTracking, info)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if msg.Subject != "Tu pedido #0B4F7C1E está en camino 🚀" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	for _, want := range []string{"CA123AR", "Seguir Envío (Correo Argentino)", "Funda iPhone 15", "$17000.00"} {
		if !strings.Contains(msg.HTML, want) {
			t.Fatalf("HTML missing %q", want)
		}
	}
	if !strings.Contains(msg.Text, "Código de seguimiento: CA123AR") {
		t.Fatalf("text body missing tracking code: %q", msg.Text)
	}
}

func TestRenderApprovedManualAndRejectedSubjects(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	tests := []struct {
		template string
		subject  string
		body     string
	}{
		{template: TemplateApprovedManual, subject: "Confirmación de Pedido #0B4F7C1E (Acción Requerida)", body: "Contactar Ahora"},
		{template: TemplateRejected, subject: "Problema con tu pago en MNL Tecno", body: "Intentar Nuevamente"},
		{template: TemplateAdminSale, subject: "[VENTA] $17000.00 - buyer@example.com", body: "NO GENERADO"},
	}

	for _, tt := range tests {
		info := sampleInfo()
		info.ManualFollowURL = "https://wa.me/5491100000000?text=hola"

		msg, err := renderer.Render(context.Background(), tt.template, info)
		if err != nil {
			t.Fatalf("Render(%s) error = %v", tt.template, err)
		}
		if msg.Subject != tt.subject {
			t.Fatalf("Render(%s) subject = %q, want %q", tt.template, msg.Subject, tt.subject)
		}
		if !strings.Contains(msg.HTML, tt.body) {
			t.Fatalf("Render(%s) HTML missing %q", tt.template, tt.body)
		}
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	msg, err := renderer.Render(context.Background(), TemplateAdminSale, sampleInfo())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(msg.HTML, "<Admin>") {
		t.Fatal("expected recipient name to be escaped")
	}
	if !strings.Contains(msg.HTML, "Ana &lt;Admin&gt;") {
		t.Fatalf("escaped name not found in HTML")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	if _, err := renderer.Render(context.Background(), "missing", sampleInfo()); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestNewProviderWithoutKeyLogsOnly(t *testing.T) {
	t.Parallel()

	provider, err := NewProvider(Config{}, nil)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if _, ok := provider.(*LogProvider); !ok {
		t.Fatalf("expected LogProvider, got %T", provider)
	}
	if err := provider.SendEmail(context.Background(), &Email{To: "a@example.com", Subject: "s", Text: "t"}); err != nil {
		t.Fatalf("SendEmail() error = %v", err)
	}

	if _, err := NewProvider(Config{APIKey: "re_123"}, nil); err == nil {
		t.Fatal("expected error when sender is missing")
	}
}
