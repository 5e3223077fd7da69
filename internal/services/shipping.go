package services

import (
	"net/url"
	"strings"

	"github.com/gitshopapp/orderhook/internal/envia"
	"github.com/gitshopapp/orderhook/internal/models"
)

// ShipmentCarrier returns the carrier a ship order goes out with: the checkout
// selection resolved against the carrier registry, or the default carrier.
// Pickup orders have no carrier.
func ShipmentCarrier(order *models.Order) *models.CarrierSelection {
	if !order.NeedsShipment() {
		return nil
	}
	slug := ""
	if order.Carrier != nil {
		slug = order.Carrier.Carrier
	}
	carrier := envia.ResolveCarrier(slug)
	return &models.CarrierSelection{Carrier: carrier.Slug, Service: carrier.Service}
}

// CarrierDisplayName maps a stored carrier slug to the name shown to customers.
func CarrierDisplayName(slug string) string {
	if strings.TrimSpace(slug) == "" {
		return ""
	}
	return envia.ResolveCarrier(slug).DisplayName
}

// BuildTrackingURL returns the public tracking page for a label.
func BuildTrackingURL(carrierSlug, trackingNumber string) string {
	return envia.ResolveCarrier(carrierSlug).TrackingURL(trackingNumber)
}

// WhatsAppURL builds a wa.me link, optionally with a prefilled message.
// Returns empty when no number is configured.
func WhatsAppURL(number, message string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}
	link := "https://wa.me/" + digits
	if strings.TrimSpace(message) != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link
}
