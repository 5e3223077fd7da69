package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gitshopapp/orderhook/internal/email"
	"github.com/gitshopapp/orderhook/internal/models"
)

// StoreInfo is the storefront identity shown in notifications.
type StoreInfo struct {
	Name            string
	URL             string
	SupportWhatsApp string
}

// BuildOrderInfo builds the template data for a notification.
func BuildOrderInfo(store StoreInfo, note OrderNotification, now time.Time) *email.OrderInfo {
	order := note.Order
	info := &email.OrderInfo{
		StoreName:        store.Name,
		StoreURL:         store.URL,
		PaymentReference: note.PaymentReference,
		SupportURL:       WhatsAppURL(store.SupportWhatsApp, ""),
		Year:             now.Year(),
	}
	if order == nil {
		return info
	}

	info.ShortID = order.ShortID()
	info.PayerEmail = strings.TrimSpace(order.PayerEmail)
	if info.PaymentReference == "" {
		info.PaymentReference = order.PaymentReference
	}
	info.Total = formatAmount(order.TotalAmount)
	info.ManualFollowURL = WhatsAppURL(store.SupportWhatsApp, fmt.Sprintf(
		"Hola, mi pedido %s fue aprobado y necesito info del envio.", info.ShortID))

	if addr := order.ShippingAddress; addr != nil && order.NeedsShipment() {
		info.RecipientName = strings.TrimSpace(addr.Name)
		info.AddressLine = formatAddress(addr)
	}

	if code := note.trackingCode(); code != "" {
		slug := ""
		if note.Carrier != nil {
			slug = note.Carrier.Carrier
		}
		info.TrackingNumber = code
		info.TrackingURL = BuildTrackingURL(slug, code)
		info.CarrierName = CarrierDisplayName(slug)
		if info.CarrierName == "" {
			info.CarrierName = CarrierDisplayName("correoArgentino")
		}
	}

	info.Items = make([]email.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		info.Items = append(info.Items, email.OrderItem{
			Title:     strings.TrimSpace(item.Title),
			Size:      strings.TrimSpace(item.SelectedSize),
			Quantity:  item.Quantity,
			UnitPrice: formatAmount(item.Price),
		})
	}
	return info
}

func formatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

func formatAddress(addr *models.Address) string {
	street := strings.TrimSpace(strings.Join([]string{addr.StreetName, addr.StreetNumber}, " "))
	parts := make([]string, 0, 2)
	if street != "" {
		parts = append(parts, street)
	}
	if city := strings.TrimSpace(addr.City); city != "" {
		parts = append(parts, city)
	}
	line := strings.Join(parts, ", ")
	if zip := strings.TrimSpace(addr.ZipCode); zip != "" {
		line = strings.TrimSpace(line + " (" + zip + ")")
	}
	return line
}
