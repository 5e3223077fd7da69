package envia

import (
	"strings"

	"github.com/gitshopapp/orderhook/internal/models"
)

// Recipient is the destination of a label as known from the order.
type Recipient struct {
	Name           string
	Email          string
	Phone          string
	Street         string
	Number         string
	City           string
	Region         string
	PostalCode     string
	Identification string
}

type ShipmentRequest struct {
	OrderID   string
	Carrier   Carrier
	Recipient Recipient
}

// NewShipmentRequest describes the label for order. The carrier comes from the
// order's checkout selection, resolved against the registry.
func NewShipmentRequest(order *models.Order, payerIdentification string) ShipmentRequest {
	req := ShipmentRequest{Carrier: DefaultCarrier()}
	if order == nil {
		return req
	}

	req.OrderID = order.ID.String()
	if order.Carrier != nil {
		req.Carrier = ResolveCarrier(order.Carrier.Carrier)
	}

	recipient := Recipient{
		Email:          strings.TrimSpace(order.PayerEmail),
		Identification: strings.TrimSpace(payerIdentification),
	}
	if addr := order.ShippingAddress; addr != nil {
		recipient.Name = strings.TrimSpace(addr.Name)
		recipient.Phone = strings.TrimSpace(addr.Phone)
		recipient.Street = strings.TrimSpace(addr.StreetName)
		recipient.Number = strings.TrimSpace(addr.StreetNumber)
		recipient.City = strings.TrimSpace(addr.City)
		recipient.Region = strings.TrimSpace(addr.State)
		recipient.PostalCode = strings.TrimSpace(addr.ZipCode)
	}
	if recipient.Name == "" && recipient.Email != "" {
		recipient.Name, _, _ = strings.Cut(recipient.Email, "@")
	}
	req.Recipient = recipient
	return req
}

type generateRequest struct {
	Origin      Party         `json:"origin"`
	Destination destination   `json:"destination"`
	Packages    []Parcel      `json:"packages"`
	Shipment    shipment      `json:"shipment"`
	Settings    LabelSettings `json:"settings"`
}

type destination struct {
	Party
	IdentificationNumber string `json:"identification_number,omitempty"`
}

type shipment struct {
	Carrier string `json:"carrier"`
	Service string `json:"service"`
	Type    int    `json:"type"`
}

func buildGenerateRequest(profile ShipmentProfile, regions RegionMapper, req ShipmentRequest) generateRequest {
	carrier := req.Carrier
	if carrier.Slug == "" {
		carrier = DefaultCarrier()
	}
	defaults := profile.Destination
	r := req.Recipient

	origin := profile.Origin
	origin.State = regions.Resolve(carrier.Slug, origin.State)

	city := orDefault(r.City, defaults.City)
	dest := destination{
		Party: Party{
			Name:       orDefault(r.Name, defaults.Name),
			Email:      r.Email,
			Phone:      orDefault(r.Phone, defaults.Phone),
			Street:     orDefault(r.Street, defaults.Street),
			Number:     orDefault(r.Number, defaults.Number),
			District:   city,
			City:       city,
			State:      regions.Resolve(carrier.Slug, orDefault(r.Region, defaults.Region)),
			Country:    orDefault(defaults.Country, "AR"),
			PostalCode: orDefault(r.PostalCode, defaults.PostalCode),
		},
		IdentificationNumber: orDefault(r.Identification, defaults.Identification),
	}

	return generateRequest{
		Origin:      origin,
		Destination: dest,
		Packages:    []Parcel{profile.Parcel},
		Shipment:    shipment{Carrier: carrier.Slug, Service: carrier.Service, Type: 1},
		Settings:    profile.Settings,
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
