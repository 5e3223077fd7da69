package envia

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ShipmentProfile holds everything about a label that does not depend on the
// order: who ships, from where, what the parcel looks like and how the label is
// printed. It also carries the quote table used for checkout estimates.
type ShipmentProfile struct {
	Origin      Party               `yaml:"origin"`
	Parcel      Parcel              `yaml:"parcel"`
	Settings    LabelSettings       `yaml:"settings"`
	Destination DestinationDefaults `yaml:"destination_defaults"`
	Quote       QuoteTable          `yaml:"quote"`
}

type Party struct {
	Name       string `yaml:"name" json:"name"`
	Company    string `yaml:"company" json:"company,omitempty"`
	Email      string `yaml:"email" json:"email,omitempty"`
	Phone      string `yaml:"phone" json:"phone"`
	Street     string `yaml:"street" json:"street"`
	Number     string `yaml:"number" json:"number"`
	District   string `yaml:"district" json:"district,omitempty"`
	City       string `yaml:"city" json:"city"`
	State      string `yaml:"state" json:"state"`
	Country    string `yaml:"country" json:"country"`
	PostalCode string `yaml:"postal_code" json:"postalCode"`
}

type Dimensions struct {
	Length float64 `yaml:"length" json:"length"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

type Parcel struct {
	Content    string     `yaml:"content" json:"content"`
	Amount     int        `yaml:"amount" json:"amount"`
	Type       string     `yaml:"type" json:"type"`
	Dimensions Dimensions `yaml:"dimensions" json:"dimensions"`
	Weight     float64    `yaml:"weight" json:"weight"`
	WeightUnit string     `yaml:"weight_unit" json:"weightUnit"`
	LengthUnit string     `yaml:"length_unit" json:"lengthUnit"`
}

type LabelSettings struct {
	Currency    string `yaml:"currency" json:"currency"`
	LabelFormat string `yaml:"label_format" json:"labelFormat"`
	PrintFormat string `yaml:"print_format" json:"printFormat"`
	PrintSize   string `yaml:"print_size" json:"printSize"`
}

// DestinationDefaults fill destination fields the order does not carry.
type DestinationDefaults struct {
	Name           string `yaml:"name"`
	Phone          string `yaml:"phone"`
	Street         string `yaml:"street"`
	Number         string `yaml:"number"`
	City           string `yaml:"city"`
	Region         string `yaml:"region"`
	PostalCode     string `yaml:"postal_code"`
	Country        string `yaml:"country"`
	Identification string `yaml:"identification"`
}

type QuoteTable struct {
	BasePrice  float64     `yaml:"base_price"`
	PricePerKg float64     `yaml:"price_per_kg"`
	Rates      []QuoteRate `yaml:"rates"`
}

type QuoteRate struct {
	Carrier    string  `yaml:"carrier"`
	Service    string  `yaml:"service"`
	Multiplier float64 `yaml:"multiplier"`
	HoursMin   int     `yaml:"hours_min"`
	HoursMax   int     `yaml:"hours_max"`
}

func DefaultShipmentProfile() ShipmentProfile {
	return ShipmentProfile{
		Origin: Party{
			Name:       "Manuel Navarro",
			Company:    "MNL Tecno",
			Email:      "manunv97@gmail.com",
			Phone:      "5491134272488",
			Street:     "Av. Cabildo",
			Number:     "2040",
			District:   "Belgrano",
			City:       "Ciudad Autónoma de Buenos Aires",
			State:      RegionCapital,
			Country:    "AR",
			PostalCode: "1428",
		},
		Parcel: Parcel{
			Content:    "Accesorios",
			Amount:     1,
			Type:       "box",
			Dimensions: Dimensions{Length: 15, Width: 10, Height: 5},
			Weight:     0.5,
			WeightUnit: "KG",
			LengthUnit: "CM",
		},
		Settings: LabelSettings{
			Currency:    "ARS",
			LabelFormat: "pdf",
			PrintFormat: "PDF",
			PrintSize:   "PAPER_8.5X11",
		},
		Destination: DestinationDefaults{
			Name:       "Cliente",
			Phone:      "5491155556666",
			Street:     "Calle",
			Number:     "0",
			City:       "Buenos Aires",
			Region:     "Buenos Aires",
			PostalCode: "1000",
			Country:    "AR",
		},
		Quote: QuoteTable{
			BasePrice:  4500,
			PricePerKg: 500,
			Rates: []QuoteRate{
				{Carrier: "Correo Argentino", Service: "Clásico a Domicilio", Multiplier: 1.0, HoursMin: 72, HoursMax: 144},
				{Carrier: "Andreani", Service: "Estándar", Multiplier: 1.2, HoursMin: 48, HoursMax: 96},
				{Carrier: "Andreani", Service: "Urgente", Multiplier: 1.6, HoursMin: 24, HoursMax: 48},
			},
		},
	}
}

// LoadShipmentProfile reads a YAML profile from path. Fields left out of the
// file keep their default values. An empty path returns the defaults.
func LoadShipmentProfile(path string) (ShipmentProfile, error) {
	profile := DefaultShipmentProfile()
	path = strings.TrimSpace(path)
	if path == "" {
		return profile, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return ShipmentProfile{}, fmt.Errorf("failed to read shipment profile: %w", err)
	}
	return ParseShipmentProfile(content)
}

func ParseShipmentProfile(content []byte) (ShipmentProfile, error) {
	profile := DefaultShipmentProfile()
	if err := yaml.Unmarshal(content, &profile); err != nil {
		return ShipmentProfile{}, fmt.Errorf("failed to parse shipment profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return ShipmentProfile{}, err
	}
	return profile, nil
}

func (p ShipmentProfile) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Origin.Street) == "" || strings.TrimSpace(p.Origin.PostalCode) == "" {
		errs = append(errs, errors.New("origin street and postal_code are required"))
	}
	if strings.TrimSpace(p.Origin.Country) == "" {
		errs = append(errs, errors.New("origin country is required"))
	}
	if p.Parcel.Weight <= 0 {
		errs = append(errs, errors.New("parcel weight must be positive"))
	}
	if p.Parcel.Amount < 1 {
		errs = append(errs, errors.New("parcel amount must be at least 1"))
	}
	if p.Quote.BasePrice < 0 || p.Quote.PricePerKg < 0 {
		errs = append(errs, errors.New("quote prices cannot be negative"))
	}
	for i, rate := range p.Quote.Rates {
		if rate.Multiplier <= 0 {
			errs = append(errs, fmt.Errorf("quote rate %d: multiplier must be positive", i))
		}
		if rate.HoursMin > rate.HoursMax {
			errs = append(errs, fmt.Errorf("quote rate %d: hours_min exceeds hours_max", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid shipment profile: %w", errors.Join(errs...))
	}
	return nil
}
