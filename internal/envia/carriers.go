package envia

import (
	"net/url"
	"strings"
)

const (
	CarrierCorreoArgentino = "correoArgentino"
	CarrierAndreani        = "andreani"
)

type Carrier struct {
	Slug        string
	Service     string
	DisplayName string
	trackingURL string
}

// TrackingURL returns the public tracking page for code. Carriers without
// their own page fall back to the Envia tracker.
func (c Carrier) TrackingURL(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if c.trackingURL != "" {
		return c.trackingURL + url.PathEscape(code)
	}
	return "https://envia.com/rastreo?label=" + url.QueryEscape(code) + "&cntry_code=ar"
}

var carriers = map[string]Carrier{
	CarrierCorreoArgentino: {
		Slug:        CarrierCorreoArgentino,
		Service:     "standard_dom",
		DisplayName: "Correo Argentino",
	},
	CarrierAndreani: {
		Slug:        CarrierAndreani,
		Service:     "ground",
		DisplayName: "Andreani",
		trackingURL: "https://www.andreani.com/#!/informacionEnvio/",
	},
}

// ResolveCarrier maps whatever slug checkout stored onto a registered carrier.
// Anything mentioning Andreani ships with Andreani; everything else, including
// an empty slug, ships with Correo Argentino.
func ResolveCarrier(slug string) Carrier {
	normalized := strings.ToLower(strings.TrimSpace(slug))
	if strings.Contains(normalized, CarrierAndreani) {
		return carriers[CarrierAndreani]
	}
	return carriers[CarrierCorreoArgentino]
}

func DefaultCarrier() Carrier {
	return carriers[CarrierCorreoArgentino]
}
