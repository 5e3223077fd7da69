package envia

import "strings"

const (
	RegionCapital  = "C"
	RegionProvince = "B"
)

// RegionMapper turns free-form province names into the region codes each
// carrier expects. Names are first reduced to a canonical code, then
// translated per carrier.
type RegionMapper struct {
	capitalMarkers []string
	fallback       string
	carrierCodes   map[string]map[string]string
}

func DefaultRegionMapper() RegionMapper {
	return RegionMapper{
		capitalMarkers: []string{"capital", "caba", "autonoma", "autónoma"},
		fallback:       RegionProvince,
		carrierCodes: map[string]map[string]string{
			CarrierCorreoArgentino: {
				RegionCapital:  "DF",
				RegionProvince: "BA",
			},
		},
	}
}

// Canonical maps a province name to C (federal capital) or B (everything else).
// A value that already is a canonical code is returned as is.
func (m RegionMapper) Canonical(region string) string {
	trimmed := strings.TrimSpace(region)
	switch trimmed {
	case RegionCapital, RegionProvince:
		return trimmed
	case "":
		return m.fallback
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range m.capitalMarkers {
		if strings.Contains(lower, marker) {
			return RegionCapital
		}
	}
	return m.fallback
}

// ForCarrier translates a canonical code into the carrier's own code. Carriers
// without a table, and codes missing from one, pass through unchanged.
func (m RegionMapper) ForCarrier(carrier, canonical string) string {
	if codes, ok := m.carrierCodes[carrier]; ok {
		if code, ok := codes[canonical]; ok {
			return code
		}
	}
	return canonical
}

// Resolve is Canonical followed by ForCarrier.
func (m RegionMapper) Resolve(carrier, region string) string {
	return m.ForCarrier(carrier, m.Canonical(region))
}
