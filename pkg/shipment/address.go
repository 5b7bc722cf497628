package shipment

import (
	"strings"
)

// Address represents a sender, receiver, or importer-of-record address.
type Address struct {
	Name             string
	Company          string
	Street           string
	HouseNumber      string
	City             string
	Zip              string
	CountryCode      string // ISO 3166-1 alpha-2, e.g. "DE", "CA"
	StateCode        string // ISO 3166-2 subdivision, e.g. "ON", "BY"
	Phone            string
	Email            string
	CustomsReference string
}

// Normalized returns a copy with every field trimmed of surrounding
// whitespace. Blueprint assembly and carrier adapters read addresses
// through this.
func (a Address) Normalized() Address {
	return Address{
		Name:             strings.TrimSpace(a.Name),
		Company:          strings.TrimSpace(a.Company),
		Street:           strings.TrimSpace(a.Street),
		HouseNumber:      strings.TrimSpace(a.HouseNumber),
		City:             strings.TrimSpace(a.City),
		Zip:              strings.TrimSpace(a.Zip),
		CountryCode:      strings.TrimSpace(a.CountryCode),
		StateCode:        strings.TrimSpace(a.StateCode),
		Phone:            strings.TrimSpace(a.Phone),
		Email:            strings.TrimSpace(a.Email),
		CustomsReference: strings.TrimSpace(a.CustomsReference),
	}
}

// Country resolves the country code. Returns ErrNoCountry when no code is
// set; resolution of a present code is validated lazily against the ISO
// table.
func (a Address) Country() (Country, error) {
	code := strings.TrimSpace(a.CountryCode)
	if code == "" {
		return Country{}, ErrNoCountry
	}
	return NewCountry(code)
}

// WithoutContactInfo returns a privacy-redacted copy with phone and email
// cleared.
func (a Address) WithoutContactInfo() Address {
	redacted := a
	redacted.Phone = ""
	redacted.Email = ""
	return redacted
}

// IsEmpty reports whether no field is set.
func (a Address) IsEmpty() bool {
	return a == Address{}
}
