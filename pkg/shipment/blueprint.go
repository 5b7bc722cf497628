package shipment

import (
	"fmt"
	"time"
)

// ShipmentConfig is the free-form carrier configuration blob attached to a
// blueprint and carried into adapter calls.
type ShipmentConfig map[string]any

// Clone returns a shallow copy of the configuration map.
func (c ShipmentConfig) Clone() ShipmentConfig {
	if c == nil {
		return nil
	}
	out := make(ShipmentConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// CustomsInfo holds the customs declaration fields of a blueprint.
type CustomsInfo struct {
	TypeOfShipment    string
	InvoiceNumber     string
	InvoiceDate       string // YYYY-MM-DD
	PermitNumber      string
	CertificateNumber string
	OfficeOfOrigin    string
	Comment           string
}

// Validate checks the invoice date format when one is set.
func (c CustomsInfo) Validate() error {
	if c.InvoiceDate == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", c.InvoiceDate); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidInvoiceDate, c.InvoiceDate)
	}
	return nil
}

// ShipmentBlueprint is an unpersisted, fully-resolved description of a
// shipment ready to be registered with a carrier. It is a value type:
// mutation happens through copy-with methods, never in place.
type ShipmentBlueprint struct {
	Sender                  Address
	Receiver                Address
	Parcels                 []Parcel
	CarrierName             string // empty until a carrier is resolved
	Config                  ShipmentConfig
	CustomerReference       string
	Customs                 CustomsInfo
	Fees                    []Fee
	ImporterOfRecord        *Address
	MovementReferenceNumber string
	EnclosedReturnLabel     bool
	IsReturn                bool
}

// CarrierSelected reports whether a carrier has been resolved.
func (b ShipmentBlueprint) CarrierSelected() bool {
	return b.CarrierName != ""
}

// WithCarrier returns a copy with the carrier and its shipment
// configuration assigned.
func (b ShipmentBlueprint) WithCarrier(name string, cfg ShipmentConfig) ShipmentBlueprint {
	out := b.copy()
	out.CarrierName = name
	out.Config = cfg.Clone()
	return out
}

// WithConfig returns a copy with a replaced shipment configuration.
func (b ShipmentBlueprint) WithConfig(cfg ShipmentConfig) ShipmentBlueprint {
	out := b.copy()
	out.Config = cfg.Clone()
	return out
}

// WithParcels returns a copy with replaced parcels.
func (b ShipmentBlueprint) WithParcels(parcels []Parcel) ShipmentBlueprint {
	out := b.copy()
	out.Parcels = cloneParcels(parcels)
	return out
}

// WithFee returns a copy with an additional fee.
func (b ShipmentBlueprint) WithFee(f Fee) ShipmentBlueprint {
	out := b.copy()
	out.Fees = append(out.Fees, f)
	return out
}

// WithCustoms returns a copy with replaced customs fields.
func (b ShipmentBlueprint) WithCustoms(c CustomsInfo) ShipmentBlueprint {
	out := b.copy()
	out.Customs = c
	return out
}

// WithSwappedAddresses returns a copy with sender and receiver exchanged.
// Used when deriving a return blueprint from forward-resolved addresses.
func (b ShipmentBlueprint) WithSwappedAddresses() ShipmentBlueprint {
	out := b.copy()
	out.Sender, out.Receiver = b.Receiver, b.Sender
	return out
}

// TotalValue computes the total declared value: sum of fees plus the
// declared value of every parcel. The result is nil when any parcel item is
// missing a customs value; mixed currencies fail loudly.
func (b ShipmentBlueprint) TotalValue() (*Money, error) {
	total, err := SumFees(b.Fees)
	if err != nil {
		return nil, err
	}
	for _, p := range b.Parcels {
		value, err := p.DeclaredValue()
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, nil
		}
		total, err = total.Add(*value)
		if err != nil {
			return nil, err
		}
	}
	return &total, nil
}

// FeesByType groups the blueprint fees by type.
func (b ShipmentBlueprint) FeesByType() map[FeeType][]Fee {
	return GroupFeesByType(b.Fees)
}

// Validate checks blueprint invariants that do not require collaborators.
func (b ShipmentBlueprint) Validate() error {
	if err := b.Customs.Validate(); err != nil {
		return err
	}
	for _, a := range []Address{b.Sender, b.Receiver} {
		if a.CountryCode == "" {
			continue
		}
		if _, err := a.Country(); err != nil {
			return err
		}
	}
	return nil
}

func (b ShipmentBlueprint) copy() ShipmentBlueprint {
	out := b
	out.Parcels = cloneParcels(b.Parcels)
	out.Fees = append([]Fee(nil), b.Fees...)
	out.Config = b.Config.Clone()
	if b.ImporterOfRecord != nil {
		ior := *b.ImporterOfRecord
		out.ImporterOfRecord = &ior
	}
	return out
}
