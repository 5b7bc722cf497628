package shipment

import (
	"context"
)

// ProductFilter restricts which order items are hydrated into a parcel.
// A nil filter admits every item.
type ProductFilter func(item OrderItem) bool

// AddressCorrector normalizes or corrects a receiver address before it is
// assigned to a blueprint. External collaborator.
type AddressCorrector interface {
	Correct(ctx context.Context, a Address) (Address, error)
}

// PersonalDataRedactor removes personal data from an address and reports
// which fields were cleared. External collaborator.
type PersonalDataRedactor interface {
	Redact(ctx context.Context, a Address) (Address, []string, error)
}

// ParcelHydrator builds one parcel from an order. External collaborator.
type ParcelHydrator interface {
	Hydrate(ctx context.Context, order *Order, filter ProductFilter) (Parcel, error)
}

// ParcelPacker applies the carrier parcel-packing configuration. The
// bin-packing algorithm itself is an external capability.
type ParcelPacker interface {
	// Repack splits or rearranges parcels per the packing configuration.
	Repack(ctx context.Context, parcels []Parcel, cfg PackingConfig) ([]Parcel, error)

	// AdjustMetadata applies box default dimensions and filler weight
	// without volume-based splitting. Used when repacking is skipped.
	AdjustMetadata(ctx context.Context, parcels []Parcel, cfg PackingConfig) ([]Parcel, error)
}

// NotificationType tags business notifications emitted during blueprint
// creation.
type NotificationType string

const (
	NotificationParcelPackingSkipped NotificationType = "parcel-packing-skipped"
	NotificationCashOnDeliveryExists NotificationType = "cash-on-delivery-already-exists"
)

// Notification is a fire-and-forget business notification.
type Notification struct {
	Type    NotificationType
	OrderID string
	Message string
}

// Notifier emits business notifications. Emission failures must not fail
// the operation that triggered them.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// BlueprintObserver is notified after a blueprint has been built, before
// it is finalized into the creation result.
type BlueprintObserver interface {
	BlueprintCreated(ctx context.Context, orderID string, bp ShipmentBlueprint)
}

// NopAddressCorrector applies no correction beyond trimming.
type NopAddressCorrector struct{}

func (NopAddressCorrector) Correct(_ context.Context, a Address) (Address, error) {
	return a.Normalized(), nil
}

// ContactInfoRedactor clears phone and/or email from receiver addresses
// per shop privacy policy.
type ContactInfoRedactor struct {
	RedactPhone bool
	RedactEmail bool
}

func (r ContactInfoRedactor) Redact(_ context.Context, a Address) (Address, []string, error) {
	var fields []string
	out := a
	if r.RedactPhone && out.Phone != "" {
		out.Phone = ""
		fields = append(fields, "phone")
	}
	if r.RedactEmail && out.Email != "" {
		out.Email = ""
		fields = append(fields, "email")
	}
	return out, fields, nil
}

// OrderItemHydrator builds a single parcel from the order's line items.
type OrderItemHydrator struct {
	DefaultWeightUnit    WeightUnit
	DefaultDimensionUnit DimensionUnit
}

func (h OrderItemHydrator) Hydrate(_ context.Context, order *Order, filter ProductFilter) (Parcel, error) {
	parcel := Parcel{
		WeightUnit:    h.DefaultWeightUnit,
		DimensionUnit: h.DefaultDimensionUnit,
	}
	if parcel.WeightUnit == "" {
		parcel.WeightUnit = WeightKG
	}
	if parcel.DimensionUnit == "" {
		parcel.DimensionUnit = DimensionCM
	}
	for _, item := range order.Items {
		if filter != nil && !filter(item) {
			continue
		}
		value := Money{Amount: item.UnitPrice, Currency: order.Currency}
		parcel.Items = append(parcel.Items, ParcelItem{
			ProductID:    item.ProductID,
			Description:  item.Name,
			Quantity:     item.Quantity,
			Weight:       item.Weight,
			CustomsValue: &value,
		})
		parcel.Weight += item.Weight * float64(item.Quantity)
	}
	return parcel, nil
}

// WeightLimitPacker is a simple packer that fills parcels sequentially up
// to the configured maximum weight.
type WeightLimitPacker struct{}

func (WeightLimitPacker) Repack(ctx context.Context, parcels []Parcel, cfg PackingConfig) ([]Parcel, error) {
	if cfg.MaxParcelWeight <= 0 {
		return WeightLimitPacker{}.AdjustMetadata(ctx, parcels, cfg)
	}

	var repacked []Parcel
	for _, p := range parcels {
		current := emptyBox(p, cfg)
		for _, item := range p.Items {
			itemWeight := item.Weight * float64(item.Quantity)
			if current.Weight > cfg.FillerWeight && current.Weight+itemWeight > cfg.MaxParcelWeight {
				repacked = append(repacked, current)
				current = emptyBox(p, cfg)
			}
			current.Items = append(current.Items, item)
			current.Weight += itemWeight
		}
		repacked = append(repacked, current)
	}
	return repacked, nil
}

func (WeightLimitPacker) AdjustMetadata(_ context.Context, parcels []Parcel, cfg PackingConfig) ([]Parcel, error) {
	adjusted := cloneParcels(parcels)
	for i := range adjusted {
		applyBoxDefaults(&adjusted[i], cfg)
		adjusted[i].Weight += cfg.FillerWeight
	}
	return adjusted, nil
}

func emptyBox(template Parcel, cfg PackingConfig) Parcel {
	box := Parcel{
		WeightUnit:    template.WeightUnit,
		DimensionUnit: template.DimensionUnit,
		Weight:        cfg.FillerWeight,
	}
	applyBoxDefaults(&box, cfg)
	return box
}

func applyBoxDefaults(p *Parcel, cfg PackingConfig) {
	if p.Length == 0 {
		p.Length = cfg.BoxLength
	}
	if p.Width == 0 {
		p.Width = cfg.BoxWidth
	}
	if p.Height == 0 {
		p.Height = cfg.BoxHeight
	}
}
