package shipment

// WeightUnit represents weight measurement unit.
type WeightUnit string

const (
	WeightKG WeightUnit = "kg"
	WeightLB WeightUnit = "lb"
)

// DimensionUnit represents dimension measurement unit.
type DimensionUnit string

const (
	DimensionCM DimensionUnit = "cm"
	DimensionIN DimensionUnit = "in"
)

// Parcel represents one physical package of a shipment.
type Parcel struct {
	Length        float64
	Width         float64
	Height        float64
	DimensionUnit DimensionUnit
	Weight        float64
	WeightUnit    WeightUnit
	Items         []ParcelItem
}

// ParcelItem is a line item packed into a parcel.
type ParcelItem struct {
	ProductID     string
	Description   string
	Quantity      int
	Weight        float64
	CustomsValue  *Money // nil when the declared value is unknown
	OriginCountry string
}

// DeclaredValue sums the customs values of all items. It returns nil when
// any item value is missing, and fails on mixed currencies.
func (p Parcel) DeclaredValue() (*Money, error) {
	var total Money
	for _, item := range p.Items {
		if item.CustomsValue == nil {
			return nil, nil
		}
		sum, err := total.Add(Money{
			Amount:   item.CustomsValue.Amount * float64(item.Quantity),
			Currency: item.CustomsValue.Currency,
		})
		if err != nil {
			return nil, err
		}
		total = sum
	}
	return &total, nil
}

// clone deep-copies the parcel so copy-with blueprint mutators cannot share
// item slices.
func (p Parcel) clone() Parcel {
	out := p
	out.Items = make([]ParcelItem, len(p.Items))
	copy(out.Items, p.Items)
	return out
}

func cloneParcels(parcels []Parcel) []Parcel {
	if parcels == nil {
		return nil
	}
	out := make([]Parcel, len(parcels))
	for i, p := range parcels {
		out[i] = p.clone()
	}
	return out
}

// MergeParcels collapses multiple parcels into a single one, summing weights
// and concatenating items. Dimensions are taken from the largest parcel by
// volume.
func MergeParcels(parcels []Parcel) Parcel {
	if len(parcels) == 0 {
		return Parcel{}
	}
	merged := parcels[0].clone()
	largest := 0
	largestVolume := parcels[0].Length * parcels[0].Width * parcels[0].Height
	for i, p := range parcels[1:] {
		merged.Weight += p.Weight
		merged.Items = append(merged.Items, p.Items...)
		if v := p.Length * p.Width * p.Height; v > largestVolume {
			largestVolume = v
			largest = i + 1
		}
	}
	merged.Length = parcels[largest].Length
	merged.Width = parcels[largest].Width
	merged.Height = parcels[largest].Height
	return merged
}
