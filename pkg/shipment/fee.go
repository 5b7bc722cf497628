package shipment

import (
	"fmt"
)

// Money represents a monetary amount.
type Money struct {
	Amount   float64
	Currency string
}

// IsZero reports whether the value carries neither amount nor currency.
func (m Money) IsZero() bool {
	return m.Amount == 0 && m.Currency == ""
}

// Add sums two monetary amounts. Summing across currencies fails loudly; a
// zero value without currency acts as the neutral element.
func (m Money) Add(other Money) (Money, error) {
	switch {
	case m.IsZero():
		return other, nil
	case other.IsZero():
		return m, nil
	case m.Currency != other.Currency:
		return Money{}, fmt.Errorf("%w: %s and %s", ErrMixedCurrencies, m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// FeeType tags a fee attached to a shipment.
type FeeType string

const (
	FeeShippingCosts  FeeType = "shipping-costs"
	FeeCashOnDelivery FeeType = "cash-on-delivery"
	FeeInsurance      FeeType = "insurance"
	FeeCustoms        FeeType = "customs"
)

// Fee is a typed, currency-aware charge on a shipment.
type Fee struct {
	Type   FeeType
	Amount Money
}

// SumFees adds all fee amounts. It fails on mixed currencies.
func SumFees(fees []Fee) (Money, error) {
	var total Money
	for _, f := range fees {
		sum, err := total.Add(f.Amount)
		if err != nil {
			return Money{}, fmt.Errorf("sum fees: %w", err)
		}
		total = sum
	}
	return total, nil
}

// SumFeesOfType adds the amounts of all fees with the given type.
func SumFeesOfType(fees []Fee, t FeeType) (Money, error) {
	var total Money
	for _, f := range fees {
		if f.Type != t {
			continue
		}
		sum, err := total.Add(f.Amount)
		if err != nil {
			return Money{}, fmt.Errorf("sum %s fees: %w", t, err)
		}
		total = sum
	}
	return total, nil
}

// GroupFeesByType groups fees preserving their order within each type.
func GroupFeesByType(fees []Fee) map[FeeType][]Fee {
	grouped := make(map[FeeType][]Fee)
	for _, f := range fees {
		grouped[f.Type] = append(grouped[f.Type], f)
	}
	return grouped
}
