package shipment_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delivro/shipment/pkg/shipment"
)

func TestMoney_Add(t *testing.T) {
	sum, err := shipment.Money{Amount: 10, Currency: "EUR"}.Add(shipment.Money{Amount: 2.5, Currency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, shipment.Money{Amount: 12.5, Currency: "EUR"}, sum)
}

func TestMoney_Add_ZeroIsNeutral(t *testing.T) {
	sum, err := shipment.Money{}.Add(shipment.Money{Amount: 5, Currency: "CAD"})
	require.NoError(t, err)
	assert.Equal(t, shipment.Money{Amount: 5, Currency: "CAD"}, sum)

	sum, err = shipment.Money{Amount: 5, Currency: "CAD"}.Add(shipment.Money{})
	require.NoError(t, err)
	assert.Equal(t, shipment.Money{Amount: 5, Currency: "CAD"}, sum)
}

func TestMoney_Add_MixedCurrencies(t *testing.T) {
	_, err := shipment.Money{Amount: 10, Currency: "EUR"}.Add(shipment.Money{Amount: 10, Currency: "CAD"})
	assert.True(t, errors.Is(err, shipment.ErrMixedCurrencies))
}

func TestSumFees(t *testing.T) {
	fees := []shipment.Fee{
		{Type: shipment.FeeShippingCosts, Amount: shipment.Money{Amount: 4.99, Currency: "EUR"}},
		{Type: shipment.FeeCashOnDelivery, Amount: shipment.Money{Amount: 2, Currency: "EUR"}},
	}

	total, err := shipment.SumFees(fees)
	require.NoError(t, err)
	assert.InDelta(t, 6.99, total.Amount, 1e-9)
	assert.Equal(t, "EUR", total.Currency)
}

func TestSumFees_Empty(t *testing.T) {
	total, err := shipment.SumFees(nil)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestSumFees_MixedCurrencies(t *testing.T) {
	fees := []shipment.Fee{
		{Type: shipment.FeeShippingCosts, Amount: shipment.Money{Amount: 4.99, Currency: "EUR"}},
		{Type: shipment.FeeInsurance, Amount: shipment.Money{Amount: 1, Currency: "USD"}},
	}

	_, err := shipment.SumFees(fees)
	assert.True(t, errors.Is(err, shipment.ErrMixedCurrencies))
}

func TestSumFeesOfType(t *testing.T) {
	fees := []shipment.Fee{
		{Type: shipment.FeeShippingCosts, Amount: shipment.Money{Amount: 4.99, Currency: "EUR"}},
		{Type: shipment.FeeInsurance, Amount: shipment.Money{Amount: 1, Currency: "EUR"}},
		{Type: shipment.FeeShippingCosts, Amount: shipment.Money{Amount: 3, Currency: "EUR"}},
	}

	total, err := shipment.SumFeesOfType(fees, shipment.FeeShippingCosts)
	require.NoError(t, err)
	assert.InDelta(t, 7.99, total.Amount, 1e-9)
}

func TestGroupFeesByType(t *testing.T) {
	fees := []shipment.Fee{
		{Type: shipment.FeeShippingCosts, Amount: shipment.Money{Amount: 1, Currency: "EUR"}},
		{Type: shipment.FeeInsurance, Amount: shipment.Money{Amount: 2, Currency: "EUR"}},
		{Type: shipment.FeeShippingCosts, Amount: shipment.Money{Amount: 3, Currency: "EUR"}},
	}

	grouped := shipment.GroupFeesByType(fees)
	assert.Len(t, grouped[shipment.FeeShippingCosts], 2)
	assert.Len(t, grouped[shipment.FeeInsurance], 1)
	// order within a type is preserved
	assert.Equal(t, 1.0, grouped[shipment.FeeShippingCosts][0].Amount.Amount)
	assert.Equal(t, 3.0, grouped[shipment.FeeShippingCosts][1].Amount.Amount)
}
