package pricing

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTaxOnDiscountedBase(t *testing.T) {
	items := []LineItem{{UnitID: "book-1", UnitPriceCents: 9500, Quantity: 1}}

	totals, err := Compute(items, 1000, decimal.RequireFromString("0.21"))
	require.NoError(t, err)

	assert.Equal(t, int64(9500), totals.Subtotal)
	assert.Equal(t, int64(1000), totals.Discount)
	assert.Equal(t, int64(8500), totals.TaxableBase)
	assert.Equal(t, int64(1785), totals.Tax)
	assert.Equal(t, int64(10285), totals.Total)
}

func TestComputeIsDeterministic(t *testing.T) {
	items := []LineItem{
		{UnitID: "a", UnitPriceCents: 1999, Quantity: 3},
		{UnitID: "b", UnitPriceCents: 250, Quantity: 7},
	}
	rate := decimal.RequireFromString("0.0825")

	first, err := Compute(items, 333, rate)
	require.NoError(t, err)
	second, err := Compute(items, 333, rate)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1999*3+250*7), first.Subtotal)
}

func TestComputeClampsDiscount(t *testing.T) {
	items := []LineItem{{UnitID: "a", UnitPriceCents: 1500, Quantity: 1}}

	over, err := Compute(items, 2000, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), over.Discount)
	assert.Equal(t, int64(0), over.Total)

	negative, err := Compute(items, -50, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, int64(0), negative.Discount)
	assert.Equal(t, int64(1500), negative.Total)
}

func TestComputeEmptyCart(t *testing.T) {
	totals, err := Compute(nil, 100, decimal.RequireFromString("0.1"))
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals)
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	_, err := Compute([]LineItem{{UnitID: "a", UnitPriceCents: -1, Quantity: 1}}, 0, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidLineItem)

	_, err = Compute([]LineItem{{UnitID: "a", UnitPriceCents: 1, Quantity: -2}}, 0, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidLineItem)

	_, err = Compute(nil, 0, decimal.RequireFromString("-0.1"))
	assert.ErrorIs(t, err, ErrInvalidTaxRate)
}

func TestComputeRejectsOverflow(t *testing.T) {
	rate := decimal.RequireFromString("0.21")

	_, err := Compute([]LineItem{{UnitID: "a", UnitPriceCents: 1 << 40, Quantity: 1 << 24}}, 0, rate)
	assert.ErrorIs(t, err, ErrAmountOverflow)

	_, err = Compute([]LineItem{
		{UnitID: "a", UnitPriceCents: math.MaxInt64 - 10, Quantity: 1},
		{UnitID: "b", UnitPriceCents: 11, Quantity: 1},
	}, 0, decimal.Zero)
	assert.ErrorIs(t, err, ErrAmountOverflow)

	_, err = Compute([]LineItem{{UnitID: "a", UnitPriceCents: math.MaxInt64 / 2, Quantity: 1}}, 0, decimal.NewFromInt(2))
	assert.ErrorIs(t, err, ErrAmountOverflow)

	totals, err := Compute([]LineItem{{UnitID: "a", UnitPriceCents: math.MaxInt64, Quantity: 1}}, 0, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), totals.Total)
}

func TestRoundHalfUp(t *testing.T) {
	cases := map[string]int64{
		"0":      0,
		"0.49":   0,
		"0.5":    1,
		"1.5":    2,
		"2.5":    3,
		"1784.5": 1785,
		"-0.5":   0,
		"-1.6":   -2,
	}
	for in, want := range cases {
		assert.Equal(t, want, RoundHalfUp(decimal.RequireFromString(in)), in)
	}
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, int64(500), PercentOf(5000, decimal.NewFromInt(10)))
	assert.Equal(t, int64(1), PercentOf(5, decimal.NewFromInt(10))) // 0.5
	assert.Equal(t, int64(0), PercentOf(4, decimal.NewFromInt(10))) // 0.4
	assert.Equal(t, int64(417), PercentOf(3333, decimal.RequireFromString("12.5")))
}
