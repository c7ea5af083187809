// Package pricing turns line items, a discount and a tax rate into order
// totals. All amounts are integer cents and nothing here performs I/O.
package pricing

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidLineItem = errors.New("line item price and quantity must not be negative")
	ErrInvalidTaxRate  = errors.New("tax rate must not be negative")
	ErrAmountOverflow  = errors.New("order amount is too large")
)

// LineItem is one priced row of a cart.
type LineItem struct {
	UnitID         string `json:"unit_id"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int64  `json:"quantity"`
}

// Totals is the breakdown shown at checkout.
type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	Discount    int64 `json:"discount"`
	TaxableBase int64 `json:"taxable_base"`
	Tax         int64 `json:"tax"`
	Total       int64 `json:"total"`
}

// Compute folds items, discount and taxRate into Totals. The discount is
// clamped to [0, subtotal] whatever the caller passes in.
func Compute(items []LineItem, discount int64, taxRate decimal.Decimal) (Totals, error) {
	if taxRate.IsNegative() {
		return Totals{}, ErrInvalidTaxRate
	}

	var subtotal int64
	for i, it := range items {
		if it.UnitPriceCents < 0 || it.Quantity < 0 {
			return Totals{}, errors.Wrapf(ErrInvalidLineItem, "item %d (%s)", i, it.UnitID)
		}
		if it.Quantity != 0 && it.UnitPriceCents > (math.MaxInt64-subtotal)/it.Quantity {
			return Totals{}, errors.Wrapf(ErrAmountOverflow, "item %d (%s)", i, it.UnitID)
		}
		subtotal += it.UnitPriceCents * it.Quantity
	}

	discount = Clamp(discount, 0, subtotal)
	base := subtotal - discount
	rawTax := decimal.NewFromInt(base).Mul(taxRate)
	if rawTax.Add(half).Floor().GreaterThan(decimal.NewFromInt(math.MaxInt64 - base)) {
		return Totals{}, errors.Wrap(ErrAmountOverflow, "tax")
	}
	tax := RoundHalfUp(rawTax)

	return Totals{
		Subtotal:    subtotal,
		Discount:    discount,
		TaxableBase: base,
		Tax:         tax,
		Total:       base + tax,
	}, nil
}
