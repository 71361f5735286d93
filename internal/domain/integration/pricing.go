package integration

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceMode selects how tax-excluded unit prices are derived.
type PriceMode string

const (
	// PriceModeFixed prices every line from its own payload fields.
	PriceModeFixed PriceMode = "FIXED"
	// PriceModeProportional distributes the order-level tax-excluded total
	// across lines by their tax-included weight.
	PriceModeProportional PriceMode = "PROPORTIONAL"
)

// IsValid returns true if the price mode is known
func (m PriceMode) IsValid() bool {
	switch m {
	case PriceModeFixed, PriceModeProportional:
		return true
	default:
		return false
	}
}

// String returns the string representation of PriceMode
func (m PriceMode) String() string {
	return string(m)
}

// PriceSource records which payload field produced a unit price.
type PriceSource string

const (
	PriceSourceRowTotal     PriceSource = "row_total"
	PriceSourcePrice        PriceSource = "price"
	PriceSourcePriceInclTax PriceSource = "price_incl_tax"
	PriceSourceFree         PriceSource = "free"
	PriceSourceParent       PriceSource = "parent"
	PriceSourceProportional PriceSource = "proportional"
)

const (
	// UnitPricePrecision is the number of decimals kept on unit prices.
	UnitPricePrecision int32 = 4
	// SubtotalPrecision is the number of decimals kept on allocated line subtotals.
	SubtotalPrecision int32 = 2
)

var hundred = decimal.NewFromInt(100)

// PricingOptions carries the instance configuration pricing depends on.
type PricingOptions struct {
	Mode            PriceMode
	UseBaseCurrency bool
}

// LinePrice is the resolved price of one order line.
type LinePrice struct {
	ItemID    int64
	SKU       string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Source    PriceSource
}

// Subtotal returns quantity times unit price.
func (p LinePrice) Subtotal() decimal.Decimal {
	return p.UnitPrice.Mul(p.Quantity)
}

// ---------------------------------------------------------------------------
// Fixed mode
// ---------------------------------------------------------------------------

// ResolveUnitPrice derives the tax-excluded unit price of one line from its
// own fields, in order:
//
//  1. row_total / qty_ordered
//  2. price
//  3. price_incl_tax / (1 + tax_percent/100)
//
// A field that is present but zero falls through to the next one. When
// every present field is zero the line is a free item and resolves to zero;
// when none is present ErrPriceUnresolvable is returned.
func ResolveUnitPrice(line OrderLinePayload, useBaseCurrency bool) (LinePrice, error) {
	qty := line.Quantity()
	result := LinePrice{ItemID: line.ItemID, SKU: line.SKU, Quantity: qty}

	rowTotal := currencyAmount(useBaseCurrency, line.BaseRowTotal, line.RowTotal)
	price := currencyAmount(useBaseCurrency, line.BasePrice, line.Price)
	priceInclTax := currencyAmount(useBaseCurrency, line.BasePriceInclTax, line.PriceInclTax)

	present := false

	if rowTotal.Valid {
		present = true
		if !rowTotal.Value.IsZero() && qty.IsPositive() {
			return finishUnitPrice(result, rowTotal.Value.Div(qty), PriceSourceRowTotal)
		}
	}

	if price.Valid {
		present = true
		if !price.Value.IsZero() {
			return finishUnitPrice(result, price.Value, PriceSourcePrice)
		}
	}

	if priceInclTax.Valid {
		present = true
		if !priceInclTax.Value.IsZero() {
			divisor := decimal.NewFromInt(1).Add(line.TaxRate().Div(hundred))
			if !divisor.IsPositive() {
				return LinePrice{}, fmt.Errorf("%w: sku %s tax_percent %s", ErrInvalidTaxPercent, line.SKU, line.TaxRate())
			}
			return finishUnitPrice(result, priceInclTax.Value.Div(divisor), PriceSourcePriceInclTax)
		}
	}

	if present {
		result.UnitPrice = decimal.Zero
		result.Source = PriceSourceFree
		return result, nil
	}
	return LinePrice{}, fmt.Errorf("%w: sku %s item %d", ErrPriceUnresolvable, line.SKU, line.ItemID)
}

func finishUnitPrice(result LinePrice, unit decimal.Decimal, source PriceSource) (LinePrice, error) {
	if unit.IsNegative() {
		return LinePrice{}, fmt.Errorf("%w: sku %s unit price %s", ErrNegativePrice, result.SKU, unit)
	}
	result.UnitPrice = unit.Round(UnitPricePrecision)
	result.Source = source
	return result, nil
}

// hasOwnPrice reports whether the line carries any non-zero price field.
func hasOwnPrice(line OrderLinePayload, useBaseCurrency bool) bool {
	return currencyAmount(useBaseCurrency, line.BaseRowTotal, line.RowTotal).IsNonZero() ||
		currencyAmount(useBaseCurrency, line.BasePrice, line.Price).IsNonZero() ||
		currencyAmount(useBaseCurrency, line.BasePriceInclTax, line.PriceInclTax).IsNonZero()
}

// ResolveLinePrice resolves a line in the context of its order. The simple
// child of a configurable line usually carries no price of its own; it
// takes the parent's unit price with its own quantity.
func ResolveLinePrice(order *OrderPayload, line OrderLinePayload, useBaseCurrency bool) (LinePrice, error) {
	if !line.Quantity().IsPositive() {
		return LinePrice{}, fmt.Errorf("%w: sku %s qty %s", ErrInvalidQuantity, line.SKU, line.Quantity())
	}

	if line.HasParent() && !hasOwnPrice(line, useBaseCurrency) {
		parent := order.ParentOf(line)
		if parent != nil && parent.ProductType == ProductTypeConfigurable {
			parentPrice, err := ResolveUnitPrice(*parent, useBaseCurrency)
			if err != nil {
				return LinePrice{}, err
			}
			return LinePrice{
				ItemID:    line.ItemID,
				SKU:       line.SKU,
				Quantity:  line.Quantity(),
				UnitPrice: parentPrice.UnitPrice,
				Source:    PriceSourceParent,
			}, nil
		}
	}

	return ResolveUnitPrice(line, useBaseCurrency)
}

// ---------------------------------------------------------------------------
// Proportional mode
// ---------------------------------------------------------------------------

// lineWeight returns the tax-included weight of a line: row_total_incl_tax,
// else price_incl_tax * qty, else row_total + tax_amount, else price * qty.
func lineWeight(line OrderLinePayload, useBaseCurrency bool) decimal.Decimal {
	qty := line.Quantity()

	if v := currencyAmount(useBaseCurrency, line.BaseRowTotalInclTax, line.RowTotalInclTax); v.IsPositive() {
		return v.Value
	}
	if v := currencyAmount(useBaseCurrency, line.BasePriceInclTax, line.PriceInclTax); v.IsPositive() {
		return v.Value.Mul(qty)
	}
	if v := currencyAmount(useBaseCurrency, line.BaseRowTotal, line.RowTotal); v.IsPositive() {
		tax := currencyAmount(useBaseCurrency, line.BaseTaxAmount, line.TaxAmount).Decimal()
		return v.Value.Add(tax)
	}
	if v := currencyAmount(useBaseCurrency, line.BasePrice, line.Price); v.IsPositive() {
		return v.Value.Mul(qty)
	}
	return decimal.Zero
}

// OrderNetGoodsTotal returns grand_total - tax_amount - shipping_amount: the
// tax-excluded amount the order's product lines must add up to.
func OrderNetGoodsTotal(order *OrderPayload, useBaseCurrency bool) (decimal.Decimal, error) {
	grand := currencyAmount(useBaseCurrency, order.BaseGrandTotal, order.GrandTotal)
	if !grand.Valid {
		return decimal.Zero, fmt.Errorf("%w: order %s has no grand_total", ErrPriceUnresolvable, order.IncrementID)
	}
	tax := currencyAmount(useBaseCurrency, order.BaseTaxAmount, order.TaxAmount).Decimal()
	total := grand.Value.Sub(tax).Sub(order.ShippingAmountFor(useBaseCurrency))
	if total.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: order %s net total %s", ErrNegativePrice, order.IncrementID, total)
	}
	return total, nil
}

// AllocateProportional distributes the order's tax-excluded goods total
// across lines in proportion to their tax-included weight. Line subtotals
// are rounded to SubtotalPrecision and the last line takes the rounding
// remainder, so subtotals add up to the order total exactly. When no
// line carries a weight the total is split by quantity.
func AllocateProportional(order *OrderPayload, lines []OrderLinePayload, useBaseCurrency bool) ([]LinePrice, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	for _, line := range lines {
		if !line.Quantity().IsPositive() {
			return nil, fmt.Errorf("%w: sku %s qty %s", ErrInvalidQuantity, line.SKU, line.Quantity())
		}
	}

	total, err := OrderNetGoodsTotal(order, useBaseCurrency)
	if err != nil {
		return nil, err
	}

	weights := make([]decimal.Decimal, len(lines))
	sum := decimal.Zero
	for i, line := range lines {
		weights[i] = lineWeight(line, useBaseCurrency)
		if weights[i].IsZero() && line.HasParent() {
			if parent := order.ParentOf(line); parent != nil && parent.ProductType == ProductTypeConfigurable {
				weights[i] = lineWeight(*parent, useBaseCurrency)
			}
		}
		sum = sum.Add(weights[i])
	}
	if !sum.IsPositive() {
		sum = decimal.Zero
		for i, line := range lines {
			weights[i] = line.Quantity()
			sum = sum.Add(weights[i])
		}
	}
	if !sum.IsPositive() {
		return nil, fmt.Errorf("%w: order %s", ErrZeroAllocationWeight, order.IncrementID)
	}

	subtotals := make([]decimal.Decimal, len(lines))
	allocated := decimal.Zero
	last := len(lines) - 1
	for i := range last {
		subtotals[i] = total.Mul(weights[i]).Div(sum).Round(SubtotalPrecision)
		allocated = allocated.Add(subtotals[i])
	}
	subtotals[last] = total.Sub(allocated)

	prices := make([]LinePrice, len(lines))
	for i, line := range lines {
		qty := line.Quantity()
		prices[i] = LinePrice{
			ItemID:    line.ItemID,
			SKU:       line.SKU,
			Quantity:  qty,
			UnitPrice: subtotals[i].Div(qty).Round(UnitPricePrecision),
			Source:    PriceSourceProportional,
		}
	}
	return prices, nil
}

// ---------------------------------------------------------------------------
// Entry point
// ---------------------------------------------------------------------------

// PriceOrderLines prices every priceable line of an order according to the
// instance pricing options. Parent lines never appear in the result; the
// i-th price belongs to the i-th line of PriceableLines.
func PriceOrderLines(order *OrderPayload, opts PricingOptions) ([]LinePrice, error) {
	lines := order.PriceableLines()

	switch opts.Mode {
	case PriceModeProportional:
		return AllocateProportional(order, lines, opts.UseBaseCurrency)
	case PriceModeFixed, "":
		prices := make([]LinePrice, 0, len(lines))
		for _, line := range lines {
			p, err := ResolveLinePrice(order, line, opts.UseBaseCurrency)
			if err != nil {
				return nil, err
			}
			prices = append(prices, p)
		}
		return prices, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriceMode, opts.Mode)
	}
}
