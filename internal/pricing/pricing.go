// Package pricing derives the monetary fields of cart lines and orders.
// Storage never computes these; every create and read path goes through here.
package pricing

import "github.com/shopspring/decimal"

const scale = 2

func LineSubtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(scale)
}

// LineDiscount is always zero for now. Business rules plug in here.
func LineDiscount(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

// OrderTotal never goes below zero.
func OrderTotal(subtotal, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total.Round(scale)
}

func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total.Round(scale)
}

// Format renders an amount with two decimals, e.g. "30.00".
func Format(d decimal.Decimal) string {
	return d.StringFixed(scale)
}
