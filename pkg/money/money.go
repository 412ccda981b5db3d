// Package money holds the pricing arithmetic shared by the cart, the PDV
// and the upsell engine. Every amount is a decimal in Brazilian Real.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Complement is the priced part of an add-on attached to a cart line.
type Complement struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// DiscountType selects how a cart-level discount is applied.
type DiscountType string

const (
	DiscountNone       DiscountType = "none"
	DiscountPercentage DiscountType = "percentage"
	DiscountAmount     DiscountType = "amount"
)

// Discount is a cart-level discount as typed by the operator.
type Discount struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

var (
	thousand = decimal.NewFromInt(1000)
	hundred  = decimal.NewFromInt(100)
)

// ComplementsTotal sums the unit prices of the complements of one line.
func ComplementsTotal(complements []Complement) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range complements {
		sum = sum.Add(c.Price)
	}
	return sum
}

// LineTotal returns unitPrice*quantity + quantity*sum(complement prices).
func LineTotal(unitPrice decimal.Decimal, quantity int, complements []Complement) decimal.Decimal {
	q := decimal.NewFromInt(int64(quantity))
	return unitPrice.Mul(q).Add(ComplementsTotal(complements).Mul(q))
}

// DiscountLine subtracts a flat per-line discount, never going below zero.
func DiscountLine(lineTotal, discount decimal.Decimal) decimal.Decimal {
	if !discount.IsPositive() {
		return lineTotal
	}
	return decimal.Max(decimal.Zero, lineTotal.Sub(discount))
}

// CartTotal sums already computed line totals.
func CartTotal(lineTotals []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range lineTotals {
		sum = sum.Add(t)
	}
	return sum
}

// WeighedUnitPrice prices a weighable product. The weight is in kilograms
// and the catalog keeps the price per gram.
func WeighedUnitPrice(weightKg, pricePerGram decimal.Decimal) decimal.Decimal {
	return weightKg.Mul(thousand).Mul(pricePerGram)
}

// ApplyDiscount returns the discount amount and the resulting total. Amount
// discounts are capped at the subtotal and the total never goes below zero.
func ApplyDiscount(subtotal decimal.Decimal, d Discount) (discount, total decimal.Decimal) {
	switch d.Type {
	case DiscountPercentage:
		discount = subtotal.Mul(d.Value).Div(hundred)
	case DiscountAmount:
		discount = decimal.Min(d.Value, subtotal)
	default:
		discount = decimal.Zero
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	total = subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return discount, total
}

// FormatBRL renders an amount the way pt-BR currency formatting does:
// "R$ 1.234,50".
func FormatBRL(amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(2)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if amount.Round(2).IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString("R$ ")
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(fracPart)
	return b.String()
}
