// Package cart is the cart state manager: the only code that mutates cart
// lines. Every derived total is recomputed on each mutation.
package cart

import (
	"encoding/json"
	"strings"

	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one entry of the cart. Lines handed out by Cart are copies.
type Line struct {
	ID                  string             `json:"id"`
	Product             models.Product     `json:"product"`
	Quantity            int                `json:"quantity"`
	UnitPrice           decimal.Decimal    `json:"unit_price"`
	WeightKg            *decimal.Decimal   `json:"weight_kg,omitempty"`
	SelectedComplements []money.Complement `json:"selected_complements"`
	Observations        string             `json:"observations,omitempty"`
	Discount            decimal.Decimal    `json:"discount"`
	TotalPrice          decimal.Decimal    `json:"total_price"`
}

func (l *Line) recompute() {
	l.TotalPrice = money.DiscountLine(money.LineTotal(l.UnitPrice, l.Quantity, l.SelectedComplements), l.Discount)
}

func (l *Line) customized() bool {
	return l.WeightKg != nil || len(l.SelectedComplements) > 0 ||
		strings.TrimSpace(l.Observations) != "" || !l.Discount.IsZero()
}

func (l Line) sameContent(o Line) bool {
	if l.ID != o.ID || l.Product.ID != o.Product.ID || l.Quantity != o.Quantity {
		return false
	}
	if (l.WeightKg == nil) != (o.WeightKg == nil) || (l.WeightKg != nil && !l.WeightKg.Equal(*o.WeightKg)) {
		return false
	}
	if len(l.SelectedComplements) != len(o.SelectedComplements) {
		return false
	}
	for i, c := range l.SelectedComplements {
		if c.Name != o.SelectedComplements[i].Name || !c.Price.Equal(o.SelectedComplements[i].Price) {
			return false
		}
	}
	return true
}

// SameContent reports whether two line lists hold the same products and
// quantities with the same weights and complements, in the same order.
// Observations and line discounts are not compared.
func SameContent(a, b []Line) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].sameContent(b[i]) {
			return false
		}
	}
	return true
}

// HasComplement reports whether the line already carries the complement,
// comparing trimmed, case-insensitive names.
func (l Line) HasComplement(name string) bool {
	key := models.NormalizeComplementName(name)
	for _, c := range l.SelectedComplements {
		if models.NormalizeComplementName(c.Name) == key {
			return true
		}
	}
	return false
}

// Summary is the priced view of the cart.
type Summary struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       money.Discount  `json:"discount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	ItemCount      int             `json:"item_count"`
	TotalQuantity  int             `json:"total_quantity"`
}

// Cart holds the line items of one storefront or PDV session. It is not
// safe for concurrent use.
type Cart struct {
	lines    []Line
	discount money.Discount
	total    decimal.Decimal
	newID    func() string
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{newID: uuid.NewString, discount: money.Discount{Type: money.DiscountNone}}
}

// AddOrMerge adds quantity units of product. A plain product merges into an
// existing plain line of the same product; anything customised gets its
// own line. A quantity of zero or less leaves the cart unchanged and
// returns the zero Line.
func (c *Cart) AddOrMerge(product models.Product, quantity int, complements []money.Complement, observations string) Line {
	if quantity <= 0 {
		return Line{}
	}
	candidate := Line{
		Product:             product,
		Quantity:            quantity,
		UnitPrice:           product.Price,
		SelectedComplements: cloneComplements(complements),
		Observations:        observations,
	}

	if !product.IsWeighable && !candidate.customized() {
		for i := range c.lines {
			l := &c.lines[i]
			if l.Product.ID == product.ID && !l.customized() {
				l.Quantity += quantity
				l.recompute()
				c.recompute()
				return l.copy()
			}
		}
	}

	return c.append(candidate)
}

// AddWeighed adds a weighable product as a new line priced from its weight.
func (c *Cart) AddWeighed(product models.Product, weightKg decimal.Decimal, complements []money.Complement, observations string) Line {
	pricePerGram := decimal.Zero
	if product.PricePerGram != nil {
		pricePerGram = *product.PricePerGram
	}
	w := weightKg
	return c.append(Line{
		Product:             product,
		Quantity:            1,
		UnitPrice:           money.WeighedUnitPrice(weightKg, pricePerGram).Round(2),
		WeightKg:            &w,
		SelectedComplements: cloneComplements(complements),
		Observations:        observations,
	})
}

func (c *Cart) append(l Line) Line {
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	l.ID = c.newID()
	l.recompute()
	c.lines = append(c.lines, l)
	c.recompute()
	return l.copy()
}

// UpdateQuantity sets the quantity of a line. Quantities of zero or less
// remove the line. Unknown ids are ignored.
func (c *Cart) UpdateQuantity(lineID string, quantity int) {
	if quantity <= 0 {
		c.RemoveLine(lineID)
		return
	}
	if i := c.indexOf(lineID); i >= 0 {
		c.lines[i].Quantity = quantity
		c.lines[i].recompute()
		c.recompute()
	}
}

// UpdateWeight re-weighs a weighed line and reprices it from the product's
// price per gram. It reports false for unknown lines, lines that were not
// weighed and non-positive weights.
func (c *Cart) UpdateWeight(lineID string, weightKg decimal.Decimal) bool {
	i := c.indexOf(lineID)
	if i < 0 || !weightKg.IsPositive() {
		return false
	}
	l := &c.lines[i]
	if l.WeightKg == nil || l.Product.PricePerGram == nil {
		return false
	}
	w := weightKg
	l.WeightKg = &w
	l.UnitPrice = money.WeighedUnitPrice(weightKg, *l.Product.PricePerGram).Round(2)
	l.recompute()
	c.recompute()
	return true
}

// SetLineDiscount sets a flat discount on one line. The line total never
// goes below zero; a zero amount removes the discount.
func (c *Cart) SetLineDiscount(lineID string, amount decimal.Decimal) bool {
	i := c.indexOf(lineID)
	if i < 0 || amount.IsNegative() {
		return false
	}
	c.lines[i].Discount = amount
	c.lines[i].recompute()
	c.recompute()
	return true
}

// RemoveLine deletes a line. Unknown ids are ignored.
func (c *Cart) RemoveLine(lineID string) {
	if i := c.indexOf(lineID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		c.recompute()
	}
}

// AttachComplement adds a complement to a line and reports whether the line
// exists. A complement already on the line is not added twice.
func (c *Cart) AttachComplement(lineID string, complement money.Complement) bool {
	i := c.indexOf(lineID)
	if i < 0 {
		return false
	}
	l := &c.lines[i]
	if !l.HasComplement(complement.Name) {
		l.SelectedComplements = append(l.SelectedComplements, complement)
		l.recompute()
		c.recompute()
	}
	return true
}

// Clear empties the cart and drops the discount.
func (c *Cart) Clear() {
	c.lines = nil
	c.discount = money.Discount{Type: money.DiscountNone}
	c.recompute()
}

// SetDiscount replaces the cart-level discount.
func (c *Cart) SetDiscount(d money.Discount) {
	if d.Type == "" {
		d.Type = money.DiscountNone
	}
	c.discount = d
}

// Line returns a copy of a line.
func (c *Cart) Line(lineID string) (Line, bool) {
	if i := c.indexOf(lineID); i >= 0 {
		return c.lines[i].copy(), true
	}
	return Line{}, false
}

// Lines returns copies of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	for i := range c.lines {
		out[i] = c.lines[i].copy()
	}
	return out
}

// Len is the number of lines.
func (c *Cart) Len() int { return len(c.lines) }

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// TotalPrice is the sum of every line total.
func (c *Cart) TotalPrice() decimal.Decimal { return c.total }

// Summary prices the cart including the cart-level discount.
func (c *Cart) Summary() Summary {
	discount, total := money.ApplyDiscount(c.total, c.discount)
	s := Summary{
		Subtotal:       c.total,
		Discount:       c.discount,
		DiscountAmount: discount,
		Total:          total,
		ItemCount:      len(c.lines),
	}
	for _, l := range c.lines {
		s.TotalQuantity += l.Quantity
	}
	return s
}

// ProductIDs returns the set of product ids present in the cart.
func (c *Cart) ProductIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(c.lines))
	for _, l := range c.lines {
		ids[l.Product.ID] = struct{}{}
	}
	return ids
}

func (c *Cart) indexOf(lineID string) int {
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

func (c *Cart) recompute() {
	totals := make([]decimal.Decimal, len(c.lines))
	for i := range c.lines {
		totals[i] = c.lines[i].TotalPrice
	}
	c.total = money.CartTotal(totals)
}

func (l Line) copy() Line {
	l.SelectedComplements = cloneComplements(l.SelectedComplements)
	if l.WeightKg != nil {
		w := *l.WeightKg
		l.WeightKg = &w
	}
	return l
}

func cloneComplements(in []money.Complement) []money.Complement {
	if len(in) == 0 {
		return nil
	}
	out := make([]money.Complement, len(in))
	copy(out, in)
	return out
}

type snapshot struct {
	Lines      []Line          `json:"lines"`
	Discount   money.Discount  `json:"discount"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// MarshalJSON encodes the lines and the discount along with the derived total.
func (c *Cart) MarshalJSON() ([]byte, error) {
	lines := c.lines
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(snapshot{Lines: lines, Discount: c.discount, TotalPrice: c.total})
}

// UnmarshalJSON restores a cart. Stored totals are ignored and recomputed.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	c.lines = c.lines[:0]
	for _, l := range s.Lines {
		if l.Quantity <= 0 {
			continue
		}
		l.recompute()
		c.lines = append(c.lines, l)
	}
	c.newID = uuid.NewString
	c.SetDiscount(s.Discount)
	c.recompute()
	return nil
}
