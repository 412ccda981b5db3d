package upsell

import (
	"strings"

	"github.com/shopspring/decimal"

	"acai-delivery-backend/internal/cart"
	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/pkg/money"
)

const defaultMaxSuggestions = 2

var half = decimal.NewFromFloat(0.5)

// Generator evaluates a Policy against cart contents. It holds no mutable
// state and is safe for concurrent use.
type Generator struct {
	policy      Policy
	complements []money.Complement
}

func NewGenerator(policy Policy, complements []money.Complement) *Generator {
	if policy.MaxSuggestions <= 0 {
		policy.MaxSuggestions = defaultMaxSuggestions
	}
	return &Generator{
		policy:      policy,
		complements: append([]money.Complement(nil), complements...),
	}
}

// GenerateSuggestions runs the default storefront policy.
func GenerateSuggestions(lines []cart.Line, products []models.Product, complements []money.Complement) []Suggestion {
	return NewGenerator(DefaultPolicy(), complements).Generate(lines, products)
}

// evaluation is the per-call view of the cart shared by the rules.
type evaluation struct {
	lines      []cart.Line
	catalog    []models.Product
	inCart     map[string]struct{}
	addedComps map[string]struct{}
	subtotal   decimal.Decimal
}

func (e *evaluation) hasCategory(category string) bool {
	for _, l := range e.lines {
		if l.Product.Category == category {
			return true
		}
	}
	return false
}

func (e *evaluation) find(match func(models.Product) bool) (models.Product, bool) {
	for _, p := range e.catalog {
		if _, taken := e.inCart[p.ID]; taken {
			continue
		}
		if match(p) {
			return p, true
		}
	}
	return models.Product{}, false
}

// Generate returns at most MaxSuggestions suggestions in rule order.
func (g *Generator) Generate(lines []cart.Line, products []models.Product) []Suggestion {
	if len(lines) == 0 {
		return []Suggestion{}
	}

	e := &evaluation{
		lines:      lines,
		inCart:     make(map[string]struct{}, len(lines)),
		addedComps: make(map[string]struct{}),
		subtotal:   decimal.Zero,
	}
	for _, p := range products {
		if p.IsActive {
			e.catalog = append(e.catalog, p)
		}
	}
	for _, l := range lines {
		e.inCart[l.Product.ID] = struct{}{}
		e.subtotal = e.subtotal.Add(l.TotalPrice)
		for _, c := range l.SelectedComplements {
			e.addedComps[models.NormalizeComplementName(c.Name)] = struct{}{}
		}
	}

	var out []Suggestion
	out = append(out, g.starter(e)...)
	out = append(out, g.upgrade(e)...)
	out = append(out, g.combo(e)...)
	out = append(out, g.affinity(e)...)
	out = append(out, g.paidComplements(e)...)
	out = append(out, g.lowValue(e)...)
	out = append(out, g.premium(e)...)

	if len(out) > g.policy.MaxSuggestions {
		out = out[:g.policy.MaxSuggestions]
	}
	if out == nil {
		out = []Suggestion{}
	}
	return out
}

func (g *Generator) isSize(p models.Product, tag string) bool {
	return p.Category == g.policy.AnchorCategory && containsFold(p.Name, tag)
}

func (g *Generator) starter(e *evaluation) []Suggestion {
	for _, l := range e.lines {
		if g.isSize(l.Product, g.policy.StarterTag) {
			return nil
		}
	}
	p, ok := e.find(func(p models.Product) bool { return g.isSize(p, g.policy.StarterTag) })
	if !ok {
		return nil
	}
	return []Suggestion{{
		Offer:      p,
		Message:    expand(g.policy.StarterMessage, "{name}", p.Name, "{price}", money.FormatBRL(p.Price)),
		Trigger:    TriggerSocialProof,
		Confidence: 0.95,
	}}
}

func (g *Generator) upgrade(e *evaluation) []Suggestion {
	var small *models.Product
	for i := range e.lines {
		if g.isSize(e.lines[i].Product, g.policy.StarterTag) {
			small = &e.lines[i].Product
			break
		}
	}
	if small == nil {
		return nil
	}
	p, ok := e.find(func(p models.Product) bool { return g.isSize(p, g.policy.UpgradeTag) })
	if !ok {
		return nil
	}
	increase := p.Price.Sub(small.Price)
	return []Suggestion{{
		Offer:         p,
		Message:       expand(g.policy.UpgradeMessage, "{size}", g.policy.UpgradeTag, "{increase}", money.FormatBRL(increase)),
		Trigger:       TriggerSocialProof,
		Confidence:    0.9,
		PriceIncrease: &increase,
	}}
}

func (g *Generator) combo(e *evaluation) []Suggestion {
	if len(e.lines) != 1 || e.hasCategory(g.policy.ComboCategory) {
		return nil
	}
	p, ok := e.find(func(p models.Product) bool { return p.Category == g.policy.ComboCategory })
	if !ok {
		return nil
	}
	return []Suggestion{{
		Offer:      p,
		Message:    expand(g.policy.ComboMessage, "{name}", p.Name),
		Trigger:    TriggerValue,
		Confidence: 0.8,
	}}
}

func (g *Generator) affinity(e *evaluation) []Suggestion {
	if !e.hasCategory(g.policy.AnchorCategory) {
		return nil
	}
	var out []Suggestion
	for _, rule := range g.policy.Affinities {
		if e.hasCategory(rule.Category) {
			continue
		}
		category := rule.Category
		p, ok := e.find(func(p models.Product) bool { return p.Category == category })
		if !ok {
			continue
		}
		out = append(out, Suggestion{
			Offer:      p,
			Message:    expand(rule.Message, "{name}", p.Name),
			Trigger:    rule.Trigger,
			Confidence: rule.Confidence,
		})
	}
	return out
}

func (g *Generator) paidComplements(e *evaluation) []Suggestion {
	if !e.hasCategory(g.policy.AnchorCategory) {
		return nil
	}
	var out []Suggestion
	for _, rule := range g.policy.Complements {
		c, ok := g.findComplement(rule)
		if !ok {
			continue
		}
		if _, added := e.addedComps[models.NormalizeComplementName(c.Name)]; added {
			continue
		}
		out = append(out, Suggestion{
			Offer: models.ComplementOffer{
				Name:           c.Name,
				Price:          c.Price,
				AnchorCategory: g.policy.AnchorCategory,
			},
			Message:    expand(rule.Message, "{name}", c.Name, "{price}", money.FormatBRL(c.Price)),
			Trigger:    rule.Trigger,
			Confidence: g.policy.ComplementConfidence,
		})
	}
	return out
}

func (g *Generator) findComplement(rule ComplementRule) (money.Complement, bool) {
	for _, c := range g.complements {
		name := strings.ToUpper(c.Name)
		if !strings.Contains(name, strings.ToUpper(rule.Match)) {
			continue
		}
		if rule.Exclude != "" && strings.Contains(name, strings.ToUpper(rule.Exclude)) {
			continue
		}
		return c, true
	}
	return money.Complement{}, false
}

func (g *Generator) lowValue(e *evaluation) []Suggestion {
	if !e.subtotal.LessThan(g.policy.LowValueThreshold) {
		return nil
	}
	floor := e.subtotal.Mul(half)
	p, ok := e.find(func(p models.Product) bool {
		return p.Category == g.policy.AnchorCategory && p.Price.GreaterThan(floor)
	})
	if !ok {
		return nil
	}
	return []Suggestion{{
		Offer:      p,
		Message:    expand(g.policy.LowValueMessage, "{name}", p.Name),
		Trigger:    TriggerUrgency,
		Confidence: 0.6,
	}}
}

func (g *Generator) premium(e *evaluation) []Suggestion {
	if !e.subtotal.GreaterThan(g.policy.HighValueThreshold) {
		return nil
	}
	p, ok := e.find(models.Product.IsDiscounted)
	if !ok {
		return nil
	}
	return []Suggestion{{
		Offer:      p,
		Message:    expand(g.policy.PremiumMessage, "{name}", p.Name),
		Trigger:    TriggerAffinity,
		Confidence: 0.85,
	}}
}

func expand(template string, pairs ...string) string {
	return strings.NewReplacer(pairs...).Replace(template)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
