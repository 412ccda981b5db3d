// Package upsell turns cart contents into ranked promotional suggestions
// and decides which one the storefront shows at any moment.
package upsell

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/pkg/money"
)

// Trigger is the persuasion angle of a suggestion.
type Trigger string

const (
	TriggerSocialProof Trigger = "social_proof"
	TriggerUrgency     Trigger = "urgency"
	TriggerAffinity    Trigger = "affinity"
	TriggerValue       Trigger = "value"
)

// Suggestion is one promotional proposal. Suggestions have no identity
// beyond the computation that produced them.
type Suggestion struct {
	Offer         models.CatalogEntry
	Message       string
	Trigger       Trigger
	Confidence    float64
	PriceIncrease *decimal.Decimal
}

// Product returns the offered catalog product, if the offer is one.
func (s Suggestion) Product() (models.Product, bool) {
	p, ok := s.Offer.(models.Product)
	return p, ok
}

// Complement returns the offered paid complement, if the offer is one.
func (s Suggestion) Complement() (models.ComplementOffer, bool) {
	c, ok := s.Offer.(models.ComplementOffer)
	return c, ok
}

// DisplayPrice is the amount printed next to the suggestion: the increase
// for upgrades, the offer price otherwise.
func (s Suggestion) DisplayPrice() string {
	if s.PriceIncrease != nil {
		return "+" + money.FormatBRL(*s.PriceIncrease)
	}
	if s.Offer == nil {
		return ""
	}
	if s.Offer.Kind() == models.EntryComplement {
		return "+" + money.FormatBRL(s.Offer.EntryPrice())
	}
	return money.FormatBRL(s.Offer.EntryPrice())
}

type suggestionJSON struct {
	Kind          models.EntryKind    `json:"kind"`
	Key           string              `json:"key"`
	Offer         models.CatalogEntry `json:"offer"`
	Message       string              `json:"message"`
	MessageHTML   string              `json:"message_html"`
	Trigger       Trigger             `json:"trigger"`
	Confidence    float64             `json:"confidence"`
	PriceIncrease *decimal.Decimal    `json:"price_increase,omitempty"`
	DisplayPrice  string              `json:"display_price"`
}

func (s Suggestion) MarshalJSON() ([]byte, error) {
	out := suggestionJSON{
		Offer:         s.Offer,
		Message:       s.Message,
		MessageHTML:   RenderHTML(s.Message),
		Trigger:       s.Trigger,
		Confidence:    s.Confidence,
		PriceIncrease: s.PriceIncrease,
		DisplayPrice:  s.DisplayPrice(),
	}
	if s.Offer != nil {
		out.Kind = s.Offer.Kind()
		out.Key = s.Offer.EntryKey()
	}
	return json.Marshal(out)
}
