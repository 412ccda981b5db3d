package upsell

import "github.com/shopspring/decimal"

// AffinityRule proposes a product of Category to carts holding the anchor
// category and nothing of Category. {name} expands to the product name.
type AffinityRule struct {
	Category   string
	Trigger    Trigger
	Confidence float64
	Message    string
}

// ComplementRule proposes the first paid complement whose upper-case name
// contains Match and not Exclude. {price} expands to the complement price.
type ComplementRule struct {
	Match   string
	Exclude string
	Trigger Trigger
	Message string
}

// Policy holds the business parameters of the suggestion rules.
type Policy struct {
	AnchorCategory string
	StarterTag     string
	UpgradeTag     string
	ComboCategory  string

	StarterMessage  string
	UpgradeMessage  string
	ComboMessage    string
	LowValueMessage string
	PremiumMessage  string

	Affinities           []AffinityRule
	Complements          []ComplementRule
	ComplementConfidence float64

	LowValueThreshold  decimal.Decimal
	HighValueThreshold decimal.Decimal

	MaxSuggestions int
}

// DefaultPolicy is the rule set of the açaí storefront.
func DefaultPolicy() Policy {
	return Policy{
		AnchorCategory: "acai",
		StarterTag:     "300g",
		UpgradeTag:     "500g",
		ComboCategory:  "combo",

		StarterMessage:  "O **{name}** é um dos mais pedidos do dia! Garanta o seu por apenas {price}.",
		UpgradeMessage:  "**87% dos clientes** preferem o tamanho {size}! Mais açaí por apenas +{increase}",
		ComboMessage:    "**Combo Casal** - perfeito para compartilhar! Economia garantida vs pedidos separados",
		LowValueMessage: "**Últimas unidades** do {name} - aproveite agora!",
		PremiumMessage:  "**Experiência premium** - você merece o melhor! Oferta especial hoje",

		Affinities: []AffinityRule{
			{
				Category:   "bebidas",
				Trigger:    TriggerSocialProof,
				Confidence: 0.7,
				Message:    "**{name}** - a combinação favorita de 73% dos nossos clientes!",
			},
			{
				Category:   "milkshake",
				Trigger:    TriggerAffinity,
				Confidence: 0.75,
				Message:    "Que tal um **milkshake cremoso**? Combinação perfeita com açaí!",
			},
		},
		Complements: []ComplementRule{
			{Match: "PAÇOCA", Trigger: TriggerAffinity, Message: "Esse copo fica ainda mais gostoso com **paçoca crocante**."},
			{Match: "LEITE CONDENSADO", Trigger: TriggerSocialProof, Message: "A maioria completa com **leite condensado extra (+{price})**."},
			{Match: "MORANGO", Exclude: "COBERTURA", Trigger: TriggerSocialProof, Message: "Top escolha junto com esse copo: **morango fresco**."},
			{Match: "GRANOLA", Trigger: TriggerUrgency, Message: "Adicione **granola crocante** agora por apenas +{price}."},
		},
		ComplementConfidence: 0.85,

		LowValueThreshold:  decimal.NewFromInt(25),
		HighValueThreshold: decimal.NewFromInt(40),

		MaxSuggestions: 2,
	}
}
