package models

// SuggestionSettings are the storefront switches for upsell suggestions.
type SuggestionSettings struct {
	Enabled    bool `json:"enabled"`
	ShowInCart bool `json:"show_in_cart"`
}

// DefaultSuggestionSettings is used when no stored settings can be read.
func DefaultSuggestionSettings() SuggestionSettings {
	return SuggestionSettings{Enabled: true, ShowInCart: true}
}

// Effective reports whether suggestions should be shown in the cart.
func (s SuggestionSettings) Effective() bool {
	return s.Enabled && s.ShowInCart
}
