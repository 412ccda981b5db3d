package messaging

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SaleCreated   = "sale.created"
	SaleCancelled = "sale.cancelled"
)

// SaleEvent is published on the sales topic.
type SaleEvent struct {
	Type          string          `json:"type"`
	SaleID        string          `json:"sale_id"`
	Channel       string          `json:"channel"`
	OperatorID    string          `json:"operator_id,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	ItemCount     int             `json:"item_count"`
	Reason        string          `json:"reason,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// SettingsChangedEvent broadcasts suggestion settings to other instances.
// Origin lets an instance skip its own messages.
type SettingsChangedEvent struct {
	Origin     string    `json:"origin"`
	Enabled    bool      `json:"enabled"`
	ShowInCart bool      `json:"show_in_cart"`
	ChangedAt  time.Time `json:"changed_at"`
}
