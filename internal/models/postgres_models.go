package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"acai-delivery-backend/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func scanJSON(value interface{}, dest interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, dest)
}

// ComplementList is stored as JSONB on sale items.
type ComplementList []money.Complement

func (c ComplementList) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

func (c *ComplementList) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	return scanJSON(value, c)
}

// Role of an attendance user
type Role string

const (
	RoleAttendant Role = "attendant"
	RoleAdmin     Role = "admin"
)

// AttendanceUser model - PostgreSQL
// Operators of the attendant panel and the PDV terminal.
type AttendanceUser struct {
	ID           uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username     string      `gorm:"not null;uniqueIndex" json:"username"`
	PasswordHash string      `gorm:"not null" json:"-"`
	Name         string      `gorm:"not null" json:"name"`
	Role         Role        `gorm:"not null" json:"role"`
	IsActive     bool        `gorm:"not null" json:"is_active"`
	Permissions  Permissions `gorm:"type:jsonb" json:"permissions"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	LastLogin    *time.Time  `json:"last_login,omitempty"`
}

// SaleChannel is where a sale was registered
type SaleChannel string

const (
	ChannelPDV      SaleChannel = "pdv"
	ChannelDelivery SaleChannel = "delivery"
	ChannelManual   SaleChannel = "manual"
)

// PaymentMethod accepted by the PDV
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "dinheiro"
	PaymentPix     PaymentMethod = "pix"
	PaymentCredit  PaymentMethod = "cartao_credito"
	PaymentDebit   PaymentMethod = "cartao_debito"
	PaymentVoucher PaymentMethod = "voucher"
	PaymentMixed   PaymentMethod = "misto"
)

// Valid reports whether m is one of the accepted methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentPix, PaymentCredit, PaymentDebit, PaymentVoucher, PaymentMixed:
		return true
	}
	return false
}

// SaleStatus of a registered sale
// AmountList is stored as JSONB; it holds the parts of a split payment.
type AmountList []decimal.Decimal

func (a AmountList) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *AmountList) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	return scanJSON(value, a)
}

type SaleStatus string

const (
	SaleCompleted SaleStatus = "completed"
	SaleCancelled SaleStatus = "cancelled"
)

// Sale model - PostgreSQL (transactional data)
type Sale struct {
	ID             uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CartID         string           `gorm:"index" json:"cart_id"`
	Channel        SaleChannel      `gorm:"not null" json:"channel"`
	OperatorID     *uuid.UUID       `gorm:"type:uuid" json:"operator_id,omitempty"`
	CustomerName   string           `json:"customer_name,omitempty"`
	CustomerPhone  string           `json:"customer_phone,omitempty"`
	PaymentMethod  PaymentMethod    `gorm:"not null" json:"payment_method"`
	ChangeFor      *decimal.Decimal `gorm:"type:numeric(12,2)" json:"change_for,omitempty"`
	SplitAmounts   AmountList       `gorm:"type:jsonb" json:"split_amounts,omitempty"`
	Subtotal       decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"discount_amount"`
	Total          decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"total"`
	Status         SaleStatus       `gorm:"not null;index" json:"status"`
	CancelReason   string           `json:"cancel_reason,omitempty"`
	CancelledBy    *uuid.UUID       `gorm:"type:uuid" json:"cancelled_by,omitempty"`
	CancelledAt    *time.Time       `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time        `gorm:"index" json:"created_at"`
	Items          []SaleItem       `gorm:"foreignKey:SaleID" json:"items"`
}

// SaleItem model - PostgreSQL
type SaleItem struct {
	ID           uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SaleID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID    string           `gorm:"not null" json:"product_id"`
	ProductName  string           `gorm:"not null" json:"product_name"`
	Quantity     int              `gorm:"not null" json:"quantity"`
	WeightKg     *decimal.Decimal `gorm:"type:numeric(10,3)" json:"weight_kg,omitempty"`
	UnitPrice    decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Complements  ComplementList   `gorm:"type:jsonb" json:"complements"`
	Observations string           `json:"observations,omitempty"`
	Discount     decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	TotalPrice   decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"total_price"`
}

// DefaultSettingsID is the single row holding the storefront settings.
const DefaultSettingsID = "default"

// OrderSettings model - PostgreSQL
type OrderSettings struct {
	ID                   string    `gorm:"primaryKey" json:"id"`
	AISuggestionsEnabled bool      `gorm:"not null" json:"ai_suggestions_enabled"`
	ShowInCart           bool      `gorm:"not null" json:"show_in_cart"`
	UpdatedAt            time.Time `json:"updated_at"`
}
