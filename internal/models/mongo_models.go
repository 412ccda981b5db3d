package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind tags the variants of CatalogEntry.
type EntryKind string

const (
	EntryProduct    EntryKind = "product"
	EntryComplement EntryKind = "complement"
)

// CatalogEntry is something the storefront can offer: a real catalog
// product or a paid complement attached to an existing line.
type CatalogEntry interface {
	Kind() EntryKind
	EntryKey() string
	EntryName() string
	EntryPrice() decimal.Decimal
}

// Product model - MongoDB (catalog data)
type Product struct {
	ID            string           `bson:"_id,omitempty" json:"id"`
	Name          string           `bson:"name" json:"name"`
	Description   string           `bson:"description" json:"description"`
	Category      string           `bson:"category" json:"category"`
	Price         decimal.Decimal  `bson:"price" json:"price"`
	OriginalPrice *decimal.Decimal `bson:"original_price,omitempty" json:"original_price,omitempty"`
	Image         string           `bson:"image" json:"image"`
	IsActive      bool             `bson:"is_active" json:"is_active"`
	IsWeighable   bool             `bson:"is_weighable" json:"is_weighable"`
	PricePerGram  *decimal.Decimal `bson:"price_per_gram,omitempty" json:"price_per_gram,omitempty"`
	CreatedAt     time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `bson:"updated_at" json:"updated_at"`
}

func (p Product) Kind() EntryKind             { return EntryProduct }
func (p Product) EntryKey() string            { return p.ID }
func (p Product) EntryName() string           { return p.Name }
func (p Product) EntryPrice() decimal.Decimal { return p.Price }

// IsDiscounted reports whether the product is sold below its original price.
func (p Product) IsDiscounted() bool {
	return p.OriginalPrice != nil && p.OriginalPrice.GreaterThan(p.Price)
}

// ComplementOffer is a paid complement offered on its own, to be attached
// to a line of AnchorCategory.
type ComplementOffer struct {
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	AnchorCategory string          `json:"anchor_category"`
}

func (c ComplementOffer) Kind() EntryKind             { return EntryComplement }
func (c ComplementOffer) EntryName() string           { return c.Name }
func (c ComplementOffer) EntryPrice() decimal.Decimal { return c.Price }

// EntryKey is the normalised complement name; complements have no catalog id.
func (c ComplementOffer) EntryKey() string {
	return NormalizeComplementName(c.Name)
}

// NormalizeComplementName is the comparison form of a complement name.
func NormalizeComplementName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
