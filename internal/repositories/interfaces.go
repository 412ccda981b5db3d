package repositories

import (
	"context"
	"errors"
	"io"
	"time"

	"acai-delivery-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ProductRepository interface for MongoDB catalog operations
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, activeOnly bool) ([]models.Product, error)
	Search(ctx context.Context, query string, limit int) ([]models.Product, error)
	SetImage(ctx context.Context, id, image string) error
}

// ImageStore keeps encoded product images (GridFS)
type ImageStore interface {
	Save(ctx context.Context, filename, contentType string, data []byte) (string, error)
	Open(ctx context.Context, id string) (io.ReadCloser, error)
	Delete(ctx context.Context, id string) error
}

// AttendanceUserRepository interface for PostgreSQL operator accounts
type AttendanceUserRepository interface {
	Create(ctx context.Context, user *models.AttendanceUser) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AttendanceUser, error)
	GetByUsername(ctx context.Context, username string) (*models.AttendanceUser, error)
	Update(ctx context.Context, user *models.AttendanceUser) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.AttendanceUser, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// SaleRepository interface for PostgreSQL sales
type SaleRepository interface {
	// Create writes the sale and its items in one transaction.
	Create(ctx context.Context, sale *models.Sale) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	List(ctx context.Context, limit, offset int) ([]models.Sale, error)
	// ListBetween returns the sales created in [from, to), oldest first.
	ListBetween(ctx context.Context, from, to time.Time) ([]models.Sale, error)
	// Cancel marks a completed sale as cancelled and reports whether it did.
	Cancel(ctx context.Context, id uuid.UUID, reason string, by *uuid.UUID, at time.Time) (bool, error)
}

// SettingsRepository interface for the storefront order settings row
type SettingsRepository interface {
	Get(ctx context.Context) (*models.OrderSettings, error)
	Save(ctx context.Context, settings *models.OrderSettings) error
}
