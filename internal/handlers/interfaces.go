package handlers

import (
	"context"
	"io"
	"time"

	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/services"
	"acai-delivery-backend/internal/upsell"
	"acai-delivery-backend/pkg/auth"
	"acai-delivery-backend/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductServiceInterface defines the contract for product service
type ProductServiceInterface interface {
	ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]models.Product, error)
	CreateProduct(ctx context.Context, req *services.ProductRequest) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, req *services.ProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// ImageServiceInterface defines the contract for image service
type ImageServiceInterface interface {
	MaxUploadBytes() int64
	UploadProductImage(ctx context.Context, productID string, data []byte) (string, error)
	OpenImage(ctx context.Context, id string) (io.ReadCloser, error)
}

// CartServiceInterface defines the contract for cart service
type CartServiceInterface interface {
	CreateCart(ctx context.Context) (*services.CartView, error)
	GetCart(ctx context.Context, id string) (*services.CartView, error)
	DeleteCart(ctx context.Context, id string) error
	AddItem(ctx context.Context, id string, req *services.AddItemRequest) (*services.CartView, error)
	AddWeighedItem(ctx context.Context, id string, req *services.AddWeighedItemRequest) (*services.CartView, error)
	UpdateQuantity(ctx context.Context, id, lineID string, quantity int) (*services.CartView, error)
	RemoveLine(ctx context.Context, id, lineID string) (*services.CartView, error)
	UpdateWeight(ctx context.Context, id, lineID string, weightKg decimal.Decimal) (*services.CartView, error)
	SetLineDiscount(ctx context.Context, id, lineID string, amount decimal.Decimal) (*services.CartView, error)
	SetDiscount(ctx context.Context, id string, d money.Discount) (*services.CartView, error)
	ClearCart(ctx context.Context, id string) (*services.CartView, error)
	AcceptSuggestion(ctx context.Context, id, key string) (*services.CartView, error)
}

// SuggestionServiceInterface defines the contract for the suggestion banner
type SuggestionServiceInterface interface {
	Display(cartID string) upsell.Display
	Suggestions(cartID string) []upsell.Suggestion
	Dismiss(cartID string) bool
	Subscribe(cartID string, fn func(upsell.Display)) (func(), <-chan struct{}, bool)
}

// SettingsServiceInterface defines the contract for settings service
type SettingsServiceInterface interface {
	Load(ctx context.Context) models.SuggestionSettings
	Update(ctx context.Context, settings models.SuggestionSettings) (models.SuggestionSettings, error)
}

// AttendanceServiceInterface defines the contract for operator accounts
type AttendanceServiceInterface interface {
	Authenticate(ctx context.Context, username, password string) (*services.LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	CreateUser(ctx context.Context, req *services.CreateUserRequest) (*models.AttendanceUser, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.AttendanceUser, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req *services.UpdateUserRequest) (*models.AttendanceUser, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context) ([]models.AttendanceUser, error)
}

// SaleServiceInterface defines the contract for sale service
type SaleServiceInterface interface {
	SubmitCart(ctx context.Context, cartID string, payment services.Payment) (*models.Sale, error)
	CancelSale(ctx context.Context, id uuid.UUID, reason string, operatorID *uuid.UUID) (*models.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	ListSales(ctx context.Context, limit, offset int) ([]models.Sale, error)
	DailySummary(ctx context.Context, day time.Time) (*services.DailySummary, error)
}
