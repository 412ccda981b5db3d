package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/repositories"
	"acai-delivery-backend/pkg/cache"
	"acai-delivery-backend/pkg/events"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	catalogCacheKey    = "catalog:active"
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type ProductService struct {
	productRepo repositories.ProductRepository
	cache       *cache.RedisCache
	bus         *events.Bus
	log         *zap.Logger
	cacheTTL    time.Duration
}

func NewProductService(
	productRepo repositories.ProductRepository,
	cache *cache.RedisCache,
	bus *events.Bus,
	log *zap.Logger,
	cacheTTL time.Duration,
) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		cache:       cache,
		bus:         bus,
		log:         log,
		cacheTTL:    cacheTTL,
	}
}

type ProductRequest struct {
	Name          string           `json:"name" binding:"required"`
	Description   string           `json:"description"`
	Category      string           `json:"category" binding:"required"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Image         string           `json:"image"`
	IsActive      *bool            `json:"is_active,omitempty"`
	IsWeighable   bool             `json:"is_weighable"`
	PricePerGram  *decimal.Decimal `json:"price_per_gram,omitempty"`
}

func (r *ProductRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("%w: name and category are required", ErrInvalidProduct)
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if r.OriginalPrice != nil && r.OriginalPrice.IsNegative() {
		return fmt.Errorf("%w: original price must not be negative", ErrInvalidProduct)
	}
	if r.IsWeighable && (r.PricePerGram == nil || !r.PricePerGram.IsPositive()) {
		return fmt.Errorf("%w: weighable products need a price per gram", ErrInvalidProduct)
	}
	return nil
}

func (r *ProductRequest) apply(p *models.Product) {
	p.Name = strings.TrimSpace(r.Name)
	p.Description = r.Description
	p.Category = strings.TrimSpace(r.Category)
	p.Price = r.Price
	p.OriginalPrice = r.OriginalPrice
	if r.Image != "" {
		p.Image = r.Image
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	p.IsWeighable = r.IsWeighable
	p.PricePerGram = nil
	if r.IsWeighable {
		p.PricePerGram = r.PricePerGram
	}
}

// ListProducts returns the whole catalog, or only what is on sale.
func (s *ProductService) ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	if activeOnly {
		return s.ActiveCatalog(ctx)
	}
	return s.productRepo.List(ctx, false)
}

// ActiveCatalog is the cached list of products on sale.
func (s *ProductService) ActiveCatalog(ctx context.Context) ([]models.Product, error) {
	var cached []models.Product
	err := s.cache.Get(ctx, catalogCacheKey, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("catalog cache read failed", zap.Error(err))
	}

	products, err := s.productRepo.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}

	if err := s.cache.Set(ctx, catalogCacheKey, products, s.cacheTTL); err != nil {
		s.log.Warn("catalog cache write failed", zap.Error(err))
	}
	return products, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

// SearchProducts matches active products by name or description, ignoring case.
func (s *ProductService) SearchProducts(ctx context.Context, query string, limit int) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ActiveCatalog(ctx)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	return s.productRepo.Search(ctx, query, limit)
}

func (s *ProductService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	product := &models.Product{IsActive: true}
	req.apply(product)

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.log.Info("product created", zap.String("product_id", product.ID), zap.String("name", product.Name))
	s.catalogChanged(ctx, product.ID)
	return product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id string, req *ProductRequest) (*models.Product, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(product)

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.catalogChanged(ctx, product.ID)
	return product, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}

	s.log.Info("product deleted", zap.String("product_id", id))
	s.catalogChanged(ctx, id)
	return nil
}

// SetProductImage points the product at a stored image.
func (s *ProductService) SetProductImage(ctx context.Context, id, image string) error {
	if err := s.productRepo.SetImage(ctx, id, image); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("set product image: %w", err)
	}
	s.catalogChanged(ctx, id)
	return nil
}

func (s *ProductService) catalogChanged(ctx context.Context, productID string) {
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		s.log.Warn("catalog cache invalidation failed", zap.Error(err))
	}
	s.bus.Publish(events.TopicCatalogChanged, productID)
}

// GetProductImage returns the current image reference of a product.
func (s *ProductService) GetProductImage(ctx context.Context, id string) (string, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return "", err
	}
	return product.Image, nil
}
