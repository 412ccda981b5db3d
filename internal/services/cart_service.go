package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"acai-delivery-backend/internal/cart"
	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/upsell"
	"acai-delivery-backend/pkg/cache"
	"acai-delivery-backend/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const cartKeyPrefix = "cart"

// productLookup is the part of ProductService the cart needs.
type productLookup interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

type CartService struct {
	cache       *cache.RedisCache
	products    productLookup
	suggestions *SuggestionService
	complements map[string]money.Complement
	ttl         time.Duration
	log         *zap.Logger
	locks       keyedMutex
}

// NewCartService prices requested complements from paidComplements; any
// other complement is free.
func NewCartService(
	cache *cache.RedisCache,
	products productLookup,
	suggestions *SuggestionService,
	paidComplements []money.Complement,
	ttl time.Duration,
	log *zap.Logger,
) *CartService {
	priced := make(map[string]money.Complement, len(paidComplements))
	for _, c := range paidComplements {
		priced[models.NormalizeComplementName(c.Name)] = c
	}
	return &CartService{
		cache:       cache,
		products:    products,
		suggestions: suggestions,
		complements: priced,
		ttl:         ttl,
		log:         log,
		locks:       keyedMutex{locks: make(map[string]*refMutex)},
	}
}

type CartView struct {
	ID          string         `json:"id"`
	Lines       []cart.Line    `json:"lines"`
	Summary     cart.Summary   `json:"summary"`
	Suggestions upsell.Display `json:"suggestions"`
}

type AddItemRequest struct {
	ProductID    string   `json:"product_id" binding:"required"`
	Quantity     int      `json:"quantity"`
	Complements  []string `json:"complements"`
	Observations string   `json:"observations"`
}

type AddWeighedItemRequest struct {
	ProductID    string          `json:"product_id" binding:"required"`
	WeightKg     decimal.Decimal `json:"weight_kg"`
	Complements  []string        `json:"complements"`
	Observations string          `json:"observations"`
}

func (s *CartService) CreateCart(ctx context.Context) (*CartView, error) {
	id := uuid.NewString()
	c := cart.New()
	if err := s.save(ctx, id, c); err != nil {
		return nil, err
	}
	s.log.Debug("cart created", zap.String("cart_id", id))
	return s.view(id, c), nil
}

func (s *CartService) GetCart(ctx context.Context, id string) (*CartView, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Touch(ctx, cartKey(id), s.ttl); err != nil {
		s.log.Warn("cart ttl refresh failed", zap.String("cart_id", id), zap.Error(err))
	}
	if !s.suggestions.HasSession(id) {
		s.suggestions.Refresh(ctx, id, c.Lines())
	}
	return s.view(id, c), nil
}

func (s *CartService) DeleteCart(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.cache.DeleteWithPrefix(ctx, cartKeyPrefix, id); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	s.suggestions.Forget(id)
	return nil
}

func (s *CartService) AddItem(ctx context.Context, id string, req *AddItemRequest) (*CartView, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.availableProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product.IsWeighable {
		return nil, fmt.Errorf("%w: weighable products are added by weight", ErrInvalidQuantity)
	}

	complements := s.resolveComplements(req.Complements)
	return s.mutate(ctx, id, func(c *cart.Cart) error {
		c.AddOrMerge(*product, req.Quantity, complements, req.Observations)
		return nil
	})
}

func (s *CartService) AddWeighedItem(ctx context.Context, id string, req *AddWeighedItemRequest) (*CartView, error) {
	if !req.WeightKg.IsPositive() {
		return nil, ErrInvalidWeight
	}
	product, err := s.availableProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsWeighable || product.PricePerGram == nil {
		return nil, ErrNotWeighable
	}

	complements := s.resolveComplements(req.Complements)
	return s.mutate(ctx, id, func(c *cart.Cart) error {
		c.AddWeighed(*product, req.WeightKg, complements, req.Observations)
		return nil
	})
}

// UpdateQuantity sets a line quantity; zero or less removes the line.
// Unknown lines are left alone.
func (s *CartService) UpdateQuantity(ctx context.Context, id, lineID string, quantity int) (*CartView, error) {
	return s.mutate(ctx, id, func(c *cart.Cart) error {
		c.UpdateQuantity(lineID, quantity)
		return nil
	})
}

func (s *CartService) RemoveLine(ctx context.Context, id, lineID string) (*CartView, error) {
	return s.mutate(ctx, id, func(c *cart.Cart) error {
		c.RemoveLine(lineID)
		return nil
	})
}

// UpdateWeight re-weighs a weighed line and reprices it.
func (s *CartService) UpdateWeight(ctx context.Context, id, lineID string, weightKg decimal.Decimal) (*CartView, error) {
	if !weightKg.IsPositive() {
		return nil, ErrInvalidWeight
	}
	return s.mutate(ctx, id, func(c *cart.Cart) error {
		l, ok := c.Line(lineID)
		if !ok {
			return ErrLineNotFound
		}
		if l.WeightKg == nil {
			return ErrNotWeighable
		}
		c.UpdateWeight(lineID, weightKg)
		return nil
	})
}

// SetLineDiscount sets a flat discount on one line.
func (s *CartService) SetLineDiscount(ctx context.Context, id, lineID string, amount decimal.Decimal) (*CartView, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidDiscount)
	}
	return s.mutate(ctx, id, func(c *cart.Cart) error {
		if !c.SetLineDiscount(lineID, amount) {
			return ErrLineNotFound
		}
		return nil
	})
}

func (s *CartService) SetDiscount(ctx context.Context, id string, d money.Discount) (*CartView, error) {
	if err := validateDiscount(d); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(c *cart.Cart) error {
		c.SetDiscount(d)
		return nil
	})
}

func (s *CartService) ClearCart(ctx context.Context, id string) (*CartView, error) {
	return s.mutate(ctx, id, func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

// AcceptSuggestion adds the suggested product, or attaches the suggested
// complement to the first line of its anchor category.
func (s *CartService) AcceptSuggestion(ctx context.Context, id, key string) (*CartView, error) {
	var accepted *upsell.Suggestion
	for _, sug := range s.suggestions.Suggestions(id) {
		if sug.Offer != nil && sug.Offer.EntryKey() == key {
			sug := sug
			accepted = &sug
			break
		}
	}
	if accepted == nil {
		return nil, ErrSuggestionNotFound
	}

	if offer, ok := accepted.Complement(); ok {
		return s.mutate(ctx, id, func(c *cart.Cart) error {
			for _, l := range c.Lines() {
				if l.Product.Category == offer.AnchorCategory && !l.HasComplement(offer.Name) {
					c.AttachComplement(l.ID, money.Complement{Name: offer.Name, Price: offer.Price})
					return nil
				}
			}
			return ErrNoAnchorLine
		})
	}

	offered, _ := accepted.Product()
	product, err := s.availableProduct(ctx, offered.ID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(c *cart.Cart) error {
		c.AddOrMerge(*product, 1, nil, "")
		return nil
	})
}

// Checkout hands the cart to fn under the cart lock and deletes the
// session once fn succeeds, so a cart is submitted at most once.
func (s *CartService) Checkout(ctx context.Context, id string, fn func(c *cart.Cart) error) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}

	if err := s.cache.DeleteWithPrefix(ctx, cartKeyPrefix, id); err != nil {
		s.log.Warn("checked out cart not deleted", zap.String("cart_id", id), zap.Error(err))
	}
	s.suggestions.Forget(id)
	return nil
}

func (s *CartService) mutate(ctx context.Context, id string, fn func(c *cart.Cart) error) (*CartView, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	before := c.Lines()
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.save(ctx, id, c); err != nil {
		return nil, err
	}

	// Discounts, notes and unknown line ids leave the suggestions and any
	// dismissal as they are.
	if after := c.Lines(); !cart.SameContent(before, after) || !s.suggestions.HasSession(id) {
		s.suggestions.Refresh(ctx, id, after)
	}
	return s.view(id, c), nil
}

func (s *CartService) view(id string, c *cart.Cart) *CartView {
	return &CartView{
		ID:          id,
		Lines:       c.Lines(),
		Summary:     c.Summary(),
		Suggestions: s.suggestions.Display(id),
	}
}

func (s *CartService) load(ctx context.Context, id string) (*cart.Cart, error) {
	c := cart.New()
	err := s.cache.GetWithPrefix(ctx, cartKeyPrefix, id, c)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return c, nil
}

func (s *CartService) save(ctx context.Context, id string, c *cart.Cart) error {
	if err := s.cache.SetWithPrefix(ctx, cartKeyPrefix, id, c, s.ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *CartService) availableProduct(ctx context.Context, productID string) (*models.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductUnavailable
	}
	return product, nil
}

func (s *CartService) resolveComplements(names []string) []money.Complement {
	var out []money.Complement
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if paid, ok := s.complements[models.NormalizeComplementName(name)]; ok {
			out = append(out, paid)
			continue
		}
		out = append(out, money.Complement{Name: name, Price: decimal.Zero})
	}
	return out
}

func validateDiscount(d money.Discount) error {
	switch d.Type {
	case "", money.DiscountNone:
		return nil
	case money.DiscountPercentage:
		if d.Value.IsNegative() || d.Value.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%w: percentage must be between 0 and 100", ErrInvalidDiscount)
		}
	case money.DiscountAmount:
		if d.Value.IsNegative() {
			return fmt.Errorf("%w: amount must not be negative", ErrInvalidDiscount)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidDiscount, d.Type)
	}
	return nil
}

func cartKey(id string) string {
	return cartKeyPrefix + ":" + id
}

type refMutex struct {
	sync.Mutex
	refs int
}

// keyedMutex serialises work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
