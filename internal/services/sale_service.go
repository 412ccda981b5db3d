package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"acai-delivery-backend/internal/cart"
	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/repositories"
	"acai-delivery-backend/pkg/messaging"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultSalesLimit = 50
	maxSalesLimit     = 200
)

// cartCheckout is the part of CartService a sale needs.
type cartCheckout interface {
	Checkout(ctx context.Context, id string, fn func(c *cart.Cart) error) error
}

type SaleService struct {
	saleRepo  repositories.SaleRepository
	carts     cartCheckout
	publisher EventPublisher
	topic     string
	log       *zap.Logger
	now       func() time.Time
}

func NewSaleService(saleRepo repositories.SaleRepository, carts cartCheckout, publisher EventPublisher, topic string, log *zap.Logger) *SaleService {
	return &SaleService{
		saleRepo:  saleRepo,
		carts:     carts,
		publisher: publisher,
		topic:     topic,
		log:       log,
		now:       time.Now,
	}
}

// Payment describes how a cart is being paid for. Split divides the total
// into parts paid separately; the parts must add up to the total.
type Payment struct {
	Channel       models.SaleChannel   `json:"channel"`
	Method        models.PaymentMethod `json:"payment_method" binding:"required"`
	ChangeFor     *decimal.Decimal     `json:"change_for,omitempty"`
	Split         []decimal.Decimal    `json:"split,omitempty"`
	CustomerName  string               `json:"customer_name"`
	CustomerPhone string               `json:"customer_phone"`
	OperatorID    *uuid.UUID           `json:"-"`
}

type CancelSaleRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (p *Payment) validate(total decimal.Decimal) error {
	if p.Channel == "" {
		p.Channel = models.ChannelPDV
	}
	switch p.Channel {
	case models.ChannelPDV, models.ChannelDelivery, models.ChannelManual:
	default:
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidPayment, p.Channel)
	}
	if !p.Method.Valid() {
		return ErrInvalidPayment
	}
	if p.ChangeFor != nil {
		if p.Method != models.PaymentCash {
			return fmt.Errorf("%w: change only applies to cash", ErrInvalidPayment)
		}
		if p.ChangeFor.LessThan(total) {
			return ErrInsufficientPayment
		}
	}
	if len(p.Split) > 0 {
		return validateSplit(p.Split, total)
	}
	return nil
}

func validateSplit(parts []decimal.Decimal, total decimal.Decimal) error {
	if len(parts) < 2 {
		return fmt.Errorf("%w: a split needs at least two parts", ErrInvalidPayment)
	}
	sum := decimal.Zero
	for _, part := range parts {
		if !part.IsPositive() {
			return fmt.Errorf("%w: split parts must be positive", ErrInvalidPayment)
		}
		sum = sum.Add(part)
	}
	if !sum.Round(2).Equal(total.Round(2)) {
		return fmt.Errorf("%w: split adds up to %s, total is %s", ErrInvalidPayment, sum.StringFixed(2), total.StringFixed(2))
	}
	return nil
}

// SubmitCart turns the cart into a completed sale and clears the cart
// session. It returns the new sale.
func (s *SaleService) SubmitCart(ctx context.Context, cartID string, payment Payment) (*models.Sale, error) {
	var sale *models.Sale
	err := s.carts.Checkout(ctx, cartID, func(c *cart.Cart) error {
		if c.IsEmpty() {
			return ErrEmptyCart
		}
		summary := c.Summary()
		if err := payment.validate(summary.Total); err != nil {
			return err
		}

		sale = newSale(cartID, c, payment, s.now())
		if err := s.saleRepo.Create(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sale registered",
		zap.String("sale_id", sale.ID.String()),
		zap.String("cart_id", cartID),
		zap.String("total", sale.Total.StringFixed(2)),
	)
	s.publish(ctx, sale, messaging.SaleCreated, "")
	return sale, nil
}

func newSale(cartID string, c *cart.Cart, payment Payment, at time.Time) *models.Sale {
	summary := c.Summary()
	sale := &models.Sale{
		ID:             uuid.New(),
		CartID:         cartID,
		Channel:        payment.Channel,
		OperatorID:     payment.OperatorID,
		CustomerName:   strings.TrimSpace(payment.CustomerName),
		CustomerPhone:  strings.TrimSpace(payment.CustomerPhone),
		PaymentMethod:  payment.Method,
		ChangeFor:      payment.ChangeFor,
		Subtotal:       summary.Subtotal,
		DiscountAmount: summary.DiscountAmount,
		Total:          summary.Total,
		Status:         models.SaleCompleted,
		CreatedAt:      at,
	}
	if len(payment.Split) > 0 {
		sale.SplitAmounts = models.AmountList(payment.Split)
	}
	for _, l := range c.Lines() {
		sale.Items = append(sale.Items, models.SaleItem{
			ID:           uuid.New(),
			SaleID:       sale.ID,
			ProductID:    l.Product.ID,
			ProductName:  l.Product.Name,
			Quantity:     l.Quantity,
			WeightKg:     l.WeightKg,
			UnitPrice:    l.UnitPrice,
			Complements:  models.ComplementList(l.SelectedComplements),
			Observations: l.Observations,
			Discount:     l.Discount,
			TotalPrice:   l.TotalPrice,
		})
	}
	return sale
}

// CancelSale cancels a completed sale. A sale is cancelled at most once.
func (s *SaleService) CancelSale(ctx context.Context, id uuid.UUID, reason string, operatorID *uuid.UUID) (*models.Sale, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrInvalidCancelReason
	}

	cancelled, err := s.saleRepo.Cancel(ctx, id, reason, operatorID, s.now())
	if err != nil {
		return nil, fmt.Errorf("cancel sale: %w", err)
	}
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, ErrSaleAlreadyCancelled
	}

	s.log.Info("sale cancelled", zap.String("sale_id", id.String()), zap.String("reason", reason))
	s.publish(ctx, sale, messaging.SaleCancelled, reason)
	return sale, nil
}

func (s *SaleService) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	sale, err := s.saleRepo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrSaleNotFound
	}
	return sale, err
}

// ListSales returns the most recent sales first.
func (s *SaleService) ListSales(ctx context.Context, limit, offset int) ([]models.Sale, error) {
	if limit <= 0 {
		limit = defaultSalesLimit
	}
	if limit > maxSalesLimit {
		limit = maxSalesLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.saleRepo.List(ctx, limit, offset)
}

// MethodTotal aggregates the completed sales of one payment method.
type MethodTotal struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// DailySummary closes the cash register for one day.
type DailySummary struct {
	Date           string                                 `json:"date"`
	SalesCount     int                                    `json:"sales_count"`
	CancelledCount int                                    `json:"cancelled_count"`
	Subtotal       decimal.Decimal                        `json:"subtotal"`
	DiscountAmount decimal.Decimal                        `json:"discount_amount"`
	Total          decimal.Decimal                        `json:"total"`
	CancelledTotal decimal.Decimal                        `json:"cancelled_total"`
	ByMethod       map[models.PaymentMethod]MethodTotal   `json:"by_method"`
	ByChannel      map[models.SaleChannel]decimal.Decimal `json:"by_channel"`
}

// DailySummary totals the sales of the calendar day holding day, in day's
// location. Cancelled sales are counted apart and left out of the totals.
func (s *SaleService) DailySummary(ctx context.Context, day time.Time) (*DailySummary, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	sales, err := s.saleRepo.ListBetween(ctx, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	summary := &DailySummary{
		Date:           from.Format(time.DateOnly),
		Subtotal:       decimal.Zero,
		DiscountAmount: decimal.Zero,
		Total:          decimal.Zero,
		CancelledTotal: decimal.Zero,
		ByMethod:       make(map[models.PaymentMethod]MethodTotal),
		ByChannel:      make(map[models.SaleChannel]decimal.Decimal),
	}
	for _, sale := range sales {
		if sale.Status == models.SaleCancelled {
			summary.CancelledCount++
			summary.CancelledTotal = summary.CancelledTotal.Add(sale.Total)
			continue
		}
		summary.SalesCount++
		summary.Subtotal = summary.Subtotal.Add(sale.Subtotal)
		summary.DiscountAmount = summary.DiscountAmount.Add(sale.DiscountAmount)
		summary.Total = summary.Total.Add(sale.Total)

		m := summary.ByMethod[sale.PaymentMethod]
		m.Count++
		m.Total = m.Total.Add(sale.Total)
		summary.ByMethod[sale.PaymentMethod] = m
		summary.ByChannel[sale.Channel] = summary.ByChannel[sale.Channel].Add(sale.Total)
	}
	return summary, nil
}

// publish is best effort: the sale is already committed.
func (s *SaleService) publish(ctx context.Context, sale *models.Sale, eventType, reason string) {
	if s.publisher == nil {
		return
	}
	event := messaging.SaleEvent{
		Type:          eventType,
		SaleID:        sale.ID.String(),
		Channel:       string(sale.Channel),
		PaymentMethod: string(sale.PaymentMethod),
		Total:         sale.Total,
		ItemCount:     len(sale.Items),
		Reason:        reason,
		OccurredAt:    s.now(),
	}
	if sale.OperatorID != nil {
		event.OperatorID = sale.OperatorID.String()
	}
	if err := s.publisher.SendMessage(ctx, s.topic, sale.ID.String(), event); err != nil {
		s.log.Error("sale event not published",
			zap.String("sale_id", sale.ID.String()),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}
