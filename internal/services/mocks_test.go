package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/repositories"
	"acai-delivery-backend/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisCacheFromClient(client), mr
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var testLog = zap.NewNop()

// MockProductRepository implements repositories.ProductRepository in memory
type MockProductRepository struct {
	mu       sync.RWMutex
	products map[string]models.Product
	nextID   int
	ListErr  error
	Lists    int
}

func NewMockProductRepository(products ...models.Product) *MockProductRepository {
	m := &MockProductRepository{products: make(map[string]models.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *MockProductRepository) Create(_ context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	product.ID = fmt.Sprintf("p%d", m.nextID)
	m.products[product.ID] = *product
	return nil
}

func (m *MockProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (m *MockProductRepository) Update(_ context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return repositories.ErrNotFound
	}
	m.products[product.ID] = *product
	return nil
}

func (m *MockProductRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *MockProductRepository) List(_ context.Context, activeOnly bool) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lists++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockProductRepository) Search(ctx context.Context, query string, limit int) ([]models.Product, error) {
	all, err := m.List(ctx, true)
	if err != nil {
		return nil, err
	}
	var out []models.Product
	for _, p := range all {
		if containsFold(p.Name, query) || containsFold(p.Description, query) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockProductRepository) SetImage(_ context.Context, id, image string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Image = image
	m.products[id] = p
	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// MockImageStore implements repositories.ImageStore in memory
type MockImageStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	SaveErr error
}

func NewMockImageStore() *MockImageStore {
	return &MockImageStore{files: make(map[string][]byte)}
}

func (m *MockImageStore) Save(_ context.Context, _, _ string, data []byte) (string, error) {
	if m.SaveErr != nil {
		return "", m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.files[id] = append([]byte(nil), data...)
	return id, nil
}

func (m *MockImageStore) Open(_ context.Context, id string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockImageStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.files, id)
	return nil
}

func (m *MockImageStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// MockUserRepository implements repositories.AttendanceUserRepository
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.AttendanceUser
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[uuid.UUID]models.AttendanceUser)}
}

func (m *MockUserRepository) Create(_ context.Context, user *models.AttendanceUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = *user
	return nil
}

func (m *MockUserRepository) GetByID(_ context.Context, id uuid.UUID) (*models.AttendanceUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (m *MockUserRepository) GetByUsername(_ context.Context, username string) (*models.AttendanceUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *MockUserRepository) Update(_ context.Context, user *models.AttendanceUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MockUserRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MockUserRepository) List(_ context.Context) ([]models.AttendanceUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AttendanceUser, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *MockUserRepository) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

// MockSaleRepository implements repositories.SaleRepository
type MockSaleRepository struct {
	mu        sync.RWMutex
	sales     map[uuid.UUID]models.Sale
	order     []uuid.UUID
	CreateErr error
}

func NewMockSaleRepository() *MockSaleRepository {
	return &MockSaleRepository{sales: make(map[uuid.UUID]models.Sale)}
}

func (m *MockSaleRepository) Create(_ context.Context, sale *models.Sale) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales[sale.ID] = *sale
	m.order = append(m.order, sale.ID)
	return nil
}

func (m *MockSaleRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sales[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (m *MockSaleRepository) List(_ context.Context, limit, offset int) ([]models.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Sale
	for i := len(m.order) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.sales[m.order[i]])
	}
	return out, nil
}

func (m *MockSaleRepository) ListBetween(_ context.Context, from, to time.Time) ([]models.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Sale
	for _, id := range m.order {
		s := m.sales[id]
		if !s.CreatedAt.Before(from) && s.CreatedAt.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockSaleRepository) Cancel(_ context.Context, id uuid.UUID, reason string, by *uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok || s.Status != models.SaleCompleted {
		return false, nil
	}
	s.Status = models.SaleCancelled
	s.CancelReason = reason
	s.CancelledBy = by
	s.CancelledAt = &at
	m.sales[id] = s
	return true, nil
}

// MockSettingsRepository implements repositories.SettingsRepository
type MockSettingsRepository struct {
	mu      sync.Mutex
	row     *models.OrderSettings
	GetErr  error
	SaveErr error
}

func (m *MockSettingsRepository) Get(_ context.Context) (*models.OrderSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.row == nil {
		return nil, repositories.ErrNotFound
	}
	row := *m.row
	return &row, nil
}

func (m *MockSettingsRepository) Save(_ context.Context, settings *models.OrderSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	row := *settings
	m.row = &row
	return nil
}

type sentMessage struct {
	Topic string
	Key   string
	Value interface{}
}

// MockPublisher records messages instead of sending them to Kafka
type MockPublisher struct {
	mu   sync.Mutex
	Sent []sentMessage
	Err  error
}

func (m *MockPublisher) SendMessage(_ context.Context, topic, key string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, sentMessage{Topic: topic, Key: key, Value: value})
	return nil
}

func (m *MockPublisher) Messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.Sent...)
}

// fixedSettings is a SettingsProvider returning the same switches.
type fixedSettings models.SuggestionSettings

func (f fixedSettings) Load(context.Context) models.SuggestionSettings {
	return models.SuggestionSettings(f)
}

func testProduct(id, name, category, p string) models.Product {
	return models.Product{ID: id, Name: name, Category: category, Price: price(p), IsActive: true}
}

func testCatalog() []models.Product {
	return []models.Product{
		testProduct("acai300", "Açaí 300g", "acai", "14.50"),
		testProduct("acai500", "Açaí 500g", "acai", "19.90"),
		testProduct("combo", "Combo Casal", "combo", "39.90"),
		testProduct("coco", "Água de coco", "bebidas", "6.00"),
	}
}
