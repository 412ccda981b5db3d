package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"acai-delivery-backend/internal/middleware"
	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/services"
	"acai-delivery-backend/internal/upsell"
	"acai-delivery-backend/pkg/auth"
	"acai-delivery-backend/pkg/money"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testOperatorID = "0b7f3c8e-59a4-4b8e-8f3e-7a0d2c6b9e14"

var testJWT = auth.NewJWTManager("handler-secret", 1, 1)

func newRouter(register func(*gin.RouterGroup, *middleware.AuthMiddleware)) *gin.Engine {
	r := gin.New()
	register(r.Group("/api/v1"), middleware.NewAuthMiddleware(testJWT))
	return r
}

func bearer(t *testing.T, role models.Role, caps ...models.Capability) string {
	t.Helper()
	perms := make([]string, len(caps))
	for i, c := range caps {
		perms[i] = string(c)
	}
	token, err := testJWT.GenerateToken(auth.Identity{UserID: testOperatorID, Username: "op", Role: string(role), Permissions: perms})
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

// MockCartService implements CartServiceInterface
type MockCartService struct {
	View         *services.CartView
	Err          error
	LastAdd      *services.AddItemRequest
	LastAccept   string
	LastDiscount money.Discount
	LastLineID   string
	LastAmount   decimal.Decimal
}

func (m *MockCartService) result() (*services.CartView, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.View, nil
}

func (m *MockCartService) CreateCart(context.Context) (*services.CartView, error) { return m.result() }
func (m *MockCartService) GetCart(context.Context, string) (*services.CartView, error) {
	return m.result()
}
func (m *MockCartService) DeleteCart(context.Context, string) error { return m.Err }
func (m *MockCartService) AddItem(_ context.Context, _ string, req *services.AddItemRequest) (*services.CartView, error) {
	m.LastAdd = req
	return m.result()
}
func (m *MockCartService) AddWeighedItem(context.Context, string, *services.AddWeighedItemRequest) (*services.CartView, error) {
	return m.result()
}
func (m *MockCartService) UpdateQuantity(context.Context, string, string, int) (*services.CartView, error) {
	return m.result()
}
func (m *MockCartService) RemoveLine(context.Context, string, string) (*services.CartView, error) {
	return m.result()
}
func (m *MockCartService) UpdateWeight(_ context.Context, _, lineID string, weightKg decimal.Decimal) (*services.CartView, error) {
	m.LastLineID, m.LastAmount = lineID, weightKg
	return m.result()
}
func (m *MockCartService) SetLineDiscount(_ context.Context, _, lineID string, amount decimal.Decimal) (*services.CartView, error) {
	m.LastLineID, m.LastAmount = lineID, amount
	return m.result()
}
func (m *MockCartService) SetDiscount(_ context.Context, _ string, d money.Discount) (*services.CartView, error) {
	m.LastDiscount = d
	return m.result()
}
func (m *MockCartService) ClearCart(context.Context, string) (*services.CartView, error) {
	return m.result()
}
func (m *MockCartService) AcceptSuggestion(_ context.Context, _ string, key string) (*services.CartView, error) {
	m.LastAccept = key
	return m.result()
}

// MockSuggestionService implements SuggestionServiceInterface
type MockSuggestionService struct {
	mu           sync.Mutex
	Current      upsell.Display
	List         []upsell.Suggestion
	Known        bool
	Pushed       []upsell.Display
	Ended        bool
	Unsubscribed bool
}

func (m *MockSuggestionService) Display(string) upsell.Display         { return m.Current }
func (m *MockSuggestionService) Suggestions(string) []upsell.Suggestion { return m.List }
func (m *MockSuggestionService) Dismiss(string) bool {
	m.Current.Visible = false
	return m.Known
}

// Subscribe replays Pushed to fn before returning. With Ended set the
// session is already over.
func (m *MockSuggestionService) Subscribe(_ string, fn func(upsell.Display)) (func(), <-chan struct{}, bool) {
	if !m.Known {
		return nil, nil, false
	}
	for _, d := range m.Pushed {
		fn(d)
	}
	done := make(chan struct{})
	if m.Ended {
		close(done)
	}
	return func() {
		m.mu.Lock()
		m.Unsubscribed = true
		m.mu.Unlock()
	}, done, true
}

// MockSaleService implements SaleServiceInterface
type MockSaleService struct {
	Sale        *models.Sale
	Sales       []models.Sale
	Err         error
	LastPayment services.Payment
	LastCancel  *uuid.UUID
	LastDay     time.Time
}

func (m *MockSaleService) SubmitCart(_ context.Context, _ string, payment services.Payment) (*models.Sale, error) {
	m.LastPayment = payment
	return m.Sale, m.Err
}
func (m *MockSaleService) CancelSale(_ context.Context, _ uuid.UUID, _ string, operatorID *uuid.UUID) (*models.Sale, error) {
	m.LastCancel = operatorID
	return m.Sale, m.Err
}
func (m *MockSaleService) GetSale(context.Context, uuid.UUID) (*models.Sale, error) {
	return m.Sale, m.Err
}
func (m *MockSaleService) ListSales(context.Context, int, int) ([]models.Sale, error) {
	return m.Sales, m.Err
}
func (m *MockSaleService) DailySummary(_ context.Context, day time.Time) (*services.DailySummary, error) {
	m.LastDay = day
	if m.Err != nil {
		return nil, m.Err
	}
	return &services.DailySummary{Date: day.Format(time.DateOnly), SalesCount: len(m.Sales)}, nil
}

// MockSettingsService implements SettingsServiceInterface
type MockSettingsService struct {
	Settings models.SuggestionSettings
	Err      error
}

func (m *MockSettingsService) Load(context.Context) models.SuggestionSettings { return m.Settings }
func (m *MockSettingsService) Update(_ context.Context, s models.SuggestionSettings) (models.SuggestionSettings, error) {
	if m.Err != nil {
		return models.SuggestionSettings{}, m.Err
	}
	m.Settings = s
	return s, nil
}

// MockProductService implements ProductServiceInterface
type MockProductService struct {
	Products   []models.Product
	Err        error
	ActiveOnly bool
	Query      string
}

func (m *MockProductService) ListProducts(_ context.Context, activeOnly bool) ([]models.Product, error) {
	m.ActiveOnly = activeOnly
	return m.Products, m.Err
}
func (m *MockProductService) GetProduct(_ context.Context, id string) (*models.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.Products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, services.ErrProductNotFound
}
func (m *MockProductService) SearchProducts(_ context.Context, query string, _ int) ([]models.Product, error) {
	m.Query = query
	return m.Products, m.Err
}
func (m *MockProductService) CreateProduct(_ context.Context, req *services.ProductRequest) (*models.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.Product{ID: "new", Name: req.Name, Category: req.Category, Price: req.Price, IsActive: true}, nil
}
func (m *MockProductService) UpdateProduct(_ context.Context, id string, req *services.ProductRequest) (*models.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.Product{ID: id, Name: req.Name}, nil
}
func (m *MockProductService) DeleteProduct(context.Context, string) error { return m.Err }

// MockImageService implements ImageServiceInterface
type MockImageService struct {
	Data     []byte
	Uploaded []byte
	Err      error
}

func (m *MockImageService) MaxUploadBytes() int64 { return 1024 }
func (m *MockImageService) UploadProductImage(_ context.Context, productID string, data []byte) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.Uploaded = data
	return services.ImageURLPrefix + "img-" + productID, nil
}
func (m *MockImageService) OpenImage(_ context.Context, id string) (io.ReadCloser, error) {
	if m.Data == nil {
		return nil, services.ErrImageNotFound
	}
	return io.NopCloser(bytes.NewReader(m.Data)), nil
}

// MockAttendanceService implements AttendanceServiceInterface
type MockAttendanceService struct {
	Users   []models.AttendanceUser
	Login   *services.LoginResponse
	Tokens  *auth.TokenPair
	Err     error
	Deleted []uuid.UUID
}

func (m *MockAttendanceService) Authenticate(context.Context, string, string) (*services.LoginResponse, error) {
	return m.Login, m.Err
}
func (m *MockAttendanceService) RefreshToken(context.Context, string) (*auth.TokenPair, error) {
	return m.Tokens, m.Err
}
func (m *MockAttendanceService) CreateUser(_ context.Context, req *services.CreateUserRequest) (*models.AttendanceUser, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.AttendanceUser{ID: uuid.New(), Username: req.Username, Name: req.Name, Role: models.RoleAttendant}, nil
}
func (m *MockAttendanceService) GetUser(_ context.Context, id uuid.UUID) (*models.AttendanceUser, error) {
	for _, u := range m.Users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, services.ErrUserNotFound
}
func (m *MockAttendanceService) UpdateUser(ctx context.Context, id uuid.UUID, _ *services.UpdateUserRequest) (*models.AttendanceUser, error) {
	return m.GetUser(ctx, id)
}
func (m *MockAttendanceService) DeleteUser(_ context.Context, id uuid.UUID) error {
	m.Deleted = append(m.Deleted, id)
	return m.Err
}
func (m *MockAttendanceService) ListUsers(context.Context) ([]models.AttendanceUser, error) {
	return m.Users, m.Err
}
