package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/services"
	"acai-delivery-backend/pkg/auth"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_Login(t *testing.T) {
	svc := &MockAttendanceService{Login: &services.LoginResponse{
		User:   &models.AttendanceUser{Username: "maria"},
		Tokens: &auth.TokenPair{AccessToken: "a", RefreshToken: "r"},
	}}
	r := newRouter(NewAuthHandler(svc).RegisterRoutes)

	w := doJSON(r, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Username: "maria", Password: "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"a"`)
	assert.NotContains(t, w.Body.String(), "password")

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/api/v1/auth/login", "", map[string]string{}).Code)

	svc.Err = services.ErrInvalidCredentials
	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Username: "maria", Password: "x"}).Code)
	svc.Err = services.ErrUserInactive
	assert.Equal(t, http.StatusForbidden, doJSON(r, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Username: "maria", Password: "x"}).Code)
}

func TestAuthHandler_Me(t *testing.T) {
	r := newRouter(NewAuthHandler(&MockAttendanceService{}).RegisterRoutes)

	w := doJSON(r, http.MethodGet, "/api/v1/auth/me", bearer(t, models.RoleAttendant, models.CapViewSales), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var id auth.Identity
	decode(t, w, &id)
	assert.Equal(t, testOperatorID, id.UserID)
	assert.Equal(t, []string{string(models.CapViewSales)}, id.Permissions)
}

func TestAuthHandler_UsersAreAdminOnly(t *testing.T) {
	existing := models.AttendanceUser{ID: uuid.New(), Username: "bia"}
	svc := &MockAttendanceService{Users: []models.AttendanceUser{existing}}
	r := newRouter(NewAuthHandler(svc).RegisterRoutes)

	assert.Equal(t, http.StatusForbidden, doJSON(r, http.MethodGet, "/api/v1/attendance/users", bearer(t, models.RoleAttendant), nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/api/v1/attendance/users", bearer(t, models.RoleAdmin), nil).Code)

	body := services.CreateUserRequest{Username: "ana", Password: "secret1", Name: "Ana"}
	assert.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/api/v1/attendance/users", bearer(t, models.RoleAdmin), body).Code)

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodPut, "/api/v1/attendance/users/"+existing.ID.String(), bearer(t, models.RoleAdmin), services.UpdateUserRequest{}).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, "/api/v1/attendance/users/"+uuid.NewString(), bearer(t, models.RoleAdmin), nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/api/v1/attendance/users/not-a-uuid", bearer(t, models.RoleAdmin), nil).Code)

	assert.Equal(t, http.StatusNoContent, doJSON(r, http.MethodDelete, "/api/v1/attendance/users/"+existing.ID.String(), bearer(t, models.RoleAdmin), nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodDelete, "/api/v1/attendance/users/"+testOperatorID, bearer(t, models.RoleAdmin), nil).Code)
	assert.Equal(t, []uuid.UUID{existing.ID}, svc.Deleted)

	svc.Err = services.ErrUsernameTaken
	assert.Equal(t, http.StatusConflict, doJSON(r, http.MethodPost, "/api/v1/attendance/users", bearer(t, models.RoleAdmin), body).Code)
}

func TestSettingsHandler(t *testing.T) {
	svc := &MockSettingsService{Settings: models.DefaultSuggestionSettings()}
	r := newRouter(NewSettingsHandler(svc).RegisterRoutes)

	w := doJSON(r, http.MethodGet, "/api/v1/settings/suggestions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"enabled":true,"show_in_cart":true,"effective":true}`, w.Body.String())

	body := map[string]bool{"enabled": true, "show_in_cart": false}
	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodPut, "/api/v1/settings/suggestions", "", body).Code)
	assert.Equal(t, http.StatusForbidden, doJSON(r, http.MethodPut, "/api/v1/settings/suggestions", bearer(t, models.RoleAttendant), body).Code)

	w = doJSON(r, http.MethodPut, "/api/v1/settings/suggestions", bearer(t, models.RoleAttendant, models.CapManageSettings), body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"enabled":true,"show_in_cart":false,"effective":false}`, w.Body.String())

	w = doJSON(r, http.MethodPut, "/api/v1/settings/suggestions", bearer(t, models.RoleAdmin), map[string]bool{"enabled": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaleHandler(t *testing.T) {
	sale := &models.Sale{ID: uuid.New(), Status: models.SaleCancelled}
	svc := &MockSaleService{Sale: sale, Sales: []models.Sale{*sale}}
	r := newRouter(NewSaleHandler(svc).RegisterRoutes)
	path := "/api/v1/sales/" + sale.ID.String()

	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodGet, "/api/v1/sales", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, doJSON(r, http.MethodGet, "/api/v1/sales", bearer(t, models.RoleAttendant), nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/api/v1/sales", bearer(t, models.RoleAttendant, models.CapViewSales), nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, path, bearer(t, models.RoleAttendant, models.CapViewSales), nil).Code)

	cancel := services.CancelSaleRequest{Reason: "erro de digitação"}
	assert.Equal(t, http.StatusForbidden, doJSON(r, http.MethodPost, path+"/cancel", bearer(t, models.RoleAttendant, models.CapViewSales), cancel).Code)

	w := doJSON(r, http.MethodPost, path+"/cancel", bearer(t, models.RoleAttendant, models.CapCancel), cancel)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.LastCancel)
	assert.Equal(t, testOperatorID, svc.LastCancel.String())

	svc.Err = services.ErrSaleAlreadyCancelled
	assert.Equal(t, http.StatusConflict, doJSON(r, http.MethodPost, path+"/cancel", bearer(t, models.RoleAdmin), cancel).Code)
	svc.Err = services.ErrSaleNotFound
	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, path, bearer(t, models.RoleAdmin), nil).Code)
}

func TestSaleHandler_DailySummary(t *testing.T) {
	svc := &MockSaleService{Sales: []models.Sale{{ID: uuid.New()}}}
	r := newRouter(NewSaleHandler(svc).RegisterRoutes)

	assert.Equal(t, http.StatusForbidden, doJSON(r, http.MethodGet, "/api/v1/sales/summary", bearer(t, models.RoleAttendant, models.CapViewSales), nil).Code)

	token := bearer(t, models.RoleAttendant, models.CapViewCashReport)
	w := doJSON(r, http.MethodGet, "/api/v1/sales/summary?date=2024-03-01", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-03-01", svc.LastDay.Format(time.DateOnly))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "2024-03-01", body["date"])
	assert.EqualValues(t, 1, body["sales_count"])

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/api/v1/sales/summary?date=01/03/2024", token, nil).Code)
}
