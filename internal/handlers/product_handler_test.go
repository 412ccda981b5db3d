package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProductRouter(products *MockProductService, images *MockImageService) *gin.Engine {
	return newRouter(NewProductHandler(products, images).RegisterRoutes)
}

func TestProductHandler_ListAndSearch(t *testing.T) {
	products := &MockProductService{Products: []models.Product{{ID: "p1", Name: "Açaí 300g", Price: decimal.RequireFromString("14.50")}}}
	r := newProductRouter(products, &MockImageService{})

	w := doJSON(r, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, products.ActiveOnly)

	w = doJSON(r, http.MethodGet, "/api/v1/products?q=acai", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acai", products.Query)

	w = doJSON(r, http.MethodGet, "/api/v1/products?include_inactive=true", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/products?include_inactive=true", bearer(t, models.RoleAttendant, models.CapManageProducts), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, products.ActiveOnly)
}

func TestProductHandler_GetProduct(t *testing.T) {
	r := newProductRouter(&MockProductService{Products: []models.Product{{ID: "p1"}}}, &MockImageService{})

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/api/v1/products/p1", "", nil).Code)

	w := doJSON(r, http.MethodGet, "/api/v1/products/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, services.ErrProductNotFound.Error(), resp.Message)
}

func TestProductHandler_WritesNeedPermission(t *testing.T) {
	products := &MockProductService{}
	r := newProductRouter(products, &MockImageService{})
	body := services.ProductRequest{Name: "Açaí 1L", Category: "acai", Price: decimal.RequireFromString("32.00")}

	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodPost, "/api/v1/products", "", body).Code)
	assert.Equal(t, http.StatusForbidden, doJSON(r, http.MethodPost, "/api/v1/products", bearer(t, models.RoleAttendant), body).Code)
	assert.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/api/v1/products", bearer(t, models.RoleAdmin), body).Code)

	products.Err = services.ErrInvalidProduct
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPut, "/api/v1/products/p1", bearer(t, models.RoleAdmin), body).Code)

	products.Err = nil
	assert.Equal(t, http.StatusNoContent, doJSON(r, http.MethodDelete, "/api/v1/products/p1", bearer(t, models.RoleAdmin), nil).Code)
}

func multipartImage(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "photo.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestProductHandler_UploadImage(t *testing.T) {
	images := &MockImageService{}
	r := newProductRouter(&MockProductService{}, images)

	upload := func(field string, data []byte) *httptest.ResponseRecorder {
		body, contentType := multipartImage(t, field, data)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products/p1/image", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", bearer(t, models.RoleAdmin))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := upload(imageFormField, []byte("png-bytes"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("png-bytes"), images.Uploaded)
	assert.Contains(t, w.Body.String(), services.ImageURLPrefix+"img-p1")

	assert.Equal(t, http.StatusBadRequest, upload("file", []byte("x")).Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, upload(imageFormField, bytes.Repeat([]byte("x"), 2048)).Code)

	images.Err = services.ErrUnsupportedImage
	assert.Equal(t, http.StatusUnsupportedMediaType, upload(imageFormField, []byte("text")).Code)
}

func TestProductHandler_GetImage(t *testing.T) {
	images := &MockImageService{}
	r := newProductRouter(&MockProductService{}, images)

	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, "/api/v1/images/abc", "", nil).Code)

	images.Data = []byte{0xff, 0xd8, 0xff}
	w := doJSON(r, http.MethodGet, "/api/v1/images/abc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, images.Data, w.Body.Bytes())
}
