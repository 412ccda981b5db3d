package handlers

import (
	"errors"
	"net/http"

	"acai-delivery-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{services.ErrProductNotFound, http.StatusNotFound},
	{services.ErrCartNotFound, http.StatusNotFound},
	{services.ErrLineNotFound, http.StatusNotFound},
	{services.ErrSuggestionNotFound, http.StatusNotFound},
	{services.ErrImageNotFound, http.StatusNotFound},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrSaleNotFound, http.StatusNotFound},
	{services.ErrUsernameTaken, http.StatusConflict},
	{services.ErrSaleAlreadyCancelled, http.StatusConflict},
	{services.ErrInvalidCredentials, http.StatusUnauthorized},
	{services.ErrUserInactive, http.StatusForbidden},
	{services.ErrImageTooLarge, http.StatusRequestEntityTooLarge},
	{services.ErrUnsupportedImage, http.StatusUnsupportedMediaType},
	{services.ErrProductUnavailable, http.StatusUnprocessableEntity},
	{services.ErrNoAnchorLine, http.StatusUnprocessableEntity},
	{services.ErrEmptyCart, http.StatusUnprocessableEntity},
	{services.ErrInsufficientPayment, http.StatusUnprocessableEntity},
	{services.ErrInvalidProduct, http.StatusBadRequest},
	{services.ErrNotWeighable, http.StatusBadRequest},
	{services.ErrInvalidQuantity, http.StatusBadRequest},
	{services.ErrInvalidWeight, http.StatusBadRequest},
	{services.ErrInvalidDiscount, http.StatusBadRequest},
	{services.ErrInvalidUser, http.StatusBadRequest},
	{services.ErrInvalidPayment, http.StatusBadRequest},
	{services.ErrInvalidCancelReason, http.StatusBadRequest},
}

func statusFor(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err with the status its sentinel maps to. Unmapped
// errors are 500s and are attached to the context for the access log.
func respondError(c *gin.Context, title string, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		message = "unexpected error"
	}
	c.JSON(status, ErrorResponse{Error: title, Message: message})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
}
