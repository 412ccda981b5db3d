package services

import "errors"

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductUnavailable   = errors.New("product is not available")
	ErrInvalidProduct       = errors.New("invalid product")
	ErrNotWeighable         = errors.New("product is not sold by weight")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidWeight        = errors.New("weight must be positive")
	ErrInvalidDiscount      = errors.New("invalid discount")
	ErrCartNotFound         = errors.New("cart not found")
	ErrLineNotFound         = errors.New("cart line not found")
	ErrSuggestionNotFound   = errors.New("suggestion not found")
	ErrNoAnchorLine         = errors.New("cart has no line to attach the complement to")
	ErrImageTooLarge        = errors.New("image exceeds the upload limit")
	ErrUnsupportedImage     = errors.New("unsupported image type")
	ErrImageNotFound        = errors.New("image not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrUsernameTaken        = errors.New("username already in use")
	ErrInvalidUser          = errors.New("invalid user")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserInactive         = errors.New("user is inactive")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidPayment       = errors.New("invalid payment method")
	ErrInsufficientPayment  = errors.New("cash received is less than the total")
	ErrSaleNotFound         = errors.New("sale not found")
	ErrSaleAlreadyCancelled = errors.New("sale already cancelled")
	ErrInvalidCancelReason  = errors.New("a cancel reason is required")
)
