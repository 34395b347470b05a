package domain

import "github.com/dmehra2102/shop-cart-service/pkg/apperr"

var (
	ErrCartNotFound     = apperr.NotFound("cart not found")
	ErrItemNotFound     = apperr.NotFound("item not found in cart")
	ErrProductNotFound  = apperr.NotFound("product not found")
	ErrPhoneRequired    = apperr.Validation("phone is required")
	ErrProductRequired  = apperr.Validation("productId is required")
	ErrQuantityPositive = apperr.Validation("quantity must be at least 1")
	ErrQuantityRequired = apperr.Validation("quantity is required")
	ErrQuantityTooLarge = apperr.Validationf("quantity cannot exceed %d per line", MaxQuantity)
)
