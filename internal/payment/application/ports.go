package application

import (
	"context"

	order "github.com/dmehra2102/shop-cart-service/internal/order/domain"
)

// OrderPayments is the order service operation a payment result drives.
type OrderPayments interface {
	UpdatePaymentStatus(ctx context.Context, id string, status order.PaymentStatus) (order.Order, error)
}
