package domain

import (
	"strings"

	order "github.com/dmehra2102/shop-cart-service/internal/order/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/apperr"
)

// PaymentResult is published by the payment provider integration once a
// charge for an order settles.
type PaymentResult struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// OrderStatus maps the result onto the order's payment machine. Only the
// two settled outcomes are accepted.
func (r PaymentResult) OrderStatus() (order.PaymentStatus, error) {
	if strings.TrimSpace(r.OrderID) == "" {
		return "", apperr.Validation("orderId is required")
	}
	st, err := order.ParsePaymentStatus(r.Status)
	if err != nil {
		return "", err
	}
	if st != order.PaymentPaid && st != order.PaymentFailed {
		return "", apperr.Validationf("payment result must be %s or %s, got %s", order.PaymentPaid, order.PaymentFailed, st)
	}
	return st, nil
}
