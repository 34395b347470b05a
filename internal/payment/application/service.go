package application

import (
	"context"
	"log/slog"

	order "github.com/dmehra2102/shop-cart-service/internal/order/domain"
	"github.com/dmehra2102/shop-cart-service/internal/payment/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/apperr"
)

type Service struct {
	log    *slog.Logger
	orders OrderPayments
}

func NewService(log *slog.Logger, orders OrderPayments) *Service {
	return &Service{log: log, orders: orders}
}

// Apply records a payment result on its order. Results that can never
// succeed (bad payload, unknown order, illegal transition) are logged and
// dropped; only retryable failures are returned.
func (s *Service) Apply(ctx context.Context, res domain.PaymentResult) error {
	status, err := res.OrderStatus()
	if err != nil {
		s.log.Warn("payment result rejected", "order_id", res.OrderID, "status", res.Status, "err", err)
		return nil
	}

	o, err := s.orders.UpdatePaymentStatus(ctx, res.OrderID, status)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindNotFound, apperr.KindConflict, apperr.KindValidation:
			s.log.Warn("payment result dropped", "order_id", res.OrderID, "status", status, "err", err)
			return nil
		default:
			return err
		}
	}

	s.log.Info("payment applied", "order_id", o.ID, "payment_status", o.PaymentStatus)
	if status == order.PaymentFailed && res.Reason != "" {
		s.log.Info("payment failure reason", "order_id", o.ID, "reason", res.Reason)
	}
	return nil
}
