// Package application turns a customer's cart into an order in one atomic
// step: the order, its OrderPlaced event and the cart's removal commit
// together or not at all.
package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	cart "github.com/dmehra2102/shop-cart-service/internal/cart/domain"
	orderapp "github.com/dmehra2102/shop-cart-service/internal/order/application"
	order "github.com/dmehra2102/shop-cart-service/internal/order/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/outbox"
)

// PlaceFunc builds the order for a locked cart. Returning an error aborts
// the checkout and leaves the cart untouched.
type PlaceFunc = func(c cart.Cart) (order.Order, []outbox.Event, error)

type Store interface {
	// Checkout locks the phone's cart, merges duplicate lines, calls place
	// and, in the same transaction, stores the order with its events and
	// deletes the cart. A missing cart is passed to place as an empty one.
	Checkout(ctx context.Context, phone string, place PlaceFunc) (order.Order, error)
}

type Input struct {
	Phone         string
	Address       string
	PaymentMethod string
}

type Service struct {
	log            *slog.Logger
	store          Store
	deliveryOffset time.Duration
	now            func() time.Time
	newID          func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func NewService(log *slog.Logger, store Store, deliveryOffset time.Duration, opts ...Option) *Service {
	s := &Service{
		log:            log,
		store:          store,
		deliveryOffset: deliveryOffset,
		now:            func() time.Time { return time.Now().UTC() },
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Checkout(ctx context.Context, in Input) (order.Order, error) {
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		return order.Order{}, cart.ErrPhoneRequired
	}
	if strings.TrimSpace(in.Address) == "" {
		return order.Order{}, order.ErrAddressRequired
	}

	o, err := s.store.Checkout(ctx, phone, func(c cart.Cart) (order.Order, []outbox.Event, error) {
		o, err := order.NewFromCart(s.newID(), c, order.CheckoutDetails{
			Address:        in.Address,
			PaymentMethod:  in.PaymentMethod,
			DeliveryOffset: s.deliveryOffset,
		}, s.now())
		if err != nil {
			return order.Order{}, nil, err
		}
		ev, err := orderapp.PlacedEvent(ctx, o)
		if err != nil {
			return order.Order{}, nil, err
		}
		return o, []outbox.Event{ev}, nil
	})
	if err != nil {
		s.log.Warn("checkout failed", "phone", phone, "err", err)
		return order.Order{}, err
	}

	s.log.Info("checkout completed", "phone", phone, "order_id", o.ID, "lines", len(o.Products), "total", o.TotalAmount.String())
	return o, nil
}
