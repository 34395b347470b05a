package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/shop-cart-service/internal/order/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/apperr"
	"github.com/dmehra2102/shop-cart-service/pkg/outbox"
)

type Service struct {
	log    *slog.Logger
	repo   OrderRepository
	prices PriceSource
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func NewService(log *slog.Logger, repo OrderRepository, prices PriceSource, opts ...Option) *Service {
	s := &Service{
		log:    log,
		repo:   repo,
		prices: prices,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	User              string
	Products          []domain.Line
	Address           string
	EstimatedDelivery time.Time
	DeliveryStatus    string
	PaymentStatus     string
}

// UpdateInput is a partial update. Nil fields are left as they are.
type UpdateInput struct {
	DeliveryStatus    *string
	PaymentStatus     *string
	Address           *string
	EstimatedDelivery *time.Time
}

// Create places an order directly, without a cart. Unit prices come from
// the catalog at creation time; a price sent by the client is ignored.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Order, error) {
	products, err := s.priceLines(ctx, in.Products)
	if err != nil {
		return domain.Order{}, err
	}
	ci := domain.CreateInput{
		User:              in.User,
		Products:          products,
		Address:           in.Address,
		EstimatedDelivery: in.EstimatedDelivery,
	}
	if strings.TrimSpace(in.DeliveryStatus) != "" {
		st, err := domain.ParseDeliveryStatus(in.DeliveryStatus)
		if err != nil {
			return domain.Order{}, err
		}
		ci.DeliveryStatus = st
	}
	if strings.TrimSpace(in.PaymentStatus) != "" {
		st, err := domain.ParsePaymentStatus(in.PaymentStatus)
		if err != nil {
			return domain.Order{}, err
		}
		ci.PaymentStatus = st
	}

	o, err := domain.New(s.newID(), ci, s.now())
	if err != nil {
		return domain.Order{}, err
	}
	ev, err := PlacedEvent(ctx, o)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.Create(ctx, o, []outbox.Event{ev}); err != nil {
		return domain.Order{}, err
	}
	s.log.Info("order created", "order_id", o.ID, "user", o.User, "total", o.TotalAmount.String())
	return o, nil
}

// priceLines returns a copy of lines with each unit price snapshotted from
// the catalog. Blank product ids are left for the factory to reject.
func (s *Service) priceLines(ctx context.Context, lines []domain.Line) ([]domain.Line, error) {
	out := make([]domain.Line, len(lines))
	for i, l := range lines {
		l.ProductID = strings.TrimSpace(l.ProductID)
		if l.ProductID != "" {
			price, err := s.prices.Resolve(ctx, l.ProductID)
			if err != nil {
				return nil, err
			}
			l.UnitPrice = price
		}
		out[i] = l
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Order{}, apperr.Validation("order id is required")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, user string) ([]domain.Order, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, domain.ErrUserRequired
	}
	return s.repo.ListByUser(ctx, user)
}

// Update applies a partial update under a row lock. Status fields must
// follow the lifecycle; every status that changes emits an
// OrderStatusChanged event in the same transaction.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (domain.Order, error) {
	var patch domain.Patch
	if in.DeliveryStatus != nil {
		st, err := domain.ParseDeliveryStatus(*in.DeliveryStatus)
		if err != nil {
			return domain.Order{}, err
		}
		patch.DeliveryStatus = &st
	}
	if in.PaymentStatus != nil {
		st, err := domain.ParsePaymentStatus(*in.PaymentStatus)
		if err != nil {
			return domain.Order{}, err
		}
		patch.PaymentStatus = &st
	}
	if in.Address != nil {
		a := strings.TrimSpace(*in.Address)
		patch.Address = &a
	}
	patch.EstimatedDelivery = in.EstimatedDelivery
	return s.apply(ctx, id, patch)
}

// UpdatePaymentStatus records a payment outcome reported by the payment
// service.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) (domain.Order, error) {
	return s.apply(ctx, id, domain.Patch{PaymentStatus: &status})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.Validation("order id is required")
	}
	ev, err := outbox.NewEvent(ctx, domain.AggregateType, id, domain.EventOrderDeleted, domain.OrderDeleted{
		OrderID:   id,
		DeletedAt: s.now(),
	})
	if err != nil {
		return apperr.Persistence("build order event", err)
	}
	if err := s.repo.Delete(ctx, id, []outbox.Event{ev}); err != nil {
		return err
	}
	s.log.Info("order deleted", "order_id", id)
	return nil
}

func (s *Service) apply(ctx context.Context, id string, patch domain.Patch) (domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Order{}, apperr.Validation("order id is required")
	}

	var changes []domain.StatusChange
	o, err := s.repo.Update(ctx, id, func(o *domain.Order) ([]outbox.Event, error) {
		now := s.now()
		var err error
		changes, err = o.Apply(patch, now)
		if err != nil {
			return nil, err
		}
		return StatusEvents(ctx, o.ID, changes, now)
	})
	if err != nil {
		return domain.Order{}, err
	}
	for _, c := range changes {
		s.log.Info("order status changed", "order_id", o.ID, "field", c.Field, "from", c.From, "to", c.To)
	}
	return o, nil
}

// PlacedEvent builds the OrderPlaced outbox record for o.
func PlacedEvent(ctx context.Context, o domain.Order) (outbox.Event, error) {
	ev, err := outbox.NewEvent(ctx, domain.AggregateType, o.ID, domain.EventOrderPlaced, domain.PlacedEvent(o))
	if err != nil {
		return outbox.Event{}, apperr.Persistence("build order event", err)
	}
	return ev, nil
}

func StatusEvents(ctx context.Context, orderID string, changes []domain.StatusChange, now time.Time) ([]outbox.Event, error) {
	events := make([]outbox.Event, 0, len(changes))
	for _, c := range changes {
		ev, err := outbox.NewEvent(ctx, domain.AggregateType, orderID, domain.EventOrderStatusChange, domain.OrderStatusChanged{
			OrderID:   orderID,
			Field:     c.Field,
			From:      c.From,
			To:        c.To,
			ChangedAt: now,
		})
		if err != nil {
			return nil, apperr.Persistence("build order event", err)
		}
		events = append(events, ev)
	}
	return events, nil
}
