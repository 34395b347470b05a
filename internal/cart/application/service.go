package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dmehra2102/shop-cart-service/internal/cart/domain"
)

type Service struct {
	log         *slog.Logger
	repo        CartRepository
	prices      PriceSource
	defaultSize string
	now         func() time.Time
}

type Option func(*Service)

func WithDefaultSize(size string) Option {
	return func(s *Service) {
		if strings.TrimSpace(size) != "" {
			s.defaultSize = strings.TrimSpace(size)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(log *slog.Logger, repo CartRepository, prices PriceSource, opts ...Option) *Service {
	s := &Service{
		log:         log,
		repo:        repo,
		prices:      prices,
		defaultSize: domain.DefaultSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type AddItemInput struct {
	Phone     string
	ProductID string
	Quantity  int
	Size      string
}

// GetCart returns the customer's cart, or an unsaved empty cart when none
// exists. Duplicate (product, size) lines found on read are merged and the
// repaired cart is written back.
func (s *Service) GetCart(ctx context.Context, phone string) (domain.Cart, error) {
	phone, err := requirePhone(phone)
	if err != nil {
		return domain.Cart{}, err
	}

	cart, err := s.repo.Get(ctx, phone)
	if errors.Is(err, domain.ErrCartNotFound) {
		return domain.New(phone, s.now()), nil
	}
	if err != nil {
		return domain.Cart{}, err
	}

	merged, changed := domain.MergeItems(cart.Items)
	if !changed {
		return cart, nil
	}
	s.log.Warn("duplicate cart lines merged", "phone", phone, "before", len(cart.Items), "after", len(merged))
	return s.repo.ReplaceItems(ctx, phone, merged, s.now())
}

// GetOrCreate returns the customer's cart, storing an empty one first when
// none exists.
func (s *Service) GetOrCreate(ctx context.Context, phone string) (domain.Cart, error) {
	phone, err := requirePhone(phone)
	if err != nil {
		return domain.Cart{}, err
	}
	return s.repo.GetOrCreate(ctx, phone, s.now())
}

// AddItem snapshots the product's current price and adds the line. When
// the (product, size) line already exists only its quantity grows.
func (s *Service) AddItem(ctx context.Context, in AddItemInput) (domain.Cart, error) {
	phone, err := requirePhone(in.Phone)
	if err != nil {
		return domain.Cart{}, err
	}
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return domain.Cart{}, domain.ErrProductRequired
	}
	if in.Quantity < 1 {
		return domain.Cart{}, domain.ErrQuantityPositive
	}
	if in.Quantity > domain.MaxQuantity {
		return domain.Cart{}, domain.ErrQuantityTooLarge
	}

	price, err := s.prices.Resolve(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}

	now := s.now()
	return s.repo.AddItem(ctx, phone, domain.Item{
		ProductID:  productID,
		Quantity:   in.Quantity,
		Size:       s.size(in.Size),
		PriceAtAdd: price,
		AddedAt:    now,
	}, now)
}

// UpdateQuantity sets the line's quantity; zero or less removes it.
func (s *Service) UpdateQuantity(ctx context.Context, phone, productID, size string, quantity int) (domain.Cart, error) {
	phone, err := requirePhone(phone)
	if err != nil {
		return domain.Cart{}, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, domain.ErrProductRequired
	}
	if quantity > domain.MaxQuantity {
		return domain.Cart{}, domain.ErrQuantityTooLarge
	}
	return s.repo.SetQuantity(ctx, phone, productID, s.size(size), quantity, s.now())
}

// RemoveItem removes one (product, size) line, or every size of the
// product when size is empty.
func (s *Service) RemoveItem(ctx context.Context, phone, productID, size string) (domain.Cart, error) {
	phone, err := requirePhone(phone)
	if err != nil {
		return domain.Cart{}, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, domain.ErrProductRequired
	}
	return s.repo.RemoveItem(ctx, phone, productID, strings.TrimSpace(size), s.now())
}

func (s *Service) Clear(ctx context.Context, phone string) (domain.Cart, error) {
	phone, err := requirePhone(phone)
	if err != nil {
		return domain.Cart{}, err
	}
	return s.repo.Clear(ctx, phone, s.now())
}

func (s *Service) Delete(ctx context.Context, phone string) error {
	phone, err := requirePhone(phone)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, phone)
}

func (s *Service) size(size string) string {
	if size = strings.TrimSpace(size); size != "" {
		return size
	}
	return s.defaultSize
}

func requirePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", domain.ErrPhoneRequired
	}
	return phone, nil
}
