package application

import (
	"context"

	"github.com/dmehra2102/shop-cart-service/internal/order/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
	"github.com/dmehra2102/shop-cart-service/pkg/outbox"
)

// OrderRepository persists orders together with their outbox events so an
// order and its notifications commit or fail as one.
type OrderRepository interface {
	Create(ctx context.Context, o domain.Order, events []outbox.Event) error
	// Get returns domain.ErrOrderNotFound for unknown ids.
	Get(ctx context.Context, id string) (domain.Order, error)
	ListByUser(ctx context.Context, user string) ([]domain.Order, error)
	// Update locks the order, passes it to fn and stores the result along
	// with the events fn returns. Nothing is written when fn fails.
	Update(ctx context.Context, id string, fn func(o *domain.Order) ([]outbox.Event, error)) (domain.Order, error)
	Delete(ctx context.Context, id string, events []outbox.Event) error
}

// PriceSource resolves a product's current catalog price. Unknown products
// fail with a NotFound error.
type PriceSource interface {
	Resolve(ctx context.Context, productID string) (money.Money, error)
}
