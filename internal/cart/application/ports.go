package application

import (
	"context"
	"time"

	catalog "github.com/dmehra2102/shop-cart-service/internal/catalog/domain"
	"github.com/dmehra2102/shop-cart-service/internal/cart/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
)

// CartRepository owns cart persistence. Every mutation is atomic per
// (phone, product, size) and returns the cart as it stands afterwards, with
// totals derived from its final items.
type CartRepository interface {
	// Get returns domain.ErrCartNotFound when the phone has no cart.
	Get(ctx context.Context, phone string) (domain.Cart, error)
	GetOrCreate(ctx context.Context, phone string, now time.Time) (domain.Cart, error)
	// AddItem creates the cart if needed and upserts-and-increments the
	// line; an existing line keeps its price.
	AddItem(ctx context.Context, phone string, item domain.Item, now time.Time) (domain.Cart, error)
	SetQuantity(ctx context.Context, phone, productID, size string, quantity int, now time.Time) (domain.Cart, error)
	RemoveItem(ctx context.Context, phone, productID, size string, now time.Time) (domain.Cart, error)
	Clear(ctx context.Context, phone string, now time.Time) (domain.Cart, error)
	Delete(ctx context.Context, phone string) error
	// ReplaceItems overwrites every line; used by the merge-at-read repair.
	ReplaceItems(ctx context.Context, phone string, items []domain.Item, now time.Time) (domain.Cart, error)
}

// ProductLookup is the catalog contract consumed by price snapshots.
type ProductLookup interface {
	FindByID(ctx context.Context, id string) (catalog.Product, bool, error)
}

// PriceSource resolves the unit price frozen into a new cart line.
type PriceSource interface {
	Resolve(ctx context.Context, productID string) (money.Money, error)
}
