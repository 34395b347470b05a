package application

import (
	"context"

	"github.com/dmehra2102/shop-cart-service/internal/cart/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/apperr"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
)

type PriceResolver struct {
	products ProductLookup
}

func NewPriceResolver(products ProductLookup) *PriceResolver {
	return &PriceResolver{products: products}
}

// Resolve returns the product's current catalog price.
func (r *PriceResolver) Resolve(ctx context.Context, productID string) (money.Money, error) {
	p, ok, err := r.products.FindByID(ctx, productID)
	if err != nil {
		return money.Money{}, err
	}
	if !ok {
		return money.Money{}, domain.ErrProductNotFound.WithDetails(productID)
	}
	if !p.Price.IsPositive() {
		return money.Money{}, apperr.Validationf("product %s has no sellable price", productID)
	}
	return p.Price, nil
}
