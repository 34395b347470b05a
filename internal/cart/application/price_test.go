package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/shop-cart-service/internal/cart/domain"
	catalog "github.com/dmehra2102/shop-cart-service/internal/catalog/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/apperr"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
)

type lookupFunc func(ctx context.Context, id string) (catalog.Product, bool, error)

func (f lookupFunc) FindByID(ctx context.Context, id string) (catalog.Product, bool, error) {
	return f(ctx, id)
}

func TestResolveReturnsCatalogPrice(t *testing.T) {
	r := NewPriceResolver(lookupFunc(func(ctx context.Context, id string) (catalog.Product, bool, error) {
		return catalog.Product{ID: id, Price: money.MustParse("199")}, true, nil
	}))

	price, err := r.Resolve(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, "199.00", price.String())
}

func TestResolveErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		r := NewPriceResolver(lookupFunc(func(ctx context.Context, id string) (catalog.Product, bool, error) {
			return catalog.Product{}, false, nil
		}))
		_, err := r.Resolve(context.Background(), "X")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})

	t.Run("negative price", func(t *testing.T) {
		r := NewPriceResolver(lookupFunc(func(ctx context.Context, id string) (catalog.Product, bool, error) {
			return catalog.Product{ID: id, Price: money.MustParse("-1")}, true, nil
		}))
		_, err := r.Resolve(context.Background(), "X")
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("lookup failure passes through", func(t *testing.T) {
		boom := apperr.Unavailable("catalog down", errors.New("dial tcp"))
		r := NewPriceResolver(lookupFunc(func(ctx context.Context, id string) (catalog.Product, bool, error) {
			return catalog.Product{}, false, boom
		}))
		_, err := r.Resolve(context.Background(), "X")
		assert.ErrorIs(t, err, boom)
		assert.True(t, apperr.KindOf(err).Retryable())
	})
}
