package memory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cart "github.com/dmehra2102/shop-cart-service/internal/cart/domain"
	order "github.com/dmehra2102/shop-cart-service/internal/order/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
	"github.com/dmehra2102/shop-cart-service/pkg/outbox"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestCartsReturnCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	c, err := s.Carts().AddItem(ctx, "p", cart.Item{ProductID: "X", Size: "M", Quantity: 1, PriceAtAdd: money.MustParse("1.00")}, now)
	require.NoError(t, err)
	c.Items[0].Quantity = 99

	stored, err := s.Carts().Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Items[0].Quantity)
}

func TestFailedMutationLeavesCart(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Carts().AddItem(ctx, "p", cart.Item{ProductID: "X", Size: "M", Quantity: 2, PriceAtAdd: money.MustParse("1.00")}, now)
	require.NoError(t, err)

	_, err = s.Carts().SetQuantity(ctx, "p", "Y", "M", 1, now)
	assert.ErrorIs(t, err, cart.ErrItemNotFound)

	c, err := s.Carts().Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 2, c.TotalItems)
}

func TestCheckoutRollsBackOnPlaceError(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Carts().AddItem(ctx, "p", cart.Item{ProductID: "X", Size: "M", Quantity: 1, PriceAtAdd: money.MustParse("1.00")}, now)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = s.Checkout(ctx, "p", func(c cart.Cart) (order.Order, []outbox.Event, error) {
		return order.Order{}, nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Carts().Get(ctx, "p")
	assert.NoError(t, err)
	assert.Empty(t, s.Events())
}

func TestOutboxLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Orders().Create(ctx, order.Order{ID: "o-1"}, []outbox.Event{{AggregateID: "o-1", Type: "OrderPlaced"}, {AggregateID: "o-1", Type: "OrderStatusChanged"}}))

	batch, err := s.LockBatch(ctx, "r", 10, time.Second, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	again, err := s.LockBatch(ctx, "r", 10, time.Second, 2)
	require.NoError(t, err)
	assert.Empty(t, again, "claimed events are not handed out twice")

	require.NoError(t, s.MarkSent(ctx, []int64{batch[0].ID}))
	require.NoError(t, s.MarkFailed(ctx, batch[1].ID, "broker down"))

	retry, err := s.LockBatch(ctx, "r", 10, time.Second, 2)
	require.NoError(t, err)
	require.Len(t, retry, 1)
	assert.Equal(t, batch[1].ID, retry[0].ID)

	require.NoError(t, s.MarkFailed(ctx, batch[1].ID, "broker down"))
	exhausted, err := s.LockBatch(ctx, "r", 10, time.Second, 2)
	require.NoError(t, err)
	assert.Empty(t, exhausted)
}

func TestAddItemRejectsOverflow(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Carts().AddItem(ctx, "p", cart.Item{ProductID: "X", Size: "M", Quantity: cart.MaxQuantity, PriceAtAdd: money.MustParse("1.00")}, now)
	require.NoError(t, err)

	_, err = s.Carts().AddItem(ctx, "p", cart.Item{ProductID: "X", Size: "M", Quantity: 1, PriceAtAdd: money.MustParse("1.00")}, now)
	assert.ErrorIs(t, err, cart.ErrQuantityTooLarge)

	_, err = s.Carts().AddItem(ctx, "q", cart.Item{ProductID: "X", Size: "M", Quantity: math.MaxInt, PriceAtAdd: money.MustParse("1.00")}, now)
	assert.ErrorIs(t, err, cart.ErrQuantityTooLarge)
	_, err = s.Carts().Get(ctx, "q")
	assert.ErrorIs(t, err, cart.ErrCartNotFound, "a rejected add creates no cart")

	c, err := s.Carts().Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, cart.MaxQuantity, c.TotalItems)
}
