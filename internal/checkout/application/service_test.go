package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cart "github.com/dmehra2102/shop-cart-service/internal/cart/domain"
	order "github.com/dmehra2102/shop-cart-service/internal/order/domain"
	"github.com/dmehra2102/shop-cart-service/internal/storage/memory"
	"github.com/dmehra2102/shop-cart-service/pkg/apperr"
	"github.com/dmehra2102/shop-cart-service/pkg/logging"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
)

const phone = "+919800000001"

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(store Store) *Service {
	return NewService(logging.Discard(), store, 120*time.Hour,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "o-1" }),
	)
}

func seedCart(store *memory.Store) cart.Cart {
	c := cart.New(phone, fixedNow)
	c.AddItem("X", "M", 3, money.MustParse("199.00"), fixedNow)
	c.AddItem("Y", "L", 1, money.MustParse("75.50"), fixedNow)
	store.PutCart(c)
	return c
}

func TestCheckoutPlacesOrderAndRetiresCart(t *testing.T) {
	store := memory.New()
	c := seedCart(store)
	ctx := context.Background()

	o, err := newTestService(store).Checkout(ctx, Input{Phone: phone, Address: "12 MG Road", PaymentMethod: "UPI"})
	require.NoError(t, err)

	assert.Equal(t, "o-1", o.ID)
	assert.Equal(t, phone, o.User)
	require.Len(t, o.Products, 2)
	assert.Equal(t, 3, o.Products[0].Quantity)
	assert.Equal(t, "M", o.Products[0].Size)
	assert.True(t, o.TotalAmount.Equal(c.TotalAmount))
	assert.Equal(t, order.PaymentPending, o.PaymentStatus)
	assert.Equal(t, fixedNow.Add(120*time.Hour), o.EstimatedDelivery)

	_, err = store.Carts().Get(ctx, phone)
	assert.ErrorIs(t, err, cart.ErrCartNotFound)

	stored, err := store.Orders().Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, stored.ID)

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, order.EventOrderPlaced, events[0].Type)
}

func TestCheckoutMergesDuplicateLines(t *testing.T) {
	store := memory.New()
	c := cart.New(phone, fixedNow)
	c.Items = []cart.Item{
		{ProductID: "X", Size: "M", Quantity: 1, PriceAtAdd: money.MustParse("199.00")},
		{ProductID: "X", Size: "M", Quantity: 2, PriceAtAdd: money.MustParse("250.00")},
	}
	store.PutCart(c)

	o, err := newTestService(store).Checkout(context.Background(), Input{Phone: phone, Address: "a"})
	require.NoError(t, err)
	require.Len(t, o.Products, 1)
	assert.Equal(t, "597.00", o.TotalAmount.String())
}

func TestCheckoutEmptyCart(t *testing.T) {
	store := memory.New()
	store.PutCart(cart.New(phone, fixedNow))
	ctx := context.Background()

	_, err := newTestService(store).Checkout(ctx, Input{Phone: phone, Address: "a"})
	assert.ErrorIs(t, err, order.ErrEmptyCart)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = store.Carts().Get(ctx, phone)
	assert.NoError(t, err, "empty cart is left in place")
	assert.Empty(t, store.Events())

	_, err = newTestService(store).Checkout(ctx, Input{Phone: "+910000000000", Address: "a"})
	assert.ErrorIs(t, err, order.ErrEmptyCart)
}

func TestCheckoutValidatesInput(t *testing.T) {
	store := memory.New()
	seedCart(store)

	_, err := newTestService(store).Checkout(context.Background(), Input{Phone: phone})
	assert.ErrorIs(t, err, order.ErrAddressRequired)

	_, err = newTestService(store).Checkout(context.Background(), Input{Address: "a"})
	assert.ErrorIs(t, err, cart.ErrPhoneRequired)
}

type failingStore struct{ err error }

func (s failingStore) Checkout(ctx context.Context, phone string, place PlaceFunc) (order.Order, error) {
	return order.Order{}, s.err
}

func TestCheckoutStoreFailureIsRetryable(t *testing.T) {
	svc := newTestService(failingStore{err: apperr.Unavailable("begin tx", errors.New("connection reset"))})

	_, err := svc.Checkout(context.Background(), Input{Phone: phone, Address: "a"})
	require.Error(t, err)
	assert.True(t, apperr.KindOf(err).Retryable())
}
