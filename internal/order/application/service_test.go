package application

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartapp "github.com/dmehra2102/shop-cart-service/internal/cart/application"
	catalog "github.com/dmehra2102/shop-cart-service/internal/catalog/domain"
	"github.com/dmehra2102/shop-cart-service/internal/order/domain"
	"github.com/dmehra2102/shop-cart-service/internal/storage/memory"
	"github.com/dmehra2102/shop-cart-service/pkg/apperr"
	"github.com/dmehra2102/shop-cart-service/pkg/logging"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New(
		catalog.Product{ID: "X", Price: money.MustParse("199.00")},
		catalog.Product{ID: "Y", Price: money.MustParse("75.50")},
	)
	n := 0
	svc := NewService(logging.Discard(), store.Orders(), cartapp.NewPriceResolver(store),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("o-%d", n) }),
	)
	return svc, store
}

func createInput() CreateInput {
	return CreateInput{
		User:              "+919800000001",
		Products:          []domain.Line{{ProductID: "X", Quantity: 1, Size: "M", UnitPrice: money.MustParse("199.00")}},
		Address:           "12 MG Road, Pune",
		EstimatedDelivery: fixedNow.Add(72 * time.Hour),
	}
}

func strp(s string) *string { return &s }

func TestCreateStoresOrderAndEvent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	in := createInput()
	in.PaymentStatus = "cod"
	o, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "o-1", o.ID)
	assert.Equal(t, domain.PaymentCOD, o.PaymentStatus)

	got, err := svc.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, o.TotalAmount.String(), got.TotalAmount.String())

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventOrderPlaced, events[0].Type)
	assert.Equal(t, "o-1", events[0].AggregateID)

	var placed domain.OrderPlaced
	require.NoError(t, json.Unmarshal(events[0].Payload, &placed))
	assert.Equal(t, "199.00", placed.TotalAmount.String())
}

func TestCreateSnapshotsCatalogPrices(t *testing.T) {
	svc, _ := newTestService(t)

	in := createInput()
	in.Products = []domain.Line{
		{ProductID: "X", Quantity: 2, Size: "M"},
		{ProductID: "Y", Quantity: 1, UnitPrice: money.MustParse("0.01")},
	}
	o, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "199.00", o.Products[0].UnitPrice.String())
	assert.Equal(t, "75.50", o.Products[1].UnitPrice.String())
	assert.Equal(t, "473.50", o.TotalAmount.String())
}

func TestCreateRejectsUnknownProduct(t *testing.T) {
	svc, store := newTestService(t)

	in := createInput()
	in.Products = []domain.Line{{ProductID: "ghost", Quantity: 1}}
	_, err := svc.Create(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Empty(t, store.Events())
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	svc, store := newTestService(t)

	in := createInput()
	in.DeliveryStatus = "teleported"
	_, err := svc.Create(context.Background(), in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, store.Events())
}

func TestUpdateEmitsStatusEvents(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, createInput())
	require.NoError(t, err)

	o, err := svc.Update(ctx, "o-1", UpdateInput{DeliveryStatus: strp("processing"), PaymentStatus: strp("Paid")})
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryProcessing, o.DeliveryStatus)
	assert.Equal(t, domain.PaymentPaid, o.PaymentStatus)

	events := store.Events()
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventOrderStatusChange, events[1].Type)
	assert.Equal(t, domain.EventOrderStatusChange, events[2].Type)
}

func TestUpdateIllegalTransitionWritesNothing(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, createInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, "o-1", UpdateInput{DeliveryStatus: strp("Delivered")})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	o, err := svc.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryPending, o.DeliveryStatus)
	assert.Len(t, store.Events(), 1)
}

func TestUpdatePaymentStatusTerminal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, createInput())
	require.NoError(t, err)

	_, err = svc.UpdatePaymentStatus(ctx, "o-1", domain.PaymentFailed)
	require.NoError(t, err)

	_, err = svc.UpdatePaymentStatus(ctx, "o-1", domain.PaymentPaid)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestGetAndDeleteMissing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "nope"), domain.ErrOrderNotFound)

	_, err = svc.Update(ctx, "nope", UpdateInput{PaymentStatus: strp("Paid")})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestListByUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, createInput())
		require.NoError(t, err)
	}
	other := createInput()
	other.User = "+919800000002"
	_, err := svc.Create(ctx, other)
	require.NoError(t, err)

	orders, err := svc.ListByUser(ctx, "+919800000001")
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	_, err = svc.ListByUser(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUserRequired)
}
