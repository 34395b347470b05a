//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartapp "github.com/dmehra2102/shop-cart-service/internal/cart/application"
	catalog "github.com/dmehra2102/shop-cart-service/internal/catalog/domain"
	catalogpg "github.com/dmehra2102/shop-cart-service/internal/catalog/infrastructure/postgres"
	"github.com/dmehra2102/shop-cart-service/internal/order/application"
	"github.com/dmehra2102/shop-cart-service/internal/order/domain"
	orderkafka "github.com/dmehra2102/shop-cart-service/internal/order/infrastructure/kafka"
	"github.com/dmehra2102/shop-cart-service/internal/testenv"
	"github.com/dmehra2102/shop-cart-service/pkg/logging"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
	"github.com/dmehra2102/shop-cart-service/pkg/outbox"
)

func TestOutboxRelayToKafka(t *testing.T) {
	pool := testenv.Postgres(t)
	brokers := testenv.Kafka(t)
	log := logging.Discard()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	const topic = "order.events.test"
	require.NoError(t, orderkafka.EnsureTopic(ctx, brokers, topic, 1))

	products := catalogpg.NewRepository(log, pool)
	require.NoError(t, products.Upsert(ctx, catalog.Product{ID: "X", Name: "X", Price: money.MustParse("199.00")}))
	svc := application.NewService(log, NewRepository(log, pool), cartapp.NewPriceResolver(products))
	o, err := svc.Create(ctx, application.CreateInput{
		User:              "+919800000001",
		Products:          []domain.Line{{ProductID: "X", Quantity: 2, Size: "M", UnitPrice: money.MustParse("199.00")}},
		Address:           "12 MG Road",
		EstimatedDelivery: time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	processing := "Processing"
	_, err = svc.Update(ctx, o.ID, application.UpdateInput{DeliveryStatus: &processing})
	require.NoError(t, err)

	writer := orderkafka.NewWriter(brokers)
	defer writer.Close()
	relay := outbox.NewRelay(log, NewOutboxStore(log, pool), outbox.NewDispatcher(log, writer, topic), "it-relay")

	n, err := relay.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = relay.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "sent events are not claimed again")

	reader := kafka.NewReader(kafka.ReaderConfig{Brokers: brokers, Topic: topic, Partition: 0})
	defer reader.Close()

	first, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, o.ID, string(first.Key))
	var placed domain.OrderPlaced
	require.NoError(t, json.Unmarshal(first.Value, &placed))
	assert.Equal(t, "398.00", placed.TotalAmount.String())

	second, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	headers := map[string]string{}
	for _, h := range second.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, domain.EventOrderStatusChange, headers["event_type"])
}

func TestOutboxExpiredLeaseIsReclaimed(t *testing.T) {
	pool := testenv.Postgres(t)
	store := NewOutboxStore(logging.Discard(), pool)
	ctx := context.Background()

	require.NoError(t, InsertOutbox(ctx, pool, []outbox.Event{{AggregateType: "order", AggregateID: "o-1", Type: "OrderPlaced", Payload: []byte(`{}`)}}))

	batch, err := store.LockBatch(ctx, "relay-a", 10, time.Millisecond, 5)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	time.Sleep(20 * time.Millisecond)
	again, err := store.LockBatch(ctx, "relay-b", 10, time.Minute, 5)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, batch[0].ID, again[0].ID)

	none, err := store.LockBatch(ctx, "relay-c", 10, time.Minute, 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.MarkFailed(ctx, batch[0].ID, "broker down"))
	}
	exhausted, err := store.LockBatch(ctx, "relay-d", 10, time.Minute, 5)
	require.NoError(t, err)
	assert.Empty(t, exhausted, "events past the retry limit stay failed")
}
