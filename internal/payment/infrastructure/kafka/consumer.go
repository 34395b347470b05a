package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shop-cart-service/internal/payment/application"
	"github.com/dmehra2102/shop-cart-service/internal/payment/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/tracing"
)

// Deduper remembers processed offsets across consumer restarts. An offset
// is marked only after its result is applied, so a crash in between
// redelivers the message instead of losing it.
type Deduper interface {
	Key(topic string, partition int, offset int64) string
	Processed(ctx context.Context, key string) (bool, error)
	MarkProcessed(ctx context.Context, key string) error
}

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	log     *slog.Logger
	reader  Reader
	svc     *application.Service
	idem    Deduper
	tracer  trace.Tracer
	backoff time.Duration
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader Reader, svc *application.Service, idem Deduper) *Consumer {
	return &Consumer{
		log:     log,
		reader:  reader,
		svc:     svc,
		idem:    idem,
		tracer:  otel.Tracer("payment-consumer"),
		backoff: 200 * time.Millisecond,
	}
}

// Run consumes until ctx is cancelled. A message is committed once it is
// applied or known to be unprocessable; retryable failures are retried in
// place so partition order holds.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := c.handleWithRetry(ctx, msg); err != nil {
			// Only cancellation ends the retry loop.
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, msg kafka.Message) error {
	wait := c.backoff
	for {
		err := c.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		c.log.Warn("payment result retry", "offset", msg.Offset, "wait", wait, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if wait < 5*time.Second {
			wait *= 2
		}
	}
}

// Handle processes one message. It returns an error only when the same
// message should be tried again. Applying a result twice is harmless: the
// second update finds the order already in that state.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) error {
	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	done, err := c.idem.Processed(ctx, key)
	if err != nil {
		return err
	}
	if done {
		c.log.Info("duplicate message skipped", "key", key)
		return nil
	}
	if err := c.process(ctx, msg); err != nil {
		return err
	}
	if err := c.idem.MarkProcessed(ctx, key); err != nil {
		c.log.Warn("mark processed failed", "key", key, "err", err)
	}
	return nil
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumePaymentResult")
	defer span.End()

	var res domain.PaymentResult
	if err := json.Unmarshal(msg.Value, &res); err != nil {
		c.log.Error("unmarshal failed", "offset", msg.Offset,
			"event_type", tracing.HeaderValue(msg.Headers, tracing.EventTypeHeader), "err", err)
		return nil
	}
	span.SetAttributes(attribute.String("order.id", res.OrderID), attribute.String("payment.status", res.Status))

	if err := c.svc.Apply(msgCtx, res); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
