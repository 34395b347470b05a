package main

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	healthgrpc "github.com/dmehra2102/shop-cart-service/internal/health/grpc"
	cartapp "github.com/dmehra2102/shop-cart-service/internal/cart/application"
	catalogpg "github.com/dmehra2102/shop-cart-service/internal/catalog/infrastructure/postgres"
	orderapp "github.com/dmehra2102/shop-cart-service/internal/order/application"
	orderpg "github.com/dmehra2102/shop-cart-service/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/shop-cart-service/internal/payment/application"
	paymentkafka "github.com/dmehra2102/shop-cart-service/internal/payment/infrastructure/kafka"
	"github.com/dmehra2102/shop-cart-service/pkg/config"
	"github.com/dmehra2102/shop-cart-service/pkg/idempotency"
	"github.com/dmehra2102/shop-cart-service/pkg/logging"
	pg "github.com/dmehra2102/shop-cart-service/pkg/postgres"
	"github.com/dmehra2102/shop-cart-service/pkg/shutdown"
	"github.com/dmehra2102/shop-cart-service/pkg/tracing"
)

const service = "payment-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.Options{Service: service}).Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(logging.Options{Service: service, Env: cfg.AppEnv, Level: cfg.LogLevel})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, service, cfg.OTelEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	pool, err := pg.Open(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rdb.Close() }()
	idem := idempotency.NewStore(rdb, cfg.IdempotencyTTL)

	// Payment results drive the same order service, and so the same
	// transition rules and outbox events, as the HTTP surface.
	prices := cartapp.NewPriceResolver(catalogpg.NewRepository(log, pool))
	orders := orderapp.NewService(log, orderpg.NewRepository(log, pool), prices)
	svc := application.NewService(log, orders)
	reader := paymentkafka.NewReader([]string{cfg.KafkaAddr}, cfg.PaymentTopic, cfg.PaymentGroup)
	consumer := paymentkafka.NewConsumer(log, reader, svc, idem)

	health := healthgrpc.NewServer(log, service, pool)
	gs, err := healthgrpc.Run(cfg.PaymentGRPCAddr, health)
	if err != nil {
		log.Error("grpc listen failed", "addr", cfg.PaymentGRPCAddr, "err", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("consuming payment results", "topic", cfg.PaymentTopic, "group", cfg.PaymentGroup)
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		health.Watch(gctx, 5*time.Second)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		gs.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("payment-service stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("payment-service shutdown")
}
