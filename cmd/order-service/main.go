package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	cartapp "github.com/dmehra2102/shop-cart-service/internal/cart/application"
	carthttp "github.com/dmehra2102/shop-cart-service/internal/cart/infrastructure/http"
	cartpg "github.com/dmehra2102/shop-cart-service/internal/cart/infrastructure/postgres"
	catalog "github.com/dmehra2102/shop-cart-service/internal/catalog/domain"
	catalogpg "github.com/dmehra2102/shop-cart-service/internal/catalog/infrastructure/postgres"
	checkoutapp "github.com/dmehra2102/shop-cart-service/internal/checkout/application"
	checkouthttp "github.com/dmehra2102/shop-cart-service/internal/checkout/infrastructure/http"
	checkoutpg "github.com/dmehra2102/shop-cart-service/internal/checkout/infrastructure/postgres"
	healthgrpc "github.com/dmehra2102/shop-cart-service/internal/health/grpc"
	orderapp "github.com/dmehra2102/shop-cart-service/internal/order/application"
	orderhttp "github.com/dmehra2102/shop-cart-service/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/shop-cart-service/internal/order/infrastructure/kafka"
	orderpg "github.com/dmehra2102/shop-cart-service/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/shop-cart-service/internal/storage/memory"
	"github.com/dmehra2102/shop-cart-service/pkg/apperr"
	"github.com/dmehra2102/shop-cart-service/pkg/config"
	"github.com/dmehra2102/shop-cart-service/pkg/httpx"
	"github.com/dmehra2102/shop-cart-service/pkg/idempotency"
	"github.com/dmehra2102/shop-cart-service/pkg/logging"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
	"github.com/dmehra2102/shop-cart-service/pkg/outbox"
	pg "github.com/dmehra2102/shop-cart-service/pkg/postgres"
	"github.com/dmehra2102/shop-cart-service/pkg/shutdown"
	"github.com/dmehra2102/shop-cart-service/pkg/tracing"
)

const service = "order-service"

// storage bundles the ports one storage driver provides.
type storage struct {
	carts     cartapp.CartRepository
	products  cartapp.ProductLookup
	orders    orderapp.OrderRepository
	checkout  checkoutapp.Store
	outbox    outbox.Store
	responses idempotency.ResponseStore
	seed      func(ctx context.Context, p catalog.Product) error
	ping      func(ctx context.Context) error
	close     func()
}

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

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Error("storage init failed", "driver", cfg.StorageDriver, "err", err)
		os.Exit(1)
	}
	defer st.close()

	for _, entry := range cfg.SeedProducts {
		id, price, _ := config.SplitSeed(entry)
		amount, err := money.Parse(price)
		if err != nil {
			log.Error("bad seed price", "entry", entry, "err", err)
			os.Exit(1)
		}
		if err := st.seed(ctx, catalog.Product{ID: id, Name: id, Price: amount}); err != nil {
			log.Error("seed product failed", "id", id, "err", err)
			os.Exit(1)
		}
	}

	// Services
	prices := cartapp.NewPriceResolver(st.products)
	carts := cartapp.NewService(log, st.carts, prices, cartapp.WithDefaultSize(cfg.DefaultSize))
	orders := orderapp.NewService(log, st.orders, prices)
	checkout := checkoutapp.NewService(log, st.checkout, cfg.DeliveryOffset)

	orderGuard := idempotency.Middleware(log, st.responses, "orders")
	checkoutGuard := idempotency.Middleware(log, st.responses, "checkout")

	// HTTP server
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Timeout(cfg.RequestTimeout))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteMessage(w, http.StatusOK, "ok")
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.ping(r.Context()); err != nil {
			httpx.WriteError(w, log, err)
			return
		}
		httpx.WriteMessage(w, http.StatusOK, "ready")
	})
	r.Mount("/api/cart", carthttp.NewHandler(log, carts).Routes())
	r.Mount("/api/orders", orderhttp.NewHandler(log, orders, orderhttp.WithCreateMiddleware(orderGuard)).Routes())
	r.Mount("/api/checkout", checkouthttp.NewHandler(log, checkout, checkoutGuard).Routes())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	// gRPC health
	health := healthgrpc.NewServer(log, service, pingFunc(st.ping))
	gs, err := healthgrpc.Run(cfg.GRPCAddr, health)
	if err != nil {
		log.Error("grpc listen failed", "addr", cfg.GRPCAddr, "err", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.RelayEnabled {
		topicCtx, topicCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := orderkafka.EnsureTopic(topicCtx, []string{cfg.KafkaAddr}, cfg.OutboxTopic, cfg.OutboxParts); err != nil {
			// The writer still auto-creates the topic on first publish.
			log.Warn("ensure outbox topic failed", "topic", cfg.OutboxTopic, "err", err)
		}
		topicCancel()
		writer := orderkafka.NewWriter([]string{cfg.KafkaAddr})
		defer writer.Close()
		relay := outbox.NewRelay(log, st.outbox, outbox.NewDispatcher(log, writer, cfg.OutboxTopic), service+"-relay")
		g.Go(func() error { return relay.Run(gctx) })
	}

	g.Go(func() error {
		health.Watch(gctx, 5*time.Second)
		return nil
	})

	g.Go(func() error {
		log.Info("http listening", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		gs.GracefulStop()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("order-service stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("order-service shutdown complete")
}

func openStorage(ctx context.Context, cfg config.Config, log *slog.Logger) (*storage, error) {
	if cfg.StorageDriver == "memory" {
		m := memory.New()
		return &storage{
			carts:     m.Carts(),
			products:  m,
			orders:    m.Orders(),
			checkout:  m,
			outbox:    m,
			responses: idempotency.NewMemoryStore(cfg.IdempotencyTTL),
			seed: func(_ context.Context, p catalog.Product) error {
				m.UpsertProduct(p)
				return nil
			},
			ping:  m.Ping,
			close: func() {},
		}, nil
	}

	pool, err := pg.Open(ctx, cfg.PGURL)
	if err != nil {
		return nil, err
	}
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	products := catalogpg.NewRepository(log, pool)
	return &storage{
		carts:     cartpg.NewRepository(log, pool),
		products:  products,
		orders:    orderpg.NewRepository(log, pool),
		checkout:  checkoutpg.NewStore(log, pool),
		outbox:    orderpg.NewOutboxStore(log, pool),
		responses: idempotency.NewStore(rdb, cfg.IdempotencyTTL),
		seed:      products.Upsert,
		ping:      pingAll(pool, rdb),
		close: func() {
			_ = rdb.Close()
			pool.Close()
		},
	}, nil
}

func pingAll(pool *pgxpool.Pool, rdb *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return apperr.Unavailable("postgres unreachable", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return apperr.Unavailable("redis unreachable", err)
		}
		return nil
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
