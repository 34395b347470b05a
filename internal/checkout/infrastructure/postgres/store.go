package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	cart "github.com/dmehra2102/shop-cart-service/internal/cart/domain"
	cartpg "github.com/dmehra2102/shop-cart-service/internal/cart/infrastructure/postgres"
	"github.com/dmehra2102/shop-cart-service/internal/checkout/application"
	order "github.com/dmehra2102/shop-cart-service/internal/order/domain"
	orderpg "github.com/dmehra2102/shop-cart-service/internal/order/infrastructure/postgres"
	pg "github.com/dmehra2102/shop-cart-service/pkg/postgres"
)

// Store runs a checkout as one transaction: lock the cart, build the order,
// insert order, lines and OrderPlaced event, delete the cart.
type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	return &Store{log: log, pool: pool}
}

func (s *Store) Checkout(ctx context.Context, phone string, place application.PlaceFunc) (order.Order, error) {
	var placed order.Order
	err := pg.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		c, err := cartpg.LoadCart(ctx, tx, phone, true)
		switch {
		case errors.Is(err, cart.ErrCartNotFound):
			// A concurrent checkout that committed first lands here too.
			c = cart.New(phone, time.Now().UTC())
		case err != nil:
			return err
		}
		c.Items, _ = cart.MergeItems(c.Items)
		c.Recalculate()

		o, events, err := place(c)
		if err != nil {
			return err
		}
		if err := orderpg.InsertOrder(ctx, tx, o); err != nil {
			return err
		}
		if err := orderpg.InsertOutbox(ctx, tx, events); err != nil {
			return err
		}
		if err := cartpg.DeleteCart(ctx, tx, phone); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		return order.Order{}, err
	}
	return placed, nil
}
