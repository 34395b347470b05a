package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/shop-cart-service/internal/cart/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
	pg "github.com/dmehra2102/shop-cart-service/pkg/postgres"
)

// Repository stores one row per cart and one row per (phone, product, size)
// line. Adds are a single upsert-and-increment, so concurrent adds to the
// same cart never lose each other's lines.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Get(ctx context.Context, phone string) (domain.Cart, error) {
	return LoadCart(ctx, r.pool, phone, false)
}

func (r *Repository) GetOrCreate(ctx context.Context, phone string, now time.Time) (domain.Cart, error) {
	var c domain.Cart
	err := pg.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO carts (phone, created_at, updated_at, last_activity)
			VALUES ($1,$2,$2,$2) ON CONFLICT (phone) DO NOTHING`, phone, now); err != nil {
			return pg.Wrap("create cart", err)
		}
		var err error
		c, err = LoadCart(ctx, tx, phone, false)
		return err
	})
	return c, err
}

func (r *Repository) AddItem(ctx context.Context, phone string, item domain.Item, now time.Time) (domain.Cart, error) {
	var c domain.Cart
	err := pg.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		// The upsert on carts takes the cart row lock for the rest of the tx.
		if _, err := tx.Exec(ctx, `INSERT INTO carts (phone, created_at, updated_at, last_activity)
			VALUES ($1,$2,$2,$2)
			ON CONFLICT (phone) DO UPDATE SET updated_at=$2, last_activity=$2`, phone, now); err != nil {
			return pg.Wrap("upsert cart", err)
		}
		if item.Quantity > domain.MaxQuantity {
			return domain.ErrQuantityTooLarge
		}
		// The conflict branch skips the update when the sum would pass the cap.
		ct, err := tx.Exec(ctx, `INSERT INTO cart_items (phone, product_id, size, quantity, price_at_add, added_at)
			VALUES ($1,$2,$3,$4,$5::numeric,$6)
			ON CONFLICT (phone, product_id, size) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
			WHERE cart_items.quantity + EXCLUDED.quantity <= $7`,
			phone, item.ProductID, item.Size, item.Quantity, item.PriceAtAdd.String(), item.AddedAt, domain.MaxQuantity)
		if err != nil {
			return pg.Wrap("upsert cart item", err)
		}
		if ct.RowsAffected() == 0 {
			return domain.ErrQuantityTooLarge
		}
		c, err = LoadCart(ctx, tx, phone, false)
		return err
	})
	return c, err
}

func (r *Repository) SetQuantity(ctx context.Context, phone, productID, size string, quantity int, now time.Time) (domain.Cart, error) {
	return r.mutate(ctx, phone, now, func(tx pgx.Tx) error {
		var (
			sql  = `UPDATE cart_items SET quantity=$4 WHERE phone=$1 AND product_id=$2 AND size=$3`
			args = []any{phone, productID, size, quantity}
		)
		if quantity <= 0 {
			sql = `DELETE FROM cart_items WHERE phone=$1 AND product_id=$2 AND size=$3`
			args = args[:3]
		}
		ct, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return pg.Wrap("set cart item quantity", err)
		}
		if ct.RowsAffected() == 0 {
			return domain.ErrItemNotFound
		}
		return nil
	})
}

// RemoveItem with an empty size removes every size of the product.
func (r *Repository) RemoveItem(ctx context.Context, phone, productID, size string, now time.Time) (domain.Cart, error) {
	return r.mutate(ctx, phone, now, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE phone=$1 AND product_id=$2 AND ($3 = '' OR size=$3)`,
			phone, productID, size)
		return pg.Wrap("remove cart item", err)
	})
}

func (r *Repository) Clear(ctx context.Context, phone string, now time.Time) (domain.Cart, error) {
	return r.mutate(ctx, phone, now, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE phone=$1`, phone)
		return pg.Wrap("clear cart", err)
	})
}

func (r *Repository) ReplaceItems(ctx context.Context, phone string, items []domain.Item, now time.Time) (domain.Cart, error) {
	return r.mutate(ctx, phone, now, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE phone=$1`, phone); err != nil {
			return pg.Wrap("replace cart items", err)
		}
		batch := &pgx.Batch{}
		for _, it := range items {
			batch.Queue(`INSERT INTO cart_items (phone, product_id, size, quantity, price_at_add, added_at)
				VALUES ($1,$2,$3,$4,$5::numeric,$6)`,
				phone, it.ProductID, it.Size, it.Quantity, it.PriceAtAdd.String(), it.AddedAt)
		}
		return pg.Wrap("replace cart items", tx.SendBatch(ctx, batch).Close())
	})
}

func (r *Repository) Delete(ctx context.Context, phone string) error {
	return DeleteCart(ctx, r.pool, phone)
}

// mutate locks an existing cart, runs fn, bumps its activity timestamps and
// returns the reloaded cart.
func (r *Repository) mutate(ctx context.Context, phone string, now time.Time, fn func(tx pgx.Tx) error) (domain.Cart, error) {
	var c domain.Cart
	err := pg.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `UPDATE carts SET updated_at=$2, last_activity=$2 WHERE phone=$1`, phone, now)
		if err != nil {
			return pg.Wrap("touch cart", err)
		}
		if ct.RowsAffected() == 0 {
			return domain.ErrCartNotFound
		}
		if err := fn(tx); err != nil {
			return err
		}
		c, err = LoadCart(ctx, tx, phone, false)
		return err
	})
	return c, err
}

// LoadCart reads a cart and its lines in insertion order. With forUpdate the
// cart row stays locked until q's transaction ends.
func LoadCart(ctx context.Context, q pg.Querier, phone string, forUpdate bool) (domain.Cart, error) {
	sql := `SELECT phone, created_at, updated_at, last_activity FROM carts WHERE phone=$1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}

	var c domain.Cart
	err := q.QueryRow(ctx, sql, phone).Scan(&c.Phone, &c.CreatedAt, &c.UpdatedAt, &c.LastActivity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	if err != nil {
		return domain.Cart{}, pg.Wrap("load cart", err)
	}

	rows, err := q.Query(ctx, `SELECT product_id, size, quantity, price_at_add::text, added_at
		FROM cart_items WHERE phone=$1 ORDER BY position`, phone)
	if err != nil {
		return domain.Cart{}, pg.Wrap("load cart items", err)
	}
	defer rows.Close()

	c.Items = []domain.Item{}
	for rows.Next() {
		var (
			it    domain.Item
			price string
		)
		if err := rows.Scan(&it.ProductID, &it.Size, &it.Quantity, &price, &it.AddedAt); err != nil {
			return domain.Cart{}, pg.Wrap("scan cart item", err)
		}
		if it.PriceAtAdd, err = money.Parse(price); err != nil {
			return domain.Cart{}, pg.Wrap("decode cart item price", err)
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, pg.Wrap("load cart items", err)
	}
	c.Recalculate()
	return c, nil
}

// DeleteCart removes the cart and, by cascade, its lines.
func DeleteCart(ctx context.Context, q pg.Querier, phone string) error {
	ct, err := q.Exec(ctx, `DELETE FROM carts WHERE phone=$1`, phone)
	if err != nil {
		return pg.Wrap("delete cart", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}
