package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/shop-cart-service/internal/order/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
	"github.com/dmehra2102/shop-cart-service/pkg/outbox"
	pg "github.com/dmehra2102/shop-cart-service/pkg/postgres"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, o domain.Order, events []outbox.Event) error {
	return pg.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := InsertOrder(ctx, tx, o); err != nil {
			return err
		}
		return InsertOutbox(ctx, tx, events)
	})
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	return loadOrder(ctx, r.pool, id, false)
}

// ListByUser returns the user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, user string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_ref=$1 ORDER BY created_at DESC`, user)
	if err != nil {
		return nil, pg.Wrap("list orders", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	index := map[string]int{}
	ids := []string{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		index[o.ID] = len(orders)
		ids = append(ids, o.ID)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, pg.Wrap("list orders", err)
	}
	if len(ids) == 0 {
		return orders, nil
	}

	itemRows, err := r.pool.Query(ctx, `SELECT order_id, product_id, size, quantity, unit_price::text
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, line_no`, ids)
	if err != nil {
		return nil, pg.Wrap("list order items", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var orderID string
		line, err := scanLine(itemRows, &orderID)
		if err != nil {
			return nil, err
		}
		i := index[orderID]
		orders[i].Products = append(orders[i].Products, line)
	}
	if err := itemRows.Err(); err != nil {
		return nil, pg.Wrap("list order items", err)
	}
	return orders, nil
}

// Update holds the order row lock while fn decides the new state, so two
// concurrent status changes are applied one after the other.
func (r *Repository) Update(ctx context.Context, id string, fn func(o *domain.Order) ([]outbox.Event, error)) (domain.Order, error) {
	var out domain.Order
	err := pg.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		o, err := loadOrder(ctx, tx, id, true)
		if err != nil {
			return err
		}
		events, err := fn(&o)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE orders SET delivery_status=$2, payment_status=$3, address=$4,
			estimated_delivery=$5, updated_at=$6 WHERE id=$1`,
			o.ID, string(o.DeliveryStatus), string(o.PaymentStatus), o.Address, o.EstimatedDelivery, o.UpdatedAt); err != nil {
			return pg.Wrap("update order", err)
		}
		if err := InsertOutbox(ctx, tx, events); err != nil {
			return err
		}
		out = o
		return nil
	})
	return out, err
}

func (r *Repository) Delete(ctx context.Context, id string, events []outbox.Event) error {
	return pg.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
		if err != nil {
			return pg.Wrap("delete order", err)
		}
		if ct.RowsAffected() == 0 {
			return domain.ErrOrderNotFound
		}
		return InsertOutbox(ctx, tx, events)
	})
}

// InsertOrder writes the order row and its lines on q, typically a
// transaction shared with the cart being checked out.
func InsertOrder(ctx context.Context, q pg.Querier, o domain.Order) error {
	if _, err := q.Exec(ctx, `INSERT INTO orders (id, user_ref, address, delivery_status, payment_status,
			total_amount, estimated_delivery, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6::numeric,$7,$8,$9)`,
		o.ID, o.User, o.Address, string(o.DeliveryStatus), string(o.PaymentStatus),
		o.TotalAmount.String(), o.EstimatedDelivery, o.CreatedAt, o.UpdatedAt); err != nil {
		if pg.IsUniqueViolation(err) {
			return domain.ErrOrderExists.WithDetails(o.ID)
		}
		return pg.Wrap("insert order", err)
	}

	for i, line := range o.Products {
		if _, err := q.Exec(ctx, `INSERT INTO order_items (order_id, line_no, product_id, size, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5,$6::numeric)`,
			o.ID, i, line.ProductID, line.Size, line.Quantity, line.UnitPrice.String()); err != nil {
			return pg.Wrap("insert order item", err)
		}
	}
	return nil
}

const orderColumns = `id, user_ref, address, delivery_status, payment_status, total_amount::text,
	estimated_delivery, created_at, updated_at`

func loadOrder(ctx context.Context, q pg.Querier, id string, forUpdate bool) (domain.Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, id))
	if err != nil {
		return domain.Order{}, err
	}

	rows, err := q.Query(ctx, `SELECT order_id, product_id, size, quantity, unit_price::text
		FROM order_items WHERE order_id=$1 ORDER BY line_no`, id)
	if err != nil {
		return domain.Order{}, pg.Wrap("load order items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var orderID string
		line, err := scanLine(rows, &orderID)
		if err != nil {
			return domain.Order{}, err
		}
		o.Products = append(o.Products, line)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, pg.Wrap("load order items", err)
	}
	return o, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o                 domain.Order
		delivery, payment string
		total             string
	)
	err := row.Scan(&o.ID, &o.User, &o.Address, &delivery, &payment, &total,
		&o.EstimatedDelivery, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, pg.Wrap("scan order", err)
	}
	o.DeliveryStatus = domain.DeliveryStatus(delivery)
	o.PaymentStatus = domain.PaymentStatus(payment)
	if o.TotalAmount, err = money.Parse(total); err != nil {
		return domain.Order{}, pg.Wrap("decode order total", err)
	}
	o.Products = []domain.Line{}
	return o, nil
}

func scanLine(rows pgx.Rows, orderID *string) (domain.Line, error) {
	var (
		line  domain.Line
		price string
	)
	if err := rows.Scan(orderID, &line.ProductID, &line.Size, &line.Quantity, &price); err != nil {
		return domain.Line{}, pg.Wrap("scan order item", err)
	}
	var err error
	if line.UnitPrice, err = money.Parse(price); err != nil {
		return domain.Line{}, pg.Wrap("decode order item price", err)
	}
	return line, nil
}
