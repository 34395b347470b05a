package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/shop-cart-service/internal/catalog/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
	pg "github.com/dmehra2102/shop-cart-service/pkg/postgres"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// FindByID reports exists=false, not an error, for unknown products.
func (r *Repository) FindByID(ctx context.Context, id string) (domain.Product, bool, error) {
	var (
		p     domain.Product
		price string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, price::text, created_at, updated_at FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &price, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, false, nil
	}
	if err != nil {
		return domain.Product{}, false, pg.Wrap("find product", err)
	}

	p.Price, err = money.Parse(price)
	if err != nil {
		return domain.Product{}, false, pg.Wrap("decode product price", err)
	}
	return p, true, nil
}

// Upsert is used by seeding and integration tests.
func (r *Repository) Upsert(ctx context.Context, p domain.Product) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO products (id, name, price) VALUES ($1,$2,$3::numeric)
		ON CONFLICT (id) DO UPDATE SET name=$2, price=$3::numeric, updated_at=now()`,
		p.ID, p.Name, p.Price.String())
	return pg.Wrap("upsert product", err)
}
