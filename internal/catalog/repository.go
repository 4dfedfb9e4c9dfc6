package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Image    *string
	Category string
	Stock    int
}

// DBPool is the subset of *pgxpool.Pool the repository uses.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repository interface {
	// GetProducts returns the products keyed by id. Ids that do not exist are
	// absent from the map.
	GetProducts(ctx context.Context, ids []string) (map[string]Product, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) GetProducts(ctx context.Context, ids []string) (map[string]Product, error) {
	out := make(map[string]Product, len(ids))
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, name, price_minor, image, category, stock FROM products WHERE id = ANY($1::uuid[])`,
		valid)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p     Product
			minor int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &minor, &p.Image, &p.Category, &p.Stock); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Price = decimal.New(minor, -2)
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
