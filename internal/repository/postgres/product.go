// Package postgres holds the local product catalog. Customers and
// transactions live in DynamoDB; only products are relational.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/x23379014/MyPOS/internal/apperr"
	"github.com/x23379014/MyPOS/internal/clock"
	"github.com/x23379014/MyPOS/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS products (
		id           BIGSERIAL PRIMARY KEY,
		name         VARCHAR(200) NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		price        NUMERIC(10, 2) NOT NULL,
		quantity     INTEGER NOT NULL DEFAULT 0,
		s3_image_url TEXT,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)
`

const productColumns = `id, name, description, price::text, quantity, s3_image_url, created_at, updated_at`

type ProductRepository struct {
	pool     *pgxpool.Pool
	reporter *apperr.Reporter
	clock    clock.Clock
}

func NewProductRepository(pool *pgxpool.Pool, reporter *apperr.Reporter, clk clock.Clock) *ProductRepository {
	if reporter == nil {
		reporter = apperr.NewReporter(nil)
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &ProductRepository{pool: pool, reporter: reporter, clock: clk}
}

// EnsureSchema creates the products table if it is missing.
func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return r.reporter.Persistence(err, "ensure_schema")
	}
	return nil
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if err := r.validate(p); err != nil {
		return err
	}

	const query = `
		INSERT INTO products (name, description, price, quantity, s3_image_url, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $6)
		RETURNING id
	`

	now := r.clock.Now().UTC()
	err := r.pool.QueryRow(ctx, query,
		p.Name,
		p.Description,
		p.Price.StringFixed(2),
		p.Quantity,
		p.ImageURL,
		now,
	).Scan(&p.ID)
	if err != nil {
		return r.reporter.Persistence(err, "create_product")
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	r.reporter.Success("create_product", fmt.Sprint(p.ID))
	return nil
}

// GetByID returns domain.ErrNotFound when no product has the id.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, r.reporter.Persistence(err, "get_product")
	}
	return p, nil
}

// List returns every product, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, r.reporter.Persistence(err, "list_products")
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, r.reporter.Persistence(err, "list_products")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.reporter.Persistence(err, "list_products")
	}
	return products, nil
}

// Update overwrites the editable columns. The image URL is left alone; use
// SetImageURL for that.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	if err := r.validate(p); err != nil {
		return err
	}

	const query = `
		UPDATE products
		SET name = $2, description = $3, price = $4::numeric, quantity = $5, updated_at = $6
		WHERE id = $1
	`

	now := r.clock.Now().UTC()
	result, err := r.pool.Exec(ctx, query, p.ID, p.Name, p.Description, p.Price.StringFixed(2), p.Quantity, now)
	if err != nil {
		return r.reporter.Persistence(err, "update_product")
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", p.ID, domain.ErrNotFound)
	}
	p.UpdatedAt = now
	r.reporter.Success("update_product", fmt.Sprint(p.ID))
	return nil
}

func (r *ProductRepository) SetImageURL(ctx context.Context, id int64, url string) error {
	const query = `UPDATE products SET s3_image_url = $2, updated_at = $3 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, url, r.clock.Now().UTC())
	if err != nil {
		return r.reporter.Persistence(err, "set_product_image")
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return r.reporter.Persistence(err, "delete_product")
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	r.reporter.Success("delete_product", fmt.Sprint(id))
	return nil
}

// Ping checks database connectivity.
func (r *ProductRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *ProductRepository) validate(p *domain.Product) error {
	if p.Name == "" {
		return r.reporter.Validation("name", "product name is required")
	}
	if utf8.RuneCountInString(p.Name) > maxNameChars {
		return r.reporter.Validation("name", "product name must be at most 200 characters")
	}
	if p.Price.IsNegative() {
		return r.reporter.Validation("price", "price must not be negative")
	}
	if p.Price.GreaterThanOrEqual(maxPrice) {
		return r.reporter.Validation("price", "price must be below 100000000")
	}
	if !p.Price.Equal(p.Price.Round(2)) {
		return r.reporter.Validation("price", "price must have at most 2 decimal places")
	}
	if p.Quantity < 0 {
		return r.reporter.Validation("quantity", "quantity must not be negative")
	}
	return nil
}

// Limits of the products columns: VARCHAR(200) counts characters, NUMERIC(10,2)
// keeps two decimal places.
const maxNameChars = 200

var maxPrice = decimal.New(1, 8)

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&price,
		&p.Quantity,
		&p.ImageURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	return &p, nil
}
