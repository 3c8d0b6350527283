package store

import (
	"context"
	"errors"
	"fmt"

	perrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
	productColumns  = "id::text, name, price, image"
)

// PgStore implements ProductStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

// FindAll retrieves all products ordered by creation time.
func (p *PgStore) FindAll(ctx context.Context) ([]Product, error) {
	rows, err := p.db.Query(ctx, "SELECT "+productColumns+" FROM products ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to find all products: %w", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find all products: %w", err)
	}
	return products, nil
}

// Insert adds a new product to the system.
func (p *PgStore) Insert(ctx context.Context, fields ProductFields) (*Product, error) {
	row := p.db.QueryRow(ctx,
		"INSERT INTO products (id, name, price, image) VALUES ($1, $2, $3, $4) RETURNING "+productColumns,
		uuid.New(), fields.Name, fields.Price, fields.Image)
	product, err := scanProduct(row)
	if err != nil {
		return nil, classifyPgError("failed to create product", err)
	}
	return &product, nil
}

// FindByIDAndReplace overwrites name, price and image and returns the updated row.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) FindByIDAndReplace(ctx context.Context, id string, fields ProductFields) (*Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, perrors.ErrInvalidID
	}
	row := p.db.QueryRow(ctx,
		"UPDATE products SET name = $2, price = $3, image = $4 WHERE id = $1 RETURNING "+productColumns,
		uid, fields.Name, fields.Price, fields.Image)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, classifyPgError("failed to update product", err)
	}
	return &product, nil
}

// FindByIDAndRemove removes a product by its unique identifier and returns the deleted row.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) FindByIDAndRemove(ctx context.Context, id string) (*Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, perrors.ErrInvalidID
	}
	row := p.db.QueryRow(ctx, "DELETE FROM products WHERE id = $1 RETURNING "+productColumns, uid)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to delete product by ID: %w", err)
	}
	return &product, nil
}

// Ping checks database connectivity.
func (p *PgStore) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func scanProduct(row pgx.Row) (Product, error) {
	var product Product
	err := row.Scan(&product.ID, &product.Name, &product.Price, &product.Image)
	return product, err
}

func classifyPgError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return perrors.ErrDuplicateName
		case checkViolation:
			return fmt.Errorf("%s: product validation failed (%s): %w", msg, pgErr.ConstraintName, err)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
