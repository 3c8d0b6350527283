// Package store provides an interface for product storage operations.
package store

import (
	"context"
	"fmt"
	"strings"
)

// Product is a persisted product as returned to callers.
type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

// ProductFields holds the writable attributes of a product.
type ProductFields struct {
	Name  string
	Price float64
	Image string
}

// Validate applies the store level schema rules: every field present, price positive.
func (f ProductFields) Validate() error {
	var missing []string
	if f.Name == "" {
		missing = append(missing, "name")
	}
	if f.Image == "" {
		missing = append(missing, "image")
	}
	if len(missing) > 0 {
		return fmt.Errorf("product validation failed: missing %s", strings.Join(missing, ", "))
	}
	if f.Price <= 0 {
		return fmt.Errorf("product validation failed: price must be positive, got %v", f.Price)
	}
	return nil
}

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type ProductStore interface {
	// FindAll returns all stored products.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]Product, error)

	// Insert stores a new product and returns it with its generated ID.
	// Returns ErrDuplicateName if another product already has the same name.
	Insert(ctx context.Context, fields ProductFields) (*Product, error)

	// FindByIDAndReplace overwrites all writable fields of the product and returns the post-update state.
	// Returns ErrInvalidID, ErrProductNotFound or ErrDuplicateName.
	FindByIDAndReplace(ctx context.Context, id string, fields ProductFields) (*Product, error)

	// FindByIDAndRemove deletes the product and returns its last state.
	// Returns ErrInvalidID or ErrProductNotFound.
	FindByIDAndRemove(ctx context.Context, id string) (*Product, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
