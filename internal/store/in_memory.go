package store

import (
	"context"
	"sync"

	perrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/google/uuid"
)

// InMemoryStore implements ProductStore using an in-memory map.
// Listing preserves insertion order.
type InMemoryStore struct {
	mu       sync.RWMutex
	products map[string]Product
	order    []string
}

// NewInMemoryStore creates a new, empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		products: make(map[string]Product),
	}
}

// FindAll retrieves all products.
func (s *InMemoryStore) FindAll(_ context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.products[id])
	}
	return list, nil
}

// Insert creates a new product and returns it.
func (s *InMemoryStore) Insert(_ context.Context, fields ProductFields) (*Product, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTaken(fields.Name, "") {
		return nil, perrors.ErrDuplicateName
	}
	product := Product{
		ID:    uuid.NewString(),
		Name:  fields.Name,
		Price: fields.Price,
		Image: fields.Image,
	}
	s.products[product.ID] = product
	s.order = append(s.order, product.ID)

	return &product, nil
}

// FindByIDAndReplace replaces name, price and image of an existing product.
func (s *InMemoryStore) FindByIDAndReplace(_ context.Context, id string, fields ProductFields) (*Product, error) {
	id, err := canonicalID(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	if s.nameTaken(fields.Name, id) {
		return nil, perrors.ErrDuplicateName
	}
	product.Name = fields.Name
	product.Price = fields.Price
	product.Image = fields.Image
	s.products[id] = product

	return &product, nil
}

// FindByIDAndRemove deletes a product and returns it.
func (s *InMemoryStore) FindByIDAndRemove(_ context.Context, id string) (*Product, error) {
	id, err := canonicalID(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	delete(s.products, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return &product, nil
}

// Ping always succeeds.
func (s *InMemoryStore) Ping(_ context.Context) error {
	return nil
}

// nameTaken must be called with s.mu held.
func (s *InMemoryStore) nameTaken(name, exceptID string) bool {
	for id, p := range s.products {
		if id != exceptID && p.Name == name {
			return true
		}
	}
	return false
}

// canonicalID maps any accepted UUID spelling to the lowercase hyphenated key used by the map.
func canonicalID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", perrors.ErrInvalidID
	}
	return u.String(), nil
}
