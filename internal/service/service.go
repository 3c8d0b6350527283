// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/catalog/internal/store"
	"github.com/abgdnv/catalog/pkg/messaging"
	"github.com/abgdnv/catalog/pkg/messaging/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

// ErrIncompleteInput is returned when a ProductInput reaches the service with a field missing.
var ErrIncompleteInput = errors.New("name, price and image are required")

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// FindAll returns all products.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]ProductDto, error)

	// Create adds a new product to the catalog.
	Create(ctx context.Context, input ProductInput) (*ProductDto, error)

	// Replace overwrites name, price and image of an existing product.
	// Returns ErrInvalidID, ErrProductNotFound or ErrDuplicateName.
	Replace(ctx context.Context, id string, input ProductInput) (*ProductDto, error)

	// Delete removes a product and returns its last state.
	// Returns ErrInvalidID or ErrProductNotFound.
	Delete(ctx context.Context, id string) (*ProductDto, error)

	// Ping reports whether the underlying store is reachable.
	Ping(ctx context.Context) error
}

// ProductInput is the request body of create and update.
// Fields are pointers so that an absent field is told apart from a zero value.
type ProductInput struct {
	Name  *string  `json:"name"  validate:"required,min=1"`
	Price *float64 `json:"price" validate:"required,gt=0"`
	Image *string  `json:"image" validate:"required,min=1"`
}

func (in ProductInput) fields() (store.ProductFields, error) {
	if in.Name == nil || in.Price == nil || in.Image == nil {
		return store.ProductFields{}, ErrIncompleteInput
	}
	return store.ProductFields{Name: *in.Name, Price: *in.Price, Image: *in.Image}, nil
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository store.ProductStore
	publisher  messaging.Publisher
	writes     metric.Int64Counter
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new instance of ProductService with the provided repository and event publisher.
func NewService(repo store.ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	meter := otel.Meter("product-service")
	writes, err := meter.Int64Counter("product_writes", metric.WithDescription("Number of successful product writes by operation"))
	if err != nil {
		panic(fmt.Sprintf("failed to create product_writes counter: %v", err))
	}
	return &Service{
		repository: repo,
		publisher:  publisher,
		writes:     writes,
		logger:     logger.With("component", "service"),
		now:        time.Now,
	}
}

// FindAll retrieves all products and returns them as ProductDTOs.
func (s *Service) FindAll(ctx context.Context) ([]ProductDto, error) {
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	dtos := make([]ProductDto, len(products))
	for i := range products {
		dtos[i] = *toDto(&products[i])
	}
	return dtos, nil
}

// Create stores a new product and announces it with a ProductCreatedEvent.
func (s *Service) Create(ctx context.Context, input ProductInput) (*ProductDto, error) {
	fields, err := input.fields()
	if err != nil {
		return nil, err
	}
	created, err := s.repository.Insert(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.record(ctx, "create")
	s.publish(ctx, events.ProductCreatedEvent{
		Carrier:    carrier(ctx),
		Product:    toSnapshot(created),
		OccurredAt: s.now().UTC(),
	})
	return toDto(created), nil
}

// Replace updates a product and announces it with a ProductUpdatedEvent.
func (s *Service) Replace(ctx context.Context, id string, input ProductInput) (*ProductDto, error) {
	fields, err := input.fields()
	if err != nil {
		return nil, err
	}
	updated, err := s.repository.FindByIDAndReplace(ctx, id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}

	s.record(ctx, "update")
	s.publish(ctx, events.ProductUpdatedEvent{
		Carrier:    carrier(ctx),
		Product:    toSnapshot(updated),
		OccurredAt: s.now().UTC(),
	})
	return toDto(updated), nil
}

// Delete removes a product and announces it with a ProductDeletedEvent.
func (s *Service) Delete(ctx context.Context, id string) (*ProductDto, error) {
	removed, err := s.repository.FindByIDAndRemove(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete product with ID %s: %w", id, err)
	}

	s.record(ctx, "delete")
	s.publish(ctx, events.ProductDeletedEvent{
		Carrier:    carrier(ctx),
		Product:    toSnapshot(removed),
		OccurredAt: s.now().UTC(),
	})
	return toDto(removed), nil
}

// Ping delegates to the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.repository.Ping(ctx)
}

// publish is best effort: the write already happened, a failed event only gets logged.
func (s *Service) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event", "subject", event.Subject(), "error", err)
	}
}

func (s *Service) record(ctx context.Context, operation string) {
	s.writes.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

func carrier(ctx context.Context) propagation.MapCarrier {
	c := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, c)
	return c
}

func toDto(product *store.Product) *ProductDto {
	return &ProductDto{
		ID:    product.ID,
		Name:  product.Name,
		Price: product.Price,
		Image: product.Image,
	}
}

func toSnapshot(product *store.Product) events.ProductSnapshot {
	return events.ProductSnapshot{
		ID:    product.ID,
		Name:  product.Name,
		Price: product.Price,
		Image: product.Image,
	}
}
