package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/catalog/pkg/messaging"
	"go.opentelemetry.io/otel/propagation"
)

// ProductSnapshot is the product state carried by lifecycle events.
type ProductSnapshot struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

type ProductCreatedEvent struct {
	Carrier    propagation.MapCarrier `json:"carrier,omitempty"`
	Product    ProductSnapshot        `json:"product"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e ProductCreatedEvent) Subject() string {
	return messaging.ProductsCreatedSubject
}

func (e ProductCreatedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

type ProductUpdatedEvent struct {
	Carrier    propagation.MapCarrier `json:"carrier,omitempty"`
	Product    ProductSnapshot        `json:"product"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e ProductUpdatedEvent) Subject() string {
	return messaging.ProductsUpdatedSubject
}

func (e ProductUpdatedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// ProductDeletedEvent carries the state of the product at deletion time.
type ProductDeletedEvent struct {
	Carrier    propagation.MapCarrier `json:"carrier,omitempty"`
	Product    ProductSnapshot        `json:"product"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e ProductDeletedEvent) Subject() string {
	return messaging.ProductsDeletedSubject
}

func (e ProductDeletedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
