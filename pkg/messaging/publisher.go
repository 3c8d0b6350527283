// Package messaging defines the events the service emits and the publisher abstraction used to send them.
package messaging

import (
	"context"
)

// Subjects of product lifecycle events.
const (
	ProductsSubjects       = "products.>"
	ProductsCreatedSubject = "products.created"
	ProductsUpdatedSubject = "products.updated"
	ProductsDeletedSubject = "products.deleted"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher discards every event. Used when messaging is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
