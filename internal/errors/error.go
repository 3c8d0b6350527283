// Package errors provides the error classification shared by the product stores and the REST layer.
// Stores wrap driver failures with these sentinels; callers match them with errors.Is.
package errors

import "errors"

var (
	// ErrProductNotFound reports that no product exists for the given identifier.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidID reports an identifier that is malformed for the store's addressing scheme.
	ErrInvalidID = errors.New("invalid product ID format")
	// ErrDuplicateName reports a write that would violate product name uniqueness.
	ErrDuplicateName = errors.New("product with this name already exists")
)
