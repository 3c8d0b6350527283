package store

import (
	"context"
	"strings"
	"testing"

	perrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactory returns an empty store; it is called once per subtest.
type storeFactory func(t *testing.T) ProductStore

// runProductStoreContract checks the behaviour every ProductStore implementation shares.
// unknownID is well-formed for the store but not assigned to any product.
func runProductStoreContract(t *testing.T, newStore storeFactory, unknownID string) {
	ctx := context.Background()
	pen := ProductFields{Name: "Pen", Price: 1.5, Image: "pen.png"}
	cup := ProductFields{Name: "Cup", Price: 4.25, Image: "cup.png"}
	const malformedID = "not-an-id"

	t.Run("FindAll on empty store", func(t *testing.T) {
		s := newStore(t)

		products, err := s.FindAll(ctx)

		require.NoError(t, err)
		assert.Empty(t, products)
	})

	t.Run("Insert assigns id and echoes fields", func(t *testing.T) {
		s := newStore(t)

		created, err := s.Insert(ctx, pen)

		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "Pen", created.Name)
		assert.Equal(t, 1.5, created.Price)
		assert.Equal(t, "pen.png", created.Image)

		products, err := s.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, *created, products[0])
	})

	t.Run("Insert duplicate name", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, pen)
		require.NoError(t, err)

		_, err = s.Insert(ctx, ProductFields{Name: "Pen", Price: 3, Image: "other.png"})

		require.ErrorIs(t, err, perrors.ErrDuplicateName)
	})

	t.Run("Insert rejects non-positive price", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Insert(ctx, ProductFields{Name: "Free", Price: 0, Image: "free.png"})

		require.Error(t, err)
		assert.NotErrorIs(t, err, perrors.ErrDuplicateName)
	})

	t.Run("Replace returns post-update state", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Insert(ctx, pen)
		require.NoError(t, err)

		updated, err := s.FindByIDAndReplace(ctx, created.ID, ProductFields{Name: "Pen", Price: 2.0, Image: "pen.png"})

		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, 2.0, updated.Price)

		products, err := s.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, 2.0, products[0].Price)
	})

	t.Run("Replace unknown id", func(t *testing.T) {
		s := newStore(t)

		_, err := s.FindByIDAndReplace(ctx, unknownID, pen)

		require.ErrorIs(t, err, perrors.ErrProductNotFound)
	})

	t.Run("Replace malformed id", func(t *testing.T) {
		s := newStore(t)

		_, err := s.FindByIDAndReplace(ctx, malformedID, pen)

		require.ErrorIs(t, err, perrors.ErrInvalidID)
	})

	t.Run("Replace with name of another product", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, pen)
		require.NoError(t, err)
		created, err := s.Insert(ctx, cup)
		require.NoError(t, err)

		_, err = s.FindByIDAndReplace(ctx, created.ID, ProductFields{Name: "Pen", Price: 4.25, Image: "cup.png"})

		require.ErrorIs(t, err, perrors.ErrDuplicateName)
	})

	t.Run("Replace re-validates fields", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Insert(ctx, pen)
		require.NoError(t, err)

		_, err = s.FindByIDAndReplace(ctx, created.ID, ProductFields{Name: "Pen", Price: -1, Image: "pen.png"})

		require.Error(t, err)
		products, err := s.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, 1.5, products[0].Price)
	})

	t.Run("Remove returns last state and is not repeatable", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Insert(ctx, pen)
		require.NoError(t, err)

		removed, err := s.FindByIDAndRemove(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, *created, *removed)

		_, err = s.FindByIDAndRemove(ctx, created.ID)
		require.ErrorIs(t, err, perrors.ErrProductNotFound)

		products, err := s.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, products)
	})

	t.Run("Alternate id spelling addresses the same product", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Insert(ctx, pen)
		require.NoError(t, err)
		upper := strings.ToUpper(created.ID)

		updated, err := s.FindByIDAndReplace(ctx, upper, ProductFields{Name: "Pen", Price: 2.0, Image: "pen.png"})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)

		removed, err := s.FindByIDAndRemove(ctx, upper)
		require.NoError(t, err)
		assert.Equal(t, created.ID, removed.ID)

		products, err := s.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, products)
	})

	t.Run("Remove malformed id", func(t *testing.T) {
		s := newStore(t)

		_, err := s.FindByIDAndRemove(ctx, malformedID)

		require.ErrorIs(t, err, perrors.ErrInvalidID)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Ping(ctx))
	})
}
