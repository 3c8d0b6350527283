package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abgdnv/catalog/internal/service"
	"github.com/abgdnv/catalog/internal/store"
	"github.com/abgdnv/catalog/pkg/messaging"
	"github.com/abgdnv/catalog/pkg/server"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsPath = "/api/v1/products"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
}

func (e envelope) product(t *testing.T) service.ProductDto {
	t.Helper()
	var p service.ProductDto
	require.NoError(t, json.Unmarshal(e.Data, &p))
	return p
}

func (e envelope) products(t *testing.T) []service.ProductDto {
	t.Helper()
	var list []service.ProductDto
	require.NoError(t, json.Unmarshal(e.Data, &list))
	return list
}

// failingStore fails every call with the same error.
type failingStore struct {
	err error
}

func (f failingStore) FindAll(context.Context) ([]store.Product, error) { return nil, f.err }
func (f failingStore) Insert(context.Context, store.ProductFields) (*store.Product, error) {
	return nil, f.err
}
func (f failingStore) FindByIDAndReplace(context.Context, string, store.ProductFields) (*store.Product, error) {
	return nil, f.err
}
func (f failingStore) FindByIDAndRemove(context.Context, string) (*store.Product, error) {
	return nil, f.err
}
func (f failingStore) Ping(context.Context) error { return f.err }

// countingStore records the mutating calls that reach the wrapped store.
type countingStore struct {
	store.ProductStore
	mutations int
}

func (c *countingStore) Insert(ctx context.Context, f store.ProductFields) (*store.Product, error) {
	c.mutations++
	return c.ProductStore.Insert(ctx, f)
}

func (c *countingStore) FindByIDAndReplace(ctx context.Context, id string, f store.ProductFields) (*store.Product, error) {
	c.mutations++
	return c.ProductStore.FindByIDAndReplace(ctx, id, f)
}

func newTestRouter(repo store.ProductStore, hideErrorDetail bool) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewService(repo, messaging.NoopPublisher{}, logger)
	router := server.NewChiRouter(logger)
	NewHandler(svc, logger, hideErrorDetail).RegisterRoutes(router)
	return router
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return rr.Code, env
}

func Test_PenScenario(t *testing.T) {
	h := newTestRouter(store.NewInMemoryStore(), false)

	// create
	status, env := do(t, h, http.MethodPost, productsPath, `{"name":"Pen","price":1.5,"image":"pen.png"}`)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, env.Success)
	created := env.product(t)
	assert.Equal(t, "Pen", created.Name)
	require.NotEmpty(t, created.ID)

	// update
	status, env = do(t, h, http.MethodPut, productsPath+"/"+created.ID, `{"name":"Pen","price":2.0,"image":"pen.png"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Product updated successfully.", env.Message)
	assert.Equal(t, 2.0, env.product(t).Price)

	// delete
	status, env = do(t, h, http.MethodDelete, productsPath+"/"+created.ID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Product deleted successfully.", env.Message)
	assert.Equal(t, "Pen", env.product(t).Name)

	// delete again
	status, env = do(t, h, http.MethodDelete, productsPath+"/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.Equal(t, "Product not found.", env.Message)
}

func Test_Create_EchoesFields(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want service.ProductDto
	}{
		{name: "integer price", body: `{"name":"Cup","price":3,"image":"cup.png"}`, want: service.ProductDto{Name: "Cup", Price: 3, Image: "cup.png"}},
		{name: "url image", body: `{"name":"Lamp","price":19.99,"image":"https://cdn.example.com/lamp.jpg"}`, want: service.ProductDto{Name: "Lamp", Price: 19.99, Image: "https://cdn.example.com/lamp.jpg"}},
		{name: "unknown fields ignored", body: `{"name":"Mug","price":0.5,"image":"mug.png","stock":4}`, want: service.ProductDto{Name: "Mug", Price: 0.5, Image: "mug.png"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(store.NewInMemoryStore(), false)

			status, env := do(t, h, http.MethodPost, productsPath, tc.body)

			require.Equal(t, http.StatusCreated, status)
			got := env.product(t)
			assert.NotEmpty(t, got.ID)
			got.ID = ""
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_Create_Update_ValidationErrors(t *testing.T) {
	bodies := map[string]string{
		"empty body":     "",
		"empty object":   `{}`,
		"missing name":   `{"price":1.5,"image":"pen.png"}`,
		"missing price":  `{"name":"Pen","image":"pen.png"}`,
		"missing image":  `{"name":"Pen","price":1.5}`,
		"empty name":     `{"name":"","price":1.5,"image":"pen.png"}`,
		"empty image":    `{"name":"Pen","price":1.5,"image":""}`,
		"zero price":     `{"name":"Pen","price":0,"image":"pen.png"}`,
		"negative price": `{"name":"Pen","price":-1,"image":"pen.png"}`,
		"null name":      `{"name":null,"price":1.5,"image":"pen.png"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			// given
			repo := &countingStore{ProductStore: store.NewInMemoryStore()}
			existing, err := repo.ProductStore.Insert(context.Background(), store.ProductFields{Name: "Old", Price: 1, Image: "old.png"})
			require.NoError(t, err)
			h := newTestRouter(repo, false)

			// when
			createStatus, createEnv := do(t, h, http.MethodPost, productsPath, body)
			updateStatus, updateEnv := do(t, h, http.MethodPatch, productsPath+"/"+existing.ID, body)

			// then
			assert.Equal(t, http.StatusBadRequest, createStatus)
			assert.False(t, createEnv.Success)
			assert.Equal(t, "Please, provide all fields", createEnv.Message)
			assert.Equal(t, http.StatusBadRequest, updateStatus)
			assert.False(t, updateEnv.Success)
			assert.Equal(t, "Please, provide all fields (name, price, image) for update.", updateEnv.Message)
			assert.Empty(t, createEnv.Data)
			assert.Empty(t, updateEnv.Data)
			assert.Zero(t, repo.mutations, "no store mutation expected")
		})
	}
}

func Test_Create_Update_MalformedBody(t *testing.T) {
	bodies := map[string]string{
		"truncated":        `{"name":"Pen","price":"cheap"`,
		"wrong type":       `{"name":"Pen","price":"cheap","image":"pen.png"}`,
		"trailing garbage": `{"name":"Cup","price":1,"image":"c.png"} trailing-garbage`,
		"two objects":      `{"name":"Cup","price":1,"image":"c.png"}{"name":"Mug","price":2,"image":"m.png"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			// given
			repo := &countingStore{ProductStore: store.NewInMemoryStore()}
			existing, err := repo.ProductStore.Insert(context.Background(), store.ProductFields{Name: "Old", Price: 1, Image: "old.png"})
			require.NoError(t, err)
			h := newTestRouter(repo, false)

			// when
			createStatus, createEnv := do(t, h, http.MethodPost, productsPath, body)
			updateStatus, updateEnv := do(t, h, http.MethodPut, productsPath+"/"+existing.ID, body)

			// then
			assert.Equal(t, http.StatusBadRequest, createStatus)
			assert.Equal(t, "Invalid request body", createEnv.Message)
			assert.Equal(t, http.StatusBadRequest, updateStatus)
			assert.Equal(t, "Invalid request body", updateEnv.Message)
			assert.Zero(t, repo.mutations, "no store mutation expected")
		})
	}
}

func Test_Create_TrailingWhitespaceAccepted(t *testing.T) {
	h := newTestRouter(store.NewInMemoryStore(), false)

	status, env := do(t, h, http.MethodPost, productsPath, "{\"name\":\"Cup\",\"price\":1,\"image\":\"c.png\"}\n  ")

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Cup", env.product(t).Name)
}

func Test_List(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		h := newTestRouter(store.NewInMemoryStore(), false)

		status, env := do(t, h, http.MethodGet, productsPath, "")

		assert.Equal(t, http.StatusNotFound, status)
		assert.False(t, env.Success)
		assert.Equal(t, "No products found.", env.Message)
	})

	t.Run("count matches stored items", func(t *testing.T) {
		h := newTestRouter(store.NewInMemoryStore(), false)
		for _, body := range []string{
			`{"name":"Pen","price":1.5,"image":"pen.png"}`,
			`{"name":"Cup","price":3,"image":"cup.png"}`,
			`{"name":"Lamp","price":20,"image":"lamp.png"}`,
		} {
			status, _ := do(t, h, http.MethodPost, productsPath, body)
			require.Equal(t, http.StatusCreated, status)
		}

		status, env := do(t, h, http.MethodGet, productsPath, "")

		require.Equal(t, http.StatusOK, status)
		assert.True(t, env.Success)
		require.NotNil(t, env.Count)
		assert.Equal(t, 3, *env.Count)
		list := env.products(t)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"Pen", "Cup", "Lamp"}, []string{list[0].Name, list[1].Name, list[2].Name})
	})

	t.Run("deleted product is not listed", func(t *testing.T) {
		h := newTestRouter(store.NewInMemoryStore(), false)
		_, env := do(t, h, http.MethodPost, productsPath, `{"name":"Pen","price":1.5,"image":"pen.png"}`)
		pen := env.product(t)
		_, _ = do(t, h, http.MethodPost, productsPath, `{"name":"Cup","price":3,"image":"cup.png"}`)

		status, _ := do(t, h, http.MethodDelete, productsPath+"/"+pen.ID, "")
		require.Equal(t, http.StatusOK, status)

		_, env = do(t, h, http.MethodGet, productsPath, "")
		for _, p := range env.products(t) {
			assert.NotEqual(t, pen.ID, p.ID)
		}
		assert.Equal(t, 1, *env.Count)
	})
}

func Test_Update_Errors(t *testing.T) {
	body := `{"name":"Pen","price":2,"image":"pen.png"}`
	testCases := []struct {
		name          string
		id            string
		expectStatus  int
		expectMessage string
	}{
		{name: "unknown id", id: uuid.NewString(), expectStatus: http.StatusNotFound, expectMessage: "Product not found."},
		{name: "malformed id", id: "not-an-id", expectStatus: http.StatusBadRequest, expectMessage: "Invalid product ID format."},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(store.NewInMemoryStore(), false)

			status, env := do(t, h, http.MethodPut, productsPath+"/"+tc.id, body)

			assert.Equal(t, tc.expectStatus, status)
			assert.False(t, env.Success)
			assert.Equal(t, tc.expectMessage, env.Message)
		})
	}
}

func Test_Update_DuplicateName(t *testing.T) {
	// given
	h := newTestRouter(store.NewInMemoryStore(), false)
	_, env := do(t, h, http.MethodPost, productsPath, `{"name":"Pen","price":1.5,"image":"pen.png"}`)
	pen := env.product(t)
	_, env = do(t, h, http.MethodPost, productsPath, `{"name":"Cup","price":3,"image":"cup.png"}`)
	cup := env.product(t)

	// when
	status, env := do(t, h, http.MethodPut, productsPath+"/"+cup.ID, `{"name":"Pen","price":9,"image":"x.png"}`)

	// then
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Product with this name already exists.", env.Message)

	_, env = do(t, h, http.MethodGet, productsPath, "")
	for _, p := range env.products(t) {
		if p.ID == pen.ID {
			assert.Equal(t, service.ProductDto{ID: pen.ID, Name: "Pen", Price: 1.5, Image: "pen.png"}, p)
		}
	}
}

func Test_Delete_MalformedID(t *testing.T) {
	h := newTestRouter(store.NewInMemoryStore(), false)

	status, env := do(t, h, http.MethodDelete, productsPath+"/not-an-id", "")

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid product ID format.", env.Message)
}

func Test_StoreFailure(t *testing.T) {
	id := uuid.NewString()
	body := `{"name":"Pen","price":1.5,"image":"pen.png"}`
	requests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "list", method: http.MethodGet, path: productsPath},
		{name: "create", method: http.MethodPost, path: productsPath, body: body},
		{name: "update", method: http.MethodPut, path: productsPath + "/" + id, body: body},
		{name: "delete", method: http.MethodDelete, path: productsPath + "/" + id},
	}
	for _, req := range requests {
		t.Run(req.name+" with detail", func(t *testing.T) {
			h := newTestRouter(failingStore{err: errors.New("connection lost")}, false)

			status, env := do(t, h, req.method, req.path, req.body)

			assert.Equal(t, http.StatusInternalServerError, status)
			assert.False(t, env.Success)
			assert.Contains(t, env.Message, "Server Error: ")
			assert.Contains(t, env.Message, "connection lost")
		})
		t.Run(req.name+" detail hidden", func(t *testing.T) {
			h := newTestRouter(failingStore{err: errors.New("connection lost")}, true)

			status, env := do(t, h, req.method, req.path, req.body)

			assert.Equal(t, http.StatusInternalServerError, status)
			assert.Equal(t, "Server Error", env.Message)
		})
	}
}

func Test_Create_DuplicateNameIsServerError(t *testing.T) {
	h := newTestRouter(store.NewInMemoryStore(), false)
	body := `{"name":"Pen","price":1.5,"image":"pen.png"}`
	status, _ := do(t, h, http.MethodPost, productsPath, body)
	require.Equal(t, http.StatusCreated, status)

	status, env := do(t, h, http.MethodPost, productsPath, body)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, env.Success)
}

func Test_Probes(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		status, env := do(t, newTestRouter(failingStore{err: errors.New("down")}, false), http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, env.Success)
	})
	t.Run("readyz ready", func(t *testing.T) {
		status, env := do(t, newTestRouter(store.NewInMemoryStore(), false), http.MethodGet, "/readyz", "")
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, env.Success)
	})
	t.Run("readyz store down", func(t *testing.T) {
		status, env := do(t, newTestRouter(failingStore{err: errors.New("down")}, false), http.MethodGet, "/readyz", "")
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.False(t, env.Success)
	})
}

func Test_UnknownRouteAndMethod(t *testing.T) {
	h := newTestRouter(store.NewInMemoryStore(), false)

	status, env := do(t, h, http.MethodGet, "/api/v1/orders", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)

	status, env = do(t, h, http.MethodGet, productsPath+"/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.False(t, env.Success)
}
