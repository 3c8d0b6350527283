package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewMeterProvider_ServesMetrics(t *testing.T) {
	// given
	mp, handler, err := NewMeterProvider("product-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	counter, err := mp.Meter("test").Int64Counter("catalog_test_requests")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	// when
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "catalog_test_requests")
	assert.Contains(t, string(body), "go_goroutines")
}
