package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/kiosk-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const productsJSON = `[
	{"_id": "64a1", "uid": "A1", "status": "active", "name": "Milk", "sellingPrice": 1.50, "stock": 3},
	{"_id": "64b2", "uid": 584190, "status": "active", "name": "Bread", "sellingPrice": 2.49},
	{"_id": "64c3", "uid": "C3", "status": "inactive", "name": "Eggs", "sellingPrice": 4}
]`

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != ProductsPath || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestLoad_KeepsActiveProductsIndexedByUID(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, productsJSON)
	loader := NewLoader(srv.Client(), srv.URL+"/", zap.NewNop())

	snapshot, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Len())

	milk, err := snapshot.Lookup("A1")
	require.NoError(t, err)
	assert.Equal(t, "Milk", milk.Name)
	assert.Equal(t, "64a1", milk.CatalogID)
	assert.True(t, decimal.RequireFromString("1.5").Equal(milk.SellingPrice))

	bread, err := snapshot.Lookup("584190")
	require.NoError(t, err)
	assert.Equal(t, "Bread", bread.Name)

	_, err = snapshot.Lookup("C3")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestLoad_SkipsNegativePrices(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `[
		{"_id": "64a1", "uid": "A1", "status": "active", "name": "Milk", "sellingPrice": 1.50},
		{"_id": "64d4", "uid": "D4", "status": "active", "name": "Refund", "sellingPrice": -2}
	]`)
	core, logs := observer.New(zap.WarnLevel)
	loader := NewLoader(srv.Client(), srv.URL, zap.New(core))

	snapshot, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Len())

	_, err = snapshot.Lookup("D4")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	skipped := logs.FilterMessage("skipping product with negative price").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "D4", skipped[0].ContextMap()["uid"])
}

func TestLoad_Non2xxIsCatalogUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusInternalServerError, `{"message":"boom"}`)
	loader := NewLoader(srv.Client(), srv.URL, zap.NewNop())

	snapshot, err := loader.Load(context.Background())
	assert.Nil(t, snapshot)
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
	assert.Contains(t, err.Error(), "500")
}

func TestLoad_TransportErrorIsCatalogUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, productsJSON)
	url := srv.URL
	srv.Close()
	loader := NewLoader(&http.Client{Timeout: time.Second}, url, zap.NewNop())

	_, err := loader.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestLoad_MalformedBodyIsCatalogUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"not":"an array"}`)
	loader := NewLoader(srv.Client(), srv.URL, zap.NewNop())

	_, err := loader.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestLoad_DoesNotRetry(t *testing.T) {
	srv, hits := newTestServer(t, http.StatusBadGateway, "")
	loader := NewLoader(srv.Client(), srv.URL, zap.NewNop())

	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())

	// an explicit second call is the operator retry
	_, err = loader.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestLoad_ConcurrentCallsSucceed(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, productsJSON)
	loader := NewLoader(srv.Client(), srv.URL, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snapshot, err := loader.Load(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 2, snapshot.Len())
		}()
	}
	wg.Wait()
}
