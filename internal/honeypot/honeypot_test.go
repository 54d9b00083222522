package honeypot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "0xAbCd000000000000000000000000000000000001"

func newTestClient(t *testing.T, handler http.HandlerFunc) (*APIClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewAPIClient(APIConfig{
		BaseURL:  srv.URL,
		Timeout:  2 * time.Second,
		CacheTTL: time.Minute,
	})
	return client, srv
}

func TestAPIClient(t *testing.T) {
	t.Run("parses a clean verdict", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, testToken, r.URL.Query().Get("address"))
			assert.Equal(t, "1", r.URL.Query().Get("chainID"))
			w.Write([]byte(`{
				"honeypotResult": {"isHoneypot": false},
				"simulationResult": {"buyTax": 2.5, "sellTax": 3.0, "buyGas": 150000, "sellGas": "140000"}
			}`))
		})

		result := client.Check(context.Background(), testToken, "ethereum")
		assert.False(t, result.IsHoneypot)
		assert.True(t, result.CanBuy)
		assert.True(t, result.CanSell)
		assert.Equal(t, 2.5, result.BuyTaxPct)
		assert.Equal(t, 3.0, result.SellTaxPct)
		assert.False(t, result.Unknown)
	})

	t.Run("zero sell gas means cannot sell", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{
				"honeypotResult": {"isHoneypot": true},
				"simulationResult": {"buyTax": 0, "sellTax": 100, "buyGas": 150000, "sellGas": 0}
			}`))
		})

		result := client.Check(context.Background(), testToken, "bsc")
		assert.True(t, result.IsHoneypot)
		assert.True(t, result.CanBuy)
		assert.False(t, result.CanSell)
	})

	t.Run("verdicts are cached inside the ttl", func(t *testing.T) {
		var hits atomic.Int64
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.Write([]byte(`{"honeypotResult": {"isHoneypot": false},
				"simulationResult": {"buyGas": 1, "sellGas": 1}}`))
		})

		client.Check(context.Background(), testToken, "ethereum")
		client.Check(context.Background(), testToken, "ethereum")
		assert.Equal(t, int64(1), hits.Load())

		client.ClearCache()
		client.Check(context.Background(), testToken, "ethereum")
		assert.Equal(t, int64(2), hits.Load())
	})

	t.Run("api failure degrades to unknown", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		result := client.Check(context.Background(), testToken, "ethereum")
		require.True(t, result.Unknown)
		assert.True(t, result.CanBuy)
		assert.True(t, result.CanSell)
	})

	t.Run("unsupported chain degrades to unknown", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			t.Error("no request expected")
		})

		result := client.Check(context.Background(), testToken, "base")
		assert.True(t, result.Unknown)
	})

	t.Run("malformed payload degrades to unknown", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`not json`))
		})

		result := client.Check(context.Background(), testToken, "ethereum")
		assert.True(t, result.Unknown)
	})
}

func TestStatic(t *testing.T) {
	s := NewStatic(UnknownResult("offline"))
	s.SetResult(testToken, Result{IsHoneypot: true, SellTaxPct: 99})

	hit := s.Check(context.Background(), testToken, "ethereum")
	assert.True(t, hit.IsHoneypot)
	assert.Equal(t, 99.0, hit.SellTaxPct)

	miss := s.Check(context.Background(), "0x0000000000000000000000000000000000000002", "ethereum")
	assert.True(t, miss.Unknown)
	assert.True(t, miss.CanSell)
}
