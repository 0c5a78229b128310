package bandclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pricesPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("symbols") {
		case "SCRT":
			_, _ = w.Write([]byte(`{"price_results":[{"symbol":"SCRT","multiplier":"1000000000","px":"520000000"}]}`))
		default:
			_, _ = w.Write([]byte(`{"price_results":[]}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRate(t *testing.T) {
	server := newTestServer(t)
	client, err := New(Config{URL: server.URL})
	require.NoError(t, err)

	rate, err := client.Rate(context.Background(), "scrt", "usd")
	require.NoError(t, err)
	assert.Equal(t, "520000000000000000", rate.String())
}

func TestRateUnknownSymbol(t *testing.T) {
	server := newTestServer(t)
	client, err := New(Config{URL: server.URL})
	require.NoError(t, err)

	_, err = client.Rate(context.Background(), "ATOM", "USD")
	assert.Error(t, err)
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
