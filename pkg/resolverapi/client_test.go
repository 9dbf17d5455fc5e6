package resolverapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omics-warehouse-loader/internal/domain"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // suppress logs during testing
	client, err := NewClient(Config{
		BaseURL:   baseURL,
		RateLimit: 1000, // keep tests fast
	}, logger)
	require.NoError(t, err)
	return client
}

func TestClient_ResolveCandidates(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves candidates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/resolve", r.URL.Path)
			assert.Equal(t, "9606", r.URL.Query().Get("taxon"))
			assert.Equal(t, "gene", r.URL.Query().Get("type"))
			assert.Equal(t, "TP53", r.URL.Query().Get("identifier"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"identifier":"TP53","matches":["7157"]}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		candidates, err := client.ResolveCandidates(ctx, "9606", "gene", "TP53")
		require.NoError(t, err)
		assert.Equal(t, []string{"7157"}, candidates)
	})

	t.Run("unknown identifier yields empty result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		candidates, err := client.ResolveCandidates(ctx, "9606", "gene", "NOSUCHGENE")
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("results are cached", func(t *testing.T) {
		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.Write([]byte(`{"identifier":"TP53","matches":["7157"]}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		for i := 0; i < 3; i++ {
			candidates, err := client.ResolveCandidates(ctx, "9606", "gene", "TP53")
			require.NoError(t, err)
			assert.Equal(t, []string{"7157"}, candidates)
		}
		assert.Equal(t, 1, requests)
	})

	t.Run("empty results are cached too", func(t *testing.T) {
		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		for i := 0; i < 2; i++ {
			candidates, err := client.ResolveCandidates(ctx, "9606", "gene", "NOSUCHGENE")
			require.NoError(t, err)
			assert.Empty(t, candidates)
		}
		assert.Equal(t, 1, requests)
	})

	t.Run("server error reports an outage", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.ResolveCandidates(ctx, "9606", "gene", "TP53")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrResolverUnavailable)
	})

	t.Run("circuit breaker opens after repeated failures", func(t *testing.T) {
		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		for i := 0; i < 6; i++ {
			_, err := client.ResolveCandidates(ctx, "9606", "gene", "TP53")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrResolverUnavailable)
		}
		assert.Less(t, requests, 6, "open breaker must stop reaching the service")
	})

	t.Run("empty identifier is rejected", func(t *testing.T) {
		client := newTestClient(t, "http://localhost:0")
		_, err := client.ResolveCandidates(ctx, "9606", "gene", "")
		assert.Error(t, err)
	})
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{}, logrus.New())
	assert.Error(t, err)
}
