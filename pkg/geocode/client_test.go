package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// newTestClient builds a client pointed at a test server with no rate limit
// and millisecond backoff.
func newTestClient(srvURL string, opts ...Option) *client {
	c := NewClient(append([]Option{
		WithBaseURL(srvURL),
		WithRateLimit(1000),
	}, opts...)...).(*client)
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	c.retry.InitialBackoff = time.Millisecond
	c.retry.MaxBackoff = time.Millisecond
	return c
}

func TestGeocode_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ljubljana, Slovenia", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"lat": "46.0500268", "lon": "14.5069289", "display_name": "Ljubljana, Slovenia"}]`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	result, err := c.Geocode(context.Background(), "ljubljana, Slovenia")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.InDelta(t, 46.0500268, result.Latitude, 0.0001)
	assert.InDelta(t, 14.5069289, result.Longitude, 0.0001)
	assert.Equal(t, "Ljubljana, Slovenia", result.DisplayName)
}

func TestGeocode_NoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	result, err := c.Geocode(context.Background(), "atlantis, Slovenia")
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestGeocode_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"lat": "46.05", "lon": "14.51", "display_name": "Ljubljana"}]`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithMaxRetries(2))
	result, err := c.Geocode(context.Background(), "ljubljana, Slovenia")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGeocode_ExhaustedRetriesIsError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithMaxRetries(2))
	_, err := c.Geocode(context.Background(), "ljubljana, Slovenia")
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGeocode_PermanentStatusNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithMaxRetries(2))
	_, err := c.Geocode(context.Background(), "ljubljana, Slovenia")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeocode_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Geocode(context.Background(), "ljubljana, Slovenia")
	assert.Error(t, err)
}

func TestGeocode_CacheSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"lat": "46.05", "lon": "14.51", "display_name": "Ljubljana"}]`)
	}))
	defer srv.Close()

	cache, err := OpenCache(":memory:")
	require.NoError(t, err)
	defer cache.Close()

	c := newTestClient(srv.URL, WithCache(cache))

	first, err := c.Geocode(context.Background(), "ljubljana, Slovenia")
	require.NoError(t, err)
	second, err := c.Geocode(context.Background(), "ljubljana, Slovenia")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}
