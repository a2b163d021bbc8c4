// Package geocode resolves free-text place strings to coordinates via the
// Nominatim search API, with rate limiting, bounded retries, and an
// optional persistent result cache.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/georesolve/internal/resilience"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// Client geocodes a human-readable place string ("city, Country").
type Client interface {
	// Geocode returns the best match for place, or an unmatched Result when
	// the service has no answer. A non-nil error means the service could
	// not be reached after the internal retry budget was spent.
	Geocode(ctx context.Context, place string) (*Result, error)
}

// Result holds the geocoding output for a place string.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Matched     bool
}

// Option configures the geocoder.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithBaseURL overrides the Nominatim endpoint (self-hosted instances, tests).
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

// WithUserAgent sets the User-Agent header. Nominatim's usage policy
// requires an identifying agent.
func WithUserAgent(ua string) Option {
	return func(c *client) { c.userAgent = ua }
}

// WithRateLimit sets the requests-per-second ceiling. The public Nominatim
// instance allows at most one request per second.
func WithRateLimit(rps float64) Option {
	return func(c *client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithMaxRetries sets how many times a transient failure is retried before
// the call gives up.
func WithMaxRetries(n int) Option {
	return func(c *client) { c.retry.MaxAttempts = n + 1 }
}

// WithCache attaches a persistent result cache consulted before the network.
func WithCache(cache *Cache) Option {
	return func(c *client) { c.cache = cache }
}

type client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	cache      *Cache
}

// NewClient creates a geocoding Client with the given options. Defaults:
// public Nominatim endpoint, 1 req/s, 2 retries on transient failure.
func NewClient(opts ...Option) Client {
	c := &client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		userAgent:  "georesolve/1.0",
		limiter:    rate.NewLimiter(1, 1),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// nominatimPlace is one element of the Nominatim search response. The API
// serializes coordinates as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode implements Client.
func (c *client) Geocode(ctx context.Context, place string) (*Result, error) {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, place)
		if err != nil {
			zap.L().Warn("geocode: cache read failed", zap.Error(err))
		} else if cached != nil {
			zap.L().Debug("geocode cache hit", zap.String("place", place), zap.Bool("matched", cached.Matched))
			return cached, nil
		}
	}

	result, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Result, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "geocode: rate limit")
		}
		return c.search(ctx, place)
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, place, result); err != nil {
			zap.L().Warn("geocode: cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

// search performs one Nominatim request.
func (c *client) search(ctx context.Context, place string) (*Result, error) {
	params := url.Values{
		"q":      {place},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	reqURL := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}

	if len(places) == 0 {
		return &Result{Matched: false}, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: parse latitude")
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: parse longitude")
	}

	return &Result{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: places[0].DisplayName,
		Matched:     true,
	}, nil
}
