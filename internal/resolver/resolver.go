// Package resolver implements the three-tier place resolution strategy:
// exact offline lookup, fuzzy offline lookup, rate-limited online geocoding,
// memoized per unique (city, country) pair.
package resolver

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/georesolve/internal/gazetteer"
	"github.com/sells-group/georesolve/internal/match"
	"github.com/sells-group/georesolve/pkg/geocode"
)

// Reason explains why a query ended unresolved, so callers can tell a
// confident "no such place" from a network failure.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonUnknownCountry Reason = "unknown_country"
	ReasonNoMatch        Reason = "no_match"
	ReasonOnlineNoResult Reason = "online_no_result"
	ReasonOnlineFailed   Reason = "online_failed"
)

// Outcome is the result of resolving one Key. Resolved=false means no tier
// produced a coordinate; Reason says why.
type Outcome struct {
	Lat      float64
	Lon      float64
	Resolved bool
	Source   string // "exact", "fuzzy" or "online"
	Reason   Reason
}

// Gazetteer is the offline reference index consulted by the exact and
// fuzzy tiers.
type Gazetteer interface {
	CountryName(code string) (string, bool)
	Exact(city, code string) (gazetteer.Coordinate, bool)
	Candidates(code string) []gazetteer.Entry
}

// DefaultFuzzyThreshold is the minimum 0-100 similarity score the fuzzy
// tier accepts.
const DefaultFuzzyThreshold = 90

// Resolver runs the tiered strategy against a gazetteer and an optional
// online geocoder, recording every outcome in its cache.
type Resolver struct {
	index     Gazetteer
	cache     *Cache
	geocoder  geocode.Client // nil disables the online tier
	threshold int
}

// New creates a Resolver. A nil geocoder disables the online tier (offline
// mode); a non-positive threshold falls back to DefaultFuzzyThreshold.
func New(index Gazetteer, cache *Cache, geocoder geocode.Client, threshold int) *Resolver {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return &Resolver{index: index, cache: cache, geocoder: geocoder, threshold: threshold}
}

// Cache exposes the resolution cache for result fan-out after a batch pass.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Resolve maps a normalized city name and country code to a coordinate.
// code may be empty when the country name was not recognized; the
// country-scoped tiers are skipped in that case. Repeated calls with the
// same pair short-circuit on the cache, so each unique pair costs at most
// one fuzzy scan and one network call per process lifetime.
func (r *Resolver) Resolve(ctx context.Context, city, code string) Outcome {
	key := Key{City: city, Code: code}
	if out, ok := r.cache.Get(key); ok {
		return out
	}

	out := r.resolve(ctx, city, code)
	r.cache.Put(key, out)
	return out
}

func (r *Resolver) resolve(ctx context.Context, city, code string) Outcome {
	log := zap.L().With(zap.String("city", city), zap.String("country", code))

	if coord, ok := r.index.Exact(city, code); ok {
		log.Debug("resolved via exact tier")
		return Outcome{Lat: coord.Lat, Lon: coord.Lon, Resolved: true, Source: "exact"}
	}

	if code == "" {
		// Without a country there is no candidate pool to scan and no
		// meaningful query string for the online service.
		return Outcome{Reason: ReasonUnknownCountry}
	}

	if out, ok := r.fuzzy(city, code, log); ok {
		return out
	}

	return r.online(ctx, city, code, log)
}

// fuzzy scans the country's candidate pool for the best partial-ratio
// match at or above the threshold.
func (r *Resolver) fuzzy(city, code string, log *zap.Logger) (Outcome, bool) {
	entries := r.index.Candidates(code)
	if len(entries) == 0 {
		return Outcome{}, false
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}

	name, score, idx := match.Best(city, names)
	if score < r.threshold {
		log.Debug("fuzzy tier below threshold",
			zap.String("best", name),
			zap.Int("score", score),
		)
		return Outcome{}, false
	}

	log.Debug("resolved via fuzzy tier",
		zap.String("matched", name),
		zap.Int("score", score),
	)
	coord := entries[idx].Coord
	return Outcome{Lat: coord.Lat, Lon: coord.Lon, Resolved: true, Source: "fuzzy"}, true
}

// online issues a single geocoding request through the rate-limited client.
// Failures are converted to unresolved outcomes; retry and pacing are the
// client's responsibility, not ours.
func (r *Resolver) online(ctx context.Context, city, code string, log *zap.Logger) Outcome {
	if r.geocoder == nil {
		return Outcome{Reason: ReasonNoMatch}
	}

	countryName, ok := r.index.CountryName(code)
	if !ok {
		return Outcome{Reason: ReasonUnknownCountry}
	}

	place := city + ", " + countryName
	result, err := r.geocoder.Geocode(ctx, place)
	if err != nil {
		log.Warn("online tier failed", zap.String("place", place), zap.Error(err))
		return Outcome{Reason: ReasonOnlineFailed}
	}
	if !result.Matched {
		log.Debug("online tier returned no result", zap.String("place", place))
		return Outcome{Reason: ReasonOnlineNoResult}
	}

	log.Debug("resolved via online tier", zap.String("place", place))
	return Outcome{Lat: result.Latitude, Lon: result.Longitude, Resolved: true, Source: "online"}
}
