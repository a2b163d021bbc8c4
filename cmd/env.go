package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/georesolve/internal/config"
	"github.com/sells-group/georesolve/internal/gazetteer"
	"github.com/sells-group/georesolve/internal/resolver"
	"github.com/sells-group/georesolve/pkg/geocode"
)

// resolveEnv bundles the pieces a resolution command needs.
type resolveEnv struct {
	index    *gazetteer.Index
	resolver *resolver.Resolver
	cache    *geocode.Cache // nil unless a persistent cache path is configured
}

// Close releases resources held by the environment.
func (e *resolveEnv) Close() {
	if e.cache != nil {
		_ = e.cache.Close()
	}
}

// initResolveEnv builds the gazetteer index and resolver from configuration.
// offline disables the online geocoding tier entirely.
func initResolveEnv(ctx context.Context, cfg *config.Config, offline bool) (*resolveEnv, error) {
	idx, err := gazetteer.Build(ctx, &gazetteer.FileSource{
		CitiesPath:    cfg.Gazetteer.CitiesPath,
		CountriesPath: cfg.Gazetteer.CountriesPath,
	})
	if err != nil {
		return nil, eris.Wrap(err, "build gazetteer index")
	}

	env := &resolveEnv{index: idx}

	var client geocode.Client
	if !offline {
		opts := []geocode.Option{
			geocode.WithBaseURL(cfg.Geocoder.BaseURL),
			geocode.WithUserAgent(cfg.Geocoder.UserAgent),
			geocode.WithRateLimit(cfg.Geocoder.RateLimit),
			geocode.WithMaxRetries(cfg.Geocoder.MaxRetries),
			geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Geocoder.TimeoutSecs) * time.Second}),
		}
		if cfg.Geocoder.CachePath != "" {
			cache, err := geocode.OpenCache(cfg.Geocoder.CachePath)
			if err != nil {
				return nil, eris.Wrap(err, "open geocode cache")
			}
			env.cache = cache
			opts = append(opts, geocode.WithCache(cache))
		}
		client = geocode.NewClient(opts...)
	} else {
		zap.L().Info("online tier disabled, resolving offline only")
	}

	env.resolver = resolver.New(idx, resolver.NewCache(), client, cfg.Resolver.FuzzyThreshold)
	return env, nil
}
