package batch

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/georesolve/internal/normalize"
	"github.com/sells-group/georesolve/internal/resolver"
)

// CountryMapper maps a normalized country name to its ISO code.
type CountryMapper interface {
	CountryCode(normalizedName string) (string, bool)
}

// Stats summarizes one batch run.
type Stats struct {
	Rows       int
	UniqueKeys int
	BySource   map[string]int // exact / fuzzy / online / unresolved row counts
}

// Run resolves every row of t and appends Latitude and Longitude columns
// (left empty where unresolved). Pass 1 walks the rows, collects each
// distinct query key in first-seen order and resolves it exactly once;
// pass 2 fans the cached outcomes back to the rows. Row order is preserved
// and no row is ever dropped.
func Run(ctx context.Context, t *Table, countries CountryMapper, r *resolver.Resolver) (*Stats, error) {
	keys := make([]resolver.Key, len(t.Rows))
	var distinct []resolver.Key
	seen := make(map[resolver.Key]bool)

	for i := range t.Rows {
		city := normalize.Key(t.City(i))
		code, _ := countries.CountryCode(normalize.Key(t.Country(i)))
		key := resolver.Key{City: city, Code: code}
		keys[i] = key
		if !seen[key] {
			seen[key] = true
			distinct = append(distinct, key)
		}
	}

	zap.L().Info("resolving distinct place pairs",
		zap.Int("rows", len(t.Rows)),
		zap.Int("distinct", len(distinct)),
	)

	for _, key := range distinct {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.Resolve(ctx, key.City, key.Code)
	}

	stats := &Stats{
		Rows:       len(t.Rows),
		UniqueKeys: len(distinct),
		BySource:   make(map[string]int),
	}

	t.Header = append(t.Header, "Latitude", "Longitude")
	cache := r.Cache()
	for i := range t.Rows {
		out, ok := cache.Get(keys[i])
		if ok && out.Resolved {
			t.Rows[i] = append(t.Rows[i],
				strconv.FormatFloat(out.Lat, 'f', -1, 64),
				strconv.FormatFloat(out.Lon, 'f', -1, 64),
			)
			stats.BySource[out.Source]++
		} else {
			t.Rows[i] = append(t.Rows[i], "", "")
			stats.BySource["unresolved"]++
		}
	}

	zap.L().Info("batch resolution complete",
		zap.Int("rows", stats.Rows),
		zap.Int("distinct", stats.UniqueKeys),
		zap.Int("exact", stats.BySource["exact"]),
		zap.Int("fuzzy", stats.BySource["fuzzy"]),
		zap.Int("online", stats.BySource["online"]),
		zap.Int("unresolved", stats.BySource["unresolved"]),
	)
	return stats, nil
}
