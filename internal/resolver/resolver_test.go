package resolver

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/georesolve/internal/gazetteer"
	"github.com/sells-group/georesolve/pkg/geocode"
)

// fakeIndex is an in-memory Gazetteer that counts candidate-pool scans.
type fakeIndex struct {
	exact      map[Key]gazetteer.Coordinate
	candidates map[string][]gazetteer.Entry
	names      map[string]string
	scans      int
}

func (f *fakeIndex) CountryName(code string) (string, bool) {
	name, ok := f.names[code]
	return name, ok
}

func (f *fakeIndex) Exact(city, code string) (gazetteer.Coordinate, bool) {
	coord, ok := f.exact[Key{City: city, Code: code}]
	return coord, ok
}

func (f *fakeIndex) Candidates(code string) []gazetteer.Entry {
	f.scans++
	return f.candidates[code]
}

// fakeGeocoder records calls and serves canned responses.
type fakeGeocoder struct {
	results map[string]*geocode.Result
	err     error
	calls   []string
}

func (f *fakeGeocoder) Geocode(_ context.Context, place string) (*geocode.Result, error) {
	f.calls = append(f.calls, place)
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[place]; ok {
		return r, nil
	}
	return &geocode.Result{Matched: false}, nil
}

func sloveniaIndex() *fakeIndex {
	return &fakeIndex{
		exact: map[Key]gazetteer.Coordinate{
			{City: "ljubljana", Code: "SI"}: {Lat: 46.05108, Lon: 14.50513},
			{City: "maribor", Code: "SI"}:   {Lat: 46.55472, Lon: 15.64667},
		},
		candidates: map[string][]gazetteer.Entry{
			"SI": {
				{Name: "ljubljana", Coord: gazetteer.Coordinate{Lat: 46.05108, Lon: 14.50513}},
				{Name: "maribor", Coord: gazetteer.Coordinate{Lat: 46.55472, Lon: 15.64667}},
			},
		},
		names: map[string]string{"SI": "Slovenia"},
	}
}

func TestResolve_ExactTier(t *testing.T) {
	idx := sloveniaIndex()
	geo := &fakeGeocoder{}
	r := New(idx, NewCache(), geo, 0)

	out := r.Resolve(context.Background(), "ljubljana", "SI")
	assert.True(t, out.Resolved)
	assert.Equal(t, "exact", out.Source)
	assert.InDelta(t, 46.05108, out.Lat, 0.0001)

	// Exact hit never touches the fuzzy pool or the network.
	assert.Equal(t, 0, idx.scans)
	assert.Empty(t, geo.calls)
	assert.Equal(t, 1, r.Cache().Len())
}

func TestResolve_FuzzyTier(t *testing.T) {
	idx := sloveniaIndex()
	geo := &fakeGeocoder{}
	r := New(idx, NewCache(), geo, 0)

	out := r.Resolve(context.Background(), "ljubljanaa", "SI")
	assert.True(t, out.Resolved)
	assert.Equal(t, "fuzzy", out.Source)
	assert.InDelta(t, 46.05108, out.Lat, 0.0001)
	assert.Empty(t, geo.calls)
}

func TestResolve_FuzzyThresholdBoundary(t *testing.T) {
	// "ljubljanX" scores exactly 1 - 1/9 vs "ljubljana" in a single window:
	// 88 on the integer scale. Threshold 88 accepts it, 89 falls through to
	// the online tier.
	idx := sloveniaIndex()

	r := New(idx, NewCache(), &fakeGeocoder{}, 88)
	out := r.Resolve(context.Background(), "ljubljanx", "SI")
	assert.Equal(t, "fuzzy", out.Source)

	geo := &fakeGeocoder{}
	r = New(idx, NewCache(), geo, 89)
	out = r.Resolve(context.Background(), "ljubljanx", "SI")
	assert.NotEqual(t, "fuzzy", out.Source)
	assert.Len(t, geo.calls, 1)
}

func TestResolve_OnlineTier(t *testing.T) {
	idx := sloveniaIndex()
	geo := &fakeGeocoder{
		results: map[string]*geocode.Result{
			"bled, Slovenia": {Latitude: 46.36917, Longitude: 14.11361, Matched: true},
		},
	}
	r := New(idx, NewCache(), geo, 0)

	out := r.Resolve(context.Background(), "bled", "SI")
	assert.True(t, out.Resolved)
	assert.Equal(t, "online", out.Source)
	assert.InDelta(t, 46.36917, out.Lat, 0.0001)
	assert.Equal(t, []string{"bled, Slovenia"}, geo.calls)
}

func TestResolve_OnlineNoResult(t *testing.T) {
	idx := sloveniaIndex()
	geo := &fakeGeocoder{}
	r := New(idx, NewCache(), geo, 0)

	out := r.Resolve(context.Background(), "atlantis", "SI")
	assert.False(t, out.Resolved)
	assert.Equal(t, ReasonOnlineNoResult, out.Reason)

	// Second call short-circuits on the cached unresolved marker.
	out2 := r.Resolve(context.Background(), "atlantis", "SI")
	assert.Equal(t, out, out2)
	assert.Len(t, geo.calls, 1)
}

func TestResolve_OnlineFailureIsIsolated(t *testing.T) {
	idx := sloveniaIndex()
	geo := &fakeGeocoder{err: eris.New("network down")}
	r := New(idx, NewCache(), geo, 0)

	out := r.Resolve(context.Background(), "atlantis", "SI")
	assert.False(t, out.Resolved)
	assert.Equal(t, ReasonOnlineFailed, out.Reason)

	// A geocoder failure for one key does not poison others.
	other := r.Resolve(context.Background(), "ljubljana", "SI")
	assert.True(t, other.Resolved)
	assert.Equal(t, "exact", other.Source)
}

func TestResolve_UnknownCountrySkipsOnlineTier(t *testing.T) {
	idx := sloveniaIndex()
	geo := &fakeGeocoder{}
	r := New(idx, NewCache(), geo, 0)

	out := r.Resolve(context.Background(), "ljubljana", "")
	assert.False(t, out.Resolved)
	assert.Equal(t, ReasonUnknownCountry, out.Reason)
	assert.Equal(t, 0, idx.scans)
	assert.Empty(t, geo.calls)
}

func TestResolve_NilGeocoderStaysOffline(t *testing.T) {
	idx := sloveniaIndex()
	r := New(idx, NewCache(), nil, 0)

	out := r.Resolve(context.Background(), "atlantis", "SI")
	assert.False(t, out.Resolved)
	assert.Equal(t, ReasonNoMatch, out.Reason)
}

func TestResolve_ExpensiveTiersRunAtMostOncePerKey(t *testing.T) {
	idx := sloveniaIndex()
	geo := &fakeGeocoder{}
	r := New(idx, NewCache(), geo, 0)

	for i := 0; i < 5; i++ {
		r.Resolve(context.Background(), "atlantis", "SI")
	}
	assert.Equal(t, 1, idx.scans)
	assert.Len(t, geo.calls, 1)
}

func TestResolve_DeterministicPerKey(t *testing.T) {
	idx := sloveniaIndex()
	r := New(idx, NewCache(), &fakeGeocoder{}, 0)

	first := r.Resolve(context.Background(), "ljubljanaa", "SI")
	for i := 0; i < 3; i++ {
		require.Equal(t, first, r.Resolve(context.Background(), "ljubljanaa", "SI"))
	}
}

func TestCache_WriteOnce(t *testing.T) {
	c := NewCache()
	key := Key{City: "ljubljana", Code: "SI"}

	c.Put(key, Outcome{Lat: 1, Lon: 2, Resolved: true, Source: "exact"})
	c.Put(key, Outcome{Lat: 9, Lon: 9, Resolved: true, Source: "online"})

	out, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "exact", out.Source)
	assert.InDelta(t, 1.0, out.Lat, 0.0001)
	assert.Equal(t, 1, c.Len())
}
