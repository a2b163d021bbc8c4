package gazetteer

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/georesolve/internal/normalize"
)

// Coordinate is a WGS84 (latitude, longitude) pair in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Entry is one city in the candidate pool: normalized name plus coordinate.
type Entry struct {
	Name  string // normalized city name
	Coord Coordinate
}

type cityKey struct {
	city string
	code string
}

// Index is the in-memory offline reference table. Built once by Build and
// read-only afterwards.
type Index struct {
	exact      map[cityKey]Coordinate
	byCountry  map[string][]Entry
	nameToCode map[string]string // normalized country name -> ISO code
	codeToName map[string]string // ISO code -> display name
}

// Build loads both reference collections from src (concurrently) and
// constructs the index. Duplicate (city, country) pairs keep the first
// occurrence so lookups stay deterministic across runs.
func Build(ctx context.Context, src Source) (*Index, error) {
	var (
		cities    []CityRecord
		countries []CountryRecord
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cities, err = src.Cities(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		countries, err = src.Countries(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := &Index{
		exact:      make(map[cityKey]Coordinate, len(cities)),
		byCountry:  make(map[string][]Entry),
		nameToCode: make(map[string]string, len(countries)),
		codeToName: make(map[string]string, len(countries)),
	}

	for _, c := range countries {
		idx.nameToCode[normalize.Key(c.Name)] = c.Code
		idx.codeToName[c.Code] = c.Name
	}

	for _, c := range cities {
		name := normalize.Key(c.Name)
		if name == "" || c.CountryCode == "" {
			continue
		}
		coord := Coordinate{Lat: c.Latitude, Lon: c.Longitude}
		key := cityKey{city: name, code: c.CountryCode}
		if _, dup := idx.exact[key]; !dup {
			idx.exact[key] = coord
		}
		idx.byCountry[c.CountryCode] = append(idx.byCountry[c.CountryCode], Entry{Name: name, Coord: coord})
	}

	zap.L().Info("gazetteer index built",
		zap.Int("cities", len(cities)),
		zap.Int("countries", len(countries)),
	)
	return idx, nil
}

// CountryCode maps a normalized country name to its ISO code.
func (i *Index) CountryCode(normalizedName string) (string, bool) {
	code, ok := i.nameToCode[normalizedName]
	return code, ok
}

// CountryName is the reverse lookup: ISO code to display name, used to
// build the online geocoding query string.
func (i *Index) CountryName(code string) (string, bool) {
	name, ok := i.codeToName[code]
	return name, ok
}

// Exact returns the coordinate for a byte-identical (normalized city, code)
// match, if any.
func (i *Index) Exact(city, code string) (Coordinate, bool) {
	coord, ok := i.exact[cityKey{city: city, code: code}]
	return coord, ok
}

// Candidates returns every entry for one country, in source file order.
// Nil when the country is unknown or has no entries.
func (i *Index) Candidates(code string) []Entry {
	return i.byCountry[code]
}
