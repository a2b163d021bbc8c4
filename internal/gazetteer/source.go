// Package gazetteer loads offline city/country reference data and serves
// exact and candidate lookups for the resolution tiers.
package gazetteer

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// CityRecord is one city row from the offline reference source.
type CityRecord struct {
	Name        string // raw name as shipped by the source
	CountryCode string // ISO alpha-2
	Latitude    float64
	Longitude   float64
}

// CountryRecord is one country row from the offline reference source.
type CountryRecord struct {
	Code string // ISO alpha-2
	Name string // display name, e.g. "Slovenia"
}

// Source provides the reference collections the Index is built from.
// Implementations are read once at startup and assumed static.
type Source interface {
	Cities(ctx context.Context) ([]CityRecord, error)
	Countries(ctx context.Context) ([]CountryRecord, error)
}

// FileSource reads GeoNames dump files: a tab-separated city dump
// (cities500.txt and friends, 19 columns) and countryInfo.txt.
type FileSource struct {
	CitiesPath    string
	CountriesPath string
}

// geonamesCityFields is the column count of the GeoNames city dump.
// name=1, latitude=4, longitude=5, country code=8.
const geonamesCityFields = 19

// Cities implements Source.
func (s *FileSource) Cities(ctx context.Context) ([]CityRecord, error) {
	f, err := os.Open(s.CitiesPath)
	if err != nil {
		return nil, eris.Wrap(err, "gazetteer: open cities file")
	}
	defer f.Close()

	var records []CityRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields := strings.SplitN(scanner.Text(), "\t", geonamesCityFields)
		if len(fields) < 9 {
			continue
		}
		lat, latErr := strconv.ParseFloat(fields[4], 64)
		lon, lonErr := strconv.ParseFloat(fields[5], 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		records = append(records, CityRecord{
			Name:        fields[1],
			CountryCode: fields[8],
			Latitude:    lat,
			Longitude:   lon,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "gazetteer: scan cities file")
	}
	if len(records) == 0 {
		return nil, eris.Errorf("gazetteer: no city records in %s", s.CitiesPath)
	}
	return records, nil
}

// Countries implements Source. countryInfo.txt carries # comment lines;
// ISO code is column 0, display name column 4.
func (s *FileSource) Countries(ctx context.Context) ([]CountryRecord, error) {
	f, err := os.Open(s.CountriesPath)
	if err != nil {
		return nil, eris.Wrap(err, "gazetteer: open countries file")
	}
	defer f.Close()

	var records []CountryRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 5 || fields[0] == "" {
			continue
		}
		records = append(records, CountryRecord{Code: fields[0], Name: fields[4]})
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "gazetteer: scan countries file")
	}
	if len(records) == 0 {
		return nil, eris.Errorf("gazetteer: no country records in %s", s.CountriesPath)
	}
	return records, nil
}
