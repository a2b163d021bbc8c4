// Package batch reads a row-oriented CSV dataset, resolves each distinct
// (city, country) pair once, and writes the dataset back with coordinate
// columns attached.
package batch

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a row-oriented dataset with City and Country columns. All other
// columns pass through untouched.
type Table struct {
	Header []string
	Rows   [][]string

	cityIdx    int
	countryIdx int
}

// ReadTable loads a CSV file. The header must contain City and Country
// columns; short rows are padded so every row has one cell per column.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "batch: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "batch: read csv")
	}
	if len(records) < 2 {
		return nil, eris.New("batch: csv has no data rows")
	}

	header := records[0]
	cityIdx, countryIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "City":
			cityIdx = i
		case "Country":
			countryIdx = i
		}
	}
	if cityIdx < 0 {
		return nil, eris.New(`batch: missing required column "City"`)
	}
	if countryIdx < 0 {
		return nil, eris.New(`batch: missing required column "Country"`)
	}

	rows := records[1:]
	for i, row := range rows {
		// Missing cells become empty strings; the normalizer is total, so
		// such rows flow through resolution and come out unresolved.
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			rows[i] = padded
		}
	}

	return &Table{
		Header:     header,
		Rows:       rows,
		cityIdx:    cityIdx,
		countryIdx: countryIdx,
	}, nil
}

// City returns the raw City cell of row i.
func (t *Table) City(i int) string {
	return t.Rows[i][t.cityIdx]
}

// Country returns the raw Country cell of row i.
func (t *Table) Country(i int) string {
	return t.Rows[i][t.countryIdx]
}

// WriteTable writes the dataset to a CSV file.
func WriteTable(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "batch: create output csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		return eris.Wrap(err, "batch: write header")
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "batch: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "batch: flush output")
	}
	return nil
}
