// Package pantry loads the pantry location dataset from CSV.
package pantry

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/feedfirst/pantry-cli/internal/geomath"
)

// ErrDatasetLoad indicates a missing or malformed dataset file. The load is
// all-or-nothing: a single bad row fails the whole dataset.
var ErrDatasetLoad = eris.New("pantry: dataset load failed")

// Record is one pantry location. Immutable after load.
type Record struct {
	Name     string
	Address  string
	Location geomath.Coordinate
}

// requiredCols are the dataset header columns, in any order.
var requiredCols = []string{"name", "address", "lat", "lon"}

// Load reads all pantry records from the CSV at path. The file must carry a
// name,address,lat,lon header; every row needs a non-empty name and in-bounds
// float lat/lon. Records keep file order.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(ErrDatasetLoad, "open %s: %v", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(ErrDatasetLoad, "read %s: %v", path, err)
	}
	if len(rows) == 0 {
		return nil, eris.Wrapf(ErrDatasetLoad, "%s: missing header row", path)
	}

	colIdx := make(map[string]int, len(rows[0]))
	for i, col := range rows[0] {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range requiredCols {
		if _, ok := colIdx[col]; !ok {
			return nil, eris.Wrapf(ErrDatasetLoad, "%s: missing required column %q", path, col)
		}
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRow(row, colIdx)
		if err != nil {
			// Header is line 1, first data row is line 2.
			return nil, eris.Wrapf(ErrDatasetLoad, "%s: row %d: %v", path, i+2, err)
		}
		records = append(records, rec)
	}

	zap.L().Debug("dataset loaded", zap.String("path", path), zap.Int("records", len(records)))
	return records, nil
}

func parseRow(row []string, colIdx map[string]int) (Record, error) {
	max := 0
	for _, idx := range colIdx {
		if idx > max {
			max = idx
		}
	}
	if len(row) <= max {
		return Record{}, eris.Errorf("expected at least %d columns, got %d", max+1, len(row))
	}

	name := strings.TrimSpace(row[colIdx["name"]])
	if name == "" {
		return Record{}, eris.New("empty name")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(row[colIdx["lat"]]), 64)
	if err != nil {
		return Record{}, eris.Errorf("bad latitude %q", row[colIdx["lat"]])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(row[colIdx["lon"]]), 64)
	if err != nil {
		return Record{}, eris.Errorf("bad longitude %q", row[colIdx["lon"]])
	}
	loc, err := geomath.New(lat, lon)
	if err != nil {
		return Record{}, err
	}

	return Record{
		Name:     name,
		Address:  strings.TrimSpace(row[colIdx["address"]]),
		Location: loc,
	}, nil
}
