// Package search ranks pantry records by distance from an origin.
package search

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/feedfirst/pantry-cli/internal/geomath"
	"github.com/feedfirst/pantry-cli/internal/pantry"
)

// ErrInvalidQuery indicates a non-positive top-N or a negative radius.
var ErrInvalidQuery = eris.New("search: invalid query")

// Result pairs a pantry record with its distance from the origin.
type Result struct {
	Record     pantry.Record
	DistanceKm float64
}

// Params constrains a nearest search. RadiusKm nil means unbounded.
type Params struct {
	TopN     int
	RadiusKm *float64
}

// Nearest computes the distance from origin to every record, drops records
// beyond RadiusKm when set, sorts ascending by distance with ties kept in
// dataset order, and truncates to TopN. An empty result is a valid outcome,
// not an error.
func Nearest(origin geomath.Coordinate, records []pantry.Record, p Params) ([]Result, error) {
	if p.TopN <= 0 {
		return nil, eris.Wrapf(ErrInvalidQuery, "top-n must be positive, got %d", p.TopN)
	}
	if p.RadiusKm != nil && *p.RadiusKm < 0 {
		return nil, eris.Wrapf(ErrInvalidQuery, "radius must be non-negative, got %v", *p.RadiusKm)
	}

	results := make([]Result, 0, len(records))
	for _, rec := range records {
		d, err := geomath.Distance(origin, rec.Location)
		if err != nil {
			return nil, err
		}
		if p.RadiusKm != nil && d > *p.RadiusKm {
			continue
		}
		results = append(results, Result{Record: rec, DistanceKm: d})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})

	if len(results) > p.TopN {
		results = results[:p.TopN]
	}
	return results, nil
}
