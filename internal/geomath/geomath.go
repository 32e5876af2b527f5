// Package geomath provides the coordinate value type and great-circle
// distance math used by the search engine and resolvers.
package geomath

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// ErrInvalidCoordinate indicates a latitude outside [-90, 90] or a longitude
// outside [-180, 180].
var ErrInvalidCoordinate = eris.New("geomath: coordinate out of bounds")

// Coordinate is a point in decimal degrees. Immutable value type.
type Coordinate struct {
	Lat float64
	Lon float64
}

// New builds a bounds-checked Coordinate.
func New(lat, lon float64) (Coordinate, error) {
	c := Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate checks the lat/lon bounds invariant.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return eris.Wrapf(ErrInvalidCoordinate, "lat=%v lon=%v", c.Lat, c.Lon)
	}
	return nil
}

// String renders the coordinate as "lat,lon" with six decimal places.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lon, 'f', 6, 64)
}

// Distance returns the haversine great-circle distance between a and b in
// kilometers. Both inputs must satisfy the coordinate invariant.
func Distance(a, b Coordinate) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lon - a.Lon) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	hav := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(hav)), nil
}

// IsLiteral reports whether s matches the "<float>,<float>" pattern. It does
// not check bounds; Parse does.
func IsLiteral(s string) bool {
	lat, lon, ok := splitLiteral(s)
	if !ok {
		return false
	}
	_, latErr := strconv.ParseFloat(lat, 64)
	_, lonErr := strconv.ParseFloat(lon, 64)
	return latErr == nil && lonErr == nil
}

// Parse parses a "<float>,<float>" literal into a Coordinate. Input that is
// not in the literal pattern is a plain parse error; in-pattern input outside
// the lat/lon bounds fails with ErrInvalidCoordinate.
func Parse(s string) (Coordinate, error) {
	latStr, lonStr, ok := splitLiteral(s)
	if !ok {
		return Coordinate{}, eris.Errorf("geomath: %q is not a lat,lon pair", s)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return Coordinate{}, eris.Wrapf(err, "geomath: parse latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return Coordinate{}, eris.Wrapf(err, "geomath: parse longitude %q", lonStr)
	}
	return New(lat, lon)
}

func splitLiteral(s string) (lat, lon string, ok bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}
