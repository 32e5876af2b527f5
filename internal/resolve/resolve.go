// Package resolve turns the user's location intent into exactly one
// coordinate. Three strategies exist: literal lat,lon parsing, free-text
// geocoding, and IP autolocation. Exactly one runs per invocation, chosen by
// precedence: literal > address > autolocate.
package resolve

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/feedfirst/pantry-cli/internal/geomath"
	"github.com/feedfirst/pantry-cli/pkg/ipinfo"
	"github.com/feedfirst/pantry-cli/pkg/nominatim"
)

var (
	// ErrGeocodeNotFound indicates the geocoder returned zero matches.
	ErrGeocodeNotFound = eris.New("resolve: address not found by geocoder")

	// ErrGeocodeService indicates the geocode request failed, timed out, or
	// was rate-limited. The resolver never retries; the caller decides.
	ErrGeocodeService = eris.New("resolve: geocoding service failed")

	// ErrAutolocate indicates the best-effort IP lookup failed. The caller is
	// expected to fall back to manual entry.
	ErrAutolocate = eris.New("resolve: ip autolocation failed")
)

// Source identifies which strategy produced a resolution. Autolocation and
// geocoding are approximations, so the shell reports the source to the user.
type Source string

const (
	SourceLiteral    Source = "literal"
	SourceGeocode    Source = "geocode"
	SourceAutolocate Source = "autolocate"
)

// Resolution is a resolved origin coordinate plus provenance.
type Resolution struct {
	Coord  geomath.Coordinate
	Source Source
	Label  string // geocoder display name or autolocated city, when known
}

// Geocoder is the free-text geocoding collaborator.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]nominatim.Place, error)
}

// Locator is the IP autolocation collaborator.
type Locator interface {
	Lookup(ctx context.Context) (*ipinfo.Position, error)
}

// Strategy resolves a location intent into a coordinate.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context) (*Resolution, error)
}

// Select picks the single strategy for this invocation: a literal lat,lon
// input wins over a free-text address, which wins over the autolocate flag.
// Returns nil when there is no input and autolocate is off; the shell then
// prompts for input.
func Select(input string, autolocate bool, g Geocoder, l Locator) Strategy {
	switch {
	case input != "" && geomath.IsLiteral(input):
		return &literalStrategy{input: input}
	case input != "":
		return &geocodeStrategy{geocoder: g, query: input}
	case autolocate:
		return &autolocateStrategy{locator: l}
	default:
		return nil
	}
}

type literalStrategy struct {
	input string
}

func (s *literalStrategy) Name() string { return string(SourceLiteral) }

// Resolve parses the literal without any network call. In-pattern input with
// out-of-bounds values fails with geomath.ErrInvalidCoordinate.
func (s *literalStrategy) Resolve(_ context.Context) (*Resolution, error) {
	coord, err := geomath.Parse(s.input)
	if err != nil {
		return nil, err
	}
	return &Resolution{Coord: coord, Source: SourceLiteral}, nil
}

type geocodeStrategy struct {
	geocoder Geocoder
	query    string
}

func (s *geocodeStrategy) Name() string { return string(SourceGeocode) }

// Resolve issues a single geocode request and takes the first match.
func (s *geocodeStrategy) Resolve(ctx context.Context) (*Resolution, error) {
	places, err := s.geocoder.Search(ctx, s.query, 1)
	if err != nil {
		return nil, eris.Wrapf(ErrGeocodeService, "%q: %v", s.query, err)
	}
	if len(places) == 0 {
		return nil, eris.Wrapf(ErrGeocodeNotFound, "%q", s.query)
	}

	best := places[0]
	coord, err := geomath.New(best.Lat, best.Lon)
	if err != nil {
		return nil, eris.Wrapf(ErrGeocodeService, "%q: %v", s.query, err)
	}

	zap.L().Debug("geocoded address",
		zap.String("query", s.query),
		zap.String("match", best.DisplayName),
	)
	return &Resolution{Coord: coord, Source: SourceGeocode, Label: best.DisplayName}, nil
}

type autolocateStrategy struct {
	locator Locator
}

func (s *autolocateStrategy) Name() string { return string(SourceAutolocate) }

// Resolve issues a single best-effort IP lookup.
func (s *autolocateStrategy) Resolve(ctx context.Context) (*Resolution, error) {
	pos, err := s.locator.Lookup(ctx)
	if err != nil {
		return nil, eris.Wrapf(ErrAutolocate, "%v", err)
	}

	coord, err := geomath.New(pos.Lat, pos.Lon)
	if err != nil {
		return nil, eris.Wrapf(ErrAutolocate, "%v", err)
	}
	return &Resolution{Coord: coord, Source: SourceAutolocate, Label: pos.City}, nil
}
