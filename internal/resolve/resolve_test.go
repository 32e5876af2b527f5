package resolve

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedfirst/pantry-cli/internal/geomath"
	"github.com/feedfirst/pantry-cli/pkg/ipinfo"
	"github.com/feedfirst/pantry-cli/pkg/nominatim"
)

type stubGeocoder struct {
	places []nominatim.Place
	err    error
	calls  int
}

func (s *stubGeocoder) Search(_ context.Context, _ string, _ int) ([]nominatim.Place, error) {
	s.calls++
	return s.places, s.err
}

type stubLocator struct {
	pos   *ipinfo.Position
	err   error
	calls int
}

func (s *stubLocator) Lookup(_ context.Context) (*ipinfo.Position, error) {
	s.calls++
	return s.pos, s.err
}

func TestSelect_Precedence(t *testing.T) {
	g := &stubGeocoder{}
	l := &stubLocator{}

	tests := []struct {
		name       string
		input      string
		autolocate bool
		wantName   string
	}{
		{"literal wins over everything", "40.7128,-74.0060", true, "literal"},
		{"address over autolocate", "New York, NY", true, "geocode"},
		{"postal code is free text", "44121", false, "geocode"},
		{"autolocate when no input", "", true, "autolocate"},
		{"out-of-bounds literal still selects literal", "99,0", true, "literal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Select(tt.input, tt.autolocate, g, l)
			require.NotNil(t, s)
			assert.Equal(t, tt.wantName, s.Name())
		})
	}

	assert.Nil(t, Select("", false, g, l), "no input and no autolocate selects nothing")
}

func TestLiteral_ResolvesWithoutNetwork(t *testing.T) {
	g := &stubGeocoder{}
	l := &stubLocator{}

	s := Select("40.7128,-74.0060", true, g, l)
	res, err := s.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceLiteral, res.Source)
	assert.InDelta(t, 40.7128, res.Coord.Lat, 1e-9)
	assert.InDelta(t, -74.0060, res.Coord.Lon, 1e-9)
	assert.Zero(t, g.calls, "literal input must not geocode")
	assert.Zero(t, l.calls, "literal input must not autolocate")
}

func TestLiteral_OutOfBounds(t *testing.T) {
	s := Select("99,0", false, nil, nil)
	_, err := s.Resolve(context.Background())
	assert.True(t, eris.Is(err, geomath.ErrInvalidCoordinate))
}

func TestGeocode_FirstMatchWins(t *testing.T) {
	g := &stubGeocoder{places: []nominatim.Place{
		{Lat: 40.7127281, Lon: -74.0060152, DisplayName: "New York, United States"},
		{Lat: 40.7459, Lon: -74.0282, DisplayName: "New York, Hoboken"},
	}}

	s := Select("New York, NY", false, g, nil)
	res, err := s.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceGeocode, res.Source)
	assert.Equal(t, "New York, United States", res.Label)
	assert.InDelta(t, 40.7127281, res.Coord.Lat, 1e-9)
	assert.Equal(t, 1, g.calls, "exactly one geocode request")
}

func TestGeocode_NotFound(t *testing.T) {
	g := &stubGeocoder{places: nil}
	s := Select("xyzzy nowhere", false, g, nil)

	_, err := s.Resolve(context.Background())
	assert.True(t, eris.Is(err, ErrGeocodeNotFound))
}

func TestGeocode_ServiceError(t *testing.T) {
	g := &stubGeocoder{err: eris.New("status 429")}
	s := Select("New York, NY", false, g, nil)

	_, err := s.Resolve(context.Background())
	assert.True(t, eris.Is(err, ErrGeocodeService))
	assert.Equal(t, 1, g.calls, "no automatic retry")
}

func TestAutolocate(t *testing.T) {
	l := &stubLocator{pos: &ipinfo.Position{Lat: 41.0814, Lon: -81.519, City: "Akron"}}
	s := Select("", true, nil, l)

	res, err := s.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceAutolocate, res.Source)
	assert.Equal(t, "Akron", res.Label)
	assert.InDelta(t, 41.0814, res.Coord.Lat, 1e-9)
}

func TestAutolocate_Failure(t *testing.T) {
	l := &stubLocator{err: eris.New("unreachable")}
	s := Select("", true, nil, l)

	_, err := s.Resolve(context.Background())
	assert.True(t, eris.Is(err, ErrAutolocate))
	assert.Equal(t, 1, l.calls, "no automatic retry")
}
