package ipinfo

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ip": "203.0.113.7", "city": "Akron", "loc": "41.0814,-81.5190"}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	pos, err := c.Lookup(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 41.0814, pos.Lat, 1e-9)
	assert.InDelta(t, -81.5190, pos.Lon, 1e-9)
	assert.Equal(t, "Akron", pos.City)
}

func TestLookup_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "missing loc",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"ip": "203.0.113.7", "bogon": true}`)
			},
		},
		{
			name: "malformed loc",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"loc": "nowhere"}`)
			},
		},
		{
			name: "unparseable loc",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"loc": "a,b"}`)
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `<html>`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(WithBaseURL(srv.URL))
			_, err := c.Lookup(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestLookup_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = io.WriteString(w, `{"loc": "0,0"}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	_, err := c.Lookup(context.Background())
	assert.Error(t, err)
}
