// Package ipinfo provides best-effort IP geolocation via ipinfo.io.
package ipinfo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public ipinfo.io endpoint.
const DefaultBaseURL = "https://ipinfo.io"

// Position is the approximate location of the caller's network address.
type Position struct {
	Lat  float64
	Lon  float64
	City string
}

type lookupResponse struct {
	Loc  string `json:"loc"` // "lat,lon"
	City string `json:"city"`
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL points the client at a non-default endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// Client calls the ipinfo.io JSON endpoint. Accuracy is not guaranteed; the
// result approximates the caller's position from their network address.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the approximate position for the caller's IP address.
func (c *Client) Lookup(ctx context.Context) (*Position, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/json", nil)
	if err != nil {
		return nil, eris.Wrap(err, "ipinfo: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "ipinfo: lookup request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("ipinfo: lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "ipinfo: read body")
	}

	var lr lookupResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, eris.Wrap(err, "ipinfo: parse response")
	}
	if lr.Loc == "" {
		return nil, eris.New("ipinfo: response has no location")
	}

	parts := strings.SplitN(lr.Loc, ",", 2)
	if len(parts) != 2 {
		return nil, eris.Errorf("ipinfo: malformed loc %q", lr.Loc)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "ipinfo: parse lat %q", parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "ipinfo: parse lon %q", parts[1])
	}

	zap.L().Debug("ipinfo lookup", zap.Float64("lat", lat), zap.Float64("lon", lon), zap.String("city", lr.City))
	return &Position{Lat: lat, Lon: lon, City: lr.City}, nil
}
