// Package nominatim provides free-text geocoding via the Nominatim
// (OpenStreetMap) search API.
package nominatim

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Place is one geocoder match.
type Place struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// nominatim returns lat/lon as JSON strings.
type searchResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL points the client at a non-default Nominatim instance.
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

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// Client calls the Nominatim search API. Every request carries the
// client-identifying User-Agent the service's usage policy requires, and is
// throttled by a client-side limiter. The client never retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
}

// NewClient creates a Client identifying itself as userAgent.
func NewClient(userAgent string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    DefaultBaseURL,
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(1, 1), // Nominatim usage policy: 1 req/s
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search geocodes a free-text query and returns up to limit matches, best
// first. A zero-match response returns an empty slice and no error.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limit")
	}

	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {strconv.Itoa(limit)},
	}
	reqURL := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: search request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("nominatim: search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: read body")
	}

	var entries []searchResponse
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, eris.Wrap(err, "nominatim: parse response")
	}

	places := make([]Place, 0, len(entries))
	for _, e := range entries {
		lat, err := strconv.ParseFloat(e.Lat, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "nominatim: parse lat %q", e.Lat)
		}
		lon, err := strconv.ParseFloat(e.Lon, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "nominatim: parse lon %q", e.Lon)
		}
		places = append(places, Place{Lat: lat, Lon: lon, DisplayName: e.DisplayName})
	}

	zap.L().Debug("nominatim search",
		zap.String("query", query),
		zap.Int("matches", len(places)),
	)
	return places, nil
}
