// pkg/geocode/geocode.go
package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/v0idlock/civreport-cli/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Address is a reverse-geocoded street address.
type Address struct {
	Line        string `json:"line"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`
	DisplayName string `json:"display_name"`
}

// Full renders the address the way the city form's search box expects it:
// "123 Main St, San Francisco, CA 94102".
func (a *Address) Full() string {
	full := fmt.Sprintf("%s, %s, %s", a.Line, a.City, a.State)
	if a.Zip != "" {
		full += " " + a.Zip
	}
	return full
}

// nominatimResponse mirrors the fields we need from Nominatim's reverse
// geocoding response.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		HouseNumber string `json:"house_number"`
		Road        string `json:"road"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
		Postcode    string `json:"postcode"`
	} `json:"address"`
}

// Client is a Nominatim reverse geocoder. Nominatim's usage policy requires
// an identifying User-Agent and at most one request per second for anonymous
// clients, enforced here with a client-side limiter.
type Client struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates a geocoder client from configuration.
func New(cfg config.GeocoderConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		logger:     logger.Named("geocode"),
	}
}

// Reverse converts coordinates into a street address.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*Address, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building reverse geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reverse geocode failed: HTTP %d", resp.StatusCode)
	}

	var nr nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		return nil, fmt.Errorf("decoding reverse geocode response: %w", err)
	}

	addr := &Address{
		State:       nr.Address.State,
		Zip:         nr.Address.Postcode,
		DisplayName: nr.DisplayName,
	}

	// Nominatim reports the locality under different keys by place type.
	switch {
	case nr.Address.City != "":
		addr.City = nr.Address.City
	case nr.Address.Town != "":
		addr.City = nr.Address.Town
	case nr.Address.Village != "":
		addr.City = nr.Address.Village
	}

	line := strings.TrimSpace(nr.Address.HouseNumber + " " + nr.Address.Road)
	if line == "" {
		line = fmt.Sprintf("%f, %f", lat, lon)
	}
	addr.Line = line

	c.logger.Debug("Reverse geocoded",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.String("address", addr.Full()),
	)
	return addr, nil
}
