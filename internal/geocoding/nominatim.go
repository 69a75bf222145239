package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jengzang/recap-backend-go/internal/models"
)

// Nominatim defaults. The public OpenStreetMap instance allows one request per second.
const (
	DefaultNominatimURL         = "https://nominatim.openstreetmap.org"
	DefaultNominatimUserAgent   = "recap-backend-go/1.0"
	DefaultNominatimInterval    = time.Second
	DefaultNominatimZoom        = 18
	defaultNominatimHTTPTimeout = 5 * time.Second
)

// NominatimConfig configures the OpenStreetMap reverse geocoding backend
type NominatimConfig struct {
	BaseURL     string
	UserAgent   string
	Language    string        // Accept-Language value, e.g. "en"
	Timeout     time.Duration // Per request
	MinInterval time.Duration // Minimum spacing between requests
	Zoom        int           // Address detail level, 18 = building
}

// NominatimBackend reverse geocodes with the Nominatim JSON v2 API
type NominatimBackend struct {
	cfg     NominatimConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewNominatimBackend creates a new Nominatim backend
func NewNominatimBackend(cfg NominatimConfig, client *http.Client) *NominatimBackend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultNominatimURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultNominatimUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultNominatimHTTPTimeout
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultNominatimInterval
	}
	if cfg.Zoom <= 0 {
		cfg.Zoom = DefaultNominatimZoom
	}
	if client == nil {
		client = &http.Client{}
	}

	return &NominatimBackend{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
	}
}

// nominatimResponse is the subset of the jsonv2 reverse response we use
type nominatimResponse struct {
	Name        string            `json:"name"`
	AddressType string            `json:"addresstype"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

// Address keys from most to least preferred for each level
var (
	poiKeys      = []string{"tourism", "amenity", "historic", "leisure", "attraction", "building", "shop", "natural"}
	localityKeys = []string{"city", "town", "village", "hamlet", "municipality", "suburb"}
	adminKeys    = []string{"state", "province", "region", "state_district", "county"}

	// addresstype values whose name is a locality or region, not a place of interest
	areaTypes = map[string]bool{
		"city": true, "town": true, "village": true, "hamlet": true, "municipality": true,
		"suburb": true, "state": true, "province": true, "region": true, "county": true,
		"country": true, "postcode": true, "road": true,
	}
)

// ReverseGeocode resolves coord to place name components
func (b *NominatimBackend) ReverseGeocode(ctx context.Context, coord models.Coordinate) (models.PlaceComponents, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return models.PlaceComponents{}, fmt.Errorf("%w: rate limiter: %v", ErrTimeout, err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.reverseURL(coord), nil)
	if err != nil {
		return models.PlaceComponents{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", b.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if b.cfg.Language != "" {
		req.Header.Set("Accept-Language", b.cfg.Language)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return models.PlaceComponents{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return models.PlaceComponents{}, fmt.Errorf("%w: unexpected status %d", ErrNetwork, resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.PlaceComponents{}, fmt.Errorf("%w: failed to decode response: %v", ErrNetwork, err)
	}

	if body.Error != "" {
		return models.PlaceComponents{}, fmt.Errorf("%w: %s", ErrNoResult, body.Error)
	}

	components := body.components()
	if components.IsEmpty() {
		return models.PlaceComponents{}, ErrNoResult
	}
	return components, nil
}

func (b *NominatimBackend) reverseURL(coord models.Coordinate) string {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	q.Set("zoom", strconv.Itoa(b.cfg.Zoom))
	q.Set("addressdetails", "1")
	return b.cfg.BaseURL + "/reverse?" + q.Encode()
}

func (r nominatimResponse) components() models.PlaceComponents {
	c := models.PlaceComponents{
		PointOfInterest:    firstOf(r.Address, poiKeys),
		Locality:           firstOf(r.Address, localityKeys),
		AdministrativeArea: firstOf(r.Address, adminKeys),
		Country:            strings.TrimSpace(r.Address["country"]),
	}
	if c.PointOfInterest == "" && r.Name != "" && !areaTypes[r.AddressType] {
		c.PointOfInterest = strings.TrimSpace(r.Name)
	}
	return c
}

func firstOf(address map[string]string, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(address[k]); v != "" {
			return v
		}
	}
	return ""
}

// classifyTransportError maps an http.Client error to ErrTimeout or ErrNetwork
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
