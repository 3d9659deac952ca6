// Package geocode reverse-geocodes coordinates through the Nominatim API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/samirrijal/fieldtrace/internal/core/ports"
)

// Nominatim implements ports.Geocoder against a Nominatim endpoint. Requests
// are serialized at one per second per the public API's usage policy; a
// read-through cache keeps repeat lookups off the network.
type Nominatim struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	cache      ports.CacheService
	log        *slog.Logger

	rateMu      sync.Mutex
	lastRequest time.Time
}

const geocodeCacheTTL = 86400 // seconds; addresses do not move

// New creates a Nominatim client. cache may be nil.
func New(baseURL, userAgent string, cache ports.CacheService, log *slog.Logger) *Nominatim {
	return &Nominatim{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
		log:   log,
	}
}

type nominatimResponse struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Address     address `json:"address"`
}

type address struct {
	Amenity     string `json:"amenity,omitempty"`
	Building    string `json:"building,omitempty"`
	HouseNumber string `json:"house_number,omitempty"`
	Road        string `json:"road,omitempty"`
	Suburb      string `json:"suburb,omitempty"`
	City        string `json:"city,omitempty"`
	Town        string `json:"town,omitempty"`
	Village     string `json:"village,omitempty"`
}

// ReverseGeocode resolves a coordinate to a short human-readable address.
func (g *Nominatim) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	// Coordinates rounded to ~11m so nearby lookups share a cache entry.
	cacheKey := fmt.Sprintf("geocode:%.4f:%.4f", lat, lon)
	if g.cache != nil {
		if raw, err := g.cache.Get(ctx, cacheKey); err == nil && raw != nil {
			return string(raw), nil
		}
	}

	// Rate limit: 1 request per second
	g.rateMu.Lock()
	elapsed := time.Since(g.lastRequest)
	if elapsed < time.Second {
		time.Sleep(time.Second - elapsed)
	}
	g.lastRequest = time.Now()
	g.rateMu.Unlock()

	reqURL := fmt.Sprintf(
		"%s/reverse?lat=%.6f&lon=%.6f&format=jsonv2&zoom=18&addressdetails=1",
		g.baseURL, lat, lon,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", err
	}
	// Required by Nominatim ToS
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("nominatim request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}

	var nr nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		return "", fmt.Errorf("parse nominatim response: %w", err)
	}

	addr := extractAddress(nr)
	if addr == "" {
		return "", nil
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, cacheKey, []byte(addr), geocodeCacheTTL); err != nil {
			g.log.Debug("geocode cache write failed", "error", err)
		}
	}
	return addr, nil
}

// extractAddress picks the most useful short name from a Nominatim response.
func extractAddress(nr nominatimResponse) string {
	if nr.Name != "" {
		return nr.Name
	}

	addr := nr.Address
	if addr.Amenity != "" {
		return addr.Amenity
	}
	if addr.Building != "" && addr.Building != "yes" {
		return addr.Building
	}
	if addr.Road != "" {
		if addr.HouseNumber != "" {
			return addr.HouseNumber + " " + addr.Road
		}
		return addr.Road
	}
	if addr.Suburb != "" {
		return addr.Suburb
	}
	if addr.City != "" {
		return addr.City
	}
	if addr.Town != "" {
		return addr.Town
	}
	if addr.Village != "" {
		return addr.Village
	}
	return ""
}
