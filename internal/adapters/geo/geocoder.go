package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"sameday-dispatch-service/internal/adapters/cache"
	"sameday-dispatch-service/internal/domain"
	"sameday-dispatch-service/internal/platform/obs"
	"sameday-dispatch-service/internal/ports"
)

// ORSGeocoder implements the Geocoder port against OpenRouteService,
// consulting a persistent SQL cache before every upstream call.
type ORSGeocoder struct {
	client *orsClient
	cache  *cache.SQLGeocodeCache
}

func NewORSGeocoder(apiKey string, geocodeCache *cache.SQLGeocodeCache) (*ORSGeocoder, error) {
	client, err := newORSClient(apiKey)
	if err != nil {
		return nil, err
	}
	return &ORSGeocoder{client: client, cache: geocodeCache}, nil
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode resolves one free-text address to coordinates.
func (g *ORSGeocoder) Geocode(ctx context.Context, address string) (_ ports.GeocodeResult, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	norm := g.client.normalize(address)
	if norm == "" {
		return ports.GeocodeResult{}, domain.Validationf("address must be non-empty")
	}

	if g.cache != nil {
		hits, err := g.cache.GetMany(ctx, []string{norm})
		if err != nil {
			log.Printf("geocode cache read failed: %v", err)
		} else if hit, ok := hits[norm]; ok {
			return ports.GeocodeResult{Coord: hit.Coord, FormattedAddress: hit.Formatted}, nil
		}
	}

	endpoint := g.client.baseURL + "/geocode/search"
	resp, err := g.client.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := g.client.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", norm)
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return ports.GeocodeResult{}, domain.CollaboratorErr(fmt.Sprintf("geocode %q", norm), err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.GeocodeResult{}, domain.CollaboratorErr("decode geocode response", err)
	}

	if len(decoded.Features) == 0 {
		return ports.GeocodeResult{}, domain.CollaboratorErr(fmt.Sprintf("no geocode results for %q", norm), nil)
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return ports.GeocodeResult{}, domain.CollaboratorErr(fmt.Sprintf("invalid coordinate format for %q", norm), nil)
	}

	result := ports.GeocodeResult{
		Coord:            domain.Coordinates{Lon: coords[0], Lat: coords[1]},
		FormattedAddress: decoded.Features[0].Properties.Label,
	}

	if g.cache != nil {
		entry := cache.GeocodeEntry{Coord: result.Coord, Formatted: result.FormattedAddress}
		if err := g.cache.PutMany(ctx, map[string]cache.GeocodeEntry{norm: entry}); err != nil {
			log.Printf("geocode cache write failed: %v", err)
		}
	}

	return result, nil
}
