package places

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spigell/leadscout/internal/candidates"
)

var ErrNotFound = errors.New("location not found")

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves a free-form place name to coordinates.
func (c *Client) Geocode(ctx context.Context, name string) (*candidates.LatLng, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}

	q := url.Values{}
	q.Set("address", name)
	q.Set("key", c.apiKey)

	var resp geocodeResponse
	if err := c.getJSON(ctx, c.geocodeURL+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("geocode %q: %w", name, err)
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		return nil, fmt.Errorf("geocode %q: %w (status %s)", name, ErrNotFound, resp.Status)
	}

	loc := resp.Results[0].Geometry.Location
	return &candidates.LatLng{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
