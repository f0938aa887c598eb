package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"itinerary-service/internal/pipeline"
)

const nominatimUserAgent = "itinerary-service/1.0"

// NominatimGeocoder resolves coordinates to administrative names through an
// OpenStreetMap Nominatim-compatible reverse endpoint.
type NominatimGeocoder struct {
	baseURL string
	client  *http.Client
}

// NewNominatimGeocoder builds a geocoder against the given reverse endpoint.
func NewNominatimGeocoder(baseURL string, timeout time.Duration) *NominatimGeocoder {
	return &NominatimGeocoder{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Country  string `json:"country"`
		State    string `json:"state"`
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		Suburb   string `json:"suburb"`
		Tourism  string `json:"tourism"`
		Historic string `json:"historic"`
	} `json:"address"`
}

// ReverseGeocode implements pipeline.Geocoder.
func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*pipeline.Address, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lng))
	params.Set("format", "json")
	params.Set("zoom", "14")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build geocode request")
	}
	req.Header.Set("User-Agent", nominatimUserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "geocode request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "could not decode geocode response")
	}

	addr := &pipeline.Address{
		Country: nonEmpty(body.Address.Country),
		Region:  nonEmpty(body.Address.State),
		// Nominatim reports the locality under different keys by size.
		City:     nonEmpty(firstOf(body.Address.City, body.Address.Town, body.Address.Village, body.Address.Suburb)),
		Landmark: nonEmpty(firstOf(body.Address.Tourism, body.Address.Historic)),
	}
	return addr, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
