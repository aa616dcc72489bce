package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"gasdash-backend/internal/models"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

var ErrNoGeocodeResults = errors.New("no geocoding results")

// GeocodingService resolves customer addresses using the Google Maps API
type GeocodingService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// GoogleGeocodeResponse represents the Google Maps Geocoding API response
type GoogleGeocodeResponse struct {
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location models.Location `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewGeocodingService creates a new geocoding service
func NewGeocodingService(apiKey string) (*GeocodingService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY is required")
	}

	return &GeocodingService{
		apiKey:  apiKey,
		baseURL: googleGeocodeURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Geocode converts an address string to coordinates
func (s *GeocodingService) Geocode(ctx context.Context, address string) (*models.Location, error) {
	params := url.Values{}
	params.Add("address", address)
	params.Add("key", s.apiKey)

	fullURL := fmt.Sprintf("%s?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", resp.StatusCode)
	}

	var result GoogleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	switch result.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, fmt.Errorf("%w for address: %s", ErrNoGeocodeResults, address)
	default:
		return nil, fmt.Errorf("geocoding API returned status: %s %s", result.Status, result.ErrorMessage)
	}

	if len(result.Results) == 0 {
		return nil, fmt.Errorf("%w for address: %s", ErrNoGeocodeResults, address)
	}

	loc := result.Results[0].Geometry.Location
	return &loc, nil
}
