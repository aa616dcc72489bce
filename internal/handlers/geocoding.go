package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"gasdash-backend/internal/models"
	"gasdash-backend/internal/services"
	"gasdash-backend/pkg/utils"
)

// GeocodeRequest represents a request to geocode an address
type GeocodeRequest struct {
	Address string `json:"address"`
}

// BatchGeocodeRequest represents a batch request to geocode multiple addresses
type BatchGeocodeRequest struct {
	Addresses []GeocodeRequest `json:"addresses"`
}

// BatchGeocodeResponse keeps one slot per requested address; failed
// lookups are nil and listed in Errors
type BatchGeocodeResponse struct {
	Locations []*models.Location `json:"locations"`
	Errors    []string           `json:"errors,omitempty"`
}

const maxBatchGeocode = 50

func geocodeStatus(err error) int {
	if errors.Is(err, services.ErrNoGeocodeResults) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// Geocode handles POST /api/geocoding/forward
func Geocode(geocoder services.Geocoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if geocoder == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Geocoding service unavailable")
			return
		}
		var req GeocodeRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Address == "" {
			utils.RespondError(w, http.StatusBadRequest, "Address is required")
			return
		}

		loc, err := geocoder.Geocode(r.Context(), req.Address)
		if err != nil {
			log.Printf("Geocoding failed for address '%s': %v", req.Address, err)
			utils.RespondError(w, geocodeStatus(err), fmt.Sprintf("Failed to geocode: %v", err))
			return
		}
		utils.RespondJSON(w, http.StatusOK, loc)
	}
}

// BatchGeocode handles POST /api/geocoding/forward/batch
func BatchGeocode(geocoder services.Geocoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if geocoder == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Geocoding service unavailable")
			return
		}
		var req BatchGeocodeRequest
		if !decode(w, r, &req) {
			return
		}
		if len(req.Addresses) == 0 {
			utils.RespondError(w, http.StatusBadRequest, "No addresses provided")
			return
		}
		if len(req.Addresses) > maxBatchGeocode {
			utils.RespondError(w, http.StatusBadRequest, fmt.Sprintf("At most %d addresses per batch", maxBatchGeocode))
			return
		}

		response := BatchGeocodeResponse{Locations: make([]*models.Location, 0, len(req.Addresses))}
		for i, a := range req.Addresses {
			loc, err := geocoder.Geocode(r.Context(), a.Address)
			if err != nil {
				log.Printf("Failed to geocode address %d (%s): %v", i, a.Address, err)
				response.Errors = append(response.Errors, fmt.Sprintf("Index %d: %v", i, err))
			}
			// nil placeholder keeps the array aligned with the request
			response.Locations = append(response.Locations, loc)
		}
		utils.RespondJSON(w, http.StatusOK, response)
	}
}

// GeocodeCacheStats reports hit rate and size of the geocode cache
func GeocodeCacheStats(cache *services.GeocodeCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cache == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Geocoding service unavailable")
			return
		}
		utils.RespondJSON(w, http.StatusOK, cache.GetStats())
	}
}
