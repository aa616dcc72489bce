package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gasdash-backend/internal/models"
	"gasdash-backend/pkg/utils"
)

type UpdateLocationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// UpdateDriverStatus sets available, busy or offline
func UpdateDriverStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		var req UpdateStatusRequest
		if !decode(w, r, &req) {
			return
		}
		status := models.DriverStatus(req.Status)
		switch status {
		case models.DriverStatusAvailable, models.DriverStatusBusy, models.DriverStatusOffline:
		default:
			utils.RespondError(w, http.StatusBadRequest, "Status must be 'available', 'busy', or 'offline'")
			return
		}
		id := chi.URLParam(r, "id")
		if err := ws.Drivers.UpdateStatus(r.Context(), id, status); err != nil {
			utils.RespondErr(w, err)
			return
		}
		respondRecord(w, pickDrivers(ws), id)
	}
}

// UpdateDriverLocation records a GPS fix
func UpdateDriverLocation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		var req UpdateLocationRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Lat == nil || req.Lng == nil || *req.Lat < -90 || *req.Lat > 90 || *req.Lng < -180 || *req.Lng > 180 {
			utils.RespondError(w, http.StatusBadRequest, "Valid lat and lng are required")
			return
		}
		id := chi.URLParam(r, "id")
		if err := ws.Drivers.UpdateLocation(r.Context(), id, models.Location{Lat: *req.Lat, Lng: *req.Lng}); err != nil {
			utils.RespondErr(w, err)
			return
		}
		respondRecord(w, pickDrivers(ws), id)
	}
}

// AvailableDrivers lists cached drivers that can take a delivery
func AvailableDrivers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		available := ws.Drivers.Available()
		if available == nil {
			available = []models.Driver{}
		}
		utils.RespondJSON(w, http.StatusOK, available)
	}
}

// DriverProfile joins the driver with its user profile
func DriverProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		joined, err := ws.Drivers.ResolveDriverWithProfile(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			utils.RespondErr(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, joined)
	}
}
