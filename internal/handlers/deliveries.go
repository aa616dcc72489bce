package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gasdash-backend/internal/models"
	"gasdash-backend/internal/resource"
	"gasdash-backend/internal/workspace"
	"gasdash-backend/pkg/utils"
)

type AssignDriverRequest struct {
	DriverID string `json:"driverId"`
}

// ownDelivery keeps drivers and customers to the deliveries in their own
// scoped cache. Admins and managers may touch any delivery.
func ownDelivery(w http.ResponseWriter, ws *workspace.Workspace, id string) bool {
	p := ws.Principal()
	if p != nil && p.HasRole(models.RoleAdmin, models.RoleManager) {
		return true
	}
	if _, ok := ws.Deliveries.Find(id); ok {
		return true
	}
	utils.RespondErr(w, resource.ErrForbidden)
	return false
}

// UpdateDeliveryStatus moves a delivery through pending → in-progress →
// completed, or cancels it
func UpdateDeliveryStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		var req UpdateStatusRequest
		if !decode(w, r, &req) {
			return
		}
		id := chi.URLParam(r, "id")
		if !ownDelivery(w, ws, id) {
			return
		}
		if p := ws.Principal(); p != nil && p.Role == models.RoleCustomer && req.Status != string(models.DeliveryStatusCancelled) {
			utils.RespondErr(w, resource.ErrForbidden)
			return
		}
		if err := ws.Deliveries.UpdateStatus(r.Context(), id, models.DeliveryStatus(req.Status)); err != nil {
			utils.RespondErr(w, err)
			return
		}
		log.Printf("🚚 Delivery %s → %s", id, req.Status)
		respondRecord(w, pickDeliveries(ws), id)
	}
}

// UpdatePaymentStatus records pending, paid or refunded
func UpdatePaymentStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		var req UpdateStatusRequest
		if !decode(w, r, &req) {
			return
		}
		status := models.PaymentStatus(req.Status)
		switch status {
		case models.PaymentStatusPending, models.PaymentStatusPaid, models.PaymentStatusRefunded:
		default:
			utils.RespondError(w, http.StatusBadRequest, "Payment status must be 'pending', 'paid', or 'refunded'")
			return
		}
		id := chi.URLParam(r, "id")
		if err := ws.Deliveries.UpdatePaymentStatus(r.Context(), id, status); err != nil {
			utils.RespondErr(w, err)
			return
		}
		respondRecord(w, pickDeliveries(ws), id)
	}
}

// AssignDriver puts a driver on an open delivery
func AssignDriver() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		var req AssignDriverRequest
		if !decode(w, r, &req) {
			return
		}
		if req.DriverID == "" {
			utils.RespondError(w, http.StatusBadRequest, "driverId is required")
			return
		}

		driver, found := ws.Drivers.Find(req.DriverID)
		if !found {
			joined, err := ws.Drivers.ResolveDriverWithProfile(r.Context(), req.DriverID)
			if err != nil {
				utils.RespondErr(w, err)
				return
			}
			driver = joined.Driver
		}

		id := chi.URLParam(r, "id")
		if err := ws.Deliveries.AssignDriver(r.Context(), id, driver); err != nil {
			utils.RespondErr(w, err)
			return
		}
		log.Printf("🚚 Delivery %s assigned to %s", id, driver.Name)
		respondRecord(w, pickDeliveries(ws), id)
	}
}
