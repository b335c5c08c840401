package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/ukydev/fleet-logbook/internal/logbook"
	"github.com/ukydev/fleet-logbook/internal/middleware"
	"github.com/ukydev/fleet-logbook/internal/models"
)

// RoadListHandler serves road list chains and their edits.
type RoadListHandler struct {
	service *logbook.Service
}

// NewRoadListHandler creates a road list handler over service.
func NewRoadListHandler(service *logbook.Service) *RoadListHandler {
	return &RoadListHandler{service: service}
}

// Chain returns the calculated road lists of the vehicle in the URL.
func (h *RoadListHandler) Chain(w http.ResponseWriter, r *http.Request) {
	vehicleID, ok := vehicleParam(w, r)
	if !ok {
		return
	}
	chain, err := h.service.Chain(r.Context(), vehicleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chain)
}

// NextStart returns the start balances for the vehicle's next road list.
func (h *RoadListHandler) NextStart(w http.ResponseWriter, r *http.Request) {
	vehicleID, ok := vehicleParam(w, r)
	if !ok {
		return
	}
	next, err := h.service.NextStart(r.Context(), vehicleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// Verify lists the broken links of the vehicle's chain.
func (h *RoadListHandler) Verify(w http.ResponseWriter, r *http.Request) {
	vehicleID, ok := vehicleParam(w, r)
	if !ok {
		return
	}
	found, err := h.service.Verify(r.Context(), vehicleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vehicle_id":    vehicleID,
		"consistent":    len(found) == 0,
		"discrepancies": found,
	})
}

// Rebuild re-derives every start balance of the vehicle's chain.
func (h *RoadListHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	vehicleID, ok := vehicleParam(w, r)
	if !ok {
		return
	}
	res, err := h.service.Rebuild(r.Context(), vehicleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Get returns one calculated road list.
func (h *RoadListHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !canAccess(w, r, doc.VehicleID) {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Upsert stores a road list and repairs the chain after it.
func (h *RoadListHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var doc models.RoadList
	if !decodeJSON(w, r, &doc) {
		return
	}
	if err := validateRoadList(&doc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !canAccess(w, r, doc.VehicleID) {
		return
	}

	res, err := h.service.Upsert(r.Context(), doc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Delete removes a road list and repairs the chain after it.
func (h *RoadListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.service.Document(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !canAccess(w, r, doc.VehicleID) {
		return
	}

	res, err := h.service.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// validateRoadList checks document structure only. Numeric values are
// accepted as they come.
func validateRoadList(doc *models.RoadList) error {
	return validation.ValidateStruct(doc,
		validation.Field(&doc.VehicleID, validation.Required),
		validation.Field(&doc.End, validation.Required),
		validation.Field(&doc.Itineraries, validation.Each(validation.By(func(value interface{}) error {
			it, _ := value.(models.Itinerary)
			return validation.ValidateStruct(&it,
				validation.Field(&it.Date, validation.Required),
			)
		}))),
	)
}

func vehicleParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !canAccess(w, r, id) {
		return "", false
	}
	return id, true
}

// canAccess writes 403 when the caller is restricted to other vehicles.
func canAccess(w http.ResponseWriter, r *http.Request, vehicleID string) bool {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user context not found")
		return false
	}
	if !claims.CanAccessVehicle(vehicleID) {
		writeError(w, http.StatusForbidden, "no access to vehicle "+vehicleID)
		return false
	}
	return true
}
