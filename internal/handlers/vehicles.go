package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/ukydev/fleet-logbook/internal/db"
	"github.com/ukydev/fleet-logbook/internal/logbook"
	"github.com/ukydev/fleet-logbook/internal/middleware"
	"github.com/ukydev/fleet-logbook/internal/models"
)

// VehicleHandler serves vehicle reference data.
type VehicleHandler struct {
	service *logbook.Service
}

// NewVehicleHandler creates a vehicle handler over service.
func NewVehicleHandler(service *logbook.Service) *VehicleHandler {
	return &VehicleHandler{service: service}
}

// List returns the vehicles the caller may see.
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.service.Vehicles(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	claims, _ := middleware.GetUserFromContext(r.Context())
	visible := make([]models.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if claims == nil || claims.CanAccessVehicle(v.ID) {
			visible = append(visible, v)
		}
	}
	writeJSON(w, http.StatusOK, visible)
}

// Get returns one vehicle.
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	vehicleID, ok := vehicleParam(w, r)
	if !ok {
		return
	}
	v, err := h.service.Vehicle(r.Context(), vehicleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Put replaces the vehicle in the URL, rate table included. Fields left out
// of the body keep their stored values; modes are always replaced whole.
func (h *VehicleHandler) Put(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v := models.Vehicle{Active: true, Rounding: models.RoundNearest}
	existing, err := h.service.Vehicle(r.Context(), id)
	switch {
	case err == nil:
		v = *existing
		v.Modes = nil
	case !errors.Is(err, db.ErrNotFound):
		writeServiceError(w, r, err)
		return
	}
	if !decodeJSON(w, r, &v) {
		return
	}
	v.ID = id
	if err := validateVehicle(&v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.SaveVehicle(r.Context(), v); err != nil {
		writeServiceError(w, r, err)
		return
	}
	saved, err := h.service.Vehicle(r.Context(), v.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func validateVehicle(v *models.Vehicle) error {
	return validation.ValidateStruct(v,
		validation.Field(&v.ID, validation.Required),
		validation.Field(&v.Unit, validation.Required, validation.In(models.UnitHours, models.UnitDistanceKm)),
		validation.Field(&v.Rounding, validation.Required, validation.In(models.RoundNearest, models.RoundUp)),
		validation.Field(&v.Modes, validation.Required, validation.Each(validation.By(func(value interface{}) error {
			m, _ := value.(models.Mode)
			return validation.ValidateStruct(&m,
				validation.Field(&m.ID, validation.Required),
				validation.Field(&m.Rate, validation.Min(0.0)),
			)
		}))),
	)
}
