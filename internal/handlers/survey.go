package handlers

import (
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-logbook/internal/survey"
)

// SurveyRequest carries the targets file text and the pattern options.
type SurveyRequest struct {
	Targets string         `json:"targets"`
	Options survey.Options `json:"options"`
}

// SurveyResponse is the planned route.
type SurveyResponse struct {
	Targets []survey.Target `json:"targets"`
	survey.Route
}

// SurveyHandler plans survey routes.
type SurveyHandler struct{}

// NewSurveyHandler creates a survey handler.
func NewSurveyHandler() *SurveyHandler {
	return &SurveyHandler{}
}

// Plan parses the targets and generates the waypoint route.
func (h *SurveyHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req SurveyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Targets) == "" {
		writeError(w, http.StatusBadRequest, "targets are required")
		return
	}
	if req.Options.SpeedKnots < 0 || req.Options.TrackLength < 0 {
		writeError(w, http.StatusBadRequest, "speed and track length must not be negative")
		return
	}

	targets := survey.ParseTargets(req.Targets)
	// JSON has no NaN, so unparsable coordinates cannot be returned here.
	for _, t := range targets {
		if !t.Position.Valid() {
			writeError(w, http.StatusUnprocessableEntity, "target "+t.ID+" has an invalid position")
			return
		}
	}
	route := survey.GenerateSurveyRoute(targets, req.Options)
	log.WithFields(log.Fields{"targets": len(targets), "waypoints": len(route.Waypoints)}).Debug("survey route planned")

	writeJSON(w, http.StatusOK, SurveyResponse{Targets: targets, Route: route})
}
