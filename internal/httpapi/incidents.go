package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/driftnet/internal/db"
	"horse.fit/driftnet/internal/graph"
	"horse.fit/driftnet/internal/store"
)

func (s *Server) handleIncidents(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	rows, err := s.store.ListIncidents(c.Request().Context(), store.IncidentListOptions{
		VesselName: strings.TrimSpace(c.QueryParam("vessel")),
		Limit:      limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("list incidents failed")
		return internalError(c, "Failed to load incidents")
	}

	items := make([]incidentView, 0, len(rows))
	for i := range rows {
		items = append(items, newIncidentView(&rows[i], false))
	}

	return success(c, map[string]any{
		"items": items,
		"limit": limit,
	})
}

func (s *Server) handleIncidentDetail(c echo.Context) error {
	incidentID, err := parseIDParam(c, "incident_id")
	if err != nil {
		return failValidation(c, map[string]string{"incident_id": err.Error()})
	}

	ctx := c.Request().Context()
	row, err := s.store.GetIncident(ctx, incidentID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Incident not found")
		}
		s.logger.Error().Err(err).Int64("incident_id", incidentID).Msg("load incident failed")
		return internalError(c, "Failed to load incident")
	}

	view := newIncidentView(row, true)
	sourceIDs, err := s.graph.SourceIDsForIncident(ctx, incidentID)
	if err != nil {
		s.logger.Error().Err(err).Int64("incident_id", incidentID).Msg("load incident links failed")
		return internalError(c, "Failed to load incident links")
	}
	view.SourceIDs = sourceIDs

	return success(c, view)
}

type incidentUpdateRequest struct {
	VesselName *string         `json:"vessel_name"`
	EventDate  *string         `json:"event_date"`
	Location   *string         `json:"location"`
	Summary    *string         `json:"summary"`
	Extraction json.RawMessage `json:"extraction"`
}

func (s *Server) handleIncidentUpdate(c echo.Context) error {
	incidentID, err := parseIDParam(c, "incident_id")
	if err != nil {
		return failValidation(c, map[string]string{"incident_id": err.Error()})
	}

	var req incidentUpdateRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON object"})
	}
	if req.VesselName == nil && req.EventDate == nil && req.Location == nil &&
		req.Summary == nil && len(req.Extraction) == 0 {
		return failValidation(c, map[string]string{"body": "no fields to update"})
	}

	row, err := s.store.UpdateIncident(c.Request().Context(), incidentID, store.IncidentPatch{
		VesselName: req.VesselName,
		EventDate:  req.EventDate,
		Location:   req.Location,
		Summary:    req.Summary,
		Extraction: req.Extraction,
	})
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Incident not found")
		}
		s.logger.Error().Err(err).Int64("incident_id", incidentID).Msg("update incident failed")
		return internalError(c, "Failed to update incident")
	}

	return success(c, newIncidentView(row, true))
}

func (s *Server) handleIncidentDelete(c echo.Context) error {
	incidentID, err := parseIDParam(c, "incident_id")
	if err != nil {
		return failValidation(c, map[string]string{"incident_id": err.Error()})
	}

	if err := s.graph.DeleteIncident(c.Request().Context(), incidentID); err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Incident not found")
		}
		var partial *graph.PartialLinkError
		if errors.As(err, &partial) {
			s.logger.Error().Err(err).Int64("incident_id", incidentID).Msg("incident delete left partial links")
			return fail(c, http.StatusConflict, "Incident links are partially removed; retry the delete", map[string]any{
				"source_id": partial.SourceID,
			})
		}
		s.logger.Error().Err(err).Int64("incident_id", incidentID).Msg("delete incident failed")
		return internalError(c, "Failed to delete incident")
	}

	return success(c, map[string]any{"deleted": true, "incident_id": incidentID})
}

func (s *Server) handleIncidentDuplicates(c echo.Context) error {
	incidentID, err := parseIDParam(c, "incident_id")
	if err != nil {
		return failValidation(c, map[string]string{"incident_id": err.Error()})
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), 20, 1, 100)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	ctx := c.Request().Context()
	incident, err := s.store.GetIncident(ctx, incidentID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Incident not found")
		}
		s.logger.Error().Err(err).Int64("incident_id", incidentID).Msg("load incident failed")
		return internalError(c, "Failed to load incident")
	}

	vessel := ""
	if incident.VesselName != nil {
		vessel = *incident.VesselName
	}

	candidates, err := s.graph.FindPotentialDuplicates(ctx, incident.Fingerprint, vessel, limit+1)
	if err != nil {
		s.logger.Error().Err(err).Int64("incident_id", incidentID).Msg("find duplicates failed")
		return internalError(c, "Failed to find potential duplicates")
	}

	items := make([]incidentView, 0, len(candidates))
	for i := range candidates {
		if candidates[i].IncidentID == incidentID {
			continue
		}
		if len(items) == limit {
			break
		}
		items = append(items, newIncidentView(&candidates[i], false))
	}

	return success(c, map[string]any{
		"items": items,
		"limit": limit,
	})
}

func (s *Server) handleAttachSource(c echo.Context) error {
	incidentID, err := parseIDParam(c, "incident_id")
	if err != nil {
		return failValidation(c, map[string]string{"incident_id": err.Error()})
	}
	sourceID, err := parseIDParam(c, "source_id")
	if err != nil {
		return failValidation(c, map[string]string{"source_id": err.Error()})
	}

	primary := strings.EqualFold(strings.TrimSpace(c.QueryParam("primary")), "true")

	if err := s.graph.AttachSource(c.Request().Context(), incidentID, sourceID, primary); err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Incident or source not found")
		}
		var partial *graph.PartialLinkError
		if errors.As(err, &partial) {
			s.logger.Error().Err(err).Int64("incident_id", incidentID).Int64("source_id", sourceID).
				Msg("attach left a partial link")
			return fail(c, http.StatusConflict, "Link is partially written; retry the attach", nil)
		}
		s.logger.Error().Err(err).Int64("incident_id", incidentID).Int64("source_id", sourceID).
			Msg("attach source failed")
		return internalError(c, "Failed to attach source")
	}

	return success(c, map[string]any{
		"incident_id": incidentID,
		"source_id":   sourceID,
		"primary":     primary,
	})
}

func (s *Server) handleDetachSource(c echo.Context) error {
	incidentID, err := parseIDParam(c, "incident_id")
	if err != nil {
		return failValidation(c, map[string]string{"incident_id": err.Error()})
	}
	sourceID, err := parseIDParam(c, "source_id")
	if err != nil {
		return failValidation(c, map[string]string{"source_id": err.Error()})
	}

	if err := s.graph.DetachSource(c.Request().Context(), incidentID, sourceID); err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Source is not attached to this incident")
		}
		var partial *graph.PartialLinkError
		if errors.As(err, &partial) {
			s.logger.Error().Err(err).Int64("incident_id", incidentID).Int64("source_id", sourceID).
				Msg("detach left a partial link")
			return fail(c, http.StatusConflict, "Link is partially removed; retry the detach", nil)
		}
		s.logger.Error().Err(err).Int64("incident_id", incidentID).Int64("source_id", sourceID).
			Msg("detach source failed")
		return internalError(c, "Failed to detach source")
	}

	return success(c, map[string]any{
		"incident_id": incidentID,
		"source_id":   sourceID,
		"detached":    true,
	})
}
