package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/driftnet/internal/analysis"
	"horse.fit/driftnet/internal/db"
	"horse.fit/driftnet/internal/store"
)

func (s *Server) handleSources(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	scope := strings.TrimSpace(strings.ToLower(c.QueryParam("scope")))
	if scope != "" {
		if _, err := analysis.ParseScope(scope); err != nil {
			return failValidation(c, map[string]string{"scope": "is not a known scope"})
		}
	}

	rows, err := s.store.ListSources(c.Request().Context(), store.SourceListOptions{
		Scope: scope,
		Limit: limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("scope", scope).Msg("list sources failed")
		return internalError(c, "Failed to load sources")
	}

	items := make([]sourceView, 0, len(rows))
	for i := range rows {
		items = append(items, newSourceView(&rows[i], false))
	}

	return success(c, map[string]any{
		"items": items,
		"scope": scope,
		"limit": limit,
	})
}

func (s *Server) handleSourceDetail(c echo.Context) error {
	sourceID, err := parseIDParam(c, "source_id")
	if err != nil {
		return failValidation(c, map[string]string{"source_id": err.Error()})
	}

	ctx := c.Request().Context()
	row, err := s.store.GetSource(ctx, sourceID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Source not found")
		}
		s.logger.Error().Err(err).Int64("source_id", sourceID).Msg("load source failed")
		return internalError(c, "Failed to load source")
	}

	view := newSourceView(row, true)
	incidentIDs, err := s.graph.IncidentIDsForSource(ctx, sourceID)
	if err != nil {
		s.logger.Error().Err(err).Int64("source_id", sourceID).Msg("load source links failed")
		return internalError(c, "Failed to load source links")
	}
	view.IncidentIDs = incidentIDs

	return success(c, view)
}

type sourceUpdateRequest struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	Scope  *string `json:"scope"`
}

func (s *Server) handleSourceUpdate(c echo.Context) error {
	sourceID, err := parseIDParam(c, "source_id")
	if err != nil {
		return failValidation(c, map[string]string{"source_id": err.Error()})
	}

	var req sourceUpdateRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON object"})
	}
	if req.Title == nil && req.Author == nil && req.Scope == nil {
		return failValidation(c, map[string]string{"body": "no fields to update"})
	}
	if req.Scope != nil {
		if _, err := analysis.ParseScope(*req.Scope); err != nil {
			return failValidation(c, map[string]string{"scope": "is not a known scope"})
		}
	}

	row, err := s.store.UpdateSource(c.Request().Context(), sourceID, store.SourcePatch{
		Title:  req.Title,
		Author: req.Author,
		Scope:  req.Scope,
	})
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Source not found")
		}
		s.logger.Error().Err(err).Int64("source_id", sourceID).Msg("update source failed")
		return internalError(c, "Failed to update source")
	}

	return success(c, newSourceView(row, false))
}

func (s *Server) handleSourceDelete(c echo.Context) error {
	sourceID, err := parseIDParam(c, "source_id")
	if err != nil {
		return failValidation(c, map[string]string{"source_id": err.Error()})
	}

	ctx := c.Request().Context()

	// A source still backing incidents must be detached first.
	incidentIDs, err := s.graph.IncidentIDsForSource(ctx, sourceID)
	if err != nil {
		s.logger.Error().Err(err).Int64("source_id", sourceID).Msg("load source links failed")
		return internalError(c, "Failed to load source links")
	}
	if len(incidentIDs) > 0 {
		return fail(c, http.StatusConflict, "Source is attached to incidents", map[string]any{
			"incident_ids": incidentIDs,
		})
	}

	if err := s.store.SoftDeleteSource(ctx, sourceID); err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Source not found")
		}
		s.logger.Error().Err(err).Int64("source_id", sourceID).Msg("delete source failed")
		return internalError(c, "Failed to delete source")
	}

	return success(c, map[string]any{"deleted": true, "source_id": sourceID})
}
