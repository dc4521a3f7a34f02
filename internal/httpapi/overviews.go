package httpapi

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/driftnet/internal/audit"
	"horse.fit/driftnet/internal/db"
)

func (s *Server) handleOverviews(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	rows, err := s.store.ListOverviews(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list overviews failed")
		return internalError(c, "Failed to load overviews")
	}

	items := make([]overviewView, 0, len(rows))
	for i := range rows {
		items = append(items, newOverviewView(&rows[i], false))
	}

	return success(c, map[string]any{
		"items": items,
		"limit": limit,
	})
}

func (s *Server) handleOverviewDetail(c echo.Context) error {
	overviewID, err := parseIDParam(c, "overview_id")
	if err != nil {
		return failValidation(c, map[string]string{"overview_id": err.Error()})
	}

	row, err := s.store.GetOverview(c.Request().Context(), overviewID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Overview not found")
		}
		s.logger.Error().Err(err).Int64("overview_id", overviewID).Msg("load overview failed")
		return internalError(c, "Failed to load overview")
	}

	return success(c, newOverviewView(row, true))
}

func (s *Server) handleAuditTrail(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), 100, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	entityID := int64(0)
	if raw := strings.TrimSpace(c.QueryParam("entity_id")); raw != "" {
		parsed, err := parsePositiveInt(raw, 0, 1, 1<<31-1)
		if err != nil {
			return failValidation(c, map[string]string{"entity_id": err.Error()})
		}
		entityID = int64(parsed)
	}

	items, err := s.trail.List(c.Request().Context(), audit.ListOptions{
		EntityType: strings.TrimSpace(strings.ToLower(c.QueryParam("entity_type"))),
		EntityID:   entityID,
		Limit:      limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("list audit trail failed")
		return internalError(c, "Failed to load audit trail")
	}

	return success(c, map[string]any{
		"items": items,
		"limit": limit,
	})
}
