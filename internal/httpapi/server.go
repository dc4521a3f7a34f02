// Package httpapi serves the ingestion and review API over Echo.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/driftnet/internal/audit"
	"horse.fit/driftnet/internal/db"
	"horse.fit/driftnet/internal/globaltime"
	"horse.fit/driftnet/internal/graph"
	"horse.fit/driftnet/internal/pipeline"
	"horse.fit/driftnet/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	pool     *db.Pool
	store    *store.Store
	graph    *graph.Graph
	trail    *audit.Trail
	pipeline *pipeline.Service
	logger   zerolog.Logger
	opts     Options
}

func NewServer(pool *db.Pool, st *store.Store, g *graph.Graph, trail *audit.Trail, pipe *pipeline.Service, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		// Submissions wait on fetch plus model calls.
		writeTimeout = 180 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		pool:     pool,
		store:    st,
		graph:    g,
		trail:    trail,
		pipeline: pipe,
		logger:   logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)

	api.POST("/submissions/url", s.handleSubmitURL)
	api.POST("/submissions/text", s.handleSubmitText)

	api.GET("/sources", s.handleSources)
	api.GET("/sources/:source_id", s.handleSourceDetail)
	api.PATCH("/sources/:source_id", s.handleSourceUpdate)
	api.DELETE("/sources/:source_id", s.handleSourceDelete)

	api.GET("/incidents", s.handleIncidents)
	api.GET("/incidents/:incident_id", s.handleIncidentDetail)
	api.PATCH("/incidents/:incident_id", s.handleIncidentUpdate)
	api.DELETE("/incidents/:incident_id", s.handleIncidentDelete)
	api.GET("/incidents/:incident_id/duplicates", s.handleIncidentDuplicates)
	api.POST("/incidents/:incident_id/sources/:source_id", s.handleAttachSource)
	api.DELETE("/incidents/:incident_id/sources/:source_id", s.handleDetachSource)

	api.GET("/overviews", s.handleOverviews)
	api.GET("/overviews/:overview_id", s.handleOverviewDetail)

	api.GET("/audit", s.handleAuditTrail)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("driftnet api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("driftnet api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "driftnet",
		"time":    globaltime.UTC(),
	})
}

type statsResponse struct {
	Sources         int64            `json:"sources"`
	Incidents       int64            `json:"incidents"`
	IncidentLinks   int64            `json:"incident_links"`
	Overviews       int64            `json:"overviews"`
	AuditEntries    int64            `json:"audit_entries"`
	LastSourceAt    *time.Time       `json:"last_source_at,omitempty"`
	LastIncidentAt  *time.Time       `json:"last_incident_at,omitempty"`
	SourcesPerScope map[string]int64 `json:"sources_per_scope"`
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.queryStats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) queryStats(ctx context.Context) (*statsResponse, error) {
	const q = `
SELECT
	(SELECT COUNT(*) FROM iuu.sources WHERE deleted_at IS NULL) AS sources,
	(SELECT COUNT(*) FROM iuu.incidents WHERE deleted_at IS NULL) AS incidents,
	(SELECT COUNT(*) FROM iuu.incident_sources) AS incident_links,
	(SELECT COUNT(*) FROM iuu.industry_overviews WHERE deleted_at IS NULL) AS overviews,
	(SELECT COUNT(*) FROM iuu.audit_logs) AS audit_entries,
	(SELECT MAX(created_at) FROM iuu.sources) AS last_source_at,
	(SELECT MAX(created_at) FROM iuu.incidents) AS last_incident_at
`

	var stats statsResponse
	if err := s.pool.QueryRow(ctx, q).Scan(
		&stats.Sources,
		&stats.Incidents,
		&stats.IncidentLinks,
		&stats.Overviews,
		&stats.AuditEntries,
		&stats.LastSourceAt,
		&stats.LastIncidentAt,
	); err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	const scopeQuery = `
SELECT scope::text, COUNT(*)::BIGINT
FROM iuu.sources
WHERE deleted_at IS NULL
GROUP BY scope
ORDER BY scope
`
	rows, err := s.pool.Query(ctx, scopeQuery)
	if err != nil {
		return nil, fmt.Errorf("query scope counts: %w", err)
	}
	defer rows.Close()

	stats.SourcesPerScope = map[string]int64{}
	for rows.Next() {
		var scope string
		var count int64
		if err := rows.Scan(&scope, &count); err != nil {
			return nil, fmt.Errorf("scan scope count: %w", err)
		}
		stats.SourcesPerScope[scope] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scope counts: %w", err)
	}

	return &stats, nil
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	raw := strings.TrimSpace(c.Param(name))
	if raw == "" {
		return 0, fmt.Errorf("is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return id, nil
}
