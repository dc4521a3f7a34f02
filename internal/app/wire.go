package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/driftnet/internal/analysis"
	"horse.fit/driftnet/internal/audit"
	"horse.fit/driftnet/internal/config"
	"horse.fit/driftnet/internal/db"
	"horse.fit/driftnet/internal/graph"
	"horse.fit/driftnet/internal/pipeline"
	"horse.fit/driftnet/internal/species"
	"horse.fit/driftnet/internal/store"
)

// services bundles the wired layers a command needs.
type services struct {
	trail    *audit.Trail
	store    *store.Store
	graph    *graph.Graph
	pipeline *pipeline.Service
}

func buildServices(pool *db.Pool, cfg *config.Config, logger zerolog.Logger) (*services, error) {
	trail := audit.NewTrail(pool)
	st := store.New(pool, trail)
	g := graph.New(pool, st, trail)

	analyzer, err := analysis.NewOpenAIAnalyzer(analysis.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize analyzer: %w", err)
	}

	verifier := species.NewRegistryClient(cfg.SpeciesRegistryURL, nil)

	svc := pipeline.NewService(st, g, analyzer, verifier, logger, pipeline.Config{
		FetchTimeout:       time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
		ExtractConcurrency: cfg.ExtractConcurrency,
	})

	return &services{
		trail:    trail,
		store:    st,
		graph:    g,
		pipeline: svc,
	}, nil
}
