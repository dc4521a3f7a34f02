package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/driftnet/internal/cli"
	"horse.fit/driftnet/internal/config"
	"horse.fit/driftnet/internal/db"
	"horse.fit/driftnet/internal/logging"
	"horse.fit/driftnet/internal/pipeline"
)

func runSubmit(args []string) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	pageURL := fs.String("url", "", "URL of the document to ingest")
	textFile := fs.String("text-file", "", "Path to a plain-text document (alternative to --url)")
	title := fs.String("title", "", "Title for --text-file submissions")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	hasURL := strings.TrimSpace(*pageURL) != ""
	hasFile := strings.TrimSpace(*textFile) != ""
	if hasURL == hasFile {
		fmt.Fprintln(os.Stderr, "exactly one of --url or --text-file is required")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	svc, err := buildServices(pool, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("service wiring failed")
		fmt.Fprintf(os.Stderr, "Failed to initialize services: %v\n", err)
		return 1
	}

	output, err := submitOne(ctx, svc, *pageURL, *textFile, *title)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Submission failed: %v\n", err)
		return 1
	}

	encoded, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		return 1
	}
	fmt.Println(string(encoded))

	switch output.Status {
	case pipeline.StatusSuccess, pipeline.StatusDuplicateDetected, pipeline.StatusUnrelatedContent:
		return 0
	default:
		return 1
	}
}

func submitOne(ctx context.Context, svc *services, pageURL, textFile, title string) (*pipeline.Output, error) {
	if strings.TrimSpace(pageURL) != "" {
		return svc.pipeline.SubmitURL(ctx, pageURL)
	}

	payload, err := os.ReadFile(textFile)
	if err != nil {
		return nil, fmt.Errorf("read text file %q: %w", textFile, err)
	}
	return svc.pipeline.SubmitText(ctx, title, string(payload))
}
