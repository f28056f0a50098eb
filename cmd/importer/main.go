package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rs/zerolog/log"

	"campus_coffee/internal/adapters/observability"
	"campus_coffee/internal/app"
	"campus_coffee/internal/shared"
	"campus_coffee/internal/storage"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.ImportFile == "" {
		log.Fatal().Msg("IMPORT_FILE is required")
	}

	log.Info().
		Str("file", cfg.ImportFile).
		Int("workers", cfg.ImportWorkers).
		Msg("importer starting")

	raw, err := os.ReadFile(cfg.ImportFile)
	if err != nil {
		log.Fatal().Err(err).Msg("read import file failed")
	}
	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		log.Fatal().Err(err).Msg("import file must hold a JSON array of objects")
	}

	backend, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store init failed")
	}

	svc, err := app.NewReviewService(backend, backend, backend, cfg.ApprovalQuorum)
	if err != nil {
		_ = closeStore()
		log.Fatal().Err(err).Msg("review service init failed")
	}

	rep, err := app.NewImportService(svc).Import(ctx, records, cfg.ImportWorkers)
	_ = closeStore()
	if err != nil {
		log.Fatal().Err(err).Msg("import aborted")
	}

	log.Info().
		Int("imported", rep.Imported).
		Int("failed", len(rep.Failed)).
		Msg("import completed")
	if len(rep.Failed) > 0 {
		os.Exit(1)
	}
}
