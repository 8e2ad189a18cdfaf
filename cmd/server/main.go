package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/triage_inbox/backend/internal/config"
	"github.com/triage_inbox/backend/internal/conversation"
	"github.com/triage_inbox/backend/internal/db"
	httpapi "github.com/triage_inbox/backend/internal/http"
	"github.com/triage_inbox/backend/internal/http/handlers"
	"github.com/triage_inbox/backend/internal/ingest"
	"github.com/triage_inbox/backend/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := log.Level(level).With().Str("service", "triage-inbox").Logger()

	ctx := context.Background()

	var (
		dbStore *db.Store
		pinger  handlers.Pinger
	)
	if cfg.DatabaseURL != "" {
		dbStore, err = db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer dbStore.Close()
		pinger = dbStore
		if cfg.SeedFromDB {
			if err := dbStore.EnsureSchema(ctx); err != nil {
				logger.Fatal().Err(err).Msg("failed to ensure schema")
			}
		}
	}

	dir, err := config.LoadDirectory(cfg.DirectoryFile)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DirectoryFile).Msg("failed to load directory")
	}

	store := conversation.New(conversation.WithLogger(logger))
	source, report, err := loadBatch(ctx, cfg, dbStore)
	switch {
	case errors.Is(err, ingest.ErrNoSource):
		logger.Warn().Err(err).Msg("starting with an empty inbox")
	case err != nil:
		logger.Fatal().Err(err).Str("source", source).Msg("failed to load batch")
	default:
		if err := store.Load(report.Messages); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed store")
		}
		handlers.RecordIngestion(source, report)
		metrics.StoreMessages.Set(float64(store.Len()))
		logger.Info().
			Str("source", source).
			Int("parsed", report.Parsed).
			Int("dropped", len(report.Dropped)).
			Msg("batch ingested")
	}

	router := httpapi.Router(cfg, store, pinger, dir, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		WriteTimeout:      cfg.RequestTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

// loadBatch picks the initial ingestion source: the database table when
// SEED_FROM_DB is set, the CSV file otherwise.
func loadBatch(ctx context.Context, cfg config.Config, dbStore *db.Store) (string, ingest.Report, error) {
	if cfg.SeedFromDB {
		if dbStore == nil {
			return "db", ingest.Report{}, ingest.ErrNoSource
		}
		report, err := ingest.FromSource(ctx, dbStore)
		return "db", report, err
	}
	report, err := ingest.FromFile(cfg.SeedCSVPath)
	return "file", report, err
}
