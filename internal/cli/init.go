// Package cli holds the start-up steps shared by cmd/splitkasse,
// cmd/archive-worker and cmd/splitkassectl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"splitkasse/internal/config"
	"splitkasse/internal/log"
	"splitkasse/internal/sheets"
	gsheet "splitkasse/internal/sheets/google"
	"splitkasse/internal/sheets/memory"
	"splitkasse/internal/storage"
)

// SetupLogger installs a text logger at the given LOG_LEVEL as the slog
// default and returns it.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig exits the process when the configuration is invalid.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenRepository opens (and migrates) the database and seeds both profiles
// with the configured names.
func OpenRepository(ctx context.Context, cfg *config.Config) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureProfiles(ctx, cfg.MeName, cfg.PartnerName); err != nil {
		repo.Close()
		return nil, fmt.Errorf("seed profiles: %w", err)
	}
	return repo, nil
}

// InitSQLite is OpenRepository that exits the process on failure.
func InitSQLite(ctx context.Context, logger *log.Logger, cfg *config.Config) *storage.SQLiteRepository {
	repo, err := OpenRepository(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	return repo
}

// Archive is an archive backend that can be written and read.
type Archive interface {
	sheets.ArchiveWriter
	sheets.ArchiveReader
}

// NewArchive builds the archive selected by ARCHIVE_BACKEND.
func NewArchive(ctx context.Context, cfg *config.Config) (Archive, error) {
	switch cfg.ArchiveBackend {
	case config.ArchiveSheets:
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleArchiveSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("google sheets archive: %w", err)
		}
		return client, nil
	case config.ArchiveMemory, "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.ArchiveBackend)
	}
}

// GracefulShutdown cancels the returned context on SIGINT or SIGTERM and
// then runs cleanup with a context bounded by timeout. done is closed once
// cleanup returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
