package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/YusufHosny/r-d/internal/session"
	"github.com/YusufHosny/r-d/internal/storage"
	"github.com/dustin/go-humanize"
)

type totals struct {
	sessions, skipped       int
	imu, scans, groundTruth int64
}

func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	dbPath, err := config.Storage.DBPath()
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	store := storage.NewSqliteStore(dbPath)
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	dirs, err := sessionDirs(&config.Ingest)
	if err != nil {
		return err
	}
	if len(dirs) == 0 {
		return fmt.Errorf("no sessions found in '%s'", config.Ingest.Directory)
	}

	logger = logger.With(slog.String("dataset", config.Ingest.Dataset))

	var sum totals
	for _, dir := range dirs {
		if err = ctx.Err(); err != nil {
			return err
		}

		stored, err := ingest(ctx, store, &config.Ingest, dir, logger)
		if err != nil {
			return fmt.Errorf("ingesting '%s': %w", dir, err)
		}
		if stored == nil {
			sum.skipped++
			continue
		}

		sum.sessions++
		sum.imu += int64(len(stored.IMU))
		sum.scans += int64(len(stored.Scans))
		sum.groundTruth += int64(len(stored.GroundTruth.Timestamps))
	}

	attrs := []any{
		slog.Int("sessions", sum.sessions),
		slog.Int("skipped", sum.skipped),
		slog.String("imu", humanize.Comma(sum.imu)),
		slog.String("scans", humanize.Comma(sum.scans)),
		slog.String("groundTruth", humanize.Comma(sum.groundTruth)),
	}
	if stat, statErr := os.Stat(dbPath); statErr == nil {
		attrs = append(attrs, slog.String("database", humanize.Bytes(uint64(stat.Size()))))
	}
	logger.Info("ingest complete", attrs...)

	return nil
}

// ingest stores one session directory. It returns a nil record when an
// existing session was kept.
func ingest(ctx context.Context, store *storage.SqliteStore, config *IngestConfig, dir string, logger *slog.Logger) (*session.Record, error) {
	rec, err := session.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	if rec.Device == "" {
		rec.Device = config.Device
	}

	existing, err := store.SessionByName(ctx, config.Dataset, rec.Name)
	switch {
	case errors.Is(err, storage.ErrNoData):
	case err != nil:
		return nil, err
	case !config.Overwrite:
		logger.Warn("session already stored, skipping", slog.String("session", rec.Name), slog.Int64("id", existing.ID))
		return nil, nil
	default:
		if err = store.DeleteSession(ctx, existing.ID); err != nil {
			return nil, err
		}
		logger.Debug("replacing stored session", slog.String("session", rec.Name), slog.Int64("id", existing.ID))
	}

	id, err := store.StoreRecord(ctx, config.Dataset, rec)
	if err != nil {
		return nil, err
	}

	logger.Info("session stored",
		slog.String("session", rec.Name),
		slog.Int64("id", id),
		slog.String("imu", humanize.Comma(int64(len(rec.IMU)))),
		slog.String("scans", humanize.Comma(int64(len(rec.Scans)))),
		slog.String("groundTruth", humanize.Comma(int64(len(rec.GroundTruth.Timestamps)))),
	)
	return rec, nil
}

// sessionDirs lists the session directories to import. os.ReadDir returns
// entries sorted by name.
func sessionDirs(config *IngestConfig) ([]string, error) {
	if len(config.Sessions) > 0 {
		dirs := make([]string, len(config.Sessions))
		for i, name := range config.Sessions {
			dirs[i] = filepath.Join(config.Directory, name)
		}
		return dirs, nil
	}

	entries, err := os.ReadDir(config.Directory)
	if err != nil {
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(config.Directory, e.Name()))
		}
	}
	return dirs, nil
}
