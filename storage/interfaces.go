package storage

import (
	"context"
	"fmt"
	"time"

	"chart-collector/config"
	"chart-collector/models"
	"chart-collector/utils"
)

// Writer is the interface any storage backend must satisfy. Write never
// returns an error: failures are logged and reported as false.
type Writer interface {
	Write(t *Table, rows []models.ChartEntry, day time.Time) bool
	Close() error
}

// Reader is implemented by writers that can hand back what they stored.
type Reader interface {
	// Latest returns up to limit entries from the most recent date stored
	// for t, in stored order. An empty table yields no entries.
	Latest(ctx context.Context, t *Table, limit int) ([]models.ChartEntry, error)
}

// Open returns the writer selected by cfg.StorageMode.
func Open(cfg *config.Config, logger *utils.Logger) (Writer, error) {
	switch cfg.StorageMode {
	case "", "csv":
		return NewCSVWriter(cfg.DataDir, logger), nil
	case "postgres":
		return NewPostgresWriter(cfg.DSN(), logger)
	case "sqlite":
		return NewSQLiteWriter(cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("storage: unknown mode %q", cfg.StorageMode)
	}
}

const dateLayout = "2006-01-02"
