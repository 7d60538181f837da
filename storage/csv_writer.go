package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"chart-collector/metrics"
	"chart-collector/models"
	"chart-collector/utils"
)

// CSVWriter writes one file per (source, date) under a directory tree
// partitioned by source. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	dir    string
	logger *utils.Logger
}

// NewCSVWriter creates a writer rooted at dir. Directories are created lazily.
func NewCSVWriter(dir string, logger *utils.Logger) *CSVWriter {
	return &CSVWriter{dir: dir, logger: logger}
}

// Path returns the file a (source, date) pair is written to.
func (c *CSVWriter) Path(source string, day time.Time) string {
	return filepath.Join(c.dir, source, fmt.Sprintf("%s_%s.csv", source, day.Format("20060102")))
}

// Write replaces the file for (t.Source, day) with rows.
func (c *CSVWriter) Write(t *Table, rows []models.ChartEntry, day time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.Path(t.Source, day)
	if err := c.writeFile(path, t, rows, day); err != nil {
		c.logger.Error("[csv] %s: write %s failed: %v", t.Source, path, err)
		return false
	}

	metrics.RowsWritten.WithLabelValues(t.Source, "csv").Add(float64(len(rows)))
	c.logger.Info("[csv] Saved %d %s records to %s", len(rows), t.Source, path)
	return true
}

func (c *CSVWriter) writeFile(path string, t *Table, rows []models.ChartEntry, day time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Header()); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	date := day.Format(dateLayout)
	for _, e := range rows {
		vals := t.Values(e)
		record := make([]string, 0, len(vals)+1)
		for _, v := range vals {
			record = append(record, fmt.Sprint(v))
		}
		record = append(record, date)
		if err := w.Write(record); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// Latest reads back up to limit entries from the newest file of t.
func (c *CSVWriter) Latest(ctx context.Context, t *Table, limit int) ([]models.ChartEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(c.dir, t.Source, t.Source+"_*.csv"))
	if err != nil || len(files) == 0 {
		return nil, err
	}
	sort.Strings(files)
	newest := files[len(files)-1]

	f, err := os.Open(newest)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", newest, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read %q: %w", newest, err)
	}

	var out []models.ChartEntry
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, t.entryFromRecord(rec))
	}
	return out, nil
}

// Close is a no-op; files are closed after every write.
func (c *CSVWriter) Close() error {
	return nil
}
