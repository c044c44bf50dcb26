package store

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"time"

	"github.com/yeo-menghan/big-brother-watching/internal/models"

	"github.com/pkg/errors"
)

const (
	logFileName    = "activity_log.csv"
	screenshotsDir = "screenshots"
)

// ErrCorruptLog is returned when the activity log cannot be parsed
// against the fixed schema. Callers treat it as "no data available",
// not a fatal condition.
var ErrCorruptLog = errors.New("corrupt activity log")

// header is the fixed log schema, written exactly once at creation.
var header = []string{"timestamp", "active_window_title", "screenshot_path", "notes"}

// Store is the append-only activity log rooted at an output directory.
// The directory holds the CSV log and a screenshots subdirectory of
// capture artifacts; Clear removes the whole tree.
type Store struct {
	outputDir string
}

// New creates a store rooted at outputDir. Call Ensure before writing.
func New(outputDir string) *Store {
	return &Store{outputDir: outputDir}
}

// Path returns the activity log file location.
func (s *Store) Path() string {
	return filepath.Join(s.outputDir, logFileName)
}

// ScreenshotDir returns the capture artifact directory.
func (s *Store) ScreenshotDir() string {
	return filepath.Join(s.outputDir, screenshotsDir)
}

// OutputDir returns the store's root directory.
func (s *Store) OutputDir() string {
	return s.outputDir
}

// Ensure creates the output directories and the log file with its
// header. The header is written only when the file does not exist yet;
// an existing log is never rewritten.
func (s *Store) Ensure() error {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	if err := os.MkdirAll(s.ScreenshotDir(), 0755); err != nil {
		return errors.Wrap(err, "failed to create screenshot directory")
	}

	if _, err := os.Stat(s.Path()); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to stat activity log")
	}

	f, err := os.OpenFile(s.Path(), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to create activity log")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "failed to write log header")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "failed to flush log header")
	}
	return nil
}

// Append durably writes records to the end of the log. An empty batch
// is a no-op. All rows of one call are written together.
func (s *Store) Append(records []models.ActivityRecord) error {
	if len(records) == 0 {
		return nil
	}

	f, err := os.OpenFile(s.Path(), os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to open activity log for append")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, rec := range records {
		row := []string{
			rec.Timestamp.Format(models.TimestampLayout),
			rec.WindowTitle,
			rec.ScreenshotPath,
			rec.Notes,
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "failed to write activity record")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "failed to flush activity records")
	}
	return nil
}

// ReadAll returns every record in the log in write order. A missing
// log means no data yet (empty result, nil error). A log that cannot
// be parsed against the schema yields ErrCorruptLog.
func (s *Store) ReadAll() ([]models.ActivityRecord, error) {
	f, err := os.Open(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to open activity log")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(ErrCorruptLog, err.Error())
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if rows[0][0] != header[0] {
		return nil, errors.Wrap(ErrCorruptLog, "missing header row")
	}

	records := make([]models.ActivityRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		ts, err := time.ParseInLocation(models.TimestampLayout, row[0], time.Local)
		if err != nil {
			return nil, errors.Wrapf(ErrCorruptLog, "bad timestamp %q", row[0])
		}
		records = append(records, models.ActivityRecord{
			Timestamp:      ts,
			WindowTitle:    row[1],
			ScreenshotPath: row[2],
			Notes:          row[3],
		})
	}
	return records, nil
}

// Clear removes the log and all capture artifacts by deleting the
// output directory recursively. Failures are surfaced to the caller.
func (s *Store) Clear() error {
	if err := os.RemoveAll(s.outputDir); err != nil {
		return errors.Wrap(err, "failed to remove output directory")
	}
	return nil
}
