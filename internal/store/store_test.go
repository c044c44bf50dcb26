package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yeo-menghan/big-brother-watching/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "screen_monitor_data"))
	if err := s.Ensure(); err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	return s
}

func testRecords(n int, title string) []models.ActivityRecord {
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.Local)
	records := make([]models.ActivityRecord, n)
	for i := range records {
		records[i] = models.ActivityRecord{
			Timestamp:      base.Add(time.Duration(i) * time.Second),
			WindowTitle:    title,
			ScreenshotPath: "",
			Notes:          "",
		}
	}
	return records
}

func TestEnsureWritesHeaderOnce(t *testing.T) {
	s := newTestStore(t)

	if err := s.Append(testRecords(3, "AppA")); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	// A second Ensure must not rewrite the file.
	if err := s.Ensure(); err != nil {
		t.Fatalf("second Ensure() error: %v", err)
	}

	records, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("ReadAll() returned %d records, want 3", len(records))
	}
}

func TestAppendAndReadAll(t *testing.T) {
	s := newTestStore(t)

	want := []models.ActivityRecord{
		{
			Timestamp:      time.Date(2026, 8, 29, 9, 30, 0, 0, time.Local),
			WindowTitle:    "Firefox - Mozilla Firefox",
			ScreenshotPath: "screenshots/screenshot_20260829_093000.png",
			Notes:          "",
		},
		{
			Timestamp:   time.Date(2026, 8, 29, 9, 30, 5, 0, time.Local),
			WindowTitle: "Code, with commas \"and quotes\"",
			Notes:       "capture failed",
		},
	}

	if err := s.Append(want); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	got, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("ReadAll() returned %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Timestamp.Equal(want[i].Timestamp) {
			t.Errorf("record %d timestamp = %v, want %v", i, got[i].Timestamp, want[i].Timestamp)
		}
		if got[i].WindowTitle != want[i].WindowTitle {
			t.Errorf("record %d title = %q, want %q", i, got[i].WindowTitle, want[i].WindowTitle)
		}
		if got[i].ScreenshotPath != want[i].ScreenshotPath {
			t.Errorf("record %d screenshot = %q, want %q", i, got[i].ScreenshotPath, want[i].ScreenshotPath)
		}
		if got[i].Notes != want[i].Notes {
			t.Errorf("record %d notes = %q, want %q", i, got[i].Notes, want[i].Notes)
		}
	}
}

func TestAppendEmptyIsNoop(t *testing.T) {
	s := newTestStore(t)

	before, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Append(nil); err != nil {
		t.Fatalf("Append(nil) error: %v", err)
	}

	after, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("Append(nil) modified the log file")
	}
}

func TestAppendAccumulatesAcrossSessions(t *testing.T) {
	s := newTestStore(t)

	if err := s.Append(testRecords(2, "AppA")); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(testRecords(3, "AppB")); err != nil {
		t.Fatal(err)
	}

	records, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(records) != 5 {
		t.Errorf("ReadAll() returned %d records, want 5", len(records))
	}
}

func TestReadAllMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-created"))

	records, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() on missing log should not error, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("ReadAll() = %d records, want 0", len(records))
	}
}

func TestReadAllCorruptLog(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "wrong column count",
			content: "timestamp,active_window_title,screenshot_path,notes\nonly,three,cols\n",
		},
		{
			name:    "bad timestamp",
			content: "timestamp,active_window_title,screenshot_path,notes\nnot-a-time,AppA,,\n",
		},
		{
			name:    "missing header",
			content: "2026-08-29 10:00:00,AppA,,\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			if err := os.WriteFile(s.Path(), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := s.ReadAll()
			if err == nil {
				t.Fatal("ReadAll() on corrupt log should fail")
			}
			if !errors.Is(err, ErrCorruptLog) {
				t.Errorf("ReadAll() error = %v, want ErrCorruptLog", err)
			}
		})
	}
}

func TestClearRemovesEverything(t *testing.T) {
	s := newTestStore(t)

	if err := s.Append(testRecords(4, "AppA")); err != nil {
		t.Fatal(err)
	}
	artifact := filepath.Join(s.ScreenshotDir(), "screenshot_20260829_100000.png")
	if err := os.WriteFile(artifact, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	if _, err := os.Stat(s.OutputDir()); !os.IsNotExist(err) {
		t.Error("output directory still exists after Clear()")
	}

	records, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() after Clear() error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("ReadAll() after Clear() = %d records, want 0", len(records))
	}
}
