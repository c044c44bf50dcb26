package models

import "time"

// TimestampLayout is the wall-clock format used in the activity log.
const TimestampLayout = "2006-01-02 15:04:05"

// ActivityRecord is one captured observation of the desktop. Records are
// append-only: once written to the log they are never mutated, only bulk
// cleared together with the artifact directory.
type ActivityRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	WindowTitle    string    `json:"active_window_title"`
	ScreenshotPath string    `json:"screenshot_path"`
	Notes          string    `json:"notes"`
}

// SessionStatus is a point-in-time snapshot of the sampling loop.
type SessionStatus struct {
	Running bool          `json:"running"`
	Elapsed time.Duration `json:"elapsed"`
	Records int64         `json:"records"`
}

// SummaryRow is one application's share of a monitoring session,
// recomputed from the full record set on every read.
type SummaryRow struct {
	WindowTitle string  `json:"active_window_title"`
	Count       int     `json:"count"`
	Percentage  float64 `json:"percentage"`
}

// Analysis is the full breakdown of an activity log.
type Analysis struct {
	TotalRecords int          `json:"total_records"`
	UniqueApps   int          `json:"unique_apps"`
	SpanHours    float64      `json:"span_hours"`
	Rows         []SummaryRow `json:"rows"`
	GeneratedAt  time.Time    `json:"generated_at"`
}
