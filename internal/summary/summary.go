package summary

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/yeo-menghan/big-brother-watching/internal/models"
)

// Compute groups records by window title and returns each title's
// occurrence count and percentage share. Rows are ordered by
// descending count; ties keep first-seen order. Percentages are
// rounded to two decimals and sum to 100 up to rounding. Empty input
// yields an empty result.
func Compute(records []models.ActivityRecord) []models.SummaryRow {
	if len(records) == 0 {
		return nil
	}

	counts := make(map[string]int)
	var order []string
	for _, rec := range records {
		if _, seen := counts[rec.WindowTitle]; !seen {
			order = append(order, rec.WindowTitle)
		}
		counts[rec.WindowTitle]++
	}

	rows := make([]models.SummaryRow, 0, len(order))
	total := float64(len(records))
	for _, title := range order {
		rows = append(rows, models.SummaryRow{
			WindowTitle: title,
			Count:       counts[title],
			Percentage:  round2(float64(counts[title]) / total * 100.0),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Count > rows[j].Count
	})

	return rows
}

// Analyze produces the full breakdown of an activity log: totals,
// distinct applications, the wall-clock span covered, and the per-app
// shares from Compute.
func Analyze(records []models.ActivityRecord) *models.Analysis {
	analysis := &models.Analysis{
		TotalRecords: len(records),
		Rows:         Compute(records),
		GeneratedAt:  time.Now(),
	}
	analysis.UniqueApps = len(analysis.Rows)

	if len(records) >= 2 {
		first, last := records[0].Timestamp, records[0].Timestamp
		for _, rec := range records[1:] {
			if rec.Timestamp.Before(first) {
				first = rec.Timestamp
			}
			if rec.Timestamp.After(last) {
				last = rec.Timestamp
			}
		}
		analysis.SpanHours = last.Sub(first).Hours()
	}

	return analysis
}

// FormatText formats an analysis as human-readable text
func FormatText(a *models.Analysis) string {
	if a.TotalRecords == 0 {
		return "No data available for analysis.\n"
	}

	output := "Screen Activity Analysis\n"
	output += fmt.Sprintf("Monitoring period: %.2f hours\n", a.SpanHours)
	output += fmt.Sprintf("Total records: %d\n", a.TotalRecords)
	output += fmt.Sprintf("Unique applications: %d\n\n", a.UniqueApps)

	output += fmt.Sprintf("%-40s %10s %10s\n", "Application", "Count", "Percent")
	output += fmt.Sprintf("%s\n", "--------------------------------------------------------------")

	for _, row := range a.Rows {
		output += fmt.Sprintf("%-40s %10d %9.2f%%\n",
			truncate(row.WindowTitle, 40),
			row.Count,
			row.Percentage)
	}

	return output
}

// FormatJSON formats an analysis as indented JSON
func FormatJSON(a *models.Analysis) (string, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
