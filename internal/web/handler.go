package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/yeo-menghan/big-brother-watching/internal/config"
	"github.com/yeo-menghan/big-brother-watching/internal/database"
	"github.com/yeo-menghan/big-brother-watching/internal/models"
	"github.com/yeo-menghan/big-brother-watching/internal/monitor"
	"github.com/yeo-menghan/big-brother-watching/internal/store"
	"github.com/yeo-menghan/big-brother-watching/internal/summary"
	"github.com/yeo-menghan/big-brother-watching/pkg/utils"
)

type Handler struct {
	config  *config.Config
	monitor *monitor.Service
	store   *store.Store
	repo    *database.Repository // may be nil
}

func NewHandler(cfg *config.Config, svc *monitor.Service, st *store.Store, repo *database.Repository) *Handler {
	return &Handler{
		config:  cfg,
		monitor: svc,
		store:   st,
		repo:    repo,
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/start", h.handleStart)
	mux.HandleFunc("/api/stop", h.handleStop)
	mux.HandleFunc("/api/clear", h.handleClear)
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/summary", h.handleSummary)
	mux.HandleFunc("/api/records", h.handleRecords)
	mux.HandleFunc("/api/analysis", h.handleAnalysis)
	mux.HandleFunc("/api/sessions", h.handleSessions)

	mux.HandleFunc("/health", h.handleHealth)

	mux.HandleFunc("/", h.handleIndex)
}

type startRequest struct {
	IntervalSeconds int `json:"interval_seconds"`
	DurationMinutes int `json:"duration_minutes"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	interval := time.Duration(req.IntervalSeconds) * time.Second
	duration := time.Duration(req.DurationMinutes) * time.Minute

	// Validate without touching the shared config: a session may be
	// running off it, and a rejected request must change nothing.
	if err := h.config.CheckInterval(interval); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// duration_minutes of zero means run until stopped.
	if err := h.config.CheckMaxDuration(duration); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.monitor.StartSession(interval, duration); err != nil {
		switch {
		case errors.Is(err, monitor.ErrAlreadyRunning):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, config.ErrInvalidConfig):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, fmt.Sprintf("Failed to start session: %v", err), http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, map[string]interface{}{
		"started":          true,
		"interval_seconds": req.IntervalSeconds,
		"duration_minutes": req.DurationMinutes,
	})
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Stop is idempotent: stopping an idle session is fine.
	h.monitor.Stop()

	status := h.monitor.Status()
	respondJSON(w, map[string]interface{}{
		"stopped": true,
		"records": status.Records,
	})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.monitor.IsRunning() {
		http.Error(w, "Cannot clear data while a session is running", http.StatusConflict)
		return
	}

	if err := h.store.Clear(); err != nil {
		http.Error(w, fmt.Sprintf("Failed to clear data: %v", err), http.StatusInternalServerError)
		return
	}

	if h.repo != nil {
		if err := h.repo.Clear(); err != nil {
			http.Error(w, fmt.Sprintf("Failed to clear session history: %v", err), http.StatusInternalServerError)
			return
		}
	}

	respondJSON(w, map[string]interface{}{"cleared": true})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.monitor.Status()

	if r.Header.Get("HX-Request") == "true" {
		h.respondStatusHTML(w, status)
		return
	}

	respondJSON(w, map[string]interface{}{
		"running":         status.Running,
		"elapsed_seconds": int64(status.Elapsed.Seconds()),
		"records":         status.Records,
		"output_dir":      h.store.OutputDir(),
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records := h.readRecords()
	rows := summary.Compute(records)

	if r.Header.Get("HX-Request") == "true" {
		h.respondSummaryHTML(w, rows, len(records))
		return
	}

	respondJSON(w, map[string]interface{}{
		"total_records": len(records),
		"rows":          rows,
	})
}

func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records := h.readRecords()

	limit := 100 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if len(records) > limit {
		records = records[len(records)-limit:]
	}

	respondJSON(w, records)
}

func (h *Handler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	respondJSON(w, summary.Analyze(h.readRecords()))
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.repo == nil {
		respondJSON(w, []*models.SessionRecord{})
		return
	}

	sessions, err := h.repo.RecentSessions(20)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch sessions: %v", err), http.StatusInternalServerError)
		return
	}
	respondJSON(w, sessions)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// readRecords loads the activity log, treating a missing or corrupt
// log as "no data yet" so a torn concurrent write can never crash a
// summary read.
func (h *Handler) readRecords() []models.ActivityRecord {
	records, err := h.store.ReadAll()
	if err != nil {
		log.Printf("Activity log unreadable, treating as empty: %v", err)
		return nil
	}
	return records
}

func (h *Handler) respondStatusHTML(w http.ResponseWriter, status models.SessionStatus) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if !status.Running {
		fmt.Fprintf(w, `<div class="status idle"><span class="dot"></span> Idle - %d captures recorded</div>`,
			status.Records)
		return
	}

	fmt.Fprintf(w, `<div class="status recording"><span class="dot"></span> Recording - %s elapsed, %d captures</div>`,
		utils.FormatElapsed(status.Elapsed), status.Records)
}

func (h *Handler) respondSummaryHTML(w http.ResponseWriter, rows []models.SummaryRow, total int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if len(rows) == 0 {
		w.Write([]byte(`<div class="loading">No data available</div>`))
		return
	}

	html := `<div class="listing">`
	for _, row := range rows {
		percentStr := fmt.Sprintf("%.2f%%", row.Percentage)
		html += fmt.Sprintf(`
		<div class="app-item" style="--bar-width: %.1f%%">
			<span class="app-name">%s</span>
			<div>
				<span class="app-count">%d</span>
				<span class="app-percentage">%s</span>
			</div>
		</div>`, row.Percentage, template.HTMLEscapeString(row.WindowTitle), row.Count, percentStr)
	}
	html += `</div>`
	html += fmt.Sprintf(`<div class="total">Total: %d captures</div>`, total)

	w.Write([]byte(html))
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
