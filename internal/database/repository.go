package database

import (
	"time"

	"github.com/yeo-menghan/big-brother-watching/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles session history and capture-error diagnostics.
// The CSV activity log stays the source of truth for records; this
// store only keeps bookkeeping around sessions and their failures.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateSession inserts a new session row at session start
func (r *Repository) CreateSession(session *models.SessionRecord) error {
	result := r.db.Create(session)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert session record")
	}
	return nil
}

// FinishSession records the terminal state of a session
func (r *Repository) FinishSession(id uint, endedAt time.Time, captures int64, stopReason string) error {
	result := r.db.Model(&models.SessionRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"ended_at":    endedAt,
		"captures":    captures,
		"stop_reason": stopReason,
	})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to finish session record")
	}
	return nil
}

// GetSession retrieves a session by its ID
func (r *Repository) GetSession(id uint) (*models.SessionRecord, error) {
	var session models.SessionRecord
	result := r.db.First(&session, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get session record")
	}
	return &session, nil
}

// RecentSessions returns the latest n sessions, newest first
func (r *Repository) RecentSessions(n int) ([]*models.SessionRecord, error) {
	var sessions []*models.SessionRecord
	result := r.db.Order("started_at DESC").Limit(n).Find(&sessions)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query session records")
	}
	return sessions, nil
}

// CreateCaptureError inserts a per-tick capture failure
func (r *Repository) CreateCaptureError(captureError *models.CaptureError) error {
	result := r.db.Create(captureError)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert capture error")
	}
	return nil
}

// RecentCaptureErrors returns the latest n capture failures, newest first
func (r *Repository) RecentCaptureErrors(n int) ([]*models.CaptureError, error) {
	var captureErrors []*models.CaptureError
	result := r.db.Order("timestamp DESC").Limit(n).Find(&captureErrors)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query capture errors")
	}
	return captureErrors, nil
}

// Clear removes all session history and capture errors
func (r *Repository) Clear() error {
	if result := r.db.Exec("DELETE FROM session_records"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear session records")
	}
	if result := r.db.Exec("DELETE FROM capture_errors"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear capture errors")
	}
	return nil
}
