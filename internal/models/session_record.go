package models

import (
	"time"

	"gorm.io/gorm"
)

// Stop reasons recorded for a finished session.
const (
	StopReasonStopped = "stopped"
	StopReasonExpired = "expired"
)

type SessionRecord struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	StartedAt   time.Time      `gorm:"not null;index" json:"started_at"`
	EndedAt     time.Time      `json:"ended_at"`
	Interval    int64          `gorm:"not null" json:"interval_seconds"`
	MaxDuration int64          `gorm:"not null;default:0" json:"max_duration_seconds"` // 0 = unbounded
	Captures    int64          `gorm:"not null;default:0" json:"captures"`
	StopReason  string         `json:"stop_reason"` // "stopped" or "expired"
	CreatedAt   time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
