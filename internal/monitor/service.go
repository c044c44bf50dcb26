package monitor

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yeo-menghan/big-brother-watching/internal/config"
	"github.com/yeo-menghan/big-brother-watching/internal/models"
	"github.com/yeo-menghan/big-brother-watching/pkg/screen"
)

// ErrAlreadyRunning is returned by Start while a session is active.
var ErrAlreadyRunning = errors.New("monitoring session is already running")

// placeholderTitle is recorded when a capture fails; the failure never
// ends the session.
const placeholderTitle = "Unknown"

// Log is the durable sink for activity records.
type Log interface {
	Ensure() error
	Append(records []models.ActivityRecord) error
}

// Diagnostics keeps session bookkeeping and per-tick capture failures.
type Diagnostics interface {
	CreateSession(session *models.SessionRecord) error
	FinishSession(id uint, endedAt time.Time, captures int64, stopReason string) error
	CreateCaptureError(captureError *models.CaptureError) error
}

// Service owns the sampling loop: it starts and stops a
// bounded-duration session, buffers records, flushes them durably, and
// exposes live progress. Exactly one session can run at a time;
// exactly one goroutine executes the loop.
type Service struct {
	config   *config.Config
	log      Log
	capturer screen.Capturer
	diag     Diagnostics // may be nil

	mu            sync.Mutex
	stopChan      chan struct{}
	doneChan      chan struct{}
	stopRequested bool

	// Session parameters, snapshotted under mu at start so the loop
	// and Stop never read configuration another caller may rewrite.
	interval       time.Duration
	maxDuration    time.Duration
	flushThreshold int
	stopGrace      time.Duration

	running    atomic.Bool
	startNanos atomic.Int64
	endNanos   atomic.Int64
	records    atomic.Int64
}

// NewService creates a sampling service. diag may be nil to disable
// session history and capture-error diagnostics.
func NewService(cfg *config.Config, logStore Log, capturer screen.Capturer, diag Diagnostics) *Service {
	return &Service{
		config:   cfg,
		log:      logStore,
		capturer: capturer,
		diag:     diag,
	}
}

// Start transitions Idle to Running with the configured interval and
// duration cutoff. Starting while running fails with
// ErrAlreadyRunning; the active session is not disturbed.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(s.config.Monitor.Interval, s.config.Monitor.MaxDuration)
}

// StartSession transitions Idle to Running with an explicit interval
// and duration cutoff, leaving the configured defaults untouched. A
// maxDuration of zero runs until stopped.
func (s *Service) StartSession(interval, maxDuration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(interval, maxDuration)
}

func (s *Service) startLocked(interval, maxDuration time.Duration) error {
	if s.running.Load() {
		return ErrAlreadyRunning
	}

	if interval <= 0 {
		return fmt.Errorf("%w: capture interval must be positive", config.ErrInvalidConfig)
	}
	if maxDuration < 0 {
		return fmt.Errorf("%w: session duration cannot be negative", config.ErrInvalidConfig)
	}
	if s.config.Monitor.FlushThreshold < 1 {
		return fmt.Errorf("%w: flush threshold must be at least 1", config.ErrInvalidConfig)
	}

	if err := s.log.Ensure(); err != nil {
		return fmt.Errorf("failed to prepare activity log: %w", err)
	}

	startedAt := time.Now()
	var sessionID uint
	if s.diag != nil {
		session := &models.SessionRecord{
			StartedAt:   startedAt,
			Interval:    int64(interval.Seconds()),
			MaxDuration: int64(maxDuration.Seconds()),
		}
		if err := s.diag.CreateSession(session); err != nil {
			log.Printf("Warning: failed to record session start: %v", err)
		} else {
			sessionID = session.ID
		}
	}

	s.interval = interval
	s.maxDuration = maxDuration
	s.flushThreshold = s.config.Monitor.FlushThreshold
	s.stopGrace = s.config.Monitor.StopGrace

	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.stopRequested = false
	s.startNanos.Store(startedAt.UnixNano())
	s.endNanos.Store(0)
	s.records.Store(0)
	s.running.Store(true)

	go s.loop(sessionID, startedAt, s.stopChan, s.doneChan)

	log.Printf("Monitoring started: interval=%v, max duration=%v", interval, maxDuration)
	return nil
}

// Stop requests a Running to Idle transition and waits up to
// interval + grace for the loop to flush and exit. After the wait it
// proceeds regardless; a late in-flight tick may still flush behind
// it. Calling Stop when Idle is a no-op, as is calling it twice.
func (s *Service) Stop() {
	s.mu.Lock()
	done := s.doneChan
	if done == nil || !s.running.Load() {
		s.mu.Unlock()
		return
	}
	if !s.stopRequested {
		s.stopRequested = true
		close(s.stopChan)
	}
	wait := s.interval + s.stopGrace
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(wait):
		log.Printf("Warning: sampling loop did not exit within %v, proceeding", wait)
	}
}

// IsRunning reports whether a session is active
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// Status returns a snapshot of the live session without blocking the
// sampling loop. When idle it reports the previous session's span.
func (s *Service) Status() models.SessionStatus {
	status := models.SessionStatus{
		Running: s.running.Load(),
		Records: s.records.Load(),
	}

	start := s.startNanos.Load()
	if start == 0 {
		return status
	}
	if status.Running {
		status.Elapsed = time.Since(time.Unix(0, start))
	} else if end := s.endNanos.Load(); end > start {
		status.Elapsed = time.Duration(end - start)
	}
	return status
}

// loop is the sampling loop. It is the only writer to the activity
// log; the buffer is owned by this goroutine and reaches the log only
// through flush.
func (s *Service) loop(sessionID uint, startedAt time.Time, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := s.interval
	maxDuration := s.maxDuration
	threshold := s.flushThreshold
	stopReason := models.StopReasonStopped

	var buffer []models.ActivityRecord

loop:
	for {
		// Duration cutoff is checked before capturing, so the tick
		// that crosses the boundary takes no record.
		if maxDuration > 0 && time.Since(startedAt) >= maxDuration {
			stopReason = models.StopReasonExpired
			log.Printf("Monitoring duration of %v completed", maxDuration)
			break loop
		}

		select {
		case <-stop:
			break loop
		default:
		}

		buffer = append(buffer, s.captureOnce())
		s.records.Add(1)

		if len(buffer) >= threshold {
			buffer = s.flush(buffer)
		}

		// Wall-clock sleep between ticks. Drift is not compensated:
		// total elapsed time may exceed count*interval.
		select {
		case <-stop:
			break loop
		case <-time.After(interval):
		}
	}

	// Terminal flush, performed exactly once whichever of explicit
	// stop or duration expiry ended the session.
	if len(buffer) > 0 {
		if remaining := s.flush(buffer); len(remaining) > 0 {
			log.Printf("Warning: %d records could not be flushed at session end", len(remaining))
		}
	}

	endedAt := time.Now()
	s.endNanos.Store(endedAt.UnixNano())
	s.running.Store(false)

	if s.diag != nil && sessionID != 0 {
		if err := s.diag.FinishSession(sessionID, endedAt, s.records.Load(), stopReason); err != nil {
			log.Printf("Warning: failed to record session end: %v", err)
		}
	}

	log.Printf("Monitoring stopped (%s): %d captures over %v",
		stopReason, s.records.Load(), endedAt.Sub(startedAt).Round(time.Second))
}

// captureOnce produces the record for one tick. A capture failure is
// recovered locally with a placeholder record; it never stops the
// session.
func (s *Service) captureOnce() models.ActivityRecord {
	now := time.Now()

	obs, err := s.capturer.Capture()
	if err != nil {
		s.storeCaptureError(now, err)
		return models.ActivityRecord{
			Timestamp:   now,
			WindowTitle: placeholderTitle,
			Notes:       "capture failed",
		}
	}

	return models.ActivityRecord{
		Timestamp:      now,
		WindowTitle:    obs.WindowTitle,
		ScreenshotPath: obs.ScreenshotPath,
		Notes:          obs.Notes,
	}
}

// flush writes the buffer durably. On failure the records are kept
// for the next attempt rather than discarded.
func (s *Service) flush(buffer []models.ActivityRecord) []models.ActivityRecord {
	if len(buffer) == 0 {
		return buffer
	}
	if err := s.log.Append(buffer); err != nil {
		log.Printf("Warning: failed to flush %d records, retrying on next flush: %v", len(buffer), err)
		return buffer
	}
	return buffer[:0]
}

func (s *Service) storeCaptureError(at time.Time, err error) {
	log.Printf("Capture failed: %v", err)
	if s.diag == nil {
		return
	}
	captureError := &models.CaptureError{
		Timestamp: at,
		ErrorMsg:  err.Error(),
	}
	if dbErr := s.diag.CreateCaptureError(captureError); dbErr != nil {
		log.Printf("Failed to store capture error: %v (original error: %v)", dbErr, err)
	}
}
