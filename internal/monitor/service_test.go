package monitor

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yeo-menghan/big-brother-watching/internal/config"
	"github.com/yeo-menghan/big-brother-watching/internal/models"
	"github.com/yeo-menghan/big-brother-watching/pkg/screen"
)

// stubCapturer returns a fixed title, or an error on selected ticks.
type stubCapturer struct {
	mu        sync.Mutex
	title     string
	failTicks map[int]bool
	calls     int
}

func (c *stubCapturer) Capture() (*screen.Observation, error) {
	c.mu.Lock()
	c.calls++
	tick := c.calls
	c.mu.Unlock()

	if c.failTicks[tick] {
		return nil, errors.New("display unreachable")
	}
	return &screen.Observation{WindowTitle: c.title}, nil
}

func (c *stubCapturer) IsAvailable() bool { return true }
func (c *stubCapturer) Name() string      { return "stub" }
func (c *stubCapturer) Close() error      { return nil }

func (c *stubCapturer) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeLog is an in-memory Log that can fail a number of appends.
type fakeLog struct {
	mu       sync.Mutex
	records  []models.ActivityRecord
	batches  int
	failNext int
}

func (l *fakeLog) Ensure() error { return nil }

func (l *fakeLog) Append(records []models.ActivityRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(records) == 0 {
		return nil
	}
	if l.failNext > 0 {
		l.failNext--
		return errors.New("disk full")
	}
	l.records = append(l.records, records...)
	l.batches++
	return nil
}

func (l *fakeLog) all() []models.ActivityRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.ActivityRecord, len(l.records))
	copy(out, l.records)
	return out
}

func (l *fakeLog) batchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.batches
}

func testConfig(interval time.Duration) *config.Config {
	cfg := config.Default()
	cfg.Monitor.Interval = interval
	cfg.Monitor.StopGrace = 200 * time.Millisecond
	return cfg
}

func waitIdle(t *testing.T, svc *Service, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if !svc.IsRunning() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("service still running after %v", within)
}

func TestStartStopRecordsEveryTick(t *testing.T) {
	capturer := &stubCapturer{title: "AppA"}
	logStore := &fakeLog{}
	svc := NewService(testConfig(10*time.Millisecond), logStore, capturer, nil)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(55 * time.Millisecond)
	svc.Stop()

	if svc.IsRunning() {
		t.Error("service still running after Stop()")
	}

	records := logStore.all()
	if len(records) == 0 {
		t.Fatal("no records flushed")
	}
	if int(svc.Status().Records) != len(records) {
		t.Errorf("status reports %d records, log has %d", svc.Status().Records, len(records))
	}
	if capturer.callCount() != len(records) {
		t.Errorf("%d captures produced %d records", capturer.callCount(), len(records))
	}

	for i, rec := range records {
		if rec.WindowTitle != "AppA" {
			t.Errorf("record %d title = %q, want AppA", i, rec.WindowTitle)
		}
		if i > 0 && rec.Timestamp.Before(records[i-1].Timestamp) {
			t.Errorf("record %d timestamp decreases: %v < %v",
				i, rec.Timestamp, records[i-1].Timestamp)
		}
	}
}

func TestStartWhileRunning(t *testing.T) {
	svc := NewService(testConfig(10*time.Millisecond), &fakeLog{}, &stubCapturer{title: "AppA"}, nil)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer svc.Stop()

	if err := svc.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestStartInvalidInterval(t *testing.T) {
	cfg := testConfig(0)
	svc := NewService(cfg, &fakeLog{}, &stubCapturer{title: "AppA"}, nil)

	err := svc.Start()
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("Start() error = %v, want ErrInvalidConfig", err)
	}
	if svc.IsRunning() {
		t.Error("service running after rejected Start()")
	}
}

func TestStopIdempotent(t *testing.T) {
	logStore := &fakeLog{}
	svc := NewService(testConfig(10*time.Millisecond), logStore, &stubCapturer{title: "AppA"}, nil)

	// Stop when idle is a no-op.
	svc.Stop()

	if err := svc.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	svc.Stop()
	flushed := len(logStore.all())
	batches := logStore.batchCount()

	// Second Stop is a no-op: no duplicate terminal flush.
	svc.Stop()
	if got := len(logStore.all()); got != flushed {
		t.Errorf("second Stop() changed record count: %d -> %d", flushed, got)
	}
	if got := logStore.batchCount(); got != batches {
		t.Errorf("second Stop() performed a flush: %d -> %d batches", batches, got)
	}
}

func TestDurationExpiry(t *testing.T) {
	cfg := testConfig(10 * time.Millisecond)
	cfg.Monitor.MaxDuration = 60 * time.Millisecond
	logStore := &fakeLog{}
	svc := NewService(cfg, logStore, &stubCapturer{title: "AppA"}, nil)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Idle must be reached without an explicit Stop, within
	// duration + interval + grace.
	waitIdle(t, svc, cfg.Monitor.MaxDuration+cfg.Monitor.Interval+cfg.Monitor.StopGrace)

	if len(logStore.all()) == 0 {
		t.Error("expired session flushed no records")
	}
}

func TestCaptureFailureProducesPlaceholder(t *testing.T) {
	capturer := &stubCapturer{title: "AppA", failTicks: map[int]bool{2: true}}
	logStore := &fakeLog{}
	svc := NewService(testConfig(10*time.Millisecond), logStore, capturer, nil)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(45 * time.Millisecond)
	svc.Stop()

	records := logStore.all()
	if len(records) != capturer.callCount() {
		t.Fatalf("capture failure reduced record count: %d records for %d ticks",
			len(records), capturer.callCount())
	}
	if len(records) < 2 {
		t.Fatalf("too few records to observe the failing tick: %d", len(records))
	}
	if records[1].WindowTitle != "Unknown" {
		t.Errorf("failed tick title = %q, want Unknown", records[1].WindowTitle)
	}
	if records[1].Notes != "capture failed" {
		t.Errorf("failed tick notes = %q, want capture failed", records[1].Notes)
	}
	if records[0].WindowTitle != "AppA" {
		t.Errorf("healthy tick title = %q, want AppA", records[0].WindowTitle)
	}
}

func TestFlushThreshold(t *testing.T) {
	cfg := testConfig(5 * time.Millisecond)
	cfg.Monitor.FlushThreshold = 3
	logStore := &fakeLog{}
	svc := NewService(cfg, logStore, &stubCapturer{title: "AppA"}, nil)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && logStore.batchCount() == 0 {
		time.Sleep(2 * time.Millisecond)
	}
	if got := len(logStore.all()); got < 3 {
		svc.Stop()
		t.Fatalf("first flush wrote %d records, want >= 3", got)
	}
	svc.Stop()
}

func TestFlushFailureRetainsRecords(t *testing.T) {
	cfg := testConfig(5 * time.Millisecond)
	cfg.Monitor.FlushThreshold = 2
	logStore := &fakeLog{failNext: 1}
	capturer := &stubCapturer{title: "AppA"}
	svc := NewService(cfg, logStore, capturer, nil)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	svc.Stop()

	// The failed flush must not lose its records: everything captured
	// still reaches the log once a later flush succeeds.
	if got, want := len(logStore.all()), capturer.callCount(); got != want {
		t.Errorf("log has %d records, want %d (none may be dropped)", got, want)
	}
}

func TestStatusSnapshot(t *testing.T) {
	svc := NewService(testConfig(10*time.Millisecond), &fakeLog{}, &stubCapturer{title: "AppA"}, nil)

	status := svc.Status()
	if status.Running || status.Records != 0 || status.Elapsed != 0 {
		t.Errorf("idle status = %+v, want zeroed", status)
	}

	if err := svc.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Status reads must be safe concurrently with the loop.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = svc.Status()
			}
		}()
	}
	wg.Wait()

	time.Sleep(25 * time.Millisecond)
	status = svc.Status()
	if !status.Running {
		t.Error("status.Running = false during session")
	}
	if status.Elapsed <= 0 {
		t.Error("status.Elapsed not advancing during session")
	}
	if status.Records < 1 {
		t.Error("status.Records = 0 during session")
	}

	svc.Stop()
	status = svc.Status()
	if status.Running {
		t.Error("status.Running = true after Stop()")
	}
	if status.Elapsed <= 0 {
		t.Error("status.Elapsed should report the finished session span")
	}
}

func TestRestartAfterStop(t *testing.T) {
	logStore := &fakeLog{}
	svc := NewService(testConfig(10*time.Millisecond), logStore, &stubCapturer{title: "AppA"}, nil)

	for i := 0; i < 2; i++ {
		if err := svc.Start(); err != nil {
			t.Fatalf("Start() round %d error: %v", i, err)
		}
		time.Sleep(25 * time.Millisecond)
		svc.Stop()
		if svc.IsRunning() {
			t.Fatalf("round %d: still running after Stop()", i)
		}
	}

	if len(logStore.all()) < 2 {
		t.Errorf("two sessions flushed only %d records", len(logStore.all()))
	}
}

// fakeDiag records diagnostics calls.
type fakeDiag struct {
	mu        sync.Mutex
	sessions  []*models.SessionRecord
	finished  []string
	captures  []string
	createErr error
}

func (d *fakeDiag) CreateSession(s *models.SessionRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createErr != nil {
		return d.createErr
	}
	s.ID = uint(len(d.sessions) + 1)
	d.sessions = append(d.sessions, s)
	return nil
}

func (d *fakeDiag) FinishSession(id uint, endedAt time.Time, captures int64, stopReason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finished = append(d.finished, fmt.Sprintf("%d:%s:%d", id, stopReason, captures))
	return nil
}

func (d *fakeDiag) CreateCaptureError(e *models.CaptureError) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.captures = append(d.captures, e.ErrorMsg)
	return nil
}

func TestSessionBookkeeping(t *testing.T) {
	diag := &fakeDiag{}
	capturer := &stubCapturer{title: "AppA", failTicks: map[int]bool{1: true}}
	svc := NewService(testConfig(10*time.Millisecond), &fakeLog{}, capturer, diag)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(25 * time.Millisecond)
	svc.Stop()

	diag.mu.Lock()
	defer diag.mu.Unlock()
	if len(diag.sessions) != 1 {
		t.Fatalf("recorded %d sessions, want 1", len(diag.sessions))
	}
	if len(diag.finished) != 1 {
		t.Fatalf("finished %d sessions, want 1", len(diag.finished))
	}
	if len(diag.captures) != 1 || diag.captures[0] != "display unreachable" {
		t.Errorf("capture errors = %v, want [display unreachable]", diag.captures)
	}
}

func TestStartSessionLeavesConfigUntouched(t *testing.T) {
	cfg := testConfig(time.Hour)
	logStore := &fakeLog{}
	svc := NewService(cfg, logStore, &stubCapturer{title: "AppA"}, nil)

	if err := svc.StartSession(10*time.Millisecond, 0); err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}
	defer svc.Stop()

	// A conflicting start with different parameters must neither
	// disturb the session nor rewrite the shared config.
	if err := svc.StartSession(30*time.Millisecond, time.Minute); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second StartSession() error = %v, want ErrAlreadyRunning", err)
	}
	if cfg.Monitor.Interval != time.Hour {
		t.Errorf("StartSession() rewrote configured interval to %v", cfg.Monitor.Interval)
	}

	time.Sleep(35 * time.Millisecond)
	svc.Stop()

	// The loop must have sampled at the explicit 10ms interval, not
	// the configured one-hour default.
	if got := len(logStore.all()); got < 2 {
		t.Errorf("session flushed %d records, want >= 2 from the explicit interval", got)
	}
}

func TestConcurrentControlAccess(t *testing.T) {
	cfg := testConfig(10 * time.Millisecond)
	svc := NewService(cfg, &fakeLog{}, &stubCapturer{title: "AppA"}, nil)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Start attempts, status reads, and Stop race freely; only the
	// shared buffer and running flag may be touched across goroutines.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = svc.StartSession(time.Duration(n+1)*10*time.Millisecond, 0)
				_ = svc.Status()
			}
		}(i)
	}
	svc.Stop()
	wg.Wait()

	// A racing StartSession may have begun a fresh session after the
	// Stop; shut it down and settle.
	svc.Stop()
	if svc.IsRunning() {
		t.Error("service still running after final Stop()")
	}
}

func TestDiagnosticsFailureDoesNotBlockStart(t *testing.T) {
	diag := &fakeDiag{createErr: errors.New("database locked")}
	svc := NewService(testConfig(10*time.Millisecond), &fakeLog{}, &stubCapturer{title: "AppA"}, diag)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start() should succeed despite diagnostics failure: %v", err)
	}
	svc.Stop()
}
