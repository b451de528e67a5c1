package engine

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"bantrap/internal/logger"
)

// Stats counts processed events since start.
type Stats struct {
	startTime time.Time

	processed atomic.Int64
	banned    atomic.Int64
	cleaned   atomic.Int64
	aborted   atomic.Int64
	failed    atomic.Int64
	panics    atomic.Int64
	timeouts  atomic.Int64
	active    atomic.Int64
}

func NewStats() *Stats {
	return &Stats{startTime: time.Now()}
}

// Observe counts one finished event.
func (s *Stats) Observe(out Outcome) {
	s.processed.Add(1)
	switch out.Result {
	case ResultAborted:
		s.aborted.Add(1)
	case ResultFailed:
		s.failed.Add(1)
	}
	switch out.Action {
	case ActionBanned:
		s.banned.Add(1)
	case ActionDeleted:
		s.cleaned.Add(1)
	}
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"uptime_seconds":  int64(time.Since(s.startTime).Seconds()),
		"processed":       s.processed.Load(),
		"banned":          s.banned.Load(),
		"cleaned":         s.cleaned.Load(),
		"aborted":         s.aborted.Load(),
		"failed":          s.failed.Load(),
		"panics":          s.panics.Load(),
		"timeouts":        s.timeouts.Load(),
		"active_handlers": s.active.Load(),
		"memory_usage_mb": bToMb(m.Alloc),
		"sys_memory_mb":   bToMb(m.Sys),
		"goroutines":      runtime.NumGoroutine(),
	}
}

// Log writes the counters and warns when the failure rate is high.
func (s *Stats) Log() {
	stats := s.Snapshot()
	logger.Infof("Processing stats: %+v", stats)

	processed := stats["processed"].(int64)
	failed := stats["failed"].(int64)
	if processed > 0 && float64(failed)/float64(processed) > 0.1 {
		logger.Warningf("High failure rate: %.2f%% (%d failures out of %d events)",
			float64(failed)/float64(processed)*100, failed, processed)
	}
}

// Monitor logs the counters every interval until stop is closed.
func (s *Stats) Monitor(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Log()
		case <-stop:
			return
		}
	}
}

// Detailed renders the counters for the debug endpoint.
func (s *Stats) Detailed() string {
	stats := s.Snapshot()
	return fmt.Sprintf(`
=== bantrap processing status ===
Uptime: %d seconds
Events Processed: %d
Members Banned: %d
Staff Messages Cleaned: %d
Aborted: %d
Failed: %d
Panics: %d
Timeouts: %d
Active Handlers: %d
Memory Usage: %d MB
System Memory: %d MB
Goroutines: %d
=================================`,
		stats["uptime_seconds"],
		stats["processed"],
		stats["banned"],
		stats["cleaned"],
		stats["aborted"],
		stats["failed"],
		stats["panics"],
		stats["timeouts"],
		stats["active_handlers"],
		stats["memory_usage_mb"],
		stats["sys_memory_mb"],
		stats["goroutines"],
	)
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
