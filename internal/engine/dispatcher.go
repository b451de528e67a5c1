package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"bantrap/internal/crash"
	"bantrap/internal/logger"
	"bantrap/internal/platform"
)

const (
	DefaultMaxConcurrent = 64
	DefaultEventTimeout  = 30 * time.Second
)

// Dispatcher feeds adapter events into the engine, one goroutine per event,
// and is the only place outcomes are logged.
type Dispatcher struct {
	engine  *Engine
	stats   *Stats
	timeout time.Duration
	sem     chan struct{}

	// mu orders wg.Add against Close.
	mu     sync.RWMutex
	wg     sync.WaitGroup
	closed atomic.Bool

	// onReady runs after the ready signal is logged.
	onReady func(botName string)
}

func NewDispatcher(engine *Engine, stats *Stats, maxConcurrent int, timeout time.Duration) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if timeout <= 0 {
		timeout = DefaultEventTimeout
	}
	if stats == nil {
		stats = NewStats()
	}
	return &Dispatcher{
		engine:  engine,
		stats:   stats,
		timeout: timeout,
		sem:     make(chan struct{}, maxConcurrent),
	}
}

// OnReady sets a callback for the ready signal.
func (d *Dispatcher) OnReady(fn func(botName string)) {
	d.onReady = fn
}

// Stats returns the dispatcher's counters.
func (d *Dispatcher) Stats() *Stats {
	return d.stats
}

// Ready implements platform.EventSink.
func (d *Dispatcher) Ready(botName string) {
	logger.Infof("Logged in as %s", botName)
	if d.onReady != nil {
		d.onReady(botName)
	}
}

// MessageCreated implements platform.EventSink. It never blocks the caller.
func (d *Dispatcher) MessageCreated(evt platform.MessageEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed.Load() {
		logger.Debugf("Dispatcher closed, dropping message %s", evt.Message.MessageID)
		return
	}
	d.wg.Add(1)
	go d.run(evt)
}

func (d *Dispatcher) run(evt platform.MessageEvent) {
	defer d.wg.Done()
	defer func() {
		if crash.Recover("dispatcher", recover()) {
			d.stats.panics.Add(1)
			eventsCounter.WithLabelValues("panic").Inc()
		}
	}()

	d.sem <- struct{}{}
	defer func() { <-d.sem }()

	d.stats.active.Add(1)
	activeEvents.Inc()
	defer func() {
		d.stats.active.Add(-1)
		activeEvents.Dec()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	out := d.engine.Process(ctx, evt)
	eventDuration.Observe(time.Since(start).Seconds())

	if errors.Is(out.Err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		d.stats.timeouts.Add(1)
	}
	d.observe(evt, out)
}

func (d *Dispatcher) observe(evt platform.MessageEvent, out Outcome) {
	d.stats.Observe(out)
	eventsCounter.WithLabelValues(out.Result.String()).Inc()
	if out.Action != ActionNone {
		actionsCounter.WithLabelValues(out.Action.String()).Inc()
	}

	community := evt.CommunityName
	if community == "" {
		community = evt.CommunityID
	}

	switch out.Result {
	case ResultOK:
		switch out.Action {
		case ActionBanned:
			logger.Infof("Banned %s (%s) from %s for posting in trap channel.", evt.Author.Tag, evt.Author.ID, community)
		case ActionDeleted:
			logger.Infof("Exempt member %s posted in trap channel of %s, message removed", evt.Author.Tag, community)
			if out.Err != nil {
				logger.Debugf("Error deleting message %s: %v", evt.Message.MessageID, out.Err)
			}
		}
	case ResultAborted:
		logger.Debugf("Skipped message %s from %s in %s: %s: %v", evt.Message.MessageID, evt.Author.ID, community, out.Reason, out.Err)
	case ResultFailed:
		logger.Warningf("Error enforcing trap on %s (%s) in %s (%s): %v", evt.Author.Tag, evt.Author.ID, community, out.Kind, out.Err)
	}
}

// Close stops accepting events and waits up to timeout for in-flight ones.
// It reports whether every event finished.
func (d *Dispatcher) Close(timeout time.Duration) bool {
	d.mu.Lock()
	d.closed.Store(true)
	d.mu.Unlock()
	return d.Wait(timeout)
}

// Wait blocks until in-flight events finish or timeout elapses.
func (d *Dispatcher) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
