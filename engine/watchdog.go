package engine

import (
	"context"
	"time"
)

// watchdog is a single-shot inactivity timer for one job. It lives in an
// auxiliary map keyed by job id, deliberately outside JobState: timers are
// process-local and never persisted.
type watchdog struct {
	timer    *time.Timer
	delay    time.Duration
	notified bool
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// armWatchdogLocked schedules a stalled notice for jobID, replacing any
// pending timer. At most one timer exists per job. Callers must hold e.mu.
func (e *Engine) armWatchdogLocked(jobID string, delay time.Duration, ch, threadHandle string) {
	e.cancelWatchdogLocked(jobID)

	w := &watchdog{delay: delay}
	w.timer = time.AfterFunc(delay, func() {
		e.watchdogFired(jobID, w, ch, threadHandle)
	})
	e.watchdogs[jobID] = w
	e.log.Debugw("Watchdog armed", "job_id", jobID, "delay", delay)
}

// cancelWatchdogLocked deterministically stops any pending timer for jobID
// before it can fire. Callers must hold e.mu.
func (e *Engine) cancelWatchdogLocked(jobID string) {
	w, ok := e.watchdogs[jobID]
	if !ok {
		return
	}
	w.timer.Stop()
	delete(e.watchdogs, jobID)
	e.log.Debugw("Watchdog cancelled", "job_id", jobID)
}

// watchdogFired runs on the timer goroutine when a job went quiet.
//
// The timer may have lost the race with Stop: it re-checks under the engine
// mutex that it is still the current watchdog for the job and that the job
// has not finished in the meantime.
func (e *Engine) watchdogFired(jobID string, w *watchdog, ch, threadHandle string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, ok := e.watchdogs[jobID]
	if !ok || current != w || w.notified {
		return
	}
	w.notified = true
	delete(e.watchdogs, jobID)

	if e.ledger.IsTerminal(jobID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := e.conv.PostReply(ctx, ch, threadHandle, formatStalled(w.delay), true); err != nil {
		e.log.Warnw("Stalled notice failed", "job_id", jobID, "error", err)
		return
	}
	e.log.Infow("Stalled notice posted", "job_id", jobID, "delay", w.delay)
}
