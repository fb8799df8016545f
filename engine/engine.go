// Package engine implements the job-thread lifecycle engine: the finite-state
// model mapping a job identifier to exactly one conversation thread.
//
// Every operation combines a ledger lookup, a legality check against the
// lifecycle state machine, a message-coalescing decision, a call into the
// conversation channel, and a ledger mutation. The ledger is only ever
// updated with confirmed outcomes: posts that fail leave it untouched.
package engine

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/herald/channel"
	"github.com/teranos/herald/errors"
	"github.com/teranos/herald/ledger"
)

// DefaultWatchdogDelay is how long a job may sit without updates before the
// inactivity watchdog posts a stalled notice.
const DefaultWatchdogDelay = 30 * time.Second

// fallbackTitle labels lazily created threads when no other title context exists
const fallbackTitle = "Job"

// Options configures an Engine
type Options struct {
	// DefaultChannel receives threads for jobs that do not name a channel
	DefaultChannel string
	// WorkdirHint derives a lazy-creation title from its last path segment
	WorkdirHint string
	// SilentStart defers the anchor post until the first real content
	SilentStart bool
	// WatchdogDelay overrides DefaultWatchdogDelay when positive
	WatchdogDelay time.Duration
}

// Engine drives the job lifecycle state machine.
//
// A single mutex serializes foreground operations and watchdog callbacks:
// the ledger is a full-snapshot store, so concurrent mutation for the same
// job would race. Cross-process concurrency is explicitly not handled.
type Engine struct {
	mu        sync.Mutex
	ledger    *ledger.Ledger
	conv      channel.Conversation
	opts      Options
	watchdogs map[string]*watchdog
	log       *zap.SugaredLogger
}

// New creates a lifecycle engine over the given ledger and conversation channel.
func New(led *ledger.Ledger, conv channel.Conversation, opts Options, log *zap.SugaredLogger) *Engine {
	if opts.WatchdogDelay <= 0 {
		opts.WatchdogDelay = DefaultWatchdogDelay
	}
	return &Engine{
		ledger:    led,
		conv:      conv,
		opts:      opts,
		watchdogs: make(map[string]*watchdog),
		log:       log,
	}
}

// Ledger exposes the underlying ledger for administrative surfaces (jobs ls/rm).
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// Close cancels all pending watchdog timers.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for jobID := range e.watchdogs {
		e.cancelWatchdogLocked(jobID)
	}
}

// errUpstream marks a conversation-channel failure that must surface as a
// structured {ok:false} result rather than a hard error.
var errUpstream = errors.New("upstream post failed")

// resolved carries the outcome of thread resolution for a posting operation.
type resolved struct {
	job     ledger.JobState
	channel string
	handle  string
}

// resolveThread resolves where a posting operation lands, in precedence
// order: explicit caller-supplied handle, ledger-stored handle, lazy anchor
// creation. A job entry is created in the ledger if one does not exist yet.
//
// Returns ErrThreadNotFound when no handle resolves and no channel context
// allows lazy creation; returns an errUpstream-marked error when the lazy
// anchor post itself fails.
func (e *Engine) resolveThread(ctx context.Context, jobID, explicitHandle, title, channelOverride string) (resolved, error) {
	job, exists := e.ledger.Get(jobID)

	ch := firstNonEmpty(channelOverride, job.Channel, e.opts.DefaultChannel)
	handle := firstNonEmpty(explicitHandle, job.ThreadHandle)

	if handle != "" {
		if !exists {
			// A caller-supplied handle addresses a thread the ledger has
			// never seen; track it from here on.
			job = e.ledger.Create(jobID, ch, handle, e.deriveTitle(title, ""), "")
		}
		return resolved{job: job, channel: ch, handle: handle}, nil
	}

	// Lazy creation: the silent-start placeholder (or an entirely unknown
	// job) gets its anchor message now.
	if ch == "" {
		return resolved{}, errors.WithHint(
			errors.Wrapf(errors.ErrThreadNotFound, "job %s has no thread and no channel to create one in", jobID),
			"pass a channel or configure slack.channel")
	}

	anchorTitle := e.deriveTitle(title, job.Title)
	post, err := e.conv.PostTop(ctx, ch, anchorTitle, nil, false)
	if err != nil {
		return resolved{}, errors.Mark(errors.Wrapf(err, "lazy anchor post for job %s failed", jobID), errUpstream)
	}

	if exists {
		e.ledger.UpdateThreadHandle(jobID, post.Handle, post.Permalink)
		job, _ = e.ledger.Get(jobID)
	} else {
		job = e.ledger.Create(jobID, ch, post.Handle, anchorTitle, post.Permalink)
	}

	e.log.Infow("Thread lazily created", "job_id", jobID, "channel", ch, "thread", post.Handle)
	return resolved{job: job, channel: ch, handle: post.Handle}, nil
}

// deriveTitle picks a thread title: caller-supplied > stored > working
// directory hint (last path segment) > fixed fallback.
func (e *Engine) deriveTitle(callerTitle, storedTitle string) string {
	if callerTitle != "" {
		return callerTitle
	}
	if storedTitle != "" {
		return storedTitle
	}
	if e.opts.WorkdirHint != "" {
		if base := filepath.Base(e.opts.WorkdirHint); base != "." && base != string(filepath.Separator) {
			return base
		}
	}
	return fallbackTitle
}

// mentionOrDefault resolves an optional per-call mention flag.
func mentionOrDefault(m *bool, def bool) bool {
	if m != nil {
		return *m
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
