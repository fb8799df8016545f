package engine

import (
	"context"

	"github.com/teranos/herald/channel"
	"github.com/teranos/herald/errors"
	"github.com/teranos/herald/ledger"
)

// StartRequest begins tracking a job and anchors its conversation thread.
type StartRequest struct {
	JobID    string
	Title    string
	Channel  string
	Metadata map[string]string
	Mention  *bool // default true
	Silent   *bool // default Options.SilentStart
}

// UpdateRequest posts a progress message into the job's thread.
type UpdateRequest struct {
	JobID        string
	Message      string
	Level        string // progress (default), info, warn, error, response
	ThreadHandle string // explicit handle, overrides the ledger
	Title        string
	Channel      string
	Upsert       bool  // edit the current coalescable reply instead of posting
	Mention      *bool // default false
	NoWatchdog   bool
	WatchdogMs   int // positive overrides the engine default
}

// WaitRequest announces that the job is blocked on external input.
type WaitRequest struct {
	JobID        string
	Reason       string
	ThreadHandle string
	Title        string
	Channel      string
	Mention      *bool // default true
}

// CompleteRequest marks the job completed. Terminal and absorbing.
type CompleteRequest struct {
	JobID        string
	Summary      string
	Suggestions  []string
	ThreadHandle string
	Title        string
	Channel      string
	Mention      *bool // default true
}

// FailRequest marks the job failed. Terminal and absorbing.
type FailRequest struct {
	JobID        string
	ErrorSummary string
	LogsHint     string
	ThreadHandle string
	Title        string
	Channel      string
	Mention      *bool // default true
}

// Start creates the job and posts its anchor message.
//
// Start is idempotent: a jobID the ledger already knows returns the original
// thread identifiers and posts nothing. In silent mode the anchor post is
// deferred until the first real content needs to be delivered.
func (e *Engine) Start(ctx context.Context, req StartRequest) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.JobID == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "jobId is required")
	}

	if job, ok := e.ledger.Get(req.JobID); ok {
		result := resultFromState(job)
		result.Note = "already started"
		return result, nil
	}

	ch := firstNonEmpty(req.Channel, e.opts.DefaultChannel)
	title := e.deriveTitle(req.Title, "")

	silent := e.opts.SilentStart
	if req.Silent != nil {
		silent = *req.Silent
	}
	if silent {
		job := e.ledger.Create(req.JobID, ch, "", title, "")
		e.log.Infow("Job started silently", "job_id", req.JobID, "title", title)
		result := resultFromState(job)
		result.Note = "silent start, anchor deferred"
		return result, nil
	}

	if ch == "" {
		return nil, errors.WithHint(
			errors.Wrap(errors.ErrInvalidRequest, "no channel to start the job thread in"),
			"pass a channel or configure slack.channel")
	}

	post, err := e.conv.PostTop(ctx, ch, title, req.Metadata, mentionOrDefault(req.Mention, true))
	if err != nil {
		// Failing to create the anchor is unrecoverable for this call
		return nil, errors.Mark(errors.Wrapf(err, "failed to anchor thread for job %s", req.JobID), errors.ErrAnchorPostFailed)
	}

	job := e.ledger.Create(req.JobID, firstNonEmpty(post.Channel, ch), post.Handle, title, post.Permalink)
	e.log.Infow("Job started", "job_id", req.JobID, "channel", job.Channel, "thread", job.ThreadHandle)
	return resultFromState(job), nil
}

// Update posts (or coalesces) a progress message and moves the job to
// in_progress. Terminal jobs absorb the call with {ok:false, reason:terminal}.
func (e *Engine) Update(ctx context.Context, req UpdateRequest) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.JobID == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "jobId is required")
	}

	e.cancelWatchdogLocked(req.JobID)

	if job, ok := e.ledger.Get(req.JobID); ok && job.Status.IsTerminal() {
		return e.terminalNoOp(job, false), nil
	}

	rt, err := e.resolveThread(ctx, req.JobID, req.ThreadHandle, req.Title, req.Channel)
	if err != nil {
		return e.mapResolveError(req.JobID, err)
	}

	text := formatUpdate(req.Level, req.Message)
	mention := mentionOrDefault(req.Mention, false)
	standalone := req.Level == LevelResponse

	var post channel.PostResult
	var postErr error
	switch {
	case standalone:
		// A response closes the current conversational turn: it may
		// overwrite the pending coalescable reply but is never merged into.
		post, postErr = e.conv.UpsertReply(ctx, rt.channel, rt.handle, text, mention, rt.job.ProgressMessageHandle)
	case req.Upsert && rt.job.ProgressMessageHandle != "":
		post, postErr = e.conv.UpsertReply(ctx, rt.channel, rt.handle, text, mention, rt.job.ProgressMessageHandle)
	default:
		post, postErr = e.conv.PostReply(ctx, rt.channel, rt.handle, text, mention)
	}
	if postErr != nil {
		e.log.Warnw("Progress post failed", "job_id", req.JobID, "error", postErr)
		return &Result{OK: false, Reason: ReasonUpstreamFailure, JobID: req.JobID, Channel: rt.channel, ThreadHandle: rt.handle}, nil
	}

	if standalone {
		e.ledger.ClearProgressMessageHandle(req.JobID)
	} else {
		e.ledger.UpdateProgressMessageHandle(req.JobID, post.Handle)
	}
	e.ledger.UpdateStatus(req.JobID, ledger.StatusInProgress)

	if !req.NoWatchdog {
		delay := e.opts.WatchdogDelay
		if req.WatchdogMs > 0 {
			delay = msToDuration(req.WatchdogMs)
		}
		e.armWatchdogLocked(req.JobID, delay, rt.channel, rt.handle)
	}

	job, _ := e.ledger.Get(req.JobID)
	result := resultFromState(job)
	result.ThreadHandle = rt.handle
	result.ReplyHandle = post.Handle
	return result, nil
}

// Wait posts a waiting notice. It never moves status away from its current
// value; "waiting" is a message, not a state.
func (e *Engine) Wait(ctx context.Context, req WaitRequest) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.JobID == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "jobId is required")
	}

	e.cancelWatchdogLocked(req.JobID)

	if job, ok := e.ledger.Get(req.JobID); ok && job.Status.IsTerminal() {
		return e.terminalNoOp(job, false), nil
	}

	rt, err := e.resolveThread(ctx, req.JobID, req.ThreadHandle, req.Title, req.Channel)
	if err != nil {
		return e.mapResolveError(req.JobID, err)
	}

	text := formatWait(req.Reason)
	mention := mentionOrDefault(req.Mention, true)

	// The waiting notice overwrites the pending coalescable reply when one
	// exists, then stands on its own: nothing further coalesces into it.
	post, postErr := e.conv.UpsertReply(ctx, rt.channel, rt.handle, text, mention, rt.job.ProgressMessageHandle)
	if postErr != nil {
		e.log.Warnw("Waiting post failed", "job_id", req.JobID, "error", postErr)
		return &Result{OK: false, Reason: ReasonUpstreamFailure, JobID: req.JobID, Channel: rt.channel, ThreadHandle: rt.handle}, nil
	}

	e.ledger.ClearProgressMessageHandle(req.JobID)

	job, _ := e.ledger.Get(req.JobID)
	result := resultFromState(job)
	result.ThreadHandle = rt.handle
	result.ReplyHandle = post.Handle
	return result, nil
}

// Complete posts a completion message and moves the job to its terminal
// completed status. Idempotent once terminal.
func (e *Engine) Complete(ctx context.Context, req CompleteRequest) (*Result, error) {
	return e.finish(ctx, req.JobID, finishRequest{
		text:         formatComplete(req.Summary, req.Suggestions),
		status:       ledger.StatusCompleted,
		threadHandle: req.ThreadHandle,
		title:        req.Title,
		channel:      req.Channel,
		mention:      mentionOrDefault(req.Mention, true),
	})
}

// Fail posts a failure message and moves the job to its terminal failed
// status. Idempotent once terminal.
func (e *Engine) Fail(ctx context.Context, req FailRequest) (*Result, error) {
	return e.finish(ctx, req.JobID, finishRequest{
		text:         formatFail(req.ErrorSummary, req.LogsHint),
		status:       ledger.StatusFailed,
		threadHandle: req.ThreadHandle,
		title:        req.Title,
		channel:      req.Channel,
		mention:      mentionOrDefault(req.Mention, true),
	})
}

type finishRequest struct {
	text         string
	status       ledger.Status
	threadHandle string
	title        string
	channel      string
	mention      bool
}

// finish implements the shared terminal path for Complete and Fail.
func (e *Engine) finish(ctx context.Context, jobID string, req finishRequest) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if jobID == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "jobId is required")
	}

	// A terminal job must never see a stale stalled notice
	e.cancelWatchdogLocked(jobID)

	if job, ok := e.ledger.Get(jobID); ok && job.Status.IsTerminal() {
		return e.terminalNoOp(job, true), nil
	}

	rt, err := e.resolveThread(ctx, jobID, req.threadHandle, req.title, req.channel)
	if err != nil {
		return e.mapResolveError(jobID, err)
	}

	// Terminal messages post fresh replies; they are never merged into the
	// progress entry they follow.
	post, postErr := e.conv.PostReply(ctx, rt.channel, rt.handle, req.text, req.mention)
	if postErr != nil {
		// Status stays untouched: the ledger records confirmed outcomes only
		e.log.Warnw("Terminal post failed", "job_id", jobID, "status", req.status, "error", postErr)
		return &Result{OK: false, Reason: ReasonUpstreamFailure, JobID: jobID, Channel: rt.channel, ThreadHandle: rt.handle}, nil
	}

	e.ledger.ClearProgressMessageHandle(jobID)
	e.ledger.UpdateStatus(jobID, req.status)
	e.log.Infow("Job finished", "job_id", jobID, "status", req.status)

	job, _ := e.ledger.Get(jobID)
	result := resultFromState(job)
	result.ThreadHandle = rt.handle
	result.ReplyHandle = post.Handle
	return result, nil
}

// terminalNoOp builds the absorbing-state result: ok for complete/fail
// (idempotent success), not-ok with a reason for update/wait.
func (e *Engine) terminalNoOp(job ledger.JobState, idempotentOK bool) *Result {
	result := resultFromState(job)
	if idempotentOK {
		result.Note = "already terminal"
	} else {
		result.OK = false
		result.Reason = ReasonTerminal
	}
	return result
}

// mapResolveError converts thread-resolution failures into the caller-facing
// surface: upstream failures become structured {ok:false} results, missing
// addressing context stays a hard error.
func (e *Engine) mapResolveError(jobID string, err error) (*Result, error) {
	if errors.Is(err, errUpstream) {
		e.log.Warnw("Thread resolution failed upstream", "job_id", jobID, "error", err)
		return &Result{OK: false, Reason: ReasonUpstreamFailure, JobID: jobID}, nil
	}
	return nil, err
}
