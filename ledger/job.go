// Package ledger owns the mapping from job identifier to persisted thread state.
//
// One JobState exists per job identifier. The full set is loaded once at
// process start and rewritten in full on every mutation: the ledger is a
// best-effort cache, not a transactional store.
package ledger

import (
	"time"
)

// Status represents the current lifecycle stage of a job
type Status string

const (
	StatusStarted    Status = "started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsValidStatus returns true if the status string is a valid Status
func IsValidStatus(s string) bool {
	switch Status(s) {
	case StatusStarted, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is absorbing: once a job is
// completed or failed, no further posting operation may change it.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobState tracks the conversation thread for a single job.
//
// ThreadHandle may be empty only between lazy creation ("silent start") and
// the first real post. ProgressMessageHandle is an ephemeral pointer to the
// most recent coalescable reply; it is not part of job identity and may be
// cleared independent of status changes.
type JobState struct {
	JobID                 string    `json:"jobId"`
	Channel               string    `json:"channel"`
	ThreadHandle          string    `json:"threadHandle,omitempty"`
	Title                 string    `json:"title"`
	Status                Status    `json:"status"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
	Permalink             string    `json:"permalink,omitempty"`
	ProgressMessageHandle string    `json:"progressMessageHandle,omitempty"`
}

// NewJobState creates a JobState in the started status with timestamps set to now
func NewJobState(jobID, channel, threadHandle, title, permalink string) *JobState {
	now := time.Now().UTC()
	return &JobState{
		JobID:        jobID,
		Channel:      channel,
		ThreadHandle: threadHandle,
		Title:        title,
		Status:       StatusStarted,
		CreatedAt:    now,
		UpdatedAt:    now,
		Permalink:    permalink,
	}
}
