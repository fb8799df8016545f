package engine

import "github.com/teranos/herald/ledger"

// Machine-readable reasons for negative structured outcomes. A Result with
// OK=false is a successful call carrying a negative outcome; it never aborts
// the transport.
const (
	// ReasonTerminal: the job is completed or failed and absorbs the operation
	ReasonTerminal = "terminal"
	// ReasonUpstreamFailure: the conversation platform rejected the post/edit
	ReasonUpstreamFailure = "upstream_failure"
)

// Result is the structured outcome of a lifecycle operation.
type Result struct {
	OK           bool          `json:"ok"`
	Reason       string        `json:"reason,omitempty"`
	Note         string        `json:"note,omitempty"`
	JobID        string        `json:"jobId"`
	Status       ledger.Status `json:"status,omitempty"`
	Channel      string        `json:"channel,omitempty"`
	ThreadHandle string        `json:"threadHandle,omitempty"`
	Permalink    string        `json:"permalink,omitempty"`
	ReplyHandle  string        `json:"replyHandle,omitempty"`
}

// resultFromState fills the thread-identity fields of a Result from a JobState.
func resultFromState(job ledger.JobState) *Result {
	return &Result{
		OK:           true,
		JobID:        job.JobID,
		Status:       job.Status,
		Channel:      job.Channel,
		ThreadHandle: job.ThreadHandle,
		Permalink:    job.Permalink,
	}
}
