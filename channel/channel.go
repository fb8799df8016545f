// Package channel defines the conversation capability the lifecycle engine
// posts through. Implementations live elsewhere (see the slack package);
// tests use a recording fake.
package channel

import "context"

// PostResult is the outcome of a post or edit against the platform.
//
// Handle is the platform's message identifier (a timestamp-like string for
// Slack). Permalink is a durable link to the message, best effort.
type PostResult struct {
	OK        bool
	Channel   string
	Handle    string
	Permalink string
}

// Conversation is the capability to anchor a thread and post into it.
//
// All methods return an error for transport-level failures (network, API
// rejection). A nil error with OK=false does not occur: failures are errors.
type Conversation interface {
	// PostTop posts a new top-level message anchoring a thread.
	PostTop(ctx context.Context, channel, title string, metadata map[string]string, mention bool) (PostResult, error)

	// PostReply posts a threaded reply under the given thread handle.
	PostReply(ctx context.Context, channel, threadHandle, text string, mention bool) (PostResult, error)

	// UpsertReply posts a reply when existingReplyHandle is empty, or edits
	// that reply in place otherwise. The returned handle addresses the
	// posted or edited message.
	UpsertReply(ctx context.Context, channel, threadHandle, text string, mention bool, existingReplyHandle string) (PostResult, error)
}
