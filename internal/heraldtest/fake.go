// Package heraldtest provides test doubles shared across packages.
package heraldtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/teranos/herald/channel"
	"github.com/teranos/herald/errors"
)

// Post records one call against the fake conversation.
type Post struct {
	Kind         string // "top", "reply", or "edit"
	Channel      string
	ThreadHandle string
	Text         string
	Mention      bool
	Handle       string // handle returned to the caller
	Existing     string // for edits, the handle that was edited
}

// FakeConversation is a recording in-memory channel.Conversation.
// Failure flags make the next matching call return an error.
type FakeConversation struct {
	mu    sync.Mutex
	seq   int
	Posts []Post

	FailPostTop   bool
	FailPostReply bool
	FailUpsert    bool
}

// NewFakeConversation creates an empty recording conversation.
func NewFakeConversation() *FakeConversation {
	return &FakeConversation{}
}

func (f *FakeConversation) nextHandle() string {
	f.seq++
	return fmt.Sprintf("1700000000.%06d", f.seq)
}

// PostTop implements channel.Conversation.
func (f *FakeConversation) PostTop(_ context.Context, ch, title string, _ map[string]string, mention bool) (channel.PostResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailPostTop {
		return channel.PostResult{}, errors.New("fake: post_top failed")
	}

	handle := f.nextHandle()
	f.Posts = append(f.Posts, Post{Kind: "top", Channel: ch, Text: title, Mention: mention, Handle: handle})
	return channel.PostResult{
		OK:        true,
		Channel:   ch,
		Handle:    handle,
		Permalink: fmt.Sprintf("https://fake.slack/archives/%s/p%s", ch, handle),
	}, nil
}

// PostReply implements channel.Conversation.
func (f *FakeConversation) PostReply(_ context.Context, ch, threadHandle, text string, mention bool) (channel.PostResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailPostReply {
		return channel.PostResult{}, errors.New("fake: post_reply failed")
	}

	handle := f.nextHandle()
	f.Posts = append(f.Posts, Post{Kind: "reply", Channel: ch, ThreadHandle: threadHandle, Text: text, Mention: mention, Handle: handle})
	return channel.PostResult{OK: true, Channel: ch, Handle: handle}, nil
}

// UpsertReply implements channel.Conversation.
func (f *FakeConversation) UpsertReply(ctx context.Context, ch, threadHandle, text string, mention bool, existing string) (channel.PostResult, error) {
	if existing == "" {
		return f.PostReply(ctx, ch, threadHandle, text, mention)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailUpsert {
		return channel.PostResult{}, errors.New("fake: upsert failed")
	}

	f.Posts = append(f.Posts, Post{Kind: "edit", Channel: ch, ThreadHandle: threadHandle, Text: text, Mention: mention, Handle: existing, Existing: existing})
	return channel.PostResult{OK: true, Channel: ch, Handle: existing}, nil
}

// ByKind returns all recorded posts of the given kind.
func (f *FakeConversation) ByKind(kind string) []Post {
	f.mu.Lock()
	defer f.mu.Unlock()

	var posts []Post
	for _, p := range f.Posts {
		if p.Kind == kind {
			posts = append(posts, p)
		}
	}
	return posts
}

// Count returns the total number of recorded calls.
func (f *FakeConversation) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Posts)
}

// Last returns the most recent recorded post.
func (f *FakeConversation) Last() Post {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.Posts) == 0 {
		return Post{}
	}
	return f.Posts[len(f.Posts)-1]
}
