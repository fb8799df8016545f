// Package slack implements the conversation channel against the Slack Web API.
//
// Only three API methods are used: chat.postMessage (top-level and threaded),
// chat.update (in-place edits for coalesced replies), and chat.getPermalink
// (best-effort durable links). Calls are paced through a rate limiter to stay
// inside Slack's per-channel posting tier.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/herald/channel"
	"github.com/teranos/herald/config"
	"github.com/teranos/herald/errors"
)

// Client talks to the Slack Web API and implements channel.Conversation.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	mentionUsers []string
	limiter      *rate.Limiter
	log          *zap.SugaredLogger
}

// NewClient creates a Slack client from the resolved configuration.
func NewClient(cfg config.SlackConfig, log *zap.SugaredLogger) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.WithHint(
			errors.Wrap(errors.ErrInvalidRequest, "slack token not configured"),
			"set HERALD_SLACK_TOKEN or slack.token in herald.toml")
	}

	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1.0
	}

	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      strings.TrimRight(cfg.APIURL, "/"),
		token:        cfg.Token,
		mentionUsers: cfg.MentionUsers,
		limiter:      rate.NewLimiter(rate.Limit(perSecond), 1),
		log:          log,
	}, nil
}

// apiResponse is the common shape of Slack Web API responses
type apiResponse struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	Channel   string `json:"channel,omitempty"`
	TS        string `json:"ts,omitempty"`
	Permalink string `json:"permalink,omitempty"`
}

// PostTop posts a new top-level message anchoring a job thread.
func (c *Client) PostTop(ctx context.Context, ch, title string, metadata map[string]string, mention bool) (channel.PostResult, error) {
	text := fmt.Sprintf(":rocket: *%s*", title)
	if len(metadata) > 0 {
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			text += fmt.Sprintf("\n• %s: %s", k, metadata[k])
		}
	}
	if mention {
		text += "\n" + c.renderMention()
	}

	resp, err := c.call(ctx, "chat.postMessage", map[string]any{
		"channel": ch,
		"text":    text,
	})
	if err != nil {
		return channel.PostResult{}, err
	}

	result := channel.PostResult{
		OK:      true,
		Channel: resp.Channel,
		Handle:  resp.TS,
	}
	// Permalink retrieval is best effort and never fails the post
	if link, err := c.getPermalink(ctx, resp.Channel, resp.TS); err == nil {
		result.Permalink = link
	} else {
		c.log.Debugw("Permalink retrieval failed", "channel", resp.Channel, "ts", resp.TS, "error", err)
	}

	return result, nil
}

// PostReply posts a threaded reply under threadHandle.
func (c *Client) PostReply(ctx context.Context, ch, threadHandle, text string, mention bool) (channel.PostResult, error) {
	if mention {
		text += "\n" + c.renderMention()
	}

	resp, err := c.call(ctx, "chat.postMessage", map[string]any{
		"channel":   ch,
		"thread_ts": threadHandle,
		"text":      text,
	})
	if err != nil {
		return channel.PostResult{}, err
	}

	return channel.PostResult{OK: true, Channel: resp.Channel, Handle: resp.TS}, nil
}

// UpsertReply edits existingReplyHandle in place when present, posting a new
// reply otherwise.
func (c *Client) UpsertReply(ctx context.Context, ch, threadHandle, text string, mention bool, existingReplyHandle string) (channel.PostResult, error) {
	if existingReplyHandle == "" {
		return c.PostReply(ctx, ch, threadHandle, text, mention)
	}

	if mention {
		text += "\n" + c.renderMention()
	}

	resp, err := c.call(ctx, "chat.update", map[string]any{
		"channel": ch,
		"ts":      existingReplyHandle,
		"text":    text,
	})
	if err != nil {
		return channel.PostResult{}, err
	}

	return channel.PostResult{OK: true, Channel: resp.Channel, Handle: resp.TS}, nil
}

// renderMention renders targeted mentions when recipients are configured,
// a broadcast notice otherwise.
func (c *Client) renderMention() string {
	if len(c.mentionUsers) == 0 {
		return "<!here>"
	}
	parts := make([]string, 0, len(c.mentionUsers))
	for _, u := range c.mentionUsers {
		parts = append(parts, fmt.Sprintf("<@%s>", u))
	}
	return strings.Join(parts, " ")
}

// call issues a Web API POST and decodes the common response envelope.
func (c *Client) call(ctx context.Context, method string, payload map[string]any) (*apiResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter wait cancelled")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %s payload", method)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s request", method)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.log.Debugw("Slack API call", "method", method)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s request failed", method)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s response", method)
	}

	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s response", method)
	}
	if !resp.OK {
		return nil, errors.Newf("slack %s failed: %s", method, resp.Error)
	}

	return &resp, nil
}

// getPermalink fetches a durable link for a posted message.
func (c *Client) getPermalink(ctx context.Context, ch, ts string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "rate limiter wait cancelled")
	}

	q := url.Values{}
	q.Set("channel", ch)
	q.Set("message_ts", ts)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/chat.getPermalink?"+q.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to build chat.getPermalink request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "chat.getPermalink request failed")
	}
	defer httpResp.Body.Close()

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", errors.Wrap(err, "failed to decode chat.getPermalink response")
	}
	if !resp.OK {
		return "", errors.Newf("slack chat.getPermalink failed: %s", resp.Error)
	}

	return resp.Permalink, nil
}
