package server

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/herald/engine"
	"github.com/teranos/herald/internal/heraldtest"
	"github.com/teranos/herald/ledger"
)

func newTestServer(t *testing.T) (*MCPServer, *heraldtest.FakeConversation) {
	t.Helper()
	fake := heraldtest.NewFakeConversation()
	led := ledger.New(ledger.NewFileStore(filepath.Join(t.TempDir(), "jobs.json")), zap.NewNop().Sugar())
	eng := engine.New(led, fake, engine.Options{DefaultChannel: "C01"}, zap.NewNop().Sugar())
	t.Cleanup(eng.Close)
	return NewMCPServer(eng, "test", zap.NewNop().Sugar()), fake
}

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// decodeResult unpacks the JSON engine result from a tool response
func decodeResult(t *testing.T, res *mcp.CallToolResult) engine.Result {
	t.Helper()
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var result engine.Result
	require.NoError(t, json.Unmarshal([]byte(text.Text), &result))
	return result
}

func TestHandleStart(t *testing.T) {
	s, fake := newTestServer(t)

	res, err := s.handleStart(context.Background(), toolRequest("job_start", map[string]any{
		"job_id": "j1",
		"title":  "Deploy",
	}))
	require.NoError(t, err)

	result := decodeResult(t, res)
	assert.True(t, result.OK)
	assert.Equal(t, "j1", result.JobID)
	assert.NotEmpty(t, result.ThreadHandle)
	assert.Len(t, fake.ByKind("top"), 1)
}

func TestHandleStartMissingJobID(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleStart(context.Background(), toolRequest("job_start", map[string]any{}))
	require.NoError(t, err, "argument errors are tool errors, not transport errors")
	assert.True(t, res.IsError)
}

func TestHandleUpdateCoalesces(t *testing.T) {
	s, fake := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleStart(ctx, toolRequest("job_start", map[string]any{"job_id": "j1", "title": "Deploy"}))
	require.NoError(t, err)

	res, err := s.handleUpdate(ctx, toolRequest("job_update", map[string]any{
		"job_id":      "j1",
		"message":     "Building...",
		"upsert":      true,
		"watchdog_ms": float64(0), // JSON numbers arrive as float64
	}))
	require.NoError(t, err)
	first := decodeResult(t, res)
	require.True(t, first.OK)

	res, err = s.handleUpdate(ctx, toolRequest("job_update", map[string]any{
		"job_id":      "j1",
		"message":     "Still building...",
		"upsert":      true,
		"watchdog_ms": float64(0),
	}))
	require.NoError(t, err)
	second := decodeResult(t, res)

	assert.Equal(t, first.ReplyHandle, second.ReplyHandle)
	assert.Len(t, fake.ByKind("reply"), 1)
	assert.Len(t, fake.ByKind("edit"), 1)
}

func TestHandleUpdateTerminalJobReturnsStructuredNoOp(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleStart(ctx, toolRequest("job_start", map[string]any{"job_id": "j1", "title": "Deploy"}))
	require.NoError(t, err)
	_, err = s.handleComplete(ctx, toolRequest("job_complete", map[string]any{"job_id": "j1", "summary": "done"}))
	require.NoError(t, err)

	res, err := s.handleUpdate(ctx, toolRequest("job_update", map[string]any{
		"job_id": "j1", "message": "late", "watchdog_ms": float64(0),
	}))
	require.NoError(t, err)

	result := decodeResult(t, res)
	assert.False(t, result.OK)
	assert.Equal(t, engine.ReasonTerminal, result.Reason)
}

func TestHandleUpdateUnknownJobIsToolError(t *testing.T) {
	fake := heraldtest.NewFakeConversation()
	led := ledger.New(nil, zap.NewNop().Sugar())
	// No default channel: nothing to lazily create a thread in
	eng := engine.New(led, fake, engine.Options{}, zap.NewNop().Sugar())
	t.Cleanup(eng.Close)
	s := NewMCPServer(eng, "test", zap.NewNop().Sugar())

	res, err := s.handleUpdate(context.Background(), toolRequest("job_update", map[string]any{
		"job_id": "ghost", "message": "hello",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError, "thread not found is a hard error")
}

func TestHandleWaitAndComplete(t *testing.T) {
	s, fake := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleStart(ctx, toolRequest("job_start", map[string]any{"job_id": "j1", "title": "Deploy"}))
	require.NoError(t, err)

	res, err := s.handleWait(ctx, toolRequest("job_wait", map[string]any{
		"job_id": "j1", "reason": "awaiting review",
	}))
	require.NoError(t, err)
	assert.True(t, decodeResult(t, res).OK)
	assert.Contains(t, fake.Last().Text, "awaiting review")

	res, err = s.handleComplete(ctx, toolRequest("job_complete", map[string]any{
		"job_id":      "j1",
		"summary":     "Shipped",
		"suggestions": []any{"tag the release"},
	}))
	require.NoError(t, err)

	result := decodeResult(t, res)
	assert.True(t, result.OK)
	assert.Equal(t, ledger.StatusCompleted, result.Status)
	assert.Contains(t, fake.Last().Text, "tag the release")
}

func TestHandleFail(t *testing.T) {
	s, fake := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleStart(ctx, toolRequest("job_start", map[string]any{"job_id": "j1", "title": "Deploy"}))
	require.NoError(t, err)

	res, err := s.handleFail(ctx, toolRequest("job_fail", map[string]any{
		"job_id":        "j1",
		"error_summary": "migrations failed",
		"logs_hint":     "kubectl logs deploy/api",
	}))
	require.NoError(t, err)

	result := decodeResult(t, res)
	assert.True(t, result.OK)
	assert.Equal(t, ledger.StatusFailed, result.Status)
	assert.Contains(t, fake.Last().Text, "migrations failed")
}
