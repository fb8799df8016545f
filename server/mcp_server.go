// Package server exposes the lifecycle engine as a Model Context Protocol
// tool server over stdio.
//
// The transport is deliberately thin: each tool translates its arguments into
// one engine call and renders the structured result as JSON. Hard errors
// (missing addressing context, unrecoverable anchor post) become MCP tool
// errors; {ok:false} results are ordinary tool results carrying a negative
// outcome.
package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/teranos/herald/engine"
)

// MCPServer wraps the lifecycle engine and exposes it via MCP tools
type MCPServer struct {
	engine *engine.Engine
	server *server.MCPServer
	log    *zap.SugaredLogger
}

// NewMCPServer creates an MCP server for the given engine
func NewMCPServer(eng *engine.Engine, version string, log *zap.SugaredLogger) *MCPServer {
	s := &MCPServer{
		engine: eng,
		log:    log,
	}

	s.server = server.NewMCPServer(
		"herald",
		version,
		server.WithToolCapabilities(true),
	)

	s.registerTools()
	return s
}

// ServeStdio runs the MCP server over stdin/stdout until the client disconnects
func (s *MCPServer) ServeStdio() error {
	s.log.Infow("MCP server listening on stdio")
	return server.ServeStdio(s.server)
}

// registerTools registers the five lifecycle tools
func (s *MCPServer) registerTools() {
	startTool := mcp.NewTool("job_start",
		mcp.WithDescription("Start tracking a job: creates its conversation thread (exactly one per job, idempotent)"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Caller-supplied unique job identifier"),
		),
		mcp.WithString("title",
			mcp.Description("Human-readable job label, fixed at creation"),
		),
		mcp.WithString("channel",
			mcp.Description("Destination channel (defaults to the configured channel)"),
		),
		mcp.WithBoolean("mention",
			mcp.Description("Request a mention on the anchor message (default: true)"),
		),
		mcp.WithBoolean("silent",
			mcp.Description("Defer the anchor post until the first real content (default: configured start.silent)"),
		),
	)
	s.server.AddTool(startTool, s.handleStart)

	updateTool := mcp.NewTool("job_update",
		mcp.WithDescription("Post a progress message into the job's thread; moves the job to in_progress"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job identifier"),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Progress text to post"),
		),
		mcp.WithString("level",
			mcp.Description("Message level: progress (default), info, warn, error, or response (standalone, closes the turn)"),
		),
		mcp.WithBoolean("upsert",
			mcp.Description("Edit the current progress reply in place instead of posting a new one (default: false)"),
		),
		mcp.WithString("thread_handle",
			mcp.Description("Explicit thread handle, overrides the ledger"),
		),
		mcp.WithBoolean("mention",
			mcp.Description("Request a mention (default: false)"),
		),
		mcp.WithNumber("watchdog_ms",
			mcp.Description("Inactivity watchdog delay in ms; 0 disables, absent uses the configured default"),
		),
	)
	s.server.AddTool(updateTool, s.handleUpdate)

	waitTool := mcp.NewTool("job_wait",
		mcp.WithDescription("Announce that the job is waiting on external input; does not change status"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job identifier"),
		),
		mcp.WithString("reason",
			mcp.Description("What the job is waiting for"),
		),
		mcp.WithBoolean("mention",
			mcp.Description("Request a mention (default: true)"),
		),
	)
	s.server.AddTool(waitTool, s.handleWait)

	completeTool := mcp.NewTool("job_complete",
		mcp.WithDescription("Mark the job completed (terminal, idempotent) and post a completion message"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job identifier"),
		),
		mcp.WithString("summary",
			mcp.Description("Completion summary"),
		),
		mcp.WithArray("suggestions",
			mcp.Description("Suggested next steps"),
			mcp.WithStringItems(),
		),
		mcp.WithBoolean("mention",
			mcp.Description("Request a mention (default: true)"),
		),
	)
	s.server.AddTool(completeTool, s.handleComplete)

	failTool := mcp.NewTool("job_fail",
		mcp.WithDescription("Mark the job failed (terminal, idempotent) and post a failure message"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job identifier"),
		),
		mcp.WithString("error_summary",
			mcp.Required(),
			mcp.Description("What went wrong"),
		),
		mcp.WithString("logs_hint",
			mcp.Description("Where to find logs or diagnostics"),
		),
		mcp.WithBoolean("mention",
			mcp.Description("Request a mention (default: true)"),
		),
	)
	s.server.AddTool(failTool, s.handleFail)
}

// renderResult serializes an engine result as a JSON tool result
func renderResult(result *engine.Result) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// optionalBool returns a pointer to the argument value, or nil when absent
// so the engine applies its per-operation default.
func optionalBool(request mcp.CallToolRequest, key string) *bool {
	args := request.GetArguments()
	if raw, ok := args[key]; ok {
		if b, ok := raw.(bool); ok {
			return &b
		}
	}
	return nil
}

// handleStart handles job_start tool calls
func (s *MCPServer) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := request.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.engine.Start(ctx, engine.StartRequest{
		JobID:   jobID,
		Title:   request.GetString("title", ""),
		Channel: request.GetString("channel", ""),
		Mention: optionalBool(request, "mention"),
		Silent:  optionalBool(request, "silent"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("job_start failed: %v", err)), nil
	}
	return renderResult(result)
}

// handleUpdate handles job_update tool calls
func (s *MCPServer) handleUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := request.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	watchdogMs := request.GetInt("watchdog_ms", -1)

	result, err := s.engine.Update(ctx, engine.UpdateRequest{
		JobID:        jobID,
		Message:      message,
		Level:        request.GetString("level", ""),
		Upsert:       request.GetBool("upsert", false),
		ThreadHandle: request.GetString("thread_handle", ""),
		Mention:      optionalBool(request, "mention"),
		NoWatchdog:   watchdogMs == 0,
		WatchdogMs:   max(watchdogMs, 0),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("job_update failed: %v", err)), nil
	}
	return renderResult(result)
}

// handleWait handles job_wait tool calls
func (s *MCPServer) handleWait(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := request.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.engine.Wait(ctx, engine.WaitRequest{
		JobID:   jobID,
		Reason:  request.GetString("reason", ""),
		Mention: optionalBool(request, "mention"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("job_wait failed: %v", err)), nil
	}
	return renderResult(result)
}

// handleComplete handles job_complete tool calls
func (s *MCPServer) handleComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := request.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.engine.Complete(ctx, engine.CompleteRequest{
		JobID:       jobID,
		Summary:     request.GetString("summary", ""),
		Suggestions: request.GetStringSlice("suggestions", nil),
		Mention:     optionalBool(request, "mention"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("job_complete failed: %v", err)), nil
	}
	return renderResult(result)
}

// handleFail handles job_fail tool calls
func (s *MCPServer) handleFail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := request.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	errorSummary, err := request.RequireString("error_summary")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.engine.Fail(ctx, engine.FailRequest{
		JobID:        jobID,
		ErrorSummary: errorSummary,
		LogsHint:     request.GetString("logs_hint", ""),
		Mention:      optionalBool(request, "mention"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("job_fail failed: %v", err)), nil
	}
	return renderResult(result)
}
