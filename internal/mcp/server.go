package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/engram/engram/internal/config"
	"github.com/engram/engram/internal/logging"
	"github.com/engram/engram/internal/memory"
	"github.com/engram/engram/internal/ratelimit"
)

const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "engram"
	ServerVersion   = "1.0.0"
)

// Server implements the MCP server: JSON-RPC 2.0 framed one request per
// line over stdio.
type Server struct {
	memSvc      *memory.Service
	cfg         *config.Config
	rateLimiter *ratelimit.Limiter
	formatter   *Formatter
	log         *logging.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	mu          sync.Mutex
	initialized bool
}

// NewServer creates a new MCP server instance.
func NewServer(memSvc *memory.Service, cfg *config.Config) *Server {
	log := logging.GetLogger("mcp")
	log.Info("initializing MCP server", "version", ServerVersion, "protocol", ProtocolVersion)

	return &Server{
		memSvc:      memSvc,
		cfg:         cfg,
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		formatter:   NewFormatter(),
		log:         log,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
}

// Run starts the MCP server main loop: one JSON-RPC request per line on
// stdin, one response per line on stdout.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("starting MCP server main loop")
	scanner := bufio.NewScanner(s.stdin)
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			s.log.Info("context cancelled, shutting down")
			return ctx.Err()
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		if response := s.handleRequest(ctx, line); response != nil {
			s.sendResponse(response)
		}
	}

	if err := scanner.Err(); err != nil {
		s.log.Error("scanner error", "error", err)
		return fmt.Errorf("scanner error: %w", err)
	}

	s.log.Info("MCP server shutdown complete")
	return nil
}

// handleRequest processes a single JSON-RPC request.
func (s *Server) handleRequest(ctx context.Context, line string) *Response {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.log.Error("failed to parse request", "error", err)
		return &Response{JSONRPC: "2.0", Error: &RPCError{Code: ParseError, Message: "Parse error", Data: err.Error()}}
	}

	s.log.Debug("received request", "method", req.Method, "id", req.ID)

	if req.JSONRPC != "2.0" {
		s.log.Warn("invalid jsonrpc version", "version", req.JSONRPC)
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: InvalidRequest, Message: "Invalid Request", Data: "jsonrpc must be '2.0'"}}
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized":
		// Notification, no response needed.
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{}}
	default:
		s.log.Warn("method not found", "method", req.Method)
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: MethodNotFound, Message: "Method not found", Data: req.Method}}
	}
}

// handleInitialize handles the initialize request.
func (s *Server) handleInitialize(req Request) *Response {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities: ServerCapabilities{
				Tools: &ToolsCapability{ListChanged: false},
			},
			ServerInfo: ServerInfo{
				Name:        ServerName,
				Version:     ServerVersion,
				Description: "local, single-node memory store for AI coding agents",
			},
		},
	}
}

// handleToolsList returns the list of available tools.
func (s *Server) handleToolsList(req Request) *Response {
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: ToolsListResult{Tools: s.getToolDefinitions()}}
}

// handleToolsCall handles tool invocation.
func (s *Server) handleToolsCall(ctx context.Context, req Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.log.Error("failed to parse tool params", "error", err)
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: InvalidParams, Message: "Invalid params", Data: err.Error()}}
	}

	s.log.LogRequest("tools/call", "tool", params.Name)

	if s.rateLimiter != nil {
		result := s.rateLimiter.Allow(params.Name)
		if !result.Allowed {
			s.log.Warn("rate limit exceeded", "tool", params.Name, "limit_type", result.LimitType, "retry_after_ms", result.RetryAfter.Milliseconds())
			return &Response{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error: &RPCError{
					Code:    RateLimitExceeded,
					Message: "Rate limit exceeded",
					Data: RateLimitErrorData{
						RetryAfterMs: result.RetryAfter.Milliseconds(),
						LimitType:    result.LimitType,
						Message:      fmt.Sprintf("Rate limit exceeded for %s. Retry after %v.", result.LimitType, result.RetryAfter),
					},
				},
			}
		}
	}

	startTime := time.Now()
	result, err := s.callTool(ctx, params.Name, params.Arguments)
	duration := time.Since(startTime)

	if err != nil {
		s.log.LogError("tool_call", err, "tool", params.Name, "duration_ms", duration.Seconds()*1000)
		// A tool-level failure is a structured error in the result, not a
		// JSON-RPC protocol error — the call was well-formed, the operation
		// just didn't succeed.
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: CallToolResult{
				Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf("❌ **Error** (%s)\n\n```\n%v\n```", memory.KindOf(err), err)}},
				IsError: true,
			},
		}
	}

	s.log.LogResponse("tools/call", duration.Seconds()*1000, "tool", params.Name)
	formatted := s.formatter.FormatToolResponse(params.Name, result, duration)

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  CallToolResult{Content: []ContentBlock{{Type: "text", Text: formatted}}},
	}
}

// callTool dispatches a tool call by name against the memory service.
func (s *Server) callTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arguments: %w", err)
	}

	switch name {
	case "remember":
		return s.handleRemember(ctx, argsJSON)
	case "recall":
		return s.handleRecall(ctx, argsJSON)
	case "forget":
		return s.handleForget(argsJSON)
	case "capabilities":
		return s.handleCapabilities()
	case "context_hydrate":
		return s.handleContextHydrate(ctx, argsJSON)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// sendResponse writes a JSON-RPC response to stdout.
func (s *Server) sendResponse(resp *Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("failed to marshal response", "error", err)
		return
	}
	fmt.Fprintln(s.stdout, string(data))
}

// getToolDefinitions returns the engram tool set, gated the same way
// Capabilities() gates its tools list: context_hydrate is only advertised
// when the feature flag is on.
func (s *Server) getToolDefinitions() []Tool {
	tools := []Tool{
		{
			Name:        "remember",
			Description: "Store a memory, optionally replacing or upserting an existing one by idempotency key",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"content":         {Type: "string", Description: "The memory content to store"},
					"category":        {Type: "string", Description: "Free-form category label"},
					"scope_id":        {Type: "string", Description: "Scope identifier, honored only when scopes are enabled"},
					"chat_id":         {Type: "string", Description: "Originating chat identifier"},
					"thread_id":       {Type: "string", Description: "Originating thread identifier"},
					"task_id":         {Type: "string", Description: "Originating task identifier"},
					"metadata":        {Type: "string", Description: "Opaque metadata, stored and returned verbatim"},
					"idempotency_key": {Type: "string", Description: "Key for safe retries; required when upsert is true"},
					"upsert":          {Type: "boolean", Description: "Replace the existing memory matching idempotency_key instead of creating a new one", Default: false},
					"session_id":      {Type: "string", Description: "Session identifier for metrics"},
				},
				Required: []string{"content"},
			},
		},
		{
			Name:        "recall",
			Description: "Retrieve memories by semantic similarity, full-text match, or recency when the query is empty",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query":        {Type: "string", Description: "Search text; empty returns the most recent memories"},
					"limit":        {Type: "integer", Description: "Maximum number of results", Default: 10},
					"category":     {Type: "string", Description: "Filter by category"},
					"min_strength": {Type: "number", Description: "Minimum effective strength to include a result", Default: 0.1},
					"session_id":   {Type: "string", Description: "Session identifier for metrics"},
					"scope_id":     {Type: "string", Description: "Filter by scope, honored only when scopes are enabled"},
					"chat_id":      {Type: "string", Description: "Filter by chat"},
					"thread_id":    {Type: "string", Description: "Filter by thread"},
					"task_id":      {Type: "string", Description: "Filter by task"},
				},
			},
		},
		{
			Name:        "forget",
			Description: "Delete a memory by id, scope-gated when scopes are enabled",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"id":         {Type: "string", Description: "Memory id to delete"},
					"scope_id":   {Type: "string", Description: "Scope the memory must match; omit to require an unscoped memory"},
					"session_id": {Type: "string", Description: "Session identifier for metrics"},
				},
				Required: []string{"id"},
			},
		},
		{
			Name:        "capabilities",
			Description: "Report which optional features are enabled on this instance",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		},
	}

	if s.cfg.EnableContextHydration {
		tools = append(tools, Tool{
			Name:        "context_hydrate",
			Description: "Recall memories as a context pre-load for an upcoming task",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query":        {Type: "string", Description: "Search text; empty returns the most recent memories"},
					"limit":        {Type: "integer", Description: "Maximum number of results", Default: 10},
					"category":     {Type: "string", Description: "Filter by category"},
					"min_strength": {Type: "number", Description: "Minimum effective strength to include a result", Default: 0.1},
					"session_id":   {Type: "string", Description: "Session identifier for metrics"},
					"scope_id":     {Type: "string", Description: "Filter by scope, honored only when scopes are enabled"},
					"chat_id":      {Type: "string", Description: "Filter by chat"},
					"thread_id":    {Type: "string", Description: "Filter by thread"},
					"task_id":      {Type: "string", Description: "Filter by task"},
				},
			},
		})
	}

	return tools
}
