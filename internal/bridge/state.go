package bridge

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// State is a bridge's lifecycle state, per spec.md §3 "Bridge" and §4.7's
// state machine: absent -> starting -> (ready | failed) -> stopped.
type State string

const (
	StateAbsent   State = "absent"
	StateStarting State = "starting"
	StateReady    State = "ready"
	StateFailed   State = "failed"
	StateStopped  State = "stopped"
)

// Transport identifies how a bridge is reached.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// Client is the subset of an MCP client a bridge needs, matching the
// teacher's mcpserver.MCPClient contract (internal/mcpserver/client.go in
// giantswarm-muster) so the supervisor can treat stdio and HTTP bridges
// polymorphically. The concrete implementations live in
// internal/mcpclient and wrap github.com/mark3labs/mcp-go/client.
type Client interface {
	Initialize(ctx context.Context) error
	Close() error
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)
	ListPrompts(ctx context.Context) ([]mcp.Prompt, error)
	GetPrompt(ctx context.Context, name string, args map[string]interface{}) (*mcp.GetPromptResult, error)
	ListResources(ctx context.Context) ([]mcp.Resource, error)
	ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error)
}

// Diagnostic is the structured failure explanation spec.md §4.7 requires
// for a starting->failed transition: the command, whether a differently
// named global binary might be the intended target, and whether a local
// sibling project's package name matches (suggesting the cwd form).
type Diagnostic struct {
	Command          string
	Message          string
	GlobalBinaryHint string
	CwdFormHint      string
}

// Bridge is one supervised external MCP server, per spec.md §3. The
// supervisor is its single owner; readers (C10) only ever see a Snapshot.
type Bridge struct {
	Name       string
	Identifier string
	Transport  Transport
	State      State
	LastError  *Diagnostic
	ToolList   []mcp.Tool
	StartedAt  time.Time

	client Client
}
