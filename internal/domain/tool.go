package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// ContentKind labels how a content block was rendered.
type ContentKind string

const (
	// ContentKindText indicates plain human-readable text.
	ContentKindText ContentKind = "text"
	// ContentKindJSON indicates pretty-printed JSON.
	ContentKindJSON ContentKind = "json"
	// ContentKindMarkdown indicates markdown, typically tabular.
	ContentKindMarkdown ContentKind = "markdown"
)

// ContentBlock is one rendered unit of a tool response.
type ContentBlock struct {
	Kind ContentKind
	Text string
}

// ToolCall is one tools/call request as seen by the dispatcher.
type ToolCall struct {
	Name      string
	Arguments json.RawMessage
}

// ToolResponse is the outcome of a dispatch. Failures are carried as
// data, never as a panic or an error crossing the protocol boundary.
type ToolResponse struct {
	Blocks     []ContentBlock
	Structured any
	IsError    bool
	Code       ErrorCode
}

// HandlerRequest carries the validated arguments and the resolved
// customer context for one tool execution.
type HandlerRequest struct {
	Args     json.RawMessage
	Customer CustomerContext
}

// Handler executes a tool against the edge platform.
type Handler func(ctx context.Context, req HandlerRequest) (any, error)

// ToolOptions tunes caching for a tool. A zero CacheTTL disables the
// cache; Coalesce collapses concurrent identical calls onto a single
// execution.
type ToolOptions struct {
	CacheTTL time.Duration
	Coalesce bool
}

// ToolDefinition binds a tool name to its schema, handler, and options.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     Handler
	Options     ToolOptions
}
