package pluginrt

import (
	"context"
	"encoding/json"
	"time"
)

// Blob is an opaque, plugin-defined value serialized as JSON. The core
// never interprets its contents —
// it only round-trips bytes.
type Blob json.RawMessage

// IsNil reports whether the blob carries no value.
func (b Blob) IsNil() bool { return len(b) == 0 }

// MarshalJSON/UnmarshalJSON let Blob nest transparently inside the
// channel-state envelope.
func (b Blob) MarshalJSON() ([]byte, error) {
	if len(b) == 0 {
		return []byte("null"), nil
	}
	return b, nil
}

func (b *Blob) UnmarshalJSON(data []byte) error {
	*b = append((*b)[0:0], data...)
	return nil
}

// Scope is one of the three state consistency models.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeChannel Scope = "channel"
	ScopeEpic    Scope = "epic"
)

// ChannelMetadata accompanies a channel-scoped blob.
type ChannelMetadata struct {
	LastModifiedMessageID  *string `json:"lastModifiedMessageId"`
	ParentChannelID        string  `json:"parentChannelId,omitempty"`
	HistoryOriginChannelID string  `json:"historyOriginChannelId,omitempty"`
}

// InheritanceInfo is the hint set a caller supplies so the Scope Resolver
// can walk one hop on a channel-state miss.
type InheritanceInfo struct {
	ParentChannelID        string
	HistoryOriginChannelID string
}

// StateEvent is one entry in a channel's epic event log.
type StateEvent struct {
	MessageID string          `json:"messageId"`
	Timestamp time.Time       `json:"timestamp"`
	Delta     json.RawMessage `json:"delta"`
}

// EventLog is a channel's epic-scope event history, kept sorted by
// MessageID ascending.
type EventLog []StateEvent

// Reducer folds an epic delta into accumulated state. Plugins supply one
// per activation; the core treats it as an opaque interface value so a
// plugin can implement it directly or via the ReducerFunc adapter below.
type Reducer interface {
	Apply(state json.RawMessage, delta json.RawMessage) (json.RawMessage, error)
}

// ReducerFunc adapts a plain function to the Reducer interface, the way
// http.HandlerFunc adapts a function to http.Handler.
type ReducerFunc func(state json.RawMessage, delta json.RawMessage) (json.RawMessage, error)

func (f ReducerFunc) Apply(state json.RawMessage, delta json.RawMessage) (json.RawMessage, error) {
	return f(state, delta)
}

// Anchor selects which end of the transcript a static injection's depth
// is measured from.
type Anchor string

const (
	AnchorLatest   Anchor = "latest"
	AnchorEarliest Anchor = "earliest"
)

// ContentBlock is one element of a structured injection body.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ContextInjection is authored either by a plugin's context-injection
// provider (dynamic) or by static configuration.
type ContextInjection struct {
	ID      string `json:"id"`
	Content any    `json:"content"` // string or []ContentBlock

	// TargetDepth is the depth a dynamic injection ages toward, or the
	// fixed depth of a static one.
	TargetDepth int `json:"targetDepth"`

	// LastModifiedAt is the message id this injection's content reflects.
	// Nil means the injection is "settled" at TargetDepth.
	LastModifiedAt *string `json:"lastModifiedAt,omitempty"`

	Priority int    `json:"priority"`
	AsSystem bool   `json:"asSystem"`
	Anchor   Anchor `json:"anchor,omitempty"` // empty means latest; honoured for every injection, static or dynamic

	// PluginID identifies the owning plugin for the dedup/sort namespace.
	// BuildInjections sets it on every injection a plugin's Inject hook
	// returns; static injections carry whatever the caller supplied.
	PluginID string `json:"-"`
}

// resolvedAnchor returns the injection's anchor, defaulting to latest.
func (c ContextInjection) resolvedAnchor() Anchor {
	if c.Anchor == "" {
		return AnchorLatest
	}
	return c.Anchor
}

// Property describes one JSON-schema property of a tool's input.
// Kept here only for callers that want to build a schema programmatically;
// ToolSpec itself carries its schema as raw JSON (json.RawMessage), which
// the Registry compiles with github.com/santhosh-tekuri/jsonschema/v5.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
}

// ToolHandler executes a tool call. It receives the validated input and
// the PluginInterface bound to the calling activation.
type ToolHandler func(ctx context.Context, input map[string]any, pi *PluginInterface) (*ToolResult, error)

// ToolSpec is one callable tool a plugin exposes.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     ToolHandler
}

// ToolResult is what a tool handler returns to the LLM-facing caller,
// carrying the same duration/error bookkeeping attached to every execution.
type ToolResult struct {
	ToolName   string
	Output     any
	IsError    bool
	DurationMs int64
}

// InjectionProvider is a plugin's context-injection hook.
type InjectionProvider func(pi *PluginInterface) ([]ContextInjection, error)

// PostToolHook runs after a tool handler returns successfully. A panic in
// the hook is recovered and logged, never surfaced.
type PostToolHook func(toolName string, input map[string]any, result *ToolResult, pi *PluginInterface)

// SetupHook runs once when a plugin is enabled for a channel/activation.
type SetupHook func(pi *PluginInterface) error

// PluginDescriptor is a plugin's immutable identity, loaded once at
// process start.
type PluginDescriptor struct {
	Name        string
	Description string
	Persona     string // display persona used when AsSystem is false
	Tools       []ToolSpec

	OnSetup         SetupHook
	Inject          InjectionProvider
	OnToolExecution PostToolHook
}

// Host is the narrow set of chat-platform operations passed through to
// plugins untouched. The chat-platform client itself is out
// of scope; this is its contract with the core.
type Host interface {
	SendMessage(channelID, content string) ([]string, error)
	PinMessage(channelID, messageID string) error
}
