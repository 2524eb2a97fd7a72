package pluginrt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rain-1/animachat/internal/logging"
)

// Dispatcher is the Tool Dispatcher: it validates a tool
// call's input against the declared schema, routes to the plugin's
// handler, and runs the post-execution hook.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher builds a dispatcher over a populated Registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch looks up the plugin and tool, validates rawInput against the
// tool's compiled schema, invokes the handler, and runs the post-execution
// hook. rawInput is decoded and validated before the handler ever sees it.
func (d *Dispatcher) Dispatch(ctx context.Context, pluginName, toolName string, rawInput json.RawMessage, pi *PluginInterface) (*ToolResult, error) {
	desc := d.registry.Get(pluginName)
	if desc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, pluginName)
	}

	var tool *ToolSpec
	for i := range desc.Tools {
		if desc.Tools[i].Name == toolName {
			tool = &desc.Tools[i]
			break
		}
	}
	if tool == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownTool, pluginName, toolName)
	}

	input, err := d.validateInput(pluginName, toolName, rawInput)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := func() (res *ToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panicked: %v", r)
			}
		}()
		return tool.Handler(ctx, input, pi)
	}()
	duration := time.Since(start).Milliseconds()

	if err != nil {
		logging.Get(logging.CategoryDispatcher).Errorw("tool handler failed", "plugin", pluginName, "tool", toolName, "error", err)
		return nil, &ToolExecutionError{PluginName: pluginName, ToolName: toolName, Err: err}
	}
	if result == nil {
		result = &ToolResult{}
	}
	result.ToolName = toolName
	result.DurationMs = duration

	if desc.OnToolExecution != nil {
		d.runPostHook(desc, toolName, input, result, pi)
	}

	return result, nil
}

// validateInput decodes and schema-validates a tool call's raw input
//. A missing required property or wrong-typed value
// surfaces as ErrInvalidInput without ever invoking the handler.
func (d *Dispatcher) validateInput(pluginName, toolName string, rawInput json.RawMessage) (map[string]any, error) {
	if len(rawInput) == 0 {
		rawInput = json.RawMessage(`{}`)
	}

	var decoded any
	if err := json.Unmarshal(rawInput, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: malformed input: %v", ErrInvalidInput, pluginName, toolName, err)
	}

	schema := d.registry.Schema(pluginName, toolName)
	if schema != nil {
		if err := schema.Validate(decoded); err != nil {
			return nil, fmt.Errorf("%w: %s/%s: %v", ErrInvalidInput, pluginName, toolName, err)
		}
	}

	input, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s: input must be a JSON object", ErrInvalidInput, pluginName, toolName)
	}
	return input, nil
}

// runPostHook invokes the plugin's post-execution callback. A panic from the hook is recovered and logged, never surfaced — it
// must not alter a tool result that already succeeded.
func (d *Dispatcher) runPostHook(desc *PluginDescriptor, toolName string, input map[string]any, result *ToolResult, pi *PluginInterface) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryDispatcher).Errorw("onToolExecution panicked", "plugin", desc.Name, "tool", toolName, "panic", r)
		}
	}()
	desc.OnToolExecution(toolName, input, result, pi)
}
