// Package notes is a worked-example plugin exercising a dynamic context
// injection, a schema-validated tool, an epic-scoped reducer, and a
// post-execution hook; it has no setup hook. It is not wired into any production plugin list — demo-only.
package notes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rain-1/animachat/internal/pluginrt"
)

const pluginName = "notes"

type noteState struct {
	Notes []string `json:"notes"`
}

// Reducer folds an "add"/"clear" delta into accumulated note state,
// satisfying pluginrt.Reducer for epic-scoped replay.
func Reducer() pluginrt.Reducer {
	return pluginrt.ReducerFunc(func(state, delta json.RawMessage) (json.RawMessage, error) {
		var s noteState
		if len(state) > 0 {
			if err := json.Unmarshal(state, &s); err != nil {
				return nil, err
			}
		}

		var d struct {
			Op   string `json:"op"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(delta, &d); err != nil {
			return nil, err
		}

		switch d.Op {
		case "add":
			s.Notes = append(s.Notes, d.Text)
		case "clear":
			s.Notes = nil
		}

		return json.Marshal(s)
	})
}

var addSchema = json.RawMessage(`{
	"type": "object",
	"required": ["text"],
	"properties": {
		"text": {"type": "string"}
	}
}`)

func addHandler(ctx context.Context, input map[string]any, pi *pluginrt.PluginInterface) (*pluginrt.ToolResult, error) {
	text, _ := input["text"].(string)
	delta, err := json.Marshal(map[string]string{"op": "add", "text": text})
	if err != nil {
		return nil, err
	}
	if err := pi.SetState(pluginrt.ScopeEpic, pluginrt.Blob(delta)); err != nil {
		return nil, err
	}
	return &pluginrt.ToolResult{Output: fmt.Sprintf("noted: %s", text)}, nil
}

// Descriptor builds the plugin descriptor. Callers register it with a
// Runtime alongside Reducer() for this plugin's epic state.
func Descriptor() *pluginrt.PluginDescriptor {
	return &pluginrt.PluginDescriptor{
		Name:        pluginName,
		Description: "keeps a running list of notes per channel",
		Persona:     "Notekeeper",
		Tools: []pluginrt.ToolSpec{
			{
				Name:        "add_note",
				Description: "append a note to this channel's list",
				InputSchema: addSchema,
				Handler:     addHandler,
			},
		},
		Inject: func(pi *pluginrt.PluginInterface) ([]pluginrt.ContextInjection, error) {
			state, err := pi.GetState(pluginrt.ScopeEpic)
			if err != nil || state.IsNil() {
				return nil, err
			}
			var s noteState
			if err := json.Unmarshal(state, &s); err != nil {
				return nil, err
			}
			if len(s.Notes) == 0 {
				return nil, nil
			}
			return []pluginrt.ContextInjection{{
				ID:          "current-notes",
				Content:     fmt.Sprintf("%d note(s) on file", len(s.Notes)),
				TargetDepth: 2,
				AsSystem:    true,
			}}, nil
		},
		OnToolExecution: func(toolName string, input map[string]any, result *pluginrt.ToolResult, pi *pluginrt.PluginInterface) {
			// demo-only hook point; a real plugin might emit telemetry here.
		},
	}
}
