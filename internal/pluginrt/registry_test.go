package pluginrt

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func noopHandler(ctx context.Context, input map[string]any, pi *PluginInterface) (*ToolResult, error) {
	return &ToolResult{Output: "ok"}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	desc := &PluginDescriptor{
		Name:        "notes",
		Description: "keeps notes",
		Tools: []ToolSpec{
			{Name: "add", Description: "add a note", InputSchema: json.RawMessage(`{"type":"object"}`), Handler: noopHandler},
		},
	}
	require.NoError(t, r.Register(desc))
	require.Same(t, desc, r.Get("notes"))
	require.Equal(t, []string{"notes"}, r.Names())
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	desc := &PluginDescriptor{Name: "notes", Description: "d"}
	require.NoError(t, r.Register(desc))
	require.ErrorIs(t, r.Register(desc), ErrDuplicatePlugin)
}

func TestRegistryRejectsDuplicateToolName(t *testing.T) {
	r := NewRegistry()
	desc := &PluginDescriptor{
		Name:        "notes",
		Description: "d",
		Tools: []ToolSpec{
			{Name: "add", Description: "d1", Handler: noopHandler},
			{Name: "add", Description: "d2", Handler: noopHandler},
		},
	}
	require.ErrorIs(t, r.Register(desc), ErrInvalidIdentifier)
}

func TestRegistryRejectsMalformedSchema(t *testing.T) {
	r := NewRegistry()
	desc := &PluginDescriptor{
		Name:        "notes",
		Description: "d",
		Tools: []ToolSpec{
			{Name: "add", Description: "d", InputSchema: json.RawMessage(`{"type": }`), Handler: noopHandler},
		},
	}
	require.ErrorIs(t, r.Register(desc), ErrInvalidIdentifier)
}

func TestRegistryEnabledRejectsUnknownName(t *testing.T) {
	r := NewRegistry()
	_, err := r.Enabled([]string{"ghost"})
	require.ErrorIs(t, err, ErrUnknownPlugin)
}

func TestRegistryEnabledResolvesKnownNames(t *testing.T) {
	r := NewRegistry()
	desc := &PluginDescriptor{Name: "notes", Description: "d"}
	require.NoError(t, r.Register(desc))

	descs, err := r.Enabled([]string{"notes"})
	require.NoError(t, err)
	require.Len(t, descs, 1)
	require.Same(t, desc, descs[0])
}
