package pluginrt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/rain-1/animachat/internal/logging"
)

// Registry is the Plugin Registry: a startup-time map from
// short name to PluginDescriptor — a mutex-guarded map
// with validate-then-insert semantics.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]*PluginDescriptor
	schemas map[string]map[string]*jsonschema.Schema // pluginName -> toolName -> compiled schema
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: map[string]*PluginDescriptor{},
		schemas: map[string]map[string]*jsonschema.Schema{},
	}
}

// Register validates and adds a plugin descriptor. Two descriptors with
// the same name fail with ErrDuplicatePlugin.
func (r *Registry) Register(desc *PluginDescriptor) error {
	compiled, err := r.validate(desc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[desc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, desc.Name)
	}

	r.plugins[desc.Name] = desc
	r.schemas[desc.Name] = compiled

	logging.Get(logging.CategoryRegistry).Debugw("registered plugin", "name", desc.Name, "tools", len(desc.Tools))
	return nil
}

// validate checks a plugin descriptor's invariants: every tool has a
// unique name within the plugin, a non-empty description, and a
// well-formed input schema. The schema is compiled once here via
// santhosh-tekuri/jsonschema/v5 — compiling at registration time means a
// malformed schema fails fast at startup rather than on the first tool
// call.
func (r *Registry) validate(desc *PluginDescriptor) (map[string]*jsonschema.Schema, error) {
	if desc.Name == "" {
		return nil, fmt.Errorf("%w: plugin has no name", ErrInvalidIdentifier)
	}

	seen := map[string]bool{}
	compiled := map[string]*jsonschema.Schema{}

	for _, tool := range desc.Tools {
		if tool.Name == "" {
			return nil, fmt.Errorf("%w: plugin %s has a tool with no name", ErrInvalidIdentifier, desc.Name)
		}
		if seen[tool.Name] {
			return nil, fmt.Errorf("%w: plugin %s declares tool %q twice", ErrInvalidIdentifier, desc.Name, tool.Name)
		}
		seen[tool.Name] = true

		if tool.Description == "" {
			return nil, fmt.Errorf("%w: tool %s/%s has no description", ErrInvalidIdentifier, desc.Name, tool.Name)
		}
		if tool.Handler == nil {
			return nil, fmt.Errorf("%w: tool %s/%s has no handler", ErrInvalidIdentifier, desc.Name, tool.Name)
		}

		schema, err := compileSchema(desc.Name, tool.Name, tool.InputSchema)
		if err != nil {
			return nil, err
		}
		compiled[tool.Name] = schema
	}

	return compiled, nil
}

func compileSchema(pluginName, toolName string, raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	url := fmt.Sprintf("tool://%s/%s", pluginName, toolName)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: malformed schema: %v", ErrInvalidIdentifier, pluginName, toolName, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrInvalidIdentifier, pluginName, toolName, err)
	}
	return schema, nil
}

// Get returns a plugin descriptor by name, or nil if unknown.
func (r *Registry) Get(name string) *PluginDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plugins[name]
}

// Schema returns the compiled input schema for one of a plugin's tools.
func (r *Registry) Schema(pluginName, toolName string) *jsonschema.Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schemas[pluginName][toolName]
}

// Names returns all registered plugin short names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enabled resolves a configuration's enabledPlugins list into descriptors.
// An unknown name fails with ErrUnknownPlugin.
func (r *Registry) Enabled(names []string) ([]*PluginDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*PluginDescriptor, 0, len(names))
	for _, name := range names {
		desc, ok := r.plugins[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
		}
		out = append(out, desc)
	}
	return out, nil
}
