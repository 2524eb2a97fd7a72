package pluginrt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rain-1/animachat/internal/config"
	"github.com/rain-1/animachat/internal/logging"
)

// Runtime composes the Registry, Store, Factory, and Dispatcher into the
// single object an LLM-facing orchestrator drives. It adds no semantics of its own beyond wiring.
type Runtime struct {
	cfg      *config.Config
	registry *Registry
	store    *Store
	factory  *Factory
	dispatch *Dispatcher

	reducers map[string]Reducer // pluginName -> epic reducer, if any
}

// New builds a Runtime rooted at cfg.CacheDir, talking to the chat
// platform through host.
func New(cfg *config.Config, host Host) *Runtime {
	registry := NewRegistry()
	store := NewStore(cfg.CacheDir)
	return &Runtime{
		cfg:      cfg,
		registry: registry,
		store:    store,
		factory:  NewFactory(store, host),
		dispatch: NewDispatcher(registry),
		reducers: map[string]Reducer{},
	}
}

// Register loads a plugin descriptor into the registry.
// reducer may be nil for plugins with no epic-scoped state.
func (rt *Runtime) Register(desc *PluginDescriptor, reducer Reducer) error {
	if err := rt.registry.Register(desc); err != nil {
		return err
	}
	if reducer != nil {
		rt.reducers[desc.Name] = reducer
	}
	return nil
}

// EnabledPlugins resolves the configured enabledPlugins list.
func (rt *Runtime) EnabledPlugins() ([]*PluginDescriptor, error) {
	return rt.registry.Enabled(rt.cfg.EnabledPlugins)
}

// Activation is one bound plugin instance for the current channel/message,
// ready to be asked for injections or to dispatch a tool call.
type Activation struct {
	desc *PluginDescriptor
	pi   *PluginInterface
}

// Activate binds every enabled plugin to actx, running each plugin's
// OnSetup hook exactly once per binding.
func (rt *Runtime) Activate(actx *ActivationContext) ([]*Activation, error) {
	descs, err := rt.EnabledPlugins()
	if err != nil {
		return nil, err
	}

	out := make([]*Activation, 0, len(descs))
	for _, desc := range descs {
		pluginConfig := rt.cfg.ForPlugin(desc.Name)
		pi := rt.factory.Bind(actx, desc, rt.reducers[desc.Name], pluginConfig)

		if desc.OnSetup != nil {
			if err := desc.OnSetup(pi); err != nil {
				logging.Get(logging.CategoryFactory).Warnw("plugin setup failed", "plugin", desc.Name, "error", err)
				continue
			}
		}

		out = append(out, &Activation{desc: desc, pi: pi})
	}
	return out, nil
}

// BuildInjections asks every activation for its context injections and
// places them into transcript via the Placer. A single
// plugin's failing Inject hook is logged and skipped — it must not abort
// the whole build.
func BuildInjections[T any](activations []*Activation, transcript []T, orderedMessageIDs []string, staticInjections []ContextInjection, render func(ContextInjection) T) []T {
	idx := newMessageIndex(orderedMessageIDs)
	collected := make([]ContextInjection, 0, len(staticInjections))
	collected = append(collected, staticInjections...)

	for _, act := range activations {
		if act.desc.Inject == nil {
			continue
		}
		injections, err := act.desc.Inject(act.pi)
		if err != nil {
			logging.Get(logging.CategoryInject).Warnw("plugin injection provider failed", "plugin", act.desc.Name, "error", err)
			continue
		}
		for i := range injections {
			injections[i].PluginID = act.desc.Name
		}
		collected = append(collected, injections...)
	}

	return Place(transcript, collected, idx, render)
}

// DispatchTool routes one tool call to the matching activation. The caller supplies the activation already bound for this plugin.
func (rt *Runtime) DispatchTool(ctx context.Context, act *Activation, toolName string, rawInput json.RawMessage) (*ToolResult, error) {
	return rt.dispatch.Dispatch(ctx, act.desc.Name, toolName, rawInput, act.pi)
}

// Interface exposes the bound PluginInterface of an activation, for callers
// (such as a CLI demo) that need direct state access outside a tool call.
func (a *Activation) Interface() *PluginInterface {
	return a.pi
}

// Descriptor exposes the activation's plugin descriptor.
func (a *Activation) Descriptor() *PluginDescriptor {
	return a.desc
}

// Store exposes the Runtime's State Store for callers that need to seed or
// inspect state directly (e.g. a demo harness priming a parent channel).
func (rt *Runtime) Store() *Store {
	return rt.store
}

// Registry exposes the Runtime's Plugin Registry.
func (rt *Runtime) Registry() *Registry {
	return rt.registry
}

// Fork copies the parent channel's epic log, up to and including
// uptoMessageID, into the child channel via ForkEvents. It writes no
// channel-scope state or metadata for the child.
func (rt *Runtime) Fork(pluginID, fromChannelID, toChannelID, uptoMessageID string) error {
	if err := rt.store.ForkEvents(pluginID, fromChannelID, toChannelID, uptoMessageID); err != nil {
		return fmt.Errorf("fork epic log: %w", err)
	}
	return nil
}
