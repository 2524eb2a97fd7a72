// Package inject is a configuration-driven static-injection plugin:
// it turns a pluginConfig.injections list into ContextInjection values
// with no state of its own.
package inject

import (
	"github.com/rain-1/animachat/internal/config"
	"github.com/rain-1/animachat/internal/pluginrt"
)

const pluginName = "inject"

// Descriptor builds the static-injection plugin descriptor. It carries no
// tools and no state; its only hook turns the configured InjectionConfig
// list into ContextInjections.
func Descriptor() *pluginrt.PluginDescriptor {
	return &pluginrt.PluginDescriptor{
		Name:        pluginName,
		Description: "injects static, configuration-authored context fragments",
		Inject: func(pi *pluginrt.PluginInterface) ([]pluginrt.ContextInjection, error) {
			return FromConfig(pi.PluginConfig().Injections), nil
		},
	}
}

// FromConfig converts a parsed configuration's injections list into
// ContextInjection values, defaulting anchor to latest and priority to 0.
func FromConfig(entries []config.InjectionConfig) []pluginrt.ContextInjection {
	out := make([]pluginrt.ContextInjection, 0, len(entries))
	for _, e := range entries {
		anchor := pluginrt.AnchorLatest
		if e.Anchor == string(pluginrt.AnchorEarliest) {
			anchor = pluginrt.AnchorEarliest
		}
		out = append(out, pluginrt.ContextInjection{
			ID:          e.ID,
			Content:     e.Content,
			TargetDepth: e.Depth,
			Priority:    e.Priority,
			Anchor:      anchor,
		})
	}
	return out
}
