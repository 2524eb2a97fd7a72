package pluginrt

import "strings"

// RenderedEntry is a placed injection translated into the transcript's
// own entry shape. Building the caller's own entry shape is the caller's
// job; RenderedEntry is the formatted intermediate the core hands back.
type RenderedEntry struct {
	PluginID string
	AsSystem bool
	Persona  string
	Text     string
}

// RenderInjection formats a ContextInjection: a system entry is prefixed
// "System>[{pluginId}]: "; a participant entry carries the plugin's
// display persona instead. A block-list content value is inlined
// block-wise.
func RenderInjection(inj ContextInjection, persona string) RenderedEntry {
	body := renderContent(inj.Content)

	if inj.AsSystem {
		return RenderedEntry{
			PluginID: inj.PluginID,
			AsSystem: true,
			Text:     "System>[" + inj.PluginID + "]: " + body,
		}
	}

	return RenderedEntry{
		PluginID: inj.PluginID,
		AsSystem: false,
		Persona:  persona,
		Text:     body,
	}
}

func renderContent(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case []ContentBlock:
		parts := make([]string, 0, len(c))
		for _, b := range c {
			parts = append(parts, b.Text)
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}
