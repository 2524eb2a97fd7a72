package pluginrt

import (
	"encoding/json"

	"github.com/rain-1/animachat/internal/config"
	"github.com/rain-1/animachat/internal/logging"
)

// ActivationContext is the per-activation frozen snapshot:
// the ordered message id sequence, the channel/message identity, and the
// inheritance hint for this activation. It does not change during one build
// of injections; UpdateMessageIDs replaces it between activations only.
type ActivationContext struct {
	idx              messageIndex
	channelID        string
	currentMessageID string
	inheritance      *InheritanceInfo
	guildID          string
	botName          string
}

// NewActivationContext snapshots an ordered (oldest-to-newest) message id
// list for one activation.
func NewActivationContext(orderedMessageIDs []string, channelID, currentMessageID string, inheritance *InheritanceInfo) *ActivationContext {
	return &ActivationContext{
		idx:              newMessageIndex(orderedMessageIDs),
		channelID:        channelID,
		currentMessageID: currentMessageID,
		inheritance:      inheritance,
	}
}

// WithHostIdentity attaches the guildId/botName fields the plugin-facing
// interface carries through untouched from the host. Both are
// optional; a direct-message activation may have no guild.
func (a *ActivationContext) WithHostIdentity(guildID, botName string) *ActivationContext {
	a.guildID = guildID
	a.botName = botName
	return a
}

// UpdateMessageIDs replaces the frozen snapshot between activations. It must never be called during one build of injections.
func (a *ActivationContext) UpdateMessageIDs(orderedMessageIDs []string) {
	a.idx = newMessageIndex(orderedMessageIDs)
}

// Factory is the Context Factory (H): it binds a plugin descriptor to one
// ActivationContext, wiring the bound PluginInterface to the Store (B/C/D)
// and the Depth Calculator (E).
type Factory struct {
	store *Store
	host  Host
}

// NewFactory creates a Context Factory over a shared State Store and the
// host operations (sendMessage/pinMessage) passed through to plugins.
func NewFactory(store *Store, host Host) *Factory {
	return &Factory{store: store, host: host}
}

// Bind produces the narrow PluginInterface a plugin's hooks and tool
// handlers receive. reducer may be nil: GetState(epic) then falls back to
// channel semantics (with a warning), SetState(epic) still records an
// event, and GetStateAtMessage returns nil.
func (f *Factory) Bind(actx *ActivationContext, desc *PluginDescriptor, reducer Reducer, pluginConfig config.PluginConfig) *PluginInterface {
	scope := pluginConfig.StateScopeOrDefault()
	return &PluginInterface{
		factory:      f,
		actx:         actx,
		pluginID:     desc.Name,
		reducer:      reducer,
		pluginConfig: pluginConfig,

		ChannelID:        actx.channelID,
		GuildID:          actx.guildID,
		CurrentMessageID: actx.currentMessageID,
		BotName:          actx.botName,
		ConfiguredScope:  Scope(scope),
		InheritanceInfo:  actx.inheritance,
	}
}

// PluginInterface is the narrow, per-activation contract a plugin author
// writes against: identity fields plus the bound state and
// messaging operations. Callers never construct one directly — only
// Factory.Bind does.
type PluginInterface struct {
	factory      *Factory
	actx         *ActivationContext
	pluginID     string
	reducer      Reducer
	pluginConfig config.PluginConfig

	ChannelID        string
	GuildID          string
	CurrentMessageID string
	BotName          string
	ConfiguredScope  Scope
	InheritanceInfo  *InheritanceInfo
}

// PluginConfig returns this plugin's configuration block, as loaded from
// the enclosing configuration value.
func (pi *PluginInterface) PluginConfig() config.PluginConfig {
	return pi.pluginConfig
}

// ContextMessageIDs exposes the frozen ordered id snapshot as a read-only
// slice; callers must not mutate the returned slice.
func (pi *PluginInterface) ContextMessageIDs() []string {
	return pi.actx.idx.ordered
}

// MessagesSinceID returns n-1-pos(id), or +Inf if id is nil or absent from
// the frozen snapshot.
func (pi *PluginInterface) MessagesSinceID(id *string) float64 {
	return pi.actx.idx.messagesSinceID(id)
}

// GetState reads state for this plugin/channel in the given scope. A channel or epic miss is a successful nil Blob, never an error.
func (pi *PluginInterface) GetState(scope Scope) (Blob, error) {
	switch scope {
	case ScopeGlobal:
		return pi.factory.store.GetGlobal(pi.pluginID)

	case ScopeEpic:
		if pi.reducer == nil {
			logging.Get(logging.CategoryFactory).Warnw("getState(epic) without a reducer, falling back to channel semantics", "plugin", pi.pluginID, "channel", pi.ChannelID)
			blob, _, err := pi.factory.store.GetChannel(pi.pluginID, pi.ChannelID, pi.InheritanceInfo)
			return blob, err
		}
		state, err := pi.factory.store.replayChannel(pi.pluginID, pi.ChannelID, nil, pi.actx.idx.liveSet(), pi.reducer)
		if err != nil {
			return nil, err
		}
		return Blob(state), nil

	default: // channel
		blob, _, err := pi.factory.store.GetChannel(pi.pluginID, pi.ChannelID, pi.InheritanceInfo)
		return blob, err
	}
}

// SetState writes state for this plugin/channel in the given scope.
// Channel writes record CurrentMessageID as lastModified; epic writes
// append an event at CurrentMessageID regardless of whether a reducer
// was supplied.
func (pi *PluginInterface) SetState(scope Scope, v Blob) error {
	switch scope {
	case ScopeGlobal:
		return pi.factory.store.SetGlobal(pi.pluginID, v)

	case ScopeEpic:
		event := StateEvent{
			MessageID: pi.CurrentMessageID,
			Delta:     json.RawMessage(v),
		}
		return pi.factory.store.AppendOrReplaceEvent(pi.pluginID, pi.ChannelID, event)

	default: // channel
		msgID := pi.CurrentMessageID
		return pi.factory.store.SetChannel(pi.pluginID, pi.ChannelID, v, &msgID)
	}
}

// GetStateAtMessage replays epic state up to id, filtered by the frozen
// contextMessageIds snapshot. Requires a reducer; without
// one it logs a warning and returns a nil state.
func (pi *PluginInterface) GetStateAtMessage(id string) (Blob, error) {
	if pi.reducer == nil {
		logging.Get(logging.CategoryFactory).Warnw("getStateAtMessage without a reducer", "plugin", pi.pluginID, "channel", pi.ChannelID)
		return nil, nil
	}
	upto := id
	state, err := pi.factory.store.replayChannel(pi.pluginID, pi.ChannelID, &upto, pi.actx.idx.liveSet(), pi.reducer)
	if err != nil {
		return nil, err
	}
	return Blob(state), nil
}

// SendMessage delegates to the host untouched.
func (pi *PluginInterface) SendMessage(content string) ([]string, error) {
	return pi.factory.host.SendMessage(pi.ChannelID, content)
}

// PinMessage delegates to the host untouched.
func (pi *PluginInterface) PinMessage(messageID string) error {
	return pi.factory.host.PinMessage(pi.ChannelID, messageID)
}

// liveSet derives the frozen snapshot's id set for rollback filtering; the
// set is equivalent to "every message the activation currently knows about
// is live".
func (idx messageIndex) liveSet() map[string]struct{} {
	out := make(map[string]struct{}, len(idx.ordered))
	for _, id := range idx.ordered {
		out[id] = struct{}{}
	}
	return out
}
