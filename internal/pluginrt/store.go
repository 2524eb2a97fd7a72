package pluginrt

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rain-1/animachat/internal/logging"
)

// channelState bundles a channel's blob and its metadata. They are
// written atomically, so the cache always holds both together under one
// entry.
type channelState struct {
	blob Blob
	meta ChannelMetadata
}

// pluginCache is the per-plugin in-memory cache: the global blob, a
// channelId→(blob,metadata) map, and a channelId→EventLog map. Cache
// misses on a field mean "not yet loaded from disk", distinct from
// "loaded, and absent".
type pluginCache struct {
	mu sync.RWMutex

	globalLoaded bool
	global       Blob

	channels map[string]channelState // nil entry is not valid; absence means not loaded
	events   map[string]EventLog
}

// Store is the File-backed, in-memory-cached State Store.
// It is process-singleton: its caches are shared across activations, and
// it owns every file under cacheDir/plugins/....
type Store struct {
	cacheDir string

	mu     sync.Mutex
	caches map[string]*pluginCache
}

// NewStore creates a State Store rooted at cacheDir.
func NewStore(cacheDir string) *Store {
	return &Store{
		cacheDir: cacheDir,
		caches:   map[string]*pluginCache{},
	}
}

func (s *Store) cacheFor(pluginID string) *pluginCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.caches[pluginID]
	if !ok {
		c = &pluginCache{channels: map[string]channelState{}, events: map[string]EventLog{}}
		s.caches[pluginID] = c
	}
	return c
}

// ---- global scope ----

// GetGlobal returns the plugin's global blob, or a nil Blob if none has
// ever been written. A missing file is not an error.
func (s *Store) GetGlobal(pluginID string) (Blob, error) {
	c := s.cacheFor(pluginID)

	c.mu.RLock()
	if c.globalLoaded {
		b := c.global
		c.mu.RUnlock()
		return b, nil
	}
	c.mu.RUnlock()

	path, err := pathFor(s.cacheDir, pluginID, ScopeGlobal, "")
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			c.globalLoaded = true
			c.global = nil
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrIOFailure, path, err)
	}

	var blob Blob
	if err := blob.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptData, path, err)
	}
	c.globalLoaded = true
	c.global = blob
	return blob, nil
}

// SetGlobal writes the plugin's global blob.
func (s *Store) SetGlobal(pluginID string, blob Blob) error {
	path, err := pathFor(s.cacheDir, pluginID, ScopeGlobal, "")
	if err != nil {
		return err
	}

	if err := writeJSONAtomic(path, blob); err != nil {
		return err
	}

	c := s.cacheFor(pluginID)
	c.mu.Lock()
	c.globalLoaded = true
	c.global = blob
	c.mu.Unlock()

	logging.Get(logging.CategoryStore).Debugw("setGlobal", "plugin", pluginID)
	return nil
}

// ---- channel scope ----

// channelFileEnvelope is the on-disk shape of a channel-scoped state file.
type channelFileEnvelope struct {
	State    Blob            `json:"state"`
	Metadata ChannelMetadata `json:"metadata"`
}

// getChannelRaw loads a channel's own state, without consulting
// inheritance. The bool return is false when no state exists for this
// channel specifically (cache miss and file absent).
func (s *Store) getChannelRaw(pluginID, channelID string) (Blob, ChannelMetadata, bool, error) {
	c := s.cacheFor(pluginID)

	c.mu.RLock()
	if cs, ok := c.channels[channelID]; ok {
		blob, meta := cs.blob, cs.meta
		c.mu.RUnlock()
		return blob, meta, true, nil
	}
	c.mu.RUnlock()

	path, err := pathFor(s.cacheDir, pluginID, ScopeChannel, channelID)
	if err != nil {
		return nil, ChannelMetadata{}, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ChannelMetadata{}, false, nil
		}
		return nil, ChannelMetadata{}, false, fmt.Errorf("%w: read %s: %v", ErrIOFailure, path, err)
	}

	var env channelFileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ChannelMetadata{}, false, fmt.Errorf("%w: %s: %v", ErrCorruptData, path, err)
	}

	c.mu.Lock()
	c.channels[channelID] = channelState{blob: env.State, meta: env.Metadata}
	c.mu.Unlock()

	return env.State, env.Metadata, true, nil
}

// GetChannel returns a channel's blob and metadata, consulting
// inheritance on a miss.
func (s *Store) GetChannel(pluginID, channelID string, inheritance *InheritanceInfo) (Blob, ChannelMetadata, error) {
	blob, meta, found, err := s.getChannelRaw(pluginID, channelID)
	if err != nil {
		return nil, ChannelMetadata{}, err
	}
	if found {
		return blob, meta, nil
	}

	return s.resolveInherited(pluginID, inheritance)
}

// SetChannel writes a channel's blob, recording messageID as the new
// lastModifiedMessageId. The written metadata holds only that id:
// parentChannelId/historyOriginChannelId hints are not carried into the
// file or the cache. Writing creates the channel's own physical file and
// never touches a parent's file, so inheritance stays read-only and
// one-shot.
func (s *Store) SetChannel(pluginID, channelID string, blob Blob, messageID *string) error {
	path, err := pathFor(s.cacheDir, pluginID, ScopeChannel, channelID)
	if err != nil {
		return err
	}

	meta := ChannelMetadata{LastModifiedMessageID: messageID}

	env := channelFileEnvelope{State: blob, Metadata: meta}
	if err := writeJSONAtomic(path, env); err != nil {
		return err
	}

	c := s.cacheFor(pluginID)
	c.mu.Lock()
	c.channels[channelID] = channelState{blob: blob, meta: meta}
	c.mu.Unlock()

	logging.Get(logging.CategoryStore).Debugw("setChannel", "plugin", pluginID, "channel", channelID)
	return nil
}

// ---- epic scope ----

// GetEvents returns a channel's epic event log, sorted by MessageID.
func (s *Store) GetEvents(pluginID, channelID string) (EventLog, error) {
	c := s.cacheFor(pluginID)

	c.mu.RLock()
	if log, ok := c.events[channelID]; ok {
		out := make(EventLog, len(log))
		copy(out, log)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	path, err := pathFor(s.cacheDir, pluginID, ScopeEpic, channelID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.mu.Lock()
			c.events[channelID] = EventLog{}
			c.mu.Unlock()
			return EventLog{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrIOFailure, path, err)
	}

	var log EventLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptData, path, err)
	}
	sortEvents(log)

	c.mu.Lock()
	c.events[channelID] = log
	c.mu.Unlock()

	out := make(EventLog, len(log))
	copy(out, log)
	return out, nil
}

// AppendOrReplaceEvent inserts an event, replacing any existing event for
// the same messageId), and keeps the on-disk log sorted.
func (s *Store) AppendOrReplaceEvent(pluginID, channelID string, event StateEvent) error {
	log, err := s.GetEvents(pluginID, channelID)
	if err != nil {
		return err
	}

	replaced := false
	for i := range log {
		if log[i].MessageID == event.MessageID {
			log[i] = event
			replaced = true
			break
		}
	}
	if !replaced {
		log = append(log, event)
	}
	sortEvents(log)

	if err := s.persistEvents(pluginID, channelID, log); err != nil {
		return err
	}

	logging.Get(logging.CategoryStore).Debugw("appendOrReplaceEvent", "plugin", pluginID, "channel", channelID, "messageId", event.MessageID, "replaced", replaced)
	return nil
}

// ForkEvents copies every event with MessageID <= uptoMessageID from the
// parent channel's log into the child's log. Subsequent
// writes to either log diverge independently.
func (s *Store) ForkEvents(pluginID, fromChannelID, toChannelID, uptoMessageID string) error {
	parentLog, err := s.GetEvents(pluginID, fromChannelID)
	if err != nil {
		return err
	}

	var forked EventLog
	for _, ev := range parentLog {
		if ev.MessageID <= uptoMessageID {
			forked = append(forked, ev)
		}
	}
	if forked == nil {
		forked = EventLog{}
	}

	if err := s.persistEvents(pluginID, toChannelID, forked); err != nil {
		return err
	}

	logging.Get(logging.CategoryStore).Debugw("forkEvents", "plugin", pluginID, "from", fromChannelID, "to", toChannelID, "upto", uptoMessageID, "count", len(forked))
	return nil
}

func (s *Store) persistEvents(pluginID, channelID string, log EventLog) error {
	path, err := pathFor(s.cacheDir, pluginID, ScopeEpic, channelID)
	if err != nil {
		return err
	}
	if err := writeJSONAtomic(path, log); err != nil {
		return err
	}

	c := s.cacheFor(pluginID)
	c.mu.Lock()
	out := make(EventLog, len(log))
	copy(out, log)
	c.events[channelID] = out
	c.mu.Unlock()
	return nil
}

func sortEvents(log EventLog) {
	sort.Slice(log, func(i, j int) bool { return log[i].MessageID < log[j].MessageID })
}

// writeJSONAtomic serializes v and writes it to path via a temp sibling
// plus rename, the same atomic-write idiom used for other generated
// fact files. Every state write needs this so a mid-write crash cannot
// corrupt a blob or break the epic log's sorted invariant.
func writeJSONAtomic(path string, v any) error {
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("%w: mkdir for %s: %v", ErrIOFailure, path, err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrIOFailure, path, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("%w: write temp %s: %v", ErrIOFailure, tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rename %s: %v", ErrIOFailure, path, err)
	}

	return nil
}
