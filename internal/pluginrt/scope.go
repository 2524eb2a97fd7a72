package pluginrt

import "github.com/rain-1/animachat/internal/logging"

// resolveInherited is the Scope Resolver: on a channel-state
// miss, it applies the one-hop inheritance rule — historyOriginChannelId
// first, then parentChannelId, else a clean miss. Inheritance is
// read-only and one-shot: the returned blob is always a value copy, never
// a live reference into the parent's cache entry, so a later write on the
// child cannot alias into the parent.
func (s *Store) resolveInherited(pluginID string, inheritance *InheritanceInfo) (Blob, ChannelMetadata, error) {
	if inheritance == nil {
		return nil, ChannelMetadata{LastModifiedMessageID: nil}, nil
	}

	log := logging.Get(logging.CategoryScope)

	if inheritance.HistoryOriginChannelID != "" {
		blob, meta, found, err := s.getChannelRaw(pluginID, inheritance.HistoryOriginChannelID)
		if err != nil {
			return nil, ChannelMetadata{}, err
		}
		if found {
			log.Debugw("inherited via historyOrigin", "plugin", pluginID, "from", inheritance.HistoryOriginChannelID)
			return copyBlob(blob), ChannelMetadata{
				LastModifiedMessageID:  meta.LastModifiedMessageID,
				HistoryOriginChannelID: inheritance.HistoryOriginChannelID,
			}, nil
		}
	}

	if inheritance.ParentChannelID != "" {
		blob, meta, found, err := s.getChannelRaw(pluginID, inheritance.ParentChannelID)
		if err != nil {
			return nil, ChannelMetadata{}, err
		}
		if found {
			log.Debugw("inherited via parent", "plugin", pluginID, "from", inheritance.ParentChannelID)
			return copyBlob(blob), ChannelMetadata{
				LastModifiedMessageID: meta.LastModifiedMessageID,
				ParentChannelID:       inheritance.ParentChannelID,
			}, nil
		}
	}

	return nil, ChannelMetadata{LastModifiedMessageID: nil}, nil
}

func copyBlob(b Blob) Blob {
	if b == nil {
		return nil
	}
	out := make(Blob, len(b))
	copy(out, b)
	return out
}
