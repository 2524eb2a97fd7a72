package pluginrt

import (
	"encoding/json"

	"github.com/rain-1/animachat/internal/logging"
)

// Replay reconstructs epic state by folding a channel's event log through
// reducer, up to (and including) uptoMessageID, filtered by liveMessageIDs.
//
//   - uptoMessageID == nil means "replay everything".
//   - liveMessageIDs == nil means "no rollback filtering" — every event in
//     the log is applied.
//   - liveMessageIDs != nil: an event whose MessageID is absent from the
//     set is skipped (a deleted message's edit is rolled back).
//
// Replay is a pure function of (log, upto, live, reducer); it has no
// implicit side effects.
func Replay(log EventLog, uptoMessageID *string, liveMessageIDs map[string]struct{}, reducer Reducer) (json.RawMessage, error) {
	if reducer == nil {
		return nil, ErrReducerRequired
	}

	var state json.RawMessage
	for _, event := range log {
		if uptoMessageID != nil && event.MessageID > *uptoMessageID {
			break
		}
		if liveMessageIDs != nil {
			if _, live := liveMessageIDs[event.MessageID]; !live {
				continue
			}
		}

		next, err := reducer.Apply(state, event.Delta)
		if err != nil {
			return nil, err
		}
		state = next
	}

	return state, nil
}

// replayChannel loads a channel's log and replays it, logging at the
// component's category the way the rest of the store logs at CategoryStore.
func (s *Store) replayChannel(pluginID, channelID string, uptoMessageID *string, liveMessageIDs map[string]struct{}, reducer Reducer) (json.RawMessage, error) {
	log, err := s.GetEvents(pluginID, channelID)
	if err != nil {
		return nil, err
	}

	state, err := Replay(log, uptoMessageID, liveMessageIDs, reducer)
	if err != nil {
		return nil, err
	}

	logging.Get(logging.CategoryReplay).Debugw("replay", "plugin", pluginID, "channel", channelID, "events", len(log))
	return state, nil
}
