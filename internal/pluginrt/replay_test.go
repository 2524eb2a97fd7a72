package pluginrt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func sumReducer() Reducer {
	return ReducerFunc(func(state, delta json.RawMessage) (json.RawMessage, error) {
		var acc int
		if len(state) > 0 {
			if err := json.Unmarshal(state, &acc); err != nil {
				return nil, err
			}
		}
		var d int
		if err := json.Unmarshal(delta, &d); err != nil {
			return nil, err
		}
		acc += d
		return json.Marshal(acc)
	})
}

func TestReplayFiltersByLiveSet(t *testing.T) {
	log := EventLog{
		{MessageID: "m1", Delta: json.RawMessage(`1`)},
		{MessageID: "m2", Delta: json.RawMessage(`1`)},
		{MessageID: "m3", Delta: json.RawMessage(`1`)},
	}

	live := map[string]struct{}{"m1": {}, "m3": {}}
	state, err := Replay(log, nil, live, sumReducer())
	require.NoError(t, err)
	require.JSONEq(t, `2`, string(state))

	all := map[string]struct{}{"m1": {}, "m2": {}, "m3": {}}
	state, err = Replay(log, nil, all, sumReducer())
	require.NoError(t, err)
	require.JSONEq(t, `3`, string(state))
}

func TestReplayWithUpto(t *testing.T) {
	log := EventLog{
		{MessageID: "m1", Delta: json.RawMessage(`1`)},
		{MessageID: "m2", Delta: json.RawMessage(`1`)},
		{MessageID: "m3", Delta: json.RawMessage(`1`)},
	}

	upto := "m2"
	state, err := Replay(log, &upto, nil, sumReducer())
	require.NoError(t, err)
	require.JSONEq(t, `2`, string(state))
}

func TestReplayRequiresReducer(t *testing.T) {
	_, err := Replay(EventLog{}, nil, nil, nil)
	require.ErrorIs(t, err, ErrReducerRequired)
}

func TestReplayIsDeterministic(t *testing.T) {
	log := EventLog{
		{MessageID: "m1", Delta: json.RawMessage(`1`)},
		{MessageID: "m2", Delta: json.RawMessage(`2`)},
	}

	s1, err := Replay(log, nil, nil, sumReducer())
	require.NoError(t, err)
	s2, err := Replay(log, nil, nil, sumReducer())
	require.NoError(t, err)
	require.Equal(t, string(s1), string(s2))
}

func TestForkThenReplayMatchesParentUpToFork(t *testing.T) {
	s := NewStore(t.TempDir())

	for i, id := range []string{"m1", "m2", "m3"} {
		_ = i
		require.NoError(t, s.AppendOrReplaceEvent("counter", "parent", StateEvent{MessageID: id, Delta: json.RawMessage(`1`)}))
	}
	require.NoError(t, s.ForkEvents("counter", "parent", "thread", "m2"))

	parentState, err := s.replayChannel("counter", "parent", strPtr("m2"), nil, sumReducer())
	require.NoError(t, err)
	threadState, err := s.replayChannel("counter", "thread", nil, nil, sumReducer())
	require.NoError(t, err)
	require.JSONEq(t, string(parentState), string(threadState))
}

func strPtr(s string) *string { return &s }
