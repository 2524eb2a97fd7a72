package pluginrt

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobalRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	got, err := s.GetGlobal("notes")
	require.NoError(t, err)
	require.True(t, got.IsNil())

	want := Blob(`{"count":5}`)
	require.NoError(t, s.SetGlobal("notes", want))

	got, err = s.GetGlobal("notes")
	require.NoError(t, err)
	require.JSONEq(t, string(want), string(got))
}

func TestGlobalRoundTripAfterCacheEviction(t *testing.T) {
	dir := t.TempDir()
	s1 := NewStore(dir)
	require.NoError(t, s1.SetGlobal("notes", Blob(`{"count":1}`)))

	s2 := NewStore(dir)
	got, err := s2.GetGlobal("notes")
	require.NoError(t, err)
	require.JSONEq(t, `{"count":1}`, string(got))
}

func TestChannelRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	blob, meta, err := s.GetChannel("notes", "chan-1", nil)
	require.NoError(t, err)
	require.True(t, blob.IsNil())
	require.Nil(t, meta.LastModifiedMessageID)

	msgID := "m1"
	require.NoError(t, s.SetChannel("notes", "chan-1", Blob(`{"counter":6}`), &msgID))

	blob, meta, err = s.GetChannel("notes", "chan-1", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"counter":6}`, string(blob))
	require.Equal(t, "m1", *meta.LastModifiedMessageID)
}

func TestChannelStateFileEnvelopeShape(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	msgID := "m1"
	require.NoError(t, s.SetChannel("notes", "chan-1", Blob(`{"counter":6}`), &msgID))

	path, err := pathFor(dir, "notes", ScopeChannel, "chan-1")
	require.NoError(t, err)

	var env channelFileEnvelope
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &env))
	require.JSONEq(t, `{"counter":6}`, string(env.State))
	require.Equal(t, "m1", *env.Metadata.LastModifiedMessageID)
}

func TestEventsAppendAndReplace(t *testing.T) {
	s := NewStore(t.TempDir())

	require.NoError(t, s.AppendOrReplaceEvent("counter", "chan-1", StateEvent{MessageID: "m2", Delta: json.RawMessage(`1`)}))
	require.NoError(t, s.AppendOrReplaceEvent("counter", "chan-1", StateEvent{MessageID: "m1", Delta: json.RawMessage(`1`)}))

	log, err := s.GetEvents("counter", "chan-1")
	require.NoError(t, err)
	require.Len(t, log, 2)
	require.Equal(t, "m1", log[0].MessageID)
	require.Equal(t, "m2", log[1].MessageID)

	require.NoError(t, s.AppendOrReplaceEvent("counter", "chan-1", StateEvent{MessageID: "m1", Delta: json.RawMessage(`99`)}))
	log, err = s.GetEvents("counter", "chan-1")
	require.NoError(t, err)
	require.Len(t, log, 2)
	require.JSONEq(t, `99`, string(log[0].Delta))
}

func TestForkEvents(t *testing.T) {
	s := NewStore(t.TempDir())

	for _, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, s.AppendOrReplaceEvent("counter", "parent", StateEvent{MessageID: id, Delta: json.RawMessage(`1`)}))
	}

	require.NoError(t, s.ForkEvents("counter", "parent", "thread", "m2"))
	require.NoError(t, s.AppendOrReplaceEvent("counter", "parent", StateEvent{MessageID: "m4", Delta: json.RawMessage(`1`)}))

	threadLog, err := s.GetEvents("counter", "thread")
	require.NoError(t, err)
	require.Len(t, threadLog, 2)

	parentLog, err := s.GetEvents("counter", "parent")
	require.NoError(t, err)
	require.Len(t, parentLog, 4)
}
