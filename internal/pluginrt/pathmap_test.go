package pluginrt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathForGlobal(t *testing.T) {
	path, err := pathFor("/cache", "notes", ScopeGlobal, "")
	require.NoError(t, err)
	require.Equal(t, "/cache/plugins/notes/global.json", path)
}

func TestPathForChannel(t *testing.T) {
	path, err := pathFor("/cache", "notes", ScopeChannel, "chan-1")
	require.NoError(t, err)
	require.Equal(t, "/cache/plugins/notes/channel/chan-1.json", path)
}

func TestPathForEpic(t *testing.T) {
	path, err := pathFor("/cache", "notes", ScopeEpic, "chan-1")
	require.NoError(t, err)
	require.Equal(t, "/cache/plugins/notes/epic/chan-1.json", path)
}

func TestPathForRejectsSeparatorInPluginID(t *testing.T) {
	_, err := pathFor("/cache", "ev/il", ScopeGlobal, "")
	require.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestPathForRejectsSeparatorInChannelID(t *testing.T) {
	_, err := pathFor("/cache", "notes", ScopeChannel, "a\\b")
	require.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestPathForRejectsEmptyChannelID(t *testing.T) {
	_, err := pathFor("/cache", "notes", ScopeChannel, "")
	require.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestPathForRejectsUnknownScope(t *testing.T) {
	_, err := pathFor("/cache", "notes", Scope("bogus"), "chan-1")
	require.ErrorIs(t, err, ErrInvalidIdentifier)
}
