package pluginrt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func render(inj ContextInjection) string {
	return inj.ID
}

// TestPlacerAgesDynamicDepthFromLastModifiedPosition verifies that a
// depth computed from LastModifiedAt ages to 1, inserting the injection
// just before the last message.
func TestPlacerAgesDynamicDepthFromLastModifiedPosition(t *testing.T) {
	transcript := []string{"a", "b", "c", "d", "e"}
	idx := newMessageIndex(transcript)

	c := "c"
	injections := []ContextInjection{
		{ID: "I", PluginID: "p", LastModifiedAt: &c, TargetDepth: 1},
	}

	out := Place(transcript, injections, idx, render)
	require.Equal(t, []string{"a", "b", "c", "d", "I", "e"}, out)
}

// TestPlacerHigherPriorityInsertsFirstAtSameIndex verifies that of two
// injections resolving to the same index, the higher-priority one
// appears earlier in the final transcript.
func TestPlacerHigherPriorityInsertsFirstAtSameIndex(t *testing.T) {
	transcript := []string{"a", "b", "c", "d", "e"}
	idx := newMessageIndex(transcript)

	injections := []ContextInjection{
		{ID: "X", PluginID: "p", TargetDepth: 0, Priority: 10},
		{ID: "Y", PluginID: "p", TargetDepth: 0, Priority: 0},
	}

	out := Place(transcript, injections, idx, render)
	require.Equal(t, []string{"a", "b", "c", "d", "e", "X", "Y"}, out)
}

// TestPlacerEarliestAnchorCountsForwardFromStart verifies that an
// earliest-anchored injection counts depth forward from the transcript
// start, clamping once depth exceeds the transcript length.
func TestPlacerEarliestAnchorCountsForwardFromStart(t *testing.T) {
	idx := newMessageIndex([]string{"a", "b", "c"})

	for _, tc := range []struct {
		depth int
		want  []string
	}{
		{0, []string{"R", "a", "b", "c"}},
		{2, []string{"a", "b", "R", "c"}},
		{99, []string{"a", "b", "c", "R"}},
	} {
		transcript := []string{"a", "b", "c"}
		injections := []ContextInjection{
			{ID: "R", PluginID: "p", TargetDepth: tc.depth, Anchor: AnchorEarliest},
		}
		out := Place(transcript, injections, idx, render)
		require.Equal(t, tc.want, out, "depth %d", tc.depth)
	}
}

func TestPlacerDedupLastWins(t *testing.T) {
	transcript := []string{"a", "b", "c"}
	idx := newMessageIndex(transcript)

	injections := []ContextInjection{
		{ID: "x", PluginID: "p", Content: "first", TargetDepth: 0},
		{ID: "x", PluginID: "p", Content: "second", TargetDepth: 0},
	}

	out := Place(transcript, injections, idx, func(inj ContextInjection) string {
		return inj.Content.(string)
	})
	require.Equal(t, []string{"a", "b", "c", "second"}, out)
}

func TestPlacerClampsDepthBeyondBounds(t *testing.T) {
	transcript := []string{"a", "b"}
	idx := newMessageIndex(transcript)

	injections := []ContextInjection{
		{ID: "over", PluginID: "p", TargetDepth: 1000},
	}
	out := Place(transcript, injections, idx, render)
	require.Equal(t, []string{"over", "a", "b"}, out)
}

func TestPlacerIsStableAcrossRepeatedCalls(t *testing.T) {
	transcript := []string{"a", "b", "c", "d", "e"}
	idx := newMessageIndex(transcript)

	injections := []ContextInjection{
		{ID: "z", PluginID: "z-plugin", TargetDepth: 0, Priority: 1},
		{ID: "a", PluginID: "a-plugin", TargetDepth: 0, Priority: 1},
	}

	first := Place(transcript, injections, idx, render)
	second := Place(transcript, injections, idx, render)
	require.Equal(t, first, second)
	// equal priority, tie-break by pluginId ascending
	require.Equal(t, []string{"a", "b", "c", "d", "e", "a", "z"}, first)
}
