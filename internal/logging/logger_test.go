package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetBeforeInitIsNoopSafe(t *testing.T) {
	l := Get(CategoryStore)
	require.NotNil(t, l)
	l.Debug("should not panic")
}

func TestInitThenGetReturnsCategorizedLogger(t *testing.T) {
	require.NoError(t, Init(true))
	defer Sync()

	a := Get(CategoryPlacer)
	b := Get(CategoryPlacer)
	require.Same(t, a, b, "Get should return the cached logger for a category")

	c := Get(CategoryReplay)
	require.NotSame(t, a, c)
}
