package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorLength(t *testing.T) {
	c := NewCursor(1700000000000000, 1)
	require.Len(t, c, 13)
}

func TestCursorOrderingMatchesTime(t *testing.T) {
	c1 := NewCursor(1700000000000000, 1)
	c2 := NewCursor(1700000000000001, 1)
	require.Less(t, c1, c2)
}

func TestCursorOrderingBreaksTiesBySeq(t *testing.T) {
	c1 := NewCursor(1700000000000000, 1)
	c2 := NewCursor(1700000000000000, 2)
	require.Less(t, c1, c2)
}

func TestNextCursorSeqIncreasing(t *testing.T) {
	a := NextCursorSeq()
	b := NextCursorSeq()
	require.Greater(t, b, a)
}
