package oplog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_LIFOAcrossTwoBatches(t *testing.T) {
	var l Log
	first := l.Append(Entry{Title: "first batch", SnapshotOOXML: "snap-1"})
	second := l.Append(Entry{Title: "second batch", SnapshotOOXML: "snap-2"})

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.Timestamp.IsZero())
	assert.Equal(t, 2, l.Len())

	got, err := l.Pop()
	require.NoError(t, err)
	assert.Equal(t, "snap-2", got.SnapshotOOXML)

	got, err = l.Pop()
	require.NoError(t, err)
	assert.Equal(t, "snap-1", got.SnapshotOOXML)

	_, err = l.Pop()
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestLog_ListOldestFirst(t *testing.T) {
	var l Log
	l.Append(Entry{Title: "a"})
	l.Append(Entry{Title: "b"})

	entries := l.List()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Title)
	assert.Equal(t, "b", entries[1].Title)

	// List is a copy; mutating it must not corrupt the stack.
	entries[1].Title = "mutated"
	top, err := l.Pop()
	require.NoError(t, err)
	assert.Equal(t, "b", top.Title)
}
