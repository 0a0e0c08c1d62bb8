// Package oplog records executed change batches and the document snapshots
// that undo them.
package oplog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNothingToUndo is returned by Pop on an empty log.
var ErrNothingToUndo = errors.New("nothing to undo")

// Entry is one executed batch: what ran, over which scope, and the full
// document snapshot taken before it ran.
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
	Scope     string    `json:"scope,omitempty"`
	ChangeIDs []string  `json:"changeIds"`
	Summary   string    `json:"summary,omitempty"`
	// SnapshotOOXML is the opaque pre-batch document state RestoreOOXML
	// accepts.
	SnapshotOOXML string `json:"-"`
}

// Log is a per-session LIFO stack of executed batches. Not safe for
// concurrent use; the engine serializes access.
type Log struct {
	entries []Entry
}

// Append records a batch, assigning an id and timestamp when absent.
func (l *Log) Append(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	l.entries = append(l.entries, e)
	return e
}

// Pop removes and returns the most recent entry.
func (l *Log) Pop() (Entry, error) {
	if len(l.entries) == 0 {
		return Entry{}, ErrNothingToUndo
	}
	e := l.entries[len(l.entries)-1]
	l.entries = l.entries[:len(l.entries)-1]
	return e, nil
}

// List returns the entries oldest first.
func (l *Log) List() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports how many batches can still be undone.
func (l *Log) Len() int { return len(l.entries) }
