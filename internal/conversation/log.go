package conversation

import (
	"fmt"
	"sync"
	"time"
)

// Log is the append-only, time-ordered record of every turn. There is no
// deletion: compaction reduces effective context, never history.
//
// Appends are expected to happen on the single-writer dispatch path; reads may
// come from any goroutine.
type Log struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewLog() *Log {
	return &Log{}
}

// Append validates the turn, enforces a strictly increasing timestamp, and
// stores it. Returns the stored turn (its timestamp may have been nudged).
// Fails only on invalid turn construction, never on capacity.
func (l *Log) Append(t Turn) (Turn, error) {
	if err := t.Validate(); err != nil {
		return Turn{}, fmt.Errorf("append turn: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.turns); n > 0 {
		last := l.turns[n-1].Timestamp
		if !t.Timestamp.After(last) {
			t.Timestamp = last.Add(time.Nanosecond)
		}
	}
	l.turns = append(l.turns, t)
	return t, nil
}

// All returns a copy of the full log in insertion order.
func (l *Log) All() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Since returns all turns strictly after the given timestamp, in order.
// Used for epoch slicing.
func (l *Log) Since(ts time.Time) []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	// Timestamps are strictly increasing, so binary search would work, but the
	// scan is over an in-memory slice and epochs are short-lived.
	var out []Turn
	for _, t := range l.turns {
		if t.Timestamp.After(ts) {
			out = append(out, t)
		}
	}
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Last returns the most recent turn, if any.
func (l *Log) Last() (Turn, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.turns) == 0 {
		return Turn{}, false
	}
	return l.turns[len(l.turns)-1], true
}
