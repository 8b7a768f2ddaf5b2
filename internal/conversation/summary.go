package conversation

import (
	"sync"
	"time"
)

// Summary is a compacted digest of one epoch of the log. Seq is the log length
// at generation time, so summaries are naturally ordered and monotonic. Every
// summary is retained for audit; only the latest feeds context selection.
type Summary struct {
	Seq       int       `json:"seq"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SummaryStore holds the ordered sequence of summaries.
type SummaryStore struct {
	mu        sync.RWMutex
	summaries []Summary
}

func NewSummaryStore() *SummaryStore {
	return &SummaryStore{}
}

func (s *SummaryStore) Add(sum Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, sum)
}

// Latest returns the most recent summary, if any.
func (s *SummaryStore) Latest() (Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.summaries) == 0 {
		return Summary{}, false
	}
	return s.summaries[len(s.summaries)-1], true
}

func (s *SummaryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.summaries)
}

// All returns a copy of every summary in order.
func (s *SummaryStore) All() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, len(s.summaries))
	copy(out, s.summaries)
	return out
}
