package conversation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// CompactionMarker is the sentinel substring carried by the system turn that
// closes a compaction. Its presence in the log is the authoritative epoch
// boundary: exactly one marker per completed compaction.
const CompactionMarker = "conversation summary updated"

const (
	// minLogForFirstCompaction is the minimum number of turns in the whole log
	// before the first compaction is considered.
	minLogForFirstCompaction = 4
	// minEpochTurns avoids generating a summary for a trivial exchange.
	minEpochTurns = 3
)

// SummaryBackend is the context-free generation call used by the compactor. It
// is deliberately narrower than the full client so the compaction path
// physically cannot re-enter the dispatcher or the per-role selector.
type SummaryBackend interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// SummaryBackendFunc adapts a function to SummaryBackend.
type SummaryBackendFunc func(ctx context.Context, prompt string) (string, error)

func (f SummaryBackendFunc) Summarize(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Compactor collapses the aged portion of the log into an incremental
// natural-language summary. Each summary includes the prior summary as input,
// bounding the cost of a compaction call at the epoch size regardless of total
// conversation length.
type Compactor struct {
	log       *Log
	summaries *SummaryStore
	backend   SummaryBackend
	publish   func(Turn)
	logger    *log.Logger

	// OnSummary, when set, is called after each stored summary (archive hook).
	OnSummary func(Summary)
}

func NewCompactor(lg *Log, summaries *SummaryStore, backend SummaryBackend, publish func(Turn), logger *log.Logger) *Compactor {
	if publish == nil {
		publish = func(Turn) {}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Compactor{log: lg, summaries: summaries, backend: backend, publish: publish, logger: logger}
}

// lastMarker returns the timestamp of the most recent compaction marker turn.
func (c *Compactor) lastMarker() (time.Time, bool) {
	turns := c.log.All()
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.Role == RoleEther && t.Kind == KindSystemInfo && strings.Contains(t.Content, CompactionMarker) {
			return t.Timestamp, true
		}
	}
	return time.Time{}, false
}

// epoch returns all turns strictly after the latest marker, or the whole log
// if no compaction has occurred yet.
func (c *Compactor) epoch() []Turn {
	if ts, ok := c.lastMarker(); ok {
		return c.log.Since(ts)
	}
	return c.log.All()
}

// ShouldCompact reports whether a compaction is due: either no summary exists
// yet and the log has grown past the minimum, or at least one turn has been
// appended since the last marker.
func (c *Compactor) ShouldCompact() bool {
	if c.summaries.Count() == 0 {
		return c.log.Len() >= minLogForFirstCompaction
	}
	return len(c.epoch()) > 0
}

// Compact runs one compaction pass. Failure is never fatal: on backend error
// no summary is stored and no marker is appended, so the next attempt simply
// recomputes over a now-larger epoch.
func (c *Compactor) Compact(ctx context.Context) {
	epoch := c.epoch()
	if len(epoch) < minEpochTurns {
		c.logger.Printf("compaction skipped: epoch holds %d turns", len(epoch))
		return
	}

	prompt := c.buildPrompt(epoch)
	text, err := c.backend.Summarize(ctx, prompt)
	if err != nil {
		c.logger.Printf("compaction failed, deferring: %v", err)
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		c.logger.Printf("compaction produced empty summary, deferring")
		return
	}

	sum := Summary{Seq: c.log.Len(), Content: text, CreatedAt: time.Now().UTC()}
	c.summaries.Add(sum)
	if c.OnSummary != nil {
		c.OnSummary(sum)
	}

	// The summary text and the marker are appended and fanned out directly,
	// bypassing the dispatch path so compaction cannot re-enter itself.
	display, err := c.log.Append(NewTurn(RoleEther, KindSystemInfo, "Conversation summary\n\n"+text))
	if err == nil {
		c.publish(display)
	}
	marker, err := c.log.Append(NewTurn(RoleEther, KindSystemInfo,
		fmt.Sprintf("%s (#%d, %d turns compacted)", CompactionMarker, c.summaries.Count(), len(epoch))))
	if err == nil {
		c.publish(marker)
	}
	c.logger.Printf("compaction complete: summary #%d over %d turns", c.summaries.Count(), len(epoch))
}

// buildPrompt renders the compaction prompt: the prior summary (if any,
// labeled as such) followed by the epoch's semantic turns. Ether turns are
// excluded; only human and role turns carry content worth keeping.
func (c *Compactor) buildPrompt(epoch []Turn) string {
	var b strings.Builder
	b.WriteString(`You are the conversation summarizer for a multi-AI collaboration system.
Produce a concise digest that will replace the raw chat history as shared context.

Cover, in a structured form:
1. Current project status: requirement confirmation, design progress, build state.
2. Key technical decisions: architecture, stack, design principles.
3. Hard constraints: user demands, technical limits, business rules.
4. Open problems: blockers and points needing clarification.
5. Next actions: concrete follow-ups and which role owns each.

Stay factual, drop pleasantries, keep it under 500 words.

`)
	if prev, ok := c.summaries.Latest(); ok {
		b.WriteString("Previous summary (prior context):\n")
		b.WriteString(prev.Content)
		b.WriteString("\n\n---\n\n")
	}
	b.WriteString("New conversation since then:\n")
	for _, t := range epoch {
		if t.Role == RoleEther {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", t.Timestamp.Format("15:04:05"), t.Role.DisplayName(), t.Content)
	}
	return b.String()
}
