package conversation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TruncationMarker is appended to any turn content shortened by the selector,
// so downstream consumers can detect lossy truncation.
const TruncationMarker = "…"

// SelectorConfig bounds the context handed to a role. Per-turn truncation
// varies by importance class: human input is cut least aggressively, AI
// responses at a medium limit, system and error annotations most aggressively.
type SelectorConfig struct {
	CapMessages int
	CapChars    int

	HumanTruncChars  int
	AITruncChars     int
	SystemTruncChars int
}

func (c *SelectorConfig) applyDefaults() {
	if c.CapMessages <= 0 {
		c.CapMessages = 20
	}
	if c.CapChars <= 0 {
		c.CapChars = 12_000
	}
	if c.HumanTruncChars <= 0 {
		c.HumanTruncChars = 2_000
	}
	if c.AITruncChars <= 0 {
		c.AITruncChars = 1_200
	}
	if c.SystemTruncChars <= 0 {
		c.SystemTruncChars = 400
	}
}

// Context is what a role is allowed to see for one invocation: either the
// latest summary (once compaction has occurred) or a bounded, contiguous tail
// of the visible log.
type Context struct {
	Summary string
	Turns   []Turn
}

func (c Context) Empty() bool {
	return c.Summary == "" && len(c.Turns) == 0
}

// Render flattens the context into prompt text.
func (c Context) Render() string {
	if c.Summary != "" {
		return "Summary of the conversation so far:\n" + c.Summary
	}
	if len(c.Turns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, t := range c.Turns {
		fmt.Fprintf(&b, "[%s] %s: %s\n", t.Timestamp.Format("15:04:05"), t.Role.DisplayName(), t.Content)
	}
	return b.String()
}

// Selector derives the per-role view of the log. The operation is total over
// any log state, including an empty log.
type Selector struct {
	log       *Log
	summaries *SummaryStore
	policy    VisibilityPolicy
	cfg       SelectorConfig
}

func NewSelector(log *Log, summaries *SummaryStore, policy VisibilityPolicy, cfg SelectorConfig) *Selector {
	cfg.applyDefaults()
	return &Selector{log: log, summaries: summaries, policy: policy, cfg: cfg}
}

// Select builds the context for one role.
//
// Once a summary exists it replaces raw history wholesale: per-role filtering
// is bypassed in favor of the shared summary, trading per-role nuance for
// bounded size and cross-role consistency. Before the first compaction, the
// result is a contiguous suffix of the visible-filtered log, bounded by
// CapMessages and then by a CapChars budget scanned newest to oldest, stopping
// (not skipping) at the first turn that would overflow.
func (s *Selector) Select(role Role) Context {
	if sum, ok := s.summaries.Latest(); ok {
		return Context{Summary: sum.Content}
	}

	all := s.log.All()
	var visible []Turn
	for _, t := range all {
		if s.policy.Visible(role, t.Role) {
			visible = append(visible, t)
		}
	}
	if len(visible) > s.cfg.CapMessages {
		visible = visible[len(visible)-s.cfg.CapMessages:]
	}

	// Apply the character budget newest to oldest so the retained tail stays
	// chronologically contiguous.
	budget := s.cfg.CapChars
	cut := 0
	truncated := make([]Turn, len(visible))
	for i := len(visible) - 1; i >= 0; i-- {
		t := visible[i]
		t.Content = s.truncate(t)
		if len(t.Content) > budget {
			cut = i + 1
			break
		}
		budget -= len(t.Content)
		truncated[i] = t
	}
	selected := truncated[cut:]

	if len(selected) == 0 && len(all) > 0 {
		// Never invoke a role with zero grounding: fall back to the most
		// recent human turn.
		for i := len(all) - 1; i >= 0; i-- {
			if all[i].Role == RoleHuman {
				t := all[i]
				t.Content = s.truncate(t)
				return Context{Turns: []Turn{t}}
			}
		}
		return Context{}
	}
	return Context{Turns: selected}
}

func (s *Selector) truncate(t Turn) string {
	limit := s.cfg.AITruncChars
	switch {
	case t.Role == RoleHuman:
		limit = s.cfg.HumanTruncChars
	case t.Role == RoleEther, t.Kind == KindError, t.Kind == KindSystemInfo:
		limit = s.cfg.SystemTruncChars
	}
	if len(t.Content) <= limit {
		return t.Content
	}
	// Back up to a rune boundary so the cut never splits a multi-byte
	// character.
	for limit > 0 && !utf8.RuneStart(t.Content[limit]) {
		limit--
	}
	return t.Content[:limit] + TruncationMarker
}
