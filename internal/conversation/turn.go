// Package conversation holds the append-only message log, the role visibility
// policy, the context selector, and the compaction engine: the state a single
// collaboration is built on.
package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type Role string

const (
	RoleHuman      Role = "human"
	RoleEther      Role = "ether"
	RoleProduct    Role = "product"
	RoleArchitect  Role = "architect"
	RoleInterface  Role = "interface"
	RoleProgrammer Role = "programmer"
)

var knownRoles = map[Role]bool{
	RoleHuman:      true,
	RoleEther:      true,
	RoleProduct:    true,
	RoleArchitect:  true,
	RoleInterface:  true,
	RoleProgrammer: true,
}

// AIRoles lists the generation-backed roles in collaboration-stage order.
var AIRoles = []Role{RoleProduct, RoleArchitect, RoleInterface, RoleProgrammer}

// DisplayName returns the human-facing label used when rendering a turn into
// prompt text.
func (r Role) DisplayName() string {
	switch r {
	case RoleHuman:
		return "Human"
	case RoleEther:
		return "System"
	case RoleProduct:
		return "Product AI"
	case RoleArchitect:
		return "Architect AI"
	case RoleInterface:
		return "Interface AI"
	case RoleProgrammer:
		return "Programmer AI"
	default:
		return string(r)
	}
}

type Kind string

const (
	KindUserInput  Kind = "user_input"
	KindAIResponse Kind = "ai_response"
	KindSystemInfo Kind = "system_info"
	KindFileSaved  Kind = "file_saved"
	KindError      Kind = "error"
)

var knownKinds = map[Kind]bool{
	KindUserInput:  true,
	KindAIResponse: true,
	KindSystemInfo: true,
	KindFileSaved:  true,
	KindError:      true,
}

// Turn is one immutable entry in the conversation log. Created once, never
// mutated; the log only grows.
type Turn struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Kind      Kind           `json:"kind"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewTurn builds a Turn with a fresh ULID and the current UTC time. The log
// adjusts the timestamp on append if needed to keep it strictly increasing.
func NewTurn(role Role, kind Kind, content string) Turn {
	return Turn{
		ID:        ulid.Make().String(),
		Role:      role,
		Kind:      kind,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

func (t Turn) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("turn id is empty")
	}
	if !knownRoles[t.Role] {
		return fmt.Errorf("unknown role: %q", t.Role)
	}
	if !knownKinds[t.Kind] {
		return fmt.Errorf("unknown kind: %q", t.Kind)
	}
	return nil
}
