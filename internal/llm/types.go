package llm

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged turn in a chat-style generation request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func System(text string) Message    { return Message{Role: RoleSystem, Content: text} }
func User(text string) Message      { return Message{Role: RoleUser, Content: text} }
func Assistant(text string) Message { return Message{Role: RoleAssistant, Content: text} }

// Request is the unified generation request. Exactly one of Messages or Prompt
// is set: Messages for chat-style calls, Prompt for flattened single-string
// calls (Complete vs Generate on the adapter). Streaming is never requested.
type Request struct {
	Provider string
	Model    string
	Messages []Message
	Prompt   string
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return &ConfigurationError{Message: "model is required"}
	}
	if len(r.Messages) == 0 && strings.TrimSpace(r.Prompt) == "" {
		return &ConfigurationError{Message: "request needs messages or a prompt"}
	}
	if len(r.Messages) > 0 && strings.TrimSpace(r.Prompt) != "" {
		return &ConfigurationError{Message: "request cannot carry both messages and a prompt"}
	}
	return nil
}

// Response is the unified generation response.
type Response struct {
	Provider string
	Model    string
	Content  string
}

func (r Response) String() string {
	return fmt.Sprintf("%s/%s: %d chars", r.Provider, r.Model, len(r.Content))
}
