package types

// Message is one turn of an OpenAI-format conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest is the inbound body of POST /v1/chat/completions.
// Provider and SessionID are gateway extensions to the OpenAI shape:
// Provider overrides resolution, SessionID is passed through to
// agent-style backends that manage conversation state server-side.
type CompletionRequest struct {
	Model     string    `json:"model,omitempty"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
}

// HasUserMessage reports whether at least one user-role turn is present.
// Requests without one are rejected before any provider is contacted.
func (r *CompletionRequest) HasUserMessage() bool {
	for _, m := range r.Messages {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}

// LastUserMessage returns the content of the most recent user turn.
func (r *CompletionRequest) LastUserMessage() (string, bool) {
	return LastUserMessage(r.Messages)
}

// LastUserMessage returns the content of the most recent user-role entry
// in messages. Agent-style backends consume only this turn; the rest of
// the history is managed by the backend's own session state.
func LastUserMessage(messages []Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser && messages[i].Content != "" {
			return messages[i].Content, true
		}
	}
	return "", false
}
