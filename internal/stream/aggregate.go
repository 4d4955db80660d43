package stream

import (
	"iter"
	"strings"
)

// Placeholder texts returned when a backend yields nothing usable. The
// exact strings are part of the outward contract: chat UIs keep working
// during backend degradation because they always receive assistant
// content.
const (
	AgentEmptyPlaceholder = "I apologize, but I received no response from the agent. How else can I assist you?"
	ModelEmptyPlaceholder = "I apologize, but I received no response. How else can I assist you?"
	ErrorPlaceholder      = "I apologize, but I encountered an error processing the response. How else can I assist you?"
)

// Collector assembles a decoded fragment sequence into one response
// string for non-streaming callers. Join is a property of the adapter
// that produced the fragments: agent-style fragments are sentence-sized
// and joined with a space, model-style fragments are token deltas and
// concatenated directly.
type Collector struct {
	Join      string
	EmptyText string
}

// Collect consumes fragments to exhaustion. A mid-stream error keeps
// whatever was captured before it; the error placeholder is returned
// only when a failure leaves no partial result. A cleanly exhausted but
// empty sequence returns EmptyText.
func (c Collector) Collect(fragments iter.Seq2[string, error]) string {
	var parts []string
	for frag, err := range fragments {
		if err != nil {
			if len(parts) > 0 {
				return strings.Join(parts, c.Join)
			}
			return ErrorPlaceholder
		}
		if frag != "" {
			parts = append(parts, frag)
		}
	}

	if len(parts) == 0 {
		return c.EmptyText
	}
	return strings.Join(parts, c.Join)
}
