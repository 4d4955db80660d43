// Package stream contains the response-normalization core: decoding raw
// backend events into text fragments, aggregating fragments for
// non-streaming callers, and framing fragments as OpenAI SSE chunks.
package stream

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// AgentEvent is one raw event from an agent-style completion stream.
// Exactly one of the fields is normally set; events that set none are
// unrecognized and skipped.
type AgentEvent struct {
	Trace   *TraceEvent `json:"trace,omitempty"`
	Chunk   *ChunkEvent `json:"chunk,omitempty"`
	Text    string      `json:"text,omitempty"`
	Content string      `json:"content,omitempty"`
}

// TraceEvent carries the agent's orchestration trace. Only the nested
// final-response observation contributes response text.
type TraceEvent struct {
	Trace struct {
		OrchestrationTrace struct {
			Observation struct {
				FinalResponse struct {
					Text string `json:"text"`
				} `json:"finalResponse"`
			} `json:"observation"`
		} `json:"orchestrationTrace"`
	} `json:"trace"`
}

// ChunkEvent carries a fragment of the agent reply as raw bytes
// (base64-encoded on the wire).
type ChunkEvent struct {
	Bytes []byte `json:"bytes"`
}

// Recognized reports whether the event matches any known shape. The
// caller counts unrecognized events as an operational signal; they are
// otherwise skipped silently.
func (e AgentEvent) Recognized() bool {
	return e.Trace != nil || e.Chunk != nil || e.Text != "" || e.Content != ""
}

// DecodeAgent extracts at most one text fragment from an agent event.
// Shapes are tried in priority order: trace final response, byte chunk,
// direct text, direct content. Decoding is pure and never fails; events
// that yield nothing return ok=false.
func DecodeAgent(ev AgentEvent) (fragment string, ok bool) {
	if ev.Trace != nil {
		text := ev.Trace.Trace.OrchestrationTrace.Observation.FinalResponse.Text
		if text != "" {
			return text, true
		}
		return "", false
	}

	if ev.Chunk != nil {
		return decodeChunkBytes(ev.Chunk.Bytes)
	}

	if t := strings.TrimSpace(ev.Text); t != "" {
		return t, true
	}
	if c := strings.TrimSpace(ev.Content); c != "" {
		return c, true
	}
	return "", false
}

// decodeChunkBytes decodes a byte chunk as UTF-8, widening through
// Latin-1 when the payload is not valid UTF-8. A decoded payload that
// parses as a JSON object with a content field yields that field;
// malformed JSON is treated as plain text, not an error.
func decodeChunkBytes(raw []byte) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var text string
	if utf8.Valid(raw) {
		text = string(raw)
	} else {
		text = latin1String(raw)
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	var payload struct {
		Content *string `json:"content"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err == nil && payload.Content != nil {
		if c := strings.TrimSpace(*payload.Content); c != "" {
			return c, true
		}
		return "", false
	}

	return strings.TrimSpace(text), true
}

// latin1String maps each byte to its equivalent rune. Unlike UTF-8
// decoding this cannot fail, so it is the terminal fallback.
func latin1String(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// ModelChunk mirrors one event of a model-style SSE delta stream.
type ModelChunk struct {
	Choices []ModelChoice `json:"choices"`
}

type ModelChoice struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// DecodeModel extracts the token delta and finish reason from a model
// chunk. Content is passed through verbatim; token boundaries carry
// significant whitespace. A terminal chunk reports finish instead of
// (or alongside) content.
func DecodeModel(c ModelChunk) (content, finish string) {
	if len(c.Choices) == 0 {
		return "", ""
	}
	choice := c.Choices[0]
	if choice.FinishReason != nil {
		finish = *choice.FinishReason
	}
	return choice.Delta.Content, finish
}
