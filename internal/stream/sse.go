package stream

import (
	"encoding/json"
	"iter"

	"github.com/meridian-labs/chatbridge/internal/types"
)

// Done is the literal terminal value of an SSE completion stream.
const Done = "[DONE]"

// Event is one normalized unit handed to the Emitter: a content
// fragment, a backend-reported finish reason, or a failure. A finish
// reason ends the stream; an error aborts it.
type Event struct {
	Content string
	Finish  string
	Err     error
}

// Emitter frames normalized events as an OpenAI chat.completion.chunk
// SSE stream. Per request the frame order is fixed: role delta, content
// deltas, a placeholder delta when no content was produced, exactly one
// finish chunk, then [DONE].
type Emitter struct {
	ID          string
	Created     int64
	Model       string
	Placeholder string
}

// Frames returns the lazy SSE frame sequence for events. The sequence
// is finite and not restartable. The opening role chunk is yielded
// before events is first pulled, so callers get a first byte before the
// backend call is dispatched.
func (e Emitter) Frames(events iter.Seq[Event]) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !yield(frameJSON(types.NewChunk(e.ID, e.Created, e.Model, types.Delta{Role: types.RoleAssistant}))) {
			return
		}

		sentContent := false
		finish := "stop"
		for ev := range events {
			if ev.Err != nil {
				if yield(frameJSON(errorEnvelope{errorDetail{
					Message: ev.Err.Error(),
					Type:    "server_error",
					Code:    500,
				}})) {
					yield(frameData(Done))
				}
				return
			}
			if ev.Content != "" {
				if !yield(frameJSON(types.NewChunk(e.ID, e.Created, e.Model, types.Delta{Content: ev.Content}))) {
					return
				}
				sentContent = true
			}
			if ev.Finish != "" {
				finish = ev.Finish
				break
			}
		}

		if !sentContent {
			if !yield(frameJSON(types.NewChunk(e.ID, e.Created, e.Model, types.Delta{Content: e.Placeholder}))) {
				return
			}
		}
		if !yield(frameJSON(types.NewFinishChunk(e.ID, e.Created, e.Model, finish))) {
			return
		}
		yield(frameData(Done))
	}
}

type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func frameJSON(v any) string {
	data, _ := json.Marshal(v)
	return frameData(string(data))
}

func frameData(data string) string {
	return "data: " + data + "\n\n"
}
