package stream

import (
	"encoding/json"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/meridian-labs/chatbridge/internal/types"
)

func events(evs ...Event) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for _, ev := range evs {
			if !yield(ev) {
				return
			}
		}
	}
}

func collectFrames(t *testing.T, seq iter.Seq[string]) []string {
	t.Helper()
	var frames []string
	for f := range seq {
		if !strings.HasPrefix(f, "data: ") || !strings.HasSuffix(f, "\n\n") {
			t.Fatalf("malformed SSE frame: %q", f)
		}
		frames = append(frames, strings.TrimSuffix(strings.TrimPrefix(f, "data: "), "\n\n"))
	}
	return frames
}

func decodeChunk(t *testing.T, frame string) types.CompletionChunk {
	t.Helper()
	var chunk types.CompletionChunk
	if err := json.Unmarshal([]byte(frame), &chunk); err != nil {
		t.Fatalf("unmarshal chunk %q: %v", frame, err)
	}
	return chunk
}

func testEmitter() Emitter {
	return Emitter{
		ID:          "chatcmpl-test",
		Created:     1700000000,
		Model:       "bedrock-agent",
		Placeholder: AgentEmptyPlaceholder,
	}
}

func TestFrames_ContentStream(t *testing.T) {
	frames := collectFrames(t, testEmitter().Frames(events(
		Event{Content: "Hello"},
		Event{Content: "world"},
	)))

	if len(frames) != 5 {
		t.Fatalf("expected 5 frames, got %d: %v", len(frames), frames)
	}

	role := decodeChunk(t, frames[0])
	if role.Choices[0].Delta.Role != "assistant" {
		t.Errorf("first frame must be the role delta, got %s", frames[0])
	}

	if c := decodeChunk(t, frames[1]); c.Choices[0].Delta.Content != "Hello" {
		t.Errorf("expected Hello delta, got %s", frames[1])
	}
	if c := decodeChunk(t, frames[2]); c.Choices[0].Delta.Content != "world" {
		t.Errorf("expected world delta, got %s", frames[2])
	}

	fin := decodeChunk(t, frames[3])
	if fin.Choices[0].FinishReason == nil || *fin.Choices[0].FinishReason != "stop" {
		t.Errorf("expected finish_reason stop, got %s", frames[3])
	}
	if frames[4] != Done {
		t.Errorf("expected [DONE] last, got %q", frames[4])
	}
}

func TestFrames_EmptyStreamEmitsPlaceholder(t *testing.T) {
	frames := collectFrames(t, testEmitter().Frames(events()))

	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d: %v", len(frames), frames)
	}
	placeholder := decodeChunk(t, frames[1])
	if placeholder.Choices[0].Delta.Content != AgentEmptyPlaceholder {
		t.Errorf("expected placeholder content chunk, got %s", frames[1])
	}
	if frames[3] != Done {
		t.Errorf("expected [DONE] last, got %q", frames[3])
	}
}

func TestFrames_BackendFinishReasonEndsStream(t *testing.T) {
	frames := collectFrames(t, testEmitter().Frames(events(
		Event{Content: "partial"},
		Event{Finish: "length"},
		Event{Content: "never delivered"},
	)))

	joined := strings.Join(frames, "\n")
	if strings.Contains(joined, "never delivered") {
		t.Error("no content may follow a terminal finish event")
	}

	fin := decodeChunk(t, frames[len(frames)-2])
	if fin.Choices[0].FinishReason == nil || *fin.Choices[0].FinishReason != "length" {
		t.Errorf("expected backend-reported finish reason, got %s", frames[len(frames)-2])
	}
}

func TestFrames_ExactlyOneFinishAndDone(t *testing.T) {
	frames := collectFrames(t, testEmitter().Frames(events(Event{Content: "hi"})))

	finishes, dones := 0, 0
	for _, f := range frames {
		if f == Done {
			dones++
			continue
		}
		c := decodeChunk(t, f)
		if len(c.Choices) > 0 && c.Choices[0].FinishReason != nil {
			finishes++
		}
	}
	if finishes != 1 {
		t.Errorf("expected exactly one finish chunk, got %d", finishes)
	}
	if dones != 1 {
		t.Errorf("expected exactly one [DONE], got %d", dones)
	}
	if frames[len(frames)-1] != Done {
		t.Error("[DONE] must be the final frame")
	}
}

func TestFrames_ErrorEmitsEnvelopeThenDone(t *testing.T) {
	frames := collectFrames(t, testEmitter().Frames(events(
		Event{Err: errors.New("agent unreachable")},
	)))

	if len(frames) != 3 {
		t.Fatalf("expected role, error, [DONE]; got %v", frames)
	}

	var env struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(frames[1]), &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if env.Error.Message != "agent unreachable" || env.Error.Type != "server_error" || env.Error.Code != 500 {
		t.Errorf("unexpected error envelope: %s", frames[1])
	}
	if frames[2] != Done {
		t.Errorf("error frames are still terminated by [DONE], got %q", frames[2])
	}
}

func TestFrames_RoleChunkPrecedesSourcePull(t *testing.T) {
	pulled := false
	lazy := func(yield func(Event) bool) {
		pulled = true
		yield(Event{Content: "late"})
	}

	next, stop := iter.Pull(testEmitter().Frames(lazy))
	defer stop()

	first, ok := next()
	if !ok {
		t.Fatal("expected a first frame")
	}
	if pulled {
		t.Error("role chunk must be emitted before the backend source is pulled")
	}
	if !strings.Contains(first, `"role":"assistant"`) {
		t.Errorf("expected role delta first, got %q", first)
	}
}
