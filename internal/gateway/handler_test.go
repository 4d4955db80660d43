package gateway

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/meridian-labs/chatbridge/internal/provider"
	"github.com/meridian-labs/chatbridge/internal/stream"
	"github.com/meridian-labs/chatbridge/internal/types"
)

// mockAdapter implements provider.Adapter for handler tests.
type mockAdapter struct {
	name         string
	defaultModel string
	available    bool
	content      string
	events       []stream.Event
	completed    bool
	streamed     bool
}

func (m *mockAdapter) Name() string         { return m.name }
func (m *mockAdapter) DefaultModel() string { return m.defaultModel }
func (m *mockAdapter) Available() bool      { return m.available }

func (m *mockAdapter) Complete(_ context.Context, _ provider.Request) string {
	m.completed = true
	return m.content
}

func (m *mockAdapter) StreamCompletion(_ context.Context, _ provider.Request, id string, created int64, model string) iter.Seq[string] {
	m.streamed = true
	emitter := stream.Emitter{ID: id, Created: created, Model: model, Placeholder: stream.ModelEmptyPlaceholder}
	return emitter.Frames(func(yield func(stream.Event) bool) {
		for _, ev := range m.events {
			if !yield(ev) {
				return
			}
		}
	})
}

func newTestHandler(adapters ...provider.Adapter) (*Handler, []*mockAdapter) {
	resolver := provider.NewResolver("", adapters...)
	var mocks []*mockAdapter
	for _, a := range adapters {
		if m, ok := a.(*mockAdapter); ok {
			mocks = append(mocks, m)
		}
	}
	return NewHandler(func() *provider.Resolver { return resolver }, nil), mocks
}

func postCompletion(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ChatCompletions(w, req)
	return w
}

func TestChatCompletions_MissingUserMessageIs400(t *testing.T) {
	h, mocks := newTestHandler(&mockAdapter{name: "openai", available: true, defaultModel: "gpt-4o-mini"})

	w := postCompletion(t, h, `{"messages":[{"role":"system","content":"be helpful"}]}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if body.Error != "No user message found" {
		t.Errorf("unexpected error message: %q", body.Error)
	}
	if mocks[0].completed || mocks[0].streamed {
		t.Error("no provider may be invoked for an invalid request")
	}
}

func TestChatCompletions_InvalidJSONIs400(t *testing.T) {
	h, _ := newTestHandler(&mockAdapter{name: "openai", available: true})

	w := postCompletion(t, h, `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestChatCompletions_UnknownProviderIs500(t *testing.T) {
	h, mocks := newTestHandler(&mockAdapter{name: "openai", available: true})

	w := postCompletion(t, h, `{"provider":"unknownx","messages":[{"role":"user","content":"hi"}]}`)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unknown provider") {
		t.Errorf("expected unknown provider error, got %s", w.Body.String())
	}
	if mocks[0].completed || mocks[0].streamed {
		t.Error("no backend call may be attempted for an unknown provider")
	}
}

func TestChatCompletions_NonStreaming(t *testing.T) {
	h, _ := newTestHandler(&mockAdapter{
		name:         "openai",
		available:    true,
		defaultModel: "gpt-4o-mini",
		content:      "Hello from the backend",
	})

	w := postCompletion(t, h, `{"messages":[{"role":"user","content":"hi"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp types.Completion
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal completion: %v", err)
	}
	if resp.Object != "chat.completion" {
		t.Errorf("expected chat.completion, got %s", resp.Object)
	}
	if resp.Model != "gpt-4o-mini" {
		t.Errorf("expected adapter default model, got %s", resp.Model)
	}
	if !strings.HasPrefix(resp.ID, "chatcmpl-") {
		t.Errorf("expected chatcmpl id, got %s", resp.ID)
	}
	if resp.Choices[0].Message.Content != "Hello from the backend" {
		t.Errorf("unexpected content: %q", resp.Choices[0].Message.Content)
	}
	if resp.Usage.PromptTokens != -1 || resp.Usage.CompletionTokens != -1 || resp.Usage.TotalTokens != -1 {
		t.Errorf("usage must stay at -1 sentinels, got %+v", resp.Usage)
	}
}

func TestChatCompletions_ExplicitModelWins(t *testing.T) {
	h, _ := newTestHandler(&mockAdapter{
		name:         "openai",
		available:    true,
		defaultModel: "gpt-4o-mini",
		content:      "ok",
	})

	w := postCompletion(t, h, `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`)

	var resp types.Completion
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal completion: %v", err)
	}
	if resp.Model != "gpt-4o" {
		t.Errorf("expected requested model, got %s", resp.Model)
	}
}

func TestChatCompletions_Streaming(t *testing.T) {
	h, _ := newTestHandler(&mockAdapter{
		name:         "openai",
		available:    true,
		defaultModel: "gpt-4o-mini",
		events: []stream.Event{
			{Content: "Hello"},
			{Content: " world"},
		},
	})

	w := postCompletion(t, h, `{"stream":true,"messages":[{"role":"user","content":"hi"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	for header, want := range map[string]string{
		"Content-Type":      "text/event-stream",
		"Cache-Control":     "no-cache",
		"Connection":        "keep-alive",
		"X-Accel-Buffering": "no",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("expected %s: %s, got %q", header, want, got)
		}
	}

	body := w.Body.String()
	roleIdx := strings.Index(body, `"role":"assistant"`)
	contentIdx := strings.Index(body, `"content":"Hello"`)
	finishIdx := strings.Index(body, `"finish_reason":"stop"`)
	doneIdx := strings.Index(body, "data: [DONE]")

	if roleIdx < 0 || contentIdx < 0 || finishIdx < 0 || doneIdx < 0 {
		t.Fatalf("missing required frames in stream: %s", body)
	}
	if !(roleIdx < contentIdx && contentIdx < finishIdx && finishIdx < doneIdx) {
		t.Errorf("frames out of order: %s", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Error("[DONE] must terminate the stream")
	}
}

func TestChatCompletions_StreamingEmptyBackendStillHasContent(t *testing.T) {
	h, _ := newTestHandler(&mockAdapter{
		name:         "openai",
		available:    true,
		defaultModel: "gpt-4o-mini",
	})

	w := postCompletion(t, h, `{"stream":true,"messages":[{"role":"user","content":"hi"}]}`)

	if !strings.Contains(w.Body.String(), stream.ModelEmptyPlaceholder) {
		t.Errorf("expected placeholder content chunk, got %s", w.Body.String())
	}
}

func TestListProviders(t *testing.T) {
	h, _ := newTestHandler(
		&mockAdapter{name: "bedrock", defaultModel: "bedrock-agent"},
		&mockAdapter{name: "openai", available: true, defaultModel: "gpt-4o-mini"},
	)

	req := httptest.NewRequest(http.MethodGet, "/v1/providers", nil)
	w := httptest.NewRecorder()
	h.ListProviders(w, req)

	var resp struct {
		Providers []struct {
			Name         string  `json:"name"`
			Available    bool    `json:"available"`
			DefaultModel *string `json:"default_model"`
		} `json:"providers"`
		Default string `json:"default"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal providers: %v", err)
	}

	if len(resp.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(resp.Providers))
	}
	if resp.Providers[0].Name != "bedrock" || resp.Providers[0].Available {
		t.Errorf("expected unavailable bedrock first, got %+v", resp.Providers[0])
	}
	if resp.Providers[0].DefaultModel != nil {
		t.Error("unavailable providers must report a null default model")
	}
	if resp.Providers[1].Name != "openai" || !resp.Providers[1].Available {
		t.Errorf("expected available openai, got %+v", resp.Providers[1])
	}
	if resp.Providers[1].DefaultModel == nil || *resp.Providers[1].DefaultModel != "gpt-4o-mini" {
		t.Errorf("expected default model gpt-4o-mini, got %+v", resp.Providers[1].DefaultModel)
	}
}
