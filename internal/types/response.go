package types

import (
	"crypto/rand"
	"encoding/hex"
)

// Usage reports token counts. This gateway performs no token
// accounting, so every field is the -1 sentinel; the values must never
// be fabricated.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the non-streaming chat.completion envelope.
type Completion struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// NewCompletion builds a chat.completion envelope around assembled
// assistant content.
func NewCompletion(id string, created int64, model, content string) Completion {
	return Completion{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      Message{Role: RoleAssistant, Content: content},
				FinishReason: "stop",
			},
		},
		Usage: Usage{PromptTokens: -1, CompletionTokens: -1, TotalTokens: -1},
	}
}

// CompletionChunk is one streamed chat.completion.chunk envelope.
// SystemFingerprint and Logprobs serialize as explicit nulls to match
// the OpenAI wire format.
type CompletionChunk struct {
	ID                string        `json:"id"`
	Object            string        `json:"object"`
	Created           int64         `json:"created"`
	Model             string        `json:"model"`
	SystemFingerprint *string       `json:"system_fingerprint"`
	Choices           []ChunkChoice `json:"choices"`
}

type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	Logprobs     *string `json:"logprobs"`
	FinishReason *string `json:"finish_reason"`
}

// Delta is the incremental payload of a chunk: {role} for the opening
// chunk, {content} for content chunks, {} for the terminal chunk.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// NewChunk builds a chunk envelope with the given delta.
func NewChunk(id string, created int64, model string, delta Delta) CompletionChunk {
	return CompletionChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []ChunkChoice{{Index: 0, Delta: delta}},
	}
}

// NewFinishChunk builds the terminal chunk carrying the finish reason
// and an empty delta.
func NewFinishChunk(id string, created int64, model, reason string) CompletionChunk {
	c := NewChunk(id, created, model, Delta{})
	c.Choices[0].FinishReason = &reason
	return c
}

// NewID generates an opaque completion identifier.
func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return "chatcmpl-" + hex.EncodeToString(b)
}
