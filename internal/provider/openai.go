package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/meridian-labs/chatbridge/internal/config"
	"github.com/meridian-labs/chatbridge/internal/stream"
	"github.com/meridian-labs/chatbridge/internal/telemetry"
	"github.com/meridian-labs/chatbridge/internal/types"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAIAdapter serves chat completions through a model-style backend:
// the full ordered message history is forwarded on every call and the
// backend holds no session state.
type OpenAIAdapter struct {
	cfg     config.OpenAIConfig
	client  *http.Client
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

func NewOpenAIAdapter(cfg config.OpenAIConfig, client *http.Client, logger *slog.Logger, metrics *telemetry.Metrics) *OpenAIAdapter {
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 2 * time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}
	return &OpenAIAdapter{cfg: cfg, client: client, logger: logger, metrics: metrics}
}

func (a *OpenAIAdapter) Name() string { return "openai" }

func (a *OpenAIAdapter) DefaultModel() string {
	if a.cfg.DefaultModel != "" {
		return a.cfg.DefaultModel
	}
	return defaultOpenAIModel
}

func (a *OpenAIAdapter) Available() bool { return a.cfg.Available() }

func (a *OpenAIAdapter) baseURL() string {
	if a.cfg.BaseURL != "" {
		return strings.TrimSuffix(a.cfg.BaseURL, "/")
	}
	return defaultOpenAIBaseURL
}

type openAIRequestBody struct {
	Model    string          `json:"model"`
	Messages []types.Message `json:"messages"`
	Stream   bool            `json:"stream,omitempty"`
}

func (a *OpenAIAdapter) newRequest(ctx context.Context, model string, messages []types.Message, streaming bool) (*http.Request, error) {
	data, err := json.Marshal(openAIRequestBody{
		Model:    model,
		Messages: messages,
		Stream:   streaming,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL()+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	return httpReq, nil
}

type openAIResponseBody struct {
	Choices []struct {
		Message      types.Message `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
}

func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) string {
	content, err := a.complete(ctx, req.Messages)
	if err != nil {
		a.logger.Error("openai request failed", "provider", a.Name(), "error", err)
		return "Error: " + err.Error()
	}
	a.logger.Info("openai response received", "provider", a.Name(), "chars", len(content))
	return content
}

func (a *OpenAIAdapter) complete(ctx context.Context, messages []types.Message) (string, error) {
	httpReq, err := a.newRequest(ctx, a.DefaultModel(), messages, false)
	if err != nil {
		return "", err
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call openai: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read openai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(body))
	}

	var oaiResp openAIResponseBody
	if err := json.Unmarshal(body, &oaiResp); err != nil {
		return "", fmt.Errorf("unmarshal openai response: %w", err)
	}
	if len(oaiResp.Choices) == 0 {
		return "", fmt.Errorf("openai response contained no choices")
	}
	return oaiResp.Choices[0].Message.Content, nil
}

func (a *OpenAIAdapter) StreamCompletion(ctx context.Context, req Request, id string, created int64, model string) iter.Seq[string] {
	emitter := stream.Emitter{
		ID:          id,
		Created:     created,
		Model:       model,
		Placeholder: stream.ModelEmptyPlaceholder,
	}

	events := func(yield func(stream.Event) bool) {
		httpReq, err := a.newRequest(ctx, model, req.Messages, true)
		if err != nil {
			yield(stream.Event{Err: err})
			return
		}

		resp, err := a.client.Do(httpReq)
		if err != nil {
			a.logger.Error("openai streaming request failed", "provider", a.Name(), "error", err)
			yield(stream.Event{Err: fmt.Errorf("call openai: %w", err)})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			yield(stream.Event{Err: fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(body))})
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == stream.Done {
				return
			}

			var chunk stream.ModelChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				// A single malformed chunk never fails the stream.
				a.logger.Warn("dropping undecodable openai chunk", "error", err)
				continue
			}
			content, finish := stream.DecodeModel(chunk)
			if content == "" && finish == "" {
				continue
			}
			if !yield(stream.Event{Content: content, Finish: finish}) {
				return
			}
			if finish != "" {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(stream.Event{Err: fmt.Errorf("read openai stream: %w", err)})
		}
	}

	return emitter.Frames(events)
}
