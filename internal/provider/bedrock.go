package provider

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/meridian-labs/chatbridge/internal/config"
	"github.com/meridian-labs/chatbridge/internal/stream"
	"github.com/meridian-labs/chatbridge/internal/telemetry"
	"github.com/meridian-labs/chatbridge/internal/types"
)

// AgentInvocation is one call to the agent runtime: the latest user
// turn plus the session the backend keys its conversation state on.
type AgentInvocation struct {
	SessionID   string
	InputText   string
	EnableTrace bool
}

// AgentRuntime is the boundary to the hosted agent backend. The
// returned sequence yields raw completion events; a non-nil error entry
// means the transport failed and ends the sequence.
type AgentRuntime interface {
	InvokeAgent(ctx context.Context, inv AgentInvocation) (iter.Seq2[stream.AgentEvent, error], error)
}

// BedrockAdapter serves chat completions through an agent-style
// backend: only the most recent user turn is sent, multi-turn state
// lives behind the session id.
type BedrockAdapter struct {
	cfg     config.BedrockConfig
	runtime AgentRuntime
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewBedrockAdapter builds the adapter. A nil runtime gets the default
// HTTP runtime for cfg; a nil metrics disables counters.
func NewBedrockAdapter(cfg config.BedrockConfig, runtime AgentRuntime, logger *slog.Logger, metrics *telemetry.Metrics) *BedrockAdapter {
	if runtime == nil {
		runtime = NewHTTPAgentRuntime(cfg, logger)
	}
	return &BedrockAdapter{cfg: cfg, runtime: runtime, logger: logger, metrics: metrics}
}

func (a *BedrockAdapter) Name() string { return "bedrock" }

func (a *BedrockAdapter) DefaultModel() string { return "bedrock-agent" }

func (a *BedrockAdapter) Available() bool { return a.cfg.Available() }

// sessionID returns the caller-supplied session token, or a fresh
// per-request one when the caller did not send any.
func (a *BedrockAdapter) sessionID(token string) string {
	if token != "" {
		return token
	}
	b := make([]byte, 4)
	rand.Read(b)
	return "session_" + hex.EncodeToString(b)
}

func (a *BedrockAdapter) invoke(ctx context.Context, req Request) (iter.Seq2[stream.AgentEvent, error], error) {
	last, ok := types.LastUserMessage(req.Messages)
	if !ok {
		return nil, errors.New("no user message found")
	}
	return a.runtime.InvokeAgent(ctx, AgentInvocation{
		SessionID:   a.sessionID(req.SessionID),
		InputText:   last,
		EnableTrace: true,
	})
}

// fragments runs every raw agent event through the decoder.
// Unrecognized events are counted and skipped; they never fail the
// stream.
func (a *BedrockAdapter) fragments(events iter.Seq2[stream.AgentEvent, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for ev, err := range events {
			if err != nil {
				a.logger.Error("agent stream failed", "provider", a.Name(), "error", err)
				yield("", err)
				return
			}
			if !ev.Recognized() {
				a.logger.Debug("skipping unrecognized agent event", "provider", a.Name())
				if a.metrics != nil {
					a.metrics.RecordSkippedEvent(a.Name())
				}
				continue
			}
			frag, ok := stream.DecodeAgent(ev)
			if !ok {
				continue
			}
			if !yield(frag, nil) {
				return
			}
		}
	}
}

func (a *BedrockAdapter) Complete(ctx context.Context, req Request) string {
	events, err := a.invoke(ctx, req)
	if err != nil {
		a.logger.Error("agent invocation failed", "provider", a.Name(), "error", err)
		return "Error: " + err.Error()
	}

	collector := stream.Collector{Join: " ", EmptyText: stream.AgentEmptyPlaceholder}
	content := collector.Collect(a.fragments(events))
	a.logger.Info("agent response assembled", "provider", a.Name(), "chars", len(content))
	return content
}

func (a *BedrockAdapter) StreamCompletion(ctx context.Context, req Request, id string, created int64, model string) iter.Seq[string] {
	emitter := stream.Emitter{
		ID:          id,
		Created:     created,
		Model:       model,
		Placeholder: stream.AgentEmptyPlaceholder,
	}

	events := func(yield func(stream.Event) bool) {
		raw, err := a.invoke(ctx, req)
		if err != nil {
			a.logger.Error("agent invocation failed", "provider", a.Name(), "error", err)
			yield(stream.Event{Err: err})
			return
		}
		for frag, err := range a.fragments(raw) {
			if err != nil {
				yield(stream.Event{Err: err})
				return
			}
			if !yield(stream.Event{Content: frag}) {
				return
			}
		}
	}

	return emitter.Frames(events)
}

// HTTPAgentRuntime talks to the agent runtime endpoint over HTTP. The
// response is a stream of JSON-encoded completion events, one per line.
// Request signing is owned by the deployment's egress proxy; the
// runtime itself authenticates by key pair.
type HTTPAgentRuntime struct {
	cfg    config.BedrockConfig
	client *http.Client
	logger *slog.Logger
}

func NewHTTPAgentRuntime(cfg config.BedrockConfig, logger *slog.Logger) *HTTPAgentRuntime {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPAgentRuntime{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (r *HTTPAgentRuntime) baseURL() string {
	if r.cfg.Endpoint != "" {
		return r.cfg.Endpoint
	}
	return fmt.Sprintf("https://bedrock-agent-runtime.%s.amazonaws.com", r.cfg.Region)
}

type agentInvocationBody struct {
	InputText   string `json:"inputText"`
	EnableTrace bool   `json:"enableTrace"`
}

func (r *HTTPAgentRuntime) InvokeAgent(ctx context.Context, inv AgentInvocation) (iter.Seq2[stream.AgentEvent, error], error) {
	data, err := json.Marshal(agentInvocationBody{
		InputText:   inv.InputText,
		EnableTrace: inv.EnableTrace,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal agent invocation: %w", err)
	}

	invokeURL := fmt.Sprintf("%s/agents/%s/agentAliases/%s/sessions/%s/text",
		r.baseURL(), r.cfg.AgentID, r.cfg.AgentAliasID, url.PathEscape(inv.SessionID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, invokeURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create agent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Access-Key-Id", r.cfg.AccessKeyID)
	httpReq.Header.Set("X-Secret-Access-Key", r.cfg.SecretAccessKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("invoke agent: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("agent runtime returned status %d: %s", resp.StatusCode, string(body))
	}

	events := func(yield func(stream.AgentEvent, error) bool) {
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var ev stream.AgentEvent
			if err := json.Unmarshal(line, &ev); err != nil {
				// Malformed individual events are dropped; the rest of
				// the stream continues.
				r.logger.Warn("dropping undecodable agent event", "error", err)
				continue
			}
			if !yield(ev, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(stream.AgentEvent{}, fmt.Errorf("read agent stream: %w", err))
		}
	}
	return events, nil
}
