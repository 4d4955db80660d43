package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/meridian-labs/chatbridge/internal/httputil"
	"github.com/meridian-labs/chatbridge/internal/provider"
	"github.com/meridian-labs/chatbridge/internal/telemetry"
	"github.com/meridian-labs/chatbridge/internal/types"
)

// Handler holds dependencies for the gateway HTTP handlers. The
// resolver is a getter because config reloads swap in a fresh one.
type Handler struct {
	resolver func() *provider.Resolver
	metrics  *telemetry.Metrics
}

func NewHandler(resolver func() *provider.Resolver, metrics *telemetry.Metrics) *Handler {
	return &Handler{resolver: resolver, metrics: metrics}
}

// ChatCompletions handles POST /v1/chat/completions.
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	var req types.CompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}

	// Reject before any provider is contacted.
	if !req.HasUserMessage() {
		httputil.WriteBadRequestError(w, reqID, "No user message found")
		return
	}

	adapter, err := h.resolver().Resolve(req.Provider)
	if err != nil {
		slog.Error("provider resolution failed", "request_id", reqID, "provider", req.Provider, "error", err)
		httputil.WriteInternalError(w, reqID, err.Error())
		return
	}

	model := req.Model
	if model == "" {
		model = adapter.DefaultModel()
	}

	// One id and timestamp per request; every chunk of a stream shares
	// them.
	id := types.NewID()
	created := receivedAt.Unix()

	preq := provider.Request{Messages: req.Messages, SessionID: req.SessionID}

	slog.Info("handling chat completion",
		"request_id", reqID,
		"provider", adapter.Name(),
		"model", model,
		"stream", req.Stream,
		"messages", len(req.Messages),
	)

	if req.Stream {
		h.streamSSE(w, r, reqID, adapter, preq, id, created, model)
		h.record(adapter.Name(), model, "200", true, receivedAt)
		return
	}

	content := adapter.Complete(r.Context(), preq)
	resp := types.NewCompletion(id, created, model, content)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)

	h.record(adapter.Name(), model, "200", false, receivedAt)
	slog.Info("request completed",
		"request_id", reqID,
		"provider", adapter.Name(),
		"model", model,
		"duration_ms", time.Since(receivedAt).Milliseconds(),
		"stream", false,
	)
}

func (h *Handler) record(providerName, model, status string, stream bool, receivedAt time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordRequest(providerName, model, status, stream, float64(time.Since(receivedAt).Milliseconds()))
}

// ListProviders handles GET /v1/providers.
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	res := h.resolver()

	var infos []providerInfo
	for _, a := range res.Adapters() {
		info := providerInfo{Name: a.Name(), Available: a.Available()}
		if a.Available() {
			m := a.DefaultModel()
			info.DefaultModel = &m
		}
		infos = append(infos, info)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(providerListResponse{
		Providers: infos,
		Default:   res.Default(),
	})
}

type providerInfo struct {
	Name         string  `json:"name"`
	Available    bool    `json:"available"`
	DefaultModel *string `json:"default_model"`
}

type providerListResponse struct {
	Providers []providerInfo `json:"providers"`
	Default   string         `json:"default"`
}
