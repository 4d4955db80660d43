package gateway

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/meridian-labs/chatbridge/internal/httputil"
	"github.com/meridian-labs/chatbridge/internal/provider"
)

// streamSSE writes the adapter's SSE frames to the client, flushing
// after every frame so each fragment reaches the caller before the next
// backend event is requested. A client disconnect abandons the backend
// iterator; no cancellation message is sent upstream.
func (h *Handler) streamSSE(w http.ResponseWriter, r *http.Request, reqID string, adapter provider.Adapter, preq provider.Request, id string, created int64, model string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteInternalError(w, reqID, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Request-ID", reqID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	frames := 0
	for frame := range adapter.StreamCompletion(ctx, preq, id, created, model) {
		if ctx.Err() != nil {
			slog.Info("client disconnected, abandoning stream",
				"request_id", reqID, "provider", adapter.Name(), "frames", frames)
			return
		}
		if _, err := io.WriteString(w, frame); err != nil {
			slog.Warn("failed to write SSE frame",
				"request_id", reqID, "provider", adapter.Name(), "error", err)
			return
		}
		flusher.Flush()
		frames++
		if h.metrics != nil {
			h.metrics.RecordStreamChunk(adapter.Name())
		}
	}

	slog.Info("streaming completed",
		"request_id", reqID, "provider", adapter.Name(), "model", model, "frames", frames)
}
