// Package provider implements the backend adapters and their
// resolution. Each adapter exposes the same capability set over one
// backend and owns the backend-specific request construction; the
// shared decode/aggregate/emit logic lives in internal/stream.
package provider

import (
	"context"
	"iter"

	"github.com/meridian-labs/chatbridge/internal/types"
)

// Request carries the per-call inputs an adapter needs: the
// conversation and, for agent-style backends, the caller-supplied
// session token (passed through, never stored).
type Request struct {
	Messages  []types.Message
	SessionID string
}

// Adapter is the uniform capability contract over one backend.
type Adapter interface {
	Name() string
	DefaultModel() string
	// Available reports whether every required credential and
	// identifier for the backend is configured. It is a pure function
	// of the adapter's config.
	Available() bool
	// Complete invokes the backend synchronously and returns the
	// assembled assistant content. Backend failures are absorbed and
	// surfaced as an "Error: ..." content string, never as an error.
	Complete(ctx context.Context, req Request) string
	// StreamCompletion returns the fully framed SSE response stream.
	// The sequence is lazy, finite, and not restartable; abandoning it
	// releases the backend stream. Backend failures surface as an SSE
	// error envelope inside the sequence.
	StreamCompletion(ctx context.Context, req Request, id string, created int64, model string) iter.Seq[string]
}
