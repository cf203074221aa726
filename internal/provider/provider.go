package provider

import (
	"context"

	"github.com/kaidi-io/kaidibot/pkg/protocol"
)

// Provider is the abstraction over LLM APIs.
type Provider interface {
	// Chat performs a blocking completion call.
	Chat(ctx context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error)
	// ChatStream opens a streaming completion. The returned channel yields
	// content chunks in arrival order and is closed on end-of-stream; a
	// mid-stream failure is delivered as a final Chunk with Err set.
	ChatStream(ctx context.Context, req protocol.ChatRequest) (<-chan Chunk, error)
	Name() string
}

// Chunk is one increment of a streaming completion.
type Chunk struct {
	Content string
	Err     error
}
