// Package command classifies inbound message events into commands and
// dispatches their handlers onto a bounded worker pool.
package command

import (
	"context"

	"github.com/kaidi-io/kaidibot/pkg/protocol"
)

// Request carries one classified inbound message to its handler.
type Request struct {
	Event protocol.MessageEvent
	Args  []string
}

// Handler executes one command invocation.
type Handler interface {
	Execute(ctx context.Context, req Request) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req Request) error

func (f HandlerFunc) Execute(ctx context.Context, req Request) error { return f(ctx, req) }

// Spec registers one command: its name, a usage line for help output, and
// the handler.
type Spec struct {
	Name    string
	Usage   string
	Handler Handler
}
