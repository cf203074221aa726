package command

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kaidi-io/kaidibot/pkg/protocol"
)

// Router classifies inbound messages and hands the matched handler to the
// pool. Dispatch is fire-and-forget: the router never waits on a handler.
type Router struct {
	botName  *regexp.Regexp
	p2p      []Spec
	group    []Spec
	fallback Handler
	pool     *Pool
	replier  TextReplier
	logger   *slog.Logger
}

// TextReplier sends the help text back on the triggering message.
type TextReplier interface {
	ReplyText(ctx context.Context, messageID, text string) (string, error)
}

// NewRouter creates a Router. botPattern is matched against the leading
// mention in group messages to decide whether the message is for this bot.
func NewRouter(botPattern string, pool *Pool, replier TextReplier, logger *slog.Logger) (*Router, error) {
	re, err := regexp.Compile(botPattern)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{botName: re, pool: pool, replier: replier, logger: logger}, nil
}

// RegisterP2P registers a direct-chat command.
func (r *Router) RegisterP2P(spec Spec) { r.p2p = append(r.p2p, spec) }

// RegisterGroup registers a group-chat command.
func (r *Router) RegisterGroup(spec Spec) { r.group = append(r.group, spec) }

// SetFallback installs the handler for direct messages that match no
// registered command. Group messages have no fallback.
func (r *Router) SetFallback(h Handler) { r.fallback = h }

// Usage enumerates the registered commands for a chat kind.
func (r *Router) Usage(kind protocol.ChatKind) string {
	specs := r.p2p
	if kind == protocol.ChatGroup {
		specs = r.group
	}
	var b strings.Builder
	b.WriteString("Usage:\n")
	for _, s := range specs {
		b.WriteString("\t" + s.Usage + "\n")
	}
	return b.String()
}

// Dispatch classifies ev and submits the matching handler to the pool. It
// returns immediately; unmatched or misaddressed group messages are dropped
// without an error surfacing anywhere.
func (r *Router) Dispatch(ev protocol.MessageEvent) {
	fields := strings.Fields(ev.Text)

	var name string
	var args []string
	switch ev.ChatKind {
	case protocol.ChatP2P:
		if len(fields) == 0 {
			return
		}
		name, args = fields[0], fields[1:]
	case protocol.ChatGroup:
		// the first token is the bot mention
		if len(fields) < 2 {
			return
		}
		name, args = fields[1], fields[2:]
	default:
		return
	}

	if name == "help" {
		usage := r.Usage(ev.ChatKind)
		r.submit(ev, nil, HandlerFunc(func(ctx context.Context, req Request) error {
			_, err := r.replier.ReplyText(ctx, req.Event.MessageID, usage)
			return err
		}))
		return
	}

	var handler Handler
	switch ev.ChatKind {
	case protocol.ChatP2P:
		if spec := lookup(r.p2p, name); spec != nil {
			handler = spec.Handler
		} else if r.fallback != nil {
			// free-form chat gets the whole text, not the parsed args
			handler = r.fallback
		}
	case protocol.ChatGroup:
		if len(ev.Mentions) == 0 || !r.botName.MatchString(ev.Mentions[0].Name) {
			r.logger.Error("message not for this bot", "chat_id", ev.ChatID, "text", ev.Text)
			return
		}
		if spec := lookup(r.group, name); spec != nil {
			handler = spec.Handler
		}
	}
	if handler == nil {
		return
	}

	r.submit(ev, args, handler)
}

func (r *Router) submit(ev protocol.MessageEvent, args []string, h Handler) {
	ok := r.pool.Submit(func(ctx context.Context) {
		if err := h.Execute(ctx, Request{Event: ev, Args: args}); err != nil {
			r.logger.Error("command failed", "chat_id", ev.ChatID, "error", err)
		}
	})
	if !ok {
		r.logger.Warn("worker pool full, dropping command", "chat_id", ev.ChatID)
	}
}

func lookup(specs []Spec, name string) *Spec {
	for i := range specs {
		if specs[i].Name == name {
			return &specs[i]
		}
	}
	return nil
}
