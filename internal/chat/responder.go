// Package chat turns streaming completions into throttled card updates on a
// single reply message.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kaidi-io/kaidibot/internal/lark"
	"github.com/kaidi-io/kaidibot/internal/provider"
	"github.com/kaidi-io/kaidibot/internal/store"
	"github.com/kaidi-io/kaidibot/pkg/protocol"
)

const systemPrompt = "You are a helpful assistant."

// Bot is the outbound message surface the responder needs: one reply to
// create the destination card, then edits of that same card.
type Bot interface {
	ReplyCard(ctx context.Context, messageID string, card lark.Card) (string, error)
	PatchCard(ctx context.Context, messageID string, card lark.Card) error
}

// Responder streams a completion into one progressively edited answer card.
type Responder struct {
	conversations store.ConversationStore
	provider      provider.Provider
	bot           Bot
	flush         time.Duration
	maxStream     time.Duration
	clock         func() time.Time
	logger        *slog.Logger
}

// ResponderOption configures a Responder.
type ResponderOption func(*Responder)

// WithFlushInterval sets the minimum time between card refreshes.
func WithFlushInterval(d time.Duration) ResponderOption {
	return func(r *Responder) { r.flush = d }
}

// WithMaxStreamDuration bounds how long one streaming session may run.
func WithMaxStreamDuration(d time.Duration) ResponderOption {
	return func(r *Responder) { r.maxStream = d }
}

// WithClock sets the time source. Used by tests.
func WithClock(clock func() time.Time) ResponderOption {
	return func(r *Responder) { r.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ResponderOption {
	return func(r *Responder) { r.logger = logger }
}

// NewResponder creates a Responder.
func NewResponder(conversations store.ConversationStore, p provider.Provider, bot Bot, opts ...ResponderOption) *Responder {
	r := &Responder{
		conversations: conversations,
		provider:      p,
		bot:           bot,
		flush:         700 * time.Millisecond,
		maxStream:     5 * time.Minute,
		clock:         time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond replies to messageID with a placeholder card, streams a completion
// for text, and refreshes the card at most once per flush interval. The last
// refresh always carries the complete answer even when the stream finished
// inside the throttle window. On success the exchange is appended to the
// user's transcript.
func (r *Responder) Respond(ctx context.Context, userID, messageID, text string) error {
	cardID, err := r.bot.ReplyCard(ctx, messageID, lark.Answer("Waiting a moment...", true))
	if err != nil {
		return fmt.Errorf("chat: send placeholder: %w", err)
	}

	conv, err := r.conversations.Get(userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.fail(ctx, cardID, "Sorry, I have no conversation data for you. Send `clear` to start one.")
		} else {
			r.fail(ctx, cardID, "Sorry, something went wrong. Please try again later.")
		}
		return fmt.Errorf("chat: load conversation for %s: %w", userID, err)
	}

	// Prompt override, then accumulated transcript, then the new message.
	prompt := conv.Prompt + conv.Content + text

	ctx, cancel := context.WithTimeout(ctx, r.maxStream)
	defer cancel()

	stream, err := r.provider.ChatStream(ctx, protocol.ChatRequest{
		Model: conv.Model,
		Messages: []protocol.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		r.fail(ctx, cardID, "Sorry, the assistant is not available right now.")
		return fmt.Errorf("chat: open stream: %w", err)
	}

	var acc strings.Builder
	lastFlush := r.clock()
	for chunk := range stream {
		if chunk.Err != nil {
			msg := acc.String()
			if msg != "" {
				msg += "\n\n"
			}
			msg += "Sorry, the answer was interrupted."
			r.fail(ctx, cardID, msg)
			return fmt.Errorf("chat: stream for %s: %w", userID, chunk.Err)
		}
		acc.WriteString(chunk.Content)

		if now := r.clock(); now.Sub(lastFlush) > r.flush {
			if err := r.bot.PatchCard(ctx, cardID, lark.Answer(acc.String(), true)); err != nil {
				r.logger.Warn("card refresh failed", "card_id", cardID, "error", err)
			}
			lastFlush = now
		}
	}

	if err := r.bot.PatchCard(ctx, cardID, lark.Answer(acc.String(), false)); err != nil {
		return fmt.Errorf("chat: final refresh: %w", err)
	}

	if err := r.conversations.AppendContent(userID, text+"\n"+acc.String()+"\n"); err != nil {
		r.logger.Warn("transcript append failed", "user_id", userID, "error", err)
	}
	return nil
}

// fail overwrites the destination card with a human-readable error. It uses
// a detached context so the message still goes out after a stream timeout.
func (r *Responder) fail(ctx context.Context, cardID, msg string) {
	if err := r.bot.PatchCard(context.WithoutCancel(ctx), cardID, lark.Answer(msg, false)); err != nil {
		r.logger.Error("error card refresh failed", "card_id", cardID, "error", err)
	}
}
