// Package webhook receives pushed platform events and card callbacks over
// HTTP and feeds them into the command router and work-order manager.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kaidi-io/kaidibot/internal/lark"
	"github.com/kaidi-io/kaidibot/internal/metrics"
	"github.com/kaidi-io/kaidibot/pkg/protocol"
)

const (
	eventMessageReceive = "im.message.receive_v1"
	eventBotAdded       = "im.chat.member.bot.added_v1"
)

// Dispatcher routes a classified message event. Dispatch must not block.
type Dispatcher interface {
	Dispatch(ev protocol.MessageEvent)
}

// Orders is the work-order surface driven by card buttons.
type Orders interface {
	Submit(ctx context.Context, applicant, description string) (*protocol.WorkOrder, error)
	Done(ctx context.Context, chatID string) error
}

// Bot sends cards outside a reply context.
type Bot interface {
	SendCard(ctx context.Context, idType, receiveID string, card lark.Card) error
}

// Runner executes order mutations off the request goroutine.
type Runner interface {
	Submit(task func(context.Context)) bool
}

// Handler serves the /event and /card endpoints.
type Handler struct {
	botName           string
	verificationToken string
	cipher            *eventCipher
	router            Dispatcher
	orders            Orders
	bot               Bot
	runner            Runner
	metrics           *metrics.Metrics
	logger            *slog.Logger
}

// Config wires a Handler.
type Config struct {
	BotName           string
	VerificationToken string
	EncryptKey        string // empty disables payload decryption
	Router            Dispatcher
	Orders            Orders
	Bot               Bot
	Runner            Runner
	Metrics           *metrics.Metrics
	Logger            *slog.Logger
}

// New creates a Handler.
func New(cfg Config) (*Handler, error) {
	h := &Handler{
		botName:           cfg.BotName,
		verificationToken: cfg.VerificationToken,
		router:            cfg.Router,
		orders:            cfg.Orders,
		bot:               cfg.Bot,
		runner:            cfg.Runner,
		metrics:           cfg.Metrics,
		logger:            cfg.Logger,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if cfg.EncryptKey != "" {
		cipher, err := newEventCipher(cfg.EncryptKey)
		if err != nil {
			return nil, err
		}
		h.cipher = cipher
	}
	return h, nil
}

// Routes registers the webhook endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /event", h.handleEvent)
	mux.HandleFunc("POST /card", h.handleCard)
}

// readBody reads and, when configured, decrypts the request body.
func (h *Handler) readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if h.cipher == nil {
		return body, nil
	}

	var wrapped struct {
		Encrypt string `json:"encrypt"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil || wrapped.Encrypt == "" {
		// unencrypted bodies still arrive during endpoint verification
		return body, nil
	}
	return h.cipher.decrypt(wrapped.Encrypt)
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		if h.metrics != nil {
			h.metrics.WebhookDuration.WithLabelValues("event").Observe(time.Since(start).Seconds())
		}
	}()

	body, err := h.readBody(r)
	if err != nil {
		h.drop(w, "unreadable event body", err)
		return
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.drop(w, "malformed event body", err)
		return
	}

	// endpoint verification handshake
	if env.Type == "url_verification" {
		if env.Token != h.verificationToken {
			h.drop(w, "bad verification token", nil)
			return
		}
		writeJSON(w, map[string]string{"challenge": env.Challenge})
		return
	}

	if env.Header.Token != h.verificationToken {
		h.drop(w, "bad event token", nil)
		return
	}
	if h.metrics != nil {
		h.metrics.EventsTotal.WithLabelValues(env.Header.EventType).Inc()
	}

	switch env.Header.EventType {
	case eventMessageReceive:
		ev, err := toMessageEvent(env.Event)
		if err != nil {
			h.drop(w, "unusable message event", err)
			return
		}
		h.router.Dispatch(ev)

	case eventBotAdded:
		var added botAdded
		if err := json.Unmarshal(env.Event, &added); err != nil {
			h.drop(w, "unusable membership event", err)
			return
		}
		h.submit(func(ctx context.Context) {
			if err := h.bot.SendCard(ctx, "chat_id", added.ChatID, lark.Hello(h.botName)); err != nil {
				h.logger.Error("welcome card failed", "chat_id", added.ChatID, "error", err)
			}
		})

	default:
		h.logger.Debug("ignoring event", "type", env.Header.EventType)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleCard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		if h.metrics != nil {
			h.metrics.WebhookDuration.WithLabelValues("card").Observe(time.Since(start).Seconds())
		}
	}()

	body, err := h.readBody(r)
	if err != nil {
		h.drop(w, "unreadable card body", err)
		return
	}

	var cb cardCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		h.drop(w, "malformed card body", err)
		return
	}

	if cb.Type == "url_verification" {
		if cb.Token != h.verificationToken {
			h.drop(w, "bad verification token", nil)
			return
		}
		writeJSON(w, map[string]string{"challenge": cb.Challenge})
		return
	}

	if cb.Token != h.verificationToken {
		h.drop(w, "bad card token", nil)
		return
	}

	action := cb.actionName()
	if h.metrics != nil {
		h.metrics.CardActionsTotal.WithLabelValues(action).Inc()
	}

	// work_order and work_order_type replace the card in place; submit and
	// done run async and leave the card alone
	switch action {
	case "work_order":
		writeJSON(w, lark.OrderServiceSelect())
	case "work_order_type":
		writeJSON(w, lark.OrderTypeList(cb.Action.Option))
	case "work_order_submit":
		userID, option := cb.UserID, cb.Action.Option
		h.submit(func(ctx context.Context) {
			if _, err := h.orders.Submit(ctx, userID, option); err != nil {
				h.logger.Error("order submit failed", "user_id", userID, "error", err)
			}
		})
		w.WriteHeader(http.StatusOK)
	case "done":
		chatID := cb.OpenChatID
		h.submit(func(ctx context.Context) {
			if err := h.orders.Done(ctx, chatID); err != nil {
				h.logger.Error("order done failed", "chat_id", chatID, "error", err)
			}
		})
		w.WriteHeader(http.StatusOK)
	default:
		h.logger.Error("unknown card action", "action", action)
		w.WriteHeader(http.StatusOK)
	}
}

func (h *Handler) submit(task func(context.Context)) {
	if !h.runner.Submit(task) {
		h.logger.Warn("worker pool full, dropping task")
	}
}

// drop logs and returns 200. Events are not re-delivered, so there is no
// point signalling an error back to the platform.
func (h *Handler) drop(w http.ResponseWriter, msg string, err error) {
	if h.metrics != nil {
		h.metrics.EventsDropped.Inc()
	}
	h.logger.Error(msg, "error", err)
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
