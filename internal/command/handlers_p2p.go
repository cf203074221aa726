package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaidi-io/kaidibot/internal/lark"
	"github.com/kaidi-io/kaidibot/internal/store"
)

// Bot is the outbound surface the built-in handlers use.
type Bot interface {
	ReplyText(ctx context.Context, messageID, text string) (string, error)
	ReplyCard(ctx context.Context, messageID string, card lark.Card) (string, error)
	DeleteChat(ctx context.Context, chatID string) error
	ListChats(ctx context.Context) ([]lark.ChatSummary, error)
}

// Chatter streams a free-form completion back onto the triggering message.
type Chatter interface {
	Respond(ctx context.Context, userID, messageID, text string) error
}

// OrderService is the work-order entry points reachable from commands.
type OrderService interface {
	Menu(ctx context.Context, messageID string) error
	Done(ctx context.Context, chatID string) error
	ChangeOperator(ctx context.Context, chatID, requester, newOperator string) error
}

// P2PSpecs builds the direct-chat command table.
func P2PSpecs(bot Bot, convs store.ConversationStore, orders OrderService, reader *Reader) []Spec {
	return []Spec{
		{
			Name:    "id",
			Usage:   "id [@user]: get yourself or other user id",
			Handler: &idP2PHandler{bot: bot},
		},
		{
			Name:    "group",
			Usage:   "group list: display group list\n\tgroup delete <group_id1 group_id2 ...>: delete group[s]",
			Handler: &groupAdminHandler{bot: bot},
		},
		{
			Name:    "order",
			Usage:   "order: work order",
			Handler: HandlerFunc(func(ctx context.Context, req Request) error {
				return orders.Menu(ctx, req.Event.MessageID)
			}),
		},
		{
			Name:    "prompt",
			Usage:   "prompt info: display prompt info\n\tprompt <prompt>: insert prompt",
			Handler: &promptHandler{bot: bot, convs: convs},
		},
		{
			Name:    "model",
			Usage:   "model <name>: set completion model",
			Handler: &modelHandler{bot: bot, convs: convs},
		},
		{
			Name:    "clear",
			Usage:   "clear: clear chat prompt and history and model",
			Handler: &clearHandler{bot: bot, convs: convs},
		},
		{
			Name:    "read",
			Usage:   "read <url>: fetch a page and reply with its readable text",
			Handler: &readHandler{bot: bot, reader: reader},
		},
	}
}

// ChatFallback wraps the streaming responder as the default direct-chat
// handler. The whole message text becomes the prompt.
func ChatFallback(chatter Chatter) Handler {
	return HandlerFunc(func(ctx context.Context, req Request) error {
		return chatter.Respond(ctx, req.Event.SenderID, req.Event.MessageID, req.Event.Text)
	})
}

type idP2PHandler struct {
	bot Bot
}

func (h *idP2PHandler) Execute(ctx context.Context, req Request) error {
	ev := req.Event
	userID, openID := ev.SenderID, ev.SenderOpenID
	searched := len(ev.Mentions) > 0
	if searched {
		userID, openID = ev.Mentions[0].UserID, ev.Mentions[0].OpenID
	}
	_, err := h.bot.ReplyCard(ctx, ev.MessageID, lark.UID(userID, openID, searched))
	return err
}

type groupAdminHandler struct {
	bot Bot
}

func (h *groupAdminHandler) Execute(ctx context.Context, req Request) error {
	if len(req.Args) < 1 {
		_, err := h.bot.ReplyText(ctx, req.Event.MessageID, "group list/delete")
		return err
	}
	switch req.Args[0] {
	case "list":
		chats, err := h.bot.ListChats(ctx)
		if err != nil {
			return fmt.Errorf("command: list groups: %w", err)
		}
		_, err = h.bot.ReplyCard(ctx, req.Event.MessageID, lark.Groups(chats))
		return err
	case "delete":
		if len(req.Args) < 2 {
			_, err := h.bot.ReplyText(ctx, req.Event.MessageID, "group delete <group_id>")
			return err
		}
		var b strings.Builder
		for _, chatID := range req.Args[1:] {
			if err := h.bot.DeleteChat(ctx, chatID); err != nil {
				fmt.Fprintf(&b, "delete group %s failed\n", chatID)
			} else {
				fmt.Fprintf(&b, "delete group %s success\n", chatID)
			}
		}
		_, err := h.bot.ReplyText(ctx, req.Event.MessageID, b.String())
		return err
	}
	return nil
}

type promptHandler struct {
	bot   Bot
	convs store.ConversationStore
}

func (h *promptHandler) Execute(ctx context.Context, req Request) error {
	if len(req.Args) < 1 {
		_, err := h.bot.ReplyText(ctx, req.Event.MessageID, "prompt <prompt>")
		return err
	}
	userID := req.Event.SenderID
	if req.Args[0] == "info" {
		conv, err := h.convs.Get(userID)
		if err != nil {
			_, rerr := h.bot.ReplyText(ctx, req.Event.MessageID, "no chat data, send `clear` first")
			if rerr != nil {
				return rerr
			}
			return nil
		}
		info := fmt.Sprintf("prompt: %s\nmodel: %s", conv.Prompt, conv.Model)
		_, err = h.bot.ReplyText(ctx, req.Event.MessageID, info)
		return err
	}

	// setting a prompt starts a fresh conversation
	if err := h.convs.Reset(userID); err != nil {
		return fmt.Errorf("command: reset conversation: %w", err)
	}
	if err := h.convs.SetPrompt(userID, strings.Join(req.Args, " ")); err != nil {
		return fmt.Errorf("command: set prompt: %w", err)
	}
	_, err := h.bot.ReplyText(ctx, req.Event.MessageID, "prompt success")
	return err
}

type modelHandler struct {
	bot   Bot
	convs store.ConversationStore
}

func (h *modelHandler) Execute(ctx context.Context, req Request) error {
	if len(req.Args) < 1 {
		_, err := h.bot.ReplyText(ctx, req.Event.MessageID, "model <name>")
		return err
	}
	userID := req.Event.SenderID
	if err := h.convs.Reset(userID); err != nil {
		return fmt.Errorf("command: reset conversation: %w", err)
	}
	if err := h.convs.SetModel(userID, req.Args[0]); err != nil {
		return fmt.Errorf("command: set model: %w", err)
	}
	_, err := h.bot.ReplyText(ctx, req.Event.MessageID, "model success")
	return err
}

type clearHandler struct {
	bot   Bot
	convs store.ConversationStore
}

func (h *clearHandler) Execute(ctx context.Context, req Request) error {
	if err := h.convs.Reset(req.Event.SenderID); err != nil {
		return fmt.Errorf("command: reset conversation: %w", err)
	}
	_, err := h.bot.ReplyText(ctx, req.Event.MessageID, "clear success")
	return err
}

type readHandler struct {
	bot    Bot
	reader *Reader
}

func (h *readHandler) Execute(ctx context.Context, req Request) error {
	if len(req.Args) < 1 {
		_, err := h.bot.ReplyText(ctx, req.Event.MessageID, "read <url>")
		return err
	}
	article, err := h.reader.Fetch(ctx, req.Args[0])
	if err != nil {
		_, rerr := h.bot.ReplyText(ctx, req.Event.MessageID, "fetch failed: "+err.Error())
		if rerr != nil {
			return rerr
		}
		return fmt.Errorf("command: read %s: %w", req.Args[0], err)
	}
	body := fmt.Sprintf("**%s**\n\n%s", article.Title, article.Text)
	_, err = h.bot.ReplyCard(ctx, req.Event.MessageID, lark.Markdown(body))
	return err
}
