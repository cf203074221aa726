package command

import (
	"context"
)

// GroupSpecs builds the group-chat command table.
func GroupSpecs(bot Bot, orders OrderService) []Spec {
	done := HandlerFunc(func(ctx context.Context, req Request) error {
		return orders.Done(ctx, req.Event.ChatID)
	})
	return []Spec{
		{
			Name:  "id",
			Usage: "id: get group id",
			Handler: HandlerFunc(func(ctx context.Context, req Request) error {
				_, err := bot.ReplyText(ctx, req.Event.MessageID, req.Event.ChatID)
				return err
			}),
		},
		{
			Name:    "done",
			Usage:   "done: close work order",
			Handler: done,
		},
		{
			Name:    "close",
			Usage:   "close: close work order",
			Handler: done,
		},
		{
			Name:    "operator",
			Usage:   "operator <@operator>: change work order operator",
			Handler: &operatorHandler{bot: bot, orders: orders},
		},
	}
}

type operatorHandler struct {
	bot    Bot
	orders OrderService
}

func (h *operatorHandler) Execute(ctx context.Context, req Request) error {
	ev := req.Event
	// mentions[0] is the bot itself, mentions[1] the new operator
	if len(ev.Mentions) < 2 {
		_, err := h.bot.ReplyText(ctx, ev.MessageID, "operator <@operator>")
		return err
	}
	return h.orders.ChangeOperator(ctx, ev.ChatID, ev.SenderID, ev.Mentions[1].UserID)
}
