// Package order owns the work-order state machine: submission, reassignment,
// closing and the periodic deadline sweep.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kaidi-io/kaidibot/internal/lark"
	"github.com/kaidi-io/kaidibot/internal/store"
	"github.com/kaidi-io/kaidibot/pkg/protocol"
)

const defaultClassify = "Work Order"

// Bot is the chat-platform surface the manager needs: group admin plus card
// sends into the order's group.
type Bot interface {
	ReplyCard(ctx context.Context, messageID string, card lark.Card) (string, error)
	SendCard(ctx context.Context, idType, receiveID string, card lark.Card) error
	CreateChat(ctx context.Context, name string, userIDs []string, description string) (string, error)
	RenameChat(ctx context.Context, chatID, name string) error
	ChatName(ctx context.Context, chatID string) (string, error)
}

// Manager drives work orders through OPEN to DONE and sweeps overdue ones.
type Manager struct {
	store     store.OrderStore
	bot       Bot
	assistant string
	grace     time.Duration
	clock     func() time.Time
	logger    *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithGrace sets the deadline window granted on submit and on each sweep.
func WithGrace(d time.Duration) Option {
	return func(m *Manager) { m.grace = d }
}

// WithClock sets the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager. assistant is the default operator assigned to
// every new order.
func NewManager(s store.OrderStore, bot Bot, assistant string, opts ...Option) *Manager {
	m := &Manager{
		store:     s,
		bot:       bot,
		assistant: assistant,
		grace:     48 * time.Hour,
		clock:     time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Menu replies to messageID with the order entry card.
func (m *Manager) Menu(ctx context.Context, messageID string) error {
	if _, err := m.bot.ReplyCard(ctx, messageID, lark.OrderMenu()); err != nil {
		return fmt.Errorf("order: reply menu: %w", err)
	}
	return nil
}

// Submit creates a dedicated group chat for a new order, announces it there
// and persists the order as OPEN with the default operator.
func (m *Manager) Submit(ctx context.Context, applicant, description string) (*protocol.WorkOrder, error) {
	now := m.clock()
	name := "⌛️Process-Order-" + now.Format("20060102150405")

	members := []string{m.assistant}
	if applicant != m.assistant {
		members = append(members, applicant)
	}
	chatID, err := m.bot.CreateChat(ctx, name, members, defaultClassify)
	if err != nil {
		return nil, fmt.Errorf("order: create chat: %w", err)
	}

	if err := m.bot.SendCard(ctx, "chat_id", chatID, lark.OrderShow(name, applicant, m.assistant, description, now)); err != nil {
		m.logger.Warn("order announce failed", "chat_id", chatID, "error", err)
	}

	o := &protocol.WorkOrder{
		ChatID:      chatID,
		Applicant:   applicant,
		Operator:    m.assistant,
		Status:      protocol.OrderOpen,
		Classify:    defaultClassify,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Deadline:    now.Add(m.grace),
	}
	if err := m.store.Insert(o); err != nil {
		return nil, fmt.Errorf("order: insert: %w", err)
	}

	m.logger.Info("work order created",
		"order_id", o.ID, "chat_id", chatID, "applicant", applicant, "operator", m.assistant)
	return o, nil
}

// Done closes the order hosted in chatID: renames the group, flips status to
// DONE and tells the applicant. A missing or already closed order is a no-op.
func (m *Manager) Done(ctx context.Context, chatID string) error {
	o, err := m.store.GetByChatID(chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.logger.Error("no work order for chat", "chat_id", chatID)
			return nil
		}
		return fmt.Errorf("order: lookup %s: %w", chatID, err)
	}
	if o.Closed() {
		m.logger.Info("work order already closed", "order_id", o.ID, "chat_id", chatID)
		return nil
	}

	name, err := m.bot.ChatName(ctx, chatID)
	if err != nil {
		return fmt.Errorf("order: chat name: %w", err)
	}
	if err := m.bot.RenameChat(ctx, chatID, doneName(name)); err != nil {
		return fmt.Errorf("order: rename chat: %w", err)
	}
	if err := m.store.UpdateStatus(o.ID, protocol.OrderDone); err != nil {
		return fmt.Errorf("order: update status: %w", err)
	}

	msg := lark.AtUser(o.Applicant) + " The work order has been completed."
	if err := m.bot.SendCard(ctx, "chat_id", chatID, lark.Markdown(msg)); err != nil {
		m.logger.Warn("done announce failed", "chat_id", chatID, "error", err)
	}

	m.logger.Info("work order closed", "order_id", o.ID, "chat_id", chatID)
	return nil
}

// ChangeOperator hands the order in chatID over to newOperator. Only the
// current operator may hand off; a rejected attempt is announced in the group
// and mutates nothing.
func (m *Manager) ChangeOperator(ctx context.Context, chatID, requester, newOperator string) error {
	o, err := m.store.GetByChatID(chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.logger.Error("no work order for chat", "chat_id", chatID)
			return nil
		}
		return fmt.Errorf("order: lookup %s: %w", chatID, err)
	}

	if requester != o.Operator {
		msg := fmt.Sprintf("Sorry %s you are not the operator, let %s try again",
			lark.AtUser(requester), lark.AtUser(o.Operator))
		if err := m.bot.SendCard(ctx, "chat_id", chatID, lark.Markdown(msg)); err != nil {
			m.logger.Warn("reject announce failed", "chat_id", chatID, "error", err)
		}
		return nil
	}

	if err := m.store.UpdateOperator(o.ID, newOperator); err != nil {
		return fmt.Errorf("order: update operator: %w", err)
	}

	msg := fmt.Sprintf("%s The operator has changed to %s.",
		lark.AtUser(requester), lark.AtUser(newOperator))
	if err := m.bot.SendCard(ctx, "chat_id", chatID, lark.Markdown(msg)); err != nil {
		m.logger.Warn("operator announce failed", "chat_id", chatID, "error", err)
	}

	m.logger.Info("work order reassigned",
		"order_id", o.ID, "chat_id", chatID, "from", requester, "to", newOperator)
	return nil
}

// Check nudges every open order whose deadline has passed and pushes the
// deadline out by one grace window so it is not re-flagged next tick. Status
// is never touched. It returns how many orders were nudged.
func (m *Manager) Check(ctx context.Context, now time.Time) (int, error) {
	due, err := m.store.ListDue(now)
	if err != nil {
		return 0, fmt.Errorf("order: list due: %w", err)
	}
	if len(due) == 0 {
		m.logger.Debug("no work order to check")
		return 0, nil
	}

	nudged := 0
	for _, o := range due {
		if err := m.store.UpdateDeadline(o.ID, now.Add(m.grace)); err != nil {
			m.logger.Error("deadline update failed", "order_id", o.ID, "error", err)
			continue
		}
		if err := m.bot.SendCard(ctx, "chat_id", o.ChatID, lark.Nudge(o.Operator)); err != nil {
			m.logger.Warn("nudge failed", "order_id", o.ID, "chat_id", o.ChatID, "error", err)
		}
		nudged++
		m.logger.Info("work order nudged", "order_id", o.ID, "operator", o.Operator)
	}
	return nudged, nil
}

// doneName derives the closed-group name from the open one, keeping the
// timestamp suffix.
func doneName(name string) string {
	parts := strings.Split(name, "-")
	return "✅Done-Order-" + parts[len(parts)-1]
}
