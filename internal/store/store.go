package store

import (
	"errors"
	"time"

	"github.com/kaidi-io/kaidibot/pkg/protocol"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// OrderStore is the persistence interface for work orders.
type OrderStore interface {
	// Insert persists a new order and assigns its ID.
	Insert(o *protocol.WorkOrder) error
	// GetByChatID retrieves the order hosted in the given group chat.
	GetByChatID(chatID string) (*protocol.WorkOrder, error)
	// List returns orders matching the filter, newest first.
	ListOrders(filter OrderFilter) ([]*protocol.WorkOrder, error)
	// ListDue returns open orders whose deadline is at or before now.
	ListDue(now time.Time) ([]*protocol.WorkOrder, error)
	// UpdateOperator reassigns an order. Bumps updated_at.
	UpdateOperator(id int64, operator string) error
	// UpdateStatus changes an order's status. Bumps updated_at.
	UpdateStatus(id int64, status protocol.OrderStatus) error
	// UpdateDeadline moves an order's deadline. Bumps updated_at.
	UpdateDeadline(id int64, deadline time.Time) error
}

// OrderFilter constrains order list queries.
type OrderFilter struct {
	Status    *protocol.OrderStatus
	Applicant string
	Operator  string
	Limit     int // 0 = no limit
}

// ConversationStore is the persistence interface for per-user chat state.
// At most one row exists per user id.
type ConversationStore interface {
	// Get retrieves a user's conversation state.
	Get(userID string) (*protocol.Conversation, error)
	// Reset replaces the user's row with a fresh empty one.
	Reset(userID string) error
	// SetPrompt stores the prompt prefix. Bumps updated_at.
	SetPrompt(userID, prompt string) error
	// SetModel stores the model override. Bumps updated_at.
	SetModel(userID, model string) error
	// AppendContent appends text to the transcript. Bumps updated_at.
	AppendContent(userID, text string) error
	// List returns conversations, most recently updated first.
	ListConversations(limit int) ([]*protocol.Conversation, error)
}
