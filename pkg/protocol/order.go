package protocol

import "time"

// OrderStatus represents the lifecycle state of a work order.
type OrderStatus string

const (
	OrderOpen OrderStatus = "open"
	OrderDone OrderStatus = "done" // terminal
)

// WorkOrder is a trackable request routed through a dedicated group chat.
type WorkOrder struct {
	ID          int64       `json:"id"`
	ChatID      string      `json:"chat_id"` // group chat hosting this order, immutable
	Applicant   string      `json:"applicant"`
	Operator    string      `json:"operator"`
	Status      OrderStatus `json:"status"`
	Classify    string      `json:"classify"`
	Description string      `json:"description"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Deadline    time.Time   `json:"deadline"`
}

// Closed reports whether the order has reached its terminal state.
func (o *WorkOrder) Closed() bool {
	return o.Status == OrderDone
}
