package protocol

import "time"

// Conversation is the per-user direct-chat state: an optional prompt prefix,
// the accumulated transcript, and an optional model override. At most one
// exists per user; a reset replaces it wholesale.
type Conversation struct {
	UserID    string    `json:"user_id"`
	Model     string    `json:"model,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
