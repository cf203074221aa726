package protocol

// ChatKind distinguishes direct (peer-to-peer) and group conversations.
type ChatKind string

const (
	ChatP2P   ChatKind = "p2p"
	ChatGroup ChatKind = "group"
)

// Mention is a user referenced with an @-token inside a message.
type Mention struct {
	Key    string `json:"key"` // placeholder token in the raw text, e.g. "@_user_1"
	Name   string `json:"name"`
	UserID string `json:"user_id"`
	OpenID string `json:"open_id"`
}

// MessageEvent is an inbound text message delivered by the platform webhook.
type MessageEvent struct {
	ChatKind     ChatKind  `json:"chat_kind"`
	ChatID       string    `json:"chat_id"`
	MessageID    string    `json:"message_id"`
	SenderID     string    `json:"sender_id"`
	SenderOpenID string    `json:"sender_open_id"`
	Text         string    `json:"text"`
	Mentions     []Mention `json:"mentions,omitempty"`
}
