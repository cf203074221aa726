package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/kaidi-io/kaidibot/pkg/protocol"
)

// envelope is the common shape of a pushed event body after decryption.
// url_verification requests carry challenge/token/type at the top level;
// normal events carry a 2.0 header plus the event payload.
type envelope struct {
	Challenge string `json:"challenge"`
	Token     string `json:"token"`
	Type      string `json:"type"`

	Schema string          `json:"schema"`
	Header eventHeader     `json:"header"`
	Event  json.RawMessage `json:"event"`
}

type eventHeader struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Token     string `json:"token"`
	AppID     string `json:"app_id"`
}

type userID struct {
	UserID  string `json:"user_id"`
	OpenID  string `json:"open_id"`
	UnionID string `json:"union_id"`
}

type messageReceive struct {
	Sender struct {
		SenderID userID `json:"sender_id"`
	} `json:"sender"`
	Message struct {
		MessageID   string `json:"message_id"`
		ChatID      string `json:"chat_id"`
		ChatType    string `json:"chat_type"`
		MessageType string `json:"message_type"`
		Content     string `json:"content"`
		Mentions    []struct {
			Key  string `json:"key"`
			Name string `json:"name"`
			ID   userID `json:"id"`
		} `json:"mentions"`
	} `json:"message"`
}

type botAdded struct {
	ChatID string `json:"chat_id"`
}

// cardCallback is the body posted to the card action endpoint.
type cardCallback struct {
	Challenge string `json:"challenge"`
	Token     string `json:"token"`
	Type      string `json:"type"`

	UserID        string `json:"user_id"`
	OpenID        string `json:"open_id"`
	OpenMessageID string `json:"open_message_id"`
	OpenChatID    string `json:"open_chat_id"`
	Action        struct {
		Tag    string          `json:"tag"`
		Option string          `json:"option"`
		Value  json.RawMessage `json:"value"`
	} `json:"action"`
}

// actionName pulls the "action" discriminator out of the button value.
func (c *cardCallback) actionName() string {
	var v struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(c.Action.Value, &v); err != nil {
		return ""
	}
	return v.Action
}

// toMessageEvent converts a raw message receive payload, unpacking the text
// from its JSON content wrapper.
func toMessageEvent(raw json.RawMessage) (protocol.MessageEvent, error) {
	var mr messageReceive
	if err := json.Unmarshal(raw, &mr); err != nil {
		return protocol.MessageEvent{}, fmt.Errorf("webhook: parse message event: %w", err)
	}
	if mr.Message.MessageType != "text" {
		return protocol.MessageEvent{}, fmt.Errorf("webhook: unsupported message type %q", mr.Message.MessageType)
	}

	var content struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(mr.Message.Content), &content); err != nil {
		return protocol.MessageEvent{}, fmt.Errorf("webhook: parse message content: %w", err)
	}

	kind := protocol.ChatP2P
	if mr.Message.ChatType == "group" {
		kind = protocol.ChatGroup
	}

	ev := protocol.MessageEvent{
		ChatKind:     kind,
		ChatID:       mr.Message.ChatID,
		MessageID:    mr.Message.MessageID,
		SenderID:     mr.Sender.SenderID.UserID,
		SenderOpenID: mr.Sender.SenderID.OpenID,
		Text:         content.Text,
	}
	for _, m := range mr.Message.Mentions {
		ev.Mentions = append(ev.Mentions, protocol.Mention{
			Key:    m.Key,
			Name:   m.Name,
			UserID: m.ID.UserID,
			OpenID: m.ID.OpenID,
		})
	}
	return ev, nil
}
