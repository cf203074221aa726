// Package lark is a minimal wire client for the Lark (Feishu) open platform:
// message send/reply/patch, interactive cards, and group chat administration.
package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Client talks to the Lark open API with a cached tenant access token.
type Client struct {
	client    *http.Client
	baseURL   string
	appID     string
	appSecret string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// New creates a Lark client for the given app credentials.
func New(appID, appSecret string, opts ...Option) *Client {
	c := &Client{
		client:    &http.Client{Timeout: 30 * time.Second},
		baseURL:   "https://open.feishu.cn/open-apis",
		appID:     appID,
		appSecret: appSecret,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- wire envelope ---

type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"` // seconds
}

// tenantToken returns a cached tenant access token, refreshing when it is
// within a minute of expiry.
func (c *Client) tenantToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExp.Add(-time.Minute)) {
		return c.token, nil
	}

	payload, _ := json.Marshal(map[string]string{
		"app_id":     c.appID,
		"app_secret": c.appSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/v3/tenant_access_token/internal", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("lark: token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("lark: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("lark: token response: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("lark: token response: %w", err)
	}
	if tok.Code != 0 {
		return "", fmt.Errorf("lark: token error (code %d): %s", tok.Code, tok.Msg)
	}

	c.token = tok.TenantAccessToken
	c.tokenExp = time.Now().Add(time.Duration(tok.Expire) * time.Second)
	return c.token, nil
}

// do issues an authenticated JSON request and decodes the data envelope into
// out (which may be nil when the caller only cares about success).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tenantToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("lark: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("lark: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("lark: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("lark: read response: %w", err)
	}

	var env apiResponse
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("lark: unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if env.Code != 0 {
		return fmt.Errorf("lark: api error (code %d): %s", env.Code, env.Msg)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("lark: unmarshal data: %w", err)
		}
	}
	return nil
}

// --- messages ---

type createMessageBody struct {
	ReceiveID string `json:"receive_id"`
	MsgType   string `json:"msg_type"`
	Content   string `json:"content"`
	UUID      string `json:"uuid"`
}

type messageData struct {
	MessageID string `json:"message_id"`
}

func (c *Client) send(ctx context.Context, idType, receiveID, msgType string, content any) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("lark: marshal content: %w", err)
	}
	body := createMessageBody{
		ReceiveID: receiveID,
		MsgType:   msgType,
		Content:   string(raw),
		UUID:      uuid.NewString(), // platform-side dedup on transport retry
	}
	return c.do(ctx, http.MethodPost, "/im/v1/messages?receive_id_type="+idType, body, nil)
}

// SendText sends a plain text message. idType is "user_id", "open_id", or "chat_id".
func (c *Client) SendText(ctx context.Context, idType, receiveID, text string) error {
	return c.send(ctx, idType, receiveID, "text", map[string]string{"text": text})
}

// SendCard sends an interactive card message.
func (c *Client) SendCard(ctx context.Context, idType, receiveID string, card Card) error {
	return c.send(ctx, idType, receiveID, "interactive", card)
}

type replyMessageBody struct {
	MsgType string `json:"msg_type"`
	Content string `json:"content"`
	UUID    string `json:"uuid"`
}

func (c *Client) reply(ctx context.Context, messageID, msgType string, content any) (string, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("lark: marshal content: %w", err)
	}
	body := replyMessageBody{
		MsgType: msgType,
		Content: string(raw),
		UUID:    uuid.NewString(),
	}
	var data messageData
	if err := c.do(ctx, http.MethodPost, "/im/v1/messages/"+messageID+"/reply", body, &data); err != nil {
		return "", err
	}
	return data.MessageID, nil
}

// ReplyText replies to a message with plain text and returns the new message id.
func (c *Client) ReplyText(ctx context.Context, messageID, text string) (string, error) {
	return c.reply(ctx, messageID, "text", map[string]string{"text": text})
}

// ReplyCard replies to a message with an interactive card and returns the new
// message id, which can later be patched in place.
func (c *Client) ReplyCard(ctx context.Context, messageID string, card Card) (string, error) {
	return c.reply(ctx, messageID, "interactive", card)
}

// PatchCard overwrites the content of an existing card message. Replaying the
// same content is a no-op on the platform side.
func (c *Client) PatchCard(ctx context.Context, messageID string, card Card) error {
	raw, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("lark: marshal content: %w", err)
	}
	body := map[string]string{"content": string(raw)}
	return c.do(ctx, http.MethodPatch, "/im/v1/messages/"+messageID, body, nil)
}

// --- group chats ---

// ChatSummary describes a group chat the bot belongs to.
type ChatSummary struct {
	ChatID string `json:"chat_id"`
	Name   string `json:"name"`
}

type createChatBody struct {
	Name                   string   `json:"name"`
	Description            string   `json:"description"`
	UserIDList             []string `json:"user_id_list"`
	ChatMode               string   `json:"chat_mode"`
	ChatType               string   `json:"chat_type"`
	JoinMessageVisibility  string   `json:"join_message_visibility"`
	LeaveMessageVisibility string   `json:"leave_message_visibility"`
	MembershipApproval     string   `json:"membership_approval"`
}

type chatData struct {
	ChatID string `json:"chat_id"`
	Name   string `json:"name"`
}

// CreateChat creates a private group chat with the given members and returns
// its chat id. The bot is made a manager so it can rename the chat later.
func (c *Client) CreateChat(ctx context.Context, name string, userIDs []string, description string) (string, error) {
	body := createChatBody{
		Name:                   name,
		Description:            description,
		UserIDList:             userIDs,
		ChatMode:               "group",
		ChatType:               "private",
		JoinMessageVisibility:  "all_members",
		LeaveMessageVisibility: "all_members",
		MembershipApproval:     "no_approval_required",
	}
	var data chatData
	path := "/im/v1/chats?user_id_type=user_id&set_bot_manager=true&uuid=" + uuid.NewString()
	if err := c.do(ctx, http.MethodPost, path, body, &data); err != nil {
		return "", err
	}
	return data.ChatID, nil
}

// RenameChat updates a group chat's name.
func (c *Client) RenameChat(ctx context.Context, chatID, name string) error {
	body := map[string]string{"name": name}
	return c.do(ctx, http.MethodPut, "/im/v1/chats/"+chatID+"?user_id_type=user_id", body, nil)
}

// DeleteChat disbands a group chat.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodDelete, "/im/v1/chats/"+chatID, nil, nil)
}

// ChatName returns a group chat's current name.
func (c *Client) ChatName(ctx context.Context, chatID string) (string, error) {
	var data chatData
	if err := c.do(ctx, http.MethodGet, "/im/v1/chats/"+chatID, nil, &data); err != nil {
		return "", err
	}
	return data.Name, nil
}

type listChatsData struct {
	Items     []ChatSummary `json:"items"`
	HasMore   bool          `json:"has_more"`
	PageToken string        `json:"page_token"`
}

// ListChats returns every group chat the bot is in, following pagination.
func (c *Client) ListChats(ctx context.Context) ([]ChatSummary, error) {
	var all []ChatSummary
	pageToken := ""
	for {
		path := "/im/v1/chats?user_id_type=user_id&sort_type=ByCreateTimeAsc"
		if pageToken != "" {
			path += "&page_token=" + pageToken
		}
		var data listChatsData
		if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
			return nil, err
		}
		all = append(all, data.Items...)
		if !data.HasMore {
			return all, nil
		}
		pageToken = data.PageToken
	}
}
