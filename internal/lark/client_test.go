package lark

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// newTestClient spins up a fake Lark API that always grants a token and
// records non-auth requests via handle.
func newTestClient(t *testing.T, handle http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var tokenCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v3/tenant_access_token/internal" {
			atomic.AddInt32(&tokenCalls, 1)
			json.NewEncoder(w).Encode(map[string]any{
				"code": 0, "msg": "ok",
				"tenant_access_token": "t-token",
				"expire":              7200,
			})
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer t-token" {
			t.Errorf("Authorization = %q", got)
		}
		handle(w, r)
	}))
	t.Cleanup(srv.Close)
	return New("app", "secret", WithBaseURL(srv.URL)), &tokenCalls
}

func TestTokenCached(t *testing.T) {
	c, tokenCalls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 0, "msg": "ok"})
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := c.SendText(ctx, "user_id", "u1", "hi"); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if n := atomic.LoadInt32(tokenCalls); n != 1 {
		t.Errorf("token fetched %d times, want 1", n)
	}
}

func TestReplyCardReturnsMessageID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/im/v1/messages/om_orig/reply" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["msg_type"] != "interactive" {
			t.Errorf("msg_type = %v", body["msg_type"])
		}
		if body["uuid"] == "" {
			t.Error("missing uuid")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0, "msg": "ok",
			"data": map[string]any{"message_id": "om_new"},
		})
	})

	id, err := c.ReplyCard(context.Background(), "om_orig", Markdown("hello"))
	if err != nil {
		t.Fatalf("reply card: %v", err)
	}
	if id != "om_new" {
		t.Errorf("message id = %q", id)
	}
}

func TestAPIErrorCode(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 230002, "msg": "bot not in chat"})
	})

	err := c.PatchCard(context.Background(), "om_x", Markdown("x"))
	if err == nil {
		t.Fatal("expected error for non-zero code")
	}
}

func TestCreateChat(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body createChatBody
		json.NewDecoder(r.Body).Decode(&body)
		if body.ChatMode != "group" || len(body.UserIDList) != 2 {
			t.Errorf("body = %+v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0, "msg": "ok",
			"data": map[string]any{"chat_id": "oc_123"},
		})
	})

	id, err := c.CreateChat(context.Background(), "⌛️Process-Order-20240101000000", []string{"A1", "U1"}, "Work Order")
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if id != "oc_123" {
		t.Errorf("chat id = %q", id)
	}
}

func TestListChatsPagination(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_token") == "" {
			json.NewEncoder(w).Encode(map[string]any{
				"code": 0, "msg": "ok",
				"data": map[string]any{
					"items":      []ChatSummary{{ChatID: "oc_1", Name: "a"}},
					"has_more":   true,
					"page_token": "p2",
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0, "msg": "ok",
			"data": map[string]any{
				"items":    []ChatSummary{{ChatID: "oc_2", Name: "b"}},
				"has_more": false,
			},
		})
	})

	chats, err := c.ListChats(context.Background())
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	if len(chats) != 2 || chats[1].ChatID != "oc_2" {
		t.Errorf("chats = %+v", chats)
	}
}
