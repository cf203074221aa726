package command

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kaidi-io/kaidibot/pkg/protocol"
)

type recordedCall struct {
	name string
	req  Request
}

// recorder collects handler invocations across pool goroutines.
type recorder struct {
	mu    sync.Mutex
	calls []recordedCall
	ch    chan recordedCall
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan recordedCall, 16)}
}

func (r *recorder) handler(name string) Handler {
	return HandlerFunc(func(ctx context.Context, req Request) error {
		call := recordedCall{name: name, req: req}
		r.mu.Lock()
		r.calls = append(r.calls, call)
		r.mu.Unlock()
		r.ch <- call
		return nil
	})
}

func (r *recorder) wait(t *testing.T) recordedCall {
	t.Helper()
	select {
	case call := <-r.ch:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("no handler invoked")
		return recordedCall{}
	}
}

func (r *recorder) assertNone(t *testing.T) {
	t.Helper()
	select {
	case call := <-r.ch:
		t.Fatalf("unexpected handler invocation: %+v", call)
	case <-time.After(100 * time.Millisecond):
	}
}

type textRecorder struct {
	mu    sync.Mutex
	texts []string
	ch    chan string
}

func newTextRecorder() *textRecorder {
	return &textRecorder{ch: make(chan string, 16)}
}

func (r *textRecorder) ReplyText(ctx context.Context, messageID, text string) (string, error) {
	r.mu.Lock()
	r.texts = append(r.texts, text)
	r.mu.Unlock()
	r.ch <- text
	return "msg", nil
}

func newTestRouter(t *testing.T, rec *recorder, replier TextReplier) (*Router, *Pool) {
	t.Helper()
	pool := NewPool(2, 16, nil)
	t.Cleanup(pool.Close)

	router, err := NewRouter("Kaidi", pool, replier, nil)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	router.RegisterP2P(Spec{Name: "id", Usage: "id: ids", Handler: rec.handler("p2p-id")})
	router.RegisterP2P(Spec{Name: "order", Usage: "order: work order", Handler: rec.handler("p2p-order")})
	router.RegisterGroup(Spec{Name: "done", Usage: "done: close", Handler: rec.handler("group-done")})
	return router, pool
}

func botMention(name string) protocol.Mention {
	return protocol.Mention{Key: "@_user_1", Name: name, UserID: "bot-uid"}
}

func TestDispatchP2PFirstToken(t *testing.T) {
	rec := newRecorder()
	router, _ := newTestRouter(t, rec, newTextRecorder())

	router.Dispatch(protocol.MessageEvent{
		ChatKind:  protocol.ChatP2P,
		MessageID: "m1",
		SenderID:  "u1",
		Text:      "order extra args",
	})

	call := rec.wait(t)
	if call.name != "p2p-order" {
		t.Errorf("handler = %q", call.name)
	}
	if len(call.req.Args) != 2 || call.req.Args[0] != "extra" {
		t.Errorf("args = %v", call.req.Args)
	}
}

func TestDispatchGroupSecondToken(t *testing.T) {
	rec := newRecorder()
	router, _ := newTestRouter(t, rec, newTextRecorder())

	router.Dispatch(protocol.MessageEvent{
		ChatKind: protocol.ChatGroup,
		ChatID:   "oc-1",
		Text:     "@_user_1 done",
		Mentions: []protocol.Mention{botMention("Kaidi Robot")},
	})

	if call := rec.wait(t); call.name != "group-done" {
		t.Errorf("handler = %q", call.name)
	}
}

func TestDispatchGroupMentionGate(t *testing.T) {
	rec := newRecorder()
	router, _ := newTestRouter(t, rec, newTextRecorder())

	// mention of some other bot: dropped
	router.Dispatch(protocol.MessageEvent{
		ChatKind: protocol.ChatGroup,
		Text:     "@_user_1 done",
		Mentions: []protocol.Mention{botMention("OtherBot")},
	})
	rec.assertNone(t)

	// no mention metadata at all: dropped
	router.Dispatch(protocol.MessageEvent{
		ChatKind: protocol.ChatGroup,
		Text:     "@_user_1 done",
	})
	rec.assertNone(t)
}

func TestDispatchP2PFallback(t *testing.T) {
	rec := newRecorder()
	router, _ := newTestRouter(t, rec, newTextRecorder())
	router.SetFallback(rec.handler("fallback"))

	router.Dispatch(protocol.MessageEvent{
		ChatKind:  protocol.ChatP2P,
		MessageID: "m1",
		SenderID:  "u1",
		Text:      "what is the answer to everything",
	})

	call := rec.wait(t)
	if call.name != "fallback" {
		t.Errorf("handler = %q", call.name)
	}
	if call.req.Event.Text != "what is the answer to everything" {
		t.Errorf("fallback text = %q", call.req.Event.Text)
	}
}

func TestDispatchGroupUnmatchedDropped(t *testing.T) {
	rec := newRecorder()
	router, _ := newTestRouter(t, rec, newTextRecorder())
	router.SetFallback(rec.handler("fallback"))

	router.Dispatch(protocol.MessageEvent{
		ChatKind: protocol.ChatGroup,
		Text:     "@_user_1 frobnicate",
		Mentions: []protocol.Mention{botMention("Kaidi Robot")},
	})
	rec.assertNone(t)
}

func TestDispatchHelp(t *testing.T) {
	rec := newRecorder()
	replier := newTextRecorder()
	router, _ := newTestRouter(t, rec, replier)

	router.Dispatch(protocol.MessageEvent{
		ChatKind:  protocol.ChatP2P,
		MessageID: "m1",
		Text:      "help",
	})

	select {
	case text := <-replier.ch:
		if !strings.Contains(text, "Usage:") || !strings.Contains(text, "order: work order") {
			t.Errorf("help text = %q", text)
		}
		if strings.Contains(text, "done: close") {
			t.Error("p2p help lists group commands")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no help reply")
	}
	rec.assertNone(t)
}

func TestDispatchGroupHelp(t *testing.T) {
	rec := newRecorder()
	replier := newTextRecorder()
	router, _ := newTestRouter(t, rec, replier)

	router.Dispatch(protocol.MessageEvent{
		ChatKind:  protocol.ChatGroup,
		MessageID: "m1",
		Text:      "@_user_1 help",
		Mentions:  []protocol.Mention{botMention("Kaidi Robot")},
	})

	select {
	case text := <-replier.ch:
		if !strings.Contains(text, "done: close") {
			t.Errorf("group help text = %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no help reply")
	}
}

func TestDispatchEmptyText(t *testing.T) {
	rec := newRecorder()
	router, _ := newTestRouter(t, rec, newTextRecorder())
	router.SetFallback(rec.handler("fallback"))

	router.Dispatch(protocol.MessageEvent{ChatKind: protocol.ChatP2P, Text: "   "})
	rec.assertNone(t)

	// a bare mention with no command token
	router.Dispatch(protocol.MessageEvent{
		ChatKind: protocol.ChatGroup,
		Text:     "@_user_1",
		Mentions: []protocol.Mention{botMention("Kaidi Robot")},
	})
	rec.assertNone(t)
}
