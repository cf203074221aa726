package store

import (
	"errors"
	"testing"
)

func TestResetCreatesRow(t *testing.T) {
	s := newTestStore(t)

	if err := s.Reset("u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	c, err := s.Get("u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.Prompt != "" || c.Content != "" || c.Model != "" {
		t.Errorf("fresh row not empty: %+v", c)
	}
}

func TestResetReplacesState(t *testing.T) {
	s := newTestStore(t)
	s.Reset("u1")
	s.SetPrompt("u1", "be terse")
	s.SetModel("u1", "gpt-4o-mini")
	s.AppendContent("u1", "Q: hi\nA: hello\n")

	if err := s.Reset("u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	c, _ := s.Get("u1")
	if c.Prompt != "" || c.Content != "" || c.Model != "" {
		t.Errorf("reset did not clear: %+v", c)
	}
}

func TestGetMissingConversation(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPartialUpdatesAreIndependent(t *testing.T) {
	s := newTestStore(t)
	s.Reset("u1")

	if err := s.SetPrompt("u1", "you are a pirate"); err != nil {
		t.Fatalf("set prompt: %v", err)
	}
	if err := s.SetModel("u1", "gpt-4o"); err != nil {
		t.Fatalf("set model: %v", err)
	}
	c, _ := s.Get("u1")
	if c.Prompt != "you are a pirate" || c.Model != "gpt-4o" {
		t.Errorf("got %+v", c)
	}
	if c.Content != "" {
		t.Errorf("content touched: %q", c.Content)
	}
}

func TestAppendContentAccumulates(t *testing.T) {
	s := newTestStore(t)
	s.Reset("u1")

	s.AppendContent("u1", "first ")
	s.AppendContent("u1", "second")

	c, _ := s.Get("u1")
	if c.Content != "first second" {
		t.Errorf("content = %q", c.Content)
	}
}

func TestUpdateMissingUser(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetPrompt("ghost", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListConversations(t *testing.T) {
	s := newTestStore(t)
	s.Reset("u1")
	s.Reset("u2")

	got, err := s.ListConversations(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d", len(got))
	}
}
