package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kaidi-io/kaidibot/pkg/protocol"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testOrder(chatID string) *protocol.WorkOrder {
	now := time.Now().Truncate(time.Second)
	return &protocol.WorkOrder{
		ChatID:      chatID,
		Applicant:   "U1",
		Operator:    "A1",
		Status:      protocol.OrderOpen,
		Classify:    "Work Order",
		Description: "printer on fire",
		CreatedAt:   now,
		UpdatedAt:   now,
		Deadline:    now.Add(48 * time.Hour),
	}
}

func TestInsertAndGetByChatID(t *testing.T) {
	s := newTestStore(t)

	o := testOrder("oc_1")
	if err := s.Insert(o); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if o.ID == 0 {
		t.Error("expected assigned ID")
	}

	got, err := s.GetByChatID("oc_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Applicant != "U1" || got.Operator != "A1" {
		t.Errorf("got %+v", got)
	}
	if got.Status != protocol.OrderOpen {
		t.Errorf("status = %q", got.Status)
	}
	if !got.Deadline.After(got.CreatedAt) {
		t.Errorf("deadline %v not after created_at %v", got.Deadline, got.CreatedAt)
	}
}

func TestGetByChatIDNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetByChatID("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateOperator(t *testing.T) {
	s := newTestStore(t)
	o := testOrder("oc_2")
	s.Insert(o)

	if err := s.UpdateOperator(o.ID, "U2"); err != nil {
		t.Fatalf("update operator: %v", err)
	}
	got, _ := s.GetByChatID("oc_2")
	if got.Operator != "U2" {
		t.Errorf("operator = %q", got.Operator)
	}
	if got.UpdatedAt.Before(o.UpdatedAt) {
		t.Errorf("updated_at went backwards: %v < %v", got.UpdatedAt, o.UpdatedAt)
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateStatus(999, protocol.OrderDone)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListDue(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Truncate(time.Second)

	due := testOrder("oc_due")
	due.Deadline = now.Add(-time.Hour)
	s.Insert(due)

	future := testOrder("oc_future")
	future.Deadline = now.Add(time.Hour)
	s.Insert(future)

	closed := testOrder("oc_closed")
	closed.Deadline = now.Add(-time.Hour)
	s.Insert(closed)
	s.UpdateStatus(closed.ID, protocol.OrderDone)

	got, err := s.ListDue(now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(got) != 1 || got[0].ChatID != "oc_due" {
		t.Errorf("got %d due orders: %+v", len(got), got)
	}
}

func TestUpdateDeadline(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Truncate(time.Second)

	o := testOrder("oc_3")
	o.Deadline = now.Add(-time.Hour)
	s.Insert(o)

	next := now.Add(48 * time.Hour)
	if err := s.UpdateDeadline(o.ID, next); err != nil {
		t.Fatalf("update deadline: %v", err)
	}

	due, _ := s.ListDue(now)
	if len(due) != 0 {
		t.Errorf("order still due after deadline push: %+v", due)
	}
	got, _ := s.GetByChatID("oc_3")
	if !got.Deadline.Equal(next.UTC()) {
		t.Errorf("deadline = %v, want %v", got.Deadline, next.UTC())
	}
	if got.Status != protocol.OrderOpen {
		t.Errorf("status changed to %q", got.Status)
	}
}

func TestListFilter(t *testing.T) {
	s := newTestStore(t)
	a := testOrder("oc_a")
	s.Insert(a)
	b := testOrder("oc_b")
	b.Applicant = "U9"
	s.Insert(b)
	s.UpdateStatus(b.ID, protocol.OrderDone)

	open := protocol.OrderOpen
	got, err := s.ListOrders(OrderFilter{Status: &open})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ChatID != "oc_a" {
		t.Errorf("open filter got %+v", got)
	}

	got, _ = s.ListOrders(OrderFilter{Applicant: "U9"})
	if len(got) != 1 || got[0].ChatID != "oc_b" {
		t.Errorf("applicant filter got %+v", got)
	}
}
