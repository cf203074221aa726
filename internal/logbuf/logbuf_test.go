package logbuf

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestRingEviction(t *testing.T) {
	b := New(3)
	for i := 0; i < 5; i++ {
		b.Write(Entry{Time: time.Now(), Level: "INFO", Message: string(rune('a' + i))})
	}
	got := b.Query(time.Time{}, slog.LevelDebug, 0)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Message != "c" || got[2].Message != "e" {
		t.Errorf("got %q..%q, want c..e", got[0].Message, got[2].Message)
	}
}

func TestQueryLevelFilter(t *testing.T) {
	b := New(10)
	b.Write(Entry{Time: time.Now(), Level: "DEBUG", Message: "d"})
	b.Write(Entry{Time: time.Now(), Level: "ERROR", Message: "e"})

	got := b.Query(time.Time{}, slog.LevelWarn, 0)
	if len(got) != 1 || got[0].Message != "e" {
		t.Errorf("got %v", got)
	}
}

func TestQuerySinceAndLimit(t *testing.T) {
	b := New(10)
	old := time.Now().Add(-time.Hour)
	b.Write(Entry{Time: old, Level: "INFO", Message: "old"})
	for _, m := range []string{"one", "two", "three"} {
		b.Write(Entry{Time: time.Now(), Level: "INFO", Message: m})
	}

	got := b.Query(time.Now().Add(-time.Minute), slog.LevelDebug, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Message != "two" || got[1].Message != "three" {
		t.Errorf("got %v", got)
	}
}

func TestHandlerCapturesAllLevels(t *testing.T) {
	buf := New(10)
	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	logger := slog.New(NewHandler(inner, buf))

	logger.Debug("quiet", "k", "v")
	logger.With("component", "test").Info("hello")

	got := buf.Query(time.Time{}, slog.LevelDebug, 0)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Attrs["k"] != "v" {
		t.Errorf("attrs = %v", got[0].Attrs)
	}
	if got[1].Attrs["component"] != "test" {
		t.Errorf("attrs = %v", got[1].Attrs)
	}
}
