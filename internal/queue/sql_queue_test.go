package queue

import (
	"os"
	"path/filepath"
	"testing"
)

func TestQuoteIdentifier(t *testing.T) {
	cases := map[string]string{
		"notebridge_queue": `"notebridge_queue"`,
		`odd"name`:         `"odd""name"`,
		"  padded  ":       `"padded"`,
	}
	for in, want := range cases {
		if got := quoteIdentifier(in); got != want {
			t.Fatalf("quoteIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewSQLQueueRejectsEmptyDSN(t *testing.T) {
	if _, err := NewPostgresQueue("   "); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := NewSQLiteQueue(""); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// exerciseQueue runs the shared queue contract against a live backend.
func exerciseQueue(t *testing.T, q Queue) {
	t.Helper()
	defer q.Close()

	first, err := q.Enqueue(OpCreate, "proj/sessions/2026-03/14-a/summary", "one")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	second, err := q.Enqueue(OpDelete, "proj/sessions/2026-03/14-b/summary", "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	items, err := q.ListPending()
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(items) != 2 || items[0].ID != first.ID || items[1].ID != second.ID {
		t.Fatalf("unexpected pending items: %+v", items)
	}

	if err := q.RecordFailure(first.ID); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	items, _ = q.ListPending()
	if items[0].RetryCount != 1 {
		t.Fatalf("retry count not persisted: %+v", items[0])
	}

	if err := q.MarkDone(first.ID); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if err := q.MarkDone(first.ID); err != nil {
		t.Fatalf("MarkDone must be idempotent: %v", err)
	}
	if q.Depth() != 1 {
		t.Fatalf("depth after MarkDone: %d", q.Depth())
	}
}

func TestSQLiteQueueIntegration(t *testing.T) {
	if os.Getenv("NOTEBRIDGE_TEST_SQLITE") == "" {
		t.Skip("set NOTEBRIDGE_TEST_SQLITE=1 to run sqlite integration tests")
	}
	q, err := NewSQLiteQueue(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("NewSQLiteQueue: %v", err)
	}
	exerciseQueue(t, q)
}

func TestPostgresQueueIntegration(t *testing.T) {
	dsn := os.Getenv("NOTEBRIDGE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set NOTEBRIDGE_TEST_POSTGRES_DSN to run postgres integration tests")
	}
	q, err := NewPostgresQueue(dsn)
	if err != nil {
		t.Fatalf("NewPostgresQueue: %v", err)
	}
	exerciseQueue(t, q)
}
