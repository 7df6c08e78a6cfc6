package queue

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestFromDSNFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "queue")
	q, err := FromDSN("file://" + dir)
	if err != nil {
		t.Fatalf("FromDSN(file): %v", err)
	}
	defer q.Close()
	if _, ok := q.(*fileQueue); !ok {
		t.Fatalf("expected file queue, got %T", q)
	}
}

func TestFromDSNBarePath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "queue")
	q, err := FromDSN(dir)
	if err != nil {
		t.Fatalf("FromDSN(bare path): %v", err)
	}
	defer q.Close()
	if _, ok := q.(*fileQueue); !ok {
		t.Fatalf("expected file queue, got %T", q)
	}
}

func TestFromDSNMemory(t *testing.T) {
	for _, dsn := range []string{"memory://", "mem://", "inmem://"} {
		q, err := FromDSN(dsn)
		if err != nil {
			t.Fatalf("FromDSN(%s): %v", dsn, err)
		}
		if _, ok := q.(*memoryQueue); !ok {
			t.Fatalf("expected memory queue for %s, got %T", dsn, q)
		}
	}
}

func TestFromDSNNotImplemented(t *testing.T) {
	for _, dsn := range []string{"redis://localhost:6379", "nats://localhost", "sqs://queue", "kafka://broker"} {
		if _, err := FromDSN(dsn); !errors.Is(err, ErrNotImplemented) {
			t.Fatalf("FromDSN(%s): expected ErrNotImplemented, got %v", dsn, err)
		}
	}
}

func TestFromDSNUnsupported(t *testing.T) {
	if _, err := FromDSN("carrierpigeon://coop"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
	if _, err := FromDSN("   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty dsn, got %v", err)
	}
}
