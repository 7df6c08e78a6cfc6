package queue

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryQueue struct {
	mu    sync.Mutex
	items []Item
	now   func() time.Time
}

// NewMemoryQueue returns a queue with no durability, for tests and
// throwaway runs.
func NewMemoryQueue() Queue {
	return &memoryQueue{now: time.Now}
}

func (q *memoryQueue) Enqueue(op Operation, path, content string) (Item, error) {
	if !op.Valid() || strings.TrimSpace(path) == "" {
		return Item{}, ErrInvalidInput
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	item := Item{
		ID:        uuid.NewString(),
		Operation: op,
		Path:      path,
		Content:   content,
		CreatedAt: q.now().UTC(),
	}
	q.items = append(q.items, item)
	return item, nil
}

func (q *memoryQueue) ListPending() ([]Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := append([]Item(nil), q.items...)
	sortItems(items)
	return items, nil
}

func (q *memoryQueue) MarkDone(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.items {
		if q.items[i].ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *memoryQueue) RecordFailure(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.items {
		if q.items[i].ID == id {
			q.items[i].RetryCount++
			return nil
		}
	}
	return nil
}

func (q *memoryQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *memoryQueue) Close() error {
	return nil
}
