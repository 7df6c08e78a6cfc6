package queue

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotImplemented = errors.New("not implemented")
)

// DiscardThreshold is the retry count at which a pending item is dropped
// instead of retried again.
const DiscardThreshold = 50

type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

func (op Operation) Valid() bool {
	switch op {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Item is one durable pending write against the note sink.
type Item struct {
	ID         string    `json:"id"`
	Operation  Operation `json:"operation"`
	Path       string    `json:"path"`
	Content    string    `json:"content,omitempty"`
	RetryCount int       `json:"retryCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Queue persists pending write operations across restarts. Items are
// drained in (CreatedAt, ID) order; implementations never reorder.
type Queue interface {
	// Enqueue assigns a fresh id, persists the item and returns it once
	// durable. Path must be non-empty; Content is empty for deletes.
	Enqueue(op Operation, path, content string) (Item, error)
	// ListPending returns all not-yet-completed items sorted by
	// (CreatedAt, ID) ascending.
	ListPending() ([]Item, error)
	// MarkDone removes the item. Idempotent if already removed.
	MarkDone(id string) error
	// RecordFailure increments the item's RetryCount and persists it.
	RecordFailure(id string) error
	Depth() int
	Close() error
}

// ShouldDiscard reports whether the item has exhausted its retries.
func ShouldDiscard(item Item) bool {
	return item.RetryCount >= DiscardThreshold
}

func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
