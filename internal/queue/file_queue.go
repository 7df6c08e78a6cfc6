package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fileQueue stores one JSON record per pending item in a dedicated
// directory. File names carry the creation timestamp so lexical directory
// order matches the (CreatedAt, ID) drain order.
type fileQueue struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

func NewFileQueue(dir string) (Queue, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, ErrInvalidInput
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileQueue{dir: dir, now: time.Now}, nil
}

func (q *fileQueue) Enqueue(op Operation, path, content string) (Item, error) {
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
	if err := q.saveLocked(item); err != nil {
		return Item{}, err
	}
	return item, nil
}

func (q *fileQueue) ListPending() ([]Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(q.dir, entry.Name()))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		var item Item
		if err := json.Unmarshal(data, &item); err != nil {
			// A record mid-write by a crashed process; leave it alone.
			continue
		}
		if item.ID == "" || !item.Operation.Valid() {
			continue
		}
		items = append(items, item)
	}
	sortItems(items)
	return items, nil
}

func (q *fileQueue) MarkDone(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	path, ok, err := q.findLocked(id)
	if err != nil || !ok {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (q *fileQueue) RecordFailure(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	path, ok, err := q.findLocked(id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	item.RetryCount++
	return q.saveLocked(item)
}

func (q *fileQueue) Depth() int {
	items, err := q.ListPending()
	if err != nil {
		return 0
	}
	return len(items)
}

func (q *fileQueue) Close() error {
	return nil
}

func (q *fileQueue) itemPath(item Item) string {
	name := fmt.Sprintf("%020d-%s.json", item.CreatedAt.UnixNano(), item.ID)
	return filepath.Join(q.dir, name)
}

func (q *fileQueue) findLocked(id string) (string, bool, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return "", false, err
	}
	suffix := "-" + id + ".json"
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			return filepath.Join(q.dir, entry.Name()), true, nil
		}
	}
	return "", false, nil
}

func (q *fileQueue) saveLocked(item Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	path := q.itemPath(item)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
