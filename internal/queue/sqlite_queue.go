package queue

import (
	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteQueue backs the durable queue with a local sqlite database.
func NewSQLiteQueue(path string) (Queue, error) {
	return newSQLQueue("sqlite3", path, func(int) string {
		return "?"
	})
}
