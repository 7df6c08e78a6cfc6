package queue

import (
	"fmt"

	_ "github.com/lib/pq"
)

// NewPostgresQueue backs the durable queue with a postgres table, for
// deployments where several notebridge instances share one database.
func NewPostgresQueue(dsn string) (Queue, error) {
	return newSQLQueue("postgres", dsn, func(n int) string {
		return fmt.Sprintf("$%d", n)
	})
}
