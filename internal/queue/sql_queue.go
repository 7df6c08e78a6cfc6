package queue

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	sqlQueueTableName        = "notebridge_queue"
	sqlQueueOperationTimeout = 5 * time.Second
)

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// sqlQueue backs the durable queue with a relational table. CreatedAt is
// stored as unix nanoseconds so (created_at_ns, id) ordering is identical
// across drivers.
type sqlQueue struct {
	driver      string
	dsn         string
	tableName   string
	placeholder func(n int) string
	openDB      sqlOpenFunc
	now         func() time.Time

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

func newSQLQueue(driver, dsn string, placeholder func(int) string) (*sqlQueue, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrInvalidInput
	}
	return &sqlQueue{
		driver:      driver,
		dsn:         dsn,
		tableName:   sqlQueueTableName,
		placeholder: placeholder,
		openDB:      sql.Open,
		now:         time.Now,
	}, nil
}

func (q *sqlQueue) ensureReady() error {
	q.initOnce.Do(func() {
		db, err := q.openDB(q.driver, q.dsn)
		if err != nil {
			q.initErr = err
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), sqlQueueOperationTimeout)
		defer cancel()

		ddl := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				operation TEXT NOT NULL,
				path TEXT NOT NULL,
				content TEXT NOT NULL,
				retry_count INTEGER NOT NULL DEFAULT 0,
				created_at_ns BIGINT NOT NULL
			)`, quoteIdentifier(q.tableName))
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			_ = db.Close()
			q.initErr = err
			return
		}
		indexName := q.tableName + "_order_idx"
		indexDDL := fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s (created_at_ns, id)",
			quoteIdentifier(indexName),
			quoteIdentifier(q.tableName),
		)
		if _, err := db.ExecContext(ctx, indexDDL); err != nil {
			_ = db.Close()
			q.initErr = err
			return
		}
		q.db = db
	})
	return q.initErr
}

func (q *sqlQueue) Enqueue(op Operation, path, content string) (Item, error) {
	if !op.Valid() || strings.TrimSpace(path) == "" {
		return Item{}, ErrInvalidInput
	}
	if err := q.ensureReady(); err != nil {
		return Item{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqlQueueOperationTimeout)
	defer cancel()

	item := Item{
		ID:        uuid.NewString(),
		Operation: op,
		Path:      path,
		Content:   content,
		CreatedAt: q.now().UTC(),
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (id, operation, path, content, retry_count, created_at_ns) VALUES (%s, %s, %s, %s, %s, %s)",
		quoteIdentifier(q.tableName),
		q.placeholder(1), q.placeholder(2), q.placeholder(3), q.placeholder(4), q.placeholder(5), q.placeholder(6),
	)
	_, err := q.db.ExecContext(ctx, query,
		item.ID, string(item.Operation), item.Path, item.Content, item.RetryCount, item.CreatedAt.UnixNano())
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func (q *sqlQueue) ListPending() ([]Item, error) {
	if err := q.ensureReady(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqlQueueOperationTimeout)
	defer cancel()

	query := fmt.Sprintf(
		"SELECT id, operation, path, content, retry_count, created_at_ns FROM %s ORDER BY created_at_ns ASC, id ASC",
		quoteIdentifier(q.tableName))
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		var operation string
		var createdNs int64
		if err := rows.Scan(&item.ID, &operation, &item.Path, &item.Content, &item.RetryCount, &createdNs); err != nil {
			return nil, err
		}
		item.Operation = Operation(operation)
		item.CreatedAt = time.Unix(0, createdNs).UTC()
		items = append(items, item)
	}
	return items, rows.Err()
}

func (q *sqlQueue) MarkDone(id string) error {
	if err := q.ensureReady(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqlQueueOperationTimeout)
	defer cancel()

	query := fmt.Sprintf("DELETE FROM %s WHERE id = %s", quoteIdentifier(q.tableName), q.placeholder(1))
	_, err := q.db.ExecContext(ctx, query, id)
	return err
}

func (q *sqlQueue) RecordFailure(id string) error {
	if err := q.ensureReady(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqlQueueOperationTimeout)
	defer cancel()

	query := fmt.Sprintf(
		"UPDATE %s SET retry_count = retry_count + 1 WHERE id = %s",
		quoteIdentifier(q.tableName), q.placeholder(1))
	_, err := q.db.ExecContext(ctx, query, id)
	return err
}

func (q *sqlQueue) Depth() int {
	if err := q.ensureReady(); err != nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqlQueueOperationTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(q.tableName))
	var depth int
	if err := q.db.QueryRowContext(ctx, query).Scan(&depth); err != nil {
		return 0
	}
	return depth
}

func (q *sqlQueue) Close() error {
	if q.db == nil {
		return nil
	}
	return q.db.Close()
}

func quoteIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
