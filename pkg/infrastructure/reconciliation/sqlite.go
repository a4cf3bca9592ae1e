package reconciliation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// pure-Go driver, registered as "sqlite"
	_ "modernc.org/sqlite"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
)

// timeLayout has a fixed fraction width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entries and resolutions are both append-only. An entry is pending until a resolution
// for its order is written at or after the entry's creation time.
const schema = `
CREATE TABLE IF NOT EXISTS reconciliation_entries (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    id          TEXT    NOT NULL UNIQUE,
    order_id    TEXT    NOT NULL,
    kind        TEXT    NOT NULL,
    reason      TEXT    NOT NULL DEFAULT '',
    payload     TEXT,
    trace_id    TEXT    NOT NULL DEFAULT '',
    span_id     TEXT    NOT NULL DEFAULT '',
    created_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reconciliation_entries_order ON reconciliation_entries(order_id, created_at);
CREATE INDEX IF NOT EXISTS idx_reconciliation_entries_trace ON reconciliation_entries(trace_id);

CREATE TABLE IF NOT EXISTS reconciliation_resolutions (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id     TEXT    NOT NULL,
    note         TEXT    NOT NULL DEFAULT '',
    resolved_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reconciliation_resolutions_order ON reconciliation_resolutions(order_id, resolved_at);
`

// SQLiteRepository is the durable reconciliation log
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ repositories.ReconciliationRepository = (*SQLiteRepository)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway log.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// Close releases the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Record appends an entry
func (r *SQLiteRepository) Record(ctx context.Context, entry *entities.ReconciliationEntry) error {
	if entry.OrderID == "" {
		return entities.NewValidationError("reconciliation entry requires an order id")
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	const q = `
		INSERT INTO reconciliation_entries
			(id, order_id, kind, reason, payload, trace_id, span_id, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.ID,
		entry.OrderID,
		string(entry.Kind),
		entry.Reason,
		nullableString(entry.Payload),
		entry.TraceID,
		entry.SpanID,
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return entities.NewPersistenceError(fmt.Sprintf("sqlite: record entry for order %q", entry.OrderID), err)
	}
	return nil
}

// ListPending returns unresolved entries, oldest first
func (r *SQLiteRepository) ListPending(ctx context.Context) ([]*entities.ReconciliationEntry, error) {
	const q = `
		SELECT e.id, e.order_id, e.kind, e.reason, COALESCE(e.payload, ''),
		       e.trace_id, e.span_id, e.created_at
		FROM   reconciliation_entries e
		WHERE  NOT EXISTS (
			SELECT 1 FROM reconciliation_resolutions res
			WHERE  res.order_id = e.order_id AND res.resolved_at >= e.created_at
		)
		ORDER  BY e.created_at, e.seq`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, entities.NewPersistenceError("sqlite: list pending entries", err)
	}
	defer rows.Close()

	pending := make([]*entities.ReconciliationEntry, 0)
	for rows.Next() {
		var entry entities.ReconciliationEntry
		var kind, createdAt string
		if err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&kind,
			&entry.Reason,
			&entry.Payload,
			&entry.TraceID,
			&entry.SpanID,
			&createdAt,
		); err != nil {
			return nil, entities.NewPersistenceError("sqlite: scan entry", err)
		}
		entry.Kind = entities.ReconciliationKind(kind)
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, entities.NewPersistenceError("sqlite: scan entry", err)
		}
		pending = append(pending, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, entities.NewPersistenceError("sqlite: list pending entries", err)
	}
	return pending, nil
}

// Resolve appends a resolution covering every entry of the order recorded so far
func (r *SQLiteRepository) Resolve(ctx context.Context, orderID, note string) error {
	var pending int
	const count = `
		SELECT COUNT(*) FROM reconciliation_entries e
		WHERE  e.order_id = ? AND NOT EXISTS (
			SELECT 1 FROM reconciliation_resolutions res
			WHERE  res.order_id = e.order_id AND res.resolved_at >= e.created_at
		)`
	if err := r.db.QueryRowContext(ctx, count, orderID).Scan(&pending); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			pending = 0
		} else {
			return entities.NewPersistenceError(fmt.Sprintf("sqlite: resolve order %q", orderID), err)
		}
	}
	if pending == 0 {
		return entities.NewNotFoundError("no pending reconciliation entries for order %s", orderID)
	}

	const insert = `
		INSERT INTO reconciliation_resolutions (order_id, note, resolved_at)
		VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, insert, orderID, note, r.now().UTC().Format(timeLayout)); err != nil {
		return entities.NewPersistenceError(fmt.Sprintf("sqlite: resolve order %q", orderID), err)
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}

// nullableString stores NULL instead of empty TEXT
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
