package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
	"github.com/xela07ax/anomaly-console/internal/journal"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS console_journal (
	id          UUID PRIMARY KEY,
	trace_id    TEXT NOT NULL,
	operator    TEXT NOT NULL,
	action      TEXT NOT NULL,
	kind        TEXT NOT NULL DEFAULT '',
	target      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0,
	timestamp   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS console_journal_timestamp_idx ON console_journal (timestamp DESC);`

// Количество колонок в таблице console_journal
const journalFields = 10

type JournalRepo struct {
	db *sql.DB
}

// NewJournalRepo открывает пул через драйвер pgx. Доступность проверяется отдельно через Ping.
func NewJournalRepo(connString string, maxConns, minConns int) (*JournalRepo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(minConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &JournalRepo{db: db}, nil
}

// Ping проверяет доступность базы при старте
func (r *JournalRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EnsureSchema создаёт таблицу журнала, если её ещё нет.
func (r *JournalRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, journalSchema); err != nil {
		return fmt.Errorf("postgres: ensure journal schema: %w", err)
	}
	return nil
}

func (r *JournalRepo) WriteBatch(ctx context.Context, entries []journal.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var placeholders strings.Builder
	vals := make([]interface{}, 0, len(entries)*journalFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range entries {
		if i > 0 {
			placeholders.WriteString(",")
		}
		p := i * journalFields
		fmt.Fprintf(&placeholders, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8, p+9, p+10)

		vals = append(vals,
			e.ID, e.TraceID, e.Operator, e.Action, e.Kind,
			e.Target, e.Status, e.Error, e.DurationMs, e.Timestamp,
		)
	}

	query := "INSERT INTO console_journal (id, trace_id, operator, action, kind, target, status, error, duration_ms, timestamp) VALUES " +
		placeholders.String()

	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: write journal batch: %w", err)
	}
	return nil
}

func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, trace_id, operator, action, kind, target, status, error, duration_ms, timestamp
		FROM console_journal
		ORDER BY timestamp DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query journal: %w", err)
	}
	defer rows.Close()

	out := make([]journal.Entry, 0, limit)
	for rows.Next() {
		var e journal.Entry
		if err := rows.Scan(&e.ID, &e.TraceID, &e.Operator, &e.Action, &e.Kind,
			&e.Target, &e.Status, &e.Error, &e.DurationMs, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan journal: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *JournalRepo) Close() error {
	return r.db.Close()
}
