package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/igianni84/woo-ai-assistant/internal/ledger"
)

// Store implements ledger.Store backed by PostgreSQL. Used when multiple
// assistant instances share one ledger.
type Store struct {
	db *sql.DB
}

// New opens a PostgreSQL-backed ledger store using the provided DSN and connection pool settings.
func New(dsn string, maxOpen, maxIdle, lifetimeMinutes, idleTimeMinutes int) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}

	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if lifetimeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(lifetimeMinutes) * time.Minute)
	}
	if idleTimeMinutes > 0 {
		db.SetConnMaxIdleTime(time.Duration(idleTimeMinutes) * time.Minute)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS delivery_entries (
	id BIGSERIAL PRIMARY KEY,
	identity TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	model_used TEXT NOT NULL DEFAULT '',
	tokens_used BIGINT NOT NULL,
	chunk_count BIGINT NOT NULL,
	transport TEXT NOT NULL CHECK(transport IN ('sse','buffered')),
	duration_ms BIGINT NOT NULL DEFAULT 0,
	memo TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_delivery_entries_identity_created ON delivery_entries(identity, created_at DESC);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases underlying database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a new delivery entry.
func (s *Store) Record(ctx context.Context, entry ledger.Entry) error {
	if entry.Identity == "" {
		return errors.New("ledger record requires identity")
	}
	if entry.Transport != ledger.TransportPush && entry.Transport != ledger.TransportBuffered {
		return fmt.Errorf("invalid transport %q", entry.Transport)
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO delivery_entries(identity, conversation_id, session_id, model_used, tokens_used, chunk_count, transport, duration_ms, memo, created_at)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.Identity,
		entry.ConversationID,
		entry.SessionID,
		entry.ModelUsed,
		entry.TokensUsed,
		entry.ChunkCount,
		string(entry.Transport),
		entry.DurationMs,
		entry.Memo,
		created,
	)
	return err
}

// Summary returns aggregated usage for the given identity.
func (s *Store) Summary(ctx context.Context, identity string) (ledger.Summary, error) {
	if identity == "" {
		return ledger.Summary{}, errors.New("identity required")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(tokens_used), 0), COALESCE(SUM(chunk_count), 0)
FROM delivery_entries
WHERE identity = $1`, identity)

	var summary ledger.Summary
	if err := row.Scan(&summary.Deliveries, &summary.TokensUsed, &summary.ChunksTotal); err != nil {
		return ledger.Summary{}, err
	}
	return summary, nil
}

// ListRecent returns the latest entries for an identity.
func (s *Store) ListRecent(ctx context.Context, identity string, limit int) ([]ledger.Entry, error) {
	if identity == "" {
		return nil, errors.New("identity required")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, identity, conversation_id, session_id, model_used, tokens_used, chunk_count, transport, duration_ms, memo, created_at
FROM delivery_entries
WHERE identity = $1
ORDER BY created_at DESC
LIMIT $2`, identity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			entry     ledger.Entry
			transport string
			memo      sql.NullString
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.Identity,
			&entry.ConversationID,
			&entry.SessionID,
			&entry.ModelUsed,
			&entry.TokensUsed,
			&entry.ChunkCount,
			&transport,
			&entry.DurationMs,
			&memo,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Transport = ledger.Transport(transport)
		entry.Memo = memo.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
