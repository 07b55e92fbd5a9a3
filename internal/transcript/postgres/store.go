// Package postgres provides a PostgreSQL-backed [transcript.Store].
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.Append(ctx, sessionID, msg)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
	"github.com/CADX03/AI-Voice-Assistant/internal/transcript"
)

var _ transcript.Store = (*Store)(nil)

const ddlConversationMessages = `
CREATE TABLE IF NOT EXISTS conversation_messages (
    id          BIGSERIAL    PRIMARY KEY,
    session_id  TEXT         NOT NULL,
    type        TEXT         NOT NULL,
    sender      TEXT         NOT NULL DEFAULT '',
    value       TEXT         NOT NULL,
    received_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversation_messages_session_id
    ON conversation_messages (session_id, id);
`

// Migrate creates the conversation_messages table if it does not exist. It
// is idempotent and safe to call on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlConversationMessages); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// Store persists conversation logs in PostgreSQL. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection and runs
// [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Append implements [transcript.Store]. A zero Timestamp is stored as the
// database's current time.
func (s *Store) Append(ctx context.Context, sessionID string, m protocol.Message) error {
	const q = `
		INSERT INTO conversation_messages (session_id, type, sender, value, received_at)
		VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, now()))`

	var ts any
	if !m.Timestamp.IsZero() {
		ts = m.Timestamp
	}
	_, err := s.pool.Exec(ctx, q,
		sessionID,
		string(m.Type),
		string(transcript.SenderOf(m.Type)),
		m.Value,
		ts,
	)
	if err != nil {
		return fmt.Errorf("postgres store: append: %w", err)
	}
	return nil
}

// List implements [transcript.Store].
func (s *Store) List(ctx context.Context, sessionID string) ([]protocol.Message, error) {
	const q = `
		SELECT type, value, received_at
		FROM   conversation_messages
		WHERE  session_id = $1
		ORDER  BY id`

	rows, err := s.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (protocol.Message, error) {
		var (
			m   protocol.Message
			typ string
		)
		if err := row.Scan(&typ, &m.Value, &m.Timestamp); err != nil {
			return protocol.Message{}, err
		}
		m.Type = protocol.MessageType(typ)
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan rows: %w", err)
	}
	if msgs == nil {
		msgs = []protocol.Message{}
	}
	return msgs, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}
