package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS session_exchanges (
	id         BIGSERIAL PRIMARY KEY,
	session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	query      TEXT NOT NULL,
	answer     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS session_exchanges_session_idx
	ON session_exchanges (session_id, id);
`

// PostgresSessionManager persists session history in Postgres so history
// survives restarts. Selected when POSTGRES_DSN is configured.
type PostgresSessionManager struct {
	pool       *pgxpool.Pool
	maxHistory int
}

func NewPostgresSessionManager(ctx context.Context, dsn string, maxHistory int) (*PostgresSessionManager, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if _, err := pool.Exec(ctx, sessionSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure session schema: %w", err)
	}
	return &PostgresSessionManager{pool: pool, maxHistory: maxHistory}, nil
}

func (m *PostgresSessionManager) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if _, err := m.pool.Exec(ctx, `INSERT INTO sessions (id) VALUES ($1)`, id); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

func (m *PostgresSessionManager) History(ctx context.Context, sessionID string) (string, error) {
	rows, err := m.pool.Query(ctx, `
		SELECT query, answer FROM (
			SELECT id, query, answer
			FROM session_exchanges
			WHERE session_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent ORDER BY id ASC`,
		sessionID, m.maxHistory,
	)
	if err != nil {
		return "", fmt.Errorf("load session history: %w", err)
	}
	defer rows.Close()

	var exchanges []exchange
	for rows.Next() {
		var e exchange
		if err := rows.Scan(&e.query, &e.answer); err != nil {
			return "", fmt.Errorf("scan exchange: %w", err)
		}
		exchanges = append(exchanges, e)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("read exchanges: %w", err)
	}
	return formatHistory(exchanges), nil
}

func (m *PostgresSessionManager) AddExchange(ctx context.Context, sessionID, query, answer string) error {
	// The session row may be missing when the caller supplied an ID this
	// store has never seen.
	if _, err := m.pool.Exec(ctx,
		`INSERT INTO sessions (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, sessionID); err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	if _, err := m.pool.Exec(ctx,
		`INSERT INTO session_exchanges (session_id, query, answer) VALUES ($1, $2, $3)`,
		sessionID, query, answer); err != nil {
		return fmt.Errorf("record exchange: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (m *PostgresSessionManager) Close() {
	m.pool.Close()
}

// TestConnection verifies database connectivity for health checks.
func (m *PostgresSessionManager) TestConnection(ctx context.Context) error {
	return m.pool.Ping(ctx)
}
