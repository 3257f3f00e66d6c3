package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	id               TEXT PRIMARY KEY,
	username         TEXT NOT NULL UNIQUE,
	display_name     TEXT NOT NULL,
	-- Unicode-folded copies for search; sqlite lower() only folds ASCII
	username_key     TEXT NOT NULL DEFAULT '',
	display_name_key TEXT NOT NULL DEFAULT '',
	avatar_url       TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'offline',
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER
);

CREATE TABLE IF NOT EXISTS direct_messages (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	sender_id   TEXT NOT NULL,
	receiver_id TEXT NOT NULL,
	content     TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	is_read     INTEGER NOT NULL DEFAULT 0,
	CHECK (sender_id <> receiver_id)
);

CREATE INDEX IF NOT EXISTS idx_dm_pair ON direct_messages (sender_id, receiver_id, created_at);
CREATE INDEX IF NOT EXISTS idx_dm_receiver ON direct_messages (receiver_id, created_at);
`

// OpenSQLite opens (or creates) the embedded database at path and applies the
// schema. ":memory:" gives a private in-memory database held on one connection.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}

	dsn := path
	memory := path == ":memory:"
	if !memory {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		dsn = "file:" + path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	con, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if memory {
		con.SetMaxOpenConns(1)
	}

	if err := con.PingContext(ctx); err != nil {
		con.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if _, err := con.ExecContext(ctx, sqliteSchema); err != nil {
		con.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}

	return con, nil
}
