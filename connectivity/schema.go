package connectivity

import (
	"database/sql"

	"github.com/hazyhaar/windriver/dbopen"
)

// Strategies accepted in the routes table:
//   - "local": the in-process handler registered with RegisterLocal.
//   - "http":  POST to the endpoint through HTTPFactory.
//   - "mcp":   MCP tool call over QUIC through MCPFactory.
//   - "noop":  succeed with an empty response without dispatching.
var Strategies = []string{"local", "http", "mcp", "noop"}

// Schema is the routes table. Per-route JSON options live in config.
const Schema = `
CREATE TABLE IF NOT EXISTS routes (
    service_name TEXT PRIMARY KEY,
    strategy     TEXT NOT NULL CHECK(strategy IN ('local', 'http', 'mcp', 'noop')),
    endpoint     TEXT,
    config       TEXT DEFAULT '{}',
    updated_at   INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);

CREATE TRIGGER IF NOT EXISTS trg_routes_updated_at
AFTER UPDATE ON routes
FOR EACH ROW
BEGIN
    UPDATE routes SET updated_at = strftime('%s', 'now') WHERE service_name = NEW.service_name;
END;
`

// OpenDB opens (creating if needed) a routes database shared between
// Admin writes and Watch polling, with the schema applied. With ":memory:"
// the pool is pinned to one connection so every caller sees one database.
func OpenDB(path string) (*sql.DB, error) {
	db, err := dbopen.Open(path,
		dbopen.WithBusyTimeout(5000),
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema))
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Init creates the routes table if it doesn't exist.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
