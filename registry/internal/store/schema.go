package store

// Window states.
const (
	StatePending    = "pending"
	StateRegistered = "registered"
	StateReload     = "reload"
)

// Schema contains the DDL for the registry tables.
const Schema = `
-- One row per window that has been seen, registered or configured.
CREATE TABLE IF NOT EXISTS windows (
    window_id       INTEGER PRIMARY KEY,
    state           TEXT NOT NULL DEFAULT 'pending'
                    CHECK(state IN ('pending', 'registered', 'reload')),
    verbose         INTEGER NOT NULL DEFAULT 0,
    registrations   INTEGER NOT NULL DEFAULT 0,
    reloads         INTEGER NOT NULL DEFAULT 0,
    registered_at   INTEGER NOT NULL DEFAULT 0,
    updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_windows_state ON windows(state);
`
