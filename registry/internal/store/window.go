package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hazyhaar/windriver/dbopen"
)

// Window is the registry's record of one window.
type Window struct {
	ID            int64  `json:"windowId"`
	State         string `json:"state"`
	Verbose       bool   `json:"verbose"`
	Registrations int    `json:"registrations"`
	Reloads       int    `json:"reloads"`
	RegisteredAt  int64  `json:"registered_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

const windowColumns = `window_id, state, verbose, registrations, reloads, registered_at, updated_at`

func scanWindow(sc interface{ Scan(...any) error }) (*Window, error) {
	w := &Window{}
	err := sc.Scan(&w.ID, &w.State, &w.Verbose, &w.Registrations, &w.Reloads, &w.RegisteredAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Register marks the window registered, creating it when unknown, and
// returns the updated record.
func (s *Store) Register(ctx context.Context, id int64) (*Window, error) {
	now := time.Now().UnixMilli()
	var w *Window
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO windows (window_id, state, registrations, registered_at, updated_at)
			VALUES (?, 'registered', 1, ?, ?)
			ON CONFLICT(window_id) DO UPDATE SET
				state = 'registered',
				registrations = registrations + 1,
				registered_at = excluded.registered_at,
				updated_at = excluded.updated_at`,
			id, now, now)
		if err != nil {
			return err
		}
		w, err = scanWindow(tx.QueryRowContext(ctx,
			`SELECT `+windowColumns+` FROM windows WHERE window_id = ?`, id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// MarkReload flags a known window for reload. It reports false when the
// window is unknown.
func (s *Store) MarkReload(ctx context.Context, id int64) (bool, error) {
	res, err := dbopen.Exec(ctx, s.DB, `
		UPDATE windows SET state = 'reload', reloads = reloads + 1, updated_at = ?
		WHERE window_id = ?`,
		time.Now().UnixMilli(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetVerbose sets the verbose preference, creating a pending record for a
// window that has not registered yet.
func (s *Store) SetVerbose(ctx context.Context, id int64, verbose bool) error {
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO windows (window_id, verbose, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(window_id) DO UPDATE SET
			verbose = excluded.verbose,
			updated_at = excluded.updated_at`,
		id, verbose, time.Now().UnixMilli())
	return err
}

// GetWindow returns the record for id, or nil when unknown.
func (s *Store) GetWindow(ctx context.Context, id int64) (*Window, error) {
	w, err := scanWindow(s.DB.QueryRowContext(ctx,
		`SELECT `+windowColumns+` FROM windows WHERE window_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

// ListWindows returns all records ordered by window id, optionally
// filtered by state.
func (s *Store) ListWindows(ctx context.Context, state string) ([]*Window, error) {
	q := `SELECT ` + windowColumns + ` FROM windows`
	var args []any
	if state != "" {
		q += ` WHERE state = ?`
		args = append(args, state)
	}
	q += ` ORDER BY window_id`

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteWindow removes a record.
func (s *Store) DeleteWindow(ctx context.Context, id int64) error {
	_, err := dbopen.Exec(ctx, s.DB, `DELETE FROM windows WHERE window_id = ?`, id)
	return err
}
