package connectivity

import (
	"context"
	"database/sql"
	"time"
)

// Watch reloads routes whenever PRAGMA data_version changes, which SQLite
// bumps on every write from another connection. It performs an initial
// Reload and blocks until ctx is cancelled.
//
//	go router.Watch(ctx, db, 200*time.Millisecond)
func (r *Router) Watch(ctx context.Context, db *sql.DB, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := r.Reload(ctx, db); err != nil {
		r.logger.Error("connectivity: initial reload failed", "error", err)
	}
	lastVersion, _ := dataVersion(ctx, db)

	r.logger.Info("connectivity watcher started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("connectivity watcher stopped")
			return
		case <-ticker.C:
			ver, err := dataVersion(ctx, db)
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Warn("connectivity: data_version poll failed", "error", err)
				}
				continue
			}
			if ver == lastVersion {
				continue
			}
			r.logger.Info("connectivity: change detected, reloading",
				"old_version", lastVersion, "new_version", ver)
			if err := r.Reload(ctx, db); err != nil {
				r.logger.Error("connectivity: reload failed", "error", err)
			}
			lastVersion = ver
		}
	}
}

// DefaultWatchInterval is used when Watch is given a non-positive interval.
const DefaultWatchInterval = 200 * time.Millisecond

func dataVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v)
	return v, err
}
