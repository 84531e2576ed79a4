package probe

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/aerion-control/internal/device"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// HistoryRepository persists probe results.
type HistoryRepository interface {
	Record(ctx context.Context, result Result) error
	List(ctx context.Context, deviceName string, limit int) ([]Result, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SQLiteHistoryRepository implements HistoryRepository on the
// probe_results table.
type SQLiteHistoryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteHistoryRepository creates a repository over an open, migrated
// database.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db, now: time.Now}
}

// Record inserts one result.
func (r *SQLiteHistoryRepository) Record(ctx context.Context, result Result) error {
	if result.ID == "" || result.Device == "" {
		return fmt.Errorf("%w: id and device are required", ErrInvalidResult)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO probe_results
		 (id, device, device_type, address, ok, reason, detail, shutdown_failed, duration_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.Device,
		string(result.Type),
		result.Address,
		boolToInt(result.Outcome.OK()),
		string(result.Outcome.Reason),
		result.Outcome.Detail,
		boolToInt(result.Outcome.ShutdownFailed),
		result.Duration.Milliseconds(),
		result.StartedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting probe result: %w", err)
	}
	return nil
}

// List returns recent results for a device, newest first.
// limit defaults to 50 and is capped at 200.
func (r *SQLiteHistoryRepository) List(ctx context.Context, deviceName string, limit int) ([]Result, error) {
	if deviceName == "" {
		return nil, fmt.Errorf("%w: device is required", ErrInvalidResult)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device, device_type, address, reason, detail, shutdown_failed, duration_ms, started_at
		 FROM probe_results
		 WHERE device = ?
		 ORDER BY started_at DESC
		 LIMIT ?`,
		deviceName,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying probe history: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0, limit)
	for rows.Next() {
		var (
			res                   Result
			deviceType, reason    string
			shutdownFailed        int
			durationMS, startedMS int64
		)
		if err := rows.Scan(&res.ID, &res.Device, &deviceType, &res.Address,
			&reason, &res.Outcome.Detail, &shutdownFailed, &durationMS, &startedMS); err != nil {
			return nil, fmt.Errorf("scanning probe history: %w", err)
		}
		res.Type = device.Type(deviceType)
		res.Outcome.Reason = FailureReason(reason)
		res.Outcome.ShutdownFailed = shutdownFailed != 0
		res.Duration = time.Duration(durationMS) * time.Millisecond
		res.StartedAt = time.UnixMilli(startedMS).UTC()
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating probe history: %w", err)
	}
	return results, nil
}

// Prune deletes results older than olderThan and returns how many went.
func (r *SQLiteHistoryRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := r.now().Add(-olderThan).UnixMilli()
	res, err := r.db.ExecContext(ctx, "DELETE FROM probe_results WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting probe history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// ObserveProbe records the result; it lets the repository act as an Observer.
func (r *SQLiteHistoryRepository) ObserveProbe(ctx context.Context, result Result) error {
	return r.Record(ctx, result)
}

// RunPruner deletes results older than retention once a day until ctx ends.
func RunPruner(ctx context.Context, repo HistoryRepository, retention time.Duration, logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	prune := func() {
		n, err := repo.Prune(ctx, retention)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("pruning probe history failed", "error", err)
			}
			return
		}
		if n > 0 {
			logger.Info("pruned probe history", "deleted", n)
		}
	}

	prune()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
