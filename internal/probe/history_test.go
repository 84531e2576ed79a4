package probe

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/aerion-control/internal/device"
	"github.com/nerrad567/aerion-control/internal/infrastructure/database"
	_ "github.com/nerrad567/aerion-control/migrations"
)

func newHistory(t *testing.T) *SQLiteHistoryRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	return NewSQLiteHistoryRepository(db.DB)
}

func result(deviceName string, started time.Time, outcome Outcome) Result {
	return Result{
		ID:        uuid.NewString(),
		Device:    deviceName,
		Type:      device.TypePLC,
		Address:   "10.0.0.9:5007",
		Outcome:   outcome,
		StartedAt: started,
		Duration:  42 * time.Millisecond,
	}
}

func TestHistory_RecordAndList(t *testing.T) {
	repo := newHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Record(ctx, result("plc1", base, Outcome{})))
	require.NoError(t, repo.Record(ctx, result("plc1", base.Add(time.Minute),
		Outcome{Reason: ReasonNonZeroEndCode, Detail: "0xC059", ShutdownFailed: true})))
	require.NoError(t, repo.Record(ctx, result("plc2", base, Outcome{})))

	got, err := repo.List(ctx, "plc1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	newest := got[0]
	assert.Equal(t, ReasonNonZeroEndCode, newest.Outcome.Reason)
	assert.Equal(t, "0xC059", newest.Outcome.Detail)
	assert.True(t, newest.Outcome.ShutdownFailed)
	assert.Equal(t, device.TypePLC, newest.Type)
	assert.Equal(t, 42*time.Millisecond, newest.Duration)
	assert.True(t, newest.StartedAt.Equal(base.Add(time.Minute)))
	assert.True(t, got[1].Outcome.OK())

	got, err = repo.List(ctx, "plc1", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestHistory_Validation(t *testing.T) {
	repo := newHistory(t)
	ctx := context.Background()

	assert.ErrorIs(t, repo.Record(ctx, Result{Device: "x"}), ErrInvalidResult)
	_, err := repo.List(ctx, "", 10)
	assert.ErrorIs(t, err, ErrInvalidResult)
	_, err = repo.Prune(ctx, 0)
	assert.Error(t, err)
}

func TestHistory_Prune(t *testing.T) {
	repo := newHistory(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Record(ctx, result("plc1", now.Add(-40*24*time.Hour), Outcome{})))
	require.NoError(t, repo.Record(ctx, result("plc1", now.Add(-time.Hour), Outcome{})))

	deleted, err := repo.Prune(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	got, err := repo.List(ctx, "plc1", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestHistory_AsObserver(t *testing.T) {
	repo := newHistory(t)
	svc := NewService(testProber(), &fakeDevices{}, 1)
	svc.AddObserver("history", repo)

	_, err := svc.Check(context.Background(), record("arm", device.TypeRobot, "127.0.0.1", 1))
	require.NoError(t, err)

	got, err := repo.List(context.Background(), "arm", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ReasonConnectionFailed, got[0].Outcome.Reason)
}
