package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_StateTransitions(t *testing.T) {
	run := newRun("run-1", "2024-03-05", false)
	assert.Equal(t, StatusQueued, run.Snapshot().Status)

	for _, status := range []RunStatus{StatusFetching, StatusExtracting, StatusGenerating, StatusExporting} {
		before := run.Snapshot().UpdatedAt
		time.Sleep(time.Millisecond)
		run.SetStatus(status)

		snap := run.Snapshot()
		assert.Equal(t, status, snap.Status)
		assert.True(t, snap.UpdatedAt.After(before), "UpdatedAt should advance after SetStatus(%q)", status)
	}
}

func TestRun_Finish(t *testing.T) {
	run := newRun("run-2", "2024-03-05", true)
	report := &Report{RunID: "run-2"}
	run.Finish(StatusFailed, report, errors.New("connect to notes: refused"))

	snap := run.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "connect to notes: refused", snap.Error)
	assert.Same(t, report, snap.Report)
	assert.True(t, snap.DryRun)

	run = newRun("run-3", "2024-03-05", false)
	run.Finish(StatusCompleted, report, nil)
	assert.Empty(t, run.Snapshot().Error)
}

func TestRunStore_PutGet(t *testing.T) {
	store := NewRunStore(time.Hour)
	store.Put(newRun("store-1", "2024-03-05", false))

	got := store.Get("store-1")
	require.NotNil(t, got)
	assert.Equal(t, "store-1", got.ID)
	assert.Nil(t, store.Get("nonexistent"))
	assert.Equal(t, 1, store.Len())
}

func TestRunStore_TTLCleanup(t *testing.T) {
	store := NewRunStore(50 * time.Millisecond)
	store.Put(newRun("old", "2024-03-04", false))

	time.Sleep(100 * time.Millisecond)
	store.Put(newRun("new", "2024-03-05", false))

	store.Cleanup()

	assert.Nil(t, store.Get("old"), "expired run should be cleaned up")
	assert.NotNil(t, store.Get("new"), "fresh run should survive cleanup")
}

func TestNewRunStore_DefaultTTL(t *testing.T) {
	assert.Equal(t, time.Hour, NewRunStore(0).ttl)
}
