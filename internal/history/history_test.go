package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/atinylittleshell/mia/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, maxRuns int) (*HistoryManager, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	manager, err := NewHistoryManager(dbPath, maxRuns)
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager, dbPath
}

func record(t *testing.T, manager *HistoryManager, trigger session.Trigger, script string) {
	t.Helper()
	require.NoError(t, manager.Record(context.Background(), session.Run{
		Trigger: trigger,
		Script:  script,
		Outcome: session.OutcomeCompleted,
		Output:  "ok",
	}))
}

func TestRecordAndGetRecentRuns(t *testing.T) {
	manager, _ := newTestManager(t, 0)

	record(t, manager, session.TriggerSubmit, "mkdisk -size=10")
	require.NoError(t, manager.Record(context.Background(), session.Run{
		Trigger: session.TriggerApprove,
		Script:  "rmdisk -id=A -confirm=true",
		Outcome: session.OutcomeConfirmation,
		Message: "CONFIRM_RMDISK: sure?",
	}))

	runs, err := manager.GetRecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "mkdisk -size=10", runs[0].Script)
	assert.Equal(t, "submit", runs[0].Trigger)
	assert.Equal(t, "ok", runs[0].Output)
	assert.Equal(t, "approve", runs[1].Trigger)
	assert.Equal(t, "confirmation", runs[1].Outcome)
	assert.Equal(t, "CONFIRM_RMDISK: sure?", runs[1].Message)

	runs, err = manager.GetRecentRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "rmdisk -id=A -confirm=true", runs[0].Script)
}

func TestGetRecentScripts(t *testing.T) {
	manager, _ := newTestManager(t, 0)

	record(t, manager, session.TriggerSubmit, "mkdisk -size=10")
	record(t, manager, session.TriggerSubmit, "fdisk -size=5")
	record(t, manager, session.TriggerContinue, "mount -id=B")
	record(t, manager, session.TriggerSubmit, "mkdisk -size=10")

	scripts, err := manager.GetRecentScripts(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"mkdisk -size=10", "fdisk -size=5"}, scripts)
}

func TestSearchScripts(t *testing.T) {
	manager, _ := newTestManager(t, 0)

	record(t, manager, session.TriggerSubmit, "mkdisk -size=10")
	record(t, manager, session.TriggerSubmit, "rmdisk -id=A")
	record(t, manager, session.TriggerSubmit, "mkdisk -size=20")

	runs, err := manager.SearchScripts("mkdisk", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "mkdisk -size=20", runs[0].Script)
	assert.Equal(t, "mkdisk -size=10", runs[1].Script)
}

func TestPrune(t *testing.T) {
	manager, _ := newTestManager(t, 2)

	record(t, manager, session.TriggerSubmit, "one")
	record(t, manager, session.TriggerSubmit, "two")
	record(t, manager, session.TriggerSubmit, "three")

	runs, err := manager.GetRecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "two", runs[0].Script)
	assert.Equal(t, "three", runs[1].Script)
}

func TestDeleteRunAndReset(t *testing.T) {
	manager, _ := newTestManager(t, 0)

	record(t, manager, session.TriggerSubmit, "one")
	record(t, manager, session.TriggerSubmit, "two")

	runs, err := manager.GetRecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	require.NoError(t, manager.DeleteRun(runs[0].ID))
	assert.Error(t, manager.DeleteRun(runs[0].ID))

	runs, err = manager.GetRecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	require.NoError(t, manager.ResetHistory())
	runs, err = manager.GetRecentRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSchemaVersionMarker(t *testing.T) {
	manager, dbPath := newTestManager(t, 0)
	record(t, manager, session.TriggerSubmit, "persisted")
	require.NoError(t, manager.Close())

	data, err := os.ReadFile(filepath.Join(filepath.Dir(dbPath), "history_schema_version"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))

	reopened, err := NewHistoryManager(dbPath, 0)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.GetRecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "persisted", runs[0].Script)
}

func TestMigratesWhenMarkerIsStale(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")
	require.NoError(t, os.WriteFile(dbPath, nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "history_schema_version"), []byte("0"), 0644))

	manager, err := NewHistoryManager(dbPath, 0)
	require.NoError(t, err)
	defer manager.Close()

	record(t, manager, session.TriggerSubmit, "after migration")
}
