package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndLoadRun_RoundTrips(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	run := Run{RunID: "run-1", Backend: "immediate", StartTime: time.Now().UTC().Truncate(time.Second), Status: RunStatusStarted}
	require.NoError(t, store.SaveRun(run))

	loaded, err := store.LoadRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, run.RunID, loaded.RunID)
	assert.Equal(t, run.Backend, loaded.Backend)
	assert.Equal(t, run.Status, loaded.Status)
}

func TestStore_SaveCheckpoint_ThenLoadAllCheckpoints(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveCheckpoint("run-1", Checkpoint{
		UniqueKey: "Task-abc", Timestamp: time.Now(), OutputHash: "deadbeef",
	}))
	require.NoError(t, store.SaveCheckpoint("run-1", Checkpoint{
		UniqueKey: "Task-def", Timestamp: time.Now(), Cached: true,
	}))

	all, err := store.LoadAllCheckpoints("run-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "deadbeef", all["Task-abc"].OutputHash)
	assert.True(t, all["Task-def"].Cached)
}

func TestStore_LoadAllCheckpoints_MissingRunReturnsEmpty(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	all, err := store.LoadAllCheckpoints("nonexistent")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_SaveFailure_RoundTrips(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveFailure("run-1", Failure{
		Kind: "TaskExecution", UniqueKey: "Task-abc", Message: "boom",
	}))

	loaded, err := store.LoadFailure("run-1")
	require.NoError(t, err)
	assert.Equal(t, "boom", loaded.Message)
	assert.EqualValues(t, "TaskExecution", loaded.Kind)
}

func TestRun_Validate_RejectsMissingFields(t *testing.T) {
	err := Run{}.Validate()
	assert.Error(t, err)
}

func TestCheckpoint_Validate_RejectsMissingUniqueKey(t *testing.T) {
	err := Checkpoint{Timestamp: time.Now()}.Validate()
	assert.Error(t, err)
}
