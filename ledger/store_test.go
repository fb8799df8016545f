package ledger

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func makeStates(n int) []JobState {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	states := make([]JobState, 0, n)
	for i := 0; i < n; i++ {
		states = append(states, JobState{
			JobID:                 fmt.Sprintf("job-%03d", i),
			Channel:               "C042",
			ThreadHandle:          fmt.Sprintf("1700000000.%06d", i),
			Title:                 fmt.Sprintf("Job %d", i),
			Status:                StatusInProgress,
			CreatedAt:             base.Add(time.Duration(i) * time.Second),
			UpdatedAt:             base.Add(time.Duration(i) * time.Minute),
			Permalink:             fmt.Sprintf("https://example.com/p/%d", i),
			ProgressMessageHandle: fmt.Sprintf("1700000001.%06d", i),
		})
	}
	return states
}

func TestFileStoreRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 50} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			store := NewFileStore(filepath.Join(t.TempDir(), "jobs.json"))
			original := makeStates(n)

			require.NoError(t, store.Save(original))

			loaded, err := store.Load()
			require.NoError(t, err)
			require.Len(t, loaded, n)
			for i := range original {
				assert.Equal(t, original[i].JobID, loaded[i].JobID)
				assert.Equal(t, original[i].Channel, loaded[i].Channel)
				assert.Equal(t, original[i].ThreadHandle, loaded[i].ThreadHandle)
				assert.Equal(t, original[i].Title, loaded[i].Title)
				assert.Equal(t, original[i].Status, loaded[i].Status)
				assert.True(t, original[i].CreatedAt.Equal(loaded[i].CreatedAt))
				assert.True(t, original[i].UpdatedAt.Equal(loaded[i].UpdatedAt))
				assert.Equal(t, original[i].Permalink, loaded[i].Permalink)
				assert.Equal(t, original[i].ProgressMessageHandle, loaded[i].ProgressMessageHandle)
			}
		})
	}
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "never-written.json"))

	states, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestFileStoreSaveReplacesSnapshot(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "jobs.json"))

	require.NoError(t, store.Save(makeStates(5)))
	require.NoError(t, store.Save(makeStates(2)))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 50} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"))
			require.NoError(t, err)
			defer store.Close()

			original := makeStates(n)
			require.NoError(t, store.Save(original))

			loaded, err := store.Load()
			require.NoError(t, err)
			require.Len(t, loaded, n)
			for i := range original {
				assert.Equal(t, original[i].JobID, loaded[i].JobID)
				assert.Equal(t, original[i].Status, loaded[i].Status)
				assert.True(t, original[i].CreatedAt.Equal(loaded[i].CreatedAt))
				assert.Equal(t, original[i].ProgressMessageHandle, loaded[i].ProgressMessageHandle)
			}
		})
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(makeStates(3)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 3)
}

func TestLedgerRestartFromStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	log := zap.NewNop().Sugar()

	first := New(NewFileStore(path), log)
	first.Create("j1", "C01", "ts1", "Deploy", "")
	first.Create("j2", "C01", "ts2", "Backfill", "")
	first.UpdateStatus("j2", StatusCompleted)

	second := New(NewFileStore(path), log)
	states := second.List()
	require.Len(t, states, 2)
	assert.Equal(t, first.List(), states)
	assert.True(t, second.IsTerminal("j2"))
}
