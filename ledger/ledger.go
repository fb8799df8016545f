package ledger

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ledger maps job identifiers to JobStates and persists the full set through
// a SnapshotStore on every mutation.
//
// Persistence is advisory: a load failure is treated as an empty store and a
// save failure is swallowed. Neither is ever surfaced to the caller. All
// access is serialized by a single mutex; cross-process coordination is
// explicitly not handled.
type Ledger struct {
	mu    sync.Mutex
	jobs  map[string]*JobState
	store SnapshotStore
	log   *zap.SugaredLogger
}

// New creates a Ledger backed by the given snapshot store. A nil store means
// purely in-memory for the process lifetime.
func New(store SnapshotStore, log *zap.SugaredLogger) *Ledger {
	l := &Ledger{
		jobs:  make(map[string]*JobState),
		store: store,
		log:   log,
	}

	if store != nil {
		states, err := store.Load()
		if err != nil {
			// Corruption on read is treated as an empty store, never fatal
			log.Warnw("Ledger load failed, starting empty", "error", err)
		}
		for i := range states {
			s := states[i]
			l.jobs[s.JobID] = &s
		}
	}

	return l
}

// Get returns a copy of the JobState for jobID. No side effects.
func (l *Ledger) Get(jobID string) (JobState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[jobID]
	if !ok {
		return JobState{}, false
	}
	return *job, true
}

// Create records a new job in the started status and persists.
//
// The ledger does not reject duplicate creates; de-duplication is the
// caller's responsibility via Get first.
func (l *Ledger) Create(jobID, channel, threadHandle, title, permalink string) JobState {
	l.mu.Lock()
	defer l.mu.Unlock()

	job := NewJobState(jobID, channel, threadHandle, title, permalink)
	l.jobs[jobID] = job
	l.persistLocked()
	return *job
}

// UpdateStatus sets the job's status and touches updatedAt. No-op returning
// false if the job is absent.
func (l *Ledger) UpdateStatus(jobID string, status Status) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[jobID]
	if !ok {
		return false
	}
	job.Status = status
	job.UpdatedAt = time.Now().UTC()
	l.persistLocked()
	return true
}

// UpdateThreadHandle promotes a placeholder job into a real thread. The
// permalink is stored when non-empty (best effort).
func (l *Ledger) UpdateThreadHandle(jobID, handle, permalink string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[jobID]
	if !ok {
		return false
	}
	job.ThreadHandle = handle
	if permalink != "" {
		job.Permalink = permalink
	}
	job.UpdatedAt = time.Now().UTC()
	l.persistLocked()
	return true
}

// UpdateProgressMessageHandle records the most recent coalescable reply.
func (l *Ledger) UpdateProgressMessageHandle(jobID, handle string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[jobID]
	if !ok {
		return false
	}
	job.ProgressMessageHandle = handle
	job.UpdatedAt = time.Now().UTC()
	l.persistLocked()
	return true
}

// ClearProgressMessageHandle drops the coalescable reply pointer so the next
// update starts a fresh visible entry.
func (l *Ledger) ClearProgressMessageHandle(jobID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[jobID]
	if !ok {
		return false
	}
	job.ProgressMessageHandle = ""
	job.UpdatedAt = time.Now().UTC()
	l.persistLocked()
	return true
}

// IsTerminal reports whether the job's status is completed or failed.
// Returns false (not an error) if the job is absent.
func (l *Ledger) IsTerminal(jobID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	job, ok := l.jobs[jobID]
	if !ok {
		return false
	}
	return job.Status.IsTerminal()
}

// List returns a snapshot of all JobStates, ordered by creation time.
func (l *Ledger) List() []JobState {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.snapshotLocked()
}

// Delete removes a job from the ledger. This is an administrative operation,
// not part of the normal lifecycle flow.
func (l *Ledger) Delete(jobID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.jobs[jobID]; !ok {
		return false
	}
	delete(l.jobs, jobID)
	l.persistLocked()
	return true
}

// snapshotLocked copies all states sorted by creation time, then job id for
// a stable order. Callers must hold l.mu.
func (l *Ledger) snapshotLocked() []JobState {
	states := make([]JobState, 0, len(l.jobs))
	for _, job := range l.jobs {
		states = append(states, *job)
	}
	sort.Slice(states, func(i, j int) bool {
		if !states[i].CreatedAt.Equal(states[j].CreatedAt) {
			return states[i].CreatedAt.Before(states[j].CreatedAt)
		}
		return states[i].JobID < states[j].JobID
	})
	return states
}

// persistLocked writes the full snapshot to the store. Write failures are
// swallowed: ledger durability is advisory. Callers must hold l.mu.
func (l *Ledger) persistLocked() {
	if l.store == nil {
		return
	}
	if err := l.store.Save(l.snapshotLocked()); err != nil {
		l.log.Debugw("Ledger save failed", "error", err)
	}
}
