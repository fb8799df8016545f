package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/teranos/herald/errors"
)

// SnapshotStore persists the full set of JobStates. Load is called once at
// ledger construction; Save replaces the previous snapshot on every mutation.
type SnapshotStore interface {
	Load() ([]JobState, error)
	Save(states []JobState) error
	Close() error
}

// FileStore persists the ledger as a JSON array of JobState records.
type FileStore struct {
	path string
}

// NewFileStore creates a JSON file snapshot store at path. Parent directories
// are created on the first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads all JobStates from the file. A missing file yields an empty
// snapshot; a parse failure is reported so the ledger can log and recover.
func (s *FileStore) Load() ([]JobState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read ledger file %s", s.path)
	}

	var states []JobState
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, errors.Wrapf(err, "failed to parse ledger file %s", s.path)
	}
	return states, nil
}

// Save rewrites the entire snapshot. The write goes through a temp file and
// rename so a crash mid-write cannot leave a truncated ledger behind.
func (s *FileStore) Save(states []JobState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create ledger directory")
	}

	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal ledger snapshot")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write ledger snapshot")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "failed to replace ledger snapshot")
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
