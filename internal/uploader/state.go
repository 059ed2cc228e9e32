package uploader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Status of one upload attempt recorded in history.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// HistoryEntry is one append-only upload record. Entries are never mutated or
// removed once written.
type HistoryEntry struct {
	ID        string    `json:"id"`
	FilePath  string    `json:"file_path"`
	VideoID   string    `json:"video_id,omitempty"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the durable quota and history record. It is the sole source of
// truth for quota accounting and survives process restarts. Deleting the
// state file forces a quota reset but also discards history.
type State struct {
	QuotaResetTime time.Time      `json:"quota_reset_time"`
	UploadsToday   int            `json:"uploads_today"`
	UploadHistory  []HistoryEntry `json:"upload_history"`
}

// StateStore persists upload state. Implementations flush synchronously: when
// Save returns, the state is durable.
type StateStore interface {
	Load() (State, error)
	Save(State) error
}

// FileStore is the JSON-file StateStore. It is owned by a single scheduler
// per process; concurrent schedulers sharing one file can race on the
// persisted counters.
type FileStore struct {
	path string
}

// NewFileStore creates a store at path. The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("read upload state: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parse upload state %s: %w", s.path, err)
	}
	return state, nil
}

func (s *FileStore) Save(state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode upload state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".upload_state-*.json")
	if err != nil {
		return fmt.Errorf("create state temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write upload state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync upload state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace upload state: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory StateStore for tests.
type MemoryStore struct {
	state State
	saves int
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load() (State, error) {
	// Deep-copy history so callers cannot mutate saved entries.
	cp := s.state
	cp.UploadHistory = append([]HistoryEntry(nil), s.state.UploadHistory...)
	return cp, nil
}

func (s *MemoryStore) Save(state State) error {
	state.UploadHistory = append([]HistoryEntry(nil), state.UploadHistory...)
	s.state = state
	s.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (s *MemoryStore) Saves() int { return s.saves }

func newHistoryEntry(filePath, videoID string, status Status, errMsg string, at time.Time) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.NewString(),
		FilePath:  filePath,
		VideoID:   videoID,
		Status:    status,
		Error:     errMsg,
		Timestamp: at,
	}
}

var (
	_ StateStore = (*FileStore)(nil)
	_ StateStore = (*MemoryStore)(nil)
)
