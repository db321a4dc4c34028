package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileStore keeps active transcripts in memory and flushes them to disk when
// a run ends.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
	active  map[string]*Transcript
}

// StoreConfig holds configuration for transcript storage.
type StoreConfig struct {
	BaseDir string
}

// NewFileStore creates a file-based transcript store.
func NewFileStore(config StoreConfig) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(config.BaseDir, "runs"), 0755); err != nil {
		return nil, err
	}
	return &FileStore{
		baseDir: config.BaseDir,
		active:  make(map[string]*Transcript),
	}, nil
}

// BaseDir returns the base directory for the store.
func (s *FileStore) BaseDir() string {
	return s.baseDir
}

// StartRun begins recording a run.
func (s *FileStore) StartRun(runID, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.active[runID]; exists {
		return ErrRunAlreadyExists
	}
	if _, err := os.Stat(filepath.Join(s.baseDir, "runs", runID, fileName)); err == nil {
		return ErrRunAlreadyExists
	}

	s.active[runID] = &Transcript{
		RunID: runID,
		Metadata: Meta{
			RunID:     runID,
			FlowID:    flowID,
			Status:    RunStatusRunning,
			StartedAt: time.Now(),
		},
		Calls: make([]Call, 0),
	}
	return nil
}

// RecordCall appends an LLM call to an active run.
func (s *FileStore) RecordCall(runID string, call Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.active[runID]
	if !ok {
		return ErrRunNotStarted
	}

	call.ID = len(t.Calls) + 1
	if call.Timestamp.IsZero() {
		call.Timestamp = time.Now()
	}

	t.Calls = append(t.Calls, call)
	t.Metadata.CallCount = len(t.Calls)
	t.Metadata.TotalTokensIn += call.TokensIn
	t.Metadata.TotalTokensOut += call.TokensOut
	return nil
}

// EndRun completes a run and flushes the transcript to disk.
func (s *FileStore) EndRun(runID string, status RunStatus) error {
	return s.endRun(runID, status, nil)
}

// EndRunWithError completes a run as failed, recording the error.
func (s *FileStore) EndRunWithError(runID string, err error) error {
	return s.endRun(runID, RunStatusFailed, err)
}

func (s *FileStore) endRun(runID string, status RunStatus, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.active[runID]
	if !ok {
		return ErrRunNotStarted
	}

	t.Metadata.Status = status
	t.Metadata.EndedAt = time.Now()
	if cause != nil {
		t.Metadata.Error = cause.Error()
	}

	if err := t.Save(s.baseDir); err != nil {
		return err
	}
	delete(s.active, runID)
	return nil
}

// Load retrieves a transcript, active or saved. Active transcripts are
// returned as copies.
func (s *FileStore) Load(runID string) (*Transcript, error) {
	s.mu.RLock()
	if t, ok := s.active[runID]; ok {
		data, err := json.Marshal(t)
		s.mu.RUnlock()
		if err != nil {
			return nil, err
		}
		var snapshot Transcript
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return nil, err
		}
		return &snapshot, nil
	}
	s.mu.RUnlock()

	return Load(s.baseDir, runID)
}

// LoadMeta retrieves just the metadata for a run.
func (s *FileStore) LoadMeta(runID string) (*Meta, error) {
	s.mu.RLock()
	if t, ok := s.active[runID]; ok {
		meta := t.Metadata
		s.mu.RUnlock()
		return &meta, nil
	}
	s.mu.RUnlock()

	t, err := Load(s.baseDir, runID)
	if err != nil {
		return nil, err
	}
	return &t.Metadata, nil
}

// ListFilter filters transcript listing.
type ListFilter struct {
	FlowID string
	Status RunStatus
	After  time.Time
	Before time.Time
	Limit  int
}

// List returns metadata for runs matching the filter, newest first.
func (s *FileStore) List(filter ListFilter) ([]Meta, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, "runs"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var results []Meta
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.LoadMeta(entry.Name())
		if err != nil {
			continue
		}
		if filter.FlowID != "" && meta.FlowID != filter.FlowID {
			continue
		}
		if filter.Status != "" && meta.Status != filter.Status {
			continue
		}
		if !filter.After.IsZero() && meta.StartedAt.Before(filter.After) {
			continue
		}
		if !filter.Before.IsZero() && meta.StartedAt.After(filter.Before) {
			continue
		}
		results = append(results, *meta)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})

	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// Delete removes a run's transcript.
func (s *FileStore) Delete(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, runID)

	path := filepath.Join(s.baseDir, "runs", runID, fileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ListActive returns all active run IDs.
func (s *FileStore) ListActive() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
