// Package filestore persists job records to a single file using golly's
// codec package, auto-selecting YAML/JSON/XML by file extension the same
// way chrono.FileStorage does. It is the CONFIG_FILE-adjacent local
// backend: no network dependency, a reasonable default for a single-box
// deployment that still wants jobs to survive a restart.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"oss.nandlabs.io/ecscheduler/codec"
	"oss.nandlabs.io/ecscheduler/fsutils"
	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/l3"
)

var logger = l3.Get()

// state is the top-level structure written to the file.
type state struct {
	Jobs []*jobmodel.PersistedJob `json:"jobs" xml:"jobs" yaml:"jobs"`
}

// Store persists all job records to one file. The entire state is
// rewritten on each mutation (read-modify-write-atomically), same as
// chrono's file storage — jobs are few enough that this is never a
// bottleneck.
type Store struct {
	mu   sync.Mutex
	path string
	c    codec.Codec
}

// New creates a Store backed by path. The serialization format is
// determined by the extension (.yaml, .yml, .json, .xml) via
// fsutils.LookupContentType. The directory is created if missing; if the
// file itself doesn't exist yet, an empty state file is written so later
// reads never fail on a missing file.
func New(path string) (*Store, error) {
	contentType := fsutils.LookupContentType(path)

	c, err := codec.GetDefault(contentType)
	if err != nil {
		return nil, fmt.Errorf("filestore: unsupported file type %q for %s: %w", contentType, filepath.Base(path), err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	s := &Store{path: path, c: c}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.DebugF("filestore: creating initial state file %s", path)
		if writeErr := s.writeState(&state{}); writeErr != nil {
			return nil, writeErr
		}
	}

	logger.InfoF("filestore: initialized with path=%s contentType=%s", path, contentType)
	return s, nil
}

func (s *Store) readState() (*state, error) {
	f, err := os.Open(s.path)
	if err != nil {
		logger.ErrorF("filestore: failed to open %s: %v", s.path, err)
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var st state
	if err := s.c.Read(f, &st); err != nil {
		logger.ErrorF("filestore: failed to decode %s: %v", s.path, err)
		return nil, err
	}
	return &st, nil
}

func (s *Store) writeState(st *state) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := s.c.Write(st, f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.path)
}

func findJob(st *state, id string) int {
	for i, rec := range st.Jobs {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) LoadAll(_ context.Context) ([]*jobmodel.PersistedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.readState()
	if err != nil {
		return nil, err
	}
	out := make([]*jobmodel.PersistedJob, len(st.Jobs))
	for i, rec := range st.Jobs {
		out[i] = rec.Clone()
	}
	return out, nil
}

func (s *Store) Create(_ context.Context, id string, data *jobmodel.PersistedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.readState()
	if err != nil {
		return err
	}
	st.Jobs = append(st.Jobs, data.Clone())
	return s.writeState(st)
}

func (s *Store) Update(_ context.Context, id string, data *jobmodel.PersistedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.readState()
	if err != nil {
		return err
	}
	if idx := findJob(st, id); idx >= 0 {
		st.Jobs[idx] = data.Clone()
	} else {
		st.Jobs = append(st.Jobs, data.Clone())
	}
	return s.writeState(st)
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.readState()
	if err != nil {
		return err
	}
	idx := findJob(st, id)
	if idx < 0 {
		return nil
	}
	st.Jobs = append(st.Jobs[:idx], st.Jobs[idx+1:]...)
	return s.writeState(st)
}
