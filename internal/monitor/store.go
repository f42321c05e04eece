package monitor

import (
	"context"
	"sort"
	"sync"
)

// Store holds everything the collectors produce plus the session state.
// One mutex guards all of it. Nothing blocks while it is held, and readers
// only ever get copies.
type Store struct {
	mu sync.Mutex

	gpu         *GPUWindow
	metrics     map[string]ExperimentMetrics
	experiments []string

	state   SessionState
	session uint64
	path    string
	cancel  context.CancelFunc
}

// NewStore creates an empty store with a DefaultWindowSize GPU window.
func NewStore() *Store {
	return NewStoreWithWindow(DefaultWindowSize)
}

// NewStoreWithWindow creates an empty store keeping size GPU samples.
func NewStoreWithWindow(size int) *Store {
	return &Store{
		gpu:     NewGPUWindow(size),
		metrics: make(map[string]ExperimentMetrics),
	}
}

// AppendGPU adds a sample to the window.
func (s *Store) AppendGPU(sample GPUSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gpu.Push(sample)
}

// GPUSnapshot copies the window out as parallel series.
func (s *Store) GPUSnapshot() GPUSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gpu.Snapshot()
}

// GPUSamples copies the window out as samples, oldest first.
func (s *Store) GPUSamples() []GPUSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gpu.Samples()
}

// GPUCount returns the number of samples in the window.
func (s *Store) GPUCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gpu.Len()
}

// SetMetrics replaces everything stored for path. The store takes
// ownership of m.
func (s *Store) SetMetrics(path string, m ExperimentMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[NormalizePath(path)] = m
}

// Metrics returns a deep copy of what is stored for path.
func (s *Store) Metrics(path string) (ExperimentMetrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metrics[NormalizePath(path)]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// MetricPaths returns the normalized paths that have metrics, sorted.
func (s *Store) MetricPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.metrics))
	for p := range s.metrics {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// SetExperiments replaces the experiment list.
func (s *Store) SetExperiments(paths []string) {
	cp := append([]string(nil), paths...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.experiments = cp
}

// Experiments returns a copy of the last experiment list.
func (s *Store) Experiments() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.experiments...)
}

// State returns the current session state.
func (s *Store) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns the session state and its experiment path.
func (s *Store) Session() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{State: s.state, ExperimentPath: s.path}
}

// beginStart moves Stopped to Starting and records cancel as the way to
// stop the new session. It returns the session id, or false if a session
// is already starting or running.
func (s *Store) beginStart(path string, cancel context.CancelFunc) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Stopped {
		return 0, false
	}
	s.session++
	s.state = Starting
	s.path = path
	s.cancel = cancel
	return s.session, true
}

// commitStart moves session id from Starting to Running. It fails if the
// session was stopped in the meantime.
func (s *Store) commitStart(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != id || s.state != Starting {
		return false
	}
	s.state = Running
	return true
}

// abortStart returns session id to Stopped if it is still starting.
func (s *Store) abortStart(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != id || s.state != Starting {
		return
	}
	s.reset()
}

// stop cancels the active session. It reports whether there was one.
func (s *Store) stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Stopped {
		return false
	}
	s.reset()
	return true
}

// reset must be called with mu held.
func (s *Store) reset() {
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = nil
	s.state = Stopped
	s.path = ""
}
