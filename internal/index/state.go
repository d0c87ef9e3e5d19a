package index

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frontdesk-labs/frontdesk/internal/log"
)

var (
	// ErrBuildInProgress is returned when a build is requested while
	// another one holds the permit.
	ErrBuildInProgress = errors.New("index: build already in progress")

	// ErrNotReady is returned when queries arrive before any index
	// version has been published.
	ErrNotReady = errors.New("index: not ready")
)

// Status is the lifecycle position of the index.
type Status string

const (
	StatusNotBuilt Status = "not_built"
	StatusBuilding Status = "building"
	StatusReady    Status = "ready"
	StatusFailed   Status = "failed"
)

// State is one observable point of the lifecycle. Values are copies;
// the Manifest pointer refers to an immutable version descriptor.
type State struct {
	Status     Status    `json:"status"`
	Manifest   *Manifest `json:"manifest,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	LastSyncAt time.Time `json:"last_sync_at"`
}

// Snapshot bundles everything needed to serve queries against one
// index version. All fields are read-only after publication.
type Snapshot struct {
	Manifest *Manifest
	Dense    *DenseStore
	Sparse   *SparseIndex
	Chunks   map[string]Chunk
}

// StateStore serializes index builds and publishes query snapshots.
// At most one build runs at a time; readers never block on writers.
type StateStore struct {
	mu       sync.Mutex
	building bool

	state atomic.Pointer[State]
	snap  atomic.Pointer[Snapshot]

	logger log.Logger
}

// NewStateStore starts in StatusNotBuilt.
func NewStateStore(logger log.Logger) *StateStore {
	if logger == nil {
		logger = log.NewNop()
	}
	s := &StateStore{logger: logger}
	s.state.Store(&State{Status: StatusNotBuilt})
	return s
}

// BuildPermit authorizes exactly one build. The holder must call
// Complete or Fail exactly once.
type BuildPermit struct {
	store *StateStore
	done  bool
}

// BeginBuild transitions to StatusBuilding and issues a permit, or
// returns ErrBuildInProgress when another build holds it. A previously
// published snapshot keeps serving queries for the whole build.
func (s *StateStore) BeginBuild() (*BuildPermit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.building {
		return nil, ErrBuildInProgress
	}
	s.building = true

	prev := s.state.Load()
	s.state.Store(&State{
		Status:     StatusBuilding,
		Manifest:   prev.Manifest,
		LastSyncAt: prev.LastSyncAt,
	})
	return &BuildPermit{store: s}, nil
}

// Complete publishes the snapshot and transitions to StatusReady.
// Queries switch to the new version atomically.
func (p *BuildPermit) Complete(snap *Snapshot) {
	s := p.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.done {
		return
	}
	p.done = true
	s.building = false

	s.snap.Store(snap)
	s.state.Store(&State{
		Status:     StatusReady,
		Manifest:   snap.Manifest,
		LastSyncAt: time.Now().UTC(),
	})
	s.logger.Info("index published",
		"version", snap.Manifest.VersionID,
		"documents", snap.Manifest.DocumentCount,
		"chunks", snap.Manifest.ChunkCount)
}

// Fail records the build error. When a previous version was Ready it
// stays published and the status returns to StatusReady, so a broken
// rebuild never takes a working index offline. Without a previous
// version the status becomes StatusFailed.
func (p *BuildPermit) Fail(err error) {
	s := p.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.done {
		return
	}
	p.done = true
	s.building = false

	msg := ""
	if err != nil {
		msg = err.Error()
	}
	prev := s.state.Load()
	next := &State{
		Status:     StatusFailed,
		LastError:  msg,
		LastSyncAt: prev.LastSyncAt,
	}
	if snap := s.snap.Load(); snap != nil {
		next.Status = StatusReady
		next.Manifest = snap.Manifest
	}
	s.state.Store(next)
	s.logger.Warn("index build failed", "error", msg, "status", string(next.Status))
}

// Restore publishes a snapshot loaded from disk at startup. It must
// not race with builds; callers restore before serving.
func (s *StateStore) Restore(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Store(snap)
	s.state.Store(&State{
		Status:     StatusReady,
		Manifest:   snap.Manifest,
		LastSyncAt: snap.Manifest.BuiltAt,
	})
	s.logger.Info("index restored",
		"version", snap.Manifest.VersionID,
		"documents", snap.Manifest.DocumentCount)
}

// State returns the current lifecycle state without locking.
func (s *StateStore) State() State {
	return *s.state.Load()
}

// Snapshot returns the serving snapshot, or nil before the first
// successful build.
func (s *StateStore) Snapshot() *Snapshot {
	return s.snap.Load()
}
