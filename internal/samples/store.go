package samples

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// State tracks store initialization.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// RemoteBackend is the optional authoritative backend. A nil RemoteBackend
// selects local-only mode, decided once at Open.
type RemoteBackend interface {
	GetAll(ctx context.Context) ([]Sample, error)
	Insert(ctx context.Context, s Sample) error
	Delete(ctx context.Context, id string) error
}

// LocalMirror is the last line of persistence. It holds a full copy of the
// collection and is rewritten after every mutation.
type LocalMirror interface {
	ReadAll(ctx context.Context) ([]Sample, error)
	WriteAll(ctx context.Context, all []Sample) error
}

// Store holds the in-memory learned-sample collection behind serialized
// mutation. Readers get an immutable snapshot slice that is swapped
// atomically, so an overlapping frame pass observes either the pre- or
// post-mutation collection, never a torn one.
type Store struct {
	mu     sync.Mutex // serializes Insert/Delete
	snap   atomic.Pointer[[]Sample]
	state  atomic.Int32
	remote RemoteBackend // nil in local-only mode
	local  LocalMirror
	logger *slog.Logger
}

// Open creates a Store and loads the collection. The remote backend, if
// configured, is tried first and wins when it answers; otherwise the local
// mirror is read. Load failures degrade to an empty collection — startup is
// never blocked on persistence.
func Open(ctx context.Context, remote RemoteBackend, local LocalMirror) *Store {
	s := &Store{
		remote: remote,
		local:  local,
		logger: slog.Default(),
	}
	s.state.Store(int32(StateLoading))

	loaded := s.load(ctx)
	s.snap.Store(&loaded)
	s.state.Store(int32(StateReady))
	s.logger.Info("learned sample store ready", "samples", len(loaded), "remote", remote != nil)
	return s
}

func (s *Store) load(ctx context.Context) []Sample {
	if s.remote != nil {
		all, err := s.remote.GetAll(ctx)
		if err == nil {
			// Warm the mirror so a later remote outage still has data.
			if s.local != nil {
				if werr := s.local.WriteAll(ctx, all); werr != nil {
					s.logger.Warn("mirroring remote samples locally failed", "error", werr)
				}
			}
			return all
		}
		s.logger.Warn("remote sample load failed, falling back to local mirror", "error", err)
	}

	if s.local != nil {
		all, err := s.local.ReadAll(ctx)
		if err == nil {
			return all
		}
		s.logger.Warn("local sample load failed, starting empty", "error", err)
	}
	return nil
}

// State returns the store's lifecycle state.
func (s *Store) State() State {
	return State(s.state.Load())
}

// Snapshot returns the current collection, most-recently-inserted first.
// The returned slice is immutable: mutations build a new slice and swap it
// in, so callers may hold a snapshot across an entire matching pass.
func (s *Store) Snapshot() []Sample {
	p := s.snap.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Len returns the number of samples currently in the collection.
func (s *Store) Len() int {
	return len(s.Snapshot())
}

// Insert prepends the sample, writes it to the remote backend best-effort,
// and rewrites the local mirror. The in-memory snapshot and the mirror stay
// consistent: when the mirror write fails the prepend is not published and
// the error is surfaced. The remote backend may lag on failure.
func (s *Store) Insert(ctx context.Context, sample Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	next := make([]Sample, 0, len(cur)+1)
	next = append(next, sample)
	next = append(next, cur...)

	if s.remote != nil {
		if err := s.remote.Insert(ctx, sample); err != nil {
			s.logger.Warn("remote sample insert failed", "id", sample.ID, "error", err)
		}
	}

	if s.local != nil {
		if err := s.local.WriteAll(ctx, next); err != nil {
			return fmt.Errorf("writing local mirror: %w", err)
		}
	}

	s.snap.Store(&next)
	return nil
}

// Delete removes the sample with the given id, best-effort on the remote
// backend, and rewrites the local mirror. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	next := make([]Sample, 0, len(cur))
	found := false
	for _, sample := range cur {
		if sample.ID == id {
			found = true
			continue
		}
		next = append(next, sample)
	}
	if !found {
		return nil
	}

	if s.remote != nil {
		if err := s.remote.Delete(ctx, id); err != nil {
			s.logger.Warn("remote sample delete failed", "id", id, "error", err)
		}
	}

	if s.local != nil {
		if err := s.local.WriteAll(ctx, next); err != nil {
			return fmt.Errorf("writing local mirror: %w", err)
		}
	}

	s.snap.Store(&next)
	return nil
}
