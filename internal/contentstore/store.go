// Package contentstore caches the last-loaded portfolio snapshot.
package contentstore

import (
	"context"
	"log/slog"
	"sync"

	"portfolio/cms/internal/content"
)

// Fetcher reads every collection in one call.
type Fetcher interface {
	FetchPortfolio(ctx context.Context) (content.Portfolio, error)
}

// Store mirrors the server collections. Load replaces the whole snapshot;
// nothing is ever merged field by field.
type Store struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu     sync.RWMutex
	snap   content.Snapshot
	loads  int
	loaded bool
}

func New(fetcher Fetcher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		fetcher: fetcher,
		logger:  logger,
		snap:    content.DefaultSnapshot(),
	}
}

// Load re-fetches all collections and swaps the snapshot. On failure the
// previous snapshot stays in place and a LoadFailure is returned.
func (s *Store) Load(ctx context.Context) error {
	portfolio, err := s.fetcher.FetchPortfolio(ctx)
	if err != nil {
		s.logger.Error("contentstore: load failed", "error", err)
		return content.NewFailure(content.LoadFailure, err)
	}
	snap := portfolio.Snapshot()

	s.mu.Lock()
	s.snap = snap
	s.loads++
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug("contentstore: loaded",
		"projects", len(snap.Projects),
		"experiences", len(snap.Experiences),
	)
	return nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() content.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

func (s *Store) Hero() content.Hero {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Hero.Clone()
}

func (s *Store) Projects() []content.Project {
	return s.Snapshot().Projects
}

// Featured is computed from the project list on every call.
func (s *Store) Featured() []content.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Featured()
}

func (s *Store) Experiences() []content.Experience {
	return s.Snapshot().Experiences
}

func (s *Store) Settings() content.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Settings
}

// Loads counts successful reloads.
func (s *Store) Loads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads
}

// Loaded reports whether at least one load has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
