// Package store holds loaded-template sessions between the load and
// generate phases.
//
// Invariants:
// - A session exists in the store iff its root working directory has not
//   been reclaimed (modulo the accepted stale-read race below).
// - Sessions are never mutated after creation, only deleted.
// - Reclaiming a session's filesystem footprint is idempotent.
//
// The store is safe for concurrent use within a single process only. It is
// not suitable for multi-worker deployments.
package store

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kavindra/stencil/internal/metrics"
)

// DefaultTTL is how long a loaded template stays available for generation.
const DefaultTTL = 60 * time.Minute

// Session pairs a materialized template directory with an expiry deadline.
type Session struct {
	// TemplateDir is the directory directly containing the manifest.
	TemplateDir string
	// RootDir is the top-level working directory created for this session
	// and the unit of filesystem cleanup.
	RootDir string
	// ExpiresAt is the absolute deadline after which the sweeper reclaims
	// the session.
	ExpiresAt time.Time
}

// Store is an in-memory mapping from template id to session.
type Store struct {
	mu         sync.Mutex
	sessions   map[string]Session
	ttl        time.Duration
	outputRoot string
	now        func() time.Time
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// Config holds store configuration.
type Config struct {
	TTL        time.Duration
	OutputRoot string
	Now        func() time.Time // injectable clock, defaults to time.Now
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
}

// New creates a new session store.
func New(cfg Config) *Store {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Store{
		sessions:   make(map[string]Session),
		ttl:        cfg.TTL,
		outputRoot: cfg.OutputRoot,
		now:        cfg.Now,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Put records a session under a fresh id and returns the id. Expiry is set
// to now plus the configured TTL.
func (s *Store) Put(templateDir, rootDir string) string {
	id := uuid.NewString()
	sess := Session{
		TemplateDir: templateDir,
		RootDir:     rootDir,
		ExpiresAt:   s.now().Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[id] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	s.updateGauge(count)
	s.logger.Info().
		Str("template_id", id).
		Str("template_dir", templateDir).
		Time("expires_at", sess.ExpiresAt).
		Msg("Session stored")

	return id
}

// Get returns the stored session unchanged. It does not check or extend
// expiry; staleness is enforced only by Sweep, so a read just after expiry
// but before the next sweep still succeeds. This is an accepted race.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Delete removes the store entry without touching the filesystem.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()

	s.updateGauge(count)
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// OutputDir returns the per-session output area for an id.
func (s *Store) OutputDir(id string) string {
	return filepath.Join(s.outputRoot, id)
}

// Reclaim removes a session's filesystem footprint (root working directory
// and output area) and deletes its store entry. Removal of already-absent
// paths is a no-op, so reclaiming twice is safe.
func (s *Store) Reclaim(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()

	if ok {
		s.removePaths(id, sess.RootDir)
	} else {
		// Entry already consumed; the output area may still exist.
		s.removePaths(id, "")
	}

	s.Delete(id)
}

// Sweep reclaims every session whose expiry deadline has passed. Filesystem
// errors for one entry are logged and do not abort the sweep of the rest.
func (s *Store) Sweep(now time.Time) {
	s.mu.Lock()
	expired := make(map[string]Session)
	for id, sess := range s.sessions {
		if sess.ExpiresAt.Before(now) {
			expired[id] = sess
		}
	}
	s.mu.Unlock()

	for id, sess := range expired {
		s.logger.Info().Str("template_id", id).Msg("Sweeping expired session")
		s.removePaths(id, sess.RootDir)
		s.Delete(id)
	}

	if s.metrics != nil {
		s.metrics.SweepsTotal.Inc()
		if len(expired) > 0 {
			s.metrics.SessionsSweptTotal.Add(float64(len(expired)))
		}
	}
}

// removePaths best-effort removes a session's root working directory and
// output area. Missing paths are ignored.
func (s *Store) removePaths(id, rootDir string) {
	if rootDir != "" {
		if err := os.RemoveAll(rootDir); err != nil {
			s.logger.Error().Err(err).Str("dir", rootDir).Msg("Failed to remove working directory")
		}
	}
	if s.outputRoot != "" {
		outDir := s.OutputDir(id)
		if err := os.RemoveAll(outDir); err != nil {
			s.logger.Error().Err(err).Str("dir", outDir).Msg("Failed to remove output directory")
		}
	}
}

func (s *Store) updateGauge(count int) {
	if s.metrics != nil {
		s.metrics.SessionsActive.Set(float64(count))
	}
}
