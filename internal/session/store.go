// Package session owns per-user conversation state with TTL and LRU
// eviction.
package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultTTL is the maximum idle duration before a session is eligible
	// for eviction.
	DefaultTTL = 3600 * time.Second

	// DefaultMaxSessions bounds the session table; beyond it the least
	// recently accessed sessions are evicted.
	DefaultMaxSessions = 1000

	// DefaultSweepInterval is how often the background sweep runs.
	DefaultSweepInterval = 300 * time.Second
)

// Session is one user's live conversation state. At most one session exists
// per user id.
type Session struct {
	UserID     string
	Language   string
	Memory     *Memory
	LastAccess time.Time
}

// Config tunes the store. Zero values select the defaults.
type Config struct {
	TTL           time.Duration
	MaxSessions   int
	SweepInterval time.Duration
	TokenBudget   int
}

// Stats is the read-only diagnostic view of the session table.
type Stats struct {
	Count     int           `json:"count"`
	Max       int           `json:"max"`
	TTL       time.Duration `json:"ttl"`
	OldestAge time.Duration `json:"oldest_age"`
}

// Store is the session table. Every check-and-mutate sequence (create,
// refresh, sweep, stats) runs under one lock, so a sweep can never race a
// concurrent turn into dropping a just-created session: eviction only sees
// LastAccess values written before it took the lock.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	cfg        Config
	clock      Clock
	counter    *TokenCounter
	summarizer Summarizer
	logger     *slog.Logger
}

// NewStore creates a session store. clock may be nil for the wall clock.
func NewStore(cfg Config, summarizer Summarizer, clock Clock, logger *slog.Logger) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = DefaultTokenBudget
	}
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions:   make(map[string]*Session),
		cfg:        cfg,
		clock:      clock,
		counter:    NewTokenCounter(),
		summarizer: summarizer,
		logger:     logger,
	}
}

// Acquire returns the user's session, creating it when absent and refreshing
// its last access time. A language switch discards the existing session and
// starts an empty one: history never carries across languages.
func (s *Store) Acquire(userID, lang string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if ok && sess.Language != lang {
		s.logger.Info("language switch, resetting session", "user", userID, "from", sess.Language, "to", lang)
		ok = false
	}
	if !ok {
		sess = &Session{
			UserID:   userID,
			Language: lang,
			Memory:   NewMemory(s.cfg.TokenBudget, s.counter, s.summarizer),
		}
		s.sessions[userID] = sess
	}
	sess.LastAccess = s.clock.Now()
	return sess
}

// Sweep removes sessions idle past the TTL, then evicts the least recently
// accessed sessions until the table fits the configured maximum.
func (s *Store) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	expired := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastAccess) > s.cfg.TTL {
			delete(s.sessions, id)
			expired++
		}
	}

	evicted := 0
	if over := len(s.sessions) - s.cfg.MaxSessions; over > 0 {
		victims := make([]*Session, 0, len(s.sessions))
		for _, sess := range s.sessions {
			victims = append(victims, sess)
		}
		sort.Slice(victims, func(i, j int) bool {
			return victims[i].LastAccess.Before(victims[j].LastAccess)
		})
		for _, sess := range victims[:over] {
			delete(s.sessions, sess.UserID)
			evicted++
		}
	}

	if expired > 0 || evicted > 0 {
		s.logger.Info("session sweep", "expired", expired, "evicted", evicted, "remaining", len(s.sessions))
	}
}

// Run sweeps at the configured interval until ctx is done.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Stats reports the current table size and configuration.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		Count: len(s.sessions),
		Max:   s.cfg.MaxSessions,
		TTL:   s.cfg.TTL,
	}
	now := s.clock.Now()
	for _, sess := range s.sessions {
		if age := now.Sub(sess.LastAccess); age > stats.OldestAge {
			stats.OldestAge = age
		}
	}
	return stats
}
