// Package ratelimit throttles vault attempts per identifier and action
// using token buckets that are evicted once idle.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/time/rate"
)

// Config holds rate limiter settings.
type Config struct {
	Interval time.Duration // time between allowed attempts
	Burst    int           // max burst size
	TTL      time.Duration // idle limiters older than this are dropped by Sweep
}

// DefaultConfig allows one attempt every 12s with a burst of 5.
func DefaultConfig() Config {
	return Config{
		Interval: 12 * time.Second,
		Burst:    5,
		TTL:      30 * time.Minute,
	}
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Store manages limiters keyed by identifier+action.
type Store struct {
	mu       sync.Mutex
	limiters map[string]*entry
	config   Config
	now      func() time.Time
	log      log.Logger
}

func New(config Config) *Store {
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &Store{
		limiters: make(map[string]*entry),
		config:   config,
		now:      time.Now,
		log:      log.New("module", "ratelimit"),
	}
}

func key(identifier, action string) string {
	return action + "\x00" + identifier
}

// Allow consumes one token for identifier under action. It reports false
// once the bucket is empty.
func (s *Store) Allow(identifier, action string) bool {
	now := s.now()
	k := key(identifier, action)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.limiters[k]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Every(s.config.Interval), s.config.Burst)}
		s.limiters[k] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Reset forgets identifier under action, e.g. after a successful attempt.
func (s *Store) Reset(identifier, action string) {
	s.mu.Lock()
	delete(s.limiters, key(identifier, action))
	s.mu.Unlock()
}

// Sweep drops limiters idle for longer than the TTL and returns how many
// were removed.
func (s *Store) Sweep() int {
	if s.config.TTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.config.TTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(s.limiters, k)
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug("Swept idle limiters", "removed", n, "live", s.Len())
			}
		}
	}
}
