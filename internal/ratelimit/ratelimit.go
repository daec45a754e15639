// Package ratelimit implements per-key sliding-window limiters for
// user-scoped operations.
package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Limiter reports whether one more call for key fits within the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

var errInvalidLimit = errors.New("rate limiter requires positive limit and window")

// SlidingWindow is a process-local limiter. It only holds across requests
// served by the same instance.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

func NewSlidingWindow(limit int, window time.Duration) (*SlidingWindow, error) {
	if limit <= 0 || window <= 0 {
		return nil, errInvalidLimit
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}, nil
}

func (s *SlidingWindow) Allow(_ context.Context, key string) (bool, error) {
	key = normalizeKey(key)
	now := s.now()
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	recent := s.hits[key][:0]
	for _, t := range s.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= s.limit {
		s.hits[key] = recent
		return false, nil
	}
	s.hits[key] = append(recent, now)
	return true, nil
}

// Cleanup drops keys with no hits inside the window.
func (s *SlidingWindow) Cleanup() {
	cutoff := s.now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, hits := range s.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(s.hits, key)
		}
	}
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *SlidingWindow) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "unknown"
	}
	return key
}
