// Package window keeps the recent detector events of each session.
package window

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sentinelvnc/sentinel/riskengine/internal/models"
)

// DefaultWindow is how far back a correlation pass looks.
const DefaultWindow = 30 * time.Second

// Store buffers events per session. Each session has its own lock so that
// sessions never contend with each other; the map lock is only held to find
// or retire a buffer.
type Store struct {
	window time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*sessionBuffer
}

type sessionBuffer struct {
	mu      sync.Mutex
	events  []models.DetectorEvent
	retired bool
}

// NewStore creates a Store. A non-positive window falls back to DefaultWindow.
func NewStore(window time.Duration, logger *slog.Logger) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		window:   window,
		logger:   logger.With(slog.String("component", "window")),
		sessions: make(map[string]*sessionBuffer),
	}
}

// Window returns the configured correlation window.
func (s *Store) Window() time.Duration {
	return s.window
}

// Record appends ev to its session buffer.
func (s *Store) Record(ev models.DetectorEvent) {
	s.withBuffer(ev.SessionID, func(b *sessionBuffer) {
		b.events = append(b.events, ev)
	})
}

// EvictAndSnapshot drops events older than now-window from the session and
// returns a copy of what is left. Unknown sessions yield nil.
func (s *Store) EvictAndSnapshot(sessionID string, now time.Time) []models.DetectorEvent {
	s.mu.RLock()
	_, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	var snapshot []models.DetectorEvent
	s.withBuffer(sessionID, func(b *sessionBuffer) {
		snapshot = s.evictLocked(b, now)
	})
	return snapshot
}

// RecordAndSnapshot appends ev and evicts in one step under the session lock,
// so the snapshot always contains ev unless its own timestamp is stale.
func (s *Store) RecordAndSnapshot(ev models.DetectorEvent, now time.Time) []models.DetectorEvent {
	var snapshot []models.DetectorEvent
	s.withBuffer(ev.SessionID, func(b *sessionBuffer) {
		b.events = append(b.events, ev)
		snapshot = s.evictLocked(b, now)
	})
	return snapshot
}

// Len returns the number of buffered events for a session.
func (s *Store) Len(sessionID string) int {
	s.mu.RLock()
	b, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Sessions returns the number of sessions with buffered events.
func (s *Store) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) evictLocked(b *sessionBuffer, now time.Time) []models.DetectorEvent {
	cutoff := now.Add(-s.window)

	kept := b.events[:0:0]
	for _, ev := range b.events {
		ts, ok := ParseTimestamp(ev.Timestamp, now)
		if !ok {
			s.logger.Warn("unparsable event timestamp, treating as now",
				slog.String("event_id", ev.EventID),
				slog.String("session_id", ev.SessionID),
				slog.String("timestamp", ev.Timestamp))
		}
		if ts.Before(cutoff) {
			continue
		}
		kept = append(kept, ev)
	}
	b.events = kept

	if len(kept) == 0 {
		return nil
	}
	snapshot := make([]models.DetectorEvent, len(kept))
	copy(snapshot, kept)
	return snapshot
}

// withBuffer runs fn with the session buffer locked, creating the buffer if
// needed and retiring it afterwards if fn left it empty.
func (s *Store) withBuffer(sessionID string, fn func(b *sessionBuffer)) {
	for {
		b := s.buffer(sessionID)
		b.mu.Lock()
		if b.retired {
			b.mu.Unlock()
			continue
		}

		fn(b)

		if len(b.events) == 0 {
			s.mu.Lock()
			if s.sessions[sessionID] == b {
				delete(s.sessions, sessionID)
			}
			s.mu.Unlock()
			b.retired = true
		}
		b.mu.Unlock()
		return
	}
}

func (s *Store) buffer(sessionID string) *sessionBuffer {
	s.mu.RLock()
	b, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.sessions[sessionID]; !ok {
		b = &sessionBuffer{}
		s.sessions[sessionID] = b
	}
	return b
}
