// Package session keeps live calculator engines in memory, one per client
// session, and evicts them after a period of inactivity.
package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"pocket-calc/internal/engine"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("session store closed")
)

// Session is a single calculator bound to an id. Presses are serialised so
// the engine always sees one key at a time.
type Session struct {
	ID string

	mu       sync.Mutex
	engine   *engine.Engine
	expireAt atomic.Int64
}

// Press applies keys in order and returns the resulting view together with
// the keys that were not recognised.
func (s *Session) Press(keys ...string) (engine.View, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ignored []string
	for _, k := range keys {
		if !s.engine.Press(k) {
			ignored = append(ignored, k)
		}
	}
	return s.engine.View(), ignored
}

// PressTokens applies tokens in order while holding the session, so a batch
// never interleaves with another caller's keys. observe, when set, wraps each
// key: it must call apply exactly once. The returned view is taken before
// the session is released.
func (s *Session) PressTokens(tokens []engine.Token, observe func(i int, t engine.Token, apply func() (engine.View, error))) engine.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range tokens {
		apply := func() (engine.View, error) {
			err := s.engine.PressToken(t)
			return s.engine.View(), err
		}

		if observe == nil {
			apply()
			continue
		}
		observe(i, t, apply)
	}
	return s.engine.View()
}

func (s *Session) View() engine.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.View()
}

func (s *Session) History() []engine.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.History()
}

func (s *Session) expired(now int64) bool {
	return now > s.expireAt.Load()
}

// Store is an in-memory session cache with an idle TTL.
type Store struct {
	mu          sync.RWMutex
	items       map[string]*Session
	ttl         time.Duration
	cleanerOnce sync.Once
	cleanerCh   chan struct{}
	inShutdown  atomic.Bool
	closed      atomic.Bool
	logger      *zap.Logger
}

// NewStore starts a janitor that drops idle sessions every cleanupInterval.
func NewStore(ttl, cleanupInterval time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		items:     make(map[string]*Session),
		ttl:       ttl,
		cleanerCh: make(chan struct{}),
		logger:    logger,
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.cleanerCh:
				return
			case <-ticker.C:
				s.cleanExpired()
			}
		}
	}()

	return s
}

// Create opens a new session with an idle calculator.
func (s *Store) Create() (*Session, error) {
	if s.inShutdown.Load() {
		return nil, ErrClosed
	}

	sess := &Session{
		ID:     uuid.New().String(),
		engine: engine.New(),
	}
	s.touch(sess)

	s.mu.Lock()
	s.items[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Debug("session created", zap.String("session_id", sess.ID))
	return sess, nil
}

// Get returns a live session and extends its lifetime.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.items[id]
	s.mu.RUnlock()

	if !ok || sess.expired(time.Now().UnixNano()) {
		return nil, ErrNotFound
	}

	s.touch(sess)
	return sess, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) touch(sess *Session) {
	sess.expireAt.Store(time.Now().Add(s.ttl).UnixNano())
}

func (s *Store) cleanExpired() {
	now := time.Now().UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.items {
		if sess.expired(now) {
			delete(s.items, id)
			s.logger.Debug("session expired", zap.String("session_id", id))
		}
	}
}

const shutdownIntervalMax = 500 * time.Millisecond

// Shutdown refuses new sessions and waits for the live ones to expire.
// It returns ctx.Err() if the context ends first.
func (s *Store) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)
	s.closeCleaner()

	intervalBase := time.Millisecond
	nextInterval := func() time.Duration {
		interval := intervalBase + time.Duration(rand.Int63n(int64(intervalBase/10)+1))

		intervalBase *= 2
		if intervalBase > shutdownIntervalMax {
			intervalBase = shutdownIntervalMax
		}
		return interval
	}

	timer := time.NewTimer(nextInterval())
	defer timer.Stop()

	for {
		s.cleanExpired()
		if s.Len() == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			s.logger.Warn("session store shutdown interrupted", zap.Int("live_sessions", s.Len()))
			return ctx.Err()
		case <-timer.C:
			timer.Reset(nextInterval())
		}
	}
}

// Close drops every session immediately. It may follow an interrupted
// Shutdown.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return ErrClosed
	}
	s.inShutdown.Store(true)
	s.closeCleaner()

	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.items)
	return nil
}

func (s *Store) closeCleaner() {
	s.cleanerOnce.Do(func() {
		close(s.cleanerCh)
	})
}

// Collector exposes the number of live sessions to Prometheus.
func (s *Store) Collector() prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "calculator",
		Name:      "sessions_active",
		Help:      "Number of calculator sessions held in memory.",
	}, func() float64 {
		return float64(s.Len())
	})
}
