package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"order_form/internal/clients"
	"order_form/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSessionIdleTTL = 30 * time.Minute
	DefaultMaxSessions    = 1000
)

// CatalogObserver is told how every catalog load ended.
type CatalogObserver interface {
	ObserveCatalogLoad(err error)
}

// SessionOption tunes a SessionStore.
type SessionOption func(*SessionStore)

// WithIdleTTL drops sessions that have not been touched for ttl.
func WithIdleTTL(ttl time.Duration) SessionOption {
	return func(s *SessionStore) {
		if ttl > 0 {
			s.idleTTL = ttl
		}
	}
}

// WithMaxSessions caps the number of open sessions; the least recently used
// one is evicted to make room.
func WithMaxSessions(n int) SessionOption {
	return func(s *SessionStore) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

func withClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) { s.now = now }
}

type session struct {
	form     *OrderForm
	lastSeen time.Time
}

type SessionStore struct {
	client   clients.BackendClient
	journal  domain.SubmissionRepository
	observer CatalogObserver
	log      *logrus.Logger

	idleTTL     time.Duration
	maxSessions int
	now         func() time.Time

	mu    sync.RWMutex
	forms map[string]*session
}

func NewSessionStore(client clients.BackendClient, journal domain.SubmissionRepository, observer CatalogObserver, logger *logrus.Logger, opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		client:      client,
		journal:     journal,
		observer:    observer,
		log:         logger,
		idleTTL:     DefaultSessionIdleTTL,
		maxSessions: DefaultMaxSessions,
		now:         time.Now,
		forms:       make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a new order form. Nothing is stored when the catalog fails to load.
func (s *SessionStore) Create(ctx context.Context) (*OrderForm, error) {
	id := uuid.NewString()
	form, err := NewOrderForm(ctx, id, s.client, s.journal, s.log)
	if s.observer != nil {
		s.observer.ObserveCatalogLoad(err)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	now := s.now()
	s.sweepLocked(now)
	for len(s.forms) >= s.maxSessions {
		s.evictOldestLocked()
	}
	s.forms[id] = &session{form: form, lastSeen: now}
	s.mu.Unlock()
	s.log.Infof("SessionStore: Opened form session %s", id)
	return form, nil
}

// Get returns the session's form and marks it as used. An idle-expired
// session is reported as not found.
func (s *SessionStore) Get(id string) (*OrderForm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.forms[id]
	now := s.now()
	if ok && now.Sub(sess.lastSeen) > s.idleTTL {
		delete(s.forms, id)
		s.log.Infof("SessionStore: Form session %s expired", id)
		ok = false
	}
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	sess.lastSeen = now
	return sess.form, nil
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[id]; ok {
		delete(s.forms, id)
		s.log.Infof("SessionStore: Closed form session %s", id)
	}
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.forms)
}

// Sweep drops every session idle for longer than the TTL and reports how
// many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Infof("SessionStore: Expired %d idle form sessions", n)
			}
		}
	}
}

func (s *SessionStore) sweepLocked(now time.Time) int {
	removed := 0
	for id, sess := range s.forms {
		if now.Sub(sess.lastSeen) > s.idleTTL {
			delete(s.forms, id)
			removed++
		}
	}
	return removed
}

func (s *SessionStore) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, sess := range s.forms {
		if oldestID == "" || sess.lastSeen.Before(oldest) {
			oldestID, oldest = id, sess.lastSeen
		}
	}
	if oldestID != "" {
		delete(s.forms, oldestID)
		s.log.Warnf("SessionStore: Session limit %d reached, evicted form session %s", s.maxSessions, oldestID)
	}
}
