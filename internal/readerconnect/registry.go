package readerconnect

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/obs"
)

// Registry holds at most one Session per (tenant, link). It is created by the
// composition root and shared by the payment handlers.
type Registry struct {
	dialer Dialer
	cfg    Config
	log    logrus.FieldLogger
	opts   []SessionOption

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(dialer Dialer, cfg Config, log logrus.FieldLogger, opts ...SessionOption) *Registry {
	return &Registry{
		dialer:   dialer,
		cfg:      cfg,
		log:      log,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

func registryKey(tenantID, linkID string) string {
	return tenantID + ":" + linkID
}

// GetOrCreate returns the live session for the pair, creating it when missing
// or when the previous one went stale. A non-empty accessToken replaces the
// session's bearer.
func (r *Registry) GetOrCreate(tenantID, linkID, accessToken string) *Session {
	key := registryKey(tenantID, linkID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[key]; ok && !s.Stale() {
		if accessToken != "" {
			s.SetAccessToken(accessToken)
		}
		return s
	}

	s := NewSession(tenantID, linkID, accessToken, r.dialer, r.cfg, r.log, r.opts...)
	s.onStale = func(stale *Session) { r.forget(key, stale) }
	r.sessions[key] = s
	obs.ReaderSessions.Set(float64(len(r.sessions)))

	return s
}

func (r *Registry) Get(tenantID, linkID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[registryKey(tenantID, linkID)]
	return s, ok
}

// Remove disconnects and forgets the session for the pair.
func (r *Registry) Remove(tenantID, linkID string) {
	key := registryKey(tenantID, linkID)

	r.mu.Lock()
	s := r.sessions[key]
	delete(r.sessions, key)
	obs.ReaderSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	if s != nil {
		s.Disconnect()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close disconnects every session. Used on shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	obs.ReaderSessions.Set(0)
	r.mu.Unlock()

	for _, s := range all {
		s.Disconnect()
	}
}

func (r *Registry) forget(key string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[key] == s {
		delete(r.sessions, key)
		obs.ReaderSessions.Set(float64(len(r.sessions)))
	}
}
