package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultSessionTTL bounds how long an issued token stays valid.
const DefaultSessionTTL = 12 * time.Hour

// SessionManager issues and validates bearer tokens for the HTTP API.
// Tokens live in memory only; restarting the server logs everyone out.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
	ttl      time.Duration
	now      func() time.Time
}

type sessionEntry struct {
	session Session
	expires time.Time
}

// NewSessionManager creates a manager with the given TTL (0 uses the
// default).
func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		sessions: make(map[string]sessionEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue stores the session and returns its bearer token.
func (m *SessionManager) Issue(s Session) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = sessionEntry{session: s, expires: m.now().Add(m.ttl)}
	return token, nil
}

// Lookup resolves a token to its session. Expired tokens are pruned on
// access.
func (m *SessionManager) Lookup(token string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[token]
	if !ok {
		return Session{}, false
	}
	if m.now().After(e.expires) {
		delete(m.sessions, token)
		return Session{}, false
	}
	return e.session, true
}

// Revoke removes a token (logout).
func (m *SessionManager) Revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}
