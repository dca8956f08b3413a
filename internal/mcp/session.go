package mcp

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// MCPSession binds a server-generated Mcp-Session-Id to the principal that
// authenticated it, so an unauthenticated follow-up request carrying a
// known session id is treated as authenticated (spec §4.8 "session
// resumption") without resending credentials on every call.
type MCPSession struct {
	ID        string
	Principal auth.Principal
	CreatedAt time.Time
	LastSeen  time.Time
}

// SessionManager is a count-bounded, TTL-evicting session cache. Grounded
// on the teacher's map+mutex+ticker SessionManager shape, generalized
// with an LRU-by-insertion-order capacity bound per spec §4.8 ("session
// cache holds at most N entries (LRU) bounding memory; eviction is
// silent").
type SessionManager struct {
	mu         sync.Mutex
	sessions   map[string]*MCPSession
	order      []string
	ttl        time.Duration
	maxEntries int
	done       chan struct{}
	closeOnce  sync.Once
}

func NewSessionManager(ttl time.Duration, maxEntries int) *SessionManager {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	sm := &SessionManager{
		sessions:   make(map[string]*MCPSession),
		ttl:        ttl,
		maxEntries: maxEntries,
		done:       make(chan struct{}),
	}
	go sm.sweepLoop()
	return sm
}

// Create mints a new server-side session id for principal, per spec
// §4.8's defense against session fixation (a bearer-authenticated request
// never reuses a client-supplied session id).
func (sm *SessionManager) Create(principal auth.Principal) *MCPSession {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	sess := &MCPSession{
		ID:        uuid.New().String(),
		Principal: principal,
		CreatedAt: now,
		LastSeen:  now,
	}
	sm.sessions[sess.ID] = sess
	sm.order = append(sm.order, sess.ID)
	if len(sm.sessions) > sm.maxEntries {
		sm.evictOldestLocked()
	}
	return sess
}

func (sm *SessionManager) evictOldestLocked() {
	for len(sm.sessions) > sm.maxEntries && len(sm.order) > 0 {
		oldest := sm.order[0]
		sm.order = sm.order[1:]
		delete(sm.sessions, oldest)
	}
}

// Get resolves a session id, touching LastSeen on hit.
func (sm *SessionManager) Get(sessionID string) (*MCPSession, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sess, ok := sm.sessions[sessionID]
	if !ok {
		return nil, pierreerr.New(pierreerr.KindUnauthenticated, "unknown or expired Mcp-Session-Id")
	}
	sess.LastSeen = time.Now()
	return sess, nil
}

func (sm *SessionManager) Delete(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, sessionID)
}

func (sm *SessionManager) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sm.sweepExpired()
		case <-sm.done:
			return
		}
	}
}

func (sm *SessionManager) sweepExpired() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	expired := 0
	kept := sm.order[:0]
	for _, id := range sm.order {
		sess, ok := sm.sessions[id]
		if !ok {
			continue
		}
		if now.Sub(sess.LastSeen) > sm.ttl {
			delete(sm.sessions, id)
			expired++
			continue
		}
		kept = append(kept, id)
	}
	sm.order = kept

	if expired > 0 {
		log.Info().Int("count", expired).Msg("swept expired MCP sessions")
	}
}

func (sm *SessionManager) Close() {
	sm.closeOnce.Do(func() { close(sm.done) })
}
