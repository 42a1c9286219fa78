package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shrinedev/shrine/internal/shrine"
)

// Session is an in-memory cache of a derived key for one shrine file. It is
// never persisted. The expiry is fixed at unlock time and is not extended by
// activity.
type Session struct {
	Folder    string
	UUID      uuid.UUID
	ExpiresAt time.Time

	key shrine.Bytes
}

// Key returns a copy of the cached key. Callers own the copy and should wipe
// it when done.
func (s *Session) Key() []byte {
	return append([]byte(nil), s.key...)
}

// sessionStore holds at most one session per shrine folder. Every teardown
// path (expiry sweep, explicit lock, shutdown) funnels through clear.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*Session)}
}

// put replaces any existing session for the folder.
func (ss *sessionStore) put(folder string, id uuid.UUID, key []byte, expiresAt time.Time) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if previous, ok := ss.sessions[folder]; ok {
		previous.key.Wipe()
	}
	ss.sessions[folder] = &Session{
		Folder:    folder,
		UUID:      id,
		ExpiresAt: expiresAt,
		key:       append(shrine.Bytes(nil), key...),
	}
}

// get returns the live session for folder, or nil when none exists or the
// session expired. Expired sessions are cleared on sight.
func (ss *sessionStore) get(folder string, now time.Time) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	session, ok := ss.sessions[folder]
	if !ok {
		return nil
	}
	if !now.Before(session.ExpiresAt) {
		ss.clearLocked(folder)
		return nil
	}
	return session
}

// clear removes the session for folder and wipes its key.
func (ss *sessionStore) clear(folder string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.clearLocked(folder)
}

// clearAll removes every session.
func (ss *sessionStore) clearAll() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	for folder := range ss.sessions {
		ss.clearLocked(folder)
	}
}

// sweep clears every session whose expiry has passed and reports how many
// were cleared.
func (ss *sessionStore) sweep(now time.Time) int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	cleared := 0
	for folder, session := range ss.sessions {
		if !now.Before(session.ExpiresAt) {
			ss.clearLocked(folder)
			cleared++
		}
	}
	return cleared
}

func (ss *sessionStore) clearLocked(folder string) {
	if session, ok := ss.sessions[folder]; ok {
		session.key.Wipe()
		delete(ss.sessions, folder)
	}
}

// count returns the number of live sessions.
func (ss *sessionStore) count() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}
