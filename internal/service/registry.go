package service

import (
	"sync"
	"time"

	"shopfloor/internal/model"
	"shopfloor/internal/odata"
)

// LiveSession is a logged-in portal user: the SAP session it reads with and
// the cached collections of its list screens.
type LiveSession struct {
	ID      string
	UserID  string
	LoginAt time.Time
	SAP     *odata.Session

	mu      sync.Mutex
	screens map[model.Kind]*screen
}

func NewLiveSession(id, userID string, loginAt time.Time, sap *odata.Session) *LiveSession {
	return &LiveSession{
		ID:      id,
		UserID:  userID,
		LoginAt: loginAt,
		SAP:     sap,
		screens: make(map[model.Kind]*screen),
	}
}

// screen must be called with mu held.
func (ls *LiveSession) screen(kind model.Kind) *screen {
	sc, ok := ls.screens[kind]
	if !ok {
		sc = &screen{}
		ls.screens[kind] = sc
	}
	return sc
}

// SessionRegistry holds the live sessions of this process.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*LiveSession
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*LiveSession)}
}

func (r *SessionRegistry) Add(ls *LiveSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[ls.ID] = ls
}

func (r *SessionRegistry) Get(id string) (*LiveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ls, ok := r.sessions[id]
	return ls, ok
}

// Remove drops the session and clears its SAP state.
func (r *SessionRegistry) Remove(id string) (*LiveSession, bool) {
	r.mu.Lock()
	ls, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok && ls.SAP != nil {
		ls.SAP.Clear()
	}
	return ls, ok
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
