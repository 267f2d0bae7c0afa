package net

// SessionStore holds the sessions known to the game loop.
// Accessed only from the game loop goroutine; no locks.
type SessionStore struct {
	sessions map[uint64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uint64]*Session)}
}

func (st *SessionStore) Add(s *Session) {
	st.sessions[s.ID] = s
}

func (st *SessionStore) Remove(id uint64) {
	delete(st.sessions, id)
}

// Get returns a session by ID, or nil if not found.
func (st *SessionStore) Get(id uint64) *Session {
	return st.sessions[id]
}

// Raw exposes the map for iteration by the input and output systems.
func (st *SessionStore) Raw() map[uint64]*Session {
	return st.sessions
}

func (st *SessionStore) Len() int {
	return len(st.sessions)
}

// ForEach calls fn for every session.
func (st *SessionStore) ForEach(fn func(*Session)) {
	for _, s := range st.sessions {
		fn(s)
	}
}
