package chat

import (
	"errors"
	"sort"
	"sync"
	"time"

	"slimechat/backend/internal/models"
)

// ErrDuplicateConnection means a connection identifier was registered twice.
// Transport semantics make this unreachable; if it fires, something upstream
// broke an invariant.
var ErrDuplicateConnection = errors.New("connection already registered")

// Session is the live, connection-scoped identity of a joined user. A Session
// holds a ChatUser value plus the connection identifier; there is no shared
// record between the two.
type Session struct {
	ConnectionID string
	User         models.ChatUser
	JoinedAt     time.Time

	seq uint64
}

// PresenceRegistry tracks the set of joined connections. All reads hand out
// snapshots; callers never see the live map.
type PresenceRegistry struct {
	mu       sync.RWMutex
	sessions map[string]Session
	nextSeq  uint64
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		sessions: make(map[string]Session),
	}
}

// Join registers a session for the connection. Fails with
// ErrDuplicateConnection when the identifier is already present.
func (r *PresenceRegistry) Join(connectionID string, user models.ChatUser) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[connectionID]; exists {
		return Session{}, ErrDuplicateConnection
	}

	r.nextSeq++
	session := Session{
		ConnectionID: connectionID,
		User:         user,
		JoinedAt:     time.Now(),
		seq:          r.nextSeq,
	}
	r.sessions[connectionID] = session
	return session, nil
}

// Leave removes the session for the connection, reporting whether one
// existed. Leaving an unknown connection is a no-op.
func (r *PresenceRegistry) Leave(connectionID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[connectionID]
	if exists {
		delete(r.sessions, connectionID)
	}
	return session, exists
}

// ListActive returns a point-in-time snapshot of live sessions in join order.
func (r *PresenceRegistry) ListActive() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		snapshot = append(snapshot, session)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].seq < snapshot[j].seq
	})
	return snapshot
}

// ActiveUsers returns the wire-shaped identity of every live session in join order.
func (r *PresenceRegistry) ActiveUsers() []models.ChatUser {
	sessions := r.ListActive()
	users := make([]models.ChatUser, len(sessions))
	for i, session := range sessions {
		users[i] = session.User
	}
	return users
}
