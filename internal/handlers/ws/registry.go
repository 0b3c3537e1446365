package ws

import (
	"time"
)

// Connection is the binding between a channel connection and its owning user.
type Connection struct {
	ID            string
	UserID        uint
	EstablishedAt time.Time
}

// userConns tracks a user's live connections in registration order. The last
// element of order is the most recently registered connection; active always
// points at one of them while any remain.
type userConns struct {
	active string
	order  []string
}

// Registry is the bidirectional connection/user mapping every other presence
// component reads. It is owned by the hub loop and is not safe for concurrent
// use on its own.
type Registry struct {
	conns map[string]*Connection
	users map[uint]*userConns
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
		users: make(map[uint]*userConns),
	}
}

// Register binds a connection to a user and makes it the active connection.
// The most recently registered connection always wins the active slot, even
// when older connections from the same user remain open (multiple tabs).
// Re-registering a known connection only refreshes its active status.
func (r *Registry) Register(connID string, userID uint) {
	if existing, ok := r.conns[connID]; ok {
		if existing.UserID == userID {
			if uc := r.users[userID]; uc != nil {
				uc.active = connID
			}
			return
		}
		// Connection re-identified as a different user: release the old
		// binding before creating the new one.
		r.Unregister(connID)
	}

	r.conns[connID] = &Connection{
		ID:            connID,
		UserID:        userID,
		EstablishedAt: time.Now(),
	}

	uc := r.users[userID]
	if uc == nil {
		uc = &userConns{}
		r.users[userID] = uc
	}
	uc.order = append(uc.order, connID)
	uc.active = connID
}

// Unregister removes a connection from its owner's live set. If it was the
// active connection, the most recently registered remaining connection is
// promoted; with none left the active slot is cleared but the user entry
// itself survives for the process lifetime.
func (r *Registry) Unregister(connID string) (userID uint, wasActive bool, ok bool) {
	conn, found := r.conns[connID]
	if !found {
		return 0, false, false
	}
	delete(r.conns, connID)

	uc := r.users[conn.UserID]
	if uc == nil {
		return conn.UserID, false, true
	}

	for i, id := range uc.order {
		if id == connID {
			uc.order = append(uc.order[:i], uc.order[i+1:]...)
			break
		}
	}

	wasActive = uc.active == connID
	if wasActive {
		if n := len(uc.order); n > 0 {
			uc.active = uc.order[n-1]
		} else {
			uc.active = ""
		}
	}

	return conn.UserID, wasActive, true
}

// ClearUser drops every connection binding for a user (explicit logout) and
// returns the removed connection ids so the caller can cancel their timers.
func (r *Registry) ClearUser(userID uint) []string {
	uc := r.users[userID]
	if uc == nil {
		return nil
	}
	removed := make([]string, 0, len(uc.order))
	for _, id := range uc.order {
		delete(r.conns, id)
		removed = append(removed, id)
	}
	uc.order = nil
	uc.active = ""
	return removed
}

// OwnerOf returns the user owning a connection.
func (r *Registry) OwnerOf(connID string) (uint, bool) {
	conn, ok := r.conns[connID]
	if !ok {
		return 0, false
	}
	return conn.UserID, true
}

// ConnectionsOf returns the user's live connection ids in registration order.
func (r *Registry) ConnectionsOf(userID uint) []string {
	uc := r.users[userID]
	if uc == nil || len(uc.order) == 0 {
		return nil
	}
	out := make([]string, len(uc.order))
	copy(out, uc.order)
	return out
}

// Active returns the user's currently active connection id.
func (r *Registry) Active(userID uint) (string, bool) {
	uc := r.users[userID]
	if uc == nil || uc.active == "" {
		return "", false
	}
	return uc.active, true
}

// Reachable reports whether the user has at least one live connection.
func (r *Registry) Reachable(userID uint) bool {
	uc := r.users[userID]
	return uc != nil && len(uc.order) > 0
}

// Users returns every user id the registry has ever seen.
func (r *Registry) Users() []uint {
	out := make([]uint, 0, len(r.users))
	for id := range r.users {
		out = append(out, id)
	}
	return out
}
