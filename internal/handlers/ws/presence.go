package ws

import (
	"time"
)

// PresenceState is the per-user persisted-side view of presence. Online is
// the durable flag: flipped true by identification, false only by an explicit
// logout. A connection drop that empties the live set clears ChannelConnected
// while leaving Online untouched.
type PresenceState struct {
	UserID           uint
	Online           bool
	ChannelConnected bool
	ActiveConnID     string
	LastActive       time.Time
}

// UserStatus is the observer-facing composite status. Reachable deliberately
// overrides a stale persisted flag: a user with no live connections is
// reported offline even while Online is still true.
type UserStatus struct {
	UserID     uint      `json:"user_id"`
	Reachable  bool      `json:"online"`
	LastActive time.Time `json:"last_active"`
}

// Aggregator derives composite presence from the registry's live state and
// the persisted flags. Owned by the hub loop.
type Aggregator struct {
	registry *Registry
	states   map[uint]*PresenceState
}

func NewAggregator(registry *Registry) *Aggregator {
	return &Aggregator{
		registry: registry,
		states:   make(map[uint]*PresenceState),
	}
}

func (a *Aggregator) state(userID uint) *PresenceState {
	st := a.states[userID]
	if st == nil {
		st = &PresenceState{UserID: userID}
		a.states[userID] = st
	}
	return st
}

// Identify records a successful identification: the persisted flag goes
// true, the channel is marked connected and the active connection is pinned.
func (a *Aggregator) Identify(userID uint, connID string) PresenceState {
	st := a.state(userID)
	st.Online = true
	st.ChannelConnected = true
	st.ActiveConnID = connID
	st.LastActive = time.Now()
	return *st
}

// Logout is the only transition that forces the persisted flag false.
func (a *Aggregator) Logout(userID uint) PresenceState {
	st := a.state(userID)
	st.Online = false
	st.ChannelConnected = false
	st.ActiveConnID = ""
	st.LastActive = time.Now()
	return *st
}

// ConnectionClosed reconciles persisted state after a connection drop. The
// surviving active connection (if any) is recorded; losing the last live
// connection clears ChannelConnected but intentionally leaves Online true —
// only an explicit logout flips it.
func (a *Aggregator) ConnectionClosed(userID uint) PresenceState {
	st := a.state(userID)
	if active, ok := a.registry.Active(userID); ok {
		st.ActiveConnID = active
		st.ChannelConnected = true
	} else {
		st.ActiveConnID = ""
		st.ChannelConnected = false
	}
	st.LastActive = time.Now()
	return *st
}

// Touch refreshes the last-active timestamp (keepalive path).
func (a *Aggregator) Touch(userID uint) PresenceState {
	st := a.state(userID)
	st.LastActive = time.Now()
	return *st
}

// Reachable reports delivery reachability: true iff the user has a live
// connection right now, independent of the persisted flag.
func (a *Aggregator) Reachable(userID uint) bool {
	return a.registry.Reachable(userID)
}

// StatusOf returns the observer-facing composite status for one user.
func (a *Aggregator) StatusOf(userID uint) UserStatus {
	st := a.state(userID)
	return UserStatus{
		UserID:     userID,
		Reachable:  a.registry.Reachable(userID),
		LastActive: st.LastActive,
	}
}

// StateOf returns a copy of the persisted-side state.
func (a *Aggregator) StateOf(userID uint) (PresenceState, bool) {
	st, ok := a.states[userID]
	if !ok {
		return PresenceState{}, false
	}
	return *st, true
}

// Snapshot lists composite status for every user the subsystem has seen,
// which is what observers get from a get_online_users request.
func (a *Aggregator) Snapshot() []UserStatus {
	seen := make(map[uint]bool, len(a.states))
	out := make([]UserStatus, 0, len(a.states))
	for id := range a.states {
		out = append(out, a.StatusOf(id))
		seen[id] = true
	}
	for _, id := range a.registry.Users() {
		if !seen[id] {
			out = append(out, a.StatusOf(id))
		}
	}
	return out
}
