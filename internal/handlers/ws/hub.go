package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hub owns every piece of mutable presence state: the connection registry,
// the presence aggregator, the offline queue and the delivery tracker. All
// mutation runs as non-overlapping turns on a single goroutine, so the state
// needs no locking and each event observes the strict order
// registry update -> presence recomputation -> dispatch decision.
type Hub struct {
	registry *Registry
	presence *Aggregator
	queue    *OfflineQueue
	tracker  *DeliveryTracker
	sync     *PresenceSync

	sessions map[string]Sender

	turns    chan func()
	quit     chan struct{}
	stopOnce sync.Once
}

// NewHub wires the presence components together. A zero deliveryTimeout
// selects the default confirmation window.
func NewHub(presenceSync *PresenceSync, deliveryTimeout time.Duration) *Hub {
	registry := NewRegistry()
	h := &Hub{
		registry: registry,
		presence: NewAggregator(registry),
		queue:    NewOfflineQueue(),
		sync:     presenceSync,
		sessions: make(map[string]Sender),
		turns:    make(chan func(), 256),
		quit:     make(chan struct{}),
	}
	h.tracker = NewDeliveryTracker(deliveryTimeout, func(messageID string) {
		h.post(func() { h.expireDelivery(messageID) })
	})
	return h
}

// Run drains the turn queue until Stop. Exactly one Run goroutine may exist.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			return
		case turn := <-h.turns:
			turn()
		}
	}
}

// Stop shuts the loop down and cancels all timers and heartbeats.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
		h.tracker.Stop()
		if h.sync != nil {
			h.sync.Close()
		}
	})
}

func (h *Hub) post(turn func()) {
	select {
	case <-h.quit:
	case h.turns <- turn:
	}
}

// Connect attaches a new session. The connection stays anonymous until an
// identify event binds it to a user.
func (h *Hub) Connect(s Sender) {
	h.post(func() {
		h.sessions[s.ID()] = s
		log.Printf("Session %s connected (total: %d)", s.ID(), len(h.sessions))
	})
}

// Disconnect tears a session down: the connection leaves its owner's live
// set, the heartbeat is cancelled, and observers learn when the user became
// unreachable.
func (h *Hub) Disconnect(sessionID string) {
	h.post(func() { h.disconnect(sessionID) })
}

// Dispatch applies one inbound channel event as a loop turn. Events from the
// same connection arrive in order because each read loop posts sequentially.
func (h *Hub) Dispatch(sessionID string, event Event) {
	h.post(func() {
		if err := event.Process(&EventContext{SessionID: sessionID, Hub: h}); err != nil {
			log.Printf("Error processing %s event from session %s: %v", event.GetType(), sessionID, err)
		}
	})
}

// PushToUser delivers a notification payload to one user, queueing it when
// the user is unreachable. Used by the REST send path; messageID correlates
// the delivery receipt with the persisted notification.
func (h *Hub) PushToUser(messageID string, userID uint, payload json.RawMessage) {
	h.post(func() { h.sendToUser(messageID, userID, payload, "") })
}

// PushBroadcast fans a payload out to every connected session, observers
// included, with no reachability check and no receipts.
func (h *Hub) PushBroadcast(messageID string, payload json.RawMessage) {
	h.post(func() { h.broadcastAll(messageID, payload) })
}

// PushToObservers sends a payload to the observer group only. Like
// broadcasts, observer pushes carry no receipts; a disconnected observer
// re-syncs through a snapshot request.
func (h *Hub) PushToObservers(messageID string, payload json.RawMessage) {
	h.post(func() {
		if messageID == "" {
			messageID = uuid.NewString()
		}
		h.notifyObservers(notificationEvent(messageID, payload))
	})
}

// Logout applies the explicit logout transition (REST fallback path).
func (h *Hub) Logout(userID uint) {
	h.post(func() { h.logout(userID, "logout") })
}

// Snapshot returns the composite status of every known user. It round-trips
// through the loop so the read observes a consistent turn boundary.
func (h *Hub) Snapshot() []UserStatus {
	reply := make(chan []UserStatus, 1)
	h.post(func() { reply <- h.presence.Snapshot() })
	select {
	case <-h.quit:
		return nil
	case users := <-reply:
		return users
	}
}

// StatusOf returns one user's composite status through the same loop round
// trip as Snapshot.
func (h *Hub) StatusOf(userID uint) UserStatus {
	reply := make(chan UserStatus, 1)
	h.post(func() { reply <- h.presence.StatusOf(userID) })
	select {
	case <-h.quit:
		return UserStatus{UserID: userID}
	case status := <-reply:
		return status
	}
}

// loop-only internals below; never call outside a turn.

func (h *Hub) identify(sessionID string, userID uint, source string) {
	sess := h.sessions[sessionID]
	if sess == nil {
		return
	}

	// A session re-identifying as a different user first leaves its old
	// owner's live set, with the same reconciliation a disconnect runs.
	if prevOwner, ok := h.registry.OwnerOf(sessionID); ok && prevOwner != userID {
		h.releaseBinding(sessionID)
	}

	prevActive, hadActive := h.registry.Active(userID)
	h.registry.Register(sessionID, userID)
	state := h.presence.Identify(userID, sessionID)

	if h.sync != nil {
		if hadActive && prevActive != sessionID {
			h.sync.StopHeartbeat(prevActive)
		}
		h.sync.StartHeartbeat(sessionID, userID)
		h.sync.Schedule(recordOf(state))
	}

	h.notifyObservers(statusChangedEvent(userID, true, source))
	h.flushQueued(userID, sess)

	log.Printf("User %d identified on session %s (connections: %d)", userID, sessionID, len(h.registry.ConnectionsOf(userID)))
}

func (h *Hub) logout(userID uint, source string) {
	if userID == 0 {
		return
	}
	removed := h.registry.ClearUser(userID)
	if h.sync != nil {
		for _, connID := range removed {
			h.sync.StopHeartbeat(connID)
		}
	}
	state := h.presence.Logout(userID)
	if h.sync != nil {
		h.sync.Schedule(recordOf(state))
	}
	h.notifyObservers(statusChangedEvent(userID, false, source))
	log.Printf("User %d logged out (%d connections released)", userID, len(removed))
}

func (h *Hub) disconnect(sessionID string) {
	if sess, ok := h.sessions[sessionID]; ok {
		sess.Close()
		delete(h.sessions, sessionID)
	}
	h.releaseBinding(sessionID)
}

// releaseBinding removes a connection from its owner's live set and runs the
// presence and persistence reconciliation. The session itself stays open so
// a re-identifying connection can keep using it.
func (h *Hub) releaseBinding(sessionID string) {
	if h.sync != nil {
		h.sync.StopHeartbeat(sessionID)
	}

	userID, wasActive, ok := h.registry.Unregister(sessionID)
	if !ok {
		return
	}

	state := h.presence.ConnectionClosed(userID)
	if wasActive && h.sync != nil {
		if active, stillUp := h.registry.Active(userID); stillUp {
			h.sync.StartHeartbeat(active, userID)
		}
	}
	if h.sync != nil {
		h.sync.Schedule(recordOf(state))
	}

	if !h.registry.Reachable(userID) {
		// The persisted online flag stays true here; only composite
		// reachability flips, and that is what observers see.
		h.notifyObservers(statusChangedEvent(userID, false, "disconnect"))
	}
}

func (h *Hub) sendToUser(messageID string, userID uint, payload json.RawMessage, senderSessionID string) {
	if userID == 0 {
		return
	}
	if messageID == "" {
		messageID = uuid.NewString()
	}

	if h.presence.Reachable(userID) {
		event := notificationEvent(messageID, payload)
		for _, connID := range h.registry.ConnectionsOf(userID) {
			if sess := h.sessions[connID]; sess != nil {
				if err := sess.Send(event); err != nil {
					log.Printf("Error sending %s to session %s: %v", messageID, connID, err)
				}
			}
		}
		h.tracker.TrackSent(messageID, userID, senderSessionID)
		h.notifySession(senderSessionID, deliveryStatusEvent(messageID, StatusSent))
		return
	}

	h.queue.Enqueue(userID, messageID, payload)
	h.tracker.TrackQueued(messageID, userID, senderSessionID)
	h.notifySession(senderSessionID, deliveryStatusEvent(messageID, StatusQueued))
}

func (h *Hub) broadcastAll(messageID string, payload json.RawMessage) {
	if messageID == "" {
		messageID = uuid.NewString()
	}
	event := notificationEvent(messageID, payload)
	for id, sess := range h.sessions {
		if err := sess.Send(event); err != nil {
			log.Printf("Error broadcasting to session %s: %v", id, err)
		}
	}
}

func (h *Hub) confirm(messageID string, userID uint) {
	receipt, ok := h.tracker.Receipt(messageID)
	if !ok {
		return
	}
	if userID != 0 && receipt.UserID != userID {
		return
	}
	if confirmed, ok := h.tracker.Confirm(messageID); ok {
		h.notifySession(confirmed.SenderID, deliveryStatusEvent(messageID, StatusDelivered))
	}
}

// expireDelivery fires when a sent notification saw no confirmation inside
// the timeout window. Diagnostic only: the message is not resent.
func (h *Hub) expireDelivery(messageID string) {
	receipt, ok := h.tracker.Expire(messageID)
	if !ok {
		return
	}
	log.Printf("Delivery of %s to user %d timed out without confirmation", messageID, receipt.UserID)
	h.notifySession(receipt.SenderID, deliveryTimeoutEvent(messageID))
}

func (h *Hub) flushQueued(userID uint, sess Sender) {
	msgs := h.queue.Flush(userID)
	if len(msgs) == 0 {
		return
	}
	for _, msg := range msgs {
		if err := sess.Send(notificationEvent(msg.MessageID, msg.Payload)); err != nil {
			log.Printf("Error flushing %s to user %d: %v", msg.MessageID, userID, err)
		}
		if receipt, ok := h.tracker.ResolveQueued(msg.MessageID); ok {
			h.notifySession(receipt.SenderID, deliveryStatusEvent(msg.MessageID, StatusDelivered))
		}
	}
	if err := sess.Send(queuedFlushedEvent(userID, len(msgs))); err != nil {
		log.Printf("Error sending flush summary to user %d: %v", userID, err)
	}
	log.Printf("Flushed %d queued messages to user %d", len(msgs), userID)
}

// notifyObservers pushes an event to the observer group. No reachability
// check and no receipts: disconnected observers re-sync via a snapshot
// request instead.
func (h *Hub) notifyObservers(event Envelope) {
	for id, sess := range h.sessions {
		if !sess.Observer() {
			continue
		}
		if err := sess.Send(event); err != nil {
			log.Printf("Error notifying observer session %s: %v", id, err)
		}
	}
}

func (h *Hub) notifySession(sessionID string, event Envelope) {
	if sessionID == "" {
		return
	}
	sess := h.sessions[sessionID]
	if sess == nil {
		return
	}
	if err := sess.Send(event); err != nil {
		log.Printf("Error notifying session %s: %v", sessionID, err)
	}
}

func recordOf(state PresenceState) PresenceRecord {
	return PresenceRecord{
		UserID:           state.UserID,
		Online:           state.Online,
		ChannelConnected: state.ChannelConnected,
		ActiveConnID:     state.ActiveConnID,
		LastActive:       state.LastActive,
	}
}
