package ws

import (
	"encoding/json"
	"time"
)

// PendingMessage buffers a notification for a user who had no live
// connection at send time. It lives only until the user's next flush.
type PendingMessage struct {
	MessageID  string
	UserID     uint
	Payload    json.RawMessage
	EnqueuedAt time.Time
}

// OfflineQueue holds per-user FIFO lists of pending messages. Owned by the
// hub loop.
type OfflineQueue struct {
	pending map[uint][]PendingMessage
}

func NewOfflineQueue() *OfflineQueue {
	return &OfflineQueue{pending: make(map[uint][]PendingMessage)}
}

// Enqueue appends a message to the user's pending list, creating the list if
// this is the user's first queued message.
func (q *OfflineQueue) Enqueue(userID uint, messageID string, payload json.RawMessage) {
	q.pending[userID] = append(q.pending[userID], PendingMessage{
		MessageID:  messageID,
		UserID:     userID,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	})
}

// Flush returns the user's pending messages in enqueue order and clears the
// list. Flushing an empty or absent list is a no-op returning nil.
func (q *OfflineQueue) Flush(userID uint) []PendingMessage {
	msgs := q.pending[userID]
	if len(msgs) == 0 {
		return nil
	}
	delete(q.pending, userID)
	return msgs
}

// Len returns the number of messages waiting for a user.
func (q *OfflineQueue) Len(userID uint) int {
	return len(q.pending[userID])
}
