package ws

import (
	"time"
)

type ReceiptStatus string

const (
	StatusSent      ReceiptStatus = "sent"
	StatusQueued    ReceiptStatus = "queued"
	StatusDelivered ReceiptStatus = "delivered"
	StatusTimedOut  ReceiptStatus = "timed_out"
)

// DefaultDeliveryTimeout is how long a sent notification may wait for its
// client confirmation before it is reported timed out to the sender.
const DefaultDeliveryTimeout = 10 * time.Second

// DeliveryReceipt correlates one outbound notification with the recipient's
// acknowledgment. A receipt leaves the sent state at most once, to either
// delivered or timed_out; both are terminal and remove the receipt.
type DeliveryReceipt struct {
	MessageID   string
	UserID      uint
	Status      ReceiptStatus
	SenderID    string // session that initiated the send, target of diagnostics
	SentAt      time.Time
	ConfirmedAt *time.Time
}

// DeliveryTracker owns the in-flight receipts and their timeout timers.
// State mutation happens on the hub loop; the timer callback fires on a
// timer goroutine, so onExpire must re-enter the loop before touching state.
type DeliveryTracker struct {
	receipts map[string]*DeliveryReceipt
	timers   map[string]*time.Timer
	timeout  time.Duration
	onExpire func(messageID string)
}

func NewDeliveryTracker(timeout time.Duration, onExpire func(messageID string)) *DeliveryTracker {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	return &DeliveryTracker{
		receipts: make(map[string]*DeliveryReceipt),
		timers:   make(map[string]*time.Timer),
		timeout:  timeout,
		onExpire: onExpire,
	}
}

// TrackSent records a sent receipt and arms its confirmation timeout.
func (t *DeliveryTracker) TrackSent(messageID string, userID uint, senderID string) *DeliveryReceipt {
	r := &DeliveryReceipt{
		MessageID: messageID,
		UserID:    userID,
		Status:    StatusSent,
		SenderID:  senderID,
		SentAt:    time.Now(),
	}
	t.receipts[messageID] = r
	if t.onExpire != nil {
		id := messageID
		t.timers[messageID] = time.AfterFunc(t.timeout, func() { t.onExpire(id) })
	}
	return r
}

// TrackQueued records a queued receipt. Queued receipts carry no timer: they
// resolve only through a later flush, never through confirmation.
func (t *DeliveryTracker) TrackQueued(messageID string, userID uint, senderID string) *DeliveryReceipt {
	r := &DeliveryReceipt{
		MessageID: messageID,
		UserID:    userID,
		Status:    StatusQueued,
		SenderID:  senderID,
		SentAt:    time.Now(),
	}
	t.receipts[messageID] = r
	return r
}

// Confirm transitions a sent receipt to delivered, cancels its timer and
// clears it. Confirmations for unknown or already-terminal receipts are
// ignored.
func (t *DeliveryTracker) Confirm(messageID string) (DeliveryReceipt, bool) {
	r, ok := t.receipts[messageID]
	if !ok || r.Status != StatusSent {
		return DeliveryReceipt{}, false
	}
	now := time.Now()
	r.Status = StatusDelivered
	r.ConfirmedAt = &now
	t.cancelTimer(messageID)
	delete(t.receipts, messageID)
	return *r, true
}

// Expire transitions a sent receipt to timed_out and clears it. A receipt
// that was already confirmed is left alone, so the two terminal transitions
// cannot both happen.
func (t *DeliveryTracker) Expire(messageID string) (DeliveryReceipt, bool) {
	r, ok := t.receipts[messageID]
	if !ok || r.Status != StatusSent {
		return DeliveryReceipt{}, false
	}
	r.Status = StatusTimedOut
	t.cancelTimer(messageID)
	delete(t.receipts, messageID)
	return *r, true
}

// ResolveQueued discards a queued receipt after its message was flushed.
func (t *DeliveryTracker) ResolveQueued(messageID string) (DeliveryReceipt, bool) {
	r, ok := t.receipts[messageID]
	if !ok || r.Status != StatusQueued {
		return DeliveryReceipt{}, false
	}
	delete(t.receipts, messageID)
	return *r, true
}

// Receipt returns a copy of an in-flight receipt.
func (t *DeliveryTracker) Receipt(messageID string) (DeliveryReceipt, bool) {
	r, ok := t.receipts[messageID]
	if !ok {
		return DeliveryReceipt{}, false
	}
	return *r, true
}

// Pending returns the number of in-flight receipts.
func (t *DeliveryTracker) Pending() int {
	return len(t.receipts)
}

// Stop cancels every outstanding timer (hub teardown).
func (t *DeliveryTracker) Stop() {
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}

func (t *DeliveryTracker) cancelTimer(messageID string) {
	if timer, ok := t.timers[messageID]; ok {
		timer.Stop()
		delete(t.timers, messageID)
	}
}
