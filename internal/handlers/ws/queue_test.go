package ws

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestFlushReturnsMessagesInEnqueueOrder(t *testing.T) {
	q := NewOfflineQueue()
	for i := 0; i < 5; i++ {
		payload, _ := json.Marshal(map[string]int{"seq": i})
		q.Enqueue(1, fmt.Sprintf("msg-%d", i), payload)
	}

	msgs := q.Flush(1)
	if len(msgs) != 5 {
		t.Fatalf("flush returned %d messages, want 5", len(msgs))
	}
	for i, msg := range msgs {
		want := fmt.Sprintf("msg-%d", i)
		if msg.MessageID != want {
			t.Errorf("message %d = %s, want %s (FIFO order)", i, msg.MessageID, want)
		}
	}
}

func TestFlushClearsExactlyOnce(t *testing.T) {
	q := NewOfflineQueue()
	q.Enqueue(1, "msg-1", nil)

	if got := len(q.Flush(1)); got != 1 {
		t.Fatalf("first flush returned %d messages, want 1", got)
	}
	if got := q.Flush(1); got != nil {
		t.Errorf("second flush returned %v, want nil", got)
	}
	if q.Len(1) != 0 {
		t.Error("queue must be empty after flush")
	}
}

func TestFlushAbsentUserIsNoOp(t *testing.T) {
	q := NewOfflineQueue()
	if got := q.Flush(99); got != nil {
		t.Errorf("flush of absent user returned %v, want nil", got)
	}
}

func TestQueuesAreIndependentPerUser(t *testing.T) {
	q := NewOfflineQueue()
	q.Enqueue(1, "msg-a", nil)
	q.Enqueue(2, "msg-b", nil)
	q.Enqueue(2, "msg-c", nil)

	if q.Len(1) != 1 || q.Len(2) != 2 {
		t.Fatalf("queue lengths = (%d, %d), want (1, 2)", q.Len(1), q.Len(2))
	}

	q.Flush(2)
	if q.Len(1) != 1 {
		t.Error("flushing user 2 must not touch user 1's queue")
	}
}
