package ws

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type mockPresenceStore struct {
	mu      sync.Mutex
	records []PresenceRecord
	fail    bool
}

func (m *mockPresenceStore) UpdatePresence(rec PresenceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store unavailable")
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockPresenceStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *mockPresenceStore) last() (PresenceRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return PresenceRecord{}, false
	}
	return m.records[len(m.records)-1], true
}

type mockMirror struct {
	mu      sync.Mutex
	online  map[uint]bool
	touched int
}

func newMockMirror() *mockMirror {
	return &mockMirror{online: make(map[uint]bool)}
}

func (m *mockMirror) SetUserOnline(userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[userID] = true
	m.touched++
	return nil
}

func (m *mockMirror) SetUserOffline(userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[userID] = false
	m.touched++
	return nil
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestScheduleWritesThroughToStoreAndMirror(t *testing.T) {
	store := &mockPresenceStore{}
	mirror := newMockMirror()
	s := NewPresenceSync(store, mirror, 2, time.Hour)
	defer s.Close()

	s.Schedule(PresenceRecord{UserID: 1, Online: true, ChannelConnected: true, ActiveConnID: "conn-a", LastActive: time.Now()})

	waitUntil(t, func() bool { return store.count() == 1 }, "store never saw the write")
	rec, _ := store.last()
	if !rec.Online || rec.ActiveConnID != "conn-a" {
		t.Errorf("stored record = %+v", rec)
	}
	waitUntil(t, func() bool {
		mirror.mu.Lock()
		defer mirror.mu.Unlock()
		return mirror.online[1]
	}, "mirror never marked the user online")
}

func TestStoreFailureIsSwallowed(t *testing.T) {
	store := &mockPresenceStore{fail: true}
	mirror := newMockMirror()
	s := NewPresenceSync(store, mirror, 1, time.Hour)
	defer s.Close()

	// A failing store must not stop the mirror update or later writes.
	s.Schedule(PresenceRecord{UserID: 1, ChannelConnected: true})
	waitUntil(t, func() bool {
		mirror.mu.Lock()
		defer mirror.mu.Unlock()
		return mirror.touched == 1
	}, "mirror update lost behind store failure")
}

func TestHeartbeatRefreshesLastActive(t *testing.T) {
	store := &mockPresenceStore{}
	s := NewPresenceSync(store, nil, 1, 10*time.Millisecond)
	defer s.Close()

	s.StartHeartbeat("conn-a", 1)
	if !s.HeartbeatActive("conn-a") {
		t.Fatal("heartbeat should be running")
	}

	waitUntil(t, func() bool { return store.count() >= 2 }, "heartbeat never wrote")
	rec, _ := store.last()
	if rec.UserID != 1 || rec.ActiveConnID != "conn-a" || !rec.ChannelConnected {
		t.Errorf("heartbeat record = %+v", rec)
	}

	s.StopHeartbeat("conn-a")
	if s.HeartbeatActive("conn-a") {
		t.Error("heartbeat should be stopped")
	}
	settled := store.count()
	time.Sleep(50 * time.Millisecond)
	if got := store.count(); got > settled+1 {
		t.Errorf("writes kept flowing after stop: %d -> %d", settled, got)
	}
}

func TestStartHeartbeatTwiceIsNoOp(t *testing.T) {
	store := &mockPresenceStore{}
	s := NewPresenceSync(store, nil, 1, time.Hour)
	defer s.Close()

	s.StartHeartbeat("conn-a", 1)
	s.StartHeartbeat("conn-a", 1)
	s.StopHeartbeat("conn-a")
	if s.HeartbeatActive("conn-a") {
		t.Error("single stop must cancel the heartbeat")
	}
}

func TestScheduleAfterCloseIsDropped(t *testing.T) {
	store := &mockPresenceStore{}
	s := NewPresenceSync(store, nil, 1, time.Hour)
	s.Close()

	// Shutdown races a turn still in flight on the hub loop; a late write
	// must be dropped, not crash the process.
	s.Schedule(PresenceRecord{UserID: 1, ChannelConnected: true})

	time.Sleep(20 * time.Millisecond)
	if got := store.count(); got != 0 {
		t.Errorf("write after close reached the store: %d records", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := NewPresenceSync(&mockPresenceStore{}, nil, 1, time.Hour)
	s.StartHeartbeat("conn-a", 1)
	s.Close()
	s.Close()
	if s.HeartbeatActive("conn-a") {
		t.Error("close must cancel heartbeats")
	}
}
