package ws

import (
	"log"
	"sync"
	"time"
)

// DefaultHeartbeatInterval is how often the active connection's heartbeat
// refreshes the persisted last-active timestamp.
const DefaultHeartbeatInterval = 30 * time.Second

// PresenceRecord is the durable projection of a presence transition.
type PresenceRecord struct {
	UserID           uint
	Online           bool
	ChannelConnected bool
	ActiveConnID     string
	LastActive       time.Time
}

// PresenceStore is the durable side of Persistence Sync, implemented by the
// user repository.
type PresenceStore interface {
	UpdatePresence(rec PresenceRecord) error
}

// PresenceMirror is the best-effort cache side (Redis online set). A nil
// mirror is skipped.
type PresenceMirror interface {
	SetUserOnline(userID uint) error
	SetUserOffline(userID uint) error
}

// PresenceSync mirrors presence transitions into durable storage without
// ever blocking the live path: writes go through a bounded queue drained by
// a fixed worker pool, and a full queue drops the write with a log line.
// Failed writes are not retried; the next natural transition or heartbeat
// refreshes the record.
type PresenceSync struct {
	store  PresenceStore
	mirror PresenceMirror

	writes chan PresenceRecord
	wg     sync.WaitGroup
	quit   chan struct{}

	mu         sync.Mutex
	heartbeats map[string]chan struct{} // keyed by connection id
	interval   time.Duration
	closed     bool
}

func NewPresenceSync(store PresenceStore, mirror PresenceMirror, workers int, interval time.Duration) *PresenceSync {
	if workers <= 0 {
		workers = 4
	}
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	s := &PresenceSync{
		store:      store,
		mirror:     mirror,
		writes:     make(chan PresenceRecord, 256),
		quit:       make(chan struct{}),
		heartbeats: make(map[string]chan struct{}),
		interval:   interval,
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Schedule submits a presence write. Never blocks: when the queue is full
// the write is dropped and logged, leaving the persisted record stale until
// the next transition. Writes scheduled after Close are dropped.
func (s *PresenceSync) Schedule(rec PresenceRecord) {
	select {
	case <-s.quit:
		return
	default:
	}
	select {
	case s.writes <- rec:
	default:
		log.Printf("Presence write queue full, dropping update for user %d", rec.UserID)
	}
}

// StartHeartbeat begins the periodic last-active refresh for the user's
// active connection. Starting a heartbeat for a connection that already has
// one is a no-op.
func (s *PresenceSync) StartHeartbeat(connID string, userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.heartbeats[connID]; ok {
		return
	}
	stop := make(chan struct{})
	s.heartbeats[connID] = stop

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-s.quit:
				return
			case <-ticker.C:
				s.Schedule(PresenceRecord{
					UserID:           userID,
					Online:           true,
					ChannelConnected: true,
					ActiveConnID:     connID,
					LastActive:       time.Now(),
				})
			}
		}
	}()
}

// StopHeartbeat cancels the heartbeat for a connection that was closed or
// lost the active slot.
func (s *PresenceSync) StopHeartbeat(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stop, ok := s.heartbeats[connID]; ok {
		close(stop)
		delete(s.heartbeats, connID)
	}
}

// HeartbeatActive reports whether a heartbeat is running for a connection.
func (s *PresenceSync) HeartbeatActive(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.heartbeats[connID]
	return ok
}

// Close stops all heartbeats, drains queued writes and waits for workers.
func (s *PresenceSync) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, stop := range s.heartbeats {
		close(stop)
		delete(s.heartbeats, id)
	}
	s.mu.Unlock()

	// writes is never closed so late Schedule calls cannot panic; workers
	// drain whatever is queued and exit through quit.
	close(s.quit)
	s.wg.Wait()
}

func (s *PresenceSync) worker() {
	defer s.wg.Done()
	for {
		select {
		case rec := <-s.writes:
			s.apply(rec)
		case <-s.quit:
			for {
				select {
				case rec := <-s.writes:
					s.apply(rec)
				default:
					return
				}
			}
		}
	}
}

func (s *PresenceSync) apply(rec PresenceRecord) {
	if s.store != nil {
		if err := s.store.UpdatePresence(rec); err != nil {
			log.Printf("Presence write failed for user %d: %v", rec.UserID, err)
		}
	}
	if s.mirror == nil {
		return
	}
	var err error
	if rec.ChannelConnected {
		err = s.mirror.SetUserOnline(rec.UserID)
	} else {
		err = s.mirror.SetUserOffline(rec.UserID)
	}
	if err != nil {
		log.Printf("Presence cache update failed for user %d: %v", rec.UserID, err)
	}
}
