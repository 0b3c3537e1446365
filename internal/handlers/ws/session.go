package ws

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/websocket/v2"
)

var errSessionClosed = errors.New("session closed")

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 256
)

// Sender is the hub's seam to a live connection. The websocket session
// implements it; tests substitute in-memory fakes.
type Sender interface {
	ID() string
	Observer() bool
	Send(event Envelope) error
	Close()
}

// Session wraps one WebSocket connection with a buffered outbound channel so
// the hub loop never blocks on a slow client. A single write pump owns the
// socket for writes, including keepalive pings.
type Session struct {
	id       string
	observer bool
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
}

func NewSession(id string, conn *websocket.Conn, observer bool) *Session {
	return &Session{
		id:       id,
		observer: observer,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Observer reports whether this session belongs to the privileged observer
// group (admin dashboards).
func (s *Session) Observer() bool { return s.observer }

// Send marshals the event and hands it to the write pump. A full buffer
// drops the event rather than stalling the hub loop.
func (s *Session) Send(event Envelope) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return errSessionClosed
	case s.send <- data:
		return nil
	default:
		log.Printf("Session %s send buffer full, dropping %s event", s.id, event.Type)
		return nil
	}
}

// Close stops the write pump. Safe to call more than once via the hub loop.
func (s *Session) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// WritePump drains the send channel onto the socket and keeps the connection
// alive with protocol pings. It exits when Close is called or a write fails;
// the read loop notices the closed socket and unwinds the session.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			s.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Session %s write failed: %v", s.id, err)
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				log.Printf("Session %s ping failed: %v", s.id, err)
				return
			}
		}
	}
}
