package handlers

import (
	"log"
	"strings"

	"github.com/Nuad106404/loanpwa-sub002/internal/handlers/ws"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type WebSocketHandler struct {
	hub *ws.Hub
}

func NewWebSocketHandler(hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// GetHub returns the hub instance (useful for sending events from other handlers)
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

// HandleWebSocket runs one connection's read loop. The connection stays
// anonymous until the client sends an identify event; admin tokens place the
// session in the observer group at connect.
func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	role, _ := c.Locals("role").(string)
	observer := strings.EqualFold(role, "admin")

	session := ws.NewSession(uuid.NewString(), c, observer)
	go session.WritePump()

	h.hub.Connect(session)
	defer h.hub.Disconnect(session.ID())

	log.Printf("Session %s opened (observer: %v)", session.ID(), observer)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			log.Printf("Session %s read ended: %v", session.ID(), err)
			break
		}

		event, err := ws.Deserialize(data)
		if err != nil {
			// Malformed frames are dropped without surfacing an error.
			log.Printf("Session %s sent malformed event: %v", session.ID(), err)
			continue
		}

		h.hub.Dispatch(session.ID(), event)
	}

	log.Printf("Session %s closed", session.ID())
}
