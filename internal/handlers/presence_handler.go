package handlers

import (
	"strconv"

	"github.com/Nuad106404/loanpwa-sub002/internal/cache"
	"github.com/Nuad106404/loanpwa-sub002/internal/handlers/ws"
	"github.com/Nuad106404/loanpwa-sub002/internal/httpx"
	"github.com/gofiber/fiber/v2"
)

type PresenceHandler struct {
	hub           *ws.Hub
	presenceCache *cache.PresenceCache
}

func NewPresenceHandler(hub *ws.Hub, presenceCache *cache.PresenceCache) *PresenceHandler {
	return &PresenceHandler{hub: hub, presenceCache: presenceCache}
}

// GetOnlineUsers returns the composite reachability snapshot for every user
// the presence subsystem has seen (admin dashboards re-sync through this
// rather than relying solely on pushed status events).
func (h *PresenceHandler) GetOnlineUsers(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"users": h.hub.Snapshot()})
}

// CheckUserOnline answers the single-user online poll. The mirrored Redis
// key is the fast path; a miss falls through to the hub.
func (h *PresenceHandler) CheckUserOnline(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user id")
	}
	userID := uint(id)

	online := h.presenceCache.IsUserOnline(userID)
	if !online {
		online = h.hub.StatusOf(userID).Reachable
	}
	return c.JSON(fiber.Map{"user_id": userID, "online": online})
}

type logoutInput struct {
	UserID uint `json:"user_id"`
}

// Logout is the REST fallback with the same effect as the channel logout
// event, for clients that cannot use the live channel.
func (h *PresenceHandler) Logout(c *fiber.Ctx) error {
	var input logoutInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if input.UserID == 0 {
		return httpx.BadRequest(c, "missing_user_id", "user_id is required")
	}

	h.hub.Logout(input.UserID)

	return c.JSON(fiber.Map{"status": "ok"})
}
