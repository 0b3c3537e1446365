package handlers

import (
	"errors"
	"strconv"

	"github.com/Nuad106404/loanpwa-sub002/internal/cache"
	"github.com/Nuad106404/loanpwa-sub002/internal/httpx"
	"github.com/Nuad106404/loanpwa-sub002/internal/models"
	"github.com/Nuad106404/loanpwa-sub002/internal/service"
	"github.com/gofiber/fiber/v2"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
	notificationCache   *cache.NotificationCache
}

func NewNotificationHandler(notificationService *service.NotificationService, notificationCache *cache.NotificationCache) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		notificationCache:   notificationCache,
	}
}

// SendNotification pushes a notification at a single user (admin only).
func (h *NotificationHandler) SendNotification(c *fiber.Ctx) error {
	var input service.SendNotificationInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if input.RecipientID == nil || *input.RecipientID == 0 {
		return httpx.BadRequest(c, "missing_recipient", "recipient_id is required")
	}
	if input.Title == "" {
		return httpx.BadRequest(c, "missing_title", "Title is required")
	}

	notification, err := h.notificationService.SendToUser(input)
	if err != nil {
		return httpx.Internal(c, "send_notification_failed")
	}

	h.notificationCache.Invalidate(*input.RecipientID)

	return c.Status(fiber.StatusCreated).JSON(notification.ToResponse())
}

// BroadcastNotification pushes a notification at every connected client
// (admin only). Unreachable users catch up through the persisted record.
func (h *NotificationHandler) BroadcastNotification(c *fiber.Ctx) error {
	var input service.SendNotificationInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if input.Title == "" {
		return httpx.BadRequest(c, "missing_title", "Title is required")
	}

	notification, err := h.notificationService.Broadcast(input)
	if err != nil {
		return httpx.Internal(c, "broadcast_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(notification.ToResponse())
}

// GetMyNotifications lists the caller's notifications, cache-aside.
func (h *NotificationHandler) GetMyNotifications(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	var notifications []models.Notification
	if cached, ok := h.notificationCache.GetForUser(userID); ok {
		notifications = cached
	} else {
		notifications, err = h.notificationService.ListForUser(userID, limit)
		if err != nil {
			return httpx.Internal(c, "fetch_notifications_failed")
		}
		h.notificationCache.SetForUser(userID, notifications)
	}

	responses := make([]models.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, notifications[i].ToResponse())
	}
	return c.JSON(responses)
}

// MarkNotificationRead flags one of the caller's notifications as read.
func (h *NotificationHandler) MarkNotificationRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return httpx.BadRequest(c, "invalid_notification_id", "Invalid notification id")
	}

	if err := h.notificationService.MarkRead(uint(id), userID); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			return httpx.NotFound(c, "notification_not_found", "Notification not found")
		}
		return httpx.Internal(c, "mark_read_failed")
	}

	h.notificationCache.Invalidate(userID)

	return c.JSON(fiber.Map{"status": "ok"})
}
