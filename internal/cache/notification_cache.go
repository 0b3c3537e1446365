package cache

import (
	"fmt"
	"time"

	"github.com/Nuad106404/loanpwa-sub002/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	NotificationListTTL = 2 * time.Minute
)

// NotificationCache holds per-user notification lists to keep the dashboard
// list endpoint off the database on repeat reads.
type NotificationCache struct {
	redis *RedisCache
}

// NewNotificationCache creates a new notification cache
func NewNotificationCache(redis *RedisCache) *NotificationCache {
	return &NotificationCache{redis: redis}
}

func notificationListKey(userID uint) string {
	return fmt.Sprintf("notif:list:%d", userID)
}

// GetForUser retrieves a cached notification list
func (nc *NotificationCache) GetForUser(userID uint) ([]models.Notification, bool) {
	if nc == nil || nc.redis == nil {
		return nil, false
	}
	data, err := nc.redis.Get(notificationListKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var notifications []models.Notification
	if err := msgpack.Unmarshal(data, &notifications); err != nil {
		return nil, false
	}
	return notifications, true
}

// SetForUser caches a notification list
func (nc *NotificationCache) SetForUser(userID uint, notifications []models.Notification) error {
	if nc == nil || nc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(notifications)
	if err != nil {
		return err
	}
	return nc.redis.Set(notificationListKey(userID), data, NotificationListTTL)
}

// Invalidate drops a user's cached list after a write
func (nc *NotificationCache) Invalidate(userID uint) error {
	if nc == nil || nc.redis == nil {
		return nil
	}
	return nc.redis.Delete(notificationListKey(userID))
}
