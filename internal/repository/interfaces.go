package repository

import (
	"time"

	"github.com/Nuad106404/loanpwa-sub002/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	FindByID(id uint) (*models.User, error)
	FindByPhone(phone string) (*models.User, error)
	Update(user *models.User) error
	UpdatePresence(userID uint, online, channelConnected bool, activeConnID string, lastActive time.Time) error
}

// NotificationRepositoryInterface defines the contract for notification repository operations
type NotificationRepositoryInterface interface {
	Create(notification *models.Notification) error
	FindByMessageID(messageID string) (*models.Notification, error)
	ListForUser(userID uint, limit int) ([]models.Notification, error)
	MarkRead(id uint, userID uint) error
	DeleteExpired(now time.Time) (int64, error)
}
