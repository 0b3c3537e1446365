package repository

import (
	"time"

	"github.com/Nuad106404/loanpwa-sub002/internal/models"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

func (r *NotificationRepository) FindByMessageID(messageID string) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.Where("message_id = ?", messageID).First(&notification).Error
	return &notification, err
}

// ListForUser returns the user's notifications plus broadcasts, newest
// first, skipping anything already expired.
func (r *NotificationRepository) ListForUser(userID uint, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	now := time.Now()
	err := r.db.Where("(recipient_id = ? OR recipient_id IS NULL)", userID).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// MarkRead flags a notification the user can see as read. Updating a
// notification that does not exist (or belongs to someone else) reports
// gorm.ErrRecordNotFound.
func (r *NotificationRepository) MarkRead(id uint, userID uint) error {
	res := r.db.Model(&models.Notification{}).
		Where("id = ? AND (recipient_id = ? OR recipient_id IS NULL)", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteExpired purges notifications past their expiry.
func (r *NotificationRepository) DeleteExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
