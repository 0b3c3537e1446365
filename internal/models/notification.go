package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationCategory string

const (
	CategoryLoanStatus  NotificationCategory = "loan_status"
	CategoryTransaction NotificationCategory = "transaction"
	CategorySystem      NotificationCategory = "system"
)

// Notification is the persisted record of a pushed notification. It exists
// independently of live delivery: a recipient who was offline at send time
// still sees it when listing notifications.
type Notification struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// MessageID correlates the persisted record with the live delivery
	// receipt and the client's confirmation event.
	MessageID string `gorm:"uniqueIndex;not null" json:"message_id"`

	// RecipientID is nil for broadcast notifications addressed to all users.
	RecipientID *uint `gorm:"index" json:"recipient_id"`

	Title    string               `gorm:"not null" json:"title"`
	Message  string               `gorm:"type:text" json:"message"`
	Category NotificationCategory `gorm:"not null;default:system" json:"category"`
	IsRead   bool                 `gorm:"default:false" json:"is_read"`

	ExpiresAt *time.Time `gorm:"index" json:"expires_at"`
}

type NotificationResponse struct {
	ID        uint                 `json:"id"`
	MessageID string               `json:"message_id"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Category  NotificationCategory `json:"category"`
	IsRead    bool                 `json:"is_read"`
	CreatedAt time.Time            `json:"created_at"`
	ExpiresAt *time.Time           `json:"expires_at,omitempty"`
}

func (n *Notification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		MessageID: n.MessageID,
		Title:     n.Title,
		Message:   n.Message,
		Category:  n.Category,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
		ExpiresAt: n.ExpiresAt,
	}
}

// Expired reports whether the notification has an expiry in the past.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && n.ExpiresAt.Before(now)
}
