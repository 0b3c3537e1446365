package service

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Nuad106404/loanpwa-sub002/internal/models"
	"github.com/Nuad106404/loanpwa-sub002/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dispatcher is the live-delivery side of a send: the hub queues or pushes
// the payload while the service owns the persisted record.
type Dispatcher interface {
	PushToUser(messageID string, userID uint, payload json.RawMessage)
	PushBroadcast(messageID string, payload json.RawMessage)
}

type NotificationService struct {
	notificationRepo repository.NotificationRepositoryInterface
	dispatcher       Dispatcher
}

func NewNotificationService(notificationRepo repository.NotificationRepositoryInterface, dispatcher Dispatcher) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		dispatcher:       dispatcher,
	}
}

type SendNotificationInput struct {
	RecipientID *uint                       `json:"recipient_id"`
	Title       string                      `json:"title"`
	Message     string                      `json:"message"`
	Category    models.NotificationCategory `json:"category"`
	TTLSeconds  int                         `json:"ttl_seconds"`
}

// SendToUser persists the notification, then hands the live payload to the
// hub. The persisted record survives regardless of delivery outcome.
func (s *NotificationService) SendToUser(input SendNotificationInput) (*models.Notification, error) {
	if input.RecipientID == nil || *input.RecipientID == 0 {
		return nil, errors.New("recipient is required")
	}
	notification, err := s.build(input)
	if err != nil {
		return nil, err
	}
	if err := s.notificationRepo.Create(notification); err != nil {
		return nil, err
	}
	if s.dispatcher != nil {
		payload, err := json.Marshal(notification.ToResponse())
		if err != nil {
			return nil, err
		}
		s.dispatcher.PushToUser(notification.MessageID, *input.RecipientID, payload)
	}
	return notification, nil
}

// Broadcast persists an all-users notification and fans it out to every
// connected session. Broadcast pushes carry no delivery receipts.
func (s *NotificationService) Broadcast(input SendNotificationInput) (*models.Notification, error) {
	input.RecipientID = nil
	notification, err := s.build(input)
	if err != nil {
		return nil, err
	}
	if err := s.notificationRepo.Create(notification); err != nil {
		return nil, err
	}
	if s.dispatcher != nil {
		payload, err := json.Marshal(notification.ToResponse())
		if err != nil {
			return nil, err
		}
		s.dispatcher.PushBroadcast(notification.MessageID, payload)
	}
	return notification, nil
}

func (s *NotificationService) build(input SendNotificationInput) (*models.Notification, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	category := input.Category
	if category == "" {
		category = models.CategorySystem
	}

	notification := &models.Notification{
		MessageID:   uuid.NewString(),
		RecipientID: input.RecipientID,
		Title:       title,
		Message:     strings.TrimSpace(input.Message),
		Category:    category,
	}
	if input.TTLSeconds > 0 {
		expires := time.Now().Add(time.Duration(input.TTLSeconds) * time.Second)
		notification.ExpiresAt = &expires
	}
	return notification, nil
}

func (s *NotificationService) ListForUser(userID uint, limit int) ([]models.Notification, error) {
	if limit == 0 || limit > 100 {
		limit = 50
	}
	return s.notificationRepo.ListForUser(userID, limit)
}

// ErrNotificationNotFound reports a mark-read against a notification the
// user cannot see.
var ErrNotificationNotFound = errors.New("notification not found")

func (s *NotificationService) MarkRead(id uint, userID uint) error {
	if err := s.notificationRepo.MarkRead(id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

// PurgeExpired removes notifications past their expiry.
func (s *NotificationService) PurgeExpired() (int64, error) {
	return s.notificationRepo.DeleteExpired(time.Now())
}
