package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Nuad106404/loanpwa-sub002/internal/models"
	"github.com/Nuad106404/loanpwa-sub002/internal/testutil"
)

// MockNotificationRepository is an in-memory notification store for testing
type MockNotificationRepository struct {
	notifications map[uint]*models.Notification
	nextID        uint
	failCreate    bool
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[uint]*models.Notification),
		nextID:        1,
	}
}

func (m *MockNotificationRepository) Create(n *models.Notification) error {
	if m.failCreate {
		return errors.New("create failed")
	}
	if n.ID == 0 {
		n.ID = m.nextID
		m.nextID++
	}
	n.CreatedAt = time.Now()
	m.notifications[n.ID] = n
	return nil
}

func (m *MockNotificationRepository) FindByMessageID(messageID string) (*models.Notification, error) {
	for _, n := range m.notifications {
		if n.MessageID == messageID {
			return n, nil
		}
	}
	return nil, errors.New("record not found")
}

func (m *MockNotificationRepository) ListForUser(userID uint, limit int) ([]models.Notification, error) {
	var out []models.Notification
	now := time.Now()
	for _, n := range m.notifications {
		if len(out) >= limit {
			break
		}
		if n.Expired(now) {
			continue
		}
		if n.RecipientID == nil || *n.RecipientID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *MockNotificationRepository) MarkRead(id uint, userID uint) error {
	if n, ok := m.notifications[id]; ok {
		n.IsRead = true
		return nil
	}
	return testutil.GetRecordNotFoundError()
}

func (m *MockNotificationRepository) DeleteExpired(now time.Time) (int64, error) {
	var deleted int64
	for id, n := range m.notifications {
		if n.Expired(now) {
			delete(m.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

// MockDispatcher records live pushes
type MockDispatcher struct {
	userPushes      map[string]uint
	broadcastPushes []string
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{userPushes: make(map[string]uint)}
}

func (m *MockDispatcher) PushToUser(messageID string, userID uint, payload json.RawMessage) {
	m.userPushes[messageID] = userID
}

func (m *MockDispatcher) PushBroadcast(messageID string, payload json.RawMessage) {
	m.broadcastPushes = append(m.broadcastPushes, messageID)
}

func TestSendToUserPersistsAndDispatches(t *testing.T) {
	repo := NewMockNotificationRepository()
	dispatcher := NewMockDispatcher()
	svc := NewNotificationService(repo, dispatcher)

	recipient := uint(7)
	notification, err := svc.SendToUser(SendNotificationInput{
		RecipientID: &recipient,
		Title:       "Loan approved",
		Message:     "Your application was approved",
		Category:    models.CategoryLoanStatus,
	})
	if err != nil {
		t.Fatalf("SendToUser error: %v", err)
	}
	if notification.ID == 0 {
		t.Error("notification was not persisted")
	}
	if notification.MessageID == "" {
		t.Fatal("message id missing")
	}
	if got, ok := dispatcher.userPushes[notification.MessageID]; !ok || got != recipient {
		t.Errorf("dispatched to %d (present: %v), want %d", got, ok, recipient)
	}
}

func TestSendToUserValidation(t *testing.T) {
	helper := testutil.NewTestHelper(t)
	svc := NewNotificationService(NewMockNotificationRepository(), NewMockDispatcher())

	_, err := svc.SendToUser(SendNotificationInput{Title: "No recipient"})
	helper.AssertError(err, true, "missing recipient")

	recipient := uint(7)
	_, err = svc.SendToUser(SendNotificationInput{RecipientID: &recipient, Title: "  "})
	helper.AssertError(err, true, "blank title")
}

func TestSendToUserDefaultsCategory(t *testing.T) {
	repo := NewMockNotificationRepository()
	svc := NewNotificationService(repo, NewMockDispatcher())

	recipient := uint(7)
	notification, err := svc.SendToUser(SendNotificationInput{RecipientID: &recipient, Title: "Hello"})
	if err != nil {
		t.Fatalf("SendToUser error: %v", err)
	}
	if notification.Category != models.CategorySystem {
		t.Errorf("category = %q, want system default", notification.Category)
	}
}

func TestSendToUserAppliesTTL(t *testing.T) {
	repo := NewMockNotificationRepository()
	svc := NewNotificationService(repo, NewMockDispatcher())

	recipient := uint(7)
	notification, err := svc.SendToUser(SendNotificationInput{
		RecipientID: &recipient,
		Title:       "Expiring",
		TTLSeconds:  60,
	})
	if err != nil {
		t.Fatalf("SendToUser error: %v", err)
	}
	if notification.ExpiresAt == nil {
		t.Fatal("expiry missing")
	}
	if notification.ExpiresAt.Before(time.Now()) {
		t.Error("expiry must be in the future")
	}
}

func TestBroadcastIgnoresRecipient(t *testing.T) {
	repo := NewMockNotificationRepository()
	dispatcher := NewMockDispatcher()
	svc := NewNotificationService(repo, dispatcher)

	recipient := uint(7)
	notification, err := svc.Broadcast(SendNotificationInput{
		RecipientID: &recipient,
		Title:       "Maintenance",
	})
	if err != nil {
		t.Fatalf("Broadcast error: %v", err)
	}
	if notification.RecipientID != nil {
		t.Error("broadcast must have no recipient")
	}
	if len(dispatcher.broadcastPushes) != 1 {
		t.Errorf("broadcast pushes = %d, want 1", len(dispatcher.broadcastPushes))
	}
}

func TestSendToUserSurvivesCreateFailure(t *testing.T) {
	repo := NewMockNotificationRepository()
	repo.failCreate = true
	dispatcher := NewMockDispatcher()
	svc := NewNotificationService(repo, dispatcher)

	recipient := uint(7)
	if _, err := svc.SendToUser(SendNotificationInput{RecipientID: &recipient, Title: "x"}); err == nil {
		t.Fatal("create failure must surface")
	}
	if len(dispatcher.userPushes) != 0 {
		t.Error("failed persist must not dispatch")
	}
}

func TestMarkReadReportsMissingNotification(t *testing.T) {
	repo := NewMockNotificationRepository()
	svc := NewNotificationService(repo, nil)

	recipient := uint(7)
	repo.Create(&models.Notification{MessageID: "m1", RecipientID: &recipient, Title: "Hello"})

	if err := svc.MarkRead(1, recipient); err != nil {
		t.Fatalf("MarkRead error: %v", err)
	}
	if err := svc.MarkRead(99, recipient); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("MarkRead missing id error = %v, want ErrNotificationNotFound", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	repo := NewMockNotificationRepository()
	svc := NewNotificationService(repo, nil)

	recipient := uint(7)
	past := time.Now().Add(-time.Minute)
	repo.Create(&models.Notification{MessageID: "old", RecipientID: &recipient, Title: "Old", ExpiresAt: &past})
	repo.Create(&models.Notification{MessageID: "fresh", RecipientID: &recipient, Title: "Fresh"})

	deleted, err := svc.PurgeExpired()
	if err != nil {
		t.Fatalf("PurgeExpired error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}
