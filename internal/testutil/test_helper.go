package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/Nuad106404/loanpwa-sub002/internal/models"
	"gorm.io/gorm"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestUser creates a test user with default values
func (h *TestHelper) CreateTestUser(id uint, phone string) *models.User {
	if id == 0 {
		id = 1
	}
	if phone == "" {
		phone = "0800000001"
	}

	return &models.User{
		ID:        id,
		Phone:     phone,
		FullName:  "Test User",
		Role:      "user",
		IsOnline:  false,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// CreateTestNotification creates a test notification with default values
func (h *TestHelper) CreateTestNotification(id uint, recipientID uint, title string) *models.Notification {
	if id == 0 {
		id = 1
	}
	if title == "" {
		title = "Test notification"
	}

	var recipient *uint
	if recipientID != 0 {
		recipient = &recipientID
	}

	return &models.Notification{
		ID:          id,
		MessageID:   "msg-test",
		RecipientID: recipient,
		Title:       title,
		Message:     "Test message body",
		Category:    models.CategorySystem,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("DATABASE_URL", "")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("DATABASE_URL")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// GetRecordNotFoundError returns the gorm not-found sentinel
func GetRecordNotFoundError() error {
	return gorm.ErrRecordNotFound
}
