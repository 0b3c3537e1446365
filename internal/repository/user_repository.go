package repository

import (
	"time"

	"github.com/Nuad106404/loanpwa-sub002/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByPhone(phone string) (*models.User, error) {
	var user models.User
	err := r.db.Where("phone = ?", phone).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdatePresence writes the four presence fields the realtime subsystem
// mirrors into the durable user record.
func (r *UserRepository) UpdatePresence(userID uint, online, channelConnected bool, activeConnID string, lastActive time.Time) error {
	updates := map[string]interface{}{
		"is_online":         online,
		"channel_connected": channelConnected,
		"active_conn_id":    activeConnID,
		"last_active":       lastActive,
	}
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}
