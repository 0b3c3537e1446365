package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Phone    string `gorm:"uniqueIndex;not null" json:"phone"`
	FullName string `json:"full_name"`
	Role     string `gorm:"not null;default:user" json:"role"`

	// Presence fields maintained by the realtime subsystem. IsOnline is the
	// persisted online flag: set true on identification, false only on an
	// explicit logout. ChannelConnected tracks whether the user currently
	// holds a live channel; a dropped last connection clears it without
	// touching IsOnline.
	IsOnline         bool       `gorm:"default:false" json:"is_online"`
	ChannelConnected bool       `gorm:"default:false" json:"channel_connected"`
	ActiveConnID     string     `json:"active_conn_id"`
	LastActive       *time.Time `json:"last_active"`
}

type UserResponse struct {
	ID               uint       `json:"id"`
	Phone            string     `json:"phone"`
	FullName         string     `json:"full_name"`
	Role             string     `json:"role"`
	IsOnline         bool       `json:"is_online"`
	ChannelConnected bool       `json:"channel_connected"`
	LastActive       *time.Time `json:"last_active"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:               u.ID,
		Phone:            u.Phone,
		FullName:         u.FullName,
		Role:             u.Role,
		IsOnline:         u.IsOnline,
		ChannelConnected: u.ChannelConnected,
		LastActive:       u.LastActive,
	}
}
