package db

import (
	"time"
)

// User table. ID is the messaging platform's user id, never generated here.
//
// Indexes:
//   - idx_status_since(status, searching_since, id)
//     Serves the oldest-first scan over searching users.
type User struct {
	ID             int64  `gorm:"primaryKey;autoIncrement:false;index:idx_status_since,priority:3"`
	Name           string `gorm:"size:64;not null;default:''"`
	Age            int    `gorm:"not null;default:0"`
	Gender         string `gorm:"size:32;not null;default:''"`
	City           string `gorm:"size:64;not null;default:''"`
	Status         string `gorm:"size:16;not null;default:idle;index:idx_status_since,priority:1"`
	SearchingSince int64  `gorm:"not null;default:0;index:idx_status_since,priority:2"` // unix millis, 0 unless searching

	Filter Filter `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Filter holds one user's companion preferences.
type Filter struct {
	UserID          int64     `gorm:"primaryKey;autoIncrement:false"`
	PreferredGender string    `gorm:"size:32;not null;default:any"`
	MinAge          int       `gorm:"not null;default:18"`
	MaxAge          int       `gorm:"not null;default:35"`
	City            string    `gorm:"size:64;not null;default:any"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// Pairing stores one direction of a live chat.
//
// Each pairing is two rows, (a→b) and (b→a), sharing PairingID. The primary
// key on UserID keeps a user in at most one pairing at the database level.
type Pairing struct {
	UserID      int64     `gorm:"primaryKey;autoIncrement:false"`
	CompanionID int64     `gorm:"not null;index"`
	PairingID   string    `gorm:"size:36;not null;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}
