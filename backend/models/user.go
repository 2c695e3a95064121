package models

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	TelegramID   int64  `gorm:"unique;not null"`
	Username     string `gorm:"unique;not null"`
	FirstName    string
	LastName     string
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"default:user"` // user, admin
}

type DialogueMessage struct {
	gorm.Model
	UserID  uint `gorm:"index"`
	Content string
	IsUser  bool
}
