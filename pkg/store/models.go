package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.

type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

type LiteratureModel struct {
	ID            string `gorm:"primaryKey"`
	UserID        string `gorm:"not null;index"`
	OriginalName  string `gorm:"not null"`
	FilePath      string `gorm:"not null"`
	FileSize      int64  `gorm:"not null"`
	FileType      string `gorm:"not null"`
	ContentLength int    `gorm:"not null"`
	Tags          datatypes.JSON
	Description   string
	ReadingGuide  string    `gorm:"type:text"`
	Status        string    `gorm:"not null;index"`
	CreatedAt     time.Time `gorm:"not null;index"`
	UpdatedAt     time.Time `gorm:"not null"`
	Deleted       bool      `gorm:"not null;default:false;index"`
}

func (LiteratureModel) TableName() string { return "literature" }

type AIModelModel struct {
	ID          string  `gorm:"primaryKey"`
	UserID      string  `gorm:"not null;index"`
	Name        string  `gorm:"not null"`
	Provider    string  `gorm:"not null"`
	BaseURL     string  `gorm:"not null"`
	APIKey      string
	ModelName   string  `gorm:"not null"`
	MaxTokens   int     `gorm:"not null;default:4096"`
	Temperature float64 `gorm:"not null;default:0.7"`
	IsDefault   bool    `gorm:"not null;default:false;index"`
	Enabled     bool    `gorm:"not null;default:true"`
	Description string
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (AIModelModel) TableName() string { return "ai_models" }
