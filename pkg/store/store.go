// Package store persists users, literature records, and AI model
// profiles. GormStore is the production Postgres implementation;
// MemoryStore backs tests.
package store

import (
	"errors"
	"time"

	"litassist/pkg/domain"
)

// ErrNotFound is returned by updates and deletes targeting absent rows.
var ErrNotFound = errors.New("record not found")

// LiteratureQuery filters a paged literature listing. Zero values mean
// "no filter"; results are newest first.
type LiteratureQuery struct {
	UserID      string
	Keyword     string
	Status      domain.LiteratureStatus
	CreatedFrom time.Time
	CreatedTo   time.Time
	Page        int
	PageSize    int
}

// LiteratureUpdate carries the mutable result fields of a record.
// Nil pointers leave the corresponding column untouched.
type LiteratureUpdate struct {
	ReadingGuide *string
	Tags         []string
	Description  *string
	Status       *domain.LiteratureStatus
}

// Store defines persistence operations for users, literature, and AI
// model profiles.
type Store interface {
	// users
	CreateUser(domain.User) error
	GetUserByUsername(username string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// literature
	CreateLiterature(domain.Literature) error
	UpdateLiterature(id string, upd LiteratureUpdate) error
	GetLiterature(id, userID string) (domain.Literature, bool, error)
	PageLiterature(q LiteratureQuery) ([]domain.Literature, int64, error)
	SoftDeleteLiterature(id, userID string) error

	// ai model profiles
	CreateAIModel(domain.AIModel) error
	UpdateAIModel(domain.AIModel) error
	GetAIModel(id, userID string) (domain.AIModel, bool, error)
	ListAIModels(userID string) ([]domain.AIModel, error)
	GetDefaultAIModel(userID string) (domain.AIModel, bool, error)
	DeleteAIModel(id, userID string) error
}
