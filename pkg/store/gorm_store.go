package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"litassist/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &LiteratureModel{}, &AIModelModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateUser inserts a new user.
func (s *GormStore) CreateUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Create(&model).Error
}

// GetUserByUsername looks up a user by username.
func (s *GormStore) GetUserByUsername(username string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("username = ?", username).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateLiterature inserts a new literature record.
func (s *GormStore) CreateLiterature(lit domain.Literature) error {
	model, err := literatureToModel(lit)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

// UpdateLiterature applies the non-nil fields of the update.
func (s *GormStore) UpdateLiterature(id string, upd LiteratureUpdate) error {
	fields := map[string]any{"updated_at": time.Now().UTC()}
	if upd.ReadingGuide != nil {
		fields["reading_guide"] = *upd.ReadingGuide
	}
	if upd.Tags != nil {
		raw, err := json.Marshal(upd.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags: %w", err)
		}
		fields["tags"] = datatypes.JSON(raw)
	}
	if upd.Description != nil {
		fields["description"] = *upd.Description
	}
	if upd.Status != nil {
		fields["status"] = string(*upd.Status)
	}
	res := s.db.Model(&LiteratureModel{}).
		Where("id = ? AND deleted = ?", id, false).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLiterature retrieves a record scoped to its owner. An empty userID
// skips the ownership filter.
func (s *GormStore) GetLiterature(id, userID string) (domain.Literature, bool, error) {
	tx := s.db.Where("id = ? AND deleted = ?", id, false)
	if userID != "" {
		tx = tx.Where("user_id = ?", userID)
	}
	var model LiteratureModel
	if err := tx.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Literature{}, false, nil
		}
		return domain.Literature{}, false, err
	}
	lit, err := literatureFromModel(model)
	if err != nil {
		return domain.Literature{}, false, err
	}
	return lit, true, nil
}

// PageLiterature runs a filtered, paged listing, newest first.
func (s *GormStore) PageLiterature(q LiteratureQuery) ([]domain.Literature, int64, error) {
	tx := s.db.Model(&LiteratureModel{}).Where("deleted = ?", false)
	if q.UserID != "" {
		tx = tx.Where("user_id = ?", q.UserID)
	}
	if q.Keyword != "" {
		pattern := "%" + q.Keyword + "%"
		tx = tx.Where("original_name ILIKE ? OR description ILIKE ? OR tags::text ILIKE ?", pattern, pattern, pattern)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", string(q.Status))
	}
	if !q.CreatedFrom.IsZero() {
		tx = tx.Where("created_at >= ?", q.CreatedFrom)
	}
	if !q.CreatedTo.IsZero() {
		tx = tx.Where("created_at <= ?", q.CreatedTo)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(q.Page, q.PageSize)
	var models []LiteratureModel
	if err := tx.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Literature, 0, len(models))
	for _, m := range models {
		lit, err := literatureFromModel(m)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, lit)
	}
	return out, total, nil
}

// SoftDeleteLiterature flags an owned record as deleted.
func (s *GormStore) SoftDeleteLiterature(id, userID string) error {
	res := s.db.Model(&LiteratureModel{}).
		Where("id = ? AND user_id = ? AND deleted = ?", id, userID, false).
		Updates(map[string]any{"deleted": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateAIModel inserts a profile. When the profile is flagged default,
// the user's previous default is cleared in the same transaction.
func (s *GormStore) CreateAIModel(m domain.AIModel) error {
	model := aiModelToModel(m)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if m.IsDefault {
			if err := clearDefaultAIModels(tx, m.UserID); err != nil {
				return err
			}
		}
		return tx.Create(&model).Error
	})
}

// UpdateAIModel replaces a profile's mutable fields, keeping the
// one-default-per-user invariant transactional.
func (s *GormStore) UpdateAIModel(m domain.AIModel) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if m.IsDefault {
			if err := clearDefaultAIModels(tx, m.UserID); err != nil {
				return err
			}
		}
		res := tx.Model(&AIModelModel{}).
			Where("id = ? AND user_id = ?", m.ID, m.UserID).
			Updates(map[string]any{
				"name":        m.Name,
				"provider":    m.Provider,
				"base_url":    m.BaseURL,
				"api_key":     m.APIKey,
				"model_name":  m.ModelName,
				"max_tokens":  m.MaxTokens,
				"temperature": m.Temperature,
				"is_default":  m.IsDefault,
				"enabled":     m.Enabled,
				"description": m.Description,
				"updated_at":  time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetAIModel retrieves a profile scoped to its owner.
func (s *GormStore) GetAIModel(id, userID string) (domain.AIModel, bool, error) {
	var model AIModelModel
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AIModel{}, false, nil
		}
		return domain.AIModel{}, false, err
	}
	return aiModelFromModel(model), true, nil
}

// ListAIModels returns a user's profiles, default first, newest next.
func (s *GormStore) ListAIModels(userID string) ([]domain.AIModel, error) {
	var models []AIModelModel
	if err := s.db.Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AIModel, 0, len(models))
	for _, m := range models {
		out = append(out, aiModelFromModel(m))
	}
	return out, nil
}

// GetDefaultAIModel returns the user's enabled default profile.
func (s *GormStore) GetDefaultAIModel(userID string) (domain.AIModel, bool, error) {
	var model AIModelModel
	err := s.db.Where("user_id = ? AND is_default = ? AND enabled = ?", userID, true, true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AIModel{}, false, nil
		}
		return domain.AIModel{}, false, err
	}
	return aiModelFromModel(model), true, nil
}

// DeleteAIModel removes an owned profile.
func (s *GormStore) DeleteAIModel(id, userID string) error {
	res := s.db.Delete(&AIModelModel{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func clearDefaultAIModels(tx *gorm.DB, userID string) error {
	return tx.Model(&AIModelModel{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Updates(map[string]any{"is_default": false, "updated_at": time.Now().UTC()}).Error
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func literatureToModel(l domain.Literature) (LiteratureModel, error) {
	model := LiteratureModel{
		ID:            l.ID,
		UserID:        l.UserID,
		OriginalName:  l.OriginalName,
		FilePath:      l.FilePath,
		FileSize:      l.FileSize,
		FileType:      l.FileType,
		ContentLength: l.ContentLength,
		Description:   l.Description,
		ReadingGuide:  l.ReadingGuide,
		Status:        string(l.Status),
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
		Deleted:       l.Deleted,
	}
	if l.Tags != nil {
		raw, err := json.Marshal(l.Tags)
		if err != nil {
			return LiteratureModel{}, fmt.Errorf("marshal tags: %w", err)
		}
		model.Tags = datatypes.JSON(raw)
	}
	return model, nil
}

func literatureFromModel(m LiteratureModel) (domain.Literature, error) {
	lit := domain.Literature{
		ID:            m.ID,
		UserID:        m.UserID,
		OriginalName:  m.OriginalName,
		FilePath:      m.FilePath,
		FileSize:      m.FileSize,
		FileType:      m.FileType,
		ContentLength: m.ContentLength,
		Description:   m.Description,
		ReadingGuide:  m.ReadingGuide,
		Status:        domain.LiteratureStatus(m.Status),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		Deleted:       m.Deleted,
	}
	if len(m.Tags) > 0 {
		if err := json.Unmarshal(m.Tags, &lit.Tags); err != nil {
			return domain.Literature{}, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	return lit, nil
}

func aiModelToModel(m domain.AIModel) AIModelModel {
	return AIModelModel{
		ID:          m.ID,
		UserID:      m.UserID,
		Name:        m.Name,
		Provider:    m.Provider,
		BaseURL:     m.BaseURL,
		APIKey:      m.APIKey,
		ModelName:   m.ModelName,
		MaxTokens:   m.MaxTokens,
		Temperature: m.Temperature,
		IsDefault:   m.IsDefault,
		Enabled:     m.Enabled,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func aiModelFromModel(m AIModelModel) domain.AIModel {
	return domain.AIModel{
		ID:          m.ID,
		UserID:      m.UserID,
		Name:        m.Name,
		Provider:    m.Provider,
		BaseURL:     m.BaseURL,
		APIKey:      m.APIKey,
		ModelName:   m.ModelName,
		MaxTokens:   m.MaxTokens,
		Temperature: m.Temperature,
		IsDefault:   m.IsDefault,
		Enabled:     m.Enabled,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
