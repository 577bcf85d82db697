package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"litassist/pkg/domain"
)

// MemoryStore keeps everything in-process. It backs tests and local
// development without a database.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	byUsername map[string]string // username -> user ID
	literature map[string]domain.Literature
	aiModels   map[string]domain.AIModel
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]domain.User),
		byUsername: make(map[string]string),
		literature: make(map[string]domain.Literature),
		aiModels:   make(map[string]domain.AIModel),
	}
}

func (m *MemoryStore) CreateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.byUsername[u.Username] = u.ID
	return nil
}

func (m *MemoryStore) GetUserByUsername(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byUsername[username]
	if !ok {
		return domain.User{}, false, nil
	}
	return m.users[id], true, nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) CreateLiterature(lit domain.Literature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.literature[lit.ID] = lit
	return nil
}

func (m *MemoryStore) UpdateLiterature(id string, upd LiteratureUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lit, ok := m.literature[id]
	if !ok || lit.Deleted {
		return ErrNotFound
	}
	if upd.ReadingGuide != nil {
		lit.ReadingGuide = *upd.ReadingGuide
	}
	if upd.Tags != nil {
		lit.Tags = upd.Tags
	}
	if upd.Description != nil {
		lit.Description = *upd.Description
	}
	if upd.Status != nil {
		lit.Status = *upd.Status
	}
	lit.UpdatedAt = time.Now().UTC()
	m.literature[id] = lit
	return nil
}

func (m *MemoryStore) GetLiterature(id, userID string) (domain.Literature, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lit, ok := m.literature[id]
	if !ok || lit.Deleted {
		return domain.Literature{}, false, nil
	}
	if userID != "" && lit.UserID != userID {
		return domain.Literature{}, false, nil
	}
	return lit, true, nil
}

func (m *MemoryStore) PageLiterature(q LiteratureQuery) ([]domain.Literature, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []domain.Literature
	for _, lit := range m.literature {
		if lit.Deleted {
			continue
		}
		if q.UserID != "" && lit.UserID != q.UserID {
			continue
		}
		if q.Status != "" && lit.Status != q.Status {
			continue
		}
		if !q.CreatedFrom.IsZero() && lit.CreatedAt.Before(q.CreatedFrom) {
			continue
		}
		if !q.CreatedTo.IsZero() && lit.CreatedAt.After(q.CreatedTo) {
			continue
		}
		if q.Keyword != "" && !literatureMatches(lit, q.Keyword) {
			continue
		}
		matched = append(matched, lit)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	page, pageSize := normalizePage(q.Page, q.PageSize)
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []domain.Literature{}, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *MemoryStore) SoftDeleteLiterature(id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lit, ok := m.literature[id]
	if !ok || lit.Deleted || lit.UserID != userID {
		return ErrNotFound
	}
	lit.Deleted = true
	lit.UpdatedAt = time.Now().UTC()
	m.literature[id] = lit
	return nil
}

func (m *MemoryStore) CreateAIModel(model domain.AIModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if model.IsDefault {
		m.clearDefaultsLocked(model.UserID)
	}
	m.aiModels[model.ID] = model
	return nil
}

func (m *MemoryStore) UpdateAIModel(model domain.AIModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.aiModels[model.ID]
	if !ok || existing.UserID != model.UserID {
		return ErrNotFound
	}
	if model.IsDefault {
		m.clearDefaultsLocked(model.UserID)
	}
	model.CreatedAt = existing.CreatedAt
	model.UpdatedAt = time.Now().UTC()
	m.aiModels[model.ID] = model
	return nil
}

func (m *MemoryStore) GetAIModel(id, userID string) (domain.AIModel, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	model, ok := m.aiModels[id]
	if !ok || model.UserID != userID {
		return domain.AIModel{}, false, nil
	}
	return model, true, nil
}

func (m *MemoryStore) ListAIModels(userID string) ([]domain.AIModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.AIModel
	for _, model := range m.aiModels {
		if model.UserID == userID {
			out = append(out, model)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) GetDefaultAIModel(userID string) (domain.AIModel, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, model := range m.aiModels {
		if model.UserID == userID && model.IsDefault && model.Enabled {
			return model, true, nil
		}
	}
	return domain.AIModel{}, false, nil
}

func (m *MemoryStore) DeleteAIModel(id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	model, ok := m.aiModels[id]
	if !ok || model.UserID != userID {
		return ErrNotFound
	}
	delete(m.aiModels, id)
	return nil
}

func (m *MemoryStore) clearDefaultsLocked(userID string) {
	for id, model := range m.aiModels {
		if model.UserID == userID && model.IsDefault {
			model.IsDefault = false
			m.aiModels[id] = model
		}
	}
}

func literatureMatches(lit domain.Literature, keyword string) bool {
	keyword = strings.ToLower(keyword)
	if strings.Contains(strings.ToLower(lit.OriginalName), keyword) {
		return true
	}
	if strings.Contains(strings.ToLower(lit.Description), keyword) {
		return true
	}
	for _, tag := range lit.Tags {
		if strings.Contains(strings.ToLower(tag), keyword) {
			return true
		}
	}
	return false
}
