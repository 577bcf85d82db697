// Package app orchestrates the literature workflow: uploads are stored,
// extracted to text, turned into a streamed reading guide by an AI
// provider, classified, and persisted.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"litassist/internal/util"
	"litassist/pkg/ai"
	"litassist/pkg/auth"
	"litassist/pkg/domain"
	"litassist/pkg/extract"
	"litassist/pkg/prompt"
	"litassist/pkg/queue"
	"litassist/pkg/storage"
	"litassist/pkg/store"
)

// Config wires the application's collaborators. Archive and Publisher
// are optional; everything else is required.
type Config struct {
	Store     store.Store
	Files     *storage.FileStore
	Archive   storage.ArchiveStore
	Extractor *extract.Registry
	Prompts   *prompt.Loader
	Providers *ai.Registry
	Publisher queue.Publisher
	Logger    *slog.Logger
}

// App exposes every user-facing operation of the backend.
type App struct {
	store     store.Store
	files     *storage.FileStore
	archive   storage.ArchiveStore
	extractor *extract.Registry
	prompts   *prompt.Loader
	providers *ai.Registry
	publisher queue.Publisher
	logger    *slog.Logger
}

// New validates the configuration and builds the App.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Files == nil {
		return nil, fmt.Errorf("file store is required")
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("extractor registry is required")
	}
	if cfg.Prompts == nil {
		return nil, fmt.Errorf("prompt loader is required")
	}
	if cfg.Providers == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		store:     cfg.Store,
		files:     cfg.Files,
		archive:   cfg.Archive,
		extractor: cfg.Extractor,
		prompts:   cfg.Prompts,
		providers: cfg.Providers,
		publisher: cfg.Publisher,
		logger:    logger,
	}, nil
}

// RegisterUser creates an account with a bcrypt password hash.
func (a *App) RegisterUser(username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return domain.User{}, fmt.Errorf("%w: username must be at least 3 characters", ErrValidation)
	}
	if len(password) < 6 {
		return domain.User{}, fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	if _, exists, err := a.store.GetUserByUsername(username); err != nil {
		return domain.User{}, err
	} else if exists {
		return domain.User{}, fmt.Errorf("%w: %q", ErrUsernameTaken, username)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	now := time.Now()
	user := domain.User{
		ID:           util.NewID(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateUser(user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// AuthenticateUser checks credentials and returns the account.
func (a *App) AuthenticateUser(username, password string) (domain.User, error) {
	user, ok, err := a.store.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		return domain.User{}, err
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser looks up an account by id.
func (a *App) GetUser(id string) (domain.User, bool, error) {
	return a.store.GetUserByID(id)
}

// GetLiterature returns one record owned by the user.
func (a *App) GetLiterature(id, userID string) (domain.Literature, error) {
	record, ok, err := a.store.GetLiterature(id, userID)
	if err != nil {
		return domain.Literature{}, err
	}
	if !ok {
		return domain.Literature{}, fmt.Errorf("%w: literature %q", store.ErrNotFound, id)
	}
	return record, nil
}

// PageLiterature runs a filtered, paged listing.
func (a *App) PageLiterature(q store.LiteratureQuery) ([]domain.Literature, int64, error) {
	return a.store.PageLiterature(q)
}

// DeleteLiterature soft-deletes the record and removes the stored file.
// File and archive removal are best-effort once the record is gone.
func (a *App) DeleteLiterature(ctx context.Context, id, userID string) error {
	record, ok, err := a.store.GetLiterature(id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: literature %q", store.ErrNotFound, id)
	}
	if err := a.store.SoftDeleteLiterature(id, userID); err != nil {
		return err
	}
	if record.FilePath != "" {
		if err := a.files.Delete(a.files.FullPath(record.FilePath)); err != nil {
			a.logger.Warn("delete stored file", "literature_id", id, "error", err)
		}
		if a.archive != nil {
			if err := a.archive.Delete(ctx, record.FilePath); err != nil {
				a.logger.Warn("delete archived file", "literature_id", id, "error", err)
			}
		}
	}
	return nil
}

// DownloadPath resolves the on-disk path and original name of a record's file.
func (a *App) DownloadPath(id, userID string) (string, string, error) {
	record, err := a.GetLiterature(id, userID)
	if err != nil {
		return "", "", err
	}
	full := a.files.FullPath(record.FilePath)
	if _, err := os.Stat(full); err != nil {
		return "", "", fmt.Errorf("%w: stored file for %q", store.ErrNotFound, id)
	}
	return full, record.OriginalName, nil
}

// Experts lists the available reading-guide personas.
func (a *App) Experts() []domain.Expert {
	return a.prompts.Experts()
}

// CreateAIModel validates and stores a new model profile for the user.
func (a *App) CreateAIModel(userID string, m domain.AIModel) (domain.AIModel, error) {
	if err := a.validateAIModel(m); err != nil {
		return domain.AIModel{}, err
	}
	now := time.Now()
	m.ID = util.NewID()
	m.UserID = userID
	m.Enabled = true
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := a.store.CreateAIModel(m); err != nil {
		return domain.AIModel{}, err
	}
	return m, nil
}

// UpdateAIModel updates an owned model profile. An empty APIKey keeps
// the stored key so clients never have to echo secrets back.
func (a *App) UpdateAIModel(userID string, m domain.AIModel) (domain.AIModel, error) {
	existing, ok, err := a.store.GetAIModel(m.ID, userID)
	if err != nil {
		return domain.AIModel{}, err
	}
	if !ok {
		return domain.AIModel{}, fmt.Errorf("%w: ai model %q", store.ErrNotFound, m.ID)
	}
	if m.APIKey == "" {
		m.APIKey = existing.APIKey
	}
	if err := a.validateAIModel(m); err != nil {
		return domain.AIModel{}, err
	}
	m.UserID = userID
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now()
	if err := a.store.UpdateAIModel(m); err != nil {
		return domain.AIModel{}, err
	}
	return m, nil
}

// ListAIModels lists the user's model profiles.
func (a *App) ListAIModels(userID string) ([]domain.AIModel, error) {
	return a.store.ListAIModels(userID)
}

// DeleteAIModel removes an owned model profile.
func (a *App) DeleteAIModel(id, userID string) error {
	return a.store.DeleteAIModel(id, userID)
}

// SetDefaultAIModel marks one owned profile as the user's default.
func (a *App) SetDefaultAIModel(id, userID string) (domain.AIModel, error) {
	m, ok, err := a.store.GetAIModel(id, userID)
	if err != nil {
		return domain.AIModel{}, err
	}
	if !ok {
		return domain.AIModel{}, fmt.Errorf("%w: ai model %q", store.ErrNotFound, id)
	}
	m.IsDefault = true
	m.UpdatedAt = time.Now()
	if err := a.store.UpdateAIModel(m); err != nil {
		return domain.AIModel{}, err
	}
	return m, nil
}

func (a *App) validateAIModel(m domain.AIModel) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: model name is required", ErrValidation)
	}
	if strings.TrimSpace(m.ModelName) == "" {
		return fmt.Errorf("%w: model identifier is required", ErrValidation)
	}
	p, err := a.providers.Create(m.Provider, ai.Config{})
	if err != nil {
		return err
	}
	if p.RequiresAPIKey() && strings.TrimSpace(m.APIKey) == "" {
		return fmt.Errorf("%w: provider %s requires an api key", ErrValidation, p.Name())
	}
	return nil
}

func (a *App) publishLifecycle(ctx context.Context, literatureID, userID string, status domain.LiteratureStatus) {
	if a.publisher == nil {
		return
	}
	event := queue.LifecycleEvent{
		LiteratureID: literatureID,
		UserID:       userID,
		Status:       status,
		OccurredAt:   time.Now(),
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		a.logger.Warn("publish lifecycle event", "literature_id", literatureID, "error", err)
	}
}

func (a *App) archiveUpload(ctx context.Context, record domain.Literature) {
	if a.archive == nil {
		return
	}
	full := a.files.FullPath(record.FilePath)
	f, err := os.Open(full)
	if err != nil {
		a.logger.Warn("archive upload", "literature_id", record.ID, "error", err)
		return
	}
	defer f.Close()
	err = a.archive.Put(ctx, record.FilePath, f, record.FileSize, "application/octet-stream")
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn("archive upload", "literature_id", record.ID, "error", err)
	}
}
