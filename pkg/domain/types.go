package domain

import "time"

type LiteratureStatus string

const (
	StatusProcessing LiteratureStatus = "processing"
	StatusCompleted  LiteratureStatus = "completed"
	StatusFailed     LiteratureStatus = "failed"
)

// Literature is one uploaded document plus everything derived from it.
// FilePath is relative to the managed upload root.
type Literature struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	OriginalName  string           `json:"originalName"`
	FilePath      string           `json:"-"`
	FileSize      int64            `json:"fileSize"`
	FileType      string           `json:"fileType"`
	ContentLength int              `json:"contentLength"`
	Tags          []string         `json:"tags,omitempty"`
	Description   string           `json:"description,omitempty"`
	ReadingGuide  string           `json:"readingGuide,omitempty"`
	Status        LiteratureStatus `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	Deleted       bool             `json:"-"`
}

// AIModel is a user-owned endpoint configuration for guide generation.
// At most one model per user carries IsDefault.
type AIModel struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Provider    string    `json:"provider"`
	BaseURL     string    `json:"baseUrl"`
	APIKey      string    `json:"-"`
	ModelName   string    `json:"modelName"`
	MaxTokens   int       `json:"maxTokens"`
	Temperature float64   `json:"temperature"`
	IsDefault   bool      `json:"isDefault"`
	Enabled     bool      `json:"enabled"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Expert is a named system-prompt persona that shapes guide generation.
type Expert struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Category    string `json:"category"`
}
