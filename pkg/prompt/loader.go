// Package prompt resolves persona and task identifiers to system prompt
// text stored as .txt files on disk, with process-lifetime caching.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"litassist/pkg/domain"
)

// ErrPersonaNotFound means the expert id is not in the catalog or its
// prompt file is missing on disk.
var ErrPersonaNotFound = errors.New("expert not found")

// Loader reads prompt files from a directory and caches them by name.
type Loader struct {
	dir string

	mu    sync.RWMutex
	cache map[string]string
	group singleflight.Group
}

// NewLoader validates the prompts directory and returns a loader.
func NewLoader(dir string) (*Loader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("prompts dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("prompts dir: %s is not a directory", dir)
	}
	return &Loader{dir: dir, cache: make(map[string]string)}, nil
}

// Load returns the prompt text for name (without .txt suffix), reading
// it from disk on first use and from cache afterwards.
func (l *Loader) Load(name string) (string, error) {
	l.mu.RLock()
	text, ok := l.cache[name]
	l.mu.RUnlock()
	if ok {
		return text, nil
	}

	v, err, _ := l.group.Do(name, func() (any, error) {
		text, err := l.read(name)
		if err != nil {
			return "", err
		}
		l.mu.Lock()
		l.cache[name] = text
		l.mu.Unlock()
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Reload invalidates the cache entry for one name and re-reads it.
func (l *Loader) Reload(name string) (string, error) {
	l.mu.Lock()
	delete(l.cache, name)
	l.mu.Unlock()
	return l.Load(name)
}

// LoadExpert resolves an expert id to its system prompt text.
func (l *Loader) LoadExpert(expertID string) (string, error) {
	entry, ok := lookupExpert(expertID)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrPersonaNotFound, expertID)
	}
	text, err := l.Load(entry.PromptName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: prompt file missing for %q", ErrPersonaNotFound, expertID)
		}
		return "", err
	}
	return text, nil
}

// Experts lists catalog entries whose prompt file exists on disk.
func (l *Loader) Experts() []domain.Expert {
	out := make([]domain.Expert, 0, len(catalog))
	for _, entry := range catalog {
		if _, err := os.Stat(l.path(entry.PromptName)); err != nil {
			continue
		}
		out = append(out, domain.Expert{
			ID:          entry.ID,
			Name:        entry.Name,
			Description: entry.Description,
			Icon:        entry.Icon,
			Category:    entry.Category,
		})
	}
	return out
}

func (l *Loader) read(name string) (string, error) {
	data, err := os.ReadFile(l.path(name))
	if err != nil {
		return "", fmt.Errorf("read prompt %q: %w", name, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("prompt %q is empty", name)
	}
	return text, nil
}

func (l *Loader) path(name string) string {
	if !strings.HasSuffix(name, ".txt") {
		name += ".txt"
	}
	return filepath.Join(l.dir, name)
}

func lookupExpert(id string) (expertEntry, bool) {
	for _, entry := range catalog {
		if entry.ID == id {
			return entry, true
		}
	}
	return expertEntry{}, false
}
