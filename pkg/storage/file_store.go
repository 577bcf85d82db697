// Package storage manages uploaded document files on local disk, with an
// optional object-store archive for completed uploads.
package storage

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrFileInvalid covers upload validation failures: empty file,
// disallowed extension, size over the configured limit.
var ErrFileInvalid = errors.New("invalid upload")

// SavedFile describes one stored upload.
type SavedFile struct {
	FullPath     string
	RelativePath string
	Size         int64
	Type         string
}

// FileStore saves uploads under a managed root directory using
// date-partitioned, collision-free relative paths.
type FileStore struct {
	root     string
	maxBytes int64
	allowed  map[string]struct{}
}

// NewFileStore creates the upload root if missing.
func NewFileStore(root string, maxBytes int64, allowedExts []string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("upload root is required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	allowed := make(map[string]struct{}, len(allowedExts))
	for _, ext := range allowedExts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			allowed[ext] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("at least one allowed extension is required")
	}
	return &FileStore{root: root, maxBytes: maxBytes, allowed: allowed}, nil
}

// Save validates and writes one upload, returning where it landed.
// The relative path is <yyyymmdd>/<timestamp>_<hash8>.<ext>; the hash
// covers the original name, the timestamp, and a per-upload nonce, so
// identical filenames uploaded in the same second never collide.
func (f *FileStore) Save(originalName string, r io.Reader) (SavedFile, error) {
	name := filepath.Base(strings.TrimSpace(originalName))
	if name == "" || name == "." {
		return SavedFile{}, fmt.Errorf("%w: filename required", ErrFileInvalid)
	}
	ext := FileExt(name)
	if _, ok := f.allowed[ext]; !ok {
		return SavedFile{}, fmt.Errorf("%w: unsupported file type %q (allowed: %s)", ErrFileInvalid, ext, strings.Join(f.AllowedExtensions(), ", "))
	}

	now := time.Now()
	timestamp := now.Format("20060102150405")
	sum := md5.Sum([]byte(name + timestamp + uuid.NewString()))
	filename := timestamp + "_" + hex.EncodeToString(sum[:])[:8] + "." + ext
	relative := filepath.Join(now.Format("20060102"), filename)
	full := filepath.Join(f.root, relative)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return SavedFile{}, fmt.Errorf("create upload dir: %w", err)
	}
	out, err := os.Create(full)
	if err != nil {
		return SavedFile{}, fmt.Errorf("create file: %w", err)
	}
	size, err := io.Copy(out, io.LimitReader(r, f.maxBytes+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(full)
		return SavedFile{}, fmt.Errorf("write file: %w", err)
	}
	if size == 0 {
		_ = os.Remove(full)
		return SavedFile{}, fmt.Errorf("%w: file is empty", ErrFileInvalid)
	}
	if size > f.maxBytes {
		_ = os.Remove(full)
		return SavedFile{}, fmt.Errorf("%w: file exceeds %d bytes", ErrFileInvalid, f.maxBytes)
	}

	return SavedFile{FullPath: full, RelativePath: relative, Size: size, Type: ext}, nil
}

// Delete removes a stored file. Paths outside the upload root are refused.
func (f *FileStore) Delete(fullPath string) error {
	rel, err := filepath.Rel(f.root, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("path %q is outside the upload root", fullPath)
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// FullPath resolves a stored relative path against the upload root.
func (f *FileStore) FullPath(relative string) string {
	return filepath.Join(f.root, relative)
}

// AllowedExtensions lists the accepted extensions, sorted.
func (f *FileStore) AllowedExtensions() []string {
	exts := make([]string, 0, len(f.allowed))
	for ext := range f.allowed {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// FileExt returns the lower-cased extension of a filename without the dot.
func FileExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
