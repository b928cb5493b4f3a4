package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Backend loads and persists the whole settings document.
type Backend interface {
	Load() (Document, error)
	Save(Document) error
}

// MemoryBackend keeps the document in memory.
type MemoryBackend struct {
	mu    sync.Mutex
	doc   Document
	saves int
}

// NewMemoryBackend returns a MemoryBackend seeded with doc.
func NewMemoryBackend(doc Document) *MemoryBackend {
	return &MemoryBackend{doc: doc.clone()}
}

func (b *MemoryBackend) Load() (Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doc.clone(), nil
}

func (b *MemoryBackend) Save(doc Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.doc = doc.clone()
	b.saves++
	return nil
}

// Saves reports how many times Save was called.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

// FileBackend stores the document as YAML at Path.
type FileBackend struct {
	Path string
}

// NewFileBackend returns a FileBackend for path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

// DefaultPath returns the per-user store location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "repodiff", "store.yaml"), nil
}

// Load reads the document. A missing file yields an empty document.
func (b *FileBackend) Load() (Document, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Document{}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to read store file: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse store file %s: %w", b.Path, err)
	}
	return doc, nil
}

// Save writes the document to a temporary file and renames it into place.
func (b *FileBackend) Save(doc Document) error {
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize store: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temporary store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temporary store file: %w", err)
	}
	if err := os.Rename(tmpName, b.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to save store file: %w", err)
	}
	return nil
}
