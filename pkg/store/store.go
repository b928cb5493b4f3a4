// Package store holds per-repository settings: stored instructions, saved
// file groups and ignore overrides. State is owned by a Store value and
// persisted explicitly through a Backend.
package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/drengskapur/repodiff/pkg/ignore"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CurrentVersion is written into every saved document.
const CurrentVersion = 1

var (
	ErrClosed        = errors.New("store is closed")
	ErrGroupNotFound = errors.New("group not found")
	ErrEmptyName     = errors.New("group name is empty")
)

// RepoGroup is a named, saved file selection.
type RepoGroup struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Files     []string  `yaml:"files"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// RepoSettings is everything stored for one repository.
type RepoSettings struct {
	Instructions string           `yaml:"instructions,omitempty"`
	Groups       []RepoGroup      `yaml:"groups,omitempty"`
	Ignore       ignore.Overrides `yaml:"ignore,omitempty"`
}

// Document is the persisted form of a Store.
type Document struct {
	Version      int                     `yaml:"version"`
	GlobalIgnore ignore.Overrides        `yaml:"global_ignore,omitempty"`
	Repos        map[string]RepoSettings `yaml:"repos,omitempty"`
}

func (d Document) clone() Document {
	out := Document{
		Version:      d.Version,
		GlobalIgnore: cloneOverrides(d.GlobalIgnore),
	}
	if d.Repos != nil {
		out.Repos = make(map[string]RepoSettings, len(d.Repos))
		for k, v := range d.Repos {
			out.Repos[k] = v.clone()
		}
	}
	return out
}

func (r RepoSettings) clone() RepoSettings {
	out := RepoSettings{
		Instructions: r.Instructions,
		Ignore:       cloneOverrides(r.Ignore),
	}
	if r.Groups != nil {
		out.Groups = make([]RepoGroup, len(r.Groups))
		for i, g := range r.Groups {
			g.Files = append([]string(nil), g.Files...)
			out.Groups[i] = g
		}
	}
	return out
}

func cloneOverrides(o ignore.Overrides) ignore.Overrides {
	return ignore.Overrides{
		Add:     append([]ignore.Rule(nil), o.Add...),
		Disable: append([]string(nil), o.Disable...),
	}
}

// Store is safe for concurrent use. Mutations are kept in memory until
// Flush or Close.
type Store struct {
	mu      sync.Mutex
	backend Backend
	doc     Document
	dirty   bool
	closed  bool
	logger  *zap.Logger
	now     func() time.Time
}

// Open loads the document from backend.
func Open(backend Backend, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	doc, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}
	if doc.Repos == nil {
		doc.Repos = map[string]RepoSettings{}
	}
	if doc.Version == 0 {
		doc.Version = CurrentVersion
	}

	logger.Debug("Opened store", zap.Int("repos", len(doc.Repos)))
	return &Store{
		backend: backend,
		doc:     doc,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Repo returns a copy of the settings stored for repo. Unknown repos yield
// zero settings.
func (s *Store) Repo(repo string) (RepoSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return RepoSettings{}, ErrClosed
	}
	return s.doc.Repos[repo].clone(), nil
}

// SetInstructions replaces the stored instructions for repo.
func (s *Store) SetInstructions(repo, instructions string) error {
	return s.update(repo, func(r *RepoSettings) error {
		r.Instructions = instructions
		return nil
	})
}

// Groups returns the saved groups of repo in creation order.
func (s *Store) Groups(repo string) ([]RepoGroup, error) {
	settings, err := s.Repo(repo)
	if err != nil {
		return nil, err
	}
	return settings.Groups, nil
}

// Group returns the group called name.
func (s *Store) Group(repo, name string) (RepoGroup, error) {
	groups, err := s.Groups(repo)
	if err != nil {
		return RepoGroup{}, err
	}
	if i := indexOfGroup(groups, name); i >= 0 {
		return groups[i], nil
	}
	return RepoGroup{}, fmt.Errorf("%w: %s", ErrGroupNotFound, name)
}

// SaveGroup creates the group called name, or replaces the files of an
// existing one while keeping its ID.
func (s *Store) SaveGroup(repo, name string, files []string) (RepoGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return RepoGroup{}, ErrEmptyName
	}

	var saved RepoGroup
	err := s.update(repo, func(r *RepoSettings) error {
		now := s.now()
		files = append([]string{}, files...)
		if i := indexOfGroup(r.Groups, name); i >= 0 {
			r.Groups[i].Files = files
			r.Groups[i].UpdatedAt = now
			saved = r.Groups[i]
			return nil
		}
		saved = RepoGroup{
			ID:        uuid.NewString(),
			Name:      name,
			Files:     files,
			CreatedAt: now,
			UpdatedAt: now,
		}
		r.Groups = append(r.Groups, saved)
		return nil
	})
	if err != nil {
		return RepoGroup{}, err
	}
	s.logger.Debug("Saved group", zap.String("repo", repo), zap.String("group", name), zap.Int("files", len(files)))
	return cloneGroup(saved), nil
}

// SetGroupFiles replaces the files of an existing group.
func (s *Store) SetGroupFiles(repo, name string, files []string) (RepoGroup, error) {
	var saved RepoGroup
	err := s.update(repo, func(r *RepoSettings) error {
		i := indexOfGroup(r.Groups, name)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrGroupNotFound, name)
		}
		r.Groups[i].Files = append([]string{}, files...)
		r.Groups[i].UpdatedAt = s.now()
		saved = r.Groups[i]
		return nil
	})
	if err != nil {
		return RepoGroup{}, err
	}
	return cloneGroup(saved), nil
}

// DeleteGroup removes the group called name.
func (s *Store) DeleteGroup(repo, name string) error {
	return s.update(repo, func(r *RepoSettings) error {
		i := indexOfGroup(r.Groups, name)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrGroupNotFound, name)
		}
		r.Groups = append(r.Groups[:i], r.Groups[i+1:]...)
		return nil
	})
}

// GlobalIgnore returns the overrides applied to every repository.
func (s *Store) GlobalIgnore() (ignore.Overrides, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ignore.Overrides{}, ErrClosed
	}
	return cloneOverrides(s.doc.GlobalIgnore), nil
}

// SetGlobalIgnore replaces the global overrides.
func (s *Store) SetGlobalIgnore(o ignore.Overrides) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.doc.GlobalIgnore = cloneOverrides(o)
	s.dirty = true
	return nil
}

// SetRepoIgnore replaces the overrides of repo.
func (s *Store) SetRepoIgnore(repo string, o ignore.Overrides) error {
	return s.update(repo, func(r *RepoSettings) error {
		r.Ignore = cloneOverrides(o)
		return nil
	})
}

// EffectiveIgnore stacks the global overrides and those of repo.
func (s *Store) EffectiveIgnore(repo string) (ignore.Overrides, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ignore.Overrides{}, ErrClosed
	}
	return s.doc.GlobalIgnore.Combine(s.doc.Repos[repo].Ignore), nil
}

// Flush persists pending changes.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.flushLocked()
}

// Close flushes and releases the store. Later calls return ErrClosed. When
// the flush fails the store stays open and dirty so Close can be retried.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.flushLocked(); err != nil {
		return err
	}
	s.closed = true
	return nil
}

func (s *Store) flushLocked() error {
	if !s.dirty {
		return nil
	}
	s.doc.Version = CurrentVersion
	if err := s.backend.Save(s.doc.clone()); err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}
	s.dirty = false
	s.logger.Debug("Flushed store", zap.Int("repos", len(s.doc.Repos)))
	return nil
}

// update applies fn to a copy of the settings of repo and commits it when
// fn succeeds.
func (s *Store) update(repo string, fn func(*RepoSettings) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	settings := s.doc.Repos[repo].clone()
	if err := fn(&settings); err != nil {
		return err
	}
	s.doc.Repos[repo] = settings
	s.dirty = true
	return nil
}

func indexOfGroup(groups []RepoGroup, name string) int {
	for i, g := range groups {
		if g.Name == name {
			return i
		}
	}
	return -1
}

func cloneGroup(g RepoGroup) RepoGroup {
	g.Files = append([]string(nil), g.Files...)
	return g
}
