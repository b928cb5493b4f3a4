// Package scan lists candidate files under a repository root and reads
// batches of them for prompt assembly.
package scan

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/drengskapur/repodiff/pkg/ignore"
	"go.uber.org/zap"
)

// Scanner walks a repository with an explicit worklist of pending
// directories instead of recursion.
type Scanner struct {
	matcher ignore.PathMatcher
	logger  *zap.Logger
}

// NewScanner returns a Scanner. A nil matcher ignores nothing.
func NewScanner(matcher ignore.PathMatcher, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if matcher == nil {
		matcher = ignore.NewMatcher(nil, logger)
	}
	return &Scanner{matcher: matcher, logger: logger}
}

// Scan returns the slash-separated relative paths of regular files under
// baseDir that are not ignored, sorted lexically. Ignored directories are
// never entered. Symlinks are skipped. Unreadable subdirectories are logged
// and skipped; an unreadable baseDir is an error.
func (s *Scanner) Scan(baseDir string) ([]string, error) {
	root, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	s.logger.Debug("Starting scan", zap.String("baseDir", root))

	var files []string
	pending := []string{""}
	dirs := 0

	for len(pending) > 0 {
		rel := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		dirs++

		entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			if rel == "" {
				return nil, fmt.Errorf("failed to read base directory: %w", err)
			}
			s.logger.Warn("Skipping unreadable directory", zap.String("dir", rel), zap.Error(err))
			continue
		}

		for _, entry := range entries {
			relPath := path.Join(rel, entry.Name())

			switch {
			case entry.IsDir():
				if s.matcher.IsIgnoredDir(relPath) {
					s.logger.Debug("Skipping ignored directory", zap.String("dir", relPath))
					continue
				}
				pending = append(pending, relPath)
			case entry.Type().IsRegular():
				if s.matcher.IsIgnored(relPath) {
					s.logger.Debug("Skipping ignored file", zap.String("file", relPath))
					continue
				}
				files = append(files, relPath)
			default:
				s.logger.Debug("Skipping non-regular entry", zap.String("path", relPath), zap.String("mode", entry.Type().String()))
			}
		}
	}

	sort.Strings(files)
	s.logger.Debug("Completed scan", zap.Int("files", len(files)), zap.Int("directories", dirs))
	return files, nil
}
