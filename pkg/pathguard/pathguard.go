// Package pathguard validates repository-relative paths before they are
// read from or written to disk.
package pathguard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is matched by every error this package returns.
var ErrPathTraversal = errors.New("path traversal")

// TraversalError describes a rejected path.
type TraversalError struct {
	Path   string // The path as supplied by the caller.
	Reason string // Short human-readable reason.
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("unsafe path %q: %s", e.Path, e.Reason)
}

// Is reports whether target is ErrPathTraversal.
func (e *TraversalError) Is(target error) bool {
	return target == ErrPathTraversal
}

// CheckRelative performs the syntactic check on a relative path. Both
// separators are treated as separators regardless of the host OS, so
// `a\..\b` is rejected on Linux as well. The path must name a file: a
// trailing separator or a path made only of `.` segments is rejected.
func CheckRelative(rel string) error {
	switch {
	case rel == "":
		return &TraversalError{Path: rel, Reason: "empty path"}
	case strings.ContainsRune(rel, 0):
		return &TraversalError{Path: rel, Reason: "contains NUL byte"}
	case strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`):
		return &TraversalError{Path: rel, Reason: "absolute path"}
	case hasVolumePrefix(rel):
		return &TraversalError{Path: rel, Reason: "volume prefix"}
	case filepath.IsAbs(rel):
		return &TraversalError{Path: rel, Reason: "absolute path"}
	case strings.HasSuffix(rel, "/") || strings.HasSuffix(rel, `\`):
		return &TraversalError{Path: rel, Reason: "names a directory"}
	}

	named := false
	for _, segment := range splitSegments(rel) {
		switch segment {
		case "..":
			return &TraversalError{Path: rel, Reason: "parent directory segment"}
		case ".":
		default:
			named = true
		}
	}
	if !named {
		return &TraversalError{Path: rel, Reason: "names the base directory"}
	}
	return nil
}

// ResolveSafe returns the absolute path of rel under baseDir. It fails when
// rel does not pass CheckRelative or when the joined, cleaned path does not
// stay under the canonical base directory. The candidate itself is never
// touched on disk.
func ResolveSafe(baseDir, rel string) (string, error) {
	if err := CheckRelative(rel); err != nil {
		return "", err
	}

	base, err := CanonicalBase(baseDir)
	if err != nil {
		return "", err
	}

	candidate := filepath.Join(base, filepath.FromSlash(normalizeSeparators(rel)))
	if !Within(base, candidate) {
		return "", &TraversalError{Path: rel, Reason: "resolves outside base directory"}
	}
	return candidate, nil
}

// CheckParentLinks fails when the directory holding target resolves, through
// symlinks, outside baseDir. A parent that does not exist passes; writing
// into it fails later.
func CheckParentLinks(baseDir, target string) error {
	base, err := CanonicalBase(baseDir)
	if err != nil {
		return err
	}
	parent, err := filepath.EvalSymlinks(filepath.Dir(target))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to evaluate %s: %w", filepath.Dir(target), err)
	}
	if !Within(base, parent) {
		return &TraversalError{Path: target, Reason: "parent directory resolves outside base directory"}
	}
	return nil
}

// CanonicalBase resolves baseDir to an absolute, cleaned path. Symlinks are
// evaluated when the directory exists so the prefix comparison in
// ResolveSafe operates on the real location.
func CanonicalBase(baseDir string) (string, error) {
	if baseDir == "" {
		return "", fmt.Errorf("empty base directory")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to evaluate base directory: %w", err)
	}
	return filepath.Clean(abs), nil
}

// Within reports whether candidate equals base or lies beneath it.
func Within(base, candidate string) bool {
	if candidate == base {
		return true
	}
	prefix := base
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(candidate, prefix)
}

func splitSegments(rel string) []string {
	return strings.FieldsFunc(rel, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

// normalizeSeparators rewrites backslashes so paths authored on Windows
// resolve to the same location on every platform.
func normalizeSeparators(rel string) string {
	return strings.ReplaceAll(rel, `\`, "/")
}

func hasVolumePrefix(rel string) bool {
	if len(rel) < 2 || rel[1] != ':' {
		return false
	}
	c := rel[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
