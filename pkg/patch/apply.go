// Package patch writes validated change-sets to disk.
package patch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drengskapur/repodiff/pkg/diffxml"
	"github.com/drengskapur/repodiff/pkg/pathguard"
	"go.uber.org/zap"
)

// DefaultFileMode is used for files that do not exist yet.
const DefaultFileMode os.FileMode = 0o644

// ErrApplyIO is matched by every *ApplyError.
var ErrApplyIO = errors.New("apply failed")

// ApplyError reports a batch that stopped at Failed. Files in Written were
// already replaced and are not rolled back; files after Failed were not
// touched.
type ApplyError struct {
	Written []string
	Failed  string
	Err     error
}

func (e *ApplyError) Error() string {
	if len(e.Written) == 0 {
		return fmt.Sprintf("failed to write %s (nothing written): %v", e.Failed, e.Err)
	}
	return fmt.Sprintf("failed to write %s after writing %d file(s) [%s]: %v",
		e.Failed, len(e.Written), strings.Join(e.Written, ", "), e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrApplyIO.
func (e *ApplyError) Is(target error) bool {
	return target == ErrApplyIO
}

// Partial reports whether some files were written before the failure.
func (e *ApplyError) Partial() bool {
	return len(e.Written) > 0
}

// Applier writes change-sets under a base directory.
type Applier struct {
	logger *zap.Logger
}

// NewApplier returns an Applier. A nil logger discards output.
func NewApplier(logger *zap.Logger) *Applier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applier{logger: logger}
}

// Apply writes every change in document order and returns the names written.
// Each path is re-validated with pathguard even when cs came from
// diffxml.Parse, and a parent directory reached through a symlink that leaves
// baseDir is rejected. Missing parent directories are not created.
func (a *Applier) Apply(baseDir string, cs diffxml.ChangeSet) ([]string, error) {
	written := make([]string, 0, len(cs))
	a.logger.Info("Applying change set", zap.String("baseDir", baseDir), zap.Int("files", len(cs)))

	for _, change := range cs {
		target, err := pathguard.ResolveSafe(baseDir, change.FileName)
		if err != nil {
			a.logger.Error("Rejected unsafe path", zap.String("fileName", change.FileName), zap.Error(err))
			return written, &ApplyError{Written: written, Failed: change.FileName, Err: err}
		}
		if err := pathguard.CheckParentLinks(baseDir, target); err != nil {
			a.logger.Error("Rejected symlinked parent", zap.String("fileName", change.FileName), zap.Error(err))
			return written, &ApplyError{Written: written, Failed: change.FileName, Err: err}
		}

		if err := writeFileAtomic(target, []byte(change.NewContent)); err != nil {
			a.logger.Error("Failed to write file",
				zap.String("fileName", change.FileName),
				zap.String("path", target),
				zap.Int("alreadyWritten", len(written)),
				zap.Error(err))
			return written, &ApplyError{Written: written, Failed: change.FileName, Err: err}
		}

		written = append(written, change.FileName)
		a.logger.Debug("Wrote file",
			zap.String("fileName", change.FileName),
			zap.Int("sizeBytes", len(change.NewContent)))
	}

	a.logger.Info("Change set applied", zap.Int("written", len(written)))
	return written, nil
}

// writeFileAtomic replaces path with data through a temp file in the same
// directory and a rename, so readers see either the old or the new content.
// An existing file keeps its permission bits. A symlink at path is replaced
// by a regular file rather than followed.
func writeFileAtomic(path string, data []byte) (err error) {
	perm := DefaultFileMode
	if info, statErr := os.Lstat(path); statErr == nil {
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		if info.Mode().IsRegular() {
			perm = info.Mode().Perm()
		}
	} else if !os.IsNotExist(statErr) {
		return fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
