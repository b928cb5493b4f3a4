package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/drengskapur/repodiff/pkg/pathguard"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxFileSize is the per-file read ceiling (5 MiB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

// DefaultConcurrency bounds parallel reads.
const DefaultConcurrency = 8

const (
	OversizedPlaceholder = "[File content omitted: exceeds size limit]"
	BinaryPlaceholder    = "[File content omitted: binary file]"
)

// ErrKind classifies a per-file read failure.
type ErrKind int

const (
	KindIO ErrKind = iota + 1
	KindPath
	KindOversized
	KindBinary
)

func (k ErrKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindPath:
		return "path"
	case KindOversized:
		return "oversized"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

var (
	ErrOversized = errors.New("file exceeds size limit")
	ErrBinary    = errors.New("binary file")
)

// FileError records why one file could not be read as text.
type FileError struct {
	Path string
	Kind ErrKind
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// ReadResult holds the contents of a batch read. Oversized and binary files
// appear in Contents with a placeholder and also in Errors. Files that
// failed path validation or I/O are absent from Contents.
type ReadResult struct {
	Contents map[string]string
	Errors   []*FileError
}

// ReaderOptions configures a Reader. Zero values select the defaults.
type ReaderOptions struct {
	MaxFileSize int64
	Concurrency int
}

// Reader loads file contents relative to a base directory.
type Reader struct {
	opts   ReaderOptions
	logger *zap.Logger
}

// NewReader returns a Reader.
func NewReader(opts ReaderOptions, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Reader{opts: opts, logger: logger}
}

type readOutcome struct {
	content string
	ok      bool
	err     *FileError
}

// Read loads paths concurrently. Errors are reported per file in input
// order; a failing file never aborts the batch.
func (r *Reader) Read(baseDir string, paths []string) ReadResult {
	outcomes := make([]readOutcome, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(r.opts.Concurrency)
	for i, p := range paths {
		g.Go(func() error {
			content, err := r.ReadFile(baseDir, p)
			var ferr *FileError
			if errors.As(err, &ferr) {
				outcomes[i].err = ferr
			}
			switch {
			case err == nil:
				outcomes[i] = readOutcome{content: content, ok: true}
			case ferr != nil && (ferr.Kind == KindOversized || ferr.Kind == KindBinary):
				outcomes[i].content = content
				outcomes[i].ok = true
			}
			return nil
		})
	}
	_ = g.Wait()

	result := ReadResult{Contents: make(map[string]string, len(paths))}
	for i, p := range paths {
		o := outcomes[i]
		if o.ok {
			result.Contents[p] = o.content
		}
		if o.err != nil {
			result.Errors = append(result.Errors, o.err)
		}
	}

	r.logger.Debug("Read files",
		zap.Int("requested", len(paths)),
		zap.Int("read", len(result.Contents)),
		zap.Int("errors", len(result.Errors)))
	return result
}

// ReadFile loads one file. For oversized and binary files it returns the
// matching placeholder together with a *FileError.
func (r *Reader) ReadFile(baseDir, rel string) (string, error) {
	full, err := pathguard.ResolveSafe(baseDir, rel)
	if err != nil {
		return "", &FileError{Path: rel, Kind: KindPath, Err: err}
	}
	if err := checkLinkTarget(baseDir, full); err != nil {
		return "", &FileError{Path: rel, Kind: KindPath, Err: err}
	}

	info, err := os.Stat(full)
	if err != nil {
		return "", &FileError{Path: rel, Kind: KindIO, Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", &FileError{Path: rel, Kind: KindIO, Err: errors.New("not a regular file")}
	}
	if info.Size() > r.opts.MaxFileSize {
		r.logger.Debug("Skipping oversized file", zap.String("file", rel), zap.Int64("size", info.Size()))
		return OversizedPlaceholder, &FileError{
			Path: rel,
			Kind: KindOversized,
			Err:  fmt.Errorf("%w: %d bytes > %d", ErrOversized, info.Size(), r.opts.MaxFileSize),
		}
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", &FileError{Path: rel, Kind: KindIO, Err: err}
	}

	if hasUTF16BOM(data) {
		text, err := decodeUTF16(data)
		if err != nil {
			return "", &FileError{Path: rel, Kind: KindIO, Err: fmt.Errorf("failed to decode UTF-16: %w", err)}
		}
		return text, nil
	}
	if isBinary(data) {
		r.logger.Debug("Skipping binary file", zap.String("file", rel))
		return BinaryPlaceholder, &FileError{Path: rel, Kind: KindBinary, Err: ErrBinary}
	}
	return string(data), nil
}

// checkLinkTarget rejects a path whose symlinks resolve outside baseDir.
func checkLinkTarget(baseDir, full string) error {
	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		return nil // Missing files are reported by the stat that follows.
	}
	base, err := pathguard.CanonicalBase(baseDir)
	if err != nil {
		return err
	}
	if !pathguard.Within(base, resolved) {
		return &pathguard.TraversalError{Path: full, Reason: "symlink resolves outside base directory"}
	}
	return nil
}
