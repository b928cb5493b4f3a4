package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drengskapur/repodiff/pkg/ignore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) (*Store, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend(Document{})
	s, err := Open(backend, nil)
	require.NoError(t, err)
	return s, backend
}

func TestInstructions(t *testing.T) {
	s, _ := openMemory(t)

	require.NoError(t, s.SetInstructions("/repo", "refactor it"))
	settings, err := s.Repo("/repo")
	require.NoError(t, err)
	assert.Equal(t, "refactor it", settings.Instructions)

	other, err := s.Repo("/other")
	require.NoError(t, err)
	assert.Empty(t, other.Instructions)
}

func TestSaveGroupCreatesAndReplaces(t *testing.T) {
	s, _ := openMemory(t)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	created, err := s.SaveGroup("/repo", "api", []string{"a.go", "b.go"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"a.go", "b.go"}, created.Files)
	assert.True(t, created.CreatedAt.Equal(clock))

	clock = clock.Add(time.Hour)
	replaced, err := s.SaveGroup("/repo", "api", []string{"c.go"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, replaced.ID)
	assert.Equal(t, []string{"c.go"}, replaced.Files)
	assert.True(t, replaced.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, replaced.UpdatedAt.Equal(clock))

	second, err := s.SaveGroup("/repo", "docs", []string{"README.md"})
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, second.ID)

	groups, err := s.Groups("/repo")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "api", groups[0].Name)
	assert.Equal(t, "docs", groups[1].Name)
}

func TestSaveGroupEmptyName(t *testing.T) {
	s, _ := openMemory(t)
	_, err := s.SaveGroup("/repo", "  ", nil)
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestGroupCopiesAreIndependent(t *testing.T) {
	s, _ := openMemory(t)
	files := []string{"a.go"}
	_, err := s.SaveGroup("/repo", "g", files)
	require.NoError(t, err)
	files[0] = "mutated.go"

	g, err := s.Group("/repo", "g")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, g.Files)

	g.Files[0] = "mutated.go"
	again, err := s.Group("/repo", "g")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, again.Files)
}

func TestSetGroupFilesAndDelete(t *testing.T) {
	s, _ := openMemory(t)
	_, err := s.SaveGroup("/repo", "g", []string{"a.go", "node_modules/x.js"})
	require.NoError(t, err)

	updated, err := s.SetGroupFiles("/repo", "g", []string{"a.go"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, updated.Files)

	_, err = s.SetGroupFiles("/repo", "missing", nil)
	assert.ErrorIs(t, err, ErrGroupNotFound)

	require.NoError(t, s.DeleteGroup("/repo", "g"))
	assert.ErrorIs(t, s.DeleteGroup("/repo", "g"), ErrGroupNotFound)

	_, err = s.Group("/repo", "g")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestIgnoreOverrides(t *testing.T) {
	s, _ := openMemory(t)
	require.NoError(t, s.SetGlobalIgnore(ignore.Overrides{Add: []ignore.Rule{ignore.Literal("tmp")}}))
	require.NoError(t, s.SetRepoIgnore("/repo", ignore.Overrides{
		Add:     []ignore.Rule{ignore.Regex(`\.gen\.go$`, "")},
		Disable: []string{"go.sum"},
	}))

	global, err := s.GlobalIgnore()
	require.NoError(t, err)
	assert.Equal(t, []ignore.Rule{ignore.Literal("tmp")}, global.Add)

	eff, err := s.EffectiveIgnore("/repo")
	require.NoError(t, err)
	assert.Equal(t, []ignore.Rule{ignore.Literal("tmp"), ignore.Regex(`\.gen\.go$`, "")}, eff.Add)
	assert.Equal(t, []string{"go.sum"}, eff.Disable)

	other, err := s.EffectiveIgnore("/other")
	require.NoError(t, err)
	assert.Equal(t, []ignore.Rule{ignore.Literal("tmp")}, other.Add)
}

func TestFlushOnlyWhenDirty(t *testing.T) {
	s, backend := openMemory(t)

	require.NoError(t, s.Flush())
	assert.Equal(t, 0, backend.Saves())

	require.NoError(t, s.SetInstructions("/repo", "x"))
	require.NoError(t, s.Flush())
	assert.Equal(t, 1, backend.Saves())

	require.NoError(t, s.Flush())
	assert.Equal(t, 1, backend.Saves())

	doc, err := backend.Load()
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, doc.Version)
	assert.Equal(t, "x", doc.Repos["/repo"].Instructions)
}

func TestFailedMutationLeavesStoreClean(t *testing.T) {
	s, backend := openMemory(t)
	_, err := s.SetGroupFiles("/repo", "missing", nil)
	require.Error(t, err)
	require.NoError(t, s.Flush())
	assert.Equal(t, 0, backend.Saves())
}

func TestClose(t *testing.T) {
	s, backend := openMemory(t)
	require.NoError(t, s.SetInstructions("/repo", "x"))
	require.NoError(t, s.Close())
	assert.Equal(t, 1, backend.Saves())

	assert.ErrorIs(t, s.Close(), ErrClosed)
	assert.ErrorIs(t, s.Flush(), ErrClosed)
	assert.ErrorIs(t, s.SetInstructions("/repo", "y"), ErrClosed)
	_, err := s.Repo("/repo")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.GlobalIgnore()
	assert.ErrorIs(t, err, ErrClosed)
}

type flakyBackend struct {
	*MemoryBackend
	failures int
}

func (b *flakyBackend) Save(doc Document) error {
	if b.failures > 0 {
		b.failures--
		return errors.New("disk full")
	}
	return b.MemoryBackend.Save(doc)
}

func TestCloseRetriesAfterFailedFlush(t *testing.T) {
	backend := &flakyBackend{MemoryBackend: NewMemoryBackend(Document{}), failures: 1}
	s, err := Open(backend, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetInstructions("/repo", "keep me"))

	err = s.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0, backend.Saves())

	settings, err := s.Repo("/repo")
	require.NoError(t, err)
	assert.Equal(t, "keep me", settings.Instructions)

	require.NoError(t, s.Close())
	assert.Equal(t, 1, backend.Saves())
	assert.ErrorIs(t, s.Close(), ErrClosed)

	doc, err := backend.Load()
	require.NoError(t, err)
	assert.Equal(t, "keep me", doc.Repos["/repo"].Instructions)
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.yaml")
	backend := NewFileBackend(path)

	s, err := Open(backend, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetInstructions("/repo", "line one\nline two"))
	saved, err := s.SaveGroup("/repo", "core", []string{"main.go"})
	require.NoError(t, err)
	require.NoError(t, s.SetRepoIgnore("/repo", ignore.Overrides{Add: []ignore.Rule{ignore.Regex(`^gen/`, "i")}}))
	require.NoError(t, s.Close())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files are renamed away")

	reopened, err := Open(NewFileBackend(path), nil)
	require.NoError(t, err)
	settings, err := reopened.Repo("/repo")
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", settings.Instructions)
	require.Len(t, settings.Groups, 1)
	assert.Equal(t, saved.ID, settings.Groups[0].ID)
	assert.Equal(t, []string{"main.go"}, settings.Groups[0].Files)
	assert.True(t, saved.CreatedAt.Equal(settings.Groups[0].CreatedAt))
	assert.Equal(t, []ignore.Rule{ignore.Regex(`^gen/`, "i")}, settings.Ignore.Add)
}

func TestFileBackendMissingFile(t *testing.T) {
	doc, err := NewFileBackend(filepath.Join(t.TempDir(), "none.yaml")).Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Repos)
}

func TestFileBackendCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repos: [unterminated"), 0o644))

	_, err := Open(NewFileBackend(path), nil)
	assert.Error(t, err)
}
