package patch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/drengskapur/repodiff/pkg/diffxml"
	"github.com/drengskapur/repodiff/pkg/pathguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview(t *testing.T) {
	base := t.TempDir()
	writeTestFile(t, filepath.Join(base, "same.txt"), "same\n")
	writeTestFile(t, filepath.Join(base, "edit.txt"), "one\ntwo\nthree\n")

	cs := diffxml.ChangeSet{
		{FileName: "same.txt", NewContent: "same\n"},
		{FileName: "edit.txt", NewContent: "one\n2\nthree\nfour\n"},
		{FileName: "new.txt", NewContent: "a\nb"},
	}

	diffs, err := NewApplier(nil).Preview(base, cs)
	require.NoError(t, err)
	require.Len(t, diffs, 3)

	assert.Equal(t, ActionUnchanged, diffs[0].Action)
	assert.Empty(t, diffs[0].Patch)

	assert.Equal(t, ActionModify, diffs[1].Action)
	assert.Equal(t, 2, diffs[1].Insertions)
	assert.Equal(t, 1, diffs[1].Deletions)
	assert.NotEmpty(t, diffs[1].Patch)

	assert.Equal(t, ActionCreate, diffs[2].Action)
	assert.Equal(t, 2, diffs[2].Insertions)
	assert.Equal(t, 0, diffs[2].Deletions)

	assert.Equal(t, "one\ntwo\nthree\n", readTestFile(t, filepath.Join(base, "edit.txt")), "preview must not write")
}

func TestPreviewRejectsTraversal(t *testing.T) {
	_, err := NewApplier(nil).Preview(t.TempDir(), diffxml.ChangeSet{{FileName: "../x", NewContent: ""}})
	assert.ErrorIs(t, err, pathguard.ErrPathTraversal)
}

func TestPreviewRejectsSymlinkedParent(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	writeTestFile(t, filepath.Join(outside, "secret.txt"), "secret")
	if err := os.Symlink(outside, filepath.Join(base, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	diffs, err := NewApplier(nil).Preview(base, diffxml.ChangeSet{{FileName: "link/secret.txt", NewContent: "x"}})
	assert.Nil(t, diffs)
	assert.ErrorIs(t, err, pathguard.ErrPathTraversal)
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(""))
	assert.Equal(t, 1, countLines("a"))
	assert.Equal(t, 1, countLines("a\n"))
	assert.Equal(t, 2, countLines("a\nb"))
}
