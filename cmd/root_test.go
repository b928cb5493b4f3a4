package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/drengskapur/repodiff/pkg/diffxml"
	"github.com/drengskapur/repodiff/pkg/pathguard"
	"github.com/drengskapur/repodiff/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	repo   string
	config string
}

func newTestEnv(t *testing.T, files map[string]string) testEnv {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	repo := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(repo, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	cfgDir := t.TempDir()
	cfgPath := filepath.Join(cfgDir, "config.yaml")
	cfg := "store_path: " + filepath.ToSlash(filepath.Join(cfgDir, "store.yaml")) + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	return testEnv{repo: repo, config: cfgPath}
}

func (e testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(&app{logger: zap.NewNop()})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.config, "--dir", e.repo}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e testEnv) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.repo, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestScanCommand(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"src/a.ts":                "a",
		"node_modules/x/index.js": "x",
		".git/HEAD":               "ref",
		"README.md":               "r",
	})

	out, err := env.run(t, "", "scan")
	require.NoError(t, err)
	assert.Equal(t, "README.md\nsrc/a.ts\n", out)

	out, err = env.run(t, "", "scan", "--tree")
	require.NoError(t, err)
	assert.Equal(t, "├── src/\n│   └── a.ts\n└── README.md\n", out)
}

func TestPromptCommand(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"src/a.go": "package a\n",
		"b.txt":    "bee",
	})

	out, err := env.run(t, "", "prompt", "src/a.go", "b.txt", "-i", "rename a", "--diff")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<xml_formatting_instructions>\n"))
	assert.Contains(t, out, "File: src/a.go\n```go\npackage a\n```\n\n")
	assert.Contains(t, out, "File: b.txt\n```\nbee\n```\n\n")
	assert.True(t, strings.HasSuffix(out, "<user_instructions>\nrename a\n</user_instructions>\n"))
	assert.Less(t, strings.Index(out, "File: src/a.go"), strings.Index(out, "File: b.txt"))
}

func TestPromptCommandWritesOutputFile(t *testing.T) {
	env := newTestEnv(t, map[string]string{"a.go": "package a\n"})
	output := filepath.Join(t.TempDir(), "prompt.txt")

	out, err := env.run(t, "", "prompt", "a.go", "-o", output)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "File: a.go")
}

func TestPromptCommandRejectsTraversal(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.run(t, "", "prompt", "../outside.go")
	assert.ErrorIs(t, err, pathguard.ErrPathTraversal)
}

func TestPromptUsesStoredInstructions(t *testing.T) {
	env := newTestEnv(t, map[string]string{"a.go": "package a\n"})

	_, err := env.run(t, "", "instructions", "add", "tests")
	require.NoError(t, err)

	out, err := env.run(t, "", "instructions")
	require.NoError(t, err)
	assert.Equal(t, "add tests\n", out)

	out, err = env.run(t, "", "prompt", "a.go")
	require.NoError(t, err)
	assert.Contains(t, out, "<user_instructions>\nadd tests\n</user_instructions>\n")

	_, err = env.run(t, "", "instructions", "--clear")
	require.NoError(t, err)
	out, err = env.run(t, "", "instructions")
	require.NoError(t, err)
	assert.Equal(t, "\n", out)
}

func TestApplyCommand(t *testing.T) {
	env := newTestEnv(t, map[string]string{"src/a.go": "package a\n"})
	doc := diffxml.Serialize(diffxml.ChangeSet{
		{FileName: "src/a.go", NewContent: "package a\n\nfunc A() {}\n"},
		{FileName: "src/b.go", NewContent: "package a\n"},
	})

	out, err := env.run(t, doc, "apply", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "src/a.go")
	assert.Contains(t, out, "modify")
	assert.Contains(t, out, "create")
	assert.Equal(t, "package a\n", env.read(t, "src/a.go"))
	assert.NoFileExists(t, filepath.Join(env.repo, "src", "b.go"))

	out, err = env.run(t, doc, "apply")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 files.")
	assert.Equal(t, "package a\n\nfunc A() {}\n", env.read(t, "src/a.go"))
	assert.Equal(t, "package a\n", env.read(t, "src/b.go"))
}

func TestApplyCommandShowDiff(t *testing.T) {
	env := newTestEnv(t, map[string]string{"a.txt": "one\ntwo\n"})
	doc := `<file name="a.txt"><replace>one
2
</replace></file>`

	out, err := env.run(t, doc, "apply", "--dry-run", "--show-diff")
	require.NoError(t, err)
	assert.Contains(t, out, "--- a.txt\n@@ -")
	assert.Equal(t, "one\ntwo\n", env.read(t, "a.txt"))

	flag := newApplyCmd(&app{}).Flags().Lookup("show-diff")
	require.NotNil(t, flag)
	assert.Contains(t, flag.Usage, "diff-match-patch")
}

func TestApplyCommandFromFile(t *testing.T) {
	env := newTestEnv(t, nil)
	input := filepath.Join(t.TempDir(), "reply.xml")
	require.NoError(t, os.WriteFile(input, []byte(`<file name="x.txt"><replace>x</replace></file>`), 0o644))

	_, err := env.run(t, "", "apply", "--input", input)
	require.NoError(t, err)
	assert.Equal(t, "x", env.read(t, "x.txt"))
}

func TestApplyCommandRejectsBadDocument(t *testing.T) {
	env := newTestEnv(t, map[string]string{"ok.txt": "old"})
	doc := `<root>
  <file name="ok.txt"><replace>new</replace></file>
  <file name="../../etc/passwd"><replace>x</replace></file>
</root>`

	_, err := env.run(t, doc, "apply")
	assert.ErrorIs(t, err, diffxml.ErrPathTraversal)
	assert.Equal(t, "old", env.read(t, "ok.txt"))
}

func TestApplyCommandEmptyInput(t *testing.T) {
	env := newTestEnv(t, nil)
	out, err := env.run(t, "  \n", "apply")
	require.NoError(t, err)
	assert.Equal(t, "No changes.\n", out)
}

func TestGroupCommands(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"a.go":              "package a\n",
		"node_modules/x.js": "x",
	})

	out, err := env.run(t, "", "group", "list")
	require.NoError(t, err)
	assert.Equal(t, "No saved groups.\n", out)

	out, err = env.run(t, "", "group", "save", "core", "a.go", "node_modules/x.js")
	require.NoError(t, err)
	assert.Equal(t, "Saved group \"core\" with 2 files.\n", out)

	out, err = env.run(t, "", "group", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "core")

	out, err = env.run(t, "", "clean", "core")
	require.NoError(t, err)
	assert.Contains(t, out, "removed node_modules/x.js")
	assert.Contains(t, out, "now has 1 files")

	out, err = env.run(t, "", "clean", "core")
	require.NoError(t, err)
	assert.Contains(t, out, "already clean")

	out, err = env.run(t, "", "prompt", "--group", "core")
	require.NoError(t, err)
	assert.Contains(t, out, "File: a.go")
	assert.NotContains(t, out, "node_modules")

	_, err = env.run(t, "", "group", "delete", "core")
	require.NoError(t, err)
	_, err = env.run(t, "", "group", "delete", "core")
	assert.Error(t, err)
}

func TestRulesCommand(t *testing.T) {
	env := newTestEnv(t, nil)
	out, err := env.run(t, "", "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "node_modules")
	assert.Contains(t, out, "literal")
	assert.Contains(t, out, "regex")
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t, nil)
	out, err := env.run(t, "", "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version.Get().Version+"\n", out)
}

func TestPromptUser(t *testing.T) {
	var out bytes.Buffer
	ok, err := promptUser(strings.NewReader("Yes\n"), &out, "continue? ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "continue? ", out.String())

	ok, err = promptUser(strings.NewReader("n"), &out, "")
	require.NoError(t, err)
	assert.False(t, ok)
}
