package patch

import (
	"fmt"
	"os"
	"strings"

	"github.com/drengskapur/repodiff/pkg/diffxml"
	"github.com/drengskapur/repodiff/pkg/pathguard"
	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"
)

// Action describes what applying a change would do to a file.
type Action string

const (
	ActionCreate    Action = "create"
	ActionModify    Action = "modify"
	ActionUnchanged Action = "unchanged"
)

// FileDiff is the dry-run view of one change.
type FileDiff struct {
	FileName   string
	Action     Action
	Insertions int    // Lines added.
	Deletions  int    // Lines removed.
	Patch      string // diff-match-patch text patch; empty when unchanged.
}

// Preview computes what Apply would do without touching the disk.
func (a *Applier) Preview(baseDir string, cs diffxml.ChangeSet) ([]FileDiff, error) {
	dmp := diffmatchpatch.New()
	out := make([]FileDiff, 0, len(cs))

	for _, change := range cs {
		target, err := pathguard.ResolveSafe(baseDir, change.FileName)
		if err != nil {
			return nil, fmt.Errorf("preview %s: %w", change.FileName, err)
		}
		if err := pathguard.CheckParentLinks(baseDir, target); err != nil {
			return nil, fmt.Errorf("preview %s: %w", change.FileName, err)
		}

		var old string
		action := ActionModify
		data, err := os.ReadFile(target)
		switch {
		case err == nil:
			old = string(data)
		case os.IsNotExist(err):
			action = ActionCreate
		default:
			return nil, fmt.Errorf("preview %s: %w", change.FileName, err)
		}

		fd := FileDiff{FileName: change.FileName, Action: action}
		if action == ActionModify && old == change.NewContent {
			fd.Action = ActionUnchanged
			out = append(out, fd)
			continue
		}

		chars1, chars2, lines := dmp.DiffLinesToChars(old, change.NewContent)
		diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lines)
		for _, d := range diffs {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				fd.Insertions += countLines(d.Text)
			case diffmatchpatch.DiffDelete:
				fd.Deletions += countLines(d.Text)
			}
		}
		fd.Patch = dmp.PatchToText(dmp.PatchMake(old, diffs))

		a.logger.Debug("Previewed change",
			zap.String("fileName", change.FileName),
			zap.String("action", string(fd.Action)),
			zap.Int("insertions", fd.Insertions),
			zap.Int("deletions", fd.Deletions))
		out = append(out, fd)
	}

	return out, nil
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
