package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/drengskapur/repodiff/pkg/pathguard"
	"github.com/drengskapur/repodiff/pkg/prompt"
	"github.com/drengskapur/repodiff/pkg/scan"
	"github.com/drengskapur/repodiff/pkg/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type promptOptions struct {
	group            string
	instructions     string
	instructionsFile string
	diff             bool
	tree             bool
	output           string
	copy             bool
}

func newPromptCmd(a *app) *cobra.Command {
	var opts promptOptions

	cmd := &cobra.Command{
		Use:   "prompt [files...]",
		Short: "Build a prompt from selected files and instructions",
		Long: `Build a prompt from the given files, a saved group, or every file the
scan reports when neither is given. Ignored files are dropped from the
selection. With --diff the prompt asks the agent to answer in the XML
format accepted by "repodiff apply".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrompt(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.group, "group", "g", "", "use the files of a saved group")
	f.StringVarP(&opts.instructions, "instructions", "i", "", "instructions text (default: stored instructions)")
	f.StringVar(&opts.instructionsFile, "instructions-file", "", "read instructions from a file")
	f.BoolVarP(&opts.diff, "diff", "d", false, "include the XML response format instructions")
	f.BoolVar(&opts.tree, "tree", false, "include a file tree of the selection")
	f.StringVarP(&opts.output, "output", "o", "", "write the prompt to a file instead of stdout")
	f.BoolVar(&opts.copy, "copy", false, "copy the prompt to the clipboard")
	cmd.MarkFlagsMutuallyExclusive("instructions", "instructions-file")
	return cmd
}

func (a *app) runPrompt(cmd *cobra.Command, opts promptOptions, args []string) error {
	var (
		paths        []string
		instructions string
	)

	err := a.withStore(func(s *store.Store) error {
		settings, err := s.Repo(a.base)
		if err != nil {
			return err
		}
		instructions = settings.Instructions

		m, err := a.matcher(s)
		if err != nil {
			return err
		}

		switch {
		case len(args) > 0 && opts.group != "":
			return errors.New("pass either files or --group, not both")
		case len(args) > 0:
			paths, err = normalizeSelection(args)
			if err != nil {
				return err
			}
		case opts.group != "":
			g, err := s.Group(a.base, opts.group)
			if err != nil {
				return err
			}
			paths = g.Files
		default:
			paths, err = scan.NewScanner(m, a.logger).Scan(a.base)
			if err != nil {
				return err
			}
		}

		kept, removed := m.CleanSelection(paths)
		if len(removed) > 0 {
			a.logger.Warn("Dropped ignored files from the selection", zap.Strings("files", removed))
		}
		paths = kept
		return nil
	})
	if err != nil {
		return err
	}

	switch {
	case opts.instructionsFile != "":
		data, err := os.ReadFile(opts.instructionsFile)
		if err != nil {
			return fmt.Errorf("failed to read instructions file: %w", err)
		}
		instructions = string(data)
	case opts.instructions != "":
		instructions = opts.instructions
	}

	reader := scan.NewReader(scan.ReaderOptions{
		MaxFileSize: a.cfg.MaxFileSize,
		Concurrency: a.cfg.ReadConcurrency,
	}, a.logger)
	result := reader.Read(a.base, paths)

	rendered := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := result.Contents[p]; ok {
			rendered = append(rendered, p)
		}
	}
	for _, fe := range result.Errors {
		a.logger.Warn("File not included verbatim", zap.String("file", fe.Path), zap.Stringer("kind", fe.Kind), zap.Error(fe.Err))
	}

	text := prompt.Render(prompt.Request{
		Paths:            rendered,
		Contents:         result.Contents,
		Instructions:     instructions,
		DiffInstructions: opts.diff,
		Tree:             opts.tree,
	})

	if opts.copy {
		if err := clipboard.WriteAll(text); err != nil {
			return fmt.Errorf("failed to copy prompt to clipboard: %w", err)
		}
		a.logger.Info("Copied prompt to clipboard", zap.Int("files", len(rendered)), zap.Int("bytes", len(text)))
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write prompt: %w", err)
		}
		a.logger.Info("Wrote prompt", zap.String("output", opts.output), zap.Int("files", len(rendered)))
		return nil
	}
	if !opts.copy {
		fmt.Fprint(cmd.OutOrStdout(), text)
	}
	return nil
}

// normalizeSelection validates user-supplied relative paths and converts
// them to slash form.
func normalizeSelection(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	seen := make(map[string]struct{}, len(args))
	for _, arg := range args {
		p := filepath.ToSlash(filepath.Clean(strings.ReplaceAll(arg, `\`, "/")))
		if err := pathguard.CheckRelative(p); err != nil {
			return nil, err
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}
