package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/drengskapur/repodiff/pkg/diffxml"
	"github.com/drengskapur/repodiff/pkg/patch"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type applyOptions struct {
	input     string
	clipboard bool
	dryRun    bool
	showDiff  bool
	yes       bool
}

func newApplyCmd(a *app) *cobra.Command {
	var opts applyOptions

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply an agent's XML reply to the repository",
		Long: `Parse an XML document of <file name="..."><replace>...</replace></file>
entries and replace each named file with its new contents. The document is
read from stdin unless --input or --clipboard is given. The whole document is
validated before anything is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runApply(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "f", "", "read the document from a file")
	f.BoolVar(&opts.clipboard, "clipboard", false, "read the document from the clipboard")
	f.BoolVarP(&opts.dryRun, "dry-run", "n", false, "show what would change without writing")
	f.BoolVar(&opts.showDiff, "show-diff", false, "print the diff-match-patch text patch of every change")
	f.BoolVarP(&opts.yes, "yes", "y", false, "do not ask for confirmation")
	cmd.MarkFlagsMutuallyExclusive("input", "clipboard")
	return cmd
}

func (a *app) runApply(cmd *cobra.Command, opts applyOptions) error {
	doc, fromStdin, err := readDocument(cmd, opts)
	if err != nil {
		return err
	}

	cs, err := diffxml.Parse(doc)
	if err != nil {
		return fmt.Errorf("rejected diff document: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(cs) == 0 {
		fmt.Fprintln(out, "No changes.")
		return nil
	}

	applier := patch.NewApplier(a.logger)
	diffs, err := applier.Preview(a.base, cs)
	if err != nil {
		return err
	}
	renderPreview(out, diffs)
	if opts.showDiff {
		for _, d := range diffs {
			if d.Patch != "" {
				fmt.Fprintf(out, "--- %s\n%s", d.FileName, d.Patch)
			}
		}
	}

	if opts.dryRun {
		return nil
	}

	if !opts.yes && !fromStdin && term.IsTerminal(int(os.Stdin.Fd())) {
		ok, err := promptUser(cmd.InOrStdin(), out, fmt.Sprintf("Write %d files? (y/n): ", len(cs)))
		if err != nil {
			return fmt.Errorf("failed to read user input: %w", err)
		}
		if !ok {
			a.logger.Info("Apply cancelled")
			return nil
		}
	}

	written, err := applier.Apply(a.base, cs)
	if err != nil {
		var applyErr *patch.ApplyError
		if errors.As(err, &applyErr) && applyErr.Partial() {
			a.logger.Error("Apply stopped after a partial write",
				zap.Strings("written", applyErr.Written),
				zap.String("failed", applyErr.Failed))
		}
		return err
	}

	fmt.Fprintf(out, "Wrote %d files.\n", len(written))
	return nil
}

func readDocument(cmd *cobra.Command, opts applyOptions) (doc string, fromStdin bool, err error) {
	switch {
	case opts.clipboard:
		doc, err = clipboard.ReadAll()
		if err != nil {
			return "", false, fmt.Errorf("failed to read clipboard: %w", err)
		}
		return doc, false, nil
	case opts.input != "" && opts.input != "-":
		data, err := os.ReadFile(opts.input)
		if err != nil {
			return "", false, fmt.Errorf("failed to read input: %w", err)
		}
		return string(data), false, nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", true, fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), true, nil
	}
}

func renderPreview(w io.Writer, diffs []patch.FileDiff) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Action", "+", "-"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})

	for _, d := range diffs {
		table.Append([]string{d.FileName, string(d.Action), strconv.Itoa(d.Insertions), strconv.Itoa(d.Deletions)})
	}
	table.Render()
}

// promptUser writes message and reads a y/yes answer, case-insensitively.
func promptUser(in io.Reader, out io.Writer, message string) (bool, error) {
	fmt.Fprint(out, message)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
