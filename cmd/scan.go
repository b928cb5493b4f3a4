package cmd

import (
	"fmt"

	"github.com/drengskapur/repodiff/pkg/prompt"
	"github.com/drengskapur/repodiff/pkg/scan"
	"github.com/drengskapur/repodiff/pkg/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newScanCmd(a *app) *cobra.Command {
	var tree bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List candidate files that are not ignored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := a.scanFiles()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if tree {
				fmt.Fprint(out, prompt.Tree(files))
				return nil
			}
			for _, f := range files {
				fmt.Fprintln(out, f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&tree, "tree", false, "print the files as a tree")
	return cmd
}

func (a *app) scanFiles() ([]string, error) {
	var files []string
	err := a.withStore(func(s *store.Store) error {
		m, err := a.matcher(s)
		if err != nil {
			return err
		}
		files, err = scan.NewScanner(m, a.logger).Scan(a.base)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Scanned repository", zap.Int("files", len(files)))
	return files, nil
}
