package cmd

import (
	"fmt"
	"strings"

	"github.com/drengskapur/repodiff/pkg/ignore"
	"github.com/drengskapur/repodiff/pkg/store"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newInstructionsCmd(a *app) *cobra.Command {
	var clearFlag bool

	cmd := &cobra.Command{
		Use:   "instructions [TEXT...]",
		Short: "Show or set the stored instructions for this repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				switch {
				case clearFlag:
					return s.SetInstructions(a.base, "")
				case len(args) > 0:
					return s.SetInstructions(a.base, strings.Join(args, " "))
				}

				settings, err := s.Repo(a.base)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), settings.Instructions)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearFlag, "clear", false, "remove the stored instructions")
	return cmd
}

func newRulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the effective ignore rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(s *store.Store) error {
				o, err := a.overrides(s)
				if err != nil {
					return err
				}

				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.SetHeader([]string{"Pattern", "Type", "Flags"})
				table.SetBorder(false)
				table.SetCenterSeparator("")
				table.SetAutoFormatHeaders(false)
				table.SetAutoWrapText(false)
				for _, r := range ignore.Merge(ignore.DefaultRules(), o) {
					kind := "literal"
					if r.Regex {
						kind = "regex"
					}
					table.Append([]string{r.Pattern, kind, r.Flags})
				}
				table.Render()
				return nil
			})
		},
	}
}
