package cmd

import (
	"fmt"

	"github.com/drengskapur/repodiff/pkg/version"
	"github.com/spf13/cobra"
)

// newVersionCmd prints build information. It skips config loading so it
// works even with a broken config file.
func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display the version of repodiff",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := version.Get()
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), v.Version)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.String())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print the version number only")
	return cmd
}
