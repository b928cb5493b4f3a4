package cmd

import (
	"fmt"
	"strconv"

	"github.com/drengskapur/repodiff/pkg/store"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newGroupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage saved file groups",
	}
	cmd.AddCommand(newGroupListCmd(a), newGroupSaveCmd(a), newGroupDeleteCmd(a))
	return cmd
}

func newGroupListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(s *store.Store) error {
				groups, err := s.Groups(a.base)
				if err != nil {
					return err
				}
				if len(groups) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No saved groups.")
					return nil
				}

				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.SetHeader([]string{"Name", "Files", "Updated", "ID"})
				table.SetBorder(false)
				table.SetCenterSeparator("")
				table.SetAutoFormatHeaders(false)
				for _, g := range groups {
					table.Append([]string{g.Name, strconv.Itoa(len(g.Files)), g.UpdatedAt.Format("2006-01-02 15:04"), g.ID})
				}
				table.Render()
				return nil
			})
		},
	}
}

func newGroupSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save NAME FILES...",
		Short: "Save or replace a named file group",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := normalizeSelection(args[1:])
			if err != nil {
				return err
			}
			return a.withStore(func(s *store.Store) error {
				g, err := s.SaveGroup(a.base, args[0], files)
				if err != nil {
					return err
				}
				a.logger.Debug("Saved group", zap.String("id", g.ID))
				fmt.Fprintf(cmd.OutOrStdout(), "Saved group %q with %d files.\n", g.Name, len(g.Files))
				return nil
			})
		},
	}
}

func newGroupDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a saved group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				if err := s.DeleteGroup(a.base, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted group %q.\n", args[0])
				return nil
			})
		},
	}
}

func newCleanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean GROUP",
		Short: "Remove ignored files from a saved group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				g, err := s.Group(a.base, args[0])
				if err != nil {
					return err
				}
				m, err := a.matcher(s)
				if err != nil {
					return err
				}

				kept, removed := m.CleanSelection(g.Files)
				out := cmd.OutOrStdout()
				if len(removed) == 0 {
					fmt.Fprintf(out, "Group %q is already clean.\n", g.Name)
					return nil
				}
				if _, err := s.SetGroupFiles(a.base, g.Name, kept); err != nil {
					return err
				}
				for _, f := range removed {
					fmt.Fprintf(out, "removed %s\n", f)
				}
				fmt.Fprintf(out, "Group %q now has %d files.\n", g.Name, len(kept))
				return nil
			})
		},
	}
}
