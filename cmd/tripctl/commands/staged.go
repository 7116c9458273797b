package commands

import (
	"fmt"

	"github.com/benvon/trip-planner/internal/planner"
	"github.com/spf13/cobra"
)

// NewStagedCmd creates the staged command with list and remove subcommands
func NewStagedCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staged",
		Short: "Manage places staged for a future trip",
	}
	cmd.AddCommand(newStagedListCmd(opts))
	cmd.AddCommand(newStagedRemoveCmd(opts))
	return cmd
}

func newStagedListCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staged places",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeStore, err := opts.openPlanner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			places := p.Staging().All()
			out := cmd.OutOrStdout()
			if len(places) == 0 {
				fmt.Fprintln(out, "No staged places")
				return nil
			}
			for _, place := range places {
				fmt.Fprintf(out, "%s  %s  [%s]  %s\n", place.ID, place.Name, place.ResolvedCategory(), place.Address)
			}
			return nil
		},
	}
}

func newStagedRemoveCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <place-id>",
		Short: "Remove a place from staging",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeStore, err := opts.openPlanner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			res, removed := p.Unstage(cmd.Context(), args[0])
			if !removed {
				return fmt.Errorf("place %s: %w", args[0], planner.ErrPlaceNotStaged)
			}
			if err := saved("staging", planner.Writes{res}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed staged place %s\n", args[0])
			return nil
		},
	}
}
