package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *App) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List exercises with today's counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exercises, err := a.tracker.ListExercises(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tICON\tCOMPLETED\tREPETITIONS\tDEFAULT")
			for _, ex := range exercises {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%t\n",
					ex.ID, ex.Name, ex.Icon, ex.Completed, ex.Repetitions, ex.IsDefault,
				)
			}
			return tw.Flush()
		},
	}
}

func (a *App) addCmd() *cobra.Command {
	var color, icon string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a custom exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.tracker.AddExercise(cmd.Context(), args[0], color, icon)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added exercise %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "display color, e.g. #00ff00")
	cmd.Flags().StringVar(&icon, "icon", "", "display icon")
	return cmd
}

func (a *App) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a custom exercise and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tracker.RemoveExercise(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed exercise %s\n", args[0])
			return nil
		},
	}
}

func (a *App) renameCmd() *cobra.Command {
	var color, icon string
	cmd := &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Change an exercise's name, color or icon",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := a.tracker.UpdateExerciseDetails(cmd.Context(), args[0], args[1], color, icon)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s %s\n", ex.ID, ex.Icon, ex.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "new color, empty keeps the current one")
	cmd.Flags().StringVar(&icon, "icon", "", "new icon, empty keeps the current one")
	return cmd
}
