package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/2beens/fittrack/internal/tracker"

	"github.com/spf13/cobra"
)

type counterStepFunc func(ctx context.Context, id string, field tracker.Field, amount int) (int, error)

func (a *App) counterStepCmd(use, short string, step func() counterStepFunc) *cobra.Command {
	var amount int
	cmd := &cobra.Command{
		Use:   use + " ID [completed|repetitions]",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field := tracker.FieldCompleted
			if len(args) == 2 {
				var err error
				if field, err = tracker.ParseField(args[1]); err != nil {
					return err
				}
			}
			value, err := step()(cmd.Context(), args[0], field, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d\n", args[0], field, value)
			return nil
		},
	}
	cmd.Flags().IntVarP(&amount, "amount", "n", 1, "step size")
	return cmd
}

func (a *App) incCmd() *cobra.Command {
	return a.counterStepCmd("inc", "Increment a counter of today", func() counterStepFunc {
		return a.tracker.Increment
	})
}

func (a *App) decCmd() *cobra.Command {
	return a.counterStepCmd("dec", "Decrement a counter of today", func() counterStepFunc {
		return a.tracker.Decrement
	})
}

func (a *App) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set ID completed|repetitions VALUE",
		Short: "Set a counter of today to an exact value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := tracker.ParseField(args[1])
			if err != nil {
				return err
			}
			value, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[2], err)
			}
			value, err = a.tracker.SetField(cmd.Context(), args[0], field, value)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d\n", args[0], field, value)
			return nil
		},
	}
}

func (a *App) todayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's totals over all exercises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			totals, err := a.tracker.TodayTotals(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exercises: %d\ncompleted: %d\nrepetitions: %d\n",
				totals.Exercises, totals.Completed, totals.Repetitions,
			)
			return nil
		},
	}
}
