package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/2beens/fittrack/internal/tracker"

	"github.com/spf13/cobra"
)

func (a *App) historyCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "history ID",
		Short: "Show the daily records of an exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.tracker.QueryHistory(cmd.Context(), args[0], days)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no records in the last %d days\n", days)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tCOMPLETED\tREPETITIONS")
			for _, record := range records {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", record.Date, record.Completed, record.Repetitions)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", tracker.DefaultWindowDays, "window size in days")
	return cmd
}

func (a *App) statsCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "stats ID",
		Short: "Show statistics of an exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.tracker.ExerciseStatistics(cmd.Context(), args[0], days)
			if err != nil {
				return err
			}

			bestDay := "-"
			if stats.BestDay.Date != nil {
				bestDay = fmt.Sprintf("%s (%d)", *stats.BestDay.Date, stats.BestDay.Completed)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "days\t%d\n", stats.TotalDays)
			fmt.Fprintf(tw, "active days\t%d\n", stats.ActiveDays)
			fmt.Fprintf(tw, "completed\t%d\n", stats.TotalCompleted)
			fmt.Fprintf(tw, "repetitions\t%d\n", stats.TotalRepetitions)
			fmt.Fprintf(tw, "avg completed / day\t%s\n", stats.AverageCompletedPerDay)
			fmt.Fprintf(tw, "avg repetitions / day\t%s\n", stats.AverageRepetitionsPerDay)
			fmt.Fprintf(tw, "best day\t%s\n", bestDay)
			fmt.Fprintf(tw, "streak\t%d\n", stats.Streak)
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", tracker.DefaultWindowDays, "window size in days")
	return cmd
}

func (a *App) summaryCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show statistics over all exercises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.tracker.ConsolidatedStatistics(cmd.Context(), days)
			if err != nil {
				return err
			}

			best := "-"
			if stats.BestExercise.Name != nil {
				best = fmt.Sprintf("%s (%d)", *stats.BestExercise.Name, stats.BestExercise.Completed)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "completed\t%d\n", stats.TotalExercises)
			fmt.Fprintf(tw, "repetitions\t%d\n", stats.TotalRepetitions)
			fmt.Fprintf(tw, "active days\t%d\n", stats.TotalActiveDays)
			fmt.Fprintf(tw, "avg completed / day\t%s\n", stats.AverageExercisesPerDay)
			fmt.Fprintf(tw, "avg repetitions / day\t%s\n", stats.AverageRepetitionsPerDay)
			fmt.Fprintf(tw, "best exercise\t%s\n", best)
			fmt.Fprintf(tw, "streak\t%d\n", stats.OverallStreak)
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", tracker.DefaultWindowDays, "window size in days")
	return cmd
}
