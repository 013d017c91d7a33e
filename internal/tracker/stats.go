package tracker

import (
	"context"
	"fmt"
	"math/big"

	"github.com/2beens/fittrack/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

type BestDay struct {
	// nil when no day in the window had completed > 0
	Date      *string `json:"date"`
	Completed int     `json:"completed"`
}

type ExerciseStats struct {
	TotalDays                int     `json:"totalDays"`
	TotalCompleted           int     `json:"totalCompleted"`
	TotalRepetitions         int     `json:"totalRepetitions"`
	AverageCompletedPerDay   string  `json:"averageCompletedPerDay"`
	AverageRepetitionsPerDay string  `json:"averageRepetitionsPerDay"`
	BestDay                  BestDay `json:"bestDay"`
	Streak                   int     `json:"streak"`
	ActiveDays               int     `json:"activeDays"`
}

type BestExercise struct {
	ID        *string `json:"id"`
	Name      *string `json:"name"`
	Completed int     `json:"completed"`
}

type ConsolidatedStats struct {
	// sum of completed over all exercises in the window
	TotalExercises           int            `json:"totalExercises"`
	TotalRepetitions         int            `json:"totalRepetitions"`
	TotalActiveDays          int            `json:"totalActiveDays"`
	ExerciseBreakdown        map[string]int `json:"exerciseBreakdown"`
	BestExercise             BestExercise   `json:"bestExercise"`
	OverallStreak            int            `json:"overallStreak"`
	AverageExercisesPerDay   string         `json:"averageExercisesPerDay"`
	AverageRepetitionsPerDay string         `json:"averageRepetitionsPerDay"`
}

// formatAverage renders total/count with one decimal. Rounding follows the
// exact binary value of the float average, ties going up, so 7/20 gives
// "0.3" and 1/4 gives "0.3". A zero count renders as "0.0".
func formatAverage(total, count int) string {
	if count <= 0 || total <= 0 {
		return "0.0"
	}
	scaled := new(big.Rat).SetFloat64(float64(total) / float64(count))
	scaled.Mul(scaled, big.NewRat(10, 1))
	tenths := new(big.Int).Quo(scaled.Num(), scaled.Denom())
	remainder := new(big.Rat).Sub(scaled, new(big.Rat).SetInt(tenths))
	if remainder.Cmp(big.NewRat(1, 2)) >= 0 {
		tenths.Add(tenths, big.NewInt(1))
	}
	t := tenths.Int64()
	return fmt.Sprintf("%d.%d", t/10, t%10)
}

// ExerciseStatistics aggregates an exercise's history over the window.
// The streak always looks at the full history.
func (t *Tracker) ExerciseStatistics(ctx context.Context, id string, windowDays int) (_ ExerciseStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.exercise_statistics")
	span.SetAttributes(
		attribute.String("exercise.id", id),
		attribute.Int("window.days", windowDays),
	)
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mutex.Lock()
	defer t.mutex.Unlock()

	exercises, _, err := t.repo.exercises(ctx)
	if err != nil {
		return ExerciseStats{}, err
	}
	if _, ok := exercises[id]; !ok {
		return ExerciseStats{}, ErrExerciseNotFound
	}
	history, _, err := t.repo.history(ctx)
	if err != nil {
		return ExerciseStats{}, err
	}

	return t.exerciseStats(history[id], windowDays), nil
}

func (t *Tracker) exerciseStats(records []HistoryRecord, windowDays int) ExerciseStats {
	windowed := t.window(records, windowDays)

	stats := ExerciseStats{
		TotalDays: len(windowed),
		Streak:    t.exerciseStreak(records),
	}
	for _, rec := range windowed {
		stats.TotalCompleted += rec.Completed
		stats.TotalRepetitions += rec.Repetitions
		if rec.Completed > 0 {
			stats.ActiveDays++
		}
		if rec.Completed > stats.BestDay.Completed {
			date := rec.Date
			stats.BestDay = BestDay{
				Date:      &date,
				Completed: rec.Completed,
			}
		}
	}
	stats.AverageCompletedPerDay = formatAverage(stats.TotalCompleted, stats.TotalDays)
	stats.AverageRepetitionsPerDay = formatAverage(stats.TotalRepetitions, stats.TotalDays)

	return stats
}

// exerciseStreak walks the history most recent first, expecting the i-th
// record to be dated today-i. A gap or a day with nothing completed ends it.
func (t *Tracker) exerciseStreak(records []HistoryRecord) int {
	streak := 0
	for i, rec := range sortedDesc(records) {
		expected := formatDate(t.daysAgo(i))
		if rec.Date != expected {
			break
		}
		if rec.Completed <= 0 {
			break
		}
		streak++
	}
	return streak
}

// ConsolidatedStatistics aggregates all exercises over the window.
func (t *Tracker) ConsolidatedStatistics(ctx context.Context, windowDays int) (_ ConsolidatedStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.consolidated_statistics")
	span.SetAttributes(attribute.Int("window.days", windowDays))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mutex.Lock()
	defer t.mutex.Unlock()

	exercises, _, err := t.repo.exercises(ctx)
	if err != nil {
		return ConsolidatedStats{}, err
	}
	history, _, err := t.repo.history(ctx)
	if err != nil {
		return ConsolidatedStats{}, err
	}

	return t.consolidatedStats(exercises, history, windowDays), nil
}

func (t *Tracker) consolidatedStats(exercises Exercises, history History, windowDays int) ConsolidatedStats {
	consolidated := ConsolidatedStats{
		ExerciseBreakdown: make(map[string]int, len(exercises)),
	}

	// active dates over the full history, not just the window
	activeDates := make(map[string]struct{})
	for _, id := range exercises.SortedIDs() {
		stats := t.exerciseStats(history[id], windowDays)
		consolidated.TotalExercises += stats.TotalCompleted
		consolidated.TotalRepetitions += stats.TotalRepetitions
		consolidated.ExerciseBreakdown[id] = stats.TotalCompleted

		if stats.TotalCompleted > consolidated.BestExercise.Completed {
			exID, name := id, exercises[id].Name
			consolidated.BestExercise = BestExercise{
				ID:        &exID,
				Name:      &name,
				Completed: stats.TotalCompleted,
			}
		}

		for _, rec := range history[id] {
			if rec.Completed > 0 {
				activeDates[rec.Date] = struct{}{}
			}
		}
	}

	consolidated.TotalActiveDays = len(activeDates)
	consolidated.OverallStreak = t.overallStreak(activeDates)
	consolidated.AverageExercisesPerDay = formatAverage(consolidated.TotalExercises, consolidated.TotalActiveDays)
	consolidated.AverageRepetitionsPerDay = formatAverage(consolidated.TotalRepetitions, consolidated.TotalActiveDays)

	return consolidated
}

// overallStreak counts consecutive days back from today on which any
// exercise was active, looking at most a year back.
func (t *Tracker) overallStreak(activeDates map[string]struct{}) int {
	streak := 0
	for i := 0; i < HistoryRetentionDays; i++ {
		if _, active := activeDates[formatDate(t.daysAgo(i))]; !active {
			break
		}
		streak++
	}
	return streak
}
