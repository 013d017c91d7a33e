package tracker_test

import (
	"context"
	"testing"

	"github.com/2beens/fittrack/internal/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExerciseStatistics_Streak(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)

	require.NoError(t, tr.SaveHistory(ctx, tracker.History{
		"flexao": {
			record(daysAgo(3), 0, 2),
			record(daysAgo(2), 4, 1),
			record(daysAgo(1), 6, 3),
			record(daysAgo(0), 2, 0),
			record(daysAgo(4), 9, 0),
		},
	}))

	stats, err := tr.ExerciseStatistics(ctx, "flexao", 30)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Streak)
	assert.Equal(t, 5, stats.TotalDays)
	assert.Equal(t, 21, stats.TotalCompleted)
	assert.Equal(t, 6, stats.TotalRepetitions)
	assert.Equal(t, 4, stats.ActiveDays)
	assert.Equal(t, "4.2", stats.AverageCompletedPerDay)
	assert.Equal(t, "1.2", stats.AverageRepetitionsPerDay)
	require.NotNil(t, stats.BestDay.Date)
	assert.Equal(t, daysAgo(4), *stats.BestDay.Date)
	assert.Equal(t, 9, stats.BestDay.Completed)

	// the streak ignores the window
	stats, err = tr.ExerciseStatistics(ctx, "flexao", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Streak)
	assert.Equal(t, 1, stats.TotalDays)
}

func TestExerciseStatistics_StreakBreaksOnGap(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)

	require.NoError(t, tr.SaveHistory(ctx, tracker.History{
		"flexao": {
			record(daysAgo(0), 1, 0),
			record(daysAgo(2), 1, 0),
			record(daysAgo(3), 1, 0),
		},
		// nothing today, no streak
		"barra": {
			record(daysAgo(1), 5, 0),
			record(daysAgo(2), 5, 0),
		},
	}))

	stats, err := tr.ExerciseStatistics(ctx, "flexao", 30)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Streak)

	stats, err = tr.ExerciseStatistics(ctx, "barra", 30)
	require.NoError(t, err)
	assert.Zero(t, stats.Streak)
}

func TestExerciseStatistics_EmptyWindow(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)

	require.NoError(t, tr.SaveHistory(ctx, tracker.History{
		"barra": {record(daysAgo(100), 5, 0)},
	}))

	stats, err := tr.ExerciseStatistics(ctx, "barra", 30)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDays)
	assert.Equal(t, "0.0", stats.AverageCompletedPerDay)
	assert.Equal(t, "0.0", stats.AverageRepetitionsPerDay)
	assert.Nil(t, stats.BestDay.Date)
	assert.Zero(t, stats.BestDay.Completed)

	stats, err = tr.ExerciseStatistics(ctx, "flexao", 30)
	require.NoError(t, err)
	assert.Equal(t, "0.0", stats.AverageCompletedPerDay)

	_, err = tr.ExerciseStatistics(ctx, "missing", 30)
	assert.ErrorIs(t, err, tracker.ErrExerciseNotFound)
}

func TestExerciseStatistics_AverageRounding(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)

	require.NoError(t, tr.SaveHistory(ctx, tracker.History{
		// 10 / 4 = 2.5, 1 / 4 = 0.25 -> 0.3
		"flexao": {
			record(daysAgo(0), 4, 1),
			record(daysAgo(1), 3, 0),
			record(daysAgo(2), 2, 0),
			record(daysAgo(3), 1, 0),
		},
		// 2 / 3 = 0.666 -> 0.7
		"barra": {
			record(daysAgo(0), 1, 0),
			record(daysAgo(1), 1, 0),
			record(daysAgo(2), 0, 0),
		},
	}))

	stats, err := tr.ExerciseStatistics(ctx, "flexao", 30)
	require.NoError(t, err)
	assert.Equal(t, "2.5", stats.AverageCompletedPerDay)
	assert.Equal(t, "0.3", stats.AverageRepetitionsPerDay)

	stats, err = tr.ExerciseStatistics(ctx, "barra", 30)
	require.NoError(t, err)
	assert.Equal(t, "0.7", stats.AverageCompletedPerDay)
}

func TestExerciseStatistics_AverageFollowsFloatValue(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)

	// 7 / 20 is stored as 0.34999..., so it renders as 0.3
	records := make([]tracker.HistoryRecord, 0, 20)
	for i := 0; i < 20; i++ {
		completed := 0
		if i < 7 {
			completed = 1
		}
		records = append(records, record(daysAgo(i), completed, 0))
	}
	require.NoError(t, tr.SaveHistory(ctx, tracker.History{"agachamento": records}))

	stats, err := tr.ExerciseStatistics(ctx, "agachamento", 30)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.TotalDays)
	assert.Equal(t, 7, stats.TotalCompleted)
	assert.Equal(t, "0.3", stats.AverageCompletedPerDay)
}

func TestConsolidatedStatistics(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)

	require.NoError(t, tr.SaveHistory(ctx, tracker.History{
		"abdominal": {
			record(daysAgo(0), 5, 2),
			record(daysAgo(1), 4, 1),
			record(daysAgo(2), 3, 0),
			// outside the window but still an active day
			record(daysAgo(40), 6, 0),
		},
		"barra": {
			record(daysAgo(0), 7, 1),
			record(daysAgo(5), 0, 0),
		},
	}))

	stats, err := tr.ConsolidatedStatistics(ctx, 30)
	require.NoError(t, err)

	assert.Equal(t, 19, stats.TotalExercises)
	assert.Equal(t, 4, stats.TotalRepetitions)
	require.NotNil(t, stats.BestExercise.ID)
	assert.Equal(t, "abdominal", *stats.BestExercise.ID)
	require.NotNil(t, stats.BestExercise.Name)
	assert.Equal(t, "Abdominais", *stats.BestExercise.Name)
	assert.Equal(t, 12, stats.BestExercise.Completed)
	assert.Equal(t, map[string]int{
		"abdominal":   12,
		"agachamento": 0,
		"barra":       7,
		"flexao":      0,
	}, stats.ExerciseBreakdown)
	assert.Equal(t, 4, stats.TotalActiveDays)
	assert.Equal(t, 3, stats.OverallStreak)
	// 19 / 4, 4 / 4
	assert.Equal(t, "4.8", stats.AverageExercisesPerDay)
	assert.Equal(t, "1.0", stats.AverageRepetitionsPerDay)
}

func TestConsolidatedStatistics_Empty(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)

	stats, err := tr.ConsolidatedStatistics(ctx, 30)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalExercises)
	assert.Nil(t, stats.BestExercise.ID)
	assert.Nil(t, stats.BestExercise.Name)
	assert.Zero(t, stats.OverallStreak)
	assert.Equal(t, "0.0", stats.AverageExercisesPerDay)
	assert.Equal(t, "0.0", stats.AverageRepetitionsPerDay)
	assert.Len(t, stats.ExerciseBreakdown, 4)
}

func TestConsolidatedStatistics_TieKeepsFirstID(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)

	require.NoError(t, tr.SaveHistory(ctx, tracker.History{
		"flexao": {record(daysAgo(0), 5, 0)},
		"barra":  {record(daysAgo(0), 5, 0)},
	}))

	stats, err := tr.ConsolidatedStatistics(ctx, 30)
	require.NoError(t, err)
	require.NotNil(t, stats.BestExercise.ID)
	assert.Equal(t, "barra", *stats.BestExercise.ID)
}
