package tracker_test

import (
	"context"
	"testing"

	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/tracker"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters_Clamping(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)

	steps := []struct {
		increment bool
		amount    int
	}{
		{true, 1}, {true, 3}, {true, 4}, {false, 2}, {true, 10},
		{false, 1}, {false, 9}, {false, 1}, {true, 2}, {false, 3},
	}
	for _, step := range steps {
		var value int
		var err error
		if step.increment {
			value, err = tr.Increment(ctx, "flexao", tracker.FieldRepetitions, step.amount)
		} else {
			value, err = tr.Decrement(ctx, "flexao", tracker.FieldRepetitions, step.amount)
		}
		require.NoError(t, err)
		assert.GreaterOrEqual(t, value, 0)
		assert.LessOrEqual(t, value, tracker.MaxRepetitions)

		ex, err := tr.GetExercise(ctx, "flexao")
		require.NoError(t, err)
		assert.Equal(t, value, ex.Repetitions)
	}

	value, err := tr.Increment(ctx, "flexao", tracker.FieldCompleted, 250)
	require.NoError(t, err)
	assert.Equal(t, 250, value, "completed has no upper bound")
	value, err = tr.Decrement(ctx, "flexao", tracker.FieldCompleted, 1000)
	require.NoError(t, err)
	assert.Zero(t, value)
}

func TestCounters_SetField(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)

	value, err := tr.SetField(ctx, "barra", tracker.FieldRepetitions, 42)
	require.NoError(t, err)
	assert.Equal(t, tracker.MaxRepetitions, value)

	value, err = tr.SetField(ctx, "barra", tracker.FieldCompleted, -3)
	require.NoError(t, err)
	assert.Zero(t, value)

	value, err = tr.SetField(ctx, "barra", tracker.FieldCompleted, 17)
	require.NoError(t, err)
	assert.Equal(t, 17, value)

	history, err := tr.GetHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history["barra"], 1)
	assert.Equal(t, 17, history["barra"][0].Completed)
	assert.Equal(t, tracker.MaxRepetitions, history["barra"][0].Repetitions)
}

func TestCounters_InvalidInput(t *testing.T) {
	ctx := context.Background()
	tr, store := newTestTracker(t)
	historyBefore, _, err := store.Get(ctx, tracker.HistoryKey)
	require.NoError(t, err)

	value, err := tr.Increment(ctx, "missing", tracker.FieldCompleted, 1)
	assert.ErrorIs(t, err, tracker.ErrExerciseNotFound)
	assert.Zero(t, value)

	_, err = tr.Increment(ctx, "flexao", tracker.Field("weight"), 1)
	assert.ErrorIs(t, err, tracker.ErrInvalidField)

	_, err = tr.Increment(ctx, "flexao", tracker.FieldCompleted, 0)
	assert.ErrorIs(t, err, tracker.ErrInvalidAmount)
	_, err = tr.Decrement(ctx, "flexao", tracker.FieldCompleted, -2)
	assert.ErrorIs(t, err, tracker.ErrInvalidAmount)

	// nothing was written
	historyAfter, _, err := store.Get(ctx, tracker.HistoryKey)
	require.NoError(t, err)
	assert.Equal(t, historyBefore, historyAfter)
}

func TestCounters_UpsertTodayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)

	_, err := tr.Increment(ctx, "abdominal", tracker.FieldCompleted, 5)
	require.NoError(t, err)
	_, err = tr.Increment(ctx, "abdominal", tracker.FieldCompleted, 2)
	require.NoError(t, err)
	_, err = tr.Increment(ctx, "abdominal", tracker.FieldRepetitions, 1)
	require.NoError(t, err)

	history, err := tr.GetHistory(ctx)
	require.NoError(t, err)
	records := history["abdominal"]
	require.Len(t, records, 1)
	assert.Equal(t, daysAgo(0), records[0].Date)
	assert.Equal(t, 7, records[0].Completed)
	assert.Equal(t, 1, records[0].Repetitions)
	assert.NotNil(t, records[0].Sessions)
	assert.Empty(t, records[0].Sessions)
	assert.Equal(t, testNow, records[0].Timestamp)

	// other exercises are untouched
	assert.Empty(t, history["flexao"])
}

func TestCounters_Metrics(t *testing.T) {
	ctx := context.Background()
	metricsManager := metrics.NewTestManager()
	tr, _ := newTestTracker(t, tracker.WithMetrics(metricsManager))

	_, err := tr.Increment(ctx, "flexao", tracker.FieldCompleted, 1)
	require.NoError(t, err)
	_, err = tr.Decrement(ctx, "flexao", tracker.FieldCompleted, 1)
	require.NoError(t, err)
	_, err = tr.Increment(ctx, "flexao", tracker.FieldRepetitions, 1)
	require.NoError(t, err)
	_, err = tr.Increment(ctx, "missing", tracker.FieldRepetitions, 1)
	require.Error(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(metricsManager.CounterCounterMutations.WithLabelValues("completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterCounterMutations.WithLabelValues("repetitions")))
}

func TestTodayTotals(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)

	_, err := tr.Increment(ctx, "flexao", tracker.FieldCompleted, 10)
	require.NoError(t, err)
	_, err = tr.Increment(ctx, "barra", tracker.FieldCompleted, 3)
	require.NoError(t, err)
	_, err = tr.Increment(ctx, "barra", tracker.FieldRepetitions, 2)
	require.NoError(t, err)

	totals, err := tr.TodayTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, tracker.TodayTotals{Exercises: 4, Repetitions: 2, Completed: 13}, totals)
}

func TestParseField(t *testing.T) {
	f, err := tracker.ParseField("completed")
	require.NoError(t, err)
	assert.Equal(t, tracker.FieldCompleted, f)

	f, err = tracker.ParseField("repetitions")
	require.NoError(t, err)
	assert.Equal(t, tracker.FieldRepetitions, f)

	_, err = tracker.ParseField("Completed")
	assert.ErrorIs(t, err, tracker.ErrInvalidField)
}
