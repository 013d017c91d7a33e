package tracker

import (
	"context"
	"fmt"

	"github.com/2beens/fittrack/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

type TodayTotals struct {
	Exercises   int `json:"exercises"`
	Repetitions int `json:"repetitions"`
	Completed   int `json:"completed"`
}

// Increment adds amount to the field and returns the new (clamped) value.
// An unknown id yields 0 and ErrExerciseNotFound, nothing is written then.
func (t *Tracker) Increment(ctx context.Context, id string, field Field, amount int) (int, error) {
	if amount < 1 {
		return 0, ErrInvalidAmount
	}
	return t.mutateCounter(ctx, "tracker.increment", id, field, func(current int) int {
		return current + amount
	})
}

// Decrement subtracts amount from the field, flooring it at 0.
func (t *Tracker) Decrement(ctx context.Context, id string, field Field, amount int) (int, error) {
	if amount < 1 {
		return 0, ErrInvalidAmount
	}
	return t.mutateCounter(ctx, "tracker.decrement", id, field, func(current int) int {
		return current - amount
	})
}

// SetField sets the field directly, the same clamping rules apply.
func (t *Tracker) SetField(ctx context.Context, id string, field Field, value int) (int, error) {
	return t.mutateCounter(ctx, "tracker.set_field", id, field, func(int) int {
		return value
	})
}

func (t *Tracker) mutateCounter(
	ctx context.Context,
	spanName string,
	id string,
	field Field,
	mutate func(current int) int,
) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, spanName)
	span.SetAttributes(
		attribute.String("exercise.id", id),
		attribute.String("field", string(field)),
	)
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if _, err := ParseField(string(field)); err != nil {
		return 0, err
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	exercises, _, err := t.repo.exercises(ctx)
	if err != nil {
		return 0, err
	}
	ex, ok := exercises[id]
	if !ok {
		return 0, ErrExerciseNotFound
	}

	previous := ex
	ex.setValue(field, mutate(ex.value(field)))
	exercises[id] = ex
	if err := t.repo.saveExercises(ctx, exercises); err != nil {
		return 0, err
	}

	if err := t.upsertToday(ctx, ex); err != nil {
		exercises[id] = previous
		rollbackErr := t.repo.saveExercises(ctx, exercises)
		return 0, multierr.Combine(fmt.Errorf("update today's history: %w", err), rollbackErr)
	}

	newValue := ex.value(field)
	if t.metricsManager != nil {
		t.metricsManager.CounterCounterMutations.WithLabelValues(string(field)).Inc()
	}
	return newValue, nil
}

// TodayTotals sums the live counters of all exercises.
func (t *Tracker) TodayTotals(ctx context.Context) (TodayTotals, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	exercises, _, err := t.repo.exercises(ctx)
	if err != nil {
		return TodayTotals{}, err
	}

	totals := TodayTotals{Exercises: len(exercises)}
	for _, ex := range exercises {
		totals.Repetitions += ex.Repetitions
		totals.Completed += ex.Completed
	}
	return totals, nil
}
