package tracker

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/2beens/fittrack/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

var nonAlphanumericRun = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateID derives an id slug from name; on collision with taken ids
// it appends _1, _2, ... until the id is free.
func GenerateID(name string, taken func(id string) bool) string {
	baseID := nonAlphanumericRun.ReplaceAllString(strings.ToLower(name), "_")
	baseID = strings.Trim(baseID, "_")
	if baseID == "" {
		return ""
	}

	id := baseID
	for counter := 1; taken(id); counter++ {
		id = fmt.Sprintf("%s_%d", baseID, counter)
	}
	return id
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name longer than %d characters", ErrInvalidName, MaxNameLength)
	}
	return name, nil
}

// AddExercise creates a new user exercise and its empty history list.
func (t *Tracker) AddExercise(ctx context.Context, name, color, icon string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.add_exercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	name, err = validateName(name)
	if err != nil {
		return "", err
	}
	if color == "" {
		color = DefaultColor
	}
	if icon == "" {
		icon = DefaultIcon
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	exercises, _, err := t.repo.exercises(ctx)
	if err != nil {
		return "", err
	}
	history, _, err := t.repo.history(ctx)
	if err != nil {
		return "", err
	}

	id := GenerateID(name, func(id string) bool {
		_, exists := exercises[id]
		return exists
	})
	if id == "" {
		return "", fmt.Errorf("%w: name must contain letters or digits", ErrInvalidName)
	}
	span.SetAttributes(attribute.String("exercise.id", id))

	exercises[id] = Exercise{
		ID:        id,
		Name:      name,
		Color:     color,
		Icon:      icon,
		IsDefault: false,
		CreatedAt: t.now().UTC(),
	}
	if err := t.repo.saveExercises(ctx, exercises); err != nil {
		return "", err
	}

	history[id] = []HistoryRecord{}
	if err := t.repo.saveHistory(ctx, history); err != nil {
		delete(exercises, id)
		rollbackErr := t.repo.saveExercises(ctx, exercises)
		return "", multierr.Combine(err, rollbackErr)
	}

	t.setExercisesGauge(len(exercises))
	log.Debugf("exercise added: [%s] %s", id, name)

	return id, nil
}

// RemoveExercise deletes a user exercise together with its history.
// Either both collections change or neither does.
func (t *Tracker) RemoveExercise(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.remove_exercise")
	span.SetAttributes(attribute.String("exercise.id", id))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mutex.Lock()
	defer t.mutex.Unlock()

	exercises, _, err := t.repo.exercises(ctx)
	if err != nil {
		return err
	}
	removed, ok := exercises[id]
	if !ok {
		return ErrExerciseNotFound
	}
	if removed.IsDefault {
		return ErrProtectedExercise
	}

	history, _, err := t.repo.history(ctx)
	if err != nil {
		return err
	}

	delete(exercises, id)
	if err := t.repo.saveExercises(ctx, exercises); err != nil {
		return err
	}

	delete(history, id)
	if err := t.repo.saveHistory(ctx, history); err != nil {
		exercises[id] = removed
		rollbackErr := t.repo.saveExercises(ctx, exercises)
		return multierr.Combine(err, rollbackErr)
	}

	t.setExercisesGauge(len(exercises))
	log.Debugf("exercise removed: [%s]", id)

	return nil
}

// UpdateExerciseDetails changes the display fields of an exercise, empty
// values keep the current ones. The id never changes.
func (t *Tracker) UpdateExerciseDetails(ctx context.Context, id, name, color, icon string) (_ Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.update_exercise")
	span.SetAttributes(attribute.String("exercise.id", id))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if name != "" {
		if name, err = validateName(name); err != nil {
			return Exercise{}, err
		}
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	exercises, _, err := t.repo.exercises(ctx)
	if err != nil {
		return Exercise{}, err
	}
	ex, ok := exercises[id]
	if !ok {
		return Exercise{}, ErrExerciseNotFound
	}

	if name != "" {
		ex.Name = name
	}
	if color != "" {
		ex.Color = color
	}
	if icon != "" {
		ex.Icon = icon
	}
	exercises[id] = ex

	if err := t.repo.saveExercises(ctx, exercises); err != nil {
		return Exercise{}, err
	}
	return ex, nil
}

// ListExercises returns all exercises ordered by id.
func (t *Tracker) ListExercises(ctx context.Context) ([]Exercise, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	exercises, _, err := t.repo.exercises(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]Exercise, 0, len(exercises))
	for _, ex := range exercises {
		list = append(list, ex)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list, nil
}

// GetExercise returns a single exercise.
func (t *Tracker) GetExercise(ctx context.Context, id string) (Exercise, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	exercises, _, err := t.repo.exercises(ctx)
	if err != nil {
		return Exercise{}, err
	}
	ex, ok := exercises[id]
	if !ok {
		return Exercise{}, ErrExerciseNotFound
	}
	return ex, nil
}
