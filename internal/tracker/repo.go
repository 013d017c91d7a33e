package tracker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2beens/fittrack/internal/kvstore"

	log "github.com/sirupsen/logrus"
)

// repo does the typed load/save of the three collections.
// Undecodable values are logged and reported as absent.
type repo struct {
	store kvstore.Store
}

func newRepo(store kvstore.Store) *repo {
	return &repo{store: store}
}

func (r *repo) loadJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: get %s: %w", ErrStorage, key, err)
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		log.Errorf("corrupt data under [%s], treating as absent: %s", key, err)
		return false, nil
	}
	return true, nil
}

func (r *repo) saveJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrStorage, key, err)
	}
	return nil
}

func (r *repo) remove(ctx context.Context, key string) error {
	if err := r.store.Remove(ctx, key); err != nil {
		return fmt.Errorf("%w: remove %s: %w", ErrStorage, key, err)
	}
	return nil
}

// exercises returns the stored exercises, false when absent or corrupt.
func (r *repo) exercises(ctx context.Context) (Exercises, bool, error) {
	var exercises Exercises
	ok, err := r.loadJSON(ctx, ExercisesKey, &exercises)
	if err != nil || !ok || exercises == nil {
		return Exercises{}, false, err
	}
	return normalizeExercises(exercises), true, nil
}

func (r *repo) saveExercises(ctx context.Context, exercises Exercises) error {
	return r.saveJSON(ctx, ExercisesKey, exercises)
}

func (r *repo) history(ctx context.Context) (History, bool, error) {
	var history History
	ok, err := r.loadJSON(ctx, HistoryKey, &history)
	if err != nil || !ok || history == nil {
		return History{}, false, err
	}
	return normalizeHistory(history), true, nil
}

func (r *repo) saveHistory(ctx context.Context, history History) error {
	return r.saveJSON(ctx, HistoryKey, history)
}

func (r *repo) settings(ctx context.Context) (Settings, bool, error) {
	var settings *Settings
	ok, err := r.loadJSON(ctx, SettingsKey, &settings)
	if err != nil || !ok || settings == nil {
		return DefaultSettings(), false, err
	}
	return *settings, true, nil
}

func (r *repo) saveSettings(ctx context.Context, settings Settings) error {
	return r.saveJSON(ctx, SettingsKey, settings)
}

// normalizeExercises makes the map key the exercise id and clamps the counters.
func normalizeExercises(exercises Exercises) Exercises {
	for id, ex := range exercises {
		ex.ID = id
		if ex.Name == "" {
			ex.Name = id
		}
		ex.setValue(FieldRepetitions, ex.Repetitions)
		ex.setValue(FieldCompleted, ex.Completed)
		exercises[id] = ex
	}
	return exercises
}

func normalizeHistory(history History) History {
	for id, records := range history {
		if records == nil {
			history[id] = []HistoryRecord{}
			continue
		}
		for i := range records {
			if records[i].Sessions == nil {
				records[i].Sessions = emptySessions()
			}
		}
	}
	return history
}
