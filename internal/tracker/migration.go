package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/2beens/fittrack/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

// legacyData is the pre 2.0 single blob stored under LegacyDataKey.
type legacyData struct {
	Exercises map[string]legacyExercise `json:"exercises"`
}

type legacyExercise struct {
	Repetitions int `json:"repetitions"`
	Completed   int `json:"completed"`
}

// legacyHistoryEntry is one element of the pre 2.0 flat history list.
type legacyHistoryEntry struct {
	Date      string         `json:"date"`
	Exercises map[string]int `json:"exercises"`
	Timestamp *time.Time     `json:"timestamp"`
}

// Initialize migrates legacy data and makes sure all three collections exist.
// It is safe to call on every start.
func (t *Tracker) Initialize(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.initialize")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.initialize(ctx)
}

func (t *Tracker) initialize(ctx context.Context) error {
	if err := t.migrateLegacyData(ctx); err != nil {
		// never blocks startup
		log.Errorf("legacy data migration failed: %s", err)
	}

	exercises, ok, err := t.repo.exercises(ctx)
	if err != nil {
		return err
	}
	if !ok {
		log.Debugln("no exercises found, seeding defaults")
		exercises = newDefaultExercises(t.now().UTC())
		if err := t.repo.saveExercises(ctx, exercises); err != nil {
			return err
		}
	}
	t.setExercisesGauge(len(exercises))

	if _, ok, err := t.repo.history(ctx); err != nil {
		return err
	} else if !ok {
		if err := t.repo.saveHistory(ctx, History{}); err != nil {
			return err
		}
	}

	if _, ok, err := t.repo.settings(ctx); err != nil {
		return err
	} else if !ok {
		if err := t.repo.saveSettings(ctx, DefaultSettings()); err != nil {
			return err
		}
	}

	return nil
}

// migrateLegacyData converts the legacy blob into the versioned collections.
// It is a no-op once the exercises key is populated.
func (t *Tracker) migrateLegacyData(ctx context.Context) error {
	legacyRaw, ok, err := t.repo.store.Get(ctx, LegacyDataKey)
	if err != nil {
		return fmt.Errorf("get legacy data: %w", err)
	}
	if !ok || legacyRaw == "" {
		return nil
	}

	currentRaw, ok, err := t.repo.store.Get(ctx, ExercisesKey)
	if err != nil {
		return fmt.Errorf("get exercises: %w", err)
	}
	if ok && currentRaw != "" {
		return nil
	}

	var legacy legacyData
	if err := json.Unmarshal([]byte(legacyRaw), &legacy); err != nil {
		return fmt.Errorf("parse legacy data: %w", err)
	}

	now := t.now().UTC()
	if legacy.Exercises != nil {
		exercises := migrateLegacyExercises(legacy.Exercises, now)
		if err := t.repo.saveExercises(ctx, exercises); err != nil {
			return err
		}
		log.Infof("migrated %d legacy exercises", len(exercises))
	}

	// the legacy flat history list lived under the same key as the new history map
	historyRaw, ok, err := t.repo.store.Get(ctx, HistoryKey)
	if err != nil {
		return fmt.Errorf("get legacy history: %w", err)
	}
	if !ok || historyRaw == "" {
		return nil
	}

	var entries []legacyHistoryEntry
	if err := json.Unmarshal([]byte(historyRaw), &entries); err != nil {
		return fmt.Errorf("parse legacy history: %w", err)
	}

	history := migrateLegacyHistory(entries, now)
	if err := t.repo.saveHistory(ctx, history); err != nil {
		return err
	}
	log.Infof("migrated legacy history for %d exercises", len(history))

	return nil
}

func migrateLegacyExercises(legacy map[string]legacyExercise, now time.Time) Exercises {
	exercises := make(Exercises, len(legacy))
	for id, old := range legacy {
		ex := Exercise{
			ID:          id,
			Name:        id,
			Color:       DefaultColor,
			Icon:        DefaultIcon,
			Repetitions: old.Repetitions,
			Completed:   old.Completed,
			CreatedAt:   now,
		}
		if def, ok := defaultExercise(id); ok {
			ex.Name = def.Name
			ex.Color = def.Color
			ex.Icon = def.Icon
			ex.IsDefault = true
		}
		exercises[id] = ex
	}
	return normalizeExercises(exercises)
}

// migrateLegacyHistory regroups the flat list per exercise, summing
// counts of entries that share an exercise and a date.
func migrateLegacyHistory(entries []legacyHistoryEntry, now time.Time) History {
	history := History{}
	for _, entry := range entries {
		timestamp := now
		if entry.Timestamp != nil {
			timestamp = *entry.Timestamp
		}

		for id, count := range entry.Exercises {
			records := history[id]
			merged := false
			for i := range records {
				if records[i].Date == entry.Date {
					records[i].Completed += count
					merged = true
					break
				}
			}
			if !merged {
				records = append(records, HistoryRecord{
					Date:        entry.Date,
					Repetitions: 0,
					Completed:   count,
					Sessions:    emptySessions(),
					Timestamp:   timestamp,
				})
			}
			history[id] = records
		}
	}
	return history
}
