package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"unicode/utf16"

	"github.com/2beens/fittrack/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const sampleDays = 30

// Backup is the export envelope. Nil collections are absent and are left
// untouched on import.
type Backup struct {
	Exercises  Exercises `json:"exercises"`
	History    History   `json:"history"`
	Settings   *Settings `json:"settings"`
	ExportDate time.Time `json:"exportDate"`
	Version    string    `json:"version"`
}

type StorageUsage struct {
	Bytes int    `json:"bytes"`
	KB    string `json:"kb"`
	MB    string `json:"mb"`
}

func (t *Tracker) ExportData(ctx context.Context) (_ Backup, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.export_data")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.exportData(ctx)
}

func (t *Tracker) exportData(ctx context.Context) (Backup, error) {
	exercises, _, err := t.repo.exercises(ctx)
	if err != nil {
		return Backup{}, err
	}
	history, _, err := t.repo.history(ctx)
	if err != nil {
		return Backup{}, err
	}
	settings, _, err := t.repo.settings(ctx)
	if err != nil {
		return Backup{}, err
	}

	return Backup{
		Exercises:  exercises,
		History:    history,
		Settings:   &settings,
		ExportDate: t.now().UTC(),
		Version:    SchemaVersion,
	}, nil
}

// ImportData overwrites each collection present in the backup.
func (t *Tracker) ImportData(ctx context.Context, backup Backup) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.import_data")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if backup.Exercises != nil {
		exercises := normalizeExercises(backup.Exercises.clone())
		if err := t.repo.saveExercises(ctx, exercises); err != nil {
			return fmt.Errorf("import exercises: %w", err)
		}
		t.setExercisesGauge(len(exercises))
	}
	if backup.History != nil {
		if err := t.repo.saveHistory(ctx, normalizeHistory(backup.History)); err != nil {
			return fmt.Errorf("import history: %w", err)
		}
	}
	if backup.Settings != nil {
		if err := t.repo.saveSettings(ctx, *backup.Settings); err != nil {
			return fmt.Errorf("import settings: %w", err)
		}
	}

	log.Infof("backup imported, exported at %s", backup.ExportDate.Format(time.RFC3339))
	return nil
}

// LoadSampleData replaces the history of every exercise with sampleDays
// days of random data and sets the live counters from the last day.
func (t *Tracker) LoadSampleData(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.load_sample_data")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mutex.Lock()
	defer t.mutex.Unlock()

	exercises, _, err := t.repo.exercises(ctx)
	if err != nil {
		return err
	}

	now := t.now().UTC()
	timeOfDay := now.Sub(startOfDay(now))
	history := make(History, len(exercises))
	for _, id := range exercises.SortedIDs() {
		records := make([]HistoryRecord, 0, sampleDays)
		for i := sampleDays - 1; i >= 0; i-- {
			day := t.daysAgo(i)
			records = append(records, HistoryRecord{
				Date:        formatDate(day),
				Repetitions: t.faker.Number(0, MaxRepetitions-1),
				Completed:   t.faker.Number(5, 19),
				Sessions:    emptySessions(),
				Timestamp:   day.Add(timeOfDay),
			})
		}
		history[id] = t.pruneExpired(records)
	}

	if err := t.repo.saveHistory(ctx, history); err != nil {
		return err
	}

	for _, id := range exercises.SortedIDs() {
		ex := exercises[id]
		records := history[id]
		ex.setValue(FieldRepetitions, t.faker.Number(0, MaxRepetitions-1))
		if len(records) > 0 {
			ex.setValue(FieldCompleted, records[len(records)-1].Completed)
		}
		exercises[id] = ex
	}

	return t.repo.saveExercises(ctx, exercises)
}

// ClearAllData removes the three collections and initializes again,
// which re-seeds the default exercises.
func (t *Tracker) ClearAllData(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.clear_all_data")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, key := range []string{ExercisesKey, HistoryKey, SettingsKey} {
		err = multierr.Append(err, t.repo.remove(ctx, key))
	}
	if err != nil {
		return err
	}

	log.Warnln("all data cleared")
	return t.initialize(ctx)
}

// StorageUsage estimates the persisted size as two bytes per character of
// the serialized collections.
func (t *Tracker) StorageUsage(ctx context.Context) (StorageUsage, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	backup, err := t.exportData(ctx)
	if err != nil {
		return StorageUsage{}, err
	}

	chars := 0
	for _, collection := range []any{backup.Exercises, backup.History, backup.Settings} {
		data, err := json.Marshal(collection)
		if err != nil {
			return StorageUsage{}, fmt.Errorf("marshal collection: %w", err)
		}
		chars += len(utf16.Encode([]rune(string(data))))
	}

	totalBytes := chars * 2
	kb := strconv.FormatFloat(float64(totalBytes)/1024, 'f', 2, 64)
	kbRounded, _ := strconv.ParseFloat(kb, 64)
	return StorageUsage{
		Bytes: totalBytes,
		KB:    kb,
		MB:    strconv.FormatFloat(kbRounded/1024, 'f', 2, 64),
	}, nil
}

// MarkBackup records now as the last backup time in the settings.
func (t *Tracker) MarkBackup(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	settings, _, err := t.repo.settings(ctx)
	if err != nil {
		return err
	}
	now := t.now().UTC()
	settings.LastBackup = &now
	if err := t.repo.saveSettings(ctx, settings); err != nil {
		return err
	}

	if t.metricsManager != nil {
		t.metricsManager.CounterBackups.Inc()
	}
	return nil
}
