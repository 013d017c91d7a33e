package tracker

import (
	"context"
	"time"

	"github.com/2beens/fittrack/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

// ImportedRecord is a single daily value coming from an external file,
// the exercise is referenced by its display name.
type ImportedRecord struct {
	ExerciseName string
	Date         time.Time
	Completed    int
	Repetitions  int
}

// MergeRecords adds imported records to the history. Exercises are matched
// by name and created when unknown. A record for a date that already exists
// keeps the higher of both values per field. Returns the number of merged
// records; records whose exercise cannot be created are skipped.
func (t *Tracker) MergeRecords(ctx context.Context, records []ImportedRecord) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.merge_records")
	span.SetAttributes(attribute.Int("records.count", len(records)))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mutex.Lock()
	defer t.mutex.Unlock()

	exercises, _, err := t.repo.exercises(ctx)
	if err != nil {
		return 0, err
	}
	history, _, err := t.repo.history(ctx)
	if err != nil {
		return 0, err
	}

	idsByName := make(map[string]string, len(exercises))
	for _, id := range exercises.SortedIDs() {
		name := exercises[id].Name
		if _, taken := idsByName[name]; !taken {
			idsByName[name] = id
		}
	}

	now := t.now().UTC()
	var createdIDs []string
	merged := 0
	for _, rec := range records {
		id, ok := idsByName[rec.ExerciseName]
		if !ok {
			name, err := validateName(rec.ExerciseName)
			if err != nil {
				log.Debugf("merge records: skipping exercise [%s]: %s", rec.ExerciseName, err)
				continue
			}
			id = GenerateID(name, func(id string) bool {
				_, exists := exercises[id]
				return exists
			})
			if id == "" {
				continue
			}
			exercises[id] = Exercise{
				ID:        id,
				Name:      name,
				Color:     DefaultColor,
				Icon:      DefaultIcon,
				CreatedAt: now,
			}
			history[id] = []HistoryRecord{}
			idsByName[rec.ExerciseName] = id
			createdIDs = append(createdIDs, id)
		}

		date := formatDate(rec.Date)
		completed := FieldCompleted.clamp(rec.Completed)
		repetitions := FieldRepetitions.clamp(rec.Repetitions)

		existing := history[id]
		found := false
		for i := range existing {
			if existing[i].Date == date {
				existing[i].Completed = max(existing[i].Completed, completed)
				existing[i].Repetitions = max(existing[i].Repetitions, repetitions)
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, HistoryRecord{
				Date:        date,
				Repetitions: repetitions,
				Completed:   completed,
				Sessions:    emptySessions(),
				Timestamp:   now,
			})
		}
		history[id] = existing
		merged++
	}

	if len(createdIDs) > 0 {
		if err := t.repo.saveExercises(ctx, exercises); err != nil {
			return 0, err
		}
	}
	if err := t.repo.saveHistory(ctx, history); err != nil {
		if len(createdIDs) > 0 {
			// their history was never written
			for _, id := range createdIDs {
				delete(exercises, id)
			}
			err = multierr.Combine(err, t.repo.saveExercises(ctx, exercises))
		}
		return 0, err
	}
	t.setExercisesGauge(len(exercises))

	log.Infof("merged %d records, %d new exercises", merged, len(createdIDs))
	return merged, nil
}
