package tracker

import (
	"context"
	"sort"
	"time"
)

// upsertToday writes today's snapshot of ex into its history list, replacing
// an existing record for today, and prunes records past retention.
// Caller holds the mutex.
func (t *Tracker) upsertToday(ctx context.Context, ex Exercise) error {
	history, _, err := t.repo.history(ctx)
	if err != nil {
		return err
	}

	today := t.todayString()
	todayRecord := HistoryRecord{
		Date:        today,
		Repetitions: ex.Repetitions,
		Completed:   ex.Completed,
		Sessions:    emptySessions(),
		Timestamp:   t.now().UTC(),
	}

	records := history[ex.ID]
	replaced := false
	for i := range records {
		if records[i].Date == today {
			records[i] = todayRecord
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, todayRecord)
	}

	history[ex.ID] = t.pruneExpired(records)
	return t.repo.saveHistory(ctx, history)
}

// pruneExpired drops records older than the retention period,
// records with an unparsable date are dropped too.
func (t *Tracker) pruneExpired(records []HistoryRecord) []HistoryRecord {
	cutoff := t.daysAgo(HistoryRetentionDays)
	kept := make([]HistoryRecord, 0, len(records))
	for _, rec := range records {
		if date, ok := parseDate(rec.Date); ok && !date.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	return kept
}

// QueryHistory returns the records of an exercise dated within the
// last windowDays days (today included), oldest first.
func (t *Tracker) QueryHistory(ctx context.Context, id string, windowDays int) ([]HistoryRecord, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	exercises, _, err := t.repo.exercises(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := exercises[id]; !ok {
		return nil, ErrExerciseNotFound
	}

	history, _, err := t.repo.history(ctx)
	if err != nil {
		return nil, err
	}
	return t.window(history[id], windowDays), nil
}

// window filters records to date >= today-windowDays, sorted by date.
func (t *Tracker) window(records []HistoryRecord, windowDays int) []HistoryRecord {
	if windowDays < 0 {
		windowDays = DefaultWindowDays
	}
	var cutoff time.Time
	if windowDays <= MaxWindowDays {
		cutoff = t.daysAgo(windowDays)
	}

	windowed := make([]HistoryRecord, 0, len(records))
	for _, rec := range records {
		if date, ok := parseDate(rec.Date); ok && !date.Before(cutoff) {
			windowed = append(windowed, rec)
		}
	}
	sort.SliceStable(windowed, func(i, j int) bool {
		return windowed[i].Date < windowed[j].Date
	})
	return windowed
}

// sortedDesc returns a copy of records, most recent first.
func sortedDesc(records []HistoryRecord) []HistoryRecord {
	sorted := make([]HistoryRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})
	return sorted
}
