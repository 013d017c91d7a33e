package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/internal/tracker"

	log "github.com/sirupsen/logrus"
)

var ErrInvalidBackup = errors.New("invalid backup: exercises missing")

// statisticsWindowDays is the window of the statistics summary in JSON backups.
const statisticsWindowDays = 365

type StatisticsSummary struct {
	// number of exercises, not completed counts
	TotalExercises    int                              `json:"totalExercises"`
	ConsolidatedStats tracker.ConsolidatedStats        `json:"consolidatedStats"`
	IndividualStats   map[string]tracker.ExerciseStats `json:"individualStats"`
}

// Envelope is the JSON backup file.
type Envelope struct {
	Version    string             `json:"version"`
	ExportDate time.Time          `json:"exportDate"`
	Exercises  tracker.Exercises  `json:"exercises"`
	History    tracker.History    `json:"history"`
	Settings   *tracker.Settings  `json:"settings"`
	Statistics *StatisticsSummary `json:"statistics,omitempty"`
}

type Service struct {
	tracker *tracker.Tracker
}

func NewService(t *tracker.Tracker) *Service {
	return &Service{
		tracker: t,
	}
}

// BackupFileName is the suggested name of a JSON backup made at t.
func BackupFileName(t time.Time) string {
	return fmt.Sprintf("fitness_tracker_backup_%s.json", t.UTC().Format(tracker.DateLayout))
}

const CSVFileName = "fitness_tracker_dados.csv"

func (s *Service) BuildEnvelope(ctx context.Context) (Envelope, error) {
	backup, err := s.tracker.ExportData(ctx)
	if err != nil {
		return Envelope{}, err
	}

	consolidated, err := s.tracker.ConsolidatedStatistics(ctx, statisticsWindowDays)
	if err != nil {
		return Envelope{}, err
	}
	summary := &StatisticsSummary{
		TotalExercises:    len(backup.Exercises),
		ConsolidatedStats: consolidated,
		IndividualStats:   make(map[string]tracker.ExerciseStats, len(backup.Exercises)),
	}
	for _, id := range backup.Exercises.SortedIDs() {
		stats, err := s.tracker.ExerciseStatistics(ctx, id, statisticsWindowDays)
		if err != nil {
			return Envelope{}, err
		}
		summary.IndividualStats[id] = stats
	}

	return Envelope{
		Version:    backup.Version,
		ExportDate: backup.ExportDate,
		Exercises:  backup.Exercises,
		History:    backup.History,
		Settings:   backup.Settings,
		Statistics: summary,
	}, nil
}

// ExportJSON writes an indented JSON backup and marks the backup time.
func (s *Service) ExportJSON(ctx context.Context, w io.Writer) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "export.json")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	envelope, err := s.BuildEnvelope(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(envelope); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}

	return s.tracker.MarkBackup(ctx)
}

// ImportJSON replaces the stored collections with the ones in the backup.
func (s *Service) ImportJSON(ctx context.Context, r io.Reader) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "import.json")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var envelope Envelope
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBackup, err)
	}
	if envelope.Exercises == nil {
		return ErrInvalidBackup
	}

	return s.tracker.ImportData(ctx, tracker.Backup{
		Exercises:  envelope.Exercises,
		History:    envelope.History,
		Settings:   envelope.Settings,
		ExportDate: envelope.ExportDate,
		Version:    envelope.Version,
	})
}

// ExportCSV writes the CSV export and marks the backup time.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "export.csv")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	backup, err := s.tracker.ExportData(ctx)
	if err != nil {
		return err
	}
	if err := WriteCSV(w, backup.Exercises, backup.History, s.tracker.Today()); err != nil {
		return err
	}

	return s.tracker.MarkBackup(ctx)
}

// ImportCSV merges the CSV rows into the history, returns the record count.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "import.csv")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	records, err := ParseCSV(r)
	if err != nil {
		return 0, err
	}

	imported, err := s.tracker.MergeRecords(ctx, records)
	if err != nil {
		return 0, err
	}
	log.Debugf("csv import: %d of %d rows imported", imported, len(records))
	return imported, nil
}
