package tracker

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const (
	ExercisesKey = "fitnessExercises"
	HistoryKey   = "fitnessHistory"
	SettingsKey  = "fitnessSettings"
	// legacy single blob, read only during migration
	LegacyDataKey = "fitnessTracker"

	SchemaVersion = "2.0"

	MaxRepetitions       = 5
	MaxNameLength        = 30
	HistoryRetentionDays = 365
	DefaultWindowDays    = 30

	// windows longer than this include the whole history
	MaxWindowDays = 100 * 366

	DefaultColor = "#ff0000"
	DefaultIcon  = "💪"
)

type Field string

const (
	FieldRepetitions Field = "repetitions"
	FieldCompleted   Field = "completed"
)

func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldRepetitions, FieldCompleted:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidField, s)
	}
}

// clamp keeps repetitions in [0, MaxRepetitions] and completed at >= 0.
func (f Field) clamp(value int) int {
	if value < 0 {
		value = 0
	}
	if f == FieldRepetitions && value > MaxRepetitions {
		value = MaxRepetitions
	}
	return value
}

type Exercise struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
	Repetitions int       `json:"repetitions"`
	Completed   int       `json:"completed"`
	IsDefault   bool      `json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (e *Exercise) value(field Field) int {
	if field == FieldRepetitions {
		return e.Repetitions
	}
	return e.Completed
}

func (e *Exercise) setValue(field Field, value int) {
	value = field.clamp(value)
	if field == FieldRepetitions {
		e.Repetitions = value
	} else {
		e.Completed = value
	}
}

type HistoryRecord struct {
	Date        string `json:"date"`
	Repetitions int    `json:"repetitions"`
	Completed   int    `json:"completed"`
	// reserved, always empty
	Sessions  []json.RawMessage `json:"sessions"`
	Timestamp time.Time         `json:"timestamp"`
}

type Settings struct {
	Theme         string     `json:"theme"`
	AutoSave      bool       `json:"autoSave"`
	Notifications bool       `json:"notifications"`
	Language      string     `json:"language"`
	Version       string     `json:"version"`
	LastBackup    *time.Time `json:"lastBackup"`
}

func DefaultSettings() Settings {
	return Settings{
		Theme:         "dark",
		AutoSave:      true,
		Notifications: true,
		Language:      "pt-br",
		Version:       SchemaVersion,
	}
}

// Exercises maps exercise id to exercise.
type Exercises map[string]Exercise

// SortedIDs returns the ids in ascending order. Every aggregation iterates
// exercises in this order, so ties are resolved deterministically.
func (e Exercises) SortedIDs() []string {
	ids := make([]string, 0, len(e))
	for id := range e {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e Exercises) clone() Exercises {
	c := make(Exercises, len(e))
	for id, ex := range e {
		c[id] = ex
	}
	return c
}

// History maps exercise id to its daily records.
type History map[string][]HistoryRecord

var defaultExercises = []Exercise{
	{ID: "flexao", Name: "Flexões", Color: "#ff0000", Icon: "💪"},
	{ID: "abdominal", Name: "Abdominais", Color: "#00ff00", Icon: "🔥"},
	{ID: "agachamento", Name: "Agachamentos", Color: "#0000ff", Icon: "🦵"},
	{ID: "barra", Name: "Barras", Color: "#ffff00", Icon: "🏋️"},
}

func defaultExercise(id string) (Exercise, bool) {
	for _, ex := range defaultExercises {
		if ex.ID == id {
			return ex, true
		}
	}
	return Exercise{}, false
}

// DefaultExerciseIDs lists the ids of the seeded, non removable exercises.
func DefaultExerciseIDs() []string {
	ids := make([]string, 0, len(defaultExercises))
	for _, ex := range defaultExercises {
		ids = append(ids, ex.ID)
	}
	return ids
}

func newDefaultExercises(createdAt time.Time) Exercises {
	exercises := make(Exercises, len(defaultExercises))
	for _, ex := range defaultExercises {
		ex.IsDefault = true
		ex.CreatedAt = createdAt
		exercises[ex.ID] = ex
	}
	return exercises
}

func emptySessions() []json.RawMessage {
	return []json.RawMessage{}
}
