package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/2beens/fittrack/internal/kvstore"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"

	"github.com/brianvoe/gofakeit/v6"
)

// Tracker owns exercises, their history and settings.
// All read-modify-write sequences run under a single mutex.
type Tracker struct {
	repo           *repo
	now            func() time.Time
	faker          *gofakeit.Faker
	metricsManager *metrics.Manager

	mutex sync.Mutex
}

type Option func(*Tracker)

// WithClock overrides the time source, "today" is derived from it.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithFaker sets the random source used by LoadSampleData.
func WithFaker(faker *gofakeit.Faker) Option {
	return func(t *Tracker) {
		t.faker = faker
	}
}

func WithMetrics(metricsManager *metrics.Manager) Option {
	return func(t *Tracker) {
		t.metricsManager = metricsManager
	}
}

func New(store kvstore.Store, opts ...Option) *Tracker {
	t := &Tracker{
		repo: newRepo(store),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.faker == nil {
		t.faker = gofakeit.New(0)
	}
	return t
}

func (t *Tracker) GetExercises(ctx context.Context) (Exercises, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	exercises, _, err := t.repo.exercises(ctx)
	return exercises, err
}

// SaveExercises replaces the exercises collection wholesale.
func (t *Tracker) SaveExercises(ctx context.Context, exercises Exercises) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if exercises == nil {
		exercises = Exercises{}
	}
	if err := t.repo.saveExercises(ctx, normalizeExercises(exercises.clone())); err != nil {
		return err
	}
	t.setExercisesGauge(len(exercises))
	return nil
}

func (t *Tracker) GetHistory(ctx context.Context) (History, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	history, _, err := t.repo.history(ctx)
	return history, err
}

func (t *Tracker) SaveHistory(ctx context.Context, history History) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if history == nil {
		history = History{}
	}
	return t.repo.saveHistory(ctx, normalizeHistory(history))
}

func (t *Tracker) GetSettings(ctx context.Context) (Settings, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	settings, _, err := t.repo.settings(ctx)
	return settings, err
}

func (t *Tracker) SaveSettings(ctx context.Context, settings Settings) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.save_settings")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.repo.saveSettings(ctx, settings)
}

func (t *Tracker) setExercisesGauge(count int) {
	if t.metricsManager != nil {
		t.metricsManager.GaugeExercises.Set(float64(count))
	}
}
