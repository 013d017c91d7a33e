// Package cli defines the cobra commands of the fittrack command line tool.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/2beens/fittrack/internal/config"
	"github.com/2beens/fittrack/internal/db"
	"github.com/2beens/fittrack/internal/kvstore"
	"github.com/2beens/fittrack/internal/logging"
	"github.com/2beens/fittrack/internal/tracker"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const annotationNoStore = "no-store"

type App struct {
	dataDir    string
	configPath string
	env        string
	logLevel   string

	// set by options, used instead of opening a backend
	store kvstore.Store
	clock func() time.Time

	tracker     *tracker.Tracker
	backend     *kvstore.Backend
	redisClient *redis.Client
}

type Option func(*App)

// WithStore makes the commands run against the given store.
func WithStore(store kvstore.Store) Option {
	return func(a *App) {
		a.store = store
	}
}

func WithClock(clock func() time.Time) Option {
	return func(a *App) {
		a.clock = clock
	}
}

// NewRootCmd builds the fittrack command tree. By default the data lives in
// a file store under --data-dir; with --config the configured backend is used.
func NewRootCmd(opts ...Option) *cobra.Command {
	app := &App{}
	for _, opt := range opts {
		opt(app)
	}

	rootCmd := &cobra.Command{
		Use:   "fittrack",
		Short: "Track daily exercise counters, history and statistics",
		Long: `fittrack keeps per exercise counters (completed exercises and repetitions),
records them into a daily history and computes streaks and averages.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log.SetOutput(cmd.ErrOrStderr())
			log.SetLevel(logging.GetLevel(app.logLevel))
			if cmd.Annotations[annotationNoStore] == "true" {
				return nil
			}
			return app.open(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			app.Close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.dataDir, "data-dir", defaultDataDir(), "directory of the file store")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "TOML config file, selects the configured store backend")
	rootCmd.PersistentFlags().StringVar(&app.env, "env", "development", "config section [dev | development | prod | production]")
	rootCmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(
		app.listCmd(),
		app.addCmd(),
		app.removeCmd(),
		app.renameCmd(),
		app.incCmd(),
		app.decCmd(),
		app.setCmd(),
		app.todayCmd(),
		app.historyCmd(),
		app.statsCmd(),
		app.summaryCmd(),
		app.exportCmd(),
		app.importCmd(),
		app.sampleCmd(),
		app.clearCmd(),
		app.usageCmd(),
		app.archiveCmd(),
		hashPasswordCmd(),
	)

	return rootCmd
}

func defaultDataDir() string {
	if dir := os.Getenv("FITTRACK_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".fittrack")
}

func (a *App) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store := a.store
	if store == nil {
		params, err := a.openParams(ctx)
		if err != nil {
			return err
		}
		a.backend, err = kvstore.Open(ctx, params)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		store = a.backend.Store
	}

	var trackerOpts []tracker.Option
	if a.clock != nil {
		trackerOpts = append(trackerOpts, tracker.WithClock(a.clock))
	}
	a.tracker = tracker.New(store, trackerOpts...)
	return a.tracker.Initialize(ctx)
}

func (a *App) openParams(ctx context.Context) (kvstore.OpenParams, error) {
	if a.configPath == "" {
		return kvstore.OpenParams{
			Backend: kvstore.BackendFile,
			DataDir: a.dataDir,
		}, nil
	}

	cfg, err := config.Load(a.env, a.configPath)
	if err != nil {
		return kvstore.OpenParams{}, err
	}
	if cfg.StoreBackend == kvstore.BackendRedis {
		a.redisClient = kvstore.NewRedisClient(ctx, kvstore.NewRedisClientParams{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: os.Getenv("FITTRACK_REDIS_PASS"),
		})
	}
	return kvstore.OpenParams{
		Backend:        cfg.StoreBackend,
		DataDir:        cfg.DataDir,
		RedisClient:    a.redisClient,
		RedisKeyPrefix: cfg.RedisKeyPrefix,
		Postgres: db.NewDBPoolParams{
			DBHost:     cfg.PostgresHost,
			DBPort:     cfg.PostgresPort,
			DBName:     cfg.PostgresDBName,
			DBPassword: os.Getenv("FITTRACK_POSTGRES_PASS"),
		},
	}, nil
}

func (a *App) Close() {
	if a.backend != nil {
		a.backend.Close()
		a.backend = nil
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			log.Errorf("close redis client: %s", err)
		}
		a.redisClient = nil
	}
}
