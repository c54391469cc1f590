package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/app"
	"github.com/Lambodaran/AgileProject-sub001/internal/config"
	"github.com/Lambodaran/AgileProject-sub001/internal/infra/memory"
	pgloader "github.com/Lambodaran/AgileProject-sub001/internal/infra/postgres"
	"github.com/Lambodaran/AgileProject-sub001/internal/infra/recruitment"
	redisstore "github.com/Lambodaran/AgileProject-sub001/internal/infra/redis"
	"github.com/Lambodaran/AgileProject-sub001/internal/infra/sqlite"
	"github.com/Lambodaran/AgileProject-sub001/internal/logging"
	"github.com/Lambodaran/AgileProject-sub001/internal/metrics"
	transport "github.com/Lambodaran/AgileProject-sub001/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg)
	defer logger.Sync()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var sqliteStore *sqlite.KVStore
	var store app.KeyValueStore
	switch {
	case redisClient != nil:
		store = redisstore.NewKVStore(redisClient)
	case cfg.SQLite.Path != "":
		sqliteStore, err = sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer sqliteStore.Close()
		store = sqliteStore
	default:
		logger.Warn("no durable store configured; checkpoints live in memory")
		store = memory.NewKVStore()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var client *recruitment.Client
	if cfg.Recruitment.BaseURL != "" {
		client = recruitment.New(recruitment.Config{
			BaseURL: cfg.Recruitment.BaseURL,
			Token:   cfg.Recruitment.Token,
			Timeout: config.TTLDuration(cfg.Recruitment.Timeout, 15*time.Second),
		})
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizSets())
	switch {
	case pool != nil:
		loader = pgloader.NewQuizLoader(pool)
	case client != nil:
		loader = client
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var questions app.QuestionSource
	var memoryQuizzes *memory.QuizRepository
	if redisClient != nil {
		questions = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		memoryQuizzes = memory.NewQuizRepository(loader, quizTTL)
		questions = memoryQuizzes
	}

	var applications app.ApplicationSource
	var scorer app.Scorer
	if client != nil {
		applications = client
		scorer = client
	} else {
		logger.Warn("recruitment api not configured; serving sample applications", zap.String("timezone", loc.String()))
		if memoryQuizzes == nil {
			memoryQuizzes = memory.NewQuizRepository(loader, quizTTL)
		}
		directory := memory.NewApplicationDirectory(sampleApplications(time.Now().In(loc)))
		applications = directory
		scorer = memory.NewScorer(directory, memoryQuizzes)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	engine := app.NewEngine(app.EngineConfig{
		Location:           loc,
		TickInterval:       config.TTLDuration(cfg.Session.TickInterval, time.Second),
		RefreshInterval:    config.TTLDuration(cfg.Session.RefreshInterval, time.Minute),
		CheckpointInterval: config.TTLDuration(cfg.Session.CheckpointInterval, 30*time.Second),
		WarnThreshold:      config.TTLDuration(cfg.Session.WarningThreshold, time.Minute),
		UrgentThreshold:    config.TTLDuration(cfg.Session.UrgentThreshold, 2*time.Minute),
		SubmitTimeout:      config.TTLDuration(cfg.Session.SubmitTimeout, 30*time.Second),
	}, app.Deps{
		Applications:  applications,
		Questions:     questions,
		Scorer:        scorer,
		Store:         store,
		CheckpointTTL: config.TTLDuration(cfg.Session.CheckpointTTL, app.DefaultCheckpointTTL),
		Logger:        logger.Named("engine"),
		Metrics:       m,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/ws", transport.NewWSHandler(engine, logger.Named("ws")).ServeWS)
	transport.NewDashboardHandler(engine, logger.Named("dashboard")).Register(mux)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return engine.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("starting assessment service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if sqliteStore != nil {
		g.Go(func() error {
			sweepExpired(gctx, sqliteStore, logger)
			return nil
		})
	}
	g.Go(func() error {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(stop)

		select {
		case <-stop:
			logger.Info("shutting down server")
		case <-gctx.Done():
			logger.Info("context canceled, shutting down server")
		}
		cancelRun()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func sweepExpired(ctx context.Context, store *sqlite.KVStore, logger *zap.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Sweep(ctx)
			if err != nil {
				logger.Warn("sweep expired entries", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("swept expired entries", zap.Int64("count", n))
			}
		}
	}
}
