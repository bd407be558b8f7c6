package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"gorm.io/gorm"

	"github.com/opensocialmonitor/vigil/dispatch"
	"github.com/opensocialmonitor/vigil/monitor"
	"github.com/opensocialmonitor/vigil/monitor/cachestore"
	"github.com/opensocialmonitor/vigil/monitor/countstore"
	"github.com/opensocialmonitor/vigil/monitor/flagstore"
	"github.com/opensocialmonitor/vigil/monitor/rules"
	"github.com/opensocialmonitor/vigil/monitor/setstore"
	"github.com/opensocialmonitor/vigil/platform/instagram"
	"github.com/opensocialmonitor/vigil/store"
)

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the monitoring service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the admin API",
			Value:   ":3993",
			EnvVars: []string{"VIGIL_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3994",
			EnvVars: []string{"VIGIL_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL; if empty, counters and flags are kept in memory",
			EnvVars: []string{"VIGIL_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "sets-json",
			Usage:   "file path of JSON file containing static sets (trusted accounts, promo domains)",
			EnvVars: []string{"VIGIL_SETS_JSON"},
		},
		&cli.StringFlag{
			Name:    "admin-token",
			Usage:   "bearer token for the admin API; if empty, admin routes are disabled",
			EnvVars: []string{"VIGIL_ADMIN_TOKEN"},
		},
		&cli.Float64Flag{
			Name:    "detection-threshold",
			Usage:   "likelihood at or above which a comment is recorded for review",
			Value:   0.6,
			EnvVars: []string{"VIGIL_DETECTION_THRESHOLD"},
		},
		&cli.IntFlag{
			Name:    "post-limit",
			Usage:   "number of recent posts to scan per account sweep",
			Value:   3,
			EnvVars: []string{"VIGIL_POST_LIMIT"},
		},
		&cli.IntFlag{
			Name:    "comment-limit",
			Usage:   "number of comments to fetch per post",
			Value:   20,
			EnvVars: []string{"VIGIL_COMMENT_LIMIT"},
		},
		&cli.DurationFlag{
			Name:    "check-interval",
			Usage:   "how stale an account's last sweep may be before it is re-queued",
			Value:   time.Hour,
			EnvVars: []string{"VIGIL_CHECK_INTERVAL"},
		},
		&cli.IntFlag{
			Name:    "parallel-jobs",
			Usage:   "number of scan jobs to run in parallel",
			Value:   2,
			EnvVars: []string{"VIGIL_PARALLEL_JOBS"},
		},
		&cli.Float64Flag{
			Name:    "jobs-per-second",
			Usage:   "max scan jobs started per second",
			Value:   1,
			EnvVars: []string{"VIGIL_JOBS_PER_SECOND"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				log.Fatal("failed to create trace exporter", "error", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("vigil"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		db, err := store.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}

		srv, err := NewServer(
			db,
			Config{
				Logger:             logger,
				InstagramUsername:  cctx.String("instagram-username"),
				InstagramPassword:  cctx.String("instagram-password"),
				RequestInterval:    cctx.Duration("request-interval"),
				SetsFileJSON:       cctx.String("sets-json"),
				RedisURL:           cctx.String("redis-url"),
				AdminToken:         cctx.String("admin-token"),
				Bind:               cctx.String("bind"),
				DetectionThreshold: cctx.Float64("detection-threshold"),
				PostLimit:          cctx.Int("post-limit"),
				CommentLimit:       cctx.Int("comment-limit"),
				CheckInterval:      cctx.Duration("check-interval"),
				ParallelJobs:       cctx.Int("parallel-jobs"),
				JobsPerSecond:      cctx.Float64("jobs-per-second"),
			},
		)
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run monitoring service: %w", err)
		}
		return nil
	},
}

type Server struct {
	logger     *slog.Logger
	db         *gorm.DB
	store      *store.Store
	engine     *monitor.Engine
	dispatcher *dispatch.Dispatcher
	jobStore   *dispatch.Gormstore
	rdb        *redis.Client
	httpd      *http.Server

	bind          string
	adminToken    string
	checkInterval time.Duration
}

type Config struct {
	InstagramUsername  string
	InstagramPassword  string
	RequestInterval    time.Duration
	SetsFileJSON       string
	RedisURL           string
	AdminToken         string
	Bind               string
	DetectionThreshold float64
	PostLimit          int
	CommentLimit       int
	CheckInterval      time.Duration
	ParallelJobs       int
	JobsPerSecond      float64
	Logger             *slog.Logger
}

func NewServer(db *gorm.DB, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if config.InstagramUsername == "" || config.InstagramPassword == "" {
		return nil, fmt.Errorf("operator credentials are required (instagram-username, instagram-password)")
	}

	sets := setstore.NewMemSetStore()
	if config.SetsFileJSON != "" {
		if err := sets.LoadFromFileJSON(config.SetsFileJSON); err != nil {
			return nil, fmt.Errorf("initializing in-process setstore: %v", err)
		} else {
			logger.Info("loaded set config from JSON", "path", config.SetsFileJSON)
		}
	}

	var counters countstore.CountStore
	var cache cachestore.CacheStore
	var flags flagstore.FlagStore
	var rdb *redis.Client
	if config.RedisURL != "" {
		// generic client, for health checks
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb = redis.NewClient(opt)
		// check redis connection
		_, err = rdb.Ping(context.TODO()).Result()
		if err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		counters = cnt

		csh, err := cachestore.NewRedisCacheStore(config.RedisURL, 30*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cachestore: %v", err)
		}
		cache = csh

		flg, err := flagstore.NewRedisFlagStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis flagstore: %v", err)
		}
		flags = flg
	} else {
		counters = countstore.NewMemCountStore()
		cache = cachestore.NewMemCacheStore(5_000, 30*time.Minute)
		flags = flagstore.NewMemFlagStore()
	}

	st, err := store.NewStore(db)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	if err := db.AutoMigrate(&dispatch.GormDBJob{}); err != nil {
		return nil, fmt.Errorf("migrating sweep queue: %w", err)
	}

	client := instagram.NewClient(instagram.Config{
		Username:        config.InstagramUsername,
		Password:        config.InstagramPassword,
		Logger:          logger,
		RequestInterval: config.RequestInterval,
	})

	engineConfig := monitor.DefaultEngineConfig()
	if config.DetectionThreshold > 0 {
		engineConfig.DetectionThreshold = config.DetectionThreshold
	}
	if config.PostLimit > 0 {
		engineConfig.PostLimit = config.PostLimit
	}
	if config.CommentLimit > 0 {
		engineConfig.CommentLimit = config.CommentLimit
	}

	engine := &monitor.Engine{
		Logger:   logger,
		Platform: client,
		Store:    st,
		Rules:    rules.DefaultRules(),
		Counters: counters,
		Sets:     sets,
		Cache:    cache,
		Flags:    flags,
		Config:   engineConfig,
	}

	jobStore := dispatch.NewGormstore(db)
	dispatcher := dispatch.NewDispatcher("vigil", jobStore, engine.SweepAccountPosts, engine.ProcessPostURL, &dispatch.Options{
		ParallelJobs:  config.ParallelJobs,
		JobsPerSecond: config.JobsPerSecond,
	})

	checkInterval := config.CheckInterval
	if checkInterval <= 0 {
		checkInterval = time.Hour
	}

	s := &Server{
		logger:        logger,
		db:            db,
		store:         st,
		engine:        engine,
		dispatcher:    dispatcher,
		jobStore:      jobStore,
		rdb:           rdb,
		bind:          config.Bind,
		adminToken:    config.AdminToken,
		checkInterval: checkInterval,
	}
	return s, nil
}

// Run brings up the platform session, the sweep dispatcher, the scheduler,
// and the admin API, then blocks until an exit signal arrives.
func (s *Server) Run(ctx context.Context) error {
	// everything downstream needs a live session, so fail fast here
	if err := s.engine.Platform.Login(ctx); err != nil {
		return fmt.Errorf("platform login failed: %w", err)
	}

	if err := s.jobStore.LoadJobs(ctx); err != nil {
		return fmt.Errorf("loading queued sweeps: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.dispatcher.Start()

	go func() {
		if err := s.RunScheduler(ctx); err != nil {
			s.logger.Error("scheduler stopped", "err", err)
		}
	}()

	go func() {
		if err := s.RunAPI(s.bind); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("admin API shutting down unexpectedly", "err", err)
			}
		}
	}()

	// Wait for a signal to exit.
	s.logger.Info("monitoring service running", "bind", s.bind)
	quit := make(chan struct{})
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		s.logger.Info("received OS exit signal", "signal", sig)

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := s.dispatcher.Stop(shutdownCtx); err != nil {
			s.logger.Error("dispatcher shutdown error", "err", err)
		}
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", "err", err)
		}

		close(quit)
	}()
	<-quit
	s.logger.Info("graceful shutdown complete")
	return nil
}

// RunScheduler re-queues sweeps for monitored accounts whose last check is
// older than the configured interval. One pass runs immediately so a fresh
// deploy does not sit idle for the first tick.
func (s *Server) RunScheduler(ctx context.Context) error {
	if err := s.enqueueDueAccounts(ctx); err != nil {
		s.logger.Error("scheduler pass failed", "err", err)
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.enqueueDueAccounts(ctx); err != nil {
				s.logger.Error("scheduler pass failed", "err", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Server) enqueueDueAccounts(ctx context.Context) error {
	due, err := s.store.DueAccounts(ctx, s.checkInterval)
	if err != nil {
		return err
	}
	for _, acct := range due {
		if err := s.dispatcher.EnqueueAccount(ctx, acct.Username); err != nil {
			s.logger.Error("failed to enqueue sweep", "username", acct.Username, "err", err)
		}
	}
	if len(due) > 0 {
		s.logger.Info("scheduled account sweeps", "count", len(due))
	}
	return nil
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}
