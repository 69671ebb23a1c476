package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-lab/go/flagx"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"ncov-dump/internal/middleware/logger"
	"ncov-dump/internal/middleware/metrics"
	"ncov-dump/internal/ncov_dump/api"
	"ncov-dump/internal/ncov_dump/fetcher"
	"ncov-dump/internal/ncov_dump/helper"
	"ncov-dump/internal/ncov_dump/processor"
	"ncov-dump/internal/ncov_dump/publisher"
	"ncov-dump/internal/ncov_dump/scheduler"
	"ncov-dump/internal/ncov_dump/snapshot"
	"ncov-dump/pkg/config"
)

var (
	configPath = flag.String("config", "config/config.yaml", "Path to the YAML config file")
	envFile    = flag.String("env-file", "", "Optional .env file with MONGO_PASSWORD / GIT_TOKEN")
	once       = flag.Bool("once", false, "Run a single pass and exit")
)

func main() {
	flag.Parse()
	// 每个参数也可以用环境变量提供，例如 CONFIG、ONCE
	if err := flagx.ArgsFromEnv(flag.CommandLine); err != nil {
		panic(err)
	}
	if *envFile != "" {
		if err := gotenv.Load(*envFile); err != nil {
			panic(err)
		}
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log.Development, cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting nCoV dump service...", zap.String("config", *configPath))
	loc, err := helper.LoadTimeLocation(cfg.Timezone)
	if err != nil {
		panic(err)
	}

	stores := helper.MustMongo(
		ctx,
		cfg.Mongo.Host,
		cfg.Mongo.DBName,
		cfg.Mongo.Username,
		cfg.Mongo.Password,
		cfg.Mongo.AuthSource,
	)
	defer func() {
		if err := stores.Client.Disconnect(context.Background()); err != nil {
			log.Warn("Failed to disconnect mongo", zap.Error(err))
		}
	}()

	names := make([]string, 0, len(cfg.Collections))
	for _, c := range cfg.Collections {
		names = append(names, c.Name)
	}
	if err := stores.EnsureIndexes(ctx, names); err != nil {
		log.Warn("Failed to ensure indexes", zap.Error(err))
	}

	m := metrics.New()
	status := scheduler.NewStatus(cfg.Collections)
	snapshots := snapshot.NewStore(log, cfg.Output.Dir)

	f := fetcher.NewFetcher(log, &http.Client{Timeout: cfg.Upstream.Timeout}, cfg.Upstream.BaseURL)
	f.Retry.Interval = cfg.Upstream.RetryInterval
	f.Retry.MaxAttempts = cfg.Upstream.MaxAttempts
	f.Metrics = m

	pub, err := publisher.New(ctx, log, publisher.Config{
		Kind:           cfg.Publish.Kind,
		OutputDir:      cfg.Output.Dir,
		GitDir:         cfg.Publish.Git.Dir,
		GitRemote:      cfg.Publish.Git.Remote,
		GitPush:        *cfg.Publish.Git.Push,
		GitAuthorName:  cfg.Publish.Git.AuthorName,
		GitAuthorEmail: cfg.Publish.Git.AuthorEmail,
		GitUsername:    cfg.Publish.Git.Username,
		GitToken:       cfg.Publish.Git.Token,
		GCSBucket:      cfg.Publish.GCS.Bucket,
		GCSPrefix:      cfg.Publish.GCS.Prefix,
	})
	if err != nil {
		panic(err)
	}

	worker := &scheduler.Worker{
		Log:         log,
		Collections: cfg.Collections,
		Fetcher:     f,
		Snapshots:   snapshots,
		Dumper:      processor.NewDumper(log, helper.NewMongoStore(stores.DB), cfg.Output.Dir, loc),
		Publisher:   pub,
		Interval:    cfg.Schedule.Interval,
		Metrics:     m,
		Status:      status,
	}

	if *once {
		if _, err := worker.RunOnce(ctx); err != nil {
			log.Error("Pass failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if cfg.HTTP.Address != "" {
		srv := &api.Server{
			Log:         log,
			Status:      status,
			Snapshots:   snapshots,
			Collections: cfg.Collections,
			Metrics:     m,
		}
		r := srv.Router()
		_ = r.SetTrustedProxies(nil)
		httpServer := &http.Server{Addr: cfg.HTTP.Address, Handler: r}
		go func() {
			log.Info("Status API is running", zap.String("address", cfg.HTTP.Address))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Status API stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Worker stopped", zap.Error(err))
	}
	log.Info("nCoV dump service stopped")
}
