package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/edvin/searchvault/internal/activity"
	"github.com/edvin/searchvault/internal/config"
	"github.com/edvin/searchvault/internal/db"
	"github.com/edvin/searchvault/internal/indexbackup"
	"github.com/edvin/searchvault/internal/logging"
	"github.com/edvin/searchvault/internal/metrics"
	"github.com/edvin/searchvault/internal/objectstore"
	"github.com/edvin/searchvault/internal/queue"
	"github.com/edvin/searchvault/internal/search"
	svworker "github.com/edvin/searchvault/internal/worker"
	"github.com/edvin/searchvault/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg, "worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	endpoints, err := cfg.LoadSearchEndpoints()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load search endpoints")
	}
	searchClient := search.NewClient(endpoints, cfg.SearchAPIVersion)

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to queue database")
	}
	defer pool.Close()

	store := objectstore.NewS3Store(logger, objectstore.S3Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	q := queue.New(pool)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterQueuePoolMetrics(reg, pool)
	pipeline := metrics.NewPipeline(reg)

	backupJob := indexbackup.NewBackupJob(searchClient, store, logger, pipeline)
	restoreJob := indexbackup.NewRestoreJob(searchClient, store, logger, pipeline)

	poller := svworker.NewPoller(q, svworker.PollerOptions{
		PollInterval:      cfg.QueuePollInterval,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		MaxDequeueCount:   cfg.QueueMaxDequeueCount,
	}, pipeline, logger)
	poller.Register(cfg.BackupQueue, svworker.NewBackupHandler(backupJob, searchClient, q, cfg.BackupQueue, pipeline, logger))
	poller.Register(cfg.RestoreQueue, svworker.NewRestoreHandler(restoreJob, searchClient, q, cfg.RestoreQueue, pipeline, logger))

	tlsConfig, err := cfg.TemporalTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal TLS")
	}
	dialOpts := temporalclient.Options{HostPort: cfg.TemporalAddress}
	if tlsConfig != nil {
		dialOpts.ConnectionOptions = temporalclient.ConnectionOptions{TLS: tlsConfig}
		logger.Info().Msg("temporal mTLS enabled")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, workflow.TaskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{&workflow.ErrorTypingInterceptor{}},
	})

	fanOut := indexbackup.NewFanOut(searchClient, q, cfg.BackupQueue, logger)
	w.RegisterActivity(activity.NewSweep(fanOut))
	w.RegisterWorkflow(workflow.BackupSweepWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr, reg, pool.Ping)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", workflow.TaskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	// Errors for already-existing schedules are ignored so that re-deploys
	// do not fail.
	registerCronSchedules(ctx, tc, cfg, logger)

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		logger.Info().Str("backup_queue", cfg.BackupQueue).Str("restore_queue", cfg.RestoreQueue).Msg("starting queue poller")
		if err := poller.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("queue poller stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
	<-pollerDone
}

type cronSchedule struct {
	id       string
	cron     string
	workflow interface{}
	args     []interface{}
}

func registerCronSchedules(ctx context.Context, tc temporalclient.Client, cfg *config.Config, logger zerolog.Logger) {
	schedules := []cronSchedule{
		{
			id:       "backup-sweep-cron",
			cron:     cfg.BackupSweepCron,
			workflow: workflow.BackupSweepWorkflow,
		},
	}

	scheduleClient := tc.ScheduleClient()

	for _, s := range schedules {
		_, err := scheduleClient.Create(ctx, temporalclient.ScheduleOptions{
			ID: s.id,
			Spec: temporalclient.ScheduleSpec{
				CronExpressions: []string{s.cron},
			},
			Action: &temporalclient.ScheduleWorkflowAction{
				ID:        s.id,
				Workflow:  s.workflow,
				Args:      s.args,
				TaskQueue: workflow.TaskQueue,
			},
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already registered") {
				logger.Info().Str("id", s.id).Msg("cron schedule already exists, skipping")
			} else {
				logger.Fatal().Err(err).Str("id", s.id).Msg("failed to create cron schedule")
			}
		} else {
			logger.Info().Str("id", s.id).Str("cron", s.cron).Msg("created cron schedule")
		}
	}
}
