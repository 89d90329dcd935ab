package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreschagin/swarm-heartbeat/internal/application/scheduler"
	"github.com/dreschagin/swarm-heartbeat/internal/application/usecase"
	wsInfra "github.com/dreschagin/swarm-heartbeat/internal/infrastructure/notification/websocket"
	s3storage "github.com/dreschagin/swarm-heartbeat/internal/infrastructure/storage/s3"
	httpInterface "github.com/dreschagin/swarm-heartbeat/internal/interfaces/http"
	"github.com/dreschagin/swarm-heartbeat/internal/interfaces/http/handler"
	"github.com/dreschagin/swarm-heartbeat/internal/interfaces/http/middleware"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the heartbeat scheduler and REST API until interrupted",
		Long: `Run starts the heartbeat scheduler (first cycle immediately, then every
HEARTBEAT_INTERVAL), the REST API with the /ws snapshot stream and, when
enabled, the S3 archiver. SIGINT or SIGTERM stops everything gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAgent(cmd.Context(), opts)
		},
	}
}

func runAgent(parent context.Context, opts *rootOptions) error {
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}
	log.Info("Starting swarm heartbeat agent", "version", version, "interval", cfg.Heartbeat.Interval.String())
	if cfg.Heartbeat.MonitorURL == "" {
		log.Warn("HEARTBEAT_MONITOR_URL is not set, snapshots will only be persisted locally")
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newAgent(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize agent", err)
		return err
	}

	// WebSocket Hub
	hub := wsInfra.NewHub(log)
	go hub.Run(ctx)

	cycle := a.cycle(hub)
	sched := scheduler.NewHeartbeatScheduler(cycle, scheduler.Config{
		SwarmID:     cfg.Heartbeat.SwarmID,
		MonitorURL:  cfg.Heartbeat.MonitorURL,
		GitHubRepo:  cfg.Project.GitHubRepo,
		Interval:    cfg.Heartbeat.Interval,
		StopTimeout: cfg.Heartbeat.StopTimeout,
	}, log)
	// Планировщик останавливает только sched.Stop(), сигнал не обрывает текущую доставку
	sched.Start(context.WithoutCancel(ctx))

	if cfg.Archive.Enabled {
		archiveUC, err := newArchiveUseCase(ctx, a)
		if err != nil {
			log.Warn("Failed to initialize S3 archive, continuing without it", "error", err.Error())
		} else {
			go runArchiveLoop(ctx, archiveUC, cfg.Archive.Interval, a)
		}
	}

	var server *http.Server
	serverErr := make(chan error, 1)
	if cfg.Server.Enabled {
		server = &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      newRouter(a, cycle, sched, hub).Setup(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}

		go func() {
			log.Info("HTTP server starting", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, starting graceful shutdown...")
	case runErr = <-serverErr:
		log.Error("HTTP server failed", runErr)
	}
	stop()

	sched.Stop()

	shutdownCtx, cancel := shutdownContext(cfg.Server.ShutdownTimeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", err)
		}
	}
	a.close(shutdownCtx)

	log.Info("Agent stopped gracefully")
	return runErr
}

func newRouter(
	a *agent,
	cycle *usecase.RunHeartbeatCycleUseCase,
	sched *scheduler.HeartbeatScheduler,
	hub *wsInfra.Hub,
) *httpInterface.Router {
	log := a.log
	return httpInterface.NewRouter(
		handler.NewHeartbeatAPIHandler(
			a.cfg.Heartbeat.SwarmID,
			usecase.NewGetCurrentSnapshotUseCase(cycle, a.collect, log),
			sched,
			log,
		),
		handler.NewProjectAPIHandler(
			usecase.NewGetProjectCompletionUseCase(a.issues, a.engine, log),
			usecase.NewListIssuesUseCase(a.issues, a.engine, log),
			usecase.NewGetAgentActivityUseCase(a.agents, log),
			log,
		),
		handler.NewSnapshotAPIHandler(usecase.NewReadSnapshotHistoryUseCase(a.journal, log), log),
		handler.NewWebSocketHandler(hub, middleware.NewOriginPolicy(a.cfg.Security.AllowedOrigins), log),
		a.telemetry,
		a.registry,
		a.cfg.Security,
		log,
	)
}

func newArchiveUseCase(ctx context.Context, a *agent) (*usecase.ArchiveSnapshotLogsUseCase, error) {
	storage, err := s3storage.NewArchiveStorage(ctx, s3storage.Config{
		Bucket:          a.cfg.Archive.Bucket,
		Region:          a.cfg.Archive.Region,
		Endpoint:        a.cfg.Archive.Endpoint,
		AccessKeyID:     a.cfg.Archive.AccessKeyID,
		SecretAccessKey: a.cfg.Archive.SecretAccessKey,
		UsePathStyle:    a.cfg.Archive.UsePathStyle,
	})
	if err != nil {
		return nil, err
	}

	a.log.Info("S3 archive enabled", "bucket", a.cfg.Archive.Bucket, "interval", a.cfg.Archive.Interval.String())
	return usecase.NewArchiveSnapshotLogsUseCase(a.journal, storage, usecase.ArchiveSnapshotLogsConfig{
		KeyPrefix: a.cfg.Archive.KeyPrefix,
		SwarmID:   a.cfg.Heartbeat.SwarmID,
	}, a.log), nil
}

// runArchiveLoop выгружает завершенные журналы сразу и затем каждые interval
func runArchiveLoop(ctx context.Context, uc *usecase.ArchiveSnapshotLogsUseCase, interval time.Duration, a *agent) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := uc.Execute(ctx)
		if err != nil && ctx.Err() == nil {
			a.log.Error("Snapshot log archive pass failed", err)
		} else if result.Uploaded > 0 || result.Failed > 0 {
			a.log.Info("Snapshot log archive pass finished",
				"uploaded", result.Uploaded,
				"skipped", result.Skipped,
				"failed", result.Failed,
			)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
