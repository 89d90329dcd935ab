package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Application
	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
	"github.com/dreschagin/swarm-heartbeat/internal/application/usecase"

	// Domain
	"github.com/dreschagin/swarm-heartbeat/internal/domain/service"

	// Infrastructure
	"github.com/dreschagin/swarm-heartbeat/internal/infrastructure/awsclient"
	issueCache "github.com/dreschagin/swarm-heartbeat/internal/infrastructure/cache/issues"
	redisCache "github.com/dreschagin/swarm-heartbeat/internal/infrastructure/cache/redis"
	"github.com/dreschagin/swarm-heartbeat/internal/infrastructure/collector"
	"github.com/dreschagin/swarm-heartbeat/internal/infrastructure/delivery"
	"github.com/dreschagin/swarm-heartbeat/internal/infrastructure/github"
	natsInfra "github.com/dreschagin/swarm-heartbeat/internal/infrastructure/messaging/nats"
	"github.com/dreschagin/swarm-heartbeat/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/swarm-heartbeat/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/swarm-heartbeat/internal/infrastructure/persistence/jsonl"

	// Shared
	"github.com/dreschagin/swarm-heartbeat/pkg/config"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

const diskPath = "/"

// agent компоненты, общие для всех команд
type agent struct {
	cfg       *config.Config
	log       *logger.Logger
	registry  *prometheus.Registry
	telemetry *metrics.Metrics
	engine    *service.ProjectForecastEngine
	issues    port.IssueProvider
	agents    *collector.AgentProcessCollector
	collect   *usecase.CollectMetricsUseCase
	journal   *jsonl.SnapshotLog
	delivery  *delivery.HTTPDeliveryClient

	metricsPublisher *cloudwatch.MetricsPublisher
	logsPublisher    *cloudwatch.LogsPublisher
	eventPublisher   *natsInfra.SnapshotPublisher
	shared           *redisCache.RedisCache
}

// newAgent собирает зависимости. Необязательные интеграции, которые не удалось
// поднять, выключаются с предупреждением, кроме явно включенного CloudWatch
func newAgent(ctx context.Context, cfg *config.Config, log *logger.Logger) (*agent, error) {
	a := &agent{cfg: cfg, log: log}

	// Prometheus
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.telemetry = metrics.New(a.registry)

	// CloudWatch Logs подключаем первым, чтобы последующие сообщения тоже ушли
	if cfg.CloudWatch.LogsEnabled {
		publisher, err := cloudwatch.NewLogsPublisher(ctx, cloudwatch.LogsPublisherConfig{
			AWS:           a.awsSettings(),
			LogGroupName:  cfg.CloudWatch.LogGroup,
			LogStreamName: cfg.CloudWatch.LogStream,
			FlushInterval: cfg.CloudWatch.FlushInterval,
			AutoCreate:    true,
		})
		if err != nil {
			return nil, err
		}
		a.logsPublisher = publisher
		log.SetLogPublisher(publisher)
		log.Info("CloudWatch logs publisher initialized", "log_group", cfg.CloudWatch.LogGroup)
	}

	if cfg.CloudWatch.MetricsEnabled {
		publisher, err := cloudwatch.NewMetricsPublisher(ctx, cloudwatch.MetricsPublisherConfig{
			AWS:           a.awsSettings(),
			Namespace:     cfg.CloudWatch.Namespace,
			SwarmID:       cfg.Heartbeat.SwarmID,
			FlushInterval: cfg.CloudWatch.FlushInterval,
		}, log)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.metricsPublisher = publisher
		log.Info("CloudWatch metrics publisher initialized", "namespace", cfg.CloudWatch.Namespace)
	}

	// Domain
	a.engine = service.NewProjectForecastEngine(cfg.Project.VelocityWindowDays, service.InterventionThresholds{
		BlockedAfterHours: cfg.Project.FlagBlockedAfterHours,
		FailuresThreshold: cfg.Project.FlagFailuresThreshold,
	})

	// Issue tracking
	if cfg.Project.Enabled() {
		a.issues = a.newIssueCache(ctx)
		log.Info("GitHub project tracking enabled", "repository", cfg.Project.GitHubRepo)
	} else {
		log.Info("GitHub project tracking disabled, PROJECT_GITHUB_REPO is not set")
	}

	// Collectors
	a.agents = collector.NewAgentProcessCollector(cfg.Agents.ProcessPattern)
	a.collect = usecase.NewCollectMetricsUseCase(
		cfg.Heartbeat.SwarmID,
		collector.NewSystemMetricsCollector(diskPath),
		collector.NewHostCollector(version),
		a.agents,
		a.issues,
		a.engine,
		log,
	)

	a.journal = jsonl.NewSnapshotLog(cfg.Heartbeat.LogDir, a.telemetry, log)
	a.delivery = delivery.NewHTTPDeliveryClient(delivery.Config{
		Endpoint:   cfg.Heartbeat.MonitorURL,
		APIKey:     cfg.Heartbeat.APIKey,
		MaxRetries: cfg.Heartbeat.MaxRetries,
		RetryDelay: cfg.Heartbeat.RetryDelay,
		Timeout:    cfg.Heartbeat.RequestTimeout,
	}, a.telemetry, log)

	return a, nil
}

// newIssueCache возвращает port.IssueProvider, а не *IssueCache,
// чтобы выключенная интеграция оставалась настоящим nil
func (a *agent) newIssueCache(ctx context.Context) port.IssueProvider {
	opts := issueCache.Options{
		Source: github.NewIssueSource(github.Config{
			BaseURL:  a.cfg.Project.GitHubAPIURL,
			Token:    a.cfg.Project.GitHubToken,
			MaxPages: a.cfg.Project.MaxPages,
		}, a.log),
		Repository: a.cfg.Project.GitHubRepo,
		SharedTTL:  a.cfg.Project.CacheTTL,
		Telemetry:  a.telemetry,
	}

	if a.cfg.Redis.Enabled {
		shared, err := redisCache.NewRedisCache(ctx, redisCache.Options{
			Addr:      a.cfg.Redis.Addr(),
			Password:  a.cfg.Redis.Password,
			DB:        a.cfg.Redis.DB,
			KeyPrefix: "swarm-heartbeat",
		})
		if err != nil {
			a.log.Warn("Failed to connect to Redis, continuing with in-process issue cache", "error", err.Error())
		} else {
			a.shared = shared
			opts.Shared = shared
			a.log.Info("Shared issue cache enabled", "addr", a.cfg.Redis.Addr())
		}
	}

	return issueCache.NewIssueCache(opts, a.log)
}

// sinks дополнительные получатели снимка цикла. notifier может быть nil
func (a *agent) sinks(notifier port.NotificationService) usecase.CycleSinks {
	sinks := usecase.CycleSinks{Notifier: notifier}

	if a.metricsPublisher != nil {
		sinks.Metrics = a.metricsPublisher
	}

	if a.cfg.NATS.Enabled && a.eventPublisher == nil {
		publisher, err := natsInfra.NewSnapshotPublisher(natsInfra.Options{
			URL:           a.cfg.NATS.URL,
			SubjectPrefix: a.cfg.NATS.SubjectPrefix,
			StreamName:    a.cfg.NATS.StreamName,
		}, a.log)
		if err != nil {
			a.log.Warn("Failed to connect to NATS, continuing without event publishing", "error", err.Error())
		} else {
			a.eventPublisher = publisher
			a.log.Info("NATS snapshot publisher initialized", "url", a.cfg.NATS.URL)
		}
	}
	if a.eventPublisher != nil {
		sinks.Events = a.eventPublisher
	}

	return sinks
}

// cycle создает use case одного цикла heartbeat
func (a *agent) cycle(notifier port.NotificationService) *usecase.RunHeartbeatCycleUseCase {
	return usecase.NewRunHeartbeatCycleUseCase(a.collect, a.delivery, a.journal, a.sinks(notifier), a.telemetry, a.log)
}

func (a *agent) awsSettings() awsclient.Settings {
	return awsclient.Settings{
		Region:          a.cfg.CloudWatch.Region,
		Endpoint:        a.cfg.CloudWatch.Endpoint,
		AccessKeyID:     a.cfg.CloudWatch.AccessKeyID,
		SecretAccessKey: a.cfg.CloudWatch.SecretAccessKey,
	}
}

// close сбрасывает буферы и закрывает соединения. Logs publisher закрывается последним
func (a *agent) close(ctx context.Context) {
	if a.metricsPublisher != nil {
		a.log.Info("Flushing CloudWatch metrics buffer...")
		if err := a.metricsPublisher.Close(ctx); err != nil {
			a.log.Error("Failed to flush CloudWatch metrics", err)
		}
	}

	if a.eventPublisher != nil {
		if err := a.eventPublisher.Close(); err != nil {
			a.log.Warn("Failed to close NATS connection", "error", err.Error())
		}
	}

	if a.shared != nil {
		if err := a.shared.Close(); err != nil {
			a.log.Warn("Failed to close Redis connection", "error", err.Error())
		}
	}

	if a.logsPublisher != nil {
		a.log.SetLogPublisher(nil)
		if err := a.logsPublisher.Close(ctx); err != nil {
			a.log.Error("Failed to flush CloudWatch logs", err, "dropped", a.logsPublisher.Dropped())
		}
	}
}

// shutdownContext контекст с таймаутом для завершения работы
func shutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
