package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Heartbeat  HeartbeatConfig
	Project    ProjectConfig
	Agents     AgentsConfig
	Server     ServerConfig
	Security   SecurityConfig
	Logging    LoggingConfig
	Redis      RedisConfig
	NATS       NATSConfig
	CloudWatch CloudWatchConfig
	Archive    ArchiveConfig
}

type HeartbeatConfig struct {
	MonitorURL     string
	APIKey         string
	SwarmID        string
	Interval       time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
	StopTimeout    time.Duration
	LogDir         string
}

type ProjectConfig struct {
	GitHubRepo            string
	GitHubToken           string
	GitHubAPIURL          string
	MaxPages              int
	CacheTTL              time.Duration
	FlagBlockedAfterHours int
	FlagFailuresThreshold int
	VelocityWindowDays    int
}

// Enabled сообщает, настроен ли репозиторий для трекинга задач
func (p ProjectConfig) Enabled() bool {
	return p.GitHubRepo != ""
}

type AgentsConfig struct {
	ProcessPattern string
}

type ServerConfig struct {
	Enabled         bool
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Addr возвращает адрес для http.Server
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
}

type LoggingConfig struct {
	Level string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type NATSConfig struct {
	Enabled       bool
	URL           string
	SubjectPrefix string
	StreamName    string
}

type CloudWatchConfig struct {
	MetricsEnabled  bool
	LogsEnabled     bool
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Namespace       string
	LogGroup        string
	LogStream       string
	FlushInterval   time.Duration
}

type ArchiveConfig struct {
	Enabled         bool
	Interval        time.Duration
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
}

// Load читает конфигурацию из окружения. Переданные dotenv-файлы загружаются
// первыми, отсутствующий файл не считается ошибкой.
func Load(envFiles ...string) (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load(envFiles...)

	var errs []string
	durationVar := func(key, def string) time.Duration {
		d, err := time.ParseDuration(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
		}
		return d
	}
	intVar := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
		}
		return v
	}

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "20"), 64)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RATE_LIMIT_RPS: %v", err))
	}

	cfg := &Config{
		Heartbeat: HeartbeatConfig{
			MonitorURL:     getEnv("HEARTBEAT_MONITOR_URL", ""),
			APIKey:         getEnv("HEARTBEAT_API_KEY", ""),
			SwarmID:        getEnv("HEARTBEAT_SWARM_ID", ""),
			Interval:       durationVar("HEARTBEAT_INTERVAL", "60s"),
			MaxRetries:     intVar("HEARTBEAT_MAX_RETRIES", 3),
			RetryDelay:     durationVar("HEARTBEAT_RETRY_DELAY", "5s"),
			RequestTimeout: durationVar("HEARTBEAT_REQUEST_TIMEOUT", "10s"),
			StopTimeout:    durationVar("HEARTBEAT_STOP_TIMEOUT", "5s"),
			LogDir:         getEnv("HEARTBEAT_LOG_DIR", "logs"),
		},
		Project: ProjectConfig{
			GitHubRepo:            getEnv("PROJECT_GITHUB_REPO", ""),
			GitHubToken:           getEnv("PROJECT_GITHUB_TOKEN", ""),
			GitHubAPIURL:          strings.TrimRight(getEnv("PROJECT_GITHUB_API_URL", "https://api.github.com"), "/"),
			MaxPages:              intVar("PROJECT_MAX_PAGES", 5),
			CacheTTL:              durationVar("PROJECT_CACHE_TTL", "5m"),
			FlagBlockedAfterHours: intVar("PROJECT_FLAG_BLOCKED_AFTER_HOURS", 24),
			FlagFailuresThreshold: intVar("PROJECT_FLAG_FAILURES_THRESHOLD", 3),
			VelocityWindowDays:    intVar("PROJECT_VELOCITY_WINDOW_DAYS", 7),
		},
		Agents: AgentsConfig{
			ProcessPattern: getEnv("AGENT_PROCESS_PATTERN", "agent"),
		},
		Server: ServerConfig{
			Enabled:         getEnvBool("SERVER_ENABLED", true),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "*")),
			AuthEnabled:    getEnvBool("AUTH_ENABLED", false),
			APIKey:         getEnv("AUTH_API_KEY", ""),
			RateLimitRPS:   rps,
			RateLimitBurst: intVar("RATE_LIMIT_BURST", 40),
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       intVar("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			Enabled:       getEnvBool("NATS_ENABLED", false),
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "swarm.heartbeat"),
			StreamName:    getEnv("NATS_STREAM", "SWARM_HEARTBEAT"),
		},
		CloudWatch: CloudWatchConfig{
			MetricsEnabled:  getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			LogsEnabled:     getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			Region:          getEnv("CLOUDWATCH_REGION", "us-east-1"),
			Endpoint:        getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:     getEnv("CLOUDWATCH_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("CLOUDWATCH_SECRET_ACCESS_KEY", ""),
			Namespace:       getEnv("CLOUDWATCH_NAMESPACE", "SwarmHeartbeat"),
			LogGroup:        getEnv("CLOUDWATCH_LOG_GROUP", "/swarm-heartbeat/agent"),
			LogStream:       getEnv("CLOUDWATCH_LOG_STREAM", ""),
			FlushInterval:   durationVar("CLOUDWATCH_FLUSH_INTERVAL", "30s"),
		},
		Archive: ArchiveConfig{
			Enabled:         getEnvBool("ARCHIVE_ENABLED", false),
			Interval:        durationVar("ARCHIVE_INTERVAL", "1h"),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       strings.Trim(getEnv("S3_KEY_PREFIX", "heartbeat"), "/"),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}

	if cfg.Heartbeat.SwarmID == "" {
		cfg.Heartbeat.SwarmID = DefaultSwarmID(time.Now())
	}
	if cfg.CloudWatch.LogStream == "" {
		cfg.CloudWatch.LogStream = cfg.Heartbeat.SwarmID
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	switch {
	case c.Heartbeat.Interval <= 0:
		return fmt.Errorf("HEARTBEAT_INTERVAL must be positive")
	case c.Heartbeat.MaxRetries < 1:
		return fmt.Errorf("HEARTBEAT_MAX_RETRIES must be at least 1")
	case c.Heartbeat.RetryDelay < 0:
		return fmt.Errorf("HEARTBEAT_RETRY_DELAY must not be negative")
	case c.Heartbeat.RequestTimeout <= 0:
		return fmt.Errorf("HEARTBEAT_REQUEST_TIMEOUT must be positive")
	case c.Heartbeat.StopTimeout <= 0:
		return fmt.Errorf("HEARTBEAT_STOP_TIMEOUT must be positive")
	case c.Project.VelocityWindowDays < 1:
		return fmt.Errorf("PROJECT_VELOCITY_WINDOW_DAYS must be at least 1")
	case c.Project.MaxPages < 1:
		return fmt.Errorf("PROJECT_MAX_PAGES must be at least 1")
	case c.Project.FlagBlockedAfterHours < 0 || c.Project.FlagFailuresThreshold < 0:
		return fmt.Errorf("PROJECT_FLAG_* thresholds must not be negative")
	case c.Security.AuthEnabled && c.Security.APIKey == "":
		return fmt.Errorf("AUTH_API_KEY is required when AUTH_ENABLED=true")
	case c.Archive.Enabled && c.Archive.Bucket == "":
		return fmt.Errorf("S3_BUCKET is required when ARCHIVE_ENABLED=true")
	case c.Archive.Enabled && c.Archive.Interval <= 0:
		return fmt.Errorf("ARCHIVE_INTERVAL must be positive")
	}
	return nil
}

// DefaultSwarmID строит идентификатор вида <hostname>-<unix seconds>
func DefaultSwarmID(now time.Time) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "swarm"
	}
	return fmt.Sprintf("%s-%d", host, now.Unix())
}

func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}
