package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DriverdConfig captures all tunable parameters for the driver companion
// daemon. Values are primarily loaded from environment variables with sane
// defaults so the binary can run locally without excessive setup.
type DriverdConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BackendURL   string
	BackendToken string
	DriverID     string

	PollInterval    time.Duration
	PollBackoffBase time.Duration
	PollMaxRetries  int
	ArrivalRadiusM  float64
	RouteThrottle   time.Duration
	RoutingEndpoint string
	RequestTimeout  time.Duration
	AlertWebhookURL string

	RedisAddr        string
	RedisPassword    string
	RedisSnapshotKey string

	KafkaBrokers []string
	KafkaTopic   string

	PGDSN string

	LogLevel string
}

func defaultDriverdConfig() DriverdConfig {
	return DriverdConfig{
		HTTPAddr:         ":8090",
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     10 * time.Second,
		IdleTimeout:      120 * time.Second,
		ShutdownTimeout:  15 * time.Second,
		PollInterval:     5 * time.Second,
		PollBackoffBase:  time.Second,
		PollMaxRetries:   3,
		ArrivalRadiusM:   100,
		RouteThrottle:    30 * time.Second,
		RequestTimeout:   4 * time.Second,
		RedisSnapshotKey: "driverd:snapshot",
		KafkaTopic:       "driver-positions",
		LogLevel:         "info",
	}
}

func LoadDriverdConfig() (DriverdConfig, error) {
	cfg := defaultDriverdConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.BackendURL = strings.TrimSpace(os.Getenv("BACKEND_URL"))
	cfg.BackendToken = os.Getenv("BACKEND_TOKEN")
	cfg.DriverID = strings.TrimSpace(os.Getenv("DRIVER_ID"))

	setDurationFromEnv(&cfg.PollInterval, "POLL_INTERVAL", &errs)
	setDurationFromEnv(&cfg.PollBackoffBase, "POLL_BACKOFF_BASE", &errs)
	setIntFromEnv(&cfg.PollMaxRetries, "POLL_MAX_RETRIES", &errs)
	setFloatFromEnv(&cfg.ArrivalRadiusM, "ARRIVAL_RADIUS_M", &errs)
	setDurationFromEnv(&cfg.RouteThrottle, "ROUTE_THROTTLE", &errs)
	setStringFromEnv(&cfg.RoutingEndpoint, "OSRM_ENDPOINT")
	setDurationFromEnv(&cfg.RequestTimeout, "REQUEST_TIMEOUT", &errs)
	setStringFromEnv(&cfg.AlertWebhookURL, "ALERT_WEBHOOK_URL")

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisSnapshotKey, "REDIS_SNAPSHOT_KEY")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.BackendURL == "" {
		errs = append(errs, fmt.Errorf("BACKEND_URL is required"))
	}
	if cfg.DriverID == "" {
		errs = append(errs, fmt.Errorf("DRIVER_ID is required"))
	}
	if cfg.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be > 0"))
	}
	if cfg.ArrivalRadiusM <= 0 {
		errs = append(errs, fmt.Errorf("ARRIVAL_RADIUS_M must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
