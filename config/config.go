package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("service_name", "keepalive-service")
	v.SetDefault("port", 8080)

	v.SetDefault("log.level", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)

	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.request_timeout", "5s")

	v.SetDefault("auth.provider", "google")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.tokeninfo_url", "https://www.googleapis.com/oauth2/v3/tokeninfo")
	v.SetDefault("auth.expiry_min", 30)

	v.SetDefault("registry.driver", "memory")
	v.SetDefault("registry.max_urls_per_user", 3)
	v.SetDefault("registry.allowed_domains", []string{"onrender.com", "vercel.app", "cyclic.app"})
	v.SetDefault("registry.operation_timeout", "3s")

	v.SetDefault("db.url", "")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.min_idle_conns", 2)
	v.SetDefault("db.conn_max_lifetime", "1h")
	v.SetDefault("db.conn_max_idle_time", "30m")
	v.SetDefault("db.health_timeout", "5s")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.conn_max_lifetime", "2m")
	v.SetDefault("redis.conn_max_idle_time", "30s")

	v.SetDefault("probe.timeout", "10s")
	v.SetDefault("probe.method", "GET")
	v.SetDefault("probe.health_path", "")
	v.SetDefault("probe.user_agent", "keepalive-prober/1.0")

	v.SetDefault("scheduler.base_interval", "10m")
	v.SetDefault("scheduler.retry_interval", "30s")
	v.SetDefault("scheduler.max_backoff", "5m")
	v.SetDefault("scheduler.initial_jitter", "30s")
	v.SetDefault("scheduler.saturation_delay", "5s")
	v.SetDefault("scheduler.workers", 16)
	v.SetDefault("scheduler.queue_size", 64)

	v.SetDefault("status.history_size", 10)

	v.SetDefault("alert.sink", "log")
	v.SetDefault("alert.workers", 2)
	v.SetDefault("alert.channel_size", 256)

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange_name", "keepalive")
	v.SetDefault("rabbitmq.exchange_type", "topic")
	v.SetDefault("rabbitmq.alert_routing_key", "keepalive.alert")
	v.SetDefault("rabbitmq.user_events_queue", "")
	v.SetDefault("rabbitmq.user_events_key", "user.deleted")
	v.SetDefault("rabbitmq.worker_count", 4)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "keepalive-alerts")
	v.SetDefault("kafka.client_id", "keepalive-alert-producer")
}

// validateDependencies checks settings that only matter for the selected
// drivers and sinks.
func validateDependencies(cfg *Config) error {
	var problems []string

	switch cfg.Registry.Driver {
	case "postgres":
		if cfg.DB.URL == "" {
			problems = append(problems, "db.url is required when registry.driver=postgres")
		}
	case "redis":
		if cfg.Redis.URL == "" {
			problems = append(problems, "redis.url is required when registry.driver=redis")
		}
	}

	switch cfg.Auth.Provider {
	case "jwt":
		if len(cfg.Auth.Secret) < 16 {
			problems = append(problems, "auth.secret must be at least 16 bytes when auth.provider=jwt")
		}
	case "google":
		if cfg.Auth.TokenInfoURL == "" {
			problems = append(problems, "auth.tokeninfo_url is required when auth.provider=google")
		}
	}

	switch cfg.Alert.Sink {
	case "rabbitmq":
		if cfg.RabbitMQ.URL == "" {
			problems = append(problems, "rabbitmq.url is required when alert.sink=rabbitmq")
		}
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
			problems = append(problems, "kafka.brokers and kafka.topic are required when alert.sink=kafka")
		}
	}

	if cfg.RabbitMQ.UserEventsQueue != "" && cfg.RabbitMQ.URL == "" {
		problems = append(problems, "rabbitmq.url is required when rabbitmq.user_events_queue is set")
	}

	if cfg.Scheduler.MaxBackoff > cfg.Scheduler.BaseInterval {
		problems = append(problems, "scheduler.max_backoff must not exceed scheduler.base_interval")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed:\n- %s", strings.Join(problems, "\n- "))
}
