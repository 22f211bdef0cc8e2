package config

import "time"

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

type HTTPConfig struct {
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

type AuthConfig struct {
	Provider     string `mapstructure:"provider" validate:"required,oneof=google jwt"`
	Secret       string `mapstructure:"secret"`
	TokenInfoURL string `mapstructure:"tokeninfo_url" validate:"omitempty,url"`
	ExpiryMin    int    `mapstructure:"expiry_min" validate:"gte=1"`
}

type RegistryConfig struct {
	Driver           string        `mapstructure:"driver" validate:"required,oneof=memory postgres redis"`
	MaxURLsPerUser   int           `mapstructure:"max_urls_per_user" validate:"gte=1"`
	AllowedDomains   []string      `mapstructure:"allowed_domains" validate:"required,min=1,dive,hostname"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" validate:"gt=0"`
}

type DBConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int32         `mapstructure:"max_open_conns" validate:"gte=1"`
	MinIdleConns    int32         `mapstructure:"min_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	HealthTimeout   time.Duration `mapstructure:"health_timeout" validate:"gt=0"`
}

type RedisConfig struct {
	URL             string        `mapstructure:"url"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type ProbeConfig struct {
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Method     string        `mapstructure:"method" validate:"oneof=GET HEAD"`
	HealthPath string        `mapstructure:"health_path" validate:"omitempty,startswith=/"`
	UserAgent  string        `mapstructure:"user_agent"`
}

type SchedulerConfig struct {
	BaseInterval    time.Duration `mapstructure:"base_interval" validate:"gt=0"`
	RetryInterval   time.Duration `mapstructure:"retry_interval" validate:"gt=0"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff" validate:"gt=0"`
	InitialJitter   time.Duration `mapstructure:"initial_jitter" validate:"gte=0"`
	SaturationDelay time.Duration `mapstructure:"saturation_delay" validate:"gt=0"`
	Workers         int           `mapstructure:"workers" validate:"gte=1"`
	QueueSize       int           `mapstructure:"queue_size" validate:"gte=1"`
}

type StatusConfig struct {
	HistorySize int `mapstructure:"history_size" validate:"gte=1"`
}

type AlertConfig struct {
	Sink        string `mapstructure:"sink" validate:"oneof=log rabbitmq kafka"`
	Workers     int    `mapstructure:"workers" validate:"gte=1"`
	ChannelSize int    `mapstructure:"channel_size" validate:"gte=1"`
}

type RabbitMQConfig struct {
	URL             string `mapstructure:"url"`
	ExchangeName    string `mapstructure:"exchange_name"`
	ExchangeType    string `mapstructure:"exchange_type" validate:"omitempty,oneof=direct topic fanout"`
	AlertRoutingKey string `mapstructure:"alert_routing_key"`
	UserEventsQueue string `mapstructure:"user_events_queue"`
	UserEventsKey   string `mapstructure:"user_events_key"`
	WorkerCount     int    `mapstructure:"worker_count" validate:"gte=1"`
}

type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

type Config struct {
	Port        int    `mapstructure:"port" validate:"gte=1,lte=65535"`
	Env         string `mapstructure:"env" validate:"required"`
	ServiceName string `mapstructure:"service_name" validate:"required"`

	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Status    StatusConfig    `mapstructure:"status"`
	Alert     AlertConfig     `mapstructure:"alert"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
}
