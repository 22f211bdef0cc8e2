package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"keepalive/config"
	"keepalive/internals/identity"
	middle "keepalive/internals/middleware"
	"keepalive/internals/modules/account"
	"keepalive/internals/modules/alert"
	"keepalive/internals/modules/prober"
	"keepalive/internals/modules/registry"
	"keepalive/internals/modules/scheduler"
	"keepalive/internals/modules/status"
	"keepalive/internals/modules/urls"
	"keepalive/pkg/db"
	"keepalive/pkg/httpclient"
	"keepalive/pkg/kafka"
	"keepalive/pkg/metrics"
	"keepalive/pkg/rabbitmq"
	"keepalive/pkg/redisstore"
)

const identityTimeout = 10 * time.Second

type Container struct {
	Config   *config.Config
	Logger   *zerolog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// infra, nil when the configuration does not need it
	DB            *pgxpool.Pool
	RedisClient   *redisstore.Client
	AMQPConn      *amqp091.Connection
	amqpPublisher *rabbitmq.Publisher
	kafkaProducer *kafka.Producer
	Consumer      *rabbitmq.Consumer

	registrySvc  *registry.Service
	aggregator   *status.Aggregator
	scheduler    *scheduler.Scheduler
	alertSvc     *alert.AlertService
	eventHandler *account.EventHandler
	authMW       *middle.AuthMiddleware
	urlHandler   *urls.Handler

	wg sync.WaitGroup
}

func NewContainer(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Gatherer = promReg
	c.Metrics = metrics.New(promReg)

	store, err := c.registryStore(ctx)
	if err != nil {
		c.closeInfra()
		return nil, err
	}

	if cfg.UsesRabbitMQ() {
		if err := c.connectRabbitMQ(); err != nil {
			c.closeInfra()
			return nil, err
		}
	}

	publisher, err := c.alertPublisher()
	if err != nil {
		c.closeInfra()
		return nil, err
	}

	policy := registry.NewPolicy(cfg.Registry.AllowedDomains, cfg.Registry.MaxURLsPerUser)
	c.registrySvc = registry.NewService(store, policy, cfg.Registry.OperationTimeout, logger)

	c.aggregator = status.NewAggregator(cfg.Status.HistorySize)
	c.alertSvc = alert.NewAlertService(cfg.Alert.Workers, cfg.Alert.ChannelSize, publisher, c.Metrics, logger)

	probe := prober.New(cfg.Probe, httpclient.NewHttpClient(0), c.Metrics, logger)
	c.scheduler = scheduler.New(cfg.Scheduler, probe, c.aggregator, c.alertSvc, c.Metrics, logger)
	c.registrySvc.SetObserver(c.scheduler)

	verifier, err := identity.NewVerifier(&cfg.Auth, httpclient.NewHttpClient(identityTimeout))
	if err != nil {
		c.closeInfra()
		return nil, err
	}
	c.authMW = middle.NewAuthMiddleware(verifier, logger)
	c.urlHandler = urls.NewHandler(c.registrySvc, c.aggregator, validator.New())

	if cfg.RabbitMQ.UserEventsQueue != "" {
		c.eventHandler = account.NewEventHandler(c.registrySvc, logger)
		c.Consumer, err = rabbitmq.NewConsumer(c.AMQPConn, cfg.RabbitMQ.UserEventsQueue, cfg.RabbitMQ.WorkerCount, logger)
		if err != nil {
			c.closeInfra()
			return nil, fmt.Errorf("create account events consumer: %w", err)
		}
	}

	return c, nil
}

func (c *Container) registryStore(ctx context.Context) (registry.Store, error) {
	switch c.Config.Registry.Driver {
	case "postgres":
		pool, err := db.ConnectToDB(ctx, &c.Config.DB, c.Logger)
		if err != nil {
			return nil, err
		}
		c.DB = pool
		if err := db.EnsureSchema(ctx, pool); err != nil {
			return nil, err
		}
		c.Logger.Info().Msg("registry backed by postgres")
		return registry.NewRepository(pool, c.Logger), nil

	case "redis":
		client, err := redisstore.New(&c.Config.Redis)
		if err != nil {
			return nil, err
		}
		c.RedisClient = client
		c.Logger.Info().Msg("registry backed by redis")
		return registry.NewRedisStore(client), nil

	default:
		c.Logger.Warn().Msg("registry kept in memory, urls are lost on restart")
		return registry.NewMemoryStore(), nil
	}
}

func (c *Container) connectRabbitMQ() error {
	conn, err := rabbitmq.NewConnection(&c.Config.RabbitMQ, c.Logger)
	if err != nil {
		return err
	}
	c.AMQPConn = conn

	if err := rabbitmq.SetupTopology(conn, &c.Config.RabbitMQ); err != nil {
		return fmt.Errorf("rabbitmq topology: %w", err)
	}
	return nil
}

func (c *Container) alertPublisher() (alert.Publisher, error) {
	switch c.Config.Alert.Sink {
	case "rabbitmq":
		pub, err := rabbitmq.NewPublisher(c.AMQPConn, c.Config.RabbitMQ.ExchangeName, c.Config.RabbitMQ.AlertRoutingKey)
		if err != nil {
			return nil, fmt.Errorf("create alert publisher: %w", err)
		}
		c.amqpPublisher = pub
		return alert.NewAMQPPublisher(pub), nil

	case "kafka":
		producer, err := kafka.NewAsyncProducer(&c.Config.Kafka)
		if err != nil {
			return nil, fmt.Errorf("create kafka producer: %w", err)
		}
		c.kafkaProducer = kafka.NewProducer(producer, c.Config.Kafka.Topic, c.Logger)
		c.kafkaProducer.Start()
		return alert.NewKafkaPublisher(c.kafkaProducer), nil

	default:
		return alert.NewLogPublisher(c.Logger), nil
	}
}

// Start rebuilds the schedule from the registry and launches the background
// workers. They stop when ctx is cancelled.
func (c *Container) Start(ctx context.Context) error {
	c.alertSvc.Start()

	if err := c.scheduler.Load(ctx, c.registrySvc); err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.scheduler.Run(ctx)
	}()

	if c.Consumer != nil {
		StartConsumer(ctx, c)
	}

	return nil
}

// Shutdown waits for the background workers, which must already have been
// told to stop, then releases infra in reverse order of creation.
func (c *Container) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		c.Logger.Warn().Msg("background workers did not stop in time")
	}

	if c.Consumer != nil {
		if err := c.Consumer.Shutdown(ctx); err != nil {
			c.Logger.Error().Err(err).Msg("consumer shutdown failed")
		}
	}

	c.alertSvc.Close()
	c.closeInfra()
	return ctx.Err()
}

func (c *Container) closeInfra() {
	if c.kafkaProducer != nil {
		c.kafkaProducer.Close()
	}
	if c.amqpPublisher != nil {
		_ = c.amqpPublisher.Close()
	}
	if c.AMQPConn != nil {
		_ = c.AMQPConn.Close()
	}
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
