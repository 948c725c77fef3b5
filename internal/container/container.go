package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/analytics"
	statsstore "github.com/serroba/shortlink/internal/analytics/store"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/health"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/middleware"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"go.uber.org/zap"
)

// RedisClient closes the shared redis client on injector shutdown.
type RedisClient struct {
	Client redis.UniversalClient
}

func (c *RedisClient) Shutdown() error {
	return c.Client.Close()
}

// Database closes the shared pool on injector shutdown.
type Database struct {
	Pool *pgxpool.Pool
}

func (d *Database) Shutdown() error {
	d.Pool.Close()

	return nil
}

// LoggerPackage provides the application logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisPackage provides the redis client. It connects lazily, on first use.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)

		return &RedisClient{Client: redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		})}, nil
	})
}

// PostgresPackage provides the connection pool, migrating the schema first when enabled.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Database, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.Migrate {
			if err := store.Migrate(opts.DatabaseURL, logger); err != nil {
				return nil, err
			}
		}

		pool, err := pgxpool.New(context.Background(), opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		return &Database{Pool: pool}, nil
	})
}

// RepositoryPackage provides the url store, the redirect cache and the code allocator.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (shortener.Repository, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.StoreBackend {
		case BackendPostgres:
			return store.NewPostgresStore(do.MustInvoke[*Database](i).Pool), nil
		case BackendRedis:
			return store.NewRedisStore(do.MustInvoke[*RedisClient](i).Client), nil
		default:
			return store.NewMemoryStore(), nil
		}
	})

	do.Provide(injector, func(i *do.Injector) (shortener.Cache, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.CacheBackend {
		case BackendRedis:
			return store.NewRedisCache(do.MustInvoke[*RedisClient](i).Client), nil
		case BackendMemory:
			return store.NewMemoryCache(time.Minute), nil
		default:
			return store.NoopCache{}, nil
		}
	})

	do.Provide(injector, func(i *do.Injector) (shortener.Allocator, error) {
		opts := do.MustInvoke[*Options](i)

		var counter shortener.Counter

		switch opts.CounterBackend {
		case BackendRedis:
			counter = store.NewRedisCounter(do.MustInvoke[*RedisClient](i).Client)
		case BackendPostgres:
			counter = store.NewPostgresCounter(do.MustInvoke[*Database](i).Pool)
		default:
			counter = store.NewMemoryCounter(0)
		}

		return shortener.NewCounterAllocator(counter,
			shortener.WithSecret(uint64(opts.CodeSecret)),
			shortener.WithMaxCounter(uint64(opts.MaxCounter)),
			shortener.WithReserved(handlers.ReservedCodes()...),
		), nil
	})
}

// QueuePackage provides the in-process pub/sub shared by the memory queue's publisher
// and subscriber. Closing is left to the publisher and consumer groups.
func QueuePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*gochannel.GoChannel, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return messaging.NewMemoryPubSub(int64(opts.RecorderBuffer), logger), nil
	})
}

// PublisherGroupPackage provides the visit publisher for the configured queue.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.QueueBackend == messaging.BackendMemory {
			return messaging.NewPublisherGroup(do.MustInvoke[*gochannel.GoChannel](i)), nil
		}

		var maxLens map[string]int64
		if opts.StreamMaxLen > 0 {
			maxLens = map[string]int64{analytics.TopicURLVisited: opts.StreamMaxLen}
		}

		publisher, err := messaging.NewRedisStreamPublisher(
			do.MustInvoke[*RedisClient](i).Client,
			maxLens,
			do.MustInvoke[*zap.Logger](i),
		)
		if err != nil {
			return nil, fmt.Errorf("create stream publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// RecorderPackage provides the running visit recorder.
func RecorderPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*analytics.Recorder, error) {
		opts := do.MustInvoke[*Options](i)
		publishers := do.MustInvoke[*messaging.PublisherGroup](i)

		recorder := analytics.NewRecorder(
			messaging.NewPublishFunc[analytics.VisitEvent](publishers.Publisher(), analytics.TopicURLVisited),
			analytics.RecorderConfig{
				BufferSize:      opts.RecorderBuffer,
				PublishTimeout:  opts.PublishTimeout,
				ShutdownTimeout: opts.ShutdownTimeout,
			},
			do.MustInvoke[*zap.Logger](i),
		)

		if err := recorder.Start(context.Background()); err != nil {
			return nil, err
		}

		return recorder, nil
	})
}

// StatsStorePackage provides the stats store for the configured backend.
func StatsStorePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (analytics.Store, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var s analytics.Store

		switch opts.StatsBackend {
		case BackendPostgres:
			s = statsstore.NewPostgres(do.MustInvoke[*Database](i).Pool)
		case BackendRedis:
			s = statsstore.NewRedis(do.MustInvoke[*RedisClient](i).Client)
		default:
			s = statsstore.NewMemory()
		}

		return statsstore.NewLogging(s, logger), nil
	})
}

// ServicePackage provides the redirect core.
func ServicePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*shortener.Service, error) {
		opts := do.MustInvoke[*Options](i)

		return shortener.NewService(
			do.MustInvoke[shortener.Allocator](i),
			do.MustInvoke[shortener.Repository](i),
			do.MustInvoke[shortener.Cache](i),
			do.MustInvoke[*analytics.Recorder](i),
			do.MustInvoke[analytics.Store](i),
			shortener.Config{
				CacheTTL:     opts.CacheTTL,
				NegativeTTL:  opts.NegativeTTL,
				StoreTimeout: opts.StoreTimeout,
				SeedCache:    opts.SeedCache,
			},
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// HTTPPackage provides the router and the API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		api := humachi.New(router, handlers.NewAPIConfig("Shortlink", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api), middleware.RedirectLog(logger))

		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost:%d", opts.Port)
		}

		service := do.MustInvoke[*shortener.Service](i)
		handlers.RegisterRoutes(api, handlers.NewURLHandler(service, baseURL, logger))
		health.RegisterRoutes(api, newHealthHandler(i, opts))

		return api, nil
	})
}

func newHealthHandler(i *do.Injector, opts *Options) *health.Handler {
	var redisChecker, postgresChecker health.Checker

	if opts.usesRedis() {
		redisChecker = health.NewRedisChecker(do.MustInvoke[*RedisClient](i).Client)
	}

	if opts.usesPostgres() {
		postgresChecker = health.NewPostgresChecker(do.MustInvoke[*Database](i).Pool)
	}

	return health.NewHandler(redisChecker, postgresChecker)
}

// ConsumerGroupPackage provides the stats aggregator fed from the visit queue. The
// group is not started.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := newSubscriber(i, opts, logger)
		if err != nil {
			return nil, err
		}

		aggregator := analytics.NewAggregator(
			do.MustInvoke[analytics.Store](i),
			analytics.AggregatorConfig{
				BatchSize:       opts.BatchSize,
				FlushInterval:   opts.FlushInterval,
				RetryBase:       opts.RetryBase,
				RetryCap:        opts.RetryCap,
				MaxRetries:      uint64(max(opts.MaxRetries, 0)),
				ShutdownTimeout: opts.ShutdownTimeout,
			},
			logger,
		)

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(aggregator, analytics.NewVisitConsumer(subscriber, aggregator, logger))

		return group, nil
	})
}

func newSubscriber(i *do.Injector, opts *Options, logger *zap.Logger) (message.Subscriber, error) {
	if opts.QueueBackend == messaging.BackendMemory {
		return do.MustInvoke[*gochannel.GoChannel](i), nil
	}

	name := opts.ConsumerName
	if name == "" {
		generate, err := nanoid.Standard(8)
		if err != nil {
			return nil, err
		}

		name = "aggregator-" + generate()
	}

	subscriber, err := messaging.NewRedisStreamSubscriber(
		do.MustInvoke[*RedisClient](i).Client,
		opts.ConsumerGroup,
		name,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("create stream subscriber: %w", err)
	}

	logger.Info("joined consumer group",
		zap.String("group", opts.ConsumerGroup),
		zap.String("consumer", name),
	)

	return subscriber, nil
}
