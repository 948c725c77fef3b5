package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/container"
	"github.com/serroba/shortlink/internal/messaging"
	"go.uber.org/zap"
)

func registerPackages(injector *do.Injector, options *container.Options) {
	do.ProvideValue(injector, options)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.PostgresPackage(injector)
	container.RepositoryPackage(injector)
	container.QueuePackage(injector)
	container.PublisherGroupPackage(injector)
	container.RecorderPackage(injector)
	container.StatsStorePackage(injector)
	container.ServicePackage(injector)
	container.HTTPPackage(injector)
	container.ConsumerGroupPackage(injector)
}

func newHTTPServer(injector *do.Injector, port int) *http.Server {
	router := do.MustInvoke[*chi.Mux](injector)
	// routes are registered when the API is built
	_ = do.MustInvoke[huma.API](injector)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		injector := do.New()
		registerPackages(injector, options)

		logger := do.MustInvoke[*zap.Logger](injector)

		var server *http.Server

		hooks.OnStart(func() {
			if err := options.ValidateServer(); err != nil {
				logger.Fatal("invalid options", zap.Error(err))
			}

			// invoked before the recorder, so the injector stops it after the recorder drained
			if options.EmbeddedAggregator {
				group := do.MustInvoke[*messaging.ConsumerGroup](injector)
				if err := group.Start(context.Background()); err != nil {
					logger.Fatal("embedded aggregator failed to start", zap.Error(err))
				}
			}

			server = newHTTPServer(injector, options.Port)

			logger.Info("server starting",
				zap.Int("port", options.Port),
				zap.String("store", options.StoreBackend),
				zap.String("cache", options.CacheBackend),
				zap.String("queue", options.QueueBackend),
				zap.Bool("embedded_aggregator", options.EmbeddedAggregator),
			)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), options.ShutdownTimeout)
			defer cancel()

			if server != nil {
				if err := server.Shutdown(ctx); err != nil {
					logger.Error("http shutdown", zap.Error(err))
				}
			}

			// recorder drain, then aggregator flush, then connections
			if err := injector.Shutdown(); err != nil {
				logger.Error("dependency shutdown", zap.Error(err))
			}

			logger.Info("stopped")
			_ = logger.Sync()
		})
	})

	cli.Run()
}
