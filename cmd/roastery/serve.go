package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/roastery/internal/boot"
	"github.com/memohai/roastery/internal/coffees"
	"github.com/memohai/roastery/internal/config"
	"github.com/memohai/roastery/internal/db"
	dbsqlc "github.com/memohai/roastery/internal/db/sqlc"
	"github.com/memohai/roastery/internal/handlers"
	"github.com/memohai/roastery/internal/identity"
	"github.com/memohai/roastery/internal/ingest"
	"github.com/memohai/roastery/internal/media"
	"github.com/memohai/roastery/internal/reviews"
	"github.com/memohai/roastery/internal/server"
	"github.com/memohai/roastery/internal/storage"
	"github.com/memohai/roastery/internal/version"
)

const metricsNamespace = "roastery"

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the catalog API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			rc, err := boot.ProvideRuntimeConfig(cfg)
			if err != nil {
				return err
			}
			cfg.Auth.JWTSecret = rc.JWTSecret
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			app := fx.New(
				fx.Supply(cfg, log, rc),
				fx.Provide(
					provideDBConn,
					provideDBQueries,
					provideBlobStore,
					provideRegistry,
					provideObserver,

					provideValidator,
					provideTranscoder,
					providePool,
					provideCoffeesService,
					provideReviewsService,
					provideCoordinator,
					provideIdentityClient,
					provideSweeper,

					provideServerHandler(providePingHandler),
					provideServerHandler(provideAuthHandler),
					provideServerHandler(provideCoffeesHandler),
					provideServerHandler(provideReviewsHandler),
					provideServerHandler(handlers.NewImagesHandler),
					provideServerHandler(provideMetricsHandler),
					provideServerHandler(provideSwaggerHandler),

					provideServer,
				),
				fx.Invoke(
					startSweeper,
					startServer,
				),
				fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
					return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
				}),
			)
			if err := app.Start(cmd.Context()); err != nil {
				return err
			}
			select {
			case <-cmd.Context().Done():
			case sig := <-app.Wait():
				log.Info("shutdown requested", slog.String("signal", sig.String()))
			}
			stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return app.Stop(stopCtx)
		},
	}
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideDBQueries(conn *pgxpool.Pool) *dbsqlc.Queries {
	return dbsqlc.New(conn)
}

func provideBlobStore(log *slog.Logger, cfg config.Config) (storage.Provider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return newBlobStore(ctx, log, cfg)
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideObserver(reg *prometheus.Registry) (ingest.Observer, error) {
	return ingest.NewPrometheusObserver(metricsNamespace, reg)
}

func provideValidator(cfg config.Config) *ingest.Validator {
	return ingest.NewValidator(cfg.Ingest.MaxUploadBytes)
}

func provideTranscoder(cfg config.Config) ingest.Transcoder {
	return media.NewTranscoder(cfg.Ingest.MaxWidth, cfg.Ingest.MaxHeight, cfg.Ingest.JPEGQuality)
}

func providePool(cfg config.Config, rc *boot.RuntimeConfig) *media.Pool {
	return media.NewPool(cfg.Ingest.Workers, rc.AcquireTimeout)
}

func provideCoffeesService(log *slog.Logger, queries *dbsqlc.Queries, blobs storage.Provider) *coffees.Service {
	return coffees.NewService(log, queries, blobs)
}

func provideReviewsService(log *slog.Logger, queries *dbsqlc.Queries) *reviews.Service {
	return reviews.NewService(log, queries)
}

type coordinatorParams struct {
	fx.In

	Logger        *slog.Logger
	Config        config.Config
	RuntimeConfig *boot.RuntimeConfig
	Validator     *ingest.Validator
	Transcoder    ingest.Transcoder
	Pool          *media.Pool
	Blobs         storage.Provider
	Catalog       *coffees.Service
	Observer      ingest.Observer
}

func provideCoordinator(p coordinatorParams) *ingest.Coordinator {
	return ingest.NewCoordinator(p.Logger, ingest.Deps{
		Validator:  p.Validator,
		Transcoder: p.Transcoder,
		Pool:       p.Pool,
		Keys:       media.UUIDKeys{},
		Blobs:      p.Blobs,
		Metadata:   p.Catalog,
		Observer:   p.Observer,
	}, ingest.Options{
		KeyAttempts:         p.Config.Ingest.KeyAttempts,
		CompensationTimeout: p.RuntimeConfig.CompensationTimeout,
	})
}

func provideIdentityClient(log *slog.Logger, cfg config.Config, rc *boot.RuntimeConfig) *identity.Client {
	if rc.IdentityBaseURL == "" {
		log.Warn("identity.base_url is empty, signup and login are disabled")
	}
	return identity.NewClient(log, rc.IdentityBaseURL, rc.IdentityAPIKey, cfg.Identity.Timeout())
}

// provideSweeper returns nil when the backend cannot enumerate its blobs.
func provideSweeper(log *slog.Logger, blobs storage.Provider, catalog *coffees.Service, rc *boot.RuntimeConfig, observer ingest.Observer) (*ingest.Sweeper, error) {
	sweeper, err := ingest.NewSweeper(log, blobs, catalog, rc.OrphanMinAge, observer)
	if errors.Is(err, ingest.ErrListingUnsupported) {
		return nil, nil
	}
	return sweeper, err
}

func providePingHandler(log *slog.Logger, conn *pgxpool.Pool) *handlers.PingHandler {
	return handlers.NewPingHandler(log, handlers.HealthCheck{Name: "postgres", Check: conn.Ping})
}

func provideAuthHandler(log *slog.Logger, client *identity.Client, cfg config.Config) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, client, cfg.Identity.RedirectURL)
}

func provideCoffeesHandler(catalog *coffees.Service, coordinator *ingest.Coordinator, reviewService *reviews.Service, validator *ingest.Validator) *handlers.CoffeesHandler {
	return handlers.NewCoffeesHandler(catalog, coordinator, reviewService, validator)
}

func provideReviewsHandler(service *reviews.Service) *handlers.ReviewsHandler {
	return handlers.NewReviewsHandler(service)
}

func provideMetricsHandler(reg *prometheus.Registry) *handlers.MetricsHandler {
	return handlers.NewMetricsHandler(reg)
}

func provideSwaggerHandler(log *slog.Logger) *handlers.SwaggerHandler {
	return handlers.NewSwaggerHandler(log, handlers.DefaultSwaggerPath)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	RuntimeConfig  *boot.RuntimeConfig
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, server.Options{
		Addr:           params.RuntimeConfig.ServerAddr,
		JWTSecret:      params.RuntimeConfig.JWTSecret,
		MaxUploadBytes: params.Config.Ingest.MaxUploadBytes,
		AllowedOrigins: params.Config.Server.AllowedOrigins,
	}, params.ServerHandlers...)
}

func startSweeper(lc fx.Lifecycle, logger *slog.Logger, cfg config.Config, sweeper *ingest.Sweeper) {
	spec := cfg.Ingest.OrphanSweepCron
	if spec == "" {
		return
	}
	if sweeper == nil {
		logger.Warn("orphan sweep schedule ignored, storage backend cannot list blobs",
			slog.String("backend", cfg.Storage.Backend))
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sweeper.Start(spec, time.Hour)
		},
		OnStop: func(ctx context.Context) error {
			return sweeper.Stop(ctx)
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	srv *server.Server,
	shutdowner fx.Shutdowner,
) {
	logger.Info("starting roastery", slog.String("version", version.GetInfo()))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
