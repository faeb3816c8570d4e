package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taskwise/internal/config"
	"taskwise/internal/handlers"
	"taskwise/internal/logger"
	"taskwise/internal/middleware"
	"taskwise/internal/notify"
	"taskwise/internal/pubsub"
	repo "taskwise/internal/repository"
	"taskwise/internal/repository/task/gormstore"
	"taskwise/internal/repository/task/inmemory"
	"taskwise/internal/repository/task/postgres"
	"taskwise/internal/service"
	"taskwise/internal/summarize"
	"taskwise/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const brokerBuffer = 64

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	store      repo.Store
	changes    *pubsub.Broker[pubsub.Change]
	errs       *pubsub.Broker[pubsub.ErrorEvent]
	service    *service.Service
	dispatcher *notify.Dispatcher
	worker     *worker.ArchiveWorker
	shutdowns  []func() error
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func() error, 0),
	}
}

// Init builds every component. On error the parts already built are torn
// down by Shutdown.
func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() error {
		logger.Info("App: Flushing logs")
		logger.Sync()
		return nil
	})

	store, err := OpenStore(ctx, a.config)
	if err != nil {
		return err
	}
	a.store = store
	a.shutdowns = append(a.shutdowns, store.Close)

	a.changes = pubsub.NewBroker[pubsub.Change](brokerBuffer)
	a.errs = pubsub.NewBroker[pubsub.ErrorEvent](brokerBuffer)
	a.shutdowns = append(a.shutdowns, func() error {
		a.changes.Close()
		a.errs.Close()
		return nil
	})

	a.service = service.NewService(store, a.serviceOptions()...)

	if a.dispatcher, err = a.newDispatcher(); err != nil {
		return err
	}

	if a.config.Archive.Enabled {
		a.worker, err = worker.NewArchiveWorker(a.service, a.config.Archive.Schedule, a.config.Archive.StartupDelay)
		if err != nil {
			return err
		}
	}

	a.router = a.newRouter()
	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      otelhttp.NewHandler(a.router, "taskwise"),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}
	return nil
}

func (a *App) serviceOptions() []service.Option {
	opts := []service.Option{
		service.WithChanges(a.changes),
		service.WithErrors(a.errs),
		service.WithRetention(a.config.Archive.Retention),
		service.WithSummaryMinLength(a.config.Summarizer.MinLength),
		service.WithBootstrapSysadmins(a.config.Auth.BootstrapSysadmins...),
	}
	sc := a.config.Summarizer
	if sc.APIKey != "" {
		opts = append(opts, service.WithSummarizer(summarize.New(sc.Endpoint, sc.APIKey, sc.Model, sc.Timeout)))
	} else {
		logger.Warn("App: Summarizer API key not set, summaries are disabled")
	}
	return opts
}

func (a *App) newDispatcher() (*notify.Dispatcher, error) {
	nc := a.config.Notify
	sinks := []notify.Sink{notify.LogSink{}}
	if nc.SlackWebhookURL != "" {
		slackSink, err := notify.NewSlackSink(nc.SlackWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("slack sink: %w", err)
		}
		sinks = append(sinks, slackSink)
	}
	if nc.DiscordWebhookID != "" {
		discordSink, err := notify.NewDiscordSink(nc.DiscordWebhookID, nc.DiscordWebhookToken)
		if err != nil {
			return nil, fmt.Errorf("discord sink: %w", err)
		}
		sinks = append(sinks, discordSink)
	}
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	logger.Info("App: Error notifications enabled", zap.Strings("sinks", names))
	return notify.NewDispatcher(nc.Timeout, sinks...), nil
}

func (a *App) newRouter() *chi.Mux {
	sc := a.config.Server
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.RateLimit(sc.RateLimit, sc.RateBurst))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: sc.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID", middleware.HeaderUserID, middleware.HeaderUserEmail,
			middleware.HeaderUserName, middleware.HeaderUserPhoto},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	h := handlers.NewHandler(a.service,
		handlers.WithHeartbeat(sc.Heartbeat),
		handlers.WithRequestTimeout(sc.RequestTimeout))
	h.Routes(r)
	return r
}

// Router exposes the HTTP routes without the server around them.
func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) Service() *service.Service {
	return a.service
}

// Run serves HTTP and runs the background workers until ctx is done, then
// shuts everything down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP: Server started", zap.String("addr", a.server.Addr),
			zap.String("repository", a.config.Repository.Type))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.dispatcher.Run(gctx, a.errs)
		return nil
	})

	if a.worker != nil {
		g.Go(func() error {
			a.worker.Start(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("HTTP: Shutting down server")
		if err := a.server.Shutdown(sctx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	return multierr.Append(err, a.Shutdown())
}

// Shutdown releases resources in reverse order of creation.
func (a *App) Shutdown() error {
	var errs error
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, a.shutdowns[i]())
	}
	a.shutdowns = nil
	return errs
}

// OpenStore connects the configured repository and brings its schema up to
// date when database.migrate is set.
func OpenStore(ctx context.Context, cfg *config.Config) (repo.Store, error) {
	db := cfg.Database
	switch cfg.Repository.Type {
	case "postgres":
		storage, err := postgres.New(ctx, db.URL,
			postgres.WithMaxConns(db.MaxConnections),
			postgres.WithMinConns(db.MinConnections),
			postgres.WithIdleTimeout(db.IdleTimeout))
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if db.Migrate {
			if err := storage.Migrate(ctx); err != nil {
				return nil, multierr.Append(err, storage.Close())
			}
		}
		return storage, nil
	case gormstore.DialectSQLite, gormstore.DialectMySQL:
		storage, err := gormstore.Open(cfg.Repository.Type, db.URL)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Repository.Type, err)
		}
		if db.Migrate {
			if err := storage.AutoMigrate(ctx); err != nil {
				return nil, multierr.Append(err, storage.Close())
			}
		}
		return storage, nil
	case "inmemory", "":
		logger.Warn("App: Using in-memory storage, data is lost on restart")
		return inmemory.NewTaskStorage(), nil
	}
	return nil, fmt.Errorf("unknown repository type %q", cfg.Repository.Type)
}

// Migrate moves the schema of the configured database up, or down one
// step at a time to empty when down is set. The in-memory store has no
// schema.
func Migrate(ctx context.Context, cfg *config.Config, down bool) error {
	noAuto := *cfg
	noAuto.Database.Migrate = false

	store, err := OpenStore(ctx, &noAuto)
	if err != nil {
		return err
	}
	defer store.Close()

	start := time.Now()
	switch s := store.(type) {
	case *postgres.Storage:
		if down {
			err = s.Down(ctx)
		} else {
			err = s.Migrate(ctx)
		}
	case *gormstore.Storage:
		if down {
			return errors.New("down migrations are not supported for the gorm stores")
		}
		err = s.AutoMigrate(ctx)
	default:
		logger.Info("App: Nothing to migrate", zap.String("repository", cfg.Repository.Type))
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("App: Migration finished", zap.Bool("down", down), zap.Duration("took", time.Since(start)))
	return nil
}
