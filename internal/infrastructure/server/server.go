package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	api "github.com/GriffinCanCode/casdk/internal/api/http"
	"github.com/GriffinCanCode/casdk/internal/api/middleware"
	"github.com/GriffinCanCode/casdk/internal/api/ws"
	"github.com/GriffinCanCode/casdk/internal/domain/acquisition"
	"github.com/GriffinCanCode/casdk/internal/domain/app"
	"github.com/GriffinCanCode/casdk/internal/domain/catalog"
	"github.com/GriffinCanCode/casdk/internal/domain/resource"
	"github.com/GriffinCanCode/casdk/internal/domain/script"
	"github.com/GriffinCanCode/casdk/internal/domain/telemetry"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/config"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/transport"
	"github.com/GriffinCanCode/casdk/internal/shell"
)

const shutdownTimeout = 5 * time.Second

// Server wraps the HTTP server, the acquisition loop and their dependencies.
type Server struct {
	router   *gin.Engine
	apps     *app.Manager
	registry *telemetry.Registry
	loop     *acquisition.Loop
	stream   *ws.Handler
	shell    shell.Router
	tracer   *tracing.Tracer
	stage    *shell.Stage
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// The shell router doubles as the host log sink when an endpoint is set
	var router shell.Router
	var sink logging.Sink
	if cfg.Shell.URL != "" {
		hr := shell.NewHTTPRouter(cfg.Shell.URL)
		router, sink = hr, hr
	} else {
		router = shell.NewRecorder(256)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
		Sink:        sink,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	logger.Info("Initializing runtime",
		zap.String("port", cfg.Server.Port),
		zap.String("apps", cfg.Apps.Path),
		zap.String("shell", cfg.Shell.URL),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("casdk", logger.Subject("Tracing"))

	registry := telemetry.NewRegistry(
		telemetry.WithLogger(logger.Subject("DataHandler")),
		telemetry.WithMetrics(metrics),
	)

	loader := resource.NewLoader(resourceFetcher(cfg),
		resource.WithTimeout(cfg.Apps.ResourceTimeout),
		resource.WithLogger(logger.Subject("ResourceLoader")),
		resource.WithMetrics(metrics),
	)

	engineCfg := script.DefaultConfig()
	if cfg.Apps.ScriptTimeout > 0 {
		engineCfg.Timeout = cfg.Apps.ScriptTimeout
	}

	stage := shell.NewStage()
	apps := app.NewManager(
		app.WithLoader(loader),
		app.WithValues(registry),
		app.WithScriptEngine(script.NewEngine(engineCfg)),
		app.WithRouter(router),
		app.WithSurface(stage),
		app.WithLogger(logger.Logger),
		app.WithMetrics(metrics),
		app.WithAppsPath(cfg.Apps.Path),
	)

	manifests, errs := catalog.Discover(cfg.Apps.Path)
	for _, err := range errs {
		logger.Warn("Skipping application manifest", zap.Error(err))
	}
	catalog.Install(apps, manifests, logger.Subject("Catalog"))
	logger.Info("Applications installed", zap.Int("count", len(manifests)))

	tables := acquisition.DefaultTables()
	if cfg.Telemetry.TablesFile != "" {
		tables, err = acquisition.LoadTablesFile(cfg.Telemetry.TablesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load tables: %w", err)
		}
	}

	loop := acquisition.New(registry,
		acquisition.NewFetcherSource(snapshotFetcher(cfg), cfg.Telemetry.DataPath),
		apps,
		acquisition.WithInterval(cfg.Telemetry.PollInterval),
		acquisition.WithTableTimeout(cfg.Telemetry.TableTimeout),
		acquisition.WithTables(tables),
		acquisition.WithLogger(logger.Subject("DataHandler")),
		acquisition.WithMetrics(metrics),
		acquisition.OnCycle(tracing.CycleRecorder(tracer)),
	)

	stream := ws.NewHandler(apps, metrics, logger.Subject("Stream"))
	registry.AddListener(apps)
	registry.AddListener(stream)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(monitoring.RequestID())
	engine.Use(tracing.HTTPMiddleware(tracer))
	engine.Use(monitoring.Middleware(metrics))
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		engine.Use(middleware.RateLimit(rl))
	}

	handlers := api.NewHandlers(apps, registry, loop, metrics, logger.Subject("API"))
	handlers.Register(engine)
	engine.GET("/stream", stream.HandleConnection)
	engine.GET("/traces", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"spans": tracer.Recent()})
	})

	logger.Info("Server initialized successfully")

	return &Server{
		router:   engine,
		apps:     apps,
		registry: registry,
		loop:     loop,
		stream:   stream,
		shell:    router,
		tracer:   tracer,
		stage:    stage,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

func resourceFetcher(cfg *config.Config) transport.Fetcher {
	if cfg.Apps.ResourceURL != "" {
		return transport.NewHTTPFetcher(cfg.Apps.ResourceURL,
			transport.WithTimeout(cfg.Apps.ResourceTimeout))
	}
	return transport.NewFileFetcher("")
}

func snapshotFetcher(cfg *config.Config) transport.Fetcher {
	if cfg.Telemetry.SnapshotURL != "" {
		return transport.NewHTTPFetcher(cfg.Telemetry.SnapshotURL,
			transport.WithTimeout(cfg.Telemetry.TableTimeout))
	}
	return transport.NewFileFetcher("")
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler { return s.router }

// Apps returns the application manager.
func (s *Server) Apps() *app.Manager { return s.apps }

// Registry returns the data registry.
func (s *Server) Registry() *telemetry.Registry { return s.registry }

// Loop returns the table acquisition loop.
func (s *Server) Loop() *acquisition.Loop { return s.loop }

// Stage returns the surface applications are attached to.
func (s *Server) Stage() *shell.Stage { return s.stage }

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
}

// Run serves HTTP and drives the acquisition loop until ctx is cancelled
// or either of them fails.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := s.loop.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.stream.Close(); err != nil {
			s.logger.Warn("Failed to close stream clients", zap.Error(err))
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the shell connection and flushes the logger.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")
	s.tracer.Close()

	if c, ok := s.shell.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			s.logger.Error("Failed to close shell router", zap.Error(err))
			return fmt.Errorf("failed to close shell router: %w", err)
		}
	}

	_ = s.logger.Sync()
	return nil
}
