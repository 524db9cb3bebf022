// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file or the environment (see package config).
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/tb8/tb8/adapters/clock"
	apihttp "github.com/tb8/tb8/adapters/http"
	"github.com/tb8/tb8/adapters/idgen"
	"github.com/tb8/tb8/adapters/metrics"
	"github.com/tb8/tb8/adapters/tfl"
	"github.com/tb8/tb8/app"
	"github.com/tb8/tb8/config"
	"github.com/tb8/tb8/ports"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Holder     *config.Holder // nil unless hot reload is enabled
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry
	Client     *tfl.Client
}

// Options provides optional overrides for application initialization.
type Options struct {
	Version apihttp.BuildInfo
	Output  io.Writer         // log destination, stdout when nil
	Clock   ports.Clock       // wall clock when nil
	IDGen   ports.IDGenerator // UUIDv7 when nil
}

// New creates and initializes the application from a loaded configuration.
func New(cfg *config.Config, opts Options) (*App, error) {
	logger := setupLogger(cfg.Logging, opts.Output)
	logger.Info().Str("version", opts.Version.Version).Msg("initializing tb8")

	a := &App{
		Logger: logger,
		Config: cfg,
	}

	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(a.Registry)
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	if err := a.initClient(); err != nil {
		return nil, fmt.Errorf("init tfl client: %w", err)
	}

	a.initHTTPServer(opts)
	return a, nil
}

// NewWithHotReload loads path and builds the application from it. The log
// level then follows later edits of the file and SIGHUP.
func NewWithHotReload(path string, opts Options) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	a, err := New(cfg, opts)
	if err != nil {
		return nil, err
	}

	holder, err := config.NewHolder(path, a.Logger)
	if err != nil {
		a.Shutdown()
		return nil, err
	}
	a.watch(holder)
	return a, nil
}

// watch registers the reload hooks on holder and starts its watchers.
func (a *App) watch(holder *config.Holder) {
	a.Holder = holder

	holder.OnChange(func(cfg *config.Config) {
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
		if a.Metrics != nil {
			a.Metrics.ConfigReloads.Inc()
			a.Metrics.ConfigLastReload.SetToCurrentTime()
		}
	})
	holder.OnError(func(error) {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
	})

	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch disabled")
	}
	holder.WatchSignals()
}

func (a *App) initClient() error {
	up := a.Config.Upstream
	client, err := tfl.NewClient(tfl.Config{
		BaseURL:         up.URL,
		AppID:           up.AppID,
		AppKey:          up.AppKey,
		Timeout:         up.Timeout,
		MaxIdleConns:    up.MaxIdleConns,
		IdleConnTimeout: up.IdleConnTimeout,
		Logger:          a.Logger,
		Metrics:         a.Metrics,
	})
	if err != nil {
		return err
	}
	a.Client = client

	a.Logger.Info().
		Str("base_url", up.URL).
		Str("app_id", up.AppID).
		Dur("timeout", up.Timeout).
		Msg("tfl client configured")
	return nil
}

func (a *App) initHTTPServer(opts Options) {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	gen := opts.IDGen
	if gen == nil {
		gen = idgen.UUID{}
	}

	service := app.NewTransitService(a.Client, a.Logger)
	transitHandler := apihttp.NewTransitHandler(service, clk, a.Logger)
	healthHandler := apihttp.NewHealthHandler(a.Client)

	routerCfg := apihttp.RouterConfig{
		Metrics:        a.Metrics,
		MetricsPath:    a.Config.Metrics.Path,
		IDGen:          gen,
		RequestTimeout: a.Config.Server.RequestTimeout,
		Version:        opts.Version,
	}
	if a.Registry != nil {
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry})
	}

	router := apihttp.NewRouterWithConfig(transitHandler, healthHandler, a.Logger, routerCfg)

	srv := a.Config.Server
	addr := net.JoinHostPort(srv.Host, strconv.Itoa(srv.Port))

	a.HTTPServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  srv.ReadTimeout,
		WriteTimeout: srv.WriteTimeout,
	}

	a.Logger.Info().Str("addr", addr).Msg("http server configured")
}

// Run starts the server and blocks until SIGINT/SIGTERM or a server error.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.Holder != nil {
		a.Holder.Stop()
	}

	// Shutdown HTTP server
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	// Close upstream
	if a.Client != nil {
		a.Client.Close()
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Str("service", "tb8").Logger()
}
