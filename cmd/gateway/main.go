package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"time"

	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/config"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/console"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/db"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/metrics"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/sessions"
	"github.com/SwissDataScienceCenter/useradmin-gateway/internal/upstream"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

func setLogLevel(debugMode bool) {
	if debugMode {
		logLevel.Set(slog.LevelDebug)
	} else {
		logLevel.Set(slog.LevelInfo)
	}
}

func main() {
	// Logging setup
	slog.SetDefault(jsonLogger)
	// Load configuration
	ch := config.NewConfigHandler()
	gwConfig, err := ch.Config()
	if err != nil {
		slog.Error("loading the configuration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("loaded config", "config", gwConfig)
	err = gwConfig.Validate()
	if err != nil {
		slog.Error("the config validation failed", "error", err)
		os.Exit(1)
	}
	// Set log level to "debug" if activated
	setLogLevel(gwConfig.DebugMode)
	// Only the debug mode can be changed without a restart
	ch.HandleChanges(func(newConfig config.Config, err error) {
		if err != nil {
			slog.Error("reloading the configuration failed", "error", err)
			return
		}
		setLogLevel(newConfig.DebugMode)
		slog.Info("reloaded config", "debugMode", newConfig.DebugMode)
	})
	ch.Watch()
	// Setup
	e := echo.New()
	e.Pre(middleware.RequestID(), middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	// The banner and the port do not respect the logger formatting we set below so we remove them
	// the port will be logged further down when the server starts.
	e.HideBanner = true
	e.HidePort = true
	// Version endpoint
	buildInfo, ok := debug.ReadBuildInfo()
	version := ""
	if ok && buildInfo != nil {
		version = buildInfo.Main.Version
	}
	// Initialize the db adapter, the keys expire together with the session cookie
	dbAdapter, err := db.NewRedisAdapter(
		db.WithRedisConfig(gwConfig.Redis),
		db.WithTokenStoreConfig(gwConfig.TokenStore),
		db.WithKeyTTL(time.Duration(gwConfig.Sessions.MaxSessionTTLSeconds)*time.Second),
	)
	if err != nil {
		slog.Error("DB adapter initialization failed", "error", err)
		os.Exit(1)
	}
	if gwConfig.TokenStore.TokenEncryption.Enabled {
		slog.Info("redis encryption is enabled")
	}
	metricsClient, err := metrics.NewPrometheusClient(prometheus.DefaultRegisterer)
	if err != nil {
		slog.Error("metrics initialization failed", "error", err)
		os.Exit(1)
	}
	// Initialize the client of the user-account API, shared by all browser sessions
	upstreamClient, err := upstream.NewClient(upstream.WithConfig(gwConfig.Upstream))
	if err != nil {
		slog.Error("upstream client initialization failed", "error", err)
		os.Exit(1)
	}
	clientMaker, err := sessions.NewClientMaker(
		sessions.WithSessionRepository(dbAdapter),
		sessions.WithTransport(upstreamClient),
		sessions.WithAuthEndpoints(upstream.NewAuthAPI(upstreamClient)),
		sessions.WithMetrics(metricsClient),
	)
	if err != nil {
		slog.Error("failed to initialize the session clients", "error", err)
		os.Exit(1)
	}
	// Create the session registry
	registry, err := sessions.NewRegistry(
		sessions.WithClientMaker(clientMaker),
		sessions.WithConfig(gwConfig.Sessions),
	)
	if err != nil {
		slog.Error("failed to initialize sessions", "error", err)
		os.Exit(1)
	}
	scheduler, err := registry.GetScheduler()
	if err != nil {
		slog.Error("failed to schedule the session sweep", "error", err)
		os.Exit(1)
	}
	scheduler.StartAsync()
	// Initialize the console server
	consoleServer, err := console.NewServer(
		console.WithSessions(registry),
		console.WithHealthChecker(dbAdapter),
		console.WithVersion(version),
	)
	if err != nil {
		slog.Error("console handlers initialization failed", "error", err)
		os.Exit(1)
	}
	consoleServer.RegisterHandlers(e, commonMiddlewares...)
	// Rate limiting
	if gwConfig.Server.RateLimits.Enabled {
		e.Use(middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      rate.Limit(gwConfig.Server.RateLimits.Rate),
					Burst:     gwConfig.Server.RateLimits.Burst,
					ExpiresIn: 3 * time.Minute,
				}),
		),
		)
	}
	// CORS, the session cookie has to be sent along
	if len(gwConfig.Server.AllowOrigin) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     gwConfig.Server.AllowOrigin,
			AllowCredentials: true,
		}))
	}
	// Sentry
	if gwConfig.Monitoring.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              string(gwConfig.Monitoring.Sentry.Dsn),
			TracesSampleRate: gwConfig.Monitoring.Sentry.SampleRate,
			Environment:      gwConfig.Monitoring.Sentry.Environment,
		})
		if err != nil {
			slog.Error("sentry initialization failed", "error", err)
		}
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}), sentryTracing)
	}
	// Prometheus
	if gwConfig.Monitoring.Prometheus.Enabled {
		e.Use(echoprometheus.NewMiddleware("gateway"))
		go func() {
			metrics := echo.New()
			metrics.HideBanner = true
			metrics.HidePort = true
			metrics.GET("/metrics", echoprometheus.NewHandler())
			err := metrics.Start(fmt.Sprintf(":%d", gwConfig.Monitoring.Prometheus.Port))
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("prometheus server failed to start", "error", err)
				os.Exit(1)
			}
		}()
	}
	// Start server
	address := fmt.Sprintf("%s:%d", gwConfig.Server.Host, gwConfig.Server.Port)
	slog.Info("starting the server on address " + address)
	go func() {
		err := e.Start(address)
		if err != nil && err != http.ErrServerClosed {
			slog.Error("shutting down the server gracefuly failed", "error", err)
			os.Exit(1)
		}
	}()
	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("received signal to shut down the server")
	scheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		slog.Error("shutting down the server gracefully failed", "error", err)
		os.Exit(1)
	}
	sentry.Flush(2 * time.Second)
}
