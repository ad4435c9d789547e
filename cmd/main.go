// @title                       Greenhouse Control API
// @version                     1.0
// @description                 Sensor polling, decision cycles and actuator schedules for a greenhouse.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "greenhouse_control/docs"
	"greenhouse_control/internal/aiclient"
	"greenhouse_control/internal/config"
	"greenhouse_control/internal/feed"
	"greenhouse_control/internal/handlers"
	"greenhouse_control/internal/influx"
	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/metrics"
	"greenhouse_control/internal/repository"
	"greenhouse_control/internal/repository/db"
	"greenhouse_control/internal/server"
	"greenhouse_control/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// load configs/config.yml, .env and GREENHOUSE_* overrides
	cfg, err := config.Load()
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	log := logger.GetWithFormat(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	// open DB
	conn, err := openDB(cfg.DB.Path, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		log.Fatalw("invalid schedule timezone", "timezone", cfg.Schedule.Timezone, "err", err)
	}

	// outbound clients
	m := metrics.New()
	feedClient, err := feed.NewClient(cfg.Feed.BaseURL, cfg.Feed.Key, cfg.Feed.Timeout)
	if err != nil {
		log.Fatalw("failed to build feed client", "err", err)
	}
	decisionClient, err := aiclient.New(aiclient.Config{
		BaseURL:          cfg.Decision.ServiceURL,
		CallTimeout:      cfg.Decision.CallTimeout,
		HealthTimeout:    cfg.Decision.HealthTimeout,
		ResetTimeout:     cfg.Decision.ResetTimeout,
		FailureThreshold: cfg.Decision.FailureThreshold,
	}, log, m)
	if err != nil {
		log.Fatalw("failed to build decision client", "err", err)
	}

	deps := service.Deps{
		Feed:      feedClient,
		Decisions: decisionClient,
		Recorder:  m,
		Log:       log,
	}
	if cfg.Influx.URL != "" {
		mirror := influx.NewMirror(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
		defer mirror.Close()
		deps.Mirror = mirror
		log.Infow("influx_mirror_enabled", "url", cfg.Influx.URL, "bucket", cfg.Influx.Bucket)
	}

	// wire dependencies
	repos := repository.NewRepository(conn)
	services := service.NewService(repos, deps, service.Options{
		PollInterval:     cfg.Feed.PollInterval,
		RateLimit:        cfg.Decision.RateLimit,
		MaxDataAge:       cfg.Decision.MaxDataAge,
		FallbackDuration: cfg.Decision.FallbackDuration,
		EvaluateOnIngest: cfg.Decision.EvaluateOnIngest,
		Location:         loc,
		SigningKey:       cfg.Auth.SigningKey,
		TokenTTL:         cfg.Auth.TokenTTL,
	})
	apiHandler := handlers.NewHandler(services, log, m.Handler())

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start polling every ACTIVE sensor channel
	if sum, err := services.RefreshPolling(ctx); err != nil {
		log.Errorw("initial_polling_refresh_failed", "err", err)
	} else {
		log.Infow("polling_started", "channels", len(sum.Started))
	}

	// drive actuators from active schedule windows
	go services.Executor.Run(ctx, cfg.Schedule.Tick)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, services, log)
}

// openDB initializes the SQLite database.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	log.Infow("opening sqlite", "path", path)
	return db.InitDB(path)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("http_server_starting", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, services *service.Service, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop pollers and the executor
	services.Telemetry.Close()
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
