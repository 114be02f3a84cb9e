package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"CandleVault/internal/handler/api"
	icache "CandleVault/internal/service/cache"
	"CandleVault/internal/service/ratelimit"
	"CandleVault/internal/usecase"
	pkgch "CandleVault/pkg/clickhouse"
	"CandleVault/pkg/config"
	xhttp "CandleVault/pkg/http"
	applogger "CandleVault/pkg/logger"
	pkgqueue "CandleVault/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	pipeline    *usecase.Pipeline
	committer   *usecase.CandleCommitter
	queue       *pkgqueue.RedisQueue
	chClient    *pkgch.Client
	vcache      icache.ValidationCache
	limiter     *ratelimit.Limiter
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	pipeline *usecase.Pipeline,
	committer *usecase.CandleCommitter,
	queue *pkgqueue.RedisQueue,
	chClient *pkgch.Client,
	vcache icache.ValidationCache,
	limiter *ratelimit.Limiter,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		pipeline:  pipeline,
		committer: committer,
		queue:     queue,
		chClient:  chClient,
		vcache:    vcache,
		limiter:   limiter,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	httpHandler := a.httpHandler
	if httpHandler == nil {
		transfer := usecase.NewTransfer(a.pipeline)
		httpHandler = api.NewCandlesEchoHandler(l, a.pipeline, transfer)
	}

	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start queue workers for the async persistence lane
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			l.Error("queue start error", applogger.Error(err))
			return err
		}
		a.queue.StartRetryProcessor()
		l.Info("queue workers started", applogger.Int("workers", a.cfg.Queue.Workers))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("candle pipeline ready",
		applogger.String("backend", a.cfg.Backend.Type),
		applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	// Stop HTTP first so no new submissions arrive
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Drain queue workers
	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}

	// Close backend resources (publisher/storage)
	if a.committer != nil {
		if err := a.committer.Close(); err != nil {
			l.Warn("committer close error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.vcache != nil {
		if err := a.vcache.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}
	if a.limiter != nil {
		a.limiter.Close()
	}

	l.Info("shutdown complete")
	return nil
}
