package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"CardPulse/internal/handler/api"
	mid "CardPulse/internal/middleware"
	"CardPulse/internal/usecase"
	pkgch "CardPulse/pkg/clickhouse"
	"CardPulse/pkg/config"
	xhttp "CardPulse/pkg/http"
	pkgkafka "CardPulse/pkg/kafka"
	applogger "CardPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	chClient   *pkgch.Client
	pipe       *mid.IngestPipeline
	ingest     *usecase.IngestUseCase
	handler    *api.MarketEchoHandler
	evalCron   *cron.Cron
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaObservationsHandler,
	chClient *pkgch.Client,
	pipe *mid.IngestPipeline,
	ingest *usecase.IngestUseCase,
	handler *api.MarketEchoHandler,
	evalCron *cron.Cron,
) *App {
	a := &App{
		cfg:      cfg,
		l:        l,
		chClient: chClient,
		pipe:     pipe,
		ingest:   ingest,
		handler:  handler,
		evalCron: evalCron,
	}
	if consumer != nil && kh != nil {
		a.consumer = consumer
		a.kh = kh
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start ingest pipeline flushing
	if a.pipe != nil {
		a.pipe.Start(ctx)
		a.l.Info("ingest pipeline started")
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start evaluator schedule
	if a.evalCron != nil {
		a.evalCron.Start()
		a.l.Info("outcome evaluator scheduled", applogger.String("spec", a.cfg.Evaluator.Schedule))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// Stop accepting scheduled work first
	if a.evalCron != nil {
		stopCtx := a.evalCron.Stop()
		<-stopCtx.Done()
	}

	// Stop pipeline flushing
	if a.pipe != nil {
		a.pipe.Stop()
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close ingest resources (publisher/storage)
	if a.ingest != nil {
		a.ingest.Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Flush any aggregated error logs before exit
	a.l.RemoveCollector()

	a.l.Info("shutdown complete")
	return nil
}
