package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PriceCast/internal/usecase"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	pkgkafka "PriceCast/pkg/kafka"
	applogger "PriceCast/pkg/logger"
)

type closer struct {
	name string
	c    io.Closer
}

// App encapsulates the application lifecycle: one forecast run, then
// optionally serving the API and the rebuild consumer until a signal arrives.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	engine     usecase.ForecastRunner
	publisher  usecase.Publisher
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	closers    []closer
}

type Option func(*App)

// WithHTTPServer enables server mode.
func WithHTTPServer(s *xhttp.Server) Option {
	return func(a *App) { a.httpServer = s }
}

// WithConsumer attaches the rebuild consumer. It only runs in server mode.
func WithConsumer(c *pkgkafka.Consumer) Option {
	return func(a *App) { a.consumer = c }
}

// WithCloser registers an infrastructure client closed on shutdown, in
// registration order. Nil closers are ignored.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, closer{name: name, c: c})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	engine usecase.ForecastRunner,
	publisher usecase.Publisher,
	opts ...Option,
) *App {
	a := &App{cfg: cfg, log: log, engine: engine, publisher: publisher}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes one forecast run and publishes it. In server mode it then
// blocks until ctx is cancelled or SIGINT/SIGTERM is received.
func (a *App) Run(ctx context.Context, params usecase.RunParams) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.closeClients()

	a.log.Info("forecast run starting",
		applogger.String("target_period", params.TargetPeriod),
		applogger.Bool("server", a.httpServer != nil),
		applogger.Bool("rebuild_consumer", a.consumer != nil),
	)
	doc, err := a.engine.Run(ctx, params)
	if err != nil {
		a.log.Error("forecast run failed", applogger.Error(err))
		return err
	}
	if err := a.publisher.Publish(ctx, doc); err != nil {
		a.log.Error("forecast publish failed", applogger.Error(err))
		return err
	}

	if a.httpServer == nil {
		a.log.Info("batch run complete", applogger.Int("series", len(doc.Series)))
		return nil
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	if a.consumer != nil {
		a.consumer.Start(ctx)
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops the HTTP server and the consumer.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
	return nil
}

func (a *App) closeClients() {
	for _, c := range a.closers {
		if err := c.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("client", c.name), applogger.Error(err))
		}
	}
}
