package server

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"syscall"

	"OmniTrackIQ/internal/service/ratelimit"
	"OmniTrackIQ/pkg/config"
	xhttp "OmniTrackIQ/pkg/http"
	pkgkafka "OmniTrackIQ/pkg/kafka"
	applogger "OmniTrackIQ/pkg/logger"
	apptrace "OmniTrackIQ/pkg/otel"
)

// Closer is an infrastructure client released on shutdown.
type Closer struct {
	Name string
	io.Closer
}

// Deps is everything App runs or releases. Consumer, Events and Producer are
// nil when Kafka is disabled.
type Deps struct {
	Config   *config.Config
	Logger   *applogger.Logger
	Server   *xhttp.Server
	Consumer *pkgkafka.Consumer
	Events   pkgkafka.MessageHandler
	Producer *pkgkafka.Producer
	Limiter  *ratelimit.Limiter
	Tracer   *apptrace.Provider
	Closers  []Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	Deps
	log  *applogger.Logger
	stop chan struct{}
}

func New(d Deps) *App {
	log := d.Logger
	if log == nil {
		log = applogger.Nop()
	}
	return &App{Deps: d, log: log, stop: make(chan struct{})}
}

// Run starts the application and blocks until ctx ends, an interrupt arrives
// or the HTTP listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if a.Producer != nil && a.Config.Log.Collector.Enabled {
		a.log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   a.Config.Log.Collector.Interval,
			CountThreshold: a.Config.Log.Collector.Threshold,
			Topic:          a.Config.Log.Collector.Topic,
			Source:         a.Config.Tracing.ServiceName,
			Publisher:      a.Producer,
		})
		a.log.Info("error log collector enabled", applogger.String("topic", a.Config.Log.Collector.Topic))
	}

	if a.Consumer != nil && a.Events != nil {
		a.Consumer.RegisterHandler(a.Events)
		a.Consumer.WithConsumerHook(pkgkafka.NewHookChain(
			pkgkafka.TraceHook{},
			pkgkafka.LoggingHook{Logger: a.log},
		))
		if err := a.Consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return errors.Join(err, a.shutdown(context.Background()))
		}
		a.log.Info("ledger events consumer started", applogger.String("topic", a.Events.Topic()))
	}

	if a.Limiter.Enabled() {
		go a.Limiter.Run(a.Config.RateLimit.SweepInterval, a.stop)
	}

	if err := a.Server.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return errors.Join(err, a.shutdown(context.Background()))
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-a.Server.Err():
		a.log.Error("http server failed", applogger.Error(runErr))
	}
	return errors.Join(runErr, a.shutdown(context.Background()))
}

// shutdown stops intake first, then flushes and releases clients.
func (a *App) shutdown(ctx context.Context) error {
	a.log.Info("shutting down")
	var errs []error

	if err := a.Server.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.Consumer != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
		if err := a.Consumer.Stop(stopCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
		cancel()
	}

	close(a.stop)
	a.log.RemoveCollector()

	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	for _, c := range a.Closers {
		if c.Closer == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("client", c.Name), applogger.Error(err))
			errs = append(errs, err)
		}
	}

	if err := a.Tracer.Shutdown(ctx); err != nil {
		a.log.Warn("tracer shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
