package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"go-newsletter-sse/internal/application/facade"
	"go-newsletter-sse/internal/infrastructure/config"
	"go-newsletter-sse/internal/infrastructure/events"
	"go-newsletter-sse/internal/infrastructure/hub"
	"go-newsletter-sse/internal/infrastructure/logger"
	"go-newsletter-sse/internal/infrastructure/metrics"
	"go-newsletter-sse/internal/infrastructure/server"
)

func main() {
	ctx := context.Background()
	sctx := WithSignal(ctx)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogrusLogger(cfg.Logger())

	hubInstance := hub.New(log,
		hub.WithHeartbeatInterval(cfg.HeartbeatInterval),
		hub.WithStaleThreshold(cfg.StaleThreshold),
		hub.WithReapInterval(cfg.ReapInterval),
		hub.WithFanoutConcurrency(cfg.FanoutConcurrency),
	)

	// Start the hub before any route can accept a stream.
	if err := hubInstance.Start(ctx); err != nil {
		log.Errorf("failed to start hub: %v", err)
		os.Exit(1)
	}
	if err := metrics.RegisterConnectedClients(prometheus.DefaultRegisterer, hubInstance.ConnectionCount); err != nil {
		log.Warnf("failed to register connection gauge: %v", err)
	}

	pubSub := events.NewPubSub(log)
	bridge := events.NewBridge(pubSub, hubInstance, log)
	notifications := facade.NewNotificationService(events.NewPublisher(pubSub))

	router := InitRouter(cfg, hubInstance, notifications, log)
	httpSrv := server.NewHTTPServer(cfg.Addr(), router)
	app := newApplication(log, cfg.ShutdownTimeout, httpSrv, hubInstance, pubSub, bridge)

	log.Infof("listening on %s (env: %s)", cfg.Addr(), cfg.AppEnv)
	if err := app.Run(sctx); err != nil {
		log.Errorf("failed to run application: %v", err)
		os.Exit(1)
	}
}

type Application struct {
	logger          logger.Logger
	shutdownTimeout time.Duration
	httpSrv         server.Server
	hub             *hub.Hub
	pubSub          *gochannel.GoChannel
	bridge          *events.Bridge
}

func newApplication(
	logger logger.Logger,
	shutdownTimeout time.Duration,
	httpSrv *server.HTTPServer,
	hubInstance *hub.Hub,
	pubSub *gochannel.GoChannel,
	bridge *events.Bridge,
) *Application {
	return &Application{
		logger:          logger.WithField("app", "newsletter-sse"),
		shutdownTimeout: shutdownTimeout,
		httpSrv:         httpSrv,
		hub:             hubInstance,
		pubSub:          pubSub,
		bridge:          bridge,
	}
}

func (app *Application) Run(ctx context.Context) error {
	// A listener failure cancels ctx, which runs the shutdown path below.
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return app.httpSrv.Start(ctx)
	})

	eg.Go(func() error {
		return app.bridge.Run(ctx)
	})

	eg.Go(func() error {
		<-ctx.Done()
		app.logger.Info("shutting down")

		gracefulshutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			app.shutdownTimeout,
		)
		defer cancel()

		// Closing the streams first lets their handlers return, so the
		// server shutdown below does not wait on them.
		if err := app.hub.Stop(gracefulshutdownCtx); err != nil {
			app.logger.Errorf("failed to stop hub: %v", err)
		}
		if err := app.pubSub.Close(); err != nil {
			app.logger.Errorf("failed to close event bus: %v", err)
		}

		return app.httpSrv.Stop(gracefulshutdownCtx)
	})

	return eg.Wait()
}

func WithSignal(pctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(pctx)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

		<-sigc

		cancel()
	}()

	return ctx
}
