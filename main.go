package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "net/http/pprof"

	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"

	"github.com/taldoflemis/trattoria/conversation"
	"github.com/taldoflemis/trattoria/menu"
	"github.com/taldoflemis/trattoria/notify"
	"github.com/taldoflemis/trattoria/store"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()
	retcode := 0
	defer func() {
		os.Exit(retcode)
	}()

	slog.InfoContext(ctx, "Launching trattoria")

	slog.InfoContext(ctx, "Loading config")
	settings, err := LoadConfig()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", slog.Any("err", err))
		retcode = 1
		return
	}

	slog.InfoContext(ctx, "Setting up opentelemetry")
	otelShutdown, err := SetupOTelSDK(ctx, settings)
	if err != nil {
		slog.Error("failed to setup telemetry", slog.Any("err", err))
		retcode = 1
		return
	}

	defer func() {
		err = errors.Join(err, otelShutdown(context.Background()))
		if err != nil {
			slog.ErrorContext(
				ctx,
				"failed to shutdown opentelemetry providers",
				slog.Any("err", err),
			)
			retcode = 1
		}
	}()

	healthChecks := []healthgo.Config{}

	slog.InfoContext(ctx, "Opening order store", slog.String("backend", settings.Store.Backend))
	var orderStore store.Store
	switch settings.Store.Backend {
	case "mongo":
		mongoStore, err := store.OpenMongoStore(
			ctx,
			settings.Store.Mongo.URI,
			settings.Store.Mongo.Database,
			settings.Store.Mongo.OrdersCollection,
			settings.Store.Mongo.CountersCollection,
		)
		if err != nil {
			slog.ErrorContext(ctx, "failed to open mongo store", slog.Any("err", err))
			retcode = 1
			return
		}
		defer func() {
			if err := mongoStore.Close(context.Background()); err != nil {
				slog.ErrorContext(ctx, "failed to disconnect from mongo", slog.Any("err", err))
			}
		}()
		healthChecks = append(healthChecks, healthgo.Config{
			Name:  "mongo",
			Check: mongoStore.Ping,
		})
		orderStore = mongoStore
	default:
		fileStore, err := store.OpenFileStore(settings.Store.File.Dir)
		if err != nil {
			slog.ErrorContext(ctx, "failed to open file store", slog.Any("err", err))
			retcode = 1
			return
		}
		orderStore = fileStore
	}

	var events OrderEventPubSubber = NewChannelOrderEvents()
	if settings.Nats.Enabled {
		slog.InfoContext(ctx, "Connecting to NATS server")
		nc, err := settings.Nats.GetNatsClient()
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to NATS server", slog.Any("err", err))
			retcode = 1
			return
		}
		defer nc.Close()

		events = NewNATSOrderEvents(nc, settings.Nats.Subject)
		healthChecks = append(healthChecks, healthgo.Config{
			Name: "nats",
			Check: func(ctx context.Context) error {
				if !nc.IsConnected() {
					return errors.New("NATS connection is not active")
				}
				return nil
			},
		})
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if settings.Twilio.Enabled {
		notifier = notify.NewTwilioNotifier(
			settings.Twilio.AccountSID,
			settings.Twilio.AuthToken,
			settings.Twilio.From,
		)
	} else {
		slog.InfoContext(ctx, "Twilio disabled, notifications will only be logged")
	}

	conv, err := conversation.NewManager(orderStore, menu.Default())
	if err != nil {
		slog.ErrorContext(ctx, "failed to create conversation manager", slog.Any("err", err))
		retcode = 1
		return
	}

	slog.InfoContext(ctx, "Setting up health checker")
	health, err := healthgo.New(
		healthgo.WithComponent(healthgo.Component{
			Name:    settings.App.Name,
			Version: settings.App.Version,
		}),
		healthgo.WithChecks(healthChecks...),
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create health checker", slog.Any("err", err))
		retcode = 1
		return
	}

	errChan := make(chan error)
	server := echo.New()

	NewMainHandler(server, settings, orderStore, notifier, conv, events, health)
	pprof.Register(server)

	go func() {
		slog.InfoContext(ctx, "listening for requests",
			slog.String("ip", settings.HTTP.IP), slog.String("port", settings.HTTP.Port))
		errChan <- server.Start(fmt.Sprintf("%s:%s", settings.HTTP.IP, settings.HTTP.Port))
	}()

	select {
	case err = <-errChan:
		slog.ErrorContext(ctx, "error when running server", slog.Any("err", err))
		retcode = 1
		return
	case <-ctx.Done():
		// Wait for first Signal arrives
	}

	err = server.Shutdown(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to shutdown gracefully the server", slog.Any("err", err))
	}
}
