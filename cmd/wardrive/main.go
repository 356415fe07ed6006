package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ctmesh/wardrive/internal/bus"
	"github.com/ctmesh/wardrive/internal/config"
	"github.com/ctmesh/wardrive/internal/geo"
	"github.com/ctmesh/wardrive/internal/logging"
	"github.com/ctmesh/wardrive/internal/meshcore"
	"github.com/ctmesh/wardrive/internal/pipeline"
	"github.com/ctmesh/wardrive/internal/sink"
	"github.com/ctmesh/wardrive/internal/transport"
)

func main() {
	if err := run(); err != nil {
		slog.Error("run wardrive", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.Configure(cfg.Logging)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer func() { _ = logCloser.Close() }()
	}

	secret, err := cfg.ChannelSecret()
	if err != nil {
		return err
	}

	messageBus := bus.New(logger)
	defer messageBus.Close()

	channel := &meshcore.ChannelDecoder{
		Hash:   cfg.ChannelHash(),
		Secret: secret,
		Logger: logger.With("component", "channel"),
	}
	validator := geo.NewValidator(cfg.Validation.CenterLat, cfg.Validation.CenterLon, cfg.Validation.MaxMiles, logger)
	uploader := sink.New(cfg.Sink.BaseURL, logger)
	dispatcher := pipeline.NewDispatcher(cfg.WatchedOrigins, channel, validator, uploader, logger)

	// One consumer goroutine drains the bus; every message is fully
	// processed before the next is taken, so the pipeline stays strictly
	// sequential no matter how the broker client schedules callbacks.
	inbound := messageBus.Subscribe(bus.TopicInboundPackets)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-inbound:
				if !ok {
					return
				}
				payload, ok := msg.([]byte)
				if !ok {
					continue
				}
				dispatcher.HandleMessage(ctx, payload)
			}
		}
	}()

	subscriber := transport.NewMQTTSubscriber(cfg.MQTT, messageBus, logger)
	err = subscriber.Run(ctx)

	stop()
	<-consumerDone

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
