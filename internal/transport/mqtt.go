// Package transport subscribes to the mesh telemetry broker and feeds raw
// messages onto the process bus.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ctmesh/wardrive/internal/bus"
	"github.com/ctmesh/wardrive/internal/config"
)

const connectTimeout = 30 * time.Second

// MQTTSubscriber maintains a single subscription over TLS websockets.
// Reconnection is deliberately not attempted: an unexpected disconnect is
// fatal and the supervisor restarts the process.
type MQTTSubscriber struct {
	cfg    config.MQTTConfig
	bus    bus.MessageBus
	logger *slog.Logger

	fatal chan error
}

func NewMQTTSubscriber(cfg config.MQTTConfig, b bus.MessageBus, logger *slog.Logger) *MQTTSubscriber {
	return &MQTTSubscriber{
		cfg:    cfg,
		bus:    b,
		logger: logger.With("component", "transport", "broker", cfg.Host),
		fatal:  make(chan error, 1),
	}
}

// BrokerURL is the websocket endpoint derived from config.
func (s *MQTTSubscriber) BrokerURL() string {
	u := url.URL{Scheme: "wss", Host: fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)}

	return u.String()
}

// Run connects, subscribes, and blocks until the context is canceled or the
// connection fails. Message payloads are published to the bus in broker
// delivery order; the returned error is nil only on context cancellation.
func (s *MQTTSubscriber) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.BrokerURL()).
		SetClientID(s.cfg.ClientID).
		SetProtocolVersion(4).
		SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(false).
		SetOrderMatters(true).
		SetKeepAlive(60 * time.Second)
	if s.cfg.Username != "" || s.cfg.Password != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		s.logger.Info("connected to broker", "topic", s.cfg.Topic)
		token := client.Subscribe(s.cfg.Topic, 0, s.onMessage)
		go func() {
			token.Wait()
			if err := token.Error(); err != nil {
				s.fail(fmt.Errorf("subscribe %s: %w", s.cfg.Topic, err))
			}
		}()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.fail(fmt.Errorf("broker connection lost: %w", err))
	})

	client := mqtt.NewClient(opts)
	s.logger.Info("connecting", "url", s.BrokerURL())
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect %s: %w", s.BrokerURL(), err)
	}
	defer client.Disconnect(250)

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")

		return nil
	case err := <-s.fatal:
		return err
	}
}

func (s *MQTTSubscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	s.bus.Publish(bus.TopicInboundPackets, msg.Payload())
}

func (s *MQTTSubscriber) fail(err error) {
	select {
	case s.fatal <- err:
	default:
	}
}
