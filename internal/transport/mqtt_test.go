package transport

import (
	"io"
	"log/slog"
	"testing"

	"github.com/ctmesh/wardrive/internal/bus"
	"github.com/ctmesh/wardrive/internal/config"
)

func TestBrokerURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bus.New(logger)
	defer b.Close()

	s := NewMQTTSubscriber(config.MQTTConfig{Host: "analyzer.letsmesh.net", Port: 443}, b, logger)

	if got, want := s.BrokerURL(), "wss://analyzer.letsmesh.net:443"; got != want {
		t.Fatalf("broker url %q, want %q", got, want)
	}
}
