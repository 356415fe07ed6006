package bus

import (
	"log/slog"

	"github.com/cskr/pubsub"
)

// TopicInboundPackets carries raw broker message payloads ([]byte) from the
// transport to the pipeline consumer.
const TopicInboundPackets = "transport.inbound"

const bufferSize = 128

type Subscription chan any

// MessageBus decouples the transport's delivery goroutine from the single
// sequential pipeline consumer. Per-topic ordering follows publish order.
type MessageBus interface {
	Publish(topic string, msg any)
	Subscribe(topic string) Subscription
	Close()
}

type PubSubBus struct {
	ps     *pubsub.PubSub
	logger *slog.Logger
}

func New(logger *slog.Logger) *PubSubBus {
	return &PubSubBus{
		ps:     pubsub.New(bufferSize),
		logger: logger.With("component", "bus"),
	}
}

func (b *PubSubBus) Publish(topic string, msg any) {
	b.logger.Debug("publish", "topic", topic)
	b.ps.Pub(msg, topic)
}

func (b *PubSubBus) Subscribe(topic string) Subscription {
	b.logger.Debug("subscribe", "topic", topic)

	return b.ps.Sub(topic)
}

func (b *PubSubBus) Close() {
	b.ps.Shutdown()
}
