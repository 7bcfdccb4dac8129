package interfaces

import (
	"context"

	"swipee/pkg/types"
)

// MessageHandler is invoked for every message received on a subscribed
// topic. Handlers must tolerate duplicate and out-of-order deliveries:
// apply transitions by comparing embedded payload timestamps, not arrival
// order.
type MessageHandler func(msg types.Message)

// Publisher is the engine-facing half of the realtime channel. Publishing
// is best effort and fire-and-forget: the durable record is the source of
// truth, the channel only a latency hint. While the transport is down
// Publish fails visibly with ErrTransportUnavailable rather than dropping
// silently.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg types.Message) error
}

// Subscriber registers handlers for a topic. Delivery preserves FIFO order
// per publisher; cross-publisher ordering is not guaranteed. The returned
// cancel function releases the subscription; after it returns the handler
// will not be invoked again.
type Subscriber interface {
	Subscribe(topic string, handler MessageHandler) (cancel func(), err error)
}
