package channel

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"swipee/pkg/interfaces"
	"swipee/pkg/types"
)

var upgrader = websocket.Upgrader{
	// Origin checks belong to a reverse proxy in this deployment.
	CheckOrigin:      func(r *http.Request) bool { return true },
	HandshakeTimeout: 10 * time.Second,
}

// BrokerConfig tunes the in-process pub/sub broker.
type BrokerConfig struct {
	BufferSize   int           // per-connection outbound buffer
	PingInterval time.Duration // server-initiated keepalive
	ReadTimeout  time.Duration // pong wait
	WriteTimeout time.Duration
}

// DefaultBrokerConfig mirrors the keepalive the original deployment used
// (30s keepalive, short write deadline).
func DefaultBrokerConfig() BrokerConfig {
	return BrokerConfig{
		BufferSize:   100,
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Broker is the topic-based publish/subscribe hub. One topic per
// presentation; every subscriber of a topic receives every message
// published to it, in publish order (per-publisher FIFO — each
// connection's writes are drained by a single goroutine in queue order).
//
// The broker is a latency optimization, never the carrier of truth:
// delivery is best effort, slow subscribers miss messages, and every
// client can recover by reading the durable session record.
type Broker struct {
	config BrokerConfig

	mu     sync.RWMutex
	topics map[string]map[string]*connection // topic -> connID -> connection
	closed bool
}

// NewBroker creates an empty broker.
func NewBroker(config BrokerConfig) *Broker {
	if config.BufferSize <= 0 {
		config = DefaultBrokerConfig()
	}
	return &Broker{
		config: config,
		topics: make(map[string]map[string]*connection),
	}
}

// Publish implements interfaces.Publisher: fan the message out to every
// subscriber of the topic. No delivery acknowledgment; a full subscriber
// buffer drops that subscriber's copy.
func (b *Broker) Publish(ctx context.Context, topic string, msg types.Message) error {
	if !isValidTopic(topic) {
		return ErrInvalidTopic
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return interfaces.ErrTransportUnavailable
	}
	subscribers := make([]*connection, 0, len(b.topics[topic]))
	for _, conn := range b.topics[topic] {
		subscribers = append(subscribers, conn)
	}
	b.mu.RUnlock()

	for _, conn := range subscribers {
		if !conn.send(data) {
			log.Printf("Dropped message for slow subscriber: topic=%s conn=%s type=%s",
				topic, conn.id, msg.Type)
		}
	}
	return nil
}

// HandleWebSocket upgrades a subscriber connection. The topic comes from
// the ?topic= query parameter; everything the topic receives is relayed
// to this socket, and messages the socket sends are relayed to the topic.
func (b *Broker) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if !isValidTopic(topic) {
		http.Error(w, "Missing or invalid topic parameter", http.StatusBadRequest)
		return
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		http.Error(w, "Broker is shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn := newConnection(uuid.New().String(), topic, ws,
		b.config.BufferSize, b.config.PingInterval, b.config.WriteTimeout)

	if err := b.register(conn); err != nil {
		conn.close()
		return
	}
	log.Printf("Subscriber connected: topic=%s conn=%s", topic, conn.id)

	go b.readLoop(conn)
}

// readLoop relays inbound messages from one subscriber to its topic and
// tears the connection down on any read error. Disconnect releases the
// subscription: after unregister the peer receives nothing further.
func (b *Broker) readLoop(conn *connection) {
	defer func() {
		b.unregister(conn)
		conn.close()
		log.Printf("Subscriber disconnected: topic=%s conn=%s", conn.topic, conn.id)
	}()

	_ = conn.conn.SetReadDeadline(time.Now().Add(b.config.ReadTimeout))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(b.config.ReadTimeout))
	})

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg types.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Dropping malformed message: topic=%s conn=%s err=%v", conn.topic, conn.id, err)
			continue
		}
		if err := b.Publish(context.Background(), conn.topic, msg); err != nil {
			log.Printf("Relay failed: topic=%s conn=%s err=%v", conn.topic, conn.id, err)
		}
	}
}

func (b *Broker) register(conn *connection) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBrokerClosed
	}
	if b.topics[conn.topic] == nil {
		b.topics[conn.topic] = make(map[string]*connection)
	}
	b.topics[conn.topic][conn.id] = conn
	return nil
}

// unregister is idempotent; the empty topic entry is pruned.
func (b *Broker) unregister(conn *connection) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, exists := b.topics[conn.topic]
	if !exists {
		return
	}
	delete(subscribers, conn.id)
	if len(subscribers) == 0 {
		delete(b.topics, conn.topic)
	}
}

// SubscriberCount returns how many connections a topic currently has.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Stats returns broker counters for the health endpoint.
func (b *Broker) Stats() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, subscribers := range b.topics {
		total += len(subscribers)
	}
	return map[string]int{
		"topics":      len(b.topics),
		"subscribers": total,
	}
}

// Close disconnects every subscriber and rejects further publishes.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	conns := make([]*connection, 0)
	for _, subscribers := range b.topics {
		for _, conn := range subscribers {
			conns = append(conns, conn)
		}
	}
	b.topics = make(map[string]map[string]*connection)
	b.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
	return nil
}

func isValidTopic(topic string) bool {
	return len(topic) >= 1 && len(topic) <= 128
}
