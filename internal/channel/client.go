package channel

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"swipee/pkg/interfaces"
	"swipee/pkg/types"
)

// ClientConfig tunes the reconnecting subscriber.
type ClientConfig struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	ReconnectMin time.Duration // backoff floor
	ReconnectMax time.Duration // backoff cap
	DedupeWindow int           // how many recent message IDs to remember
}

// DefaultClientConfig matches the original client: 5s connect timeout,
// 1s reconnect floor.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		DialTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		ReconnectMin: time.Second,
		ReconnectMax: 30 * time.Second,
		DedupeWindow: 256,
	}
}

type clientHandler struct {
	id      int
	handler interfaces.MessageHandler
}

// Client is one process's connection to a broker topic. It dials the
// broker, redials with bounded exponential backoff when the link drops,
// and dispatches received messages to registered handlers in arrival
// order. Duplicate deliveries are dropped by message ID.
//
// While disconnected, Publish fails with ErrTransportUnavailable rather
// than queueing: the caller's durable write already happened and any peer
// reconciles through GetRecord, so silently pretending to deliver would
// only hide the gap.
type Client struct {
	url    string
	topic  string
	config ClientConfig

	mu        sync.Mutex
	ws        *websocket.Conn
	connected bool
	handlers  []clientHandler
	nextID    int

	seen      map[string]bool
	seenOrder []string

	done      chan struct{}
	closeOnce sync.Once
	started   bool
	wg        sync.WaitGroup
}

// NewClient creates a client for one topic. brokerURL is the WebSocket
// endpoint, e.g. "ws://localhost:8080/ws".
func NewClient(brokerURL, topic string, config ClientConfig) (*Client, error) {
	if !isValidTopic(topic) {
		return nil, ErrInvalidTopic
	}
	if config.DialTimeout <= 0 {
		config = DefaultClientConfig()
	}
	return &Client{
		url:    brokerURL + "?topic=" + topic,
		topic:  topic,
		config: config,
		seen:   make(map[string]bool),
		done:   make(chan struct{}),
	}, nil
}

// Start launches the connect/read loop. The first dial happens
// synchronously so callers learn immediately whether the broker is
// reachable; reconnects after that are automatic.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.started = true
	c.mu.Unlock()

	if err := c.dial(ctx); err != nil {
		return err
	}

	c.wg.Add(1)
	go c.run(ctx)
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.DialTimeout}
	ws, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return interfaces.ErrTransportUnavailable
	}

	c.mu.Lock()
	c.ws = ws
	c.connected = true
	c.mu.Unlock()

	log.Printf("Channel connected: topic=%s", c.topic)
	return nil
}

// run reads messages until the link drops, then redials with backoff.
func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()

	for {
		c.readPump()

		c.mu.Lock()
		c.connected = false
		c.ws = nil
		c.mu.Unlock()

		// Redial with bounded exponential backoff.
		backoff := c.config.ReconnectMin
		for {
			select {
			case <-c.done:
				return
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}

			if err := c.dial(ctx); err == nil {
				break
			}
			log.Printf("Channel reconnect failed, retrying in %v: topic=%s", backoff, c.topic)
			backoff *= 2
			if backoff > c.config.ReconnectMax {
				backoff = c.config.ReconnectMax
			}
		}
	}
}

func (c *Client) readPump() {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return
	}

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg types.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Dropping malformed channel message: topic=%s err=%v", c.topic, err)
			continue
		}
		c.dispatch(msg)
	}
}

// dispatch invokes handlers in registration order, on the single read
// goroutine, preserving the broker's delivery order. Redelivered message
// IDs are dropped; handlers still tolerate duplicates themselves, since
// a publisher may reuse IDs across reconnects.
func (c *Client) dispatch(msg types.Message) {
	c.mu.Lock()
	if msg.ID != "" {
		if c.seen[msg.ID] {
			c.mu.Unlock()
			return
		}
		c.remember(msg.ID)
	}
	handlers := make([]clientHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h.handler(msg)
	}
}

// remember records a message ID in the bounded dedupe window. Caller
// holds the lock.
func (c *Client) remember(id string) {
	c.seen[id] = true
	c.seenOrder = append(c.seenOrder, id)
	if len(c.seenOrder) > c.config.DedupeWindow {
		oldest := c.seenOrder[0]
		c.seenOrder = c.seenOrder[1:]
		delete(c.seen, oldest)
	}
}

// Publish sends a message to the client's topic. Implements
// interfaces.Publisher for the presenter/audience processes.
func (c *Client) Publish(ctx context.Context, topic string, msg types.Message) error {
	if topic != c.topic {
		return ErrTopicMismatch
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.ws == nil {
		return interfaces.ErrTransportUnavailable
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
		return interfaces.ErrTransportUnavailable
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		// The read pump will notice the dead link and reconnect.
		return interfaces.ErrTransportUnavailable
	}
	return nil
}

// Subscribe registers a handler for the client's topic. Implements
// interfaces.Subscriber. The returned cancel releases the registration;
// it is safe to call more than once.
func (c *Client) Subscribe(topic string, handler interfaces.MessageHandler) (func(), error) {
	if topic != c.topic {
		return nil, ErrTopicMismatch
	}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers = append(c.handlers, clientHandler{id: id, handler: handler})
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, h := range c.handlers {
			if h.id == id {
				c.handlers = append(c.handlers[:i], c.handlers[i+1:]...)
				return
			}
		}
	}
	return cancel, nil
}

// IsConnected reports whether the link is currently up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears the connection down and stops reconnecting.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.ws != nil {
			_ = c.ws.Close()
		}
		c.connected = false
		c.mu.Unlock()
		c.wg.Wait()
	})
	return nil
}
