package channel

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// connection wraps one subscriber's WebSocket. All writes funnel through a
// buffered channel drained by a single writer goroutine, so concurrent
// publishes never race on the socket and a slow consumer never blocks the
// broker: when the buffer is full the message is dropped and the consumer
// reconciles through the durable record.
type connection struct {
	id      string
	topic   string
	conn    *websocket.Conn
	writeCh chan []byte

	pingInterval time.Duration
	writeTimeout time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newConnection(id, topic string, conn *websocket.Conn, bufferSize int, pingInterval, writeTimeout time.Duration) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		id:           id,
		topic:        topic,
		conn:         conn,
		writeCh:      make(chan []byte, bufferSize),
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
	go c.writeLoop()
	return c
}

// writeLoop is the single writer for this socket. It also owns the ping
// ticker; dead peers fail the ping write and the loop exits.
func (c *connection) writeLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				c.close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				c.close()
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// send queues data for delivery. Non-blocking: a full buffer drops the
// message rather than stalling the publisher.
func (c *connection) send(data []byte) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}

	select {
	case c.writeCh <- data:
		return true
	default:
		return false
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.Close()
	})
}

func (c *connection) closed() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}
