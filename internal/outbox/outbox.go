// Package outbox decouples audience score submission from the engine
// write path. Swipes are evaluated entirely client-side; the resulting
// score entries are appended locally here and drained to the engine
// asynchronously with a bounded retry policy, instead of the
// fire-and-forget callback this replaces.
package outbox

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"swipee/pkg/interfaces"
	"swipee/pkg/types"
)

// Config tunes the drain loop.
type Config struct {
	QueueSize   int           // pending submissions before Enqueue fails
	MaxAttempts int           // per-submission delivery attempts
	RetryDelay  time.Duration // pause between attempts
}

// DefaultConfig returns sensible audience-scale settings.
func DefaultConfig() Config {
	return Config{
		QueueSize:   256,
		MaxAttempts: 5,
		RetryDelay:  500 * time.Millisecond,
	}
}

// ErrQueueFull is returned when the outbox cannot accept more
// submissions; the caller sees the failure instead of a silent drop.
var ErrQueueFull = errors.New("score outbox queue is full")

type submission struct {
	key      types.SessionKey
	entry    types.ScoreEntry
	attempts int
}

// Outbox drains queued score entries to the engine.
type Outbox struct {
	engine interfaces.GameEngine
	config Config

	queue chan submission
	done  chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup

	mu      sync.Mutex
	dropped int
}

// New creates an outbox over the given engine.
func New(engine interfaces.GameEngine, config Config) *Outbox {
	if config.QueueSize <= 0 {
		config = DefaultConfig()
	}
	return &Outbox{
		engine: engine,
		config: config,
		queue:  make(chan submission, config.QueueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the drain goroutine.
func (o *Outbox) Start(ctx context.Context) {
	o.wg.Add(1)
	go o.drain(ctx)
}

// Enqueue accepts a score for asynchronous delivery. A full queue is a
// visible error, never a silent drop.
func (o *Outbox) Enqueue(key types.SessionKey, entry types.ScoreEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	select {
	case <-o.done:
		return ErrQueueFull
	default:
	}
	select {
	case o.queue <- submission{key: key, entry: entry}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (o *Outbox) drain(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case sub := <-o.queue:
			o.deliver(ctx, sub)
		case <-o.done:
			// Flush whatever is already queued before exiting.
			for {
				select {
				case sub := <-o.queue:
					o.deliver(ctx, sub)
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// deliver appends one score, retrying transient failures up to the
// attempt budget. A missing session is permanent: the session was
// deleted, so the score is dropped immediately.
func (o *Outbox) deliver(ctx context.Context, sub submission) {
	for {
		sub.attempts++
		err := o.engine.AppendScore(ctx, sub.key, sub.entry)
		if err == nil {
			return
		}
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			o.drop(sub, err)
			return
		}
		if sub.attempts >= o.config.MaxAttempts {
			o.drop(sub, err)
			return
		}

		select {
		case <-time.After(o.config.RetryDelay):
		case <-ctx.Done():
			o.drop(sub, ctx.Err())
			return
		}
	}
}

func (o *Outbox) drop(sub submission, err error) {
	o.mu.Lock()
	o.dropped++
	o.mu.Unlock()
	log.Printf("Dropped score submission: key=%s audience=%s attempts=%d err=%v",
		sub.key, sub.entry.AudienceID, sub.attempts, err)
}

// Pending returns how many submissions are queued.
func (o *Outbox) Pending() int {
	return len(o.queue)
}

// Dropped returns how many submissions were abandoned.
func (o *Outbox) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

// Close stops accepting submissions, flushes the queue and waits for the
// drain goroutine.
func (o *Outbox) Close() error {
	o.closeOnce.Do(func() {
		close(o.done)
		o.wg.Wait()
	})
	return nil
}
