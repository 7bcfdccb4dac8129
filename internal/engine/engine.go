package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"swipee/pkg/interfaces"
	"swipee/pkg/types"
)

// Engine owns the authoritative session records. Every mutation is a
// read-modify-write against the injected store, serialized by a per-key
// mutex so concurrent appends on one session never lose an entry, while
// different sessions proceed in parallel.
//
// After each durable write the engine broadcasts the transition on the
// realtime channel. Publishing is best effort: a channel failure is logged
// and swallowed, because any client can recover by reading the record.
type Engine struct {
	store     interfaces.RecordStore
	publisher interfaces.Publisher // may be nil
	namespace string               // topic prefix, e.g. "swipee/game"

	now func() time.Time // injectable clock for tests

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher attaches a realtime channel publisher.
func WithPublisher(p interfaces.Publisher, namespace string) Option {
	return func(e *Engine) {
		e.publisher = p
		e.namespace = namespace
	}
}

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over the given store.
func New(store interfaces.RecordStore, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		namespace: "swipee/game",
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// keyLock returns the mutex serializing operations on one session key.
// Entries are never removed: a lock shared with a concurrent deleter must
// stay the same instance, and the map grows only with distinct sessions.
func (e *Engine) keyLock(key types.SessionKey) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, exists := e.locks[key.String()]
	if !exists {
		lock = &sync.Mutex{}
		e.locks[key.String()] = lock
	}
	return lock
}

// Initialize creates or overwrites the record for key with empty logs.
// Overwrite semantics are deliberate; callers wanting create-if-absent
// must GetRecord first.
func (e *Engine) Initialize(ctx context.Context, key types.SessionKey, gameType string, config types.SessionConfig) error {
	if gameType == "" {
		return ErrInvalidGameType
	}
	if err := config.Validate(); err != nil {
		return err
	}

	lock := e.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	record := &types.SessionRecord{
		Type:    gameType,
		Config:  config,
		Events:  []types.LifecycleEvent{},
		Scores:  []types.ScoreEntry{},
		Version: 1,
	}
	if prev, err := e.store.Get(ctx, key); err == nil {
		record.Version = prev.Version + 1
	}

	if err := e.store.Put(ctx, key, record); err != nil {
		return err
	}

	log.Printf("Initialized session: key=%s type=%s questions=%d",
		key, gameType, len(config.Questions))
	return nil
}

// AppendEvent stamps the event with the engine clock, appends it to the
// record's event log and returns the resulting phase.
func (e *Engine) AppendEvent(ctx context.Context, key types.SessionKey, name types.EventName) (types.Phase, error) {
	if !types.IsValidEventName(name) {
		return "", types.ErrInvalidEventName
	}

	lock := e.keyLock(key)
	lock.Lock()

	record, err := e.store.Get(ctx, key)
	if err != nil {
		lock.Unlock()
		return "", err
	}

	event := types.LifecycleEvent{
		EventName: name,
		Timestamp: e.stamp(lastEventTimestamp(record)),
	}
	record.Events = append(record.Events, event)
	record.Version++

	if err := e.store.Put(ctx, key, record); err != nil {
		lock.Unlock()
		return "", err
	}
	phase := ComputePhase(record)
	config := record.Config
	lock.Unlock()

	log.Printf("Appended event: key=%s event=%s phase=%s", key, name, phase)

	switch name {
	case types.EventStarted:
		e.publish(ctx, key, types.Message{
			ID:    uuid.New().String(),
			Type:  types.MessageGameStart,
			Start: &types.StartPayload{Config: config, Timestamp: event.Timestamp},
		})
	case types.EventStopped:
		e.publish(ctx, key, types.Message{
			ID:   uuid.New().String(),
			Type: types.MessageGameStop,
			Stop: &types.StopPayload{Timestamp: event.Timestamp},
		})
	}

	return phase, nil
}

// AppendScore stamps and appends a score entry to the record's score log.
func (e *Engine) AppendScore(ctx context.Context, key types.SessionKey, entry types.ScoreEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	lock := e.keyLock(key)
	lock.Lock()

	record, err := e.store.Get(ctx, key)
	if err != nil {
		lock.Unlock()
		return err
	}

	entry.Timestamp = e.stamp(lastScoreTimestamp(record))
	record.Scores = append(record.Scores, entry)
	record.Version++

	if err := e.store.Put(ctx, key, record); err != nil {
		lock.Unlock()
		return err
	}
	lock.Unlock()

	log.Printf("Appended score: key=%s audience=%s score=%d", key, entry.AudienceID, entry.Score)

	e.publish(ctx, key, types.Message{
		ID:    uuid.New().String(),
		Type:  types.MessageScoreUpdate,
		Score: &types.ScorePayload{Key: key, Entry: entry, Timestamp: entry.Timestamp},
	})
	return nil
}

// ReplaceConfig swaps the config wholesale; both logs stay intact. There
// is no partial patch: callers resubmit the full desired config.
func (e *Engine) ReplaceConfig(ctx context.Context, key types.SessionKey, config types.SessionConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	lock := e.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	record, err := e.store.Get(ctx, key)
	if err != nil {
		return err
	}

	record.Config = config
	record.Version++
	return e.store.Put(ctx, key, record)
}

// GetRecord returns the full record for key, or ErrSessionNotFound.
func (e *Engine) GetRecord(ctx context.Context, key types.SessionKey) (*types.SessionRecord, error) {
	return e.store.Get(ctx, key)
}

// Delete removes the record. Idempotent; there is no soft delete.
func (e *Engine) Delete(ctx context.Context, key types.SessionKey) error {
	lock := e.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if err := e.store.Delete(ctx, key); err != nil {
		return err
	}
	log.Printf("Deleted session: key=%s", key)
	return nil
}

// stamp returns the current engine time in milliseconds, bumped past the
// log's last timestamp so entries stay distinct and ordered even when
// appends land in the same millisecond or the wall clock steps backwards.
func (e *Engine) stamp(floor int64) int64 {
	ts := e.now().UnixMilli()
	if ts <= floor {
		ts = floor + 1
	}
	return ts
}

func (e *Engine) publish(ctx context.Context, key types.SessionKey, msg types.Message) {
	if e.publisher == nil {
		return
	}
	// One realtime topic per presentation; all slides share it.
	topic := e.namespace + "/" + key.PresentationID
	if err := e.publisher.Publish(ctx, topic, msg); err != nil {
		// The durable record is the source of truth; a missed broadcast
		// is recovered by the client's next GetRecord.
		log.Printf("Realtime publish failed: topic=%s type=%s err=%v", topic, msg.Type, err)
	}
}

func lastEventTimestamp(record *types.SessionRecord) int64 {
	if len(record.Events) == 0 {
		return 0
	}
	return record.Events[len(record.Events)-1].Timestamp
}

func lastScoreTimestamp(record *types.SessionRecord) int64 {
	if len(record.Scores) == 0 {
		return 0
	}
	return record.Scores[len(record.Scores)-1].Timestamp
}

// ComputePhase derives the running state from the event log: empty log or
// trailing STOPPED means not running, trailing STARTED means running.
func ComputePhase(record *types.SessionRecord) types.Phase {
	if record == nil || len(record.Events) == 0 {
		return types.PhaseStoppedOrNew
	}
	if record.Events[len(record.Events)-1].EventName == types.EventStarted {
		return types.PhaseRunning
	}
	return types.PhaseStoppedOrNew
}

// ComputeElapsed returns how long the session has been running at the
// given instant: now minus the most recent STARTED timestamp. Zero when
// the session is not running.
func ComputeElapsed(record *types.SessionRecord, now time.Time) time.Duration {
	if ComputePhase(record) != types.PhaseRunning {
		return 0
	}
	started := record.Events[len(record.Events)-1].Timestamp
	elapsed := now.UnixMilli() - started
	if elapsed < 0 {
		return 0
	}
	return time.Duration(elapsed) * time.Millisecond
}
