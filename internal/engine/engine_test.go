package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"swipee/pkg/interfaces"
	"swipee/pkg/types"
)

// Mock RecordStore for testing.
type mockStore struct {
	mu      sync.RWMutex
	records map[string]*types.SessionRecord

	shouldFailPut bool
	shouldFailGet bool
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[string]*types.SessionRecord)}
}

func (m *mockStore) Get(ctx context.Context, key types.SessionKey) (*types.SessionRecord, error) {
	if m.shouldFailGet {
		return nil, interfaces.ErrStorageFailure
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, exists := m.records[key.String()]
	if !exists {
		return nil, interfaces.ErrSessionNotFound
	}
	return record.Clone(), nil
}

func (m *mockStore) Put(ctx context.Context, key types.SessionKey, record *types.SessionRecord) error {
	if m.shouldFailPut {
		return interfaces.ErrStorageFailure
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key.String()] = record.Clone()
	return nil
}

func (m *mockStore) Delete(ctx context.Context, key types.SessionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key.String())
	return nil
}

func (m *mockStore) HealthCheck(ctx context.Context) error { return nil }
func (m *mockStore) Close() error                          { return nil }

// Mock Publisher capturing published messages.
type mockPublisher struct {
	mu         sync.Mutex
	published  []publishedMsg
	shouldFail bool
}

type publishedMsg struct {
	topic string
	msg   types.Message
}

func (p *mockPublisher) Publish(ctx context.Context, topic string, msg types.Message) error {
	if p.shouldFail {
		return interfaces.ErrTransportUnavailable
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, publishedMsg{topic: topic, msg: msg})
	return nil
}

func (p *mockPublisher) messages() []publishedMsg {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedMsg, len(p.published))
	copy(out, p.published)
	return out
}

func mustKey(t *testing.T, p, s string) types.SessionKey {
	t.Helper()
	key, err := types.NewSessionKey(p, s)
	if err != nil {
		t.Fatalf("NewSessionKey(%q, %q): %v", p, s, err)
	}
	return key
}

func twoQuestionConfig() types.SessionConfig {
	return types.SessionConfig{Questions: []types.Question{
		{ID: "q1", Options: []types.Option{{Title: "yes", IsCorrect: true}, {Title: "no"}}},
		{ID: "q2", Options: []types.Option{{Title: "yes"}, {Title: "no", IsCorrect: true}}},
	}}
}

func TestEngine_InterfaceCompliance(t *testing.T) {
	var _ interfaces.GameEngine = New(newMockStore())
}

func TestInitialize_RoundTrip(t *testing.T) {
	ctx := context.Background()
	e := New(newMockStore())
	key := mustKey(t, "p1", "s1")
	cfg := twoQuestionConfig()

	if err := e.Initialize(ctx, key, types.GameTypeSwipee, cfg); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	record, err := e.GetRecord(ctx, key)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if len(record.Events) != 0 || len(record.Scores) != 0 {
		t.Errorf("fresh record must have empty logs: events=%d scores=%d", len(record.Events), len(record.Scores))
	}
	if len(record.Config.Questions) != 2 {
		t.Errorf("config lost in round trip: %+v", record.Config)
	}
	if record.Version != 1 {
		t.Errorf("fresh record should have version 1, got %d", record.Version)
	}
}

func TestInitialize_OverwritesAndBumpsVersion(t *testing.T) {
	ctx := context.Background()
	e := New(newMockStore())
	key := mustKey(t, "p1", "s1")

	if err := e.Initialize(ctx, key, types.GameTypeSwipee, twoQuestionConfig()); err != nil {
		t.Fatalf("first Initialize failed: %v", err)
	}
	if _, err := e.AppendEvent(ctx, key, types.EventStarted); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	// Re-initialize clobbers the in-progress session. Deliberate.
	if err := e.Initialize(ctx, key, types.GameTypeSwipee, twoQuestionConfig()); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	record, _ := e.GetRecord(ctx, key)
	if len(record.Events) != 0 {
		t.Errorf("re-initialize must reset the event log, got %d events", len(record.Events))
	}
	if record.Version != 3 {
		t.Errorf("version should track every write (init, append, init): got %d", record.Version)
	}
}

func TestInitialize_RejectsEmptyConfig(t *testing.T) {
	e := New(newMockStore())
	err := e.Initialize(context.Background(), mustKey(t, "p1", "s1"), types.GameTypeSwipee, types.SessionConfig{})
	if !errors.Is(err, types.ErrEmptyConfig) {
		t.Errorf("expected ErrEmptyConfig, got %v", err)
	}
}

func TestAppendEvent_NotFound(t *testing.T) {
	e := New(newMockStore())
	_, err := e.AppendEvent(context.Background(), mustKey(t, "p1", "missing"), types.EventStarted)
	if !errors.Is(err, interfaces.ErrSessionNotFound) {
		t.Errorf("append before initialize should be ErrSessionNotFound, got %v", err)
	}
}

func TestAppendEvent_PhaseTransitions(t *testing.T) {
	ctx := context.Background()
	e := New(newMockStore())
	key := mustKey(t, "p1", "s1")
	if err := e.Initialize(ctx, key, types.GameTypeSwipee, twoQuestionConfig()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	phase, err := e.AppendEvent(ctx, key, types.EventStarted)
	if err != nil {
		t.Fatalf("AppendEvent(STARTED) failed: %v", err)
	}
	if phase != types.PhaseRunning {
		t.Errorf("expected RUNNING after STARTED, got %s", phase)
	}

	phase, err = e.AppendEvent(ctx, key, types.EventStopped)
	if err != nil {
		t.Fatalf("AppendEvent(STOPPED) failed: %v", err)
	}
	if phase != types.PhaseStoppedOrNew {
		t.Errorf("expected STOPPED_OR_NEW after STOPPED, got %s", phase)
	}
}

func TestAppendEvent_ConcurrentAppendsLoseNothing(t *testing.T) {
	ctx := context.Background()
	e := New(newMockStore())
	key := mustKey(t, "p1", "s1")
	if err := e.Initialize(ctx, key, types.GameTypeSwipee, twoQuestionConfig()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := e.AppendEvent(ctx, key, types.EventStarted); err != nil {
				t.Errorf("concurrent AppendEvent failed: %v", err)
			}
		}()
	}
	wg.Wait()

	record, err := e.GetRecord(ctx, key)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if len(record.Events) != n {
		t.Fatalf("lost updates: expected %d events, got %d", n, len(record.Events))
	}
	seen := make(map[int64]bool, n)
	for i, event := range record.Events {
		if seen[event.Timestamp] {
			t.Errorf("duplicate timestamp %d at index %d", event.Timestamp, i)
		}
		seen[event.Timestamp] = true
		if i > 0 && event.Timestamp < record.Events[i-1].Timestamp {
			t.Errorf("timestamps must be non-decreasing: %d then %d",
				record.Events[i-1].Timestamp, event.Timestamp)
		}
	}
}

func TestAppendScore_StampsAndAppends(t *testing.T) {
	ctx := context.Background()
	fixed := time.UnixMilli(5_000_000)
	e := New(newMockStore(), WithClock(func() time.Time { return fixed }))
	key := mustKey(t, "p1", "s1")
	if err := e.Initialize(ctx, key, types.GameTypeSwipee, twoQuestionConfig()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// Caller-supplied timestamps are ignored; the engine stamps at append.
	entry := types.ScoreEntry{AudienceID: "a1", Score: 1, Timestamp: 42}
	if err := e.AppendScore(ctx, key, entry); err != nil {
		t.Fatalf("AppendScore failed: %v", err)
	}

	record, _ := e.GetRecord(ctx, key)
	if len(record.Scores) != 1 {
		t.Fatalf("expected 1 score, got %d", len(record.Scores))
	}
	if record.Scores[0].Timestamp != fixed.UnixMilli() {
		t.Errorf("engine must assign the timestamp: got %d, want %d",
			record.Scores[0].Timestamp, fixed.UnixMilli())
	}
}

func TestAppendScore_NotFound(t *testing.T) {
	e := New(newMockStore())
	err := e.AppendScore(context.Background(), mustKey(t, "p1", "missing"), types.ScoreEntry{AudienceID: "a1"})
	if !errors.Is(err, interfaces.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestReplaceConfig_KeepsLogs(t *testing.T) {
	ctx := context.Background()
	e := New(newMockStore())
	key := mustKey(t, "p1", "s1")
	if err := e.Initialize(ctx, key, types.GameTypeSwipee, twoQuestionConfig()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if _, err := e.AppendEvent(ctx, key, types.EventStarted); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	replacement := types.SessionConfig{Title: "round two", Questions: twoQuestionConfig().Questions[:1]}
	if err := e.ReplaceConfig(ctx, key, replacement); err != nil {
		t.Fatalf("ReplaceConfig failed: %v", err)
	}

	record, _ := e.GetRecord(ctx, key)
	if record.Config.Title != "round two" || len(record.Config.Questions) != 1 {
		t.Errorf("config not replaced: %+v", record.Config)
	}
	if len(record.Events) != 1 {
		t.Errorf("ReplaceConfig must not touch the event log, got %d events", len(record.Events))
	}
}

func TestDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	e := New(newMockStore())
	key := mustKey(t, "p1", "s1")
	if err := e.Initialize(ctx, key, types.GameTypeSwipee, twoQuestionConfig()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if err := e.Delete(ctx, key); err != nil {
		t.Fatalf("first Delete failed: %v", err)
	}
	if err := e.Delete(ctx, key); err != nil {
		t.Errorf("second Delete should not error, got %v", err)
	}
	if _, err := e.GetRecord(ctx, key); !errors.Is(err, interfaces.ErrSessionNotFound) {
		t.Errorf("deleted session must read as never created, got %v", err)
	}
}

func TestAppendEvent_PublishesAfterDurableWrite(t *testing.T) {
	ctx := context.Background()
	pub := &mockPublisher{}
	e := New(newMockStore(), WithPublisher(pub, "swipee/game"))
	key := mustKey(t, "p1", "s1")
	if err := e.Initialize(ctx, key, types.GameTypeSwipee, twoQuestionConfig()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if _, err := e.AppendEvent(ctx, key, types.EventStarted); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if _, err := e.AppendEvent(ctx, key, types.EventStopped); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if err := e.AppendScore(ctx, key, types.ScoreEntry{AudienceID: "a1", Score: 1}); err != nil {
		t.Fatalf("AppendScore failed: %v", err)
	}

	msgs := pub.messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 published messages, got %d", len(msgs))
	}
	wantTopic := "swipee/game/p1"
	wantTypes := []types.MessageType{types.MessageGameStart, types.MessageGameStop, types.MessageScoreUpdate}
	for i, m := range msgs {
		if m.topic != wantTopic {
			t.Errorf("message %d topic = %s, want %s", i, m.topic, wantTopic)
		}
		if m.msg.Type != wantTypes[i] {
			t.Errorf("message %d type = %s, want %s", i, m.msg.Type, wantTypes[i])
		}
		if m.msg.Timestamp() == 0 {
			t.Errorf("message %d must embed the event timestamp", i)
		}
		if m.msg.ID == "" {
			t.Errorf("message %d must carry a dedupe ID", i)
		}
	}
	if msgs[0].msg.Start == nil || len(msgs[0].msg.Start.Config.Questions) != 2 {
		t.Error("GAME_START must carry the session config")
	}
}

func TestAppendEvent_PublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	pub := &mockPublisher{shouldFail: true}
	e := New(newMockStore(), WithPublisher(pub, "swipee/game"))
	key := mustKey(t, "p1", "s1")
	if err := e.Initialize(ctx, key, types.GameTypeSwipee, twoQuestionConfig()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	phase, err := e.AppendEvent(ctx, key, types.EventStarted)
	if err != nil {
		t.Fatalf("append must succeed despite transport failure, got %v", err)
	}
	if phase != types.PhaseRunning {
		t.Errorf("expected RUNNING, got %s", phase)
	}
	// Durable state is intact; clients recover via GetRecord.
	record, _ := e.GetRecord(ctx, key)
	if len(record.Events) != 1 {
		t.Errorf("event must be durable even when the broadcast fails")
	}
}

func TestAppendEvent_StorageFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	e := New(store)
	key := mustKey(t, "p1", "s1")
	if err := e.Initialize(ctx, key, types.GameTypeSwipee, twoQuestionConfig()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	store.shouldFailPut = true
	if _, err := e.AppendEvent(ctx, key, types.EventStarted); !errors.Is(err, interfaces.ErrStorageFailure) {
		t.Errorf("storage failures must surface to the caller, got %v", err)
	}
	store.shouldFailPut = false

	// The failed write left the prior value intact.
	record, _ := e.GetRecord(ctx, key)
	if len(record.Events) != 0 {
		t.Errorf("failed append must not leave a partial write, got %d events", len(record.Events))
	}
}

func TestComputePhase(t *testing.T) {
	cases := []struct {
		name   string
		events []types.LifecycleEvent
		want   types.Phase
	}{
		{"nil record events", nil, types.PhaseStoppedOrNew},
		{"empty log", []types.LifecycleEvent{}, types.PhaseStoppedOrNew},
		{"last started", []types.LifecycleEvent{{EventName: types.EventStarted, Timestamp: 1}}, types.PhaseRunning},
		{"last stopped", []types.LifecycleEvent{
			{EventName: types.EventStarted, Timestamp: 1},
			{EventName: types.EventStopped, Timestamp: 2},
		}, types.PhaseStoppedOrNew},
		{"restarted", []types.LifecycleEvent{
			{EventName: types.EventStarted, Timestamp: 1},
			{EventName: types.EventStopped, Timestamp: 2},
			{EventName: types.EventStarted, Timestamp: 3},
		}, types.PhaseRunning},
	}
	for _, tc := range cases {
		record := &types.SessionRecord{Events: tc.events}
		if got := ComputePhase(record); got != tc.want {
			t.Errorf("%s: ComputePhase = %s, want %s", tc.name, got, tc.want)
		}
	}
	if ComputePhase(nil) != types.PhaseStoppedOrNew {
		t.Error("nil record must derive STOPPED_OR_NEW")
	}
}

func TestComputeElapsed(t *testing.T) {
	record := &types.SessionRecord{Events: []types.LifecycleEvent{
		{EventName: types.EventStarted, Timestamp: 10_000},
	}}
	now := time.UnixMilli(25_000)
	if got := ComputeElapsed(record, now); got != 15*time.Second {
		t.Errorf("ComputeElapsed = %v, want 15s", got)
	}

	stopped := &types.SessionRecord{Events: []types.LifecycleEvent{
		{EventName: types.EventStarted, Timestamp: 10_000},
		{EventName: types.EventStopped, Timestamp: 20_000},
	}}
	if got := ComputeElapsed(stopped, now); got != 0 {
		t.Errorf("elapsed for a stopped session must be 0, got %v", got)
	}
}
