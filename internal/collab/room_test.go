package collab

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"collab-docs-be/internal/pkg/logger"
	"collab-docs-be/internal/repository/memory"
	"collab-docs-be/pkg/ot"

	"github.com/google/uuid"
)

type fakeStorage struct {
	content string
	version int
}

func (f *fakeStorage) LoadDocument(ctx context.Context, documentID uuid.UUID) (string, int, error) {
	return f.content, f.version, nil
}

type capturingPublisher struct {
	payloads chan []byte
}

func newCapturingPublisher() *capturingPublisher {
	return &capturingPublisher{payloads: make(chan []byte, 64)}
}

func (p *capturingPublisher) Publish(ctx context.Context, payload []byte) error {
	p.payloads <- payload
	return nil
}

func newTestHub(content string, version int) (*Hub, *capturingPublisher) {
	return newTestHubOpts(content, version, Options{})
}

func newTestHubOpts(content string, version int, opts Options) (*Hub, *capturingPublisher) {
	pub := newCapturingPublisher()
	hub := NewHub(nil, &fakeStorage{content: content, version: version}, pub, memory.NewPresenceRepository(), nil, logger.Nop{}, opts)
	hub.Run()
	return hub, pub
}

func newTestSession(documentID uuid.UUID) *Session {
	return NewSession(documentID, uuid.New(), nil, logger.Nop{})
}

func recvEnvelope(t *testing.T, s *Session, wantType string) Envelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw := <-s.Send:
			var env Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				t.Fatalf("bad frame: %v", err)
			}
			if env.Type == wantType {
				return env
			}
			// Skip unrelated frames (presence, pings).
		case <-deadline:
			t.Fatalf("timed out waiting for %q frame", wantType)
		}
	}
}

func joinSession(t *testing.T, hub *Hub, s *Session) Welcome {
	t.Helper()
	hub.Join(s)
	env := recvEnvelope(t, s, MsgConnected)
	var w Welcome
	if err := env.Decode(&w); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	return w
}

func sendOperation(t *testing.T, s *Session, op ot.Operation) {
	t.Helper()
	raw, err := json.Marshal(op)
	if err != nil {
		t.Fatal(err)
	}
	if !s.room.enqueueInbound(s, Envelope{Type: MsgOperation, Data: raw}) {
		t.Fatal("room retired while sending operation")
	}
}

func TestJoinDeliversWelcomeState(t *testing.T) {
	hub, _ := newTestHub("hello", 7)
	docID := uuid.New()

	s := newTestSession(docID)
	w := joinSession(t, hub, s)

	if w.Content != "hello" || w.Version != 7 {
		t.Errorf("welcome = %q v%d, want %q v7", w.Content, w.Version, "hello")
	}
	if w.UserID != s.UserID {
		t.Errorf("welcome user = %s, want %s", w.UserID, s.UserID)
	}
	if w.Color == "" {
		t.Error("welcome missing color")
	}
	if hub.RoomCount() != 1 {
		t.Errorf("RoomCount = %d, want 1", hub.RoomCount())
	}
}

func TestOperationBroadcastExcludesSender(t *testing.T) {
	hub, _ := newTestHub("ab", 0)
	docID := uuid.New()

	alice := newTestSession(docID)
	joinSession(t, hub, alice)
	bob := newTestSession(docID)
	joinSession(t, hub, bob)

	op := ot.NewInsert(1, "X")
	op.Version = 0
	sendOperation(t, alice, op)

	env := recvEnvelope(t, bob, MsgOperation)
	var got ot.Operation
	if err := env.Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Position != 1 || got.Content != "X" {
		t.Errorf("broadcast op = %+v", got)
	}
	if got.Version != 1 {
		t.Errorf("assigned version = %d, want 1", got.Version)
	}
	if got.AuthorID != alice.UserID.String() {
		t.Errorf("author = %q, want %q", got.AuthorID, alice.UserID)
	}

	// The sender must not receive its own operation back.
	select {
	case raw := <-alice.Send:
		var env Envelope
		_ = json.Unmarshal(raw, &env)
		if env.Type == MsgOperation {
			t.Error("sender received echo of its own operation")
		}
	case <-time.After(200 * time.Millisecond):
	}
}

func TestConcurrentOperationRebasedAgainstLog(t *testing.T) {
	hub, _ := newTestHub("abc", 0)
	docID := uuid.New()

	alice := newTestSession(docID)
	joinSession(t, hub, alice)
	bob := newTestSession(docID)
	joinSession(t, hub, bob)

	// Alice inserts at 0 against version 0.
	opA := ot.NewInsert(0, "AA")
	opA.Version = 0
	sendOperation(t, alice, opA)
	recvEnvelope(t, bob, MsgOperation)

	// Bob concurrently deletes "c" also against version 0; the hub must
	// shift it right past Alice's insert.
	opB := ot.NewDelete(2, 1)
	opB.Version = 0
	sendOperation(t, bob, opB)

	env := recvEnvelope(t, alice, MsgOperation)
	var got ot.Operation
	if err := env.Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Position != 4 || got.Length != 1 {
		t.Errorf("rebased delete = pos %d len %d, want pos 4 len 1", got.Position, got.Length)
	}

	// Sync must reflect "AAab".
	if !bob.room.enqueueInbound(bob, Envelope{Type: MsgSyncRequest}) {
		t.Fatal("enqueue sync")
	}
	syncEnv := recvEnvelope(t, bob, MsgSyncResponse)
	var sync SyncResponse
	if err := syncEnv.Decode(&sync); err != nil {
		t.Fatal(err)
	}
	if sync.Content != "AAab" || sync.Version != 2 {
		t.Errorf("sync = %q v%d, want %q v2", sync.Content, sync.Version, "AAab")
	}
}

func TestInvalidOperationRejectedWithSync(t *testing.T) {
	hub, _ := newTestHub("abc", 0)
	docID := uuid.New()

	s := newTestSession(docID)
	joinSession(t, hub, s)

	// Out-of-range insert: apply fails, client gets error plus a recovery
	// snapshot.
	op := ot.NewInsert(99, "X")
	op.Version = 0
	sendOperation(t, s, op)

	recvEnvelope(t, s, MsgError)
	syncEnv := recvEnvelope(t, s, MsgSyncResponse)
	var sync SyncResponse
	if err := syncEnv.Decode(&sync); err != nil {
		t.Fatal(err)
	}
	if sync.Content != "abc" || sync.Version != 0 {
		t.Errorf("recovery sync = %q v%d", sync.Content, sync.Version)
	}
}

func TestPersistMessagePublishedPerOperation(t *testing.T) {
	hub, pub := newTestHub("", 0)
	docID := uuid.New()

	s := newTestSession(docID)
	joinSession(t, hub, s)

	op := ot.NewInsert(0, "hi")
	op.Version = 0
	sendOperation(t, s, op)

	select {
	case payload := <-pub.payloads:
		var msg PersistDocumentMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.DocumentID != docID || msg.Content != "hi" || msg.Version != 1 {
			t.Errorf("persist message = %+v", msg)
		}
		if msg.Operation.Content != "hi" {
			t.Errorf("persist op = %+v", msg.Operation)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no persist message published")
	}
}

func TestReconnectReplacesSessionWithoutUserLeft(t *testing.T) {
	hub, _ := newTestHub("doc", 0)
	docID := uuid.New()

	observer := newTestSession(docID)
	joinSession(t, hub, observer)

	userID := uuid.New()
	first := NewSession(docID, userID, nil, logger.Nop{})
	hub.Join(first)
	recvEnvelope(t, first, MsgConnected)
	recvEnvelope(t, observer, MsgUserJoined)

	second := NewSession(docID, userID, nil, logger.Nop{})
	hub.Join(second)
	recvEnvelope(t, second, MsgConnected)

	// The observer sees the reconnect as another join, never a leave.
	recvEnvelope(t, observer, MsgUserJoined)
	select {
	case raw := <-observer.Send:
		var env Envelope
		_ = json.Unmarshal(raw, &env)
		if env.Type == MsgUserLeft {
			t.Error("reconnect produced a user_left broadcast")
		}
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWelcomeAdvertisesConfiguredSyncInterval(t *testing.T) {
	hub, _ := newTestHubOpts("", 0, Options{SyncIntervalMs: 500})
	s := newTestSession(uuid.New())
	w := joinSession(t, hub, s)
	if w.SyncIntervalMs != 500 {
		t.Errorf("welcome sync interval = %d, want 500", w.SyncIntervalMs)
	}

	hub2, _ := newTestHub("", 0)
	s2 := newTestSession(uuid.New())
	if w2 := joinSession(t, hub2, s2); w2.SyncIntervalMs != 2000 {
		t.Errorf("default sync interval = %d, want 2000", w2.SyncIntervalMs)
	}
}

func TestOpLogTrimmedToConfiguredLimit(t *testing.T) {
	hub, _ := newTestHubOpts("", 0, Options{OpLogLimit: 2})
	docID := uuid.New()

	alice := newTestSession(docID)
	joinSession(t, hub, alice)
	bob := newTestSession(docID)
	joinSession(t, hub, bob)

	for i := 0; i < 3; i++ {
		op := ot.NewInsert(0, "x")
		op.Version = i
		sendOperation(t, alice, op)
		// Receipt of the broadcast orders the log append before this read.
		recvEnvelope(t, bob, MsgOperation)
	}

	if got := len(alice.room.opLog); got != 2 {
		t.Errorf("op log length = %d, want trimmed to 2", got)
	}
}

func TestPresenceRosterCarriesSessionInfo(t *testing.T) {
	hub, _ := newTestHub("", 0)
	docID := uuid.New()

	alice := newTestSession(docID)
	joinSession(t, hub, alice)
	bob := newTestSession(docID)
	w := joinSession(t, hub, bob)

	if len(w.ActiveUsers) != 2 {
		t.Fatalf("welcome roster has %d entries, want 2", len(w.ActiveUsers))
	}
	for _, info := range w.ActiveUsers {
		if info.UserID == uuid.Nil || info.Color == "" || info.JoinedAt.IsZero() {
			t.Errorf("incomplete roster entry: %+v", info)
		}
	}

	env := recvEnvelope(t, alice, MsgUserJoined)
	var ev PresenceEvent
	if err := env.Decode(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.UserID != bob.UserID {
		t.Errorf("joined user = %s, want %s", ev.UserID, bob.UserID)
	}
	if len(ev.ActiveUsers) != 2 {
		t.Errorf("presence roster has %d entries, want 2", len(ev.ActiveUsers))
	}
}

func TestRoomRetiresWhenEmpty(t *testing.T) {
	hub, _ := newTestHub("", 0)
	docID := uuid.New()

	s := newTestSession(docID)
	joinSession(t, hub, s)
	if hub.RoomCount() != 1 {
		t.Fatalf("RoomCount = %d, want 1", hub.RoomCount())
	}

	s.room.enqueueLeave(s)

	deadline := time.After(2 * time.Second)
	for hub.RoomCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("room never retired after last session left")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// A fresh join after retirement lands in a new room.
	again := newTestSession(docID)
	joinSession(t, hub, again)
	if hub.RoomCount() != 1 {
		t.Errorf("RoomCount after rejoin = %d, want 1", hub.RoomCount())
	}
}
