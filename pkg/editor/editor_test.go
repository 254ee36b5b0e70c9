package editor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"collab-docs-be/internal/collab"
	"collab-docs-be/pkg/ot"

	"github.com/google/uuid"
)

type fakeTransport struct {
	sent    []collab.Envelope
	inbound chan collab.Envelope
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbound: make(chan collab.Envelope, 16)}
}

func (t *fakeTransport) Send(env collab.Envelope) error {
	t.sent = append(t.sent, env)
	return nil
}

func (t *fakeTransport) Receive() <-chan collab.Envelope { return t.inbound }

func (t *fakeTransport) Close() error { return nil }

func (t *fakeTransport) sentOps(tb testing.TB) []ot.Operation {
	tb.Helper()
	var ops []ot.Operation
	for _, env := range t.sent {
		if env.Type != collab.MsgOperation {
			continue
		}
		var op ot.Operation
		if err := json.Unmarshal(env.Data, &op); err != nil {
			tb.Fatalf("unmarshal sent op: %v", err)
		}
		ops = append(ops, op)
	}
	return ops
}

func connectedEnvelope(tb testing.TB, content string, version int) collab.Envelope {
	tb.Helper()
	raw, err := json.Marshal(collab.Welcome{Content: content, Version: version})
	if err != nil {
		tb.Fatal(err)
	}
	return collab.Envelope{Type: collab.MsgConnected, Data: raw}
}

func seedEditor(t *testing.T, content string, version int) (*Editor, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	e := New(uuid.New(), tr, Options{})
	if err := e.handle(connectedEnvelope(t, content, version)); err != nil {
		t.Fatalf("handle connected: %v", err)
	}
	return e, tr
}

func TestLocalInsertAppliesAndSends(t *testing.T) {
	e, tr := seedEditor(t, "hello", 3)

	if err := e.Insert(5, " world"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if got := e.Content(); got != "hello world" {
		t.Errorf("content = %q, want %q", got, "hello world")
	}
	if e.PendingCount() != 1 {
		t.Errorf("pending = %d, want 1", e.PendingCount())
	}

	ops := tr.sentOps(t)
	if len(ops) != 1 {
		t.Fatalf("sent %d ops, want 1", len(ops))
	}
	if ops[0].Type != ot.TypeInsert || ops[0].Position != 5 || ops[0].Content != " world" {
		t.Errorf("sent op = %+v", ops[0])
	}
	if ops[0].Version != 3 {
		t.Errorf("op base version = %d, want 3", ops[0].Version)
	}
}

func TestReplaceSelectionEmitsDeleteThenInsert(t *testing.T) {
	e, tr := seedEditor(t, "abcdef", 0)

	if err := e.ReplaceSelection(1, 4, "XY"); err != nil {
		t.Fatalf("ReplaceSelection: %v", err)
	}

	if got := e.Content(); got != "aXYef" {
		t.Errorf("content = %q, want %q", got, "aXYef")
	}

	ops := tr.sentOps(t)
	if len(ops) != 2 {
		t.Fatalf("sent %d ops, want 2", len(ops))
	}
	if ops[0].Type != ot.TypeDelete || ops[0].Position != 1 || ops[0].Length != 3 {
		t.Errorf("first op = %+v, want delete(1,3)", ops[0])
	}
	if ops[1].Type != ot.TypeInsert || ops[1].Position != 1 || ops[1].Content != "XY" {
		t.Errorf("second op = %+v, want insert(1,\"XY\")", ops[1])
	}
}

func TestRemoteOperationRebasedOverPending(t *testing.T) {
	e, _ := seedEditor(t, "ab", 0)

	// Local insert at 1 is outstanding.
	if err := e.Insert(1, "XX"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	// Remote insert at 1 arrives; ties keep the incoming operation's slot,
	// so it lands ahead of the outstanding local insert.
	remote := ot.NewInsert(1, "Z")
	remote.AuthorID = uuid.NewString()
	remote.Version = 1
	raw, _ := json.Marshal(remote)
	if err := e.handle(collab.Envelope{Type: collab.MsgOperation, Data: raw}); err != nil {
		t.Fatalf("handle remote: %v", err)
	}

	if got := e.Content(); got != "aZXXb" {
		t.Errorf("content = %q, want %q", got, "aZXXb")
	}
	if got := e.Version(); got != 1 {
		t.Errorf("version = %d, want 1", got)
	}
}

func TestRemoteDeleteShiftsPendingQueue(t *testing.T) {
	e, _ := seedEditor(t, "hello world", 0)

	// Outstanding local insert near the end.
	if err := e.Insert(11, "!"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Remote delete of "hello " arrives.
	remote := ot.NewDelete(0, 6)
	remote.AuthorID = uuid.NewString()
	remote.Version = 1
	raw, _ := json.Marshal(remote)
	if err := e.handle(collab.Envelope{Type: collab.MsgOperation, Data: raw}); err != nil {
		t.Fatalf("handle remote: %v", err)
	}

	if got := e.Content(); got != "world!" {
		t.Errorf("content = %q, want %q", got, "world!")
	}
}

func TestOwnOperationEchoIgnored(t *testing.T) {
	tr := newFakeTransport()
	userID := uuid.New()
	e := New(userID, tr, Options{})
	if err := e.handle(connectedEnvelope(t, "abc", 0)); err != nil {
		t.Fatal(err)
	}

	echo := ot.NewInsert(0, "Z")
	echo.AuthorID = userID.String()
	echo.Version = 1
	raw, _ := json.Marshal(echo)
	if err := e.handle(collab.Envelope{Type: collab.MsgOperation, Data: raw}); err != nil {
		t.Fatalf("handle echo: %v", err)
	}

	if got := e.Content(); got != "abc" {
		t.Errorf("content = %q, want unchanged %q", got, "abc")
	}
}

func TestSyncResponseAdoptedOnlyWhenAhead(t *testing.T) {
	e, _ := seedEditor(t, "draft", 5)

	// Stale snapshot: ignored.
	stale, _ := json.Marshal(collab.SyncResponse{Content: "old", Version: 5})
	if err := e.handle(collab.Envelope{Type: collab.MsgSyncResponse, Data: stale}); err != nil {
		t.Fatal(err)
	}
	if got := e.Content(); got != "draft" {
		t.Errorf("stale sync adopted: content = %q", got)
	}

	// Ahead snapshot: adopted, pending dropped.
	if err := e.Insert(5, "?"); err != nil {
		t.Fatal(err)
	}
	ahead, _ := json.Marshal(collab.SyncResponse{Content: "authoritative", Version: 9})
	if err := e.handle(collab.Envelope{Type: collab.MsgSyncResponse, Data: ahead}); err != nil {
		t.Fatal(err)
	}
	if got := e.Content(); got != "authoritative" {
		t.Errorf("content = %q, want %q", got, "authoritative")
	}
	if got := e.Version(); got != 9 {
		t.Errorf("version = %d, want 9", got)
	}
	if e.PendingCount() != 0 {
		t.Errorf("pending = %d, want 0 after adoption", e.PendingCount())
	}
}

func TestReconnectReplaysPendingInOrder(t *testing.T) {
	e, tr := seedEditor(t, "base", 0)

	if err := e.Insert(4, "-one"); err != nil {
		t.Fatal(err)
	}
	if err := e.Insert(8, "-two"); err != nil {
		t.Fatal(err)
	}

	// Reconnect: server state never saw the two local edits.
	tr.sent = nil
	if err := e.handle(connectedEnvelope(t, "base", 0)); err != nil {
		t.Fatalf("handle reconnect: %v", err)
	}

	if got := e.Content(); got != "base-one-two" {
		t.Errorf("content = %q, want %q", got, "base-one-two")
	}

	ops := tr.sentOps(t)
	if len(ops) != 2 {
		t.Fatalf("replayed %d ops, want 2", len(ops))
	}
	if ops[0].Content != "-one" || ops[1].Content != "-two" {
		t.Errorf("replay order = %q then %q, want -one then -two", ops[0].Content, ops[1].Content)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRedialReplaysQueueAfterTransportLoss(t *testing.T) {
	first := newFakeTransport()
	second := newFakeTransport()
	dialEntered := make(chan struct{}, 1)
	dialGate := make(chan struct{})

	e := New(uuid.New(), first, Options{
		SyncInterval: time.Hour,
		RedialWait:   time.Millisecond,
		Dial: func(ctx context.Context) (Transport, error) {
			dialEntered <- struct{}{}
			<-dialGate
			return second, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	first.inbound <- connectedEnvelope(t, "base", 0)
	waitFor(t, "initial welcome", func() bool { return e.Content() == "base" })

	// Connection drops; the editor must buffer edits, not send them.
	close(first.inbound)
	<-dialEntered
	if err := e.Insert(4, "-x"); err != nil {
		t.Fatalf("Insert while disconnected: %v", err)
	}
	if e.PendingCount() != 1 {
		t.Fatalf("pending = %d, want 1", e.PendingCount())
	}

	// Let the redial finish and deliver the fresh welcome.
	close(dialGate)
	second.inbound <- connectedEnvelope(t, "base", 7)
	waitFor(t, "replay after reconnect", func() bool { return e.Version() == 7 })

	cancel()
	<-done

	ops := second.sentOps(t)
	if len(ops) != 1 || ops[0].Content != "-x" {
		t.Fatalf("replayed ops on new transport = %+v, want the buffered insert", ops)
	}
	if got := first.sentOps(t); len(got) != 0 {
		t.Errorf("dead transport received %d ops", len(got))
	}
}

func TestSyncCadenceAdoptedFromWelcome(t *testing.T) {
	tr := newFakeTransport()
	e := New(uuid.New(), tr, Options{})

	raw, err := json.Marshal(collab.Welcome{Content: "doc", Version: 0, SyncIntervalMs: 250})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.handle(collab.Envelope{Type: collab.MsgConnected, Data: raw}); err != nil {
		t.Fatal(err)
	}

	if got := e.syncEvery(); got != 250*time.Millisecond {
		t.Errorf("sync interval = %v, want 250ms", got)
	}
}

func TestCaretFollowsRemoteEdits(t *testing.T) {
	e, _ := seedEditor(t, "hello", 0)
	if err := e.SetCaret(5); err != nil {
		t.Fatal(err)
	}

	remote := ot.NewInsert(0, ">> ")
	remote.AuthorID = uuid.NewString()
	remote.Version = 1
	raw, _ := json.Marshal(remote)
	if err := e.handle(collab.Envelope{Type: collab.MsgOperation, Data: raw}); err != nil {
		t.Fatal(err)
	}

	if got := e.Caret(); got != 8 {
		t.Errorf("caret = %d, want 8", got)
	}
}
