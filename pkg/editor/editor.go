// Package editor implements the client side of the collaborative editing
// protocol: a local text buffer, optimistic application of local edits, and
// rebasing of concurrent remote operations.
package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"collab-docs-be/internal/collab"
	"collab-docs-be/pkg/ot"

	"github.com/google/uuid"
)

// DefaultSyncInterval matches the server's reconciliation cadence.
const DefaultSyncInterval = 2 * time.Second

// DefaultRedialWait spaces reconnection attempts after a dropped transport.
const DefaultRedialWait = time.Second

// Options tunes an Editor. Zero value gives sane defaults.
type Options struct {
	SyncInterval time.Duration

	// Dial reopens the transport after a connection loss. Leave nil to make
	// Run return on the first transport close instead of reconnecting.
	Dial       func(ctx context.Context) (Transport, error)
	RedialWait time.Duration

	// OnChange fires after every buffer mutation, local or remote. Called
	// with the editor lock held; do not call back into the editor.
	OnChange func(content string, version int)
	OnPresence func(event collab.PresenceEvent, joined bool)
	OnError    func(message string)
}

// Editor maintains one user's view of a shared document.
type Editor struct {
	mu sync.Mutex

	userID    uuid.UUID
	transport Transport
	opts      Options

	content string
	version int
	caret   int

	// syncInterval starts at Options.SyncInterval and adopts the cadence the
	// server advertises in its welcome frame.
	syncInterval time.Duration

	// pending holds local operations applied optimistically but not yet
	// covered by a server sync. Order is emission order.
	pending []ot.Operation

	// applying guards against OnChange handlers re-entering edit methods
	// while a remote operation is being folded in.
	applying bool

	connected bool
	welcome   *collab.Welcome
}

func New(userID uuid.UUID, transport Transport, opts Options) *Editor {
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = DefaultSyncInterval
	}
	if opts.RedialWait <= 0 {
		opts.RedialWait = DefaultRedialWait
	}
	return &Editor{
		userID:       userID,
		transport:    transport,
		opts:         opts,
		syncInterval: opts.SyncInterval,
	}
}

// Run processes incoming frames and drives the periodic sync until ctx is
// cancelled. When the transport closes and Options.Dial is set, Run redials
// and keeps going; local edits made while disconnected stay queued and are
// replayed after the fresh welcome frame.
func (e *Editor) Run(ctx context.Context) error {
	interval := e.syncEvery()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-e.receive():
			if !ok {
				e.markDisconnected()
				if e.opts.Dial == nil {
					return fmt.Errorf("transport closed")
				}
				if err := e.redial(ctx); err != nil {
					return err
				}
				continue
			}
			if err := e.handle(env); err != nil {
				return err
			}
		case <-ticker.C:
			if err := e.requestSync(); err != nil {
				return err
			}
		}

		// A welcome may have carried a different server cadence.
		if next := e.syncEvery(); next != interval {
			interval = next
			ticker.Reset(interval)
		}
	}
}

func (e *Editor) syncEvery() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncInterval
}

func (e *Editor) receive() <-chan collab.Envelope {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transport.Receive()
}

// markDisconnected suppresses outbound frames until the next welcome seeds
// the connection again.
func (e *Editor) markDisconnected() {
	e.mu.Lock()
	e.connected = false
	e.mu.Unlock()
}

// redial reopens the transport, retrying until a dial succeeds or ctx ends.
// The server answers the new connection with a welcome frame, which drives
// the outstanding-queue replay in handleConnected.
func (e *Editor) redial(ctx context.Context) error {
	for {
		t, err := e.opts.Dial(ctx)
		if err == nil {
			e.mu.Lock()
			e.transport = t
			e.mu.Unlock()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.opts.RedialWait):
		}
	}
}

// Content returns the current buffer.
func (e *Editor) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.content
}

// Version returns the last known authoritative version.
func (e *Editor) Version() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Caret returns the local caret position in runes.
func (e *Editor) Caret() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.caret
}

// PendingCount reports how many local operations await server reconciliation.
func (e *Editor) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Insert applies a local insert at pos and ships it to the server.
func (e *Editor) Insert(pos int, text string) error {
	if text == "" {
		return nil
	}
	op := ot.NewInsert(pos, text)
	op.AuthorID = e.userID.String()
	return e.applyLocal(op)
}

// Delete removes length runes starting at pos.
func (e *Editor) Delete(pos, length int) error {
	if length <= 0 {
		return nil
	}
	op := ot.NewDelete(pos, length)
	op.AuthorID = e.userID.String()
	return e.applyLocal(op)
}

// ReplaceSelection swaps [start,end) for text, emitting the delete before
// the insert so intermediate states stay valid.
func (e *Editor) ReplaceSelection(start, end int, text string) error {
	if end > start {
		if err := e.Delete(start, end-start); err != nil {
			return err
		}
	}
	if text != "" {
		return e.Insert(start, text)
	}
	return nil
}

// SetCaret moves the caret and reports it to the other participants.
func (e *Editor) SetCaret(pos int) error {
	e.mu.Lock()
	if pos < 0 {
		pos = 0
	}
	if max := len([]rune(e.content)); pos > max {
		pos = max
	}
	e.caret = pos
	update := collab.CursorUpdate{
		UserID:         e.userID,
		Position:       pos,
		SelectionStart: pos,
		SelectionEnd:   pos,
	}
	e.mu.Unlock()

	return e.send(collab.MsgCursor, update)
}

func (e *Editor) applyLocal(op ot.Operation) error {
	e.mu.Lock()
	if e.applying {
		e.mu.Unlock()
		return fmt.Errorf("edit re-entered while applying a remote operation")
	}

	next, err := op.Apply(e.content)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	op.Version = e.version
	e.content = next
	e.caret = ot.TransformPosition(e.caret, op)
	e.pending = append(e.pending, op)
	e.notifyChange()
	e.mu.Unlock()

	return e.send(collab.MsgOperation, op)
}

func (e *Editor) handle(env collab.Envelope) error {
	switch env.Type {
	case collab.MsgConnected:
		var w collab.Welcome
		if err := env.Decode(&w); err != nil {
			return err
		}
		return e.handleConnected(w)

	case collab.MsgOperation:
		var op ot.Operation
		if err := env.Decode(&op); err != nil {
			return err
		}
		e.applyRemote(op)
		return nil

	case collab.MsgSyncResponse:
		var sync collab.SyncResponse
		if err := env.Decode(&sync); err != nil {
			return err
		}
		e.applySync(sync)
		return nil

	case collab.MsgUserJoined, collab.MsgUserLeft:
		if e.opts.OnPresence != nil {
			var ev collab.PresenceEvent
			if err := env.Decode(&ev); err != nil {
				return err
			}
			e.opts.OnPresence(ev, env.Type == collab.MsgUserJoined)
		}
		return nil

	case collab.MsgError:
		if e.opts.OnError != nil {
			var msg collab.ErrorMessage
			if err := env.Decode(&msg); err != nil {
				return err
			}
			e.opts.OnError(msg.Message)
		}
		return nil

	case collab.MsgPong, collab.MsgCursor:
		return nil
	}

	// Unknown frame types are ignored so older clients keep working against
	// newer servers.
	return nil
}

// handleConnected seeds the buffer from the welcome frame. On a reconnect the
// outstanding queue is replayed in order on top of the fresh state.
func (e *Editor) handleConnected(w collab.Welcome) error {
	e.mu.Lock()
	reconnecting := e.welcome != nil
	e.welcome = &w
	e.connected = true
	e.content = w.Content
	e.version = w.Version
	if w.SyncIntervalMs > 0 {
		e.syncInterval = time.Duration(w.SyncIntervalMs) * time.Millisecond
	}

	var replay []ot.Operation
	if reconnecting && len(e.pending) > 0 {
		replay = make([]ot.Operation, len(e.pending))
		copy(replay, e.pending)
		e.pending = e.pending[:0]
	} else {
		e.pending = nil
	}

	for i := range replay {
		next, err := replay[i].Apply(e.content)
		if err != nil {
			// Stale edit that no longer fits the fresh state; drop it and
			// keep the authoritative content.
			continue
		}
		replay[i].Version = e.version
		e.content = next
		e.pending = append(e.pending, replay[i])
	}
	if max := len([]rune(e.content)); e.caret > max {
		e.caret = max
	}
	e.notifyChange()
	e.mu.Unlock()

	for _, op := range replay {
		if err := e.send(collab.MsgOperation, op); err != nil {
			return err
		}
	}
	return nil
}

// applyRemote folds a concurrent operation from another author into the
// buffer, rebasing it over the outstanding local queue first.
func (e *Editor) applyRemote(op ot.Operation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if op.AuthorID == e.userID.String() {
		// The hub never echoes back, but a relay might; ignore our own ops.
		return
	}

	e.applying = true
	defer func() { e.applying = false }()

	rebased := ot.TransformAgainstQueue(op, e.pending)
	next, err := rebased.Apply(e.content)
	if err != nil {
		// Divergence the algebra cannot bridge; the periodic sync repairs it.
		if e.opts.OnError != nil {
			e.opts.OnError("remote operation did not apply: " + err.Error())
		}
		return
	}

	e.content = next
	e.caret = ot.TransformPosition(e.caret, rebased)

	// The outstanding ops were produced before the remote one landed; shift
	// them so a later replay still targets the right offsets.
	for i := range e.pending {
		e.pending[i] = ot.Transform(e.pending[i], rebased)
	}

	if op.Version > e.version {
		e.version = op.Version
	}
	e.notifyChange()
}

// applySync adopts the authoritative snapshot when it is ahead of the local
// view. A snapshot at or behind the local version carries no new information.
func (e *Editor) applySync(sync collab.SyncResponse) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sync.Version <= e.version {
		return
	}

	e.content = sync.Content
	e.version = sync.Version
	e.pending = nil
	if max := len([]rune(e.content)); e.caret > max {
		e.caret = max
	}
	e.notifyChange()
}

func (e *Editor) requestSync() error {
	return e.send(collab.MsgSyncRequest, nil)
}

func (e *Editor) send(msgType string, data any) error {
	e.mu.Lock()
	t := e.transport
	connected := e.connected
	e.mu.Unlock()

	if !connected {
		// Connection down, or the welcome has not arrived yet. Local edits
		// are already queued in pending; the next welcome replays them.
		return nil
	}
	return t.Send(collab.Envelope{Type: msgType, Data: mustMarshal(data)})
}

func (e *Editor) notifyChange() {
	if e.opts.OnChange != nil {
		e.opts.OnChange(e.content, e.version)
	}
}
