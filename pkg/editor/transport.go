package editor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"collab-docs-be/internal/collab"

	"github.com/gorilla/websocket"
)

// Transport moves protocol envelopes between the editor and the server.
type Transport interface {
	Send(env collab.Envelope) error
	// Receive yields inbound frames; the channel closes when the underlying
	// connection does.
	Receive() <-chan collab.Envelope
	Close() error
}

// WebsocketTransport is the production Transport over a websocket connection.
type WebsocketTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	inbound chan collab.Envelope
}

// Dial connects to a document's editing endpoint. The token authenticates
// the handshake via query parameter.
func Dial(ctx context.Context, wsURL, token string) (*WebsocketTransport, error) {
	header := http.Header{}
	if token != "" {
		wsURL += "?token=" + token
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}

	t := &WebsocketTransport{
		conn:    conn,
		inbound: make(chan collab.Envelope, 64),
	}
	go t.readLoop()
	return t, nil
}

func (t *WebsocketTransport) readLoop() {
	defer close(t.inbound)
	for {
		var env collab.Envelope
		if err := t.conn.ReadJSON(&env); err != nil {
			return
		}
		t.inbound <- env
	}
}

func (t *WebsocketTransport) Send(env collab.Envelope) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(env)
}

func (t *WebsocketTransport) Receive() <-chan collab.Envelope {
	return t.inbound
}

func (t *WebsocketTransport) Close() error {
	return t.conn.Close()
}

func mustMarshal(data any) json.RawMessage {
	if data == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return raw
}
