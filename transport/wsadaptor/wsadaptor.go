// Package wsadaptor implements a concrete sync.Adaptor over
// github.com/gorilla/websocket (spec.md §1's "the core only consumes a
// byte-oriented sync adaptor interface" — this package sits outside
// that boundary and is wired in only by cmd/doctreectl's connect
// command).
package wsadaptor

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/cshekharsharma/doctree/sync"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// envelope is the small wire wrapper every frame carries over the
// socket, distinguishing a join handshake from a steady-state update
// without requiring two separate connections.
type envelope struct {
	Type    string `json:"type"`
	Payload []byte `json:"payload,omitempty"`
}

const (
	typeJoin   = "join"
	typeJoinOK = "join_ok"
	typeUpdate = "update"
)

// Adaptor dials a single room on a doctree sync server and implements
// sync.Adaptor over that connection.
type Adaptor struct {
	serverURL string
	dialer    websocket.Dialer
	log       *zap.SugaredLogger

	mu      sync.Mutex
	conn    *websocket.Conn
	roomID  string
	version []byte
	joinOK  chan struct{}
	closed  bool

	send sync.SendFunc
	recv sync.RecvFunc
}

// New returns an Adaptor that will dial serverURL on WaitForReachingServerVersion.
// log may be nil, in which case read-pump errors are discarded.
func New(serverURL string, log *zap.SugaredLogger) *Adaptor {
	return &Adaptor{serverURL: serverURL, log: log}
}

// SetCtx stores the Client's inbound-delivery and catch-up-pull
// callbacks (sync.Client wires these at construction).
func (a *Adaptor) SetCtx(send sync.SendFunc, recv sync.RecvFunc) {
	a.mu.Lock()
	a.send = send
	a.recv = recv
	a.mu.Unlock()
}

// WaitForReachingServerVersion dials the server, sends a join frame for
// roomID, and blocks until join_ok arrives or ctx is done.
func (a *Adaptor) WaitForReachingServerVersion(ctx context.Context) error {
	u, err := url.Parse(a.serverURL)
	if err != nil {
		return errors.Wrap(err, "wsadaptor: invalid server url")
	}

	conn, _, err := a.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "wsadaptor: dial failed")
	}

	roomID := u.Query().Get("room")

	a.mu.Lock()
	a.conn = conn
	a.roomID = roomID
	a.joinOK = make(chan struct{})
	a.closed = false
	a.mu.Unlock()

	go a.readPump()

	join, err := json.Marshal(envelope{Type: typeJoin, Payload: []byte(roomID)})
	if err != nil {
		return errors.Wrap(err, "wsadaptor: encode join frame")
	}
	if err := conn.WriteMessage(websocket.TextMessage, join); err != nil {
		return errors.Wrap(err, "wsadaptor: write join frame")
	}

	select {
	case <-a.joinOK:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readPump decodes inbound frames until the connection closes,
// dispatching join_ok to HandleJoinOk and update frames to the stored
// send callback.
func (a *Adaptor) readPump() {
	for {
		a.mu.Lock()
		conn := a.conn
		a.mu.Unlock()
		if conn == nil {
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if a.log != nil && !a.isClosed() {
				a.log.Warnw("wsadaptor read error", "room", a.roomID, "error", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			if a.log != nil {
				a.log.Warnw("wsadaptor malformed frame", "error", err)
			}
			continue
		}

		switch env.Type {
		case typeJoinOK:
			if err := a.HandleJoinOk(env.Payload); err != nil && a.log != nil {
				a.log.Warnw("wsadaptor join_ok handling failed", "error", err)
			}
		case typeUpdate:
			a.mu.Lock()
			send := a.send
			a.mu.Unlock()
			if send != nil {
				if err := send(env.Payload); err != nil && a.log != nil {
					a.log.Warnw("wsadaptor apply inbound update failed", "error", err)
				}
			}
		}
	}
}

// HandleJoinOk records the server's reported version and unblocks
// WaitForReachingServerVersion, then pushes the document's current
// state to the room via the recv catch-up callback so other peers
// already in the room converge with the joiner immediately.
func (a *Adaptor) HandleJoinOk(payload []byte) error {
	a.mu.Lock()
	a.version = payload
	joinOK := a.joinOK
	recv := a.recv
	a.mu.Unlock()

	if joinOK != nil {
		select {
		case <-joinOK:
		default:
			close(joinOK)
		}
	}

	if recv == nil {
		return nil
	}
	catchUp, err := recv()
	if err != nil {
		return errors.Wrap(err, "wsadaptor: catch-up pull failed")
	}
	if len(catchUp) == 0 {
		return nil
	}
	return a.ApplyUpdate(catchUp)
}

// ApplyUpdate pushes update's bytes to the server as an update frame
// (spec.md §4.9: the outbound half of the sync_enabled-gated pipe).
func (a *Adaptor) ApplyUpdate(update []byte) error {
	frame, err := json.Marshal(envelope{Type: typeUpdate, Payload: update})
	if err != nil {
		return errors.Wrap(err, "wsadaptor: encode update frame")
	}

	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return errors.New("wsadaptor: not connected")
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// CmpVersion compares version against the last version reported by
// join_ok, returning -1/0/1 like bytes.Compare; ordering is purely
// lexicographic over opaque server-assigned version bytes.
func (a *Adaptor) CmpVersion(version []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return compareBytes(a.version, version)
}

// GetVersion returns the last version reported by join_ok.
func (a *Adaptor) GetVersion() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.version
}

// Destroy closes the underlying connection. Idempotent.
func (a *Adaptor) Destroy() error {
	a.mu.Lock()
	conn := a.conn
	a.closed = true
	a.conn = nil
	a.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}

func (a *Adaptor) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
