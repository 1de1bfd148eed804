// Package sync implements the Sync Adaptor Interface (spec.md §4.9):
// a sync_enabled gate around a concrete byte-oriented transport
// adaptor, plus the observable SyncState status state machine.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/cshekharsharma/doctree/substrate"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is the connection state machine (spec.md §4.9):
// idle -> connecting -> connected -> disconnected -> (reconnect cycle).
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// State is the observable sync state (spec.md §6: "SyncState{status,
// latency_ms?, room_id?, error?}").
type State struct {
	Status    Status
	LatencyMs int64
	RoomID    string
	Error     string
}

// SendFunc delivers bytes the adaptor received from the transport into
// the local document, gated by sync_enabled. The adaptor calls this as
// inbound frames arrive off the wire.
type SendFunc func([]byte) error

// RecvFunc returns the document's current bytes for the adaptor to push
// out, e.g. a full catch-up delta right after a join completes.
type RecvFunc func() ([]byte, error)

// Adaptor is the capability set a concrete transport implements
// (spec.md §4.9): {setCtx, handleJoinOk, waitForReachingServerVersion,
// applyUpdate, cmpVersion, getVersion, destroy}. package
// transport/wsadaptor provides one concrete implementation over
// WebSockets; the core never imports it directly.
type Adaptor interface {
	SetCtx(send SendFunc, recv RecvFunc)
	HandleJoinOk(payload []byte) error
	WaitForReachingServerVersion(ctx context.Context) error
	ApplyUpdate(update []byte) error
	CmpVersion(version []byte) int
	GetVersion() []byte
	Destroy() error
}

// Client wraps a concrete Adaptor with the sync_enabled gate: while
// disabled, outgoing sends are dropped and incoming applies are
// ignored, so no document bytes cross the boundary mid-teardown.
type Client struct {
	mu        sync.Mutex
	doc       *substrate.Doc
	adaptor   Adaptor
	enabled   bool
	state     State
	stateSub  []func(State)
	log       *zap.SugaredLogger
	sessionID string
}

// New binds a Client to doc and a concrete Adaptor. log may be nil, in
// which case teardown errors are discarded instead of logged. Each
// Client is assigned a fresh session id.
func New(doc *substrate.Doc, adaptor Adaptor, log *zap.SugaredLogger) *Client {
	c := &Client{doc: doc, adaptor: adaptor, state: State{Status: StatusIdle}, log: log, sessionID: uuid.NewString()}
	adaptor.SetCtx(c.gatedSend, c.gatedRecv)
	return c
}

// SessionID identifies this Client instance; it stays the same across
// reconnects. It is not sent to the Adaptor.
func (c *Client) SessionID() string { return c.sessionID }

// OnState registers a listener for state transitions and returns a
// disposer, mirroring the substrate's Subscribe/disposer idiom.
func (c *Client) OnState(listener func(State)) (disposer func()) {
	c.mu.Lock()
	c.stateSub = append(c.stateSub, listener)
	idx := len(c.stateSub) - 1
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if idx < len(c.stateSub) {
			c.stateSub[idx] = nil
		}
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	subs := append([]func(State){}, c.stateSub...)
	c.mu.Unlock()
	for _, l := range subs {
		if l != nil {
			l(s)
		}
	}
}

// State returns the current observable sync state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setEnabled(v bool) {
	c.mu.Lock()
	c.enabled = v
	c.mu.Unlock()
}

func (c *Client) isEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Connect sets sync_enabled true, does a blocking join-and-catch-up,
// then reports StatusConnected with the measured round-trip latency.
// An error transitions directly to StatusDisconnected with a message
// (spec.md §4.9, §7 SyncFatal).
func (c *Client) Connect(ctx context.Context, roomID string) error {
	c.setEnabled(true)
	c.setState(State{Status: StatusConnecting, RoomID: roomID})

	start := time.Now()
	if err := c.adaptor.WaitForReachingServerVersion(ctx); err != nil {
		c.setEnabled(false)
		c.setState(State{Status: StatusDisconnected, RoomID: roomID, Error: err.Error()})
		return err
	}

	c.setState(State{Status: StatusConnected, RoomID: roomID, LatencyMs: time.Since(start).Milliseconds()})
	return nil
}

// Disconnect clears sync_enabled before tearing down, guaranteeing no
// races with mid-flight updates (spec.md §4.9), and is idempotent and
// non-blocking from the caller's perspective (spec.md §5): teardown
// errors are logged, never propagated.
func (c *Client) Disconnect() {
	c.setEnabled(false)
	if err := c.adaptor.Destroy(); err != nil && c.log != nil {
		c.log.Warnw("sync adaptor teardown error", "error", err)
	}
	c.setState(State{Status: StatusDisconnected})
}

// gatedSend is installed as the adaptor's inbound-delivery callback:
// the adaptor calls this with bytes it read off the wire, and while
// disabled they are silently dropped instead of merged.
func (c *Client) gatedSend(b []byte) error {
	if !c.isEnabled() {
		return nil
	}
	return c.doc.ApplyUpdate(b)
}

// gatedRecv is installed as the adaptor's catch-up-pull callback: the
// adaptor calls this (e.g. right after a join completes) to obtain the
// document's full current state to push to newly-joined peers. Returns
// nil while disabled.
func (c *Client) gatedRecv() ([]byte, error) {
	if !c.isEnabled() {
		return nil, nil
	}
	return c.doc.ExportUpdate(substrate.Frontier{})
}

// ApplyIncoming merges update bytes received from the transport into
// the document, gated by sync_enabled. Equivalent to calling the
// gatedSend callback the adaptor already holds; exposed directly for
// callers that received bytes out-of-band (e.g. the CLI demo's own
// message loop).
func (c *Client) ApplyIncoming(update []byte) error {
	return c.gatedSend(update)
}

// Broadcast exports a delta since from and pushes it out through the
// adaptor, gated by sync_enabled.
func (c *Client) Broadcast(from substrate.Frontier) error {
	if !c.isEnabled() {
		return nil
	}
	update, err := c.doc.ExportUpdate(from)
	if err != nil {
		return err
	}
	return c.adaptor.ApplyUpdate(update)
}
