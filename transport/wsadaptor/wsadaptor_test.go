package wsadaptor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cshekharsharma/doctree/transport/wsadaptor"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type    string `json:"type"`
	Payload []byte `json:"payload,omitempty"`
}

// newTestServer starts a minimal room server: it replies to a join
// frame with join_ok, and for every subsequent update frame it read it
// echoes back (simulating another peer's update arriving for this
// room).
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/room", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f frame
			require.NoError(t, json.Unmarshal(raw, &f))

			switch f.Type {
			case "join":
				reply, _ := json.Marshal(frame{Type: "join_ok", Payload: []byte("v1")})
				if conn.WriteMessage(websocket.TextMessage, reply) != nil {
					return
				}
			case "update":
				reply, _ := json.Marshal(frame{Type: "update", Payload: f.Payload})
				if conn.WriteMessage(websocket.TextMessage, reply) != nil {
					return
				}
			}
		}
	})
	return httptest.NewServer(mux)
}

func wsURL(httpURL, room string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/room?room=" + room
}

func TestAdaptor_JoinHandshakeUnblocksOnJoinOk(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	a := wsadaptor.New(wsURL(srv.URL, "room-1"), nil)
	var delivered [][]byte
	a.SetCtx(func(b []byte) error {
		delivered = append(delivered, b)
		return nil
	}, func() ([]byte, error) {
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.WaitForReachingServerVersion(ctx))
	require.Equal(t, []byte("v1"), a.GetVersion())
	require.NoError(t, a.Destroy())
}

func TestAdaptor_ApplyUpdateRoundTripsThroughSendCallback(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	a := wsadaptor.New(wsURL(srv.URL, "room-2"), nil)
	delivered := make(chan []byte, 1)
	a.SetCtx(func(b []byte) error {
		delivered <- b
		return nil
	}, func() ([]byte, error) {
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.WaitForReachingServerVersion(ctx))

	require.NoError(t, a.ApplyUpdate([]byte("delta-bytes")))

	select {
	case got := <-delivered:
		require.Equal(t, []byte("delta-bytes"), got)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not echo update frame back in time")
	}
	require.NoError(t, a.Destroy())
}

func TestAdaptor_CmpVersionOrdersLexicographically(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	a := wsadaptor.New(wsURL(srv.URL, "room-3"), nil)
	a.SetCtx(func([]byte) error { return nil }, func() ([]byte, error) { return nil, nil })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.WaitForReachingServerVersion(ctx))

	require.Equal(t, 0, a.CmpVersion([]byte("v1")))
	require.Equal(t, -1, a.CmpVersion([]byte("v2")))
	require.Equal(t, 1, a.CmpVersion([]byte("v0")))
	require.NoError(t, a.Destroy())
}

func TestAdaptor_DestroyIsIdempotent(t *testing.T) {
	a := wsadaptor.New("ws://127.0.0.1:0/room", nil)
	a.SetCtx(func([]byte) error { return nil }, func() ([]byte, error) { return nil, nil })
	require.NoError(t, a.Destroy())
	require.NoError(t, a.Destroy())
}
