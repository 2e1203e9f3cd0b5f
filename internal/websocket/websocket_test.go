package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/game"
)

func fakeClient(h *Hub, id string) *client {
	c := &client{id: id, send: make(chan []byte, sendBuffer)}
	h.register(c)
	return c
}

func drain(c *client) []internal.Message[json.RawMessage] {
	var out []internal.Message[json.RawMessage]
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var m internal.Message[json.RawMessage]
			if err := json.Unmarshal(data, &m); err == nil {
				out = append(out, m)
			}
		default:
			return out
		}
	}
}

func TestHubBroadcastReachesOnlyRoomMembers(t *testing.T) {
	h := NewHub()
	a, b, c := fakeClient(h, "a"), fakeClient(h, "b"), fakeClient(h, "c")
	h.Join("main", "a")
	h.Join("main", "b")
	h.Join("other", "c")
	h.Join("main", "ghost")

	h.Broadcast("main", toast("hi"))

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
	assert.Empty(t, drain(c))
	assert.Equal(t, 2, h.Members("main"))
}

func TestHubSendTargetsOneConnection(t *testing.T) {
	h := NewHub()
	a, b := fakeClient(h, "a"), fakeClient(h, "b")

	h.Send("b", toast("just you"))
	h.Send("missing", toast("nobody"))

	assert.Empty(t, drain(a))
	got := drain(b)
	require.Len(t, got, 1)
	assert.Equal(t, "toast", got[0].Type)
	assert.JSONEq(t, `{"msg":"just you"}`, string(got[0].Data))
}

func TestHubUnregisterReturnsJoinedRooms(t *testing.T) {
	h := NewHub()
	a := fakeClient(h, "a")
	fakeClient(h, "b")
	h.Join("zeta", "a")
	h.Join("alpha", "a")
	h.Join("alpha", "b")
	assert.Equal(t, []string{"alpha", "zeta"}, h.RoomsOf("a"))

	rooms := h.unregister("a")

	assert.Equal(t, []string{"alpha", "zeta"}, rooms)
	assert.Equal(t, 1, h.ClientCount())
	assert.Equal(t, 1, h.Members("alpha"))
	assert.Equal(t, 0, h.Members("zeta"))
	_, open := <-a.send
	assert.False(t, open)

	assert.Nil(t, h.unregister("a"))
	// sends to a departed connection are dropped
	h.Send("a", toast("late"))
}

func TestHubFullBufferDropsMessage(t *testing.T) {
	h := NewHub()
	a := fakeClient(h, "a")
	h.Join("main", "a")
	for i := 0; i < sendBuffer+5; i++ {
		h.Broadcast("main", toast("spam"))
	}
	assert.Len(t, drain(a), sendBuffer)
}

// stubDispatcher records the commands it receives.
type stubDispatcher struct {
	mu           sync.Mutex
	hub          *Hub
	calls        []string
	disconnected chan []string
}

func (s *stubDispatcher) Dispatch(ctx context.Context, c game.Caller, msgType string, raw json.RawMessage) error {
	s.mu.Lock()
	s.calls = append(s.calls, msgType)
	s.mu.Unlock()

	switch msgType {
	case "join":
		var req internal.RoomRequest
		_ = json.Unmarshal(raw, &req)
		s.hub.Join(req.Room, c.Conn)
		s.hub.Send(c.Conn, internal.Message[internal.YouData]{Type: "you", Data: internal.YouData{}})
		return nil
	case "boom":
		panic("kaboom")
	case "fail":
		return errors.New("store down")
	}
	return game.ErrUnknownCommand
}

func (s *stubDispatcher) Disconnect(ctx context.Context, conn string, rooms []string) {
	s.disconnected <- rooms
}

func readType(t *testing.T, conn *websocket.Conn) internal.Message[json.RawMessage] {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m internal.Message[json.RawMessage]
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestHandlerRoundTrip(t *testing.T) {
	hub := NewHub()
	stub := &stubDispatcher{hub: hub, disconnected: make(chan []string, 1)}
	handler := NewHandler(hub, stub, func(r *http.Request) int64 { return 7 })
	srv := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	hello := readType(t, conn)
	assert.Equal(t, "hello", hello.Type)
	var data internal.HelloData
	require.NoError(t, json.Unmarshal(hello.Data, &data))
	assert.NotEmpty(t, data.ConnID)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "join", "data": map[string]string{"room": "main"}}))
	assert.Equal(t, "you", readType(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "boom", "data": map[string]string{}}))
	m := readType(t, conn)
	assert.Equal(t, "toast", m.Type)
	assert.JSONEq(t, `{"msg":"Server error."}`, string(m.Data))

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "fail", "data": map[string]string{}}))
	assert.Equal(t, "toast", readType(t, conn).Type)

	require.NoError(t, conn.Close())
	select {
	case rooms := <-stub.disconnected:
		assert.Equal(t, []string{"main"}, rooms)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect not reported")
	}
	assert.Equal(t, 0, hub.ClientCount())
}
