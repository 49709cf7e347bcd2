package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codetyper/internal/events"
	"codetyper/internal/protocol"
	"codetyper/internal/relayclient"
)

const frontend = "http://localhost:5173"

type stubFetcher struct {
	mu    sync.Mutex
	langs []string
}

func (f *stubFetcher) Fetch(_ context.Context, language string) string {
	f.mu.Lock()
	f.langs = append(f.langs, language)
	f.mu.Unlock()
	return "print('hi')"
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(&stubFetcher{}, OriginPatterns(frontend))
	ts := httptest.NewServer(srv.Handler(frontend))
	t.Cleanup(ts.Close)
	return srv, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(ts), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	frame, err := protocol.Encode(event, payload)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, frame))
}

func expect(t *testing.T, conn *websocket.Conn, event string, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	msg, err := protocol.Decode(data)
	require.NoError(t, err)
	require.Equal(t, event, msg.Event)
	if v != nil {
		require.NoError(t, protocol.DecodeData(msg, v))
	}
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, healthResponse{Status: "ok"}, body)
}

func TestHealth_CORS(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", frontend)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, frontend, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestSnippet(t *testing.T) {
	srv, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/snippets/java")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body snippetResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, snippetResponse{Language: "java", Snippet: "print('hi')"}, body)
	assert.Equal(t, []string{"java"}, srv.Snippets.(*stubFetcher).langs)
}

func TestWS_RejectsForeignOrigin(t *testing.T) {
	_, ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, wsURL(ts), &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"http://evil.example"}},
	})
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}
}

func TestWS_TwoPlayerSession(t *testing.T) {
	srv, ts := newTestServer(t)
	a, b := dial(t, ts), dial(t, ts)

	var assigned protocol.PlayerAssigned
	send(t, a, protocol.EventJoinRoom, protocol.JoinRoom{RoomID: "ABC123"})
	expect(t, a, protocol.EventPlayerAssigned, &assigned)
	assert.Equal(t, 1, assigned.PlayerNumber)

	send(t, b, protocol.EventJoinRoom, protocol.JoinRoom{RoomID: "ABC123"})
	expect(t, b, protocol.EventPlayerAssigned, &assigned)
	assert.Equal(t, 2, assigned.PlayerNumber)

	var joined protocol.PlayerJoined
	send(t, a, protocol.EventPlayerReady, map[string]any{"username": "alice", "isHost": true})
	expect(t, a, protocol.EventPlayerJoined, &joined)
	expect(t, b, protocol.EventPlayerJoined, &joined)
	assert.Equal(t, protocol.PlayerJoined{Username: "alice", PlayerNumber: 1}, joined)

	send(t, b, protocol.EventPlayerReady, protocol.PlayerReady{Username: "bob"})
	for _, c := range []*websocket.Conn{a, b} {
		expect(t, c, protocol.EventPlayerJoined, &joined)
		assert.Equal(t, "bob", joined.Username)
		expect(t, c, protocol.EventGameStart, nil)
	}

	update := json.RawMessage(`{"typedText":"def","currentPosition":3,"wpm":55,"accuracy":100}`)
	send(t, a, protocol.EventPlayerUpdate, update)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := b.Read(ctx)
	require.NoError(t, err)
	msg, err := protocol.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.EventOpponentUpdate, msg.Event)
	assert.JSONEq(t, string(update), string(msg.Data))

	// A third tab is turned away.
	c := dial(t, ts)
	send(t, c, protocol.EventJoinRoom, protocol.JoinRoom{RoomID: "ABC123"})
	expect(t, c, protocol.EventRoomFull, nil)

	require.NoError(t, a.Close(websocket.StatusNormalClosure, ""))
	var left protocol.PlayerLeft
	expect(t, b, protocol.EventPlayerLeft, &left)
	assert.Equal(t, "alice", left.Username)

	require.NoError(t, b.Close(websocket.StatusNormalClosure, ""))
	require.NoError(t, c.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool {
		_, ok := srv.Rooms.GetRoom("ABC123")
		return !ok && srv.Hub.Connections() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRelayClient_EndToEnd(t *testing.T) {
	_, ts := newTestServer(t)

	cfg := relayclient.DefaultConfig()
	cfg.URL = wsURL(ts)
	host := relayclient.New(cfg, relayclient.WithClock(clockwork.NewFakeClock()))
	guest := relayclient.New(cfg, relayclient.WithClock(clockwork.NewFakeClock()))

	started := make(chan struct{}, 2)
	updates := make(chan json.RawMessage, 1)
	assignedTo := make(chan int, 2)
	for _, c := range []*relayclient.Client{host, guest} {
		c.AddEventListener(protocol.EventPlayerAssigned, events.NewListener(func(p json.RawMessage) {
			var a protocol.PlayerAssigned
			if json.Unmarshal(p, &a) == nil {
				assignedTo <- a.PlayerNumber
			}
		}))
		c.AddEventListener(protocol.EventGameStart, events.NewListener(func(json.RawMessage) {
			started <- struct{}{}
		}))
	}
	guest.AddEventListener(protocol.EventOpponentUpdate, events.NewListener(func(p json.RawMessage) {
		updates <- p
	}))

	ctx := context.Background()
	require.NoError(t, host.Connect(ctx, "ROOM42"))
	defer host.Disconnect()
	assert.Equal(t, 1, receive(t, assignedTo))

	require.NoError(t, guest.Connect(ctx, "ROOM42"))
	defer guest.Disconnect()
	assert.Equal(t, 2, receive(t, assignedTo))

	require.NoError(t, host.SendReady(protocol.PlayerReady{Username: "alice"}))
	require.NoError(t, guest.SendReady(protocol.PlayerReady{Username: "bob"}))
	receive(t, started)
	receive(t, started)

	require.NoError(t, host.Send(map[string]any{"typedText": "x", "wpm": 12}))
	assert.JSONEq(t, `{"typedText":"x","wpm":12}`, string(receive(t, updates)))
}

func receive[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	var zero T
	return zero
}

func TestOriginPatterns(t *testing.T) {
	assert.Equal(t, []string{"localhost:5173"}, OriginPatterns("http://localhost:5173"))
	assert.Equal(t, []string{"typing.example.com"}, OriginPatterns("https://typing.example.com/"))
	assert.Equal(t, []string{"*"}, OriginPatterns("*"))
	assert.Nil(t, OriginPatterns("::not a url"))
}
