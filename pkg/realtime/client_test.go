package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// phoenixServer speaks just enough of the channel protocol for tests
type phoenixServer struct {
	*httptest.Server

	mu       sync.Mutex
	frames   []Message
	query    string
	conns    []*websocket.Conn
	joined   chan Message
	received chan Message
}

func newPhoenixServer(t *testing.T) *phoenixServer {
	t.Helper()
	ps := &phoenixServer{
		joined:   make(chan Message, 16),
		received: make(chan Message, 64),
	}
	upgrader := websocket.Upgrader{}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.mu.Lock()
		ps.query = r.URL.RawQuery
		ps.conns = append(ps.conns, conn)
		ps.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg Message
			if json.Unmarshal(data, &msg) != nil {
				continue
			}
			ps.mu.Lock()
			ps.frames = append(ps.frames, msg)
			ps.mu.Unlock()
			ps.received <- msg

			if msg.Event == EventJoin {
				ps.write(conn, Message{Topic: msg.Topic, Event: EventReply, Ref: msg.Ref,
					Payload: json.RawMessage(`{"status":"ok","response":{}}`)})
				ps.joined <- msg
			}
		}
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *phoenixServer) write(conn *websocket.Conn, msg Message) {
	data, _ := json.Marshal(msg)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	conn.WriteMessage(websocket.TextMessage, data)
}

func (ps *phoenixServer) latest() *websocket.Conn {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.conns[len(ps.conns)-1]
}

func (ps *phoenixServer) config() Config {
	cfg := DefaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(ps.URL, "http") + "/realtime/v1/websocket"
	cfg.APIKey = "anon"
	cfg.HeartbeatInterval = time.Hour
	cfg.ReconnectBaseDelay = 10 * time.Millisecond
	cfg.ReconnectMaxDelay = 50 * time.Millisecond
	cfg.ReconnectJitter = 0
	return cfg
}

func waitFor(t *testing.T, ch chan Message, event string) Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-ch:
			if msg.Event == event {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", event)
		}
	}
}

func TestSocketURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:54321/realtime/v1/websocket", SocketURL("http://localhost:54321/"))
	assert.Equal(t, "wss://x.example.co/realtime/v1/websocket", SocketURL("https://x.example.co"))
}

func TestNewClientStartsDisconnected(t *testing.T) {
	c := NewClient(DefaultConfig())
	assert.Equal(t, StateDisconnected, c.State())
	assert.False(t, c.IsConnected())
	assert.ErrorIs(t, c.push("realtime:x", EventHeartbeat, nil, nil), ErrNotConnected)
	require.NoError(t, c.Close())
}

func TestJoinAndReceiveChanges(t *testing.T) {
	ps := newPhoenixServer(t)
	c := NewClient(ps.config())
	defer c.Close()

	changes := make(chan Change, 1)
	c.Subscribe("notifications:u1", Subscription{
		Event: "INSERT", Schema: "public", Table: "notifications", Filter: "user_id=eq.u1",
	}, func(ch Change) { changes <- ch })

	require.NoError(t, c.Connect(context.Background(), "jwt-token"))

	join := waitFor(t, ps.joined, EventJoin)
	assert.Equal(t, "realtime:notifications:u1", join.Topic)
	assert.Equal(t, join.Ref, join.JoinRef)

	var payload struct {
		Config struct {
			PostgresChanges []Subscription `json:"postgres_changes"`
		} `json:"config"`
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(join.Payload, &payload))
	assert.Equal(t, "jwt-token", payload.AccessToken)
	require.Len(t, payload.Config.PostgresChanges, 1)
	assert.Equal(t, "user_id=eq.u1", payload.Config.PostgresChanges[0].Filter)

	ps.mu.Lock()
	assert.Contains(t, ps.query, "apikey=anon")
	assert.Contains(t, ps.query, "vsn=1.0.0")
	ps.mu.Unlock()

	ps.write(ps.latest(), Message{Topic: "realtime:notifications:u1", Event: EventPostgresChanges,
		Payload: json.RawMessage(`{"ids":[1],"data":{"schema":"public","table":"notifications","type":"INSERT",` +
			`"commit_timestamp":"2024-01-01T00:00:00Z","record":{"id":"n1","content":"hi"}}}`)})

	select {
	case ch := <-changes:
		assert.Equal(t, "INSERT", ch.Type)
		assert.Equal(t, "notifications", ch.Table)
		var rec struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		}
		require.NoError(t, ch.Decode(&rec))
		assert.Equal(t, "n1", rec.ID)
		assert.Equal(t, "hi", rec.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("change not delivered")
	}
	assert.True(t, c.IsConnected())
}

func TestChangesForOtherTopicsAreIgnored(t *testing.T) {
	ps := newPhoenixServer(t)
	c := NewClient(ps.config())
	defer c.Close()

	got := make(chan Change, 2)
	c.Subscribe("a", Subscription{Event: "*", Schema: "public", Table: "messages"}, func(ch Change) { got <- ch })
	require.NoError(t, c.Connect(context.Background(), ""))
	waitFor(t, ps.joined, EventJoin)

	ps.write(ps.latest(), Message{Topic: "realtime:b", Event: EventPostgresChanges,
		Payload: json.RawMessage(`{"data":{"table":"other"}}`)})
	ps.write(ps.latest(), Message{Topic: "realtime:a", Event: EventPostgresChanges,
		Payload: json.RawMessage(`{"data":{"table":"messages"}}`)})

	select {
	case ch := <-got:
		assert.Equal(t, "messages", ch.Table)
	case <-time.After(2 * time.Second):
		t.Fatal("change not delivered")
	}
	assert.Empty(t, got)
}

func TestSubscribeAfterConnectJoinsImmediately(t *testing.T) {
	ps := newPhoenixServer(t)
	c := NewClient(ps.config())
	defer c.Close()

	require.NoError(t, c.Connect(context.Background(), ""))
	require.Eventually(t, c.IsConnected, 2*time.Second, 5*time.Millisecond)

	unsubscribe := c.Subscribe("late", Subscription{Event: "*", Schema: "public", Table: "messages"}, func(Change) {})
	join := waitFor(t, ps.joined, EventJoin)
	assert.Equal(t, "realtime:late", join.Topic)

	unsubscribe()
	leave := waitFor(t, ps.received, EventLeave)
	assert.Equal(t, "realtime:late", leave.Topic)
}

func TestHeartbeat(t *testing.T) {
	ps := newPhoenixServer(t)
	cfg := ps.config()
	cfg.HeartbeatInterval = 20 * time.Millisecond
	c := NewClient(cfg)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background(), ""))

	hb := waitFor(t, ps.received, EventHeartbeat)
	assert.Equal(t, phoenixTopic, hb.Topic)
	require.NotNil(t, hb.Ref)
}

func TestReconnectRejoinsChannels(t *testing.T) {
	ps := newPhoenixServer(t)
	c := NewClient(ps.config())
	defer c.Close()

	c.Subscribe("messages:c1", Subscription{Event: "INSERT", Schema: "public", Table: "messages"}, func(Change) {})
	require.NoError(t, c.Connect(context.Background(), ""))
	waitFor(t, ps.joined, EventJoin)

	ps.latest().Close()

	rejoin := waitFor(t, ps.joined, EventJoin)
	assert.Equal(t, "realtime:messages:c1", rejoin.Topic)
	require.Eventually(t, c.IsConnected, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, c.GetStats().ReconnectCount)
}

func TestGivesUpAfterMaxReconnectAttempts(t *testing.T) {
	ps := newPhoenixServer(t)
	cfg := ps.config()
	cfg.MaxReconnectAttempts = 2
	c := NewClient(cfg)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background(), ""))
	require.Eventually(t, c.IsConnected, 2*time.Second, 5*time.Millisecond)

	ps.Listener.Close()
	ps.latest().Close()

	require.Eventually(t, func() bool { return c.State() == StateError }, 2*time.Second, 5*time.Millisecond)
	assert.NotEmpty(t, c.GetStats().LastError)
}

func TestConnectFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "ws://127.0.0.1:1/realtime/v1/websocket"
	cfg.ConnectTimeout = 200 * time.Millisecond
	c := NewClient(cfg)
	defer c.Close()

	require.Error(t, c.Connect(context.Background(), ""))
	assert.Equal(t, StateError, c.State())
}

func TestSetAuthTokenPushesToChannels(t *testing.T) {
	ps := newPhoenixServer(t)
	c := NewClient(ps.config())
	defer c.Close()

	c.Subscribe("n", Subscription{Event: "*", Schema: "public", Table: "notifications"}, func(Change) {})
	require.NoError(t, c.Connect(context.Background(), "old"))
	waitFor(t, ps.joined, EventJoin)

	c.SetAuthToken("new")
	msg := waitFor(t, ps.received, EventAccessToken)
	assert.Equal(t, "realtime:n", msg.Topic)
	assert.JSONEq(t, `{"access_token":"new"}`, string(msg.Payload))
}

func TestCloseDuringReconnectDoesNotHang(t *testing.T) {
	ps := newPhoenixServer(t)
	c := NewClient(ps.config())

	// a conn dialed by reconnect lands after Close has already looked for one
	conn, err := c.dial(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c.wg.Add(1)
	go c.run(conn)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run kept serving a conn after Close")
	}
	assert.False(t, c.IsConnected())
}
