// Package realtime subscribes to row changes over the backend's Phoenix
// channel websocket.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
	"github.com/socialhub/socialhub-cli/pkg/config"
	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// Protocol events
const (
	EventJoin            = "phx_join"
	EventLeave           = "phx_leave"
	EventReply           = "phx_reply"
	EventError           = "phx_error"
	EventClose           = "phx_close"
	EventHeartbeat       = "heartbeat"
	EventAccessToken     = "access_token"
	EventPostgresChanges = "postgres_changes"
	EventSystem          = "system"

	phoenixTopic = "phoenix"
	topicPrefix  = "realtime:"
)

// ErrNotConnected is returned when writing without a live socket
var ErrNotConnected = errors.New("realtime: not connected")

// Message is one Phoenix frame
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

// Subscription selects the row changes a channel receives
type Subscription struct {
	Event  string `json:"event"` // INSERT, UPDATE, DELETE or *
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"` // e.g. user_id=eq.<id>
}

// Change is a row change delivered on a channel
type Change struct {
	Schema          string          `json:"schema"`
	Table           string          `json:"table"`
	Type            string          `json:"type"`
	CommitTimestamp string          `json:"commit_timestamp"`
	Record          json.RawMessage `json:"record"`
	OldRecord       json.RawMessage `json:"old_record"`
}

// Decode unmarshals the new row into v
func (c Change) Decode(v interface{}) error {
	if len(c.Record) == 0 {
		return fmt.Errorf("change on %s has no record", c.Table)
	}
	return json.Unmarshal(c.Record, v)
}

type changesPayload struct {
	Data Change `json:"data"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// Config holds realtime client settings
type Config struct {
	URL                  string
	APIKey               string
	ConnectTimeout       time.Duration
	HeartbeatInterval    time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	ReconnectJitter      time.Duration
	MaxReconnectAttempts int // -1 is unlimited
}

// DefaultConfig returns settings for a local backend
func DefaultConfig() Config {
	return Config{
		URL:                  "ws://localhost:54321/realtime/v1/websocket",
		ConnectTimeout:       15 * time.Second,
		HeartbeatInterval:    30 * time.Second,
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		ReconnectJitter:      time.Second,
		MaxReconnectAttempts: -1,
	}
}

// ConfigFromBackend derives the socket URL from backend.url
func ConfigFromBackend() Config {
	cfg := DefaultConfig()
	cfg.URL = SocketURL(config.GetString("backend.url"))
	cfg.APIKey = config.GetString("backend.anon_key")
	if s := config.GetInt("realtime.heartbeat_seconds"); s > 0 {
		cfg.HeartbeatInterval = time.Duration(s) * time.Second
	}
	return cfg
}

// SocketURL maps an http(s) backend URL to its realtime websocket
func SocketURL(backendURL string) string {
	u := strings.TrimRight(backendURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/realtime/v1/websocket"
}

// ConnectionState represents the state of the socket
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	default:
		return "disconnected"
	}
}

// ConnectionStats holds connection statistics
type ConnectionStats struct {
	MessagesReceived int64
	MessagesSent     int64
	ReconnectCount   int
	LastError        string
	ConnectedAt      time.Time
	DisconnectedAt   time.Time
}

type channel struct {
	topic    string
	sub      Subscription
	handlers map[int]func(Change)
	nextID   int
	joinRef  string
}

// Client multiplexes channel subscriptions over one socket and keeps it
// alive with heartbeats, rejoining every channel after a reconnect.
type Client struct {
	cfg Config

	mu       sync.Mutex
	conn     *websocket.Conn
	token    string
	channels map[string]*channel

	writeMu sync.Mutex
	ref     atomic.Uint64
	state   atomic.Value

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsLock sync.RWMutex
	stats     ConnectionStats
}

// NewClient creates a disconnected client
func NewClient(cfg Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:      cfg,
		channels: make(map[string]*channel),
		ctx:      ctx,
		cancel:   cancel,
	}
	c.state.Store(StateDisconnected)
	return c
}

// Connect dials the socket and starts the read and heartbeat loops
func (c *Client) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	c.setState(StateConnecting)
	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateError)
		c.recordError(err.Error())
		return fmt.Errorf("realtime connect: %w", err)
	}

	c.wg.Add(1)
	go c.run(conn)

	logger.Debug("Realtime connected", "url", c.cfg.URL)
	return nil
}

// Close stops reconnecting and closes the socket
func (c *Client) Close() error {
	c.cancel()

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.setState(StateDisconnected)
	logger.Debug("Realtime disconnected")
	return nil
}

// Subscribe joins topic for the given row changes. The returned function
// removes the handler and leaves the channel when it was the last one.
func (c *Client) Subscribe(name string, sub Subscription, fn func(Change)) func() {
	topic := topicPrefix + name

	c.mu.Lock()
	ch, ok := c.channels[topic]
	if !ok {
		ch = &channel{topic: topic, sub: sub, handlers: make(map[int]func(Change))}
		c.channels[topic] = ch
	}
	id := ch.nextID
	ch.nextID++
	ch.handlers[id] = fn
	connected := c.conn != nil
	c.mu.Unlock()

	if !ok && connected {
		if err := c.join(ch); err != nil {
			logger.Debug("Deferred channel join", "topic", topic, "error", err)
		}
	}

	return func() {
		c.mu.Lock()
		delete(ch.handlers, id)
		last := len(ch.handlers) == 0 && c.channels[topic] == ch
		if last {
			delete(c.channels, topic)
		}
		c.mu.Unlock()

		if last {
			_ = c.push(topic, EventLeave, map[string]interface{}{}, nil)
		}
	}
}

// SetAuthToken swaps the access token on every joined channel
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.token = token
	topics := make([]string, 0, len(c.channels))
	for t := range c.channels {
		topics = append(topics, t)
	}
	c.mu.Unlock()

	for _, t := range topics {
		if err := c.push(t, EventAccessToken, map[string]string{"access_token": token}, nil); err != nil {
			logger.Debug("Failed to push access token", "topic", t, "error", err)
		}
	}
}

// State returns the current connection state
func (c *Client) State() ConnectionState {
	return c.state.Load().(ConnectionState)
}

// IsConnected returns true if the connection is established
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// GetStats returns connection statistics
func (c *Client) GetStats() ConnectionStats {
	c.statsLock.RLock()
	defer c.statsLock.RUnlock()
	return c.stats
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if c.cfg.APIKey != "" {
		q.Set("apikey", c.cfg.APIKey)
	}
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()

	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	return conn, err
}

func (c *Client) run(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		err := c.serve(conn)
		if c.ctx.Err() != nil {
			return
		}
		c.recordError(err.Error())
		logger.Warn("Realtime connection lost", "error", err)

		conn = c.reconnect()
		if conn == nil {
			return
		}
	}
}

// serve owns one connection until it fails
func (c *Client) serve(conn *websocket.Conn) error {
	c.mu.Lock()
	// Close may have run while the conn was being dialed
	if err := c.ctx.Err(); err != nil {
		c.mu.Unlock()
		conn.Close()
		return err
	}
	c.conn = conn
	channels := make([]*channel, 0, len(c.channels))
	for _, ch := range c.channels {
		channels = append(channels, ch)
	}
	c.mu.Unlock()

	c.setState(StateConnected)
	c.recordConnected()

	connCtx, stop := context.WithCancel(c.ctx)
	var hb sync.WaitGroup
	hb.Add(1)
	go func() {
		defer hb.Done()
		c.heartbeatLoop(connCtx, conn)
	}()

	defer func() {
		stop()
		conn.Close()
		hb.Wait()

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		c.recordDisconnected()
	}()

	for _, ch := range channels {
		if err := c.join(ch); err != nil {
			return err
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.recordMessageReceived()
		c.dispatch(data)
	}
}

func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	interval := c.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = DefaultConfig().HeartbeatInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return
		case <-ticker.C:
			if err := c.push(phoenixTopic, EventHeartbeat, map[string]interface{}{}, nil); err != nil {
				logger.Debug("Failed to send heartbeat", "error", err)
				conn.Close()
				return
			}
		}
	}
}

func (c *Client) reconnect() *websocket.Conn {
	c.setState(StateReconnecting)

	delay := c.cfg.ReconnectBaseDelay
	for attempt := 0; ; attempt++ {
		if c.cfg.MaxReconnectAttempts >= 0 && attempt >= c.cfg.MaxReconnectAttempts {
			c.setState(StateError)
			logger.Error("Max reconnection attempts reached")
			return nil
		}

		wait := delay
		if c.cfg.ReconnectJitter > 0 {
			wait += rand.N(c.cfg.ReconnectJitter)
		}
		logger.Debug("Reconnecting realtime", "attempt", attempt+1, "wait_ms", wait.Milliseconds())

		select {
		case <-c.ctx.Done():
			return nil
		case <-time.After(wait):
		}

		conn, err := c.dial(c.ctx)
		if err == nil {
			c.statsLock.Lock()
			c.stats.ReconnectCount++
			c.statsLock.Unlock()
			logger.Info("Realtime reconnected")
			return conn
		}
		c.recordError(err.Error())

		delay *= 2
		if delay > c.cfg.ReconnectMaxDelay {
			delay = c.cfg.ReconnectMaxDelay
		}
	}
}

func (c *Client) join(ch *channel) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	payload := map[string]interface{}{
		"config": map[string]interface{}{
			"broadcast":        map[string]bool{"self": false},
			"presence":         map[string]string{"key": ""},
			"postgres_changes": []Subscription{ch.sub},
		},
	}
	if token != "" {
		payload["access_token"] = token
	}

	ref := c.nextRef()
	c.mu.Lock()
	ch.joinRef = ref
	c.mu.Unlock()

	logger.Debug("Joining channel", "topic", ch.topic, "table", ch.sub.Table)
	return c.push(ch.topic, EventJoin, payload, &ref)
}

func (c *Client) nextRef() string {
	return strconv.FormatUint(c.ref.Add(1), 10)
}

func (c *Client) push(topic, event string, payload interface{}, ref *string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if ref == nil {
		r := c.nextRef()
		ref = &r
	}
	data, err := json.Marshal(Message{Topic: topic, Event: event, Payload: body, Ref: ref, JoinRef: joinRefFor(event, ref)})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return err
	}
	c.recordMessageSent()
	return nil
}

func joinRefFor(event string, ref *string) *string {
	if event == EventJoin {
		return ref
	}
	return nil
}

func (c *Client) dispatch(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Debug("Ignoring malformed realtime frame", "error", err)
		return
	}

	switch msg.Event {
	case EventPostgresChanges:
		var p changesPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			logger.Debug("Ignoring malformed change", "topic", msg.Topic, "error", err)
			return
		}
		c.mu.Lock()
		var handlers []func(Change)
		if ch, ok := c.channels[msg.Topic]; ok {
			for _, h := range ch.handlers {
				handlers = append(handlers, h)
			}
		}
		c.mu.Unlock()

		for _, h := range handlers {
			h(p.Data)
		}

	case EventReply:
		var p replyPayload
		_ = json.Unmarshal(msg.Payload, &p)
		if p.Status != "ok" {
			c.recordError(string(p.Response))
			logger.Warn("Realtime request rejected", "topic", msg.Topic, "response", string(p.Response))
		}

	case EventError, EventClose:
		logger.Debug("Channel closed by server", "topic", msg.Topic, "event", msg.Event)

	case EventSystem:
		logger.Debug("Realtime system message", "topic", msg.Topic, "payload", string(msg.Payload))
	}
}

func (c *Client) setState(state ConnectionState) {
	c.state.Store(state)
}

func (c *Client) recordMessageReceived() {
	c.statsLock.Lock()
	c.stats.MessagesReceived++
	c.statsLock.Unlock()
}

func (c *Client) recordMessageSent() {
	c.statsLock.Lock()
	c.stats.MessagesSent++
	c.statsLock.Unlock()
}

func (c *Client) recordError(errMsg string) {
	c.statsLock.Lock()
	c.stats.LastError = errMsg
	c.statsLock.Unlock()
}

func (c *Client) recordConnected() {
	c.statsLock.Lock()
	c.stats.ConnectedAt = time.Now()
	c.statsLock.Unlock()
}

func (c *Client) recordDisconnected() {
	c.statsLock.Lock()
	c.stats.DisconnectedAt = time.Now()
	c.statsLock.Unlock()
}
