// Package bridge connects browser clients to the assistant over WebSocket.
//
// Browsers do the speech recognition and synthesis themselves. A client
// connects to the [Hub], streams recognised utterances as transcript
// messages and receives speak, notify, open and fallback messages back. The
// Hub implements every capability port by broadcasting to all connected
// clients, so the interpreter never needs to know a browser is involved.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/shifra/internal/observe"
	"github.com/MrWong99/shifra/pkg/capability"
)

// ErrNoClients is returned by the error-reporting send methods when no
// browser is connected.
var ErrNoClients = errors.New("bridge: no clients connected")

// Compile-time interface checks.
var (
	_ capability.Speaker          = (*Hub)(nil)
	_ capability.Notifier         = (*Hub)(nil)
	_ capability.Opener           = (*Hub)(nil)
	_ capability.FallbackRenderer = (*Hub)(nil)
)

const (
	defaultSendBuffer   = 32
	defaultWriteTimeout = 5 * time.Second
	readLimit           = 64 << 10
)

// Commands handles utterances received from clients.
type Commands interface {
	HandleCommand(ctx context.Context, text string) string
}

// Hub tracks connected clients and fans capability calls out to them. The
// zero value is not usable; create one with [NewHub].
type Hub struct {
	origins      []string
	sendBuffer   int
	writeTimeout time.Duration
	greeting     func() string
	onConnect    func(ctx context.Context)
	metrics      *observe.Metrics

	mu      sync.Mutex
	clients map[*client]struct{}
}

// Option configures a [Hub].
type Option func(*Hub)

// WithOriginPatterns sets the host patterns allowed to connect from another
// origin. See [websocket.AcceptOptions].
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) { h.origins = patterns }
}

// WithGreeting sets a function whose result is spoken to every newly
// connected client.
func WithGreeting(f func() string) Option {
	return func(h *Hub) { h.greeting = f }
}

// WithOnConnect sets a function called for every new client after it is
// registered and greeted, before its transcripts are read. Capability calls
// made from f reach the new client.
func WithOnConnect(f func(ctx context.Context)) Option {
	return func(h *Hub) { h.onConnect = f }
}

// WithSendBuffer sets the per-client outbound queue size. Messages to a
// client whose queue is full are dropped.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithWriteTimeout bounds a single write to a client.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithMetrics sets the metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// NewHub creates a Hub with no clients.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		sendBuffer:   defaultSendBuffer,
		writeTimeout: defaultWriteTimeout,
		clients:      make(map[*client]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	if h.metrics == nil {
		h.metrics = observe.DefaultMetrics()
	}
	return h
}

type client struct {
	conn *websocket.Conn
	send chan Outbound
	addr string
}

// Handler returns the WebSocket endpoint. Transcripts received on it are
// passed to cmds one at a time per connection.
func (h *Hub) Handler(cmds Commands) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, cmds)
	})
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, cmds Commands) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Warn("bridge: websocket accept failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	conn.SetReadLimit(readLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{
		conn: conn,
		send: make(chan Outbound, h.sendBuffer),
		addr: r.RemoteAddr,
	}
	h.register(ctx, c)
	defer h.unregister(ctx, c)

	var wg sync.WaitGroup
	wg.Go(func() {
		h.writeLoop(ctx, c)
		// A failed write leaves the reader blocked; closing unblocks it.
		cancel()
	})
	defer wg.Wait()

	if h.greeting != nil {
		c.enqueue(Outbound{Type: TypeSpeak, Text: h.greeting()})
	}
	if h.onConnect != nil {
		h.onConnect(ctx)
	}

	h.readLoop(ctx, c, cmds)
	cancel()
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Hub) readLoop(ctx context.Context, c *client, cmds Commands) {
	ctx = observe.ContextWithSource(ctx, "bridge")
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				slog.Debug("bridge: read failed", "remote", c.addr, "err", err)
			}
			return
		}

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("bridge: malformed client message", "remote", c.addr, "err", err)
			continue
		}
		switch msg.Type {
		case TypeTranscript:
			if cmds != nil {
				cmds.HandleCommand(ctx, msg.Text)
			}
		default:
			slog.Debug("bridge: ignoring client message", "remote", c.addr, "type", msg.Type)
		}
	}
}

func (h *Hub) writeLoop(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.send:
			data, err := json.Marshal(msg)
			if err != nil {
				slog.Error("bridge: encode message", "type", msg.Type, "err", err)
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err = c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Debug("bridge: write failed", "remote", c.addr, "err", err)
				return
			}
		}
	}
}

// enqueue reports false when the client's queue is full.
func (c *client) enqueue(msg Outbound) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (h *Hub) register(ctx context.Context, c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.BridgeClients.Add(ctx, 1)
	slog.Info("bridge: client connected", "remote", c.addr, "clients", n)
}

func (h *Hub) unregister(ctx context.Context, c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.metrics.BridgeClients.Add(context.WithoutCancel(ctx), -1)
		slog.Info("bridge: client disconnected", "remote", c.addr, "clients", n)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues msg for every connected client. It returns [ErrNoClients]
// when nobody is connected. Clients with a full queue miss the message.
func (h *Hub) Broadcast(msg Outbound) error {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	if len(clients) == 0 {
		return ErrNoClients
	}
	for _, c := range clients {
		if !c.enqueue(msg) {
			slog.Warn("bridge: client queue full, dropping message", "remote", c.addr, "type", msg.Type)
		}
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// SpeakText sends u to every client for local speech synthesis.
func (h *Hub) SpeakText(_ context.Context, u capability.Utterance) error {
	return h.Broadcast(Outbound{
		Type:   TypeSpeak,
		Text:   u.Text,
		Locale: u.Locale,
		Rate:   u.Rate,
		Pitch:  u.Pitch,
	})
}

// PlayAudio sends pre-synthesised audio for u to every client. format is
// the container name, such as "mp3".
func (h *Hub) PlayAudio(_ context.Context, u capability.Utterance, audio []byte, format string) error {
	return h.Broadcast(Outbound{
		Type:   TypeSpeak,
		Text:   u.Text,
		Locale: u.Locale,
		Audio:  slices.Clone(audio),
		Format: format,
	})
}

// SendNotification asks every client to raise a notification.
func (h *Hub) SendNotification(_ context.Context, title, body string) error {
	return h.Broadcast(Outbound{Type: TypeNotify, Title: title, Body: body})
}

// Speak implements [capability.Speaker].
func (h *Hub) Speak(ctx context.Context, u capability.Utterance) {
	h.logDropped(h.SpeakText(ctx, u), TypeSpeak)
}

// Notify implements [capability.Notifier].
func (h *Hub) Notify(ctx context.Context, title, body string) {
	h.logDropped(h.SendNotification(ctx, title, body), TypeNotify)
}

// Open implements [capability.Opener].
func (h *Hub) Open(_ context.Context, url string, newTab bool) {
	h.logDropped(h.Broadcast(Outbound{Type: TypeOpen, URL: url, NewTab: newTab}), TypeOpen)
}

// RenderFallback implements [capability.FallbackRenderer].
func (h *Hub) RenderFallback(_ context.Context, label string, urls []string) {
	h.logDropped(h.Broadcast(Outbound{Type: TypeFallback, Label: label, URLs: slices.Clone(urls)}), TypeFallback)
}

func (h *Hub) logDropped(err error, typ string) {
	if err != nil {
		slog.Debug("bridge: message not delivered", "type", typ, "err", err)
	}
}
