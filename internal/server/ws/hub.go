package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/pkg/auth"
)

const (
	defaultSendBuffer   = 32
	defaultPongWait     = 60 * time.Second
	defaultWriteWait    = 10 * time.Second
	maxControlFrameSize = 1 << 10
)

var errHubClosed = errors.New("hub closed")

// Option customizes a Hub.
type Option func(*Hub)

// WithSendBuffer sets how many frames may queue per socket before new ones are dropped.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithKeepalive sets how long a silent socket survives. Pings go out at 9/10 of pongWait.
func WithKeepalive(pongWait time.Duration) Option {
	return func(h *Hub) {
		if pongWait > 0 {
			h.pongWait = pongWait
		}
	}
}

type client struct {
	id        string
	principal auth.Principal
	conn      *websocket.Conn
	send      chan model.Envelope
}

// Hub keeps the local websocket sessions and their room membership. A
// session can only ever join the room named after its own principal.
type Hub struct {
	upgrader   websocket.Upgrader
	logger     *slog.Logger
	sendBuffer int
	pongWait   time.Duration
	writeWait  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	rooms   map[string]map[*client]struct{}
	clients map[*client]map[string]struct{}
	closed  bool
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:     logger,
		sendBuffer: defaultSendBuffer,
		pongWait:   defaultPongWait,
		writeWait:  defaultWriteWait,
		ctx:        ctx,
		cancel:     cancel,
		rooms:      make(map[string]map[*client]struct{}),
		clients:    make(map[*client]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Emit delivers payload to every local socket joined to room.
func (h *Hub) Emit(_ context.Context, room string, payload model.Payload) error {
	env, err := model.NewEnvelope(room, payload)
	if err != nil {
		return err
	}
	h.Deliver(env)
	return nil
}

// Deliver queues env on every socket in env.Room and returns how many accepted it.
// A socket whose buffer is full misses the frame.
func (h *Hub) Deliver(env model.Envelope) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.rooms[env.Room] {
		select {
		case c.send <- env:
			delivered++
		default:
			h.logger.Warn("dropping frame for slow client",
				slog.String("session", c.id),
				slog.String("room", env.Room),
				slog.String("event", string(env.Name)),
			)
		}
	}
	return delivered
}

// Members returns the number of sockets joined to room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Serve upgrades the request and runs the session until either side hangs up
// or the hub is closed.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, principal auth.Principal) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade: %w", err)
	}

	c := &client{
		id:        uuid.NewString(),
		principal: principal,
		conn:      conn,
		send:      make(chan model.Envelope, h.sendBuffer),
	}
	if err := h.register(c); err != nil {
		_ = conn.Close()
		return err
	}
	defer h.unregister(c)

	h.logger.Info("websocket session opened",
		slog.String("session", c.id),
		slog.String("user", principal.ID),
		slog.String("role", string(principal.Role)),
	)

	g, gctx := errgroup.WithContext(h.ctx)
	g.Go(func() error { return h.readPump(c) })
	g.Go(func() error { return h.writePump(gctx, c) })
	err = g.Wait()

	h.logger.Info("websocket session closed", slog.String("session", c.id), slog.String("user", principal.ID))
	if err == nil || h.ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return err
}

// Close disconnects every session and waits for them to finish.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cancel()
	h.wg.Wait()
}

func (h *Hub) register(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errHubClosed
	}
	h.clients[c] = make(map[string]struct{})
	h.wg.Add(1)
	return nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	for room := range h.clients[c] {
		h.leaveLocked(c, room)
	}
	delete(h.clients, c)
	h.mu.Unlock()
	h.wg.Done()
}

func (h *Hub) join(c *client, room string) {
	if room != c.principal.ID {
		h.logger.Warn("ignoring join for foreign room",
			slog.String("session", c.id),
			slog.String("user", c.principal.ID),
			slog.String("room", room),
		)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	h.clients[c][room] = struct{}{}
}

func (h *Hub) leave(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.clients[c], room)
}

func (h *Hub) readPump(c *client) error {
	c.conn.SetReadLimit(maxControlFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		var msg model.ControlMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return err
		}
		switch msg.Type {
		case model.ControlJoin:
			h.join(c, msg.UserID)
		case model.ControlLeave:
			h.leave(c, msg.UserID)
		default:
			h.logger.Warn("unknown control message", slog.String("session", c.id), slog.String("type", string(msg.Type)))
		}
	}
}

func (h *Hub) writePump(ctx context.Context, c *client) error {
	ticker := time.NewTicker(h.pongWait * 9 / 10)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(h.writeWait)
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
			return nil
		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return err
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeWait)); err != nil {
				return err
			}
		}
	}
}
