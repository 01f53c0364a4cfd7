package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Divy1030/duelcore/internal/matchmaking"
	"github.com/Divy1030/duelcore/internal/pubsub"
	"github.com/Divy1030/duelcore/internal/room"
)

// upgrader follows a standard gorilla/websocket pattern: permissive
// CheckOrigin in this single-process deployment, tightened at the reverse
// proxy in front of it rather than in code.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeTimeout  = 10 * time.Second
	pongTimeout   = 60 * time.Second
	pingInterval  = (pongTimeout * 9) / 10
	maxMessageLen = 500
)

// envelope is the JSON frame both directions speak: client events carry
// event/data/ackId; server pushes carry event/data and omit ackId; server
// acknowledgements carry ackId and the ack payload flattened into data.
type envelope struct {
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID string          `json:"ackId,omitempty"`
}

// Client is one authenticated websocket connection and the per-connection
// state bound to it: userId, user, and joinedRooms.
type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	queue  *matchmaking.Queue
	rooms  *room.Manager
	bus    *pubsub.Bus
	logger *zap.Logger

	userID   string
	username string
	rating   int

	send chan []byte

	mu          sync.Mutex
	joinedRooms map[string]bool
	closeOnce   sync.Once
}

// Deps bundles the gateway's collaborators so NewClient stays one call.
type Deps struct {
	Hub    *Hub
	Queue  *matchmaking.Queue
	Rooms  *room.Manager
	Bus    *pubsub.Bus
	Logger *zap.Logger
}

// NewClient upgrades r/w to a websocket connection and wires it to deps.
func NewClient(w http.ResponseWriter, r *http.Request, userID, username string, rating int, deps Deps) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:        conn,
		hub:         deps.Hub,
		queue:       deps.Queue,
		rooms:       deps.Rooms,
		bus:         deps.Bus,
		logger:      deps.Logger,
		userID:      userID,
		username:    username,
		rating:      rating,
		send:        make(chan []byte, 32),
		joinedRooms: make(map[string]bool),
	}, nil
}

// NotifyMatchmakingTimeout satisfies matchmaking.Notifier: the queue calls
// this when the player's wait deadline expires.
func (c *Client) NotifyMatchmakingTimeout() {
	c.pushEvent("matchmakingTimeout", map[string]any{"message": "no opponent found within the matchmaking window"})
}

// Run starts the read/write pumps and blocks until the connection closes.
// Call it from the HTTP handler goroutine that owns the upgraded request.
func (c *Client) Run() {
	c.hub.Register(c)
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer c.onDisconnect()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Debug("session: malformed envelope", zap.String("user_id", c.userID), zap.Error(err))
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// pushEvent enqueues a server-push frame (no ackId).
func (c *Client) pushEvent(event string, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		return
	}
	c.enqueue(envelope{Event: event, Data: body})
}

// ack enqueues the acknowledgement for ackID. Every event handler must call
// this exactly once per inbound event.
func (c *Client) ack(ackID string, payload any) {
	if ackID == "" {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	c.enqueue(envelope{AckID: ackID, Data: body})
}

func (c *Client) enqueue(env envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
		c.logger.Warn("session: send buffer full, dropping frame", zap.String("user_id", c.userID))
	}
}

// joinRoom subscribes the connection to a room's pubsub channel and
// forwards every message verbatim (Manager.Broadcast already encodes the
// {event, data} envelope shape).
func (c *Client) joinRoom(ctx context.Context, roomID string) {
	c.mu.Lock()
	if _, ok := c.joinedRooms[roomID]; ok {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	channel := pubsub.RoomChannel(roomID)
	err := c.bus.Subscribe(ctx, channel, func(ctx context.Context, msg pubsub.Message) error {
		c.enqueueRaw(msg.Data)
		return nil
	})
	if err != nil {
		c.logger.Warn("session: room subscribe failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}

	c.mu.Lock()
	c.joinedRooms[roomID] = true
	c.mu.Unlock()
}

func (c *Client) enqueueRaw(b []byte) {
	select {
	case c.send <- b:
	default:
		c.logger.Warn("session: send buffer full, dropping room broadcast", zap.String("user_id", c.userID))
	}
}

func (c *Client) joinedRoomIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.joinedRooms))
	for id := range c.joinedRooms {
		ids = append(ids, id)
	}
	return ids
}

func (c *Client) onDisconnect() {
	ctx := context.Background()
	c.queue.Remove(c.userID)

	for _, roomID := range c.joinedRoomIDs() {
		c.rooms.Broadcast(ctx, roomID, "opponentDisconnected", map[string]any{
			"userId":    c.userID,
			"temporary": true,
		})
	}

	c.hub.Unregister(c)
	c.Close()
}

// Close shuts the connection down exactly once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
