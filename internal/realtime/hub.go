package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// RoomAdmin is the room every back-office connection joins.
	RoomAdmin = "admin"
)

// Events pushed to back-office clients.
const (
	EventRosterChanged  = "roster_changed"
	EventBookingCreated = "booking_created"
	EventBookingUpdated = "booking_updated"
	EventContentSaved   = "content_saved"
	EventMediaUploaded  = "media_uploaded"
	EventPresence       = "presence"
)

// PresenceHandler is called when the number of clients in a room changes.
type PresenceHandler func(room string, count int)

// RelayMessage is an event crossing between server instances. Origin is the
// sending instance and is set by the relay.
type RelayMessage struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	At     int64           `json:"at"`
}

// Relay carries events to the other server instances. Run delivers events
// published elsewhere, never the instance's own, until ctx is done.
type Relay interface {
	Publish(ctx context.Context, msg RelayMessage) error
	Run(ctx context.Context, deliver func(RelayMessage)) error
}

const relayTimeout = 5 * time.Second

// Hub tracks the connections of each room. Events are delivered to local
// connections directly and handed to the relay, if any, for other instances.
type Hub struct {
	rooms      map[string]map[string]*Client
	mu         sync.RWMutex
	logger     *zap.Logger
	relay      Relay
	onPresence PresenceHandler
}

// NewHub creates a WebSocket hub. relay may be nil for a single instance.
func NewHub(logger *zap.Logger, relay Relay) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]map[string]*Client),
		logger: logger,
		relay:  relay,
	}
}

// Run receives events from other instances until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.relay == nil {
		return
	}
	err := h.relay.Run(ctx, func(m RelayMessage) {
		h.Broadcast(m.Room, m.Event, m.Data)
	})
	if err != nil && ctx.Err() == nil {
		h.logger.Error("realtime relay stopped", zap.Error(err))
	}
}

// SetPresenceHandler sets the callback for room size changes.
func (h *Hub) SetPresenceHandler(fn PresenceHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPresence = fn
}

// Register adds a client to its room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.Room] == nil {
		h.rooms[c.Room] = make(map[string]*Client)
	}
	h.rooms[c.Room][c.ID] = c
	count := len(h.rooms[c.Room])
	onPresence := h.onPresence
	h.mu.Unlock()
	if onPresence != nil {
		onPresence(c.Room, count)
	}
	h.logger.Debug("client joined room", zap.String("client_id", c.ID), zap.String("room", c.Room))
}

// Unregister removes a client from its room and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var count int
	if m, ok := h.rooms[c.Room]; ok {
		if _, present := m[c.ID]; present {
			delete(m, c.ID)
			close(c.send)
		}
		count = len(m)
		if count == 0 {
			delete(h.rooms, c.Room)
		}
	}
	onPresence := h.onPresence
	h.mu.Unlock()
	if onPresence != nil {
		onPresence(c.Room, count)
	}
	h.logger.Debug("client left room", zap.String("client_id", c.ID), zap.String("room", c.Room))
}

func encode(payload interface{}) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}

// Broadcast sends a message to all clients in a room (local only). Slow
// clients with a full buffer miss the message.
func (h *Hub) Broadcast(room, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode broadcast", zap.String("event", event), zap.Error(err))
		return
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[room] {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Publish delivers an event to the room on every instance: locally right
// away, elsewhere through the relay.
func (h *Hub) Publish(room, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode publish", zap.String("event", event), zap.Error(err))
		return
	}
	h.Broadcast(room, event, json.RawMessage(data))
	if h.relay == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
	defer cancel()
	msg := RelayMessage{Room: room, Event: event, Data: data, At: time.Now().Unix()}
	if err := h.relay.Publish(ctx, msg); err != nil {
		h.logger.Warn("relay room event", zap.String("room", room), zap.String("event", event), zap.Error(err))
	}
}

// Count returns the number of connected clients in a room.
func (h *Hub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// SendToClient sends a message to a single client.
func (h *Hub) SendToClient(room, clientID, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.rooms[room][clientID]
	if !ok {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
	}
}
