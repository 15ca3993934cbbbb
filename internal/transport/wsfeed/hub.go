package wsfeed

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meridian-xr/scenelabel/internal/label"
)

// HubConfig tunes the relay hub.
type HubConfig struct {
	// MaxClientsPerRoom rejects joins beyond this count. 0 means unlimited.
	MaxClientsPerRoom int
	// RetainedCap bounds retained records per room. 0 means unlimited.
	RetainedCap int
	// WriteTimeout bounds one websocket write.
	WriteTimeout time.Duration
	// SendBuffer is the per-member outbound queue; members that fall this
	// far behind are dropped rather than blocking the room.
	SendBuffer int
}

// Keepalive timing, shared by the hub and the client: the write side pings
// every pingPeriod and the read side drops the connection when no traffic
// (frames or pongs) arrives within pongWait. Vars so tests can shorten them.
var (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// DefaultHubConfig returns the stock relay configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		MaxClientsPerRoom: 32,
		RetainedCap:       1024,
		WriteTimeout:      10 * time.Second,
		SendBuffer:        64,
	}
}

// Hub is the relay side of the feed: rooms of websocket members with a
// retained record set per room. A put is stored and broadcast to every
// member including the sender (the sender's own ingestor filters the echo by
// creator ID); a delete clears the retained entry and broadcasts; a joining
// member first receives a snapshot of everything retained.
type Hub struct {
	cfg      HubConfig
	upgrader websocket.Upgrader

	mu     sync.Mutex
	rooms  map[string]*room
	closed bool
}

type room struct {
	members  map[*member]struct{}
	retained map[string]label.AnchorRecord
	order    []string
}

type member struct {
	conn *websocket.Conn
	send chan Envelope
	done chan struct{}
	once sync.Once
}

// NewHub returns an empty hub.
func NewHub(cfg HubConfig) *Hub {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultHubConfig().WriteTimeout
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultHubConfig().SendBuffer
	}
	return &Hub{
		cfg:   cfg,
		rooms: make(map[string]*room),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The relay is deployed on trusted networks; origin checks are a
			// deployment concern, not the relay's.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades /rooms/{room} requests and runs the member until its
// connection drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomName := strings.TrimPrefix(r.URL.Path, "/rooms/")
	roomName = strings.Trim(roomName, "/")
	if roomName == "" {
		http.Error(w, "room name required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[relay] upgrade failed: %v", err)
		return
	}

	m := &member{
		conn: conn,
		send: make(chan Envelope, h.cfg.SendBuffer),
		done: make(chan struct{}),
	}

	snapshot, ok := h.join(roomName, m)
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "room full"),
			time.Now().Add(h.cfg.WriteTimeout))
		conn.Close()
		return
	}
	device := r.URL.Query().Get("device")
	log.Printf("[relay] device %q joined room %q (%d retained)", device, roomName, len(snapshot))

	go h.writePump(m)
	for _, a := range snapshot {
		rec := a
		m.enqueue(Envelope{Op: OpSnapshot, Record: &rec})
	}

	h.readPump(roomName, m)
	h.leave(roomName, m)
	log.Printf("[relay] device %q left room %q", device, roomName)
}

func (h *Hub) join(roomName string, m *member) ([]label.AnchorRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	rm, ok := h.rooms[roomName]
	if !ok {
		rm = &room{
			members:  make(map[*member]struct{}),
			retained: make(map[string]label.AnchorRecord),
		}
		h.rooms[roomName] = rm
	}
	if h.cfg.MaxClientsPerRoom > 0 && len(rm.members) >= h.cfg.MaxClientsPerRoom {
		return nil, false
	}
	rm.members[m] = struct{}{}
	snapshot := make([]label.AnchorRecord, 0, len(rm.order))
	for _, id := range rm.order {
		snapshot = append(snapshot, rm.retained[id])
	}
	return snapshot, true
}

func (h *Hub) leave(roomName string, m *member) {
	h.mu.Lock()
	if rm, ok := h.rooms[roomName]; ok {
		delete(rm.members, m)
		if len(rm.members) == 0 && len(rm.retained) == 0 {
			delete(h.rooms, roomName)
		}
	}
	h.mu.Unlock()
	m.close()
}

func (h *Hub) readPump(roomName string, m *member) {
	_ = m.conn.SetReadDeadline(time.Now().Add(pongWait))
	m.conn.SetPongHandler(func(string) error {
		return m.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var env Envelope
		if err := m.conn.ReadJSON(&env); err != nil {
			return
		}
		_ = m.conn.SetReadDeadline(time.Now().Add(pongWait))
		switch env.Op {
		case OpPut:
			if env.Record == nil || env.Record.AnchorID == "" {
				continue
			}
			h.put(roomName, *env.Record)
		case OpDelete:
			if env.AnchorID == "" {
				continue
			}
			h.delete(roomName, env.AnchorID)
		}
	}
}

func (h *Hub) put(roomName string, a label.AnchorRecord) {
	h.mu.Lock()
	rm, ok := h.rooms[roomName]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := rm.retained[a.AnchorID]; !exists {
		if h.cfg.RetainedCap > 0 && len(rm.retained) >= h.cfg.RetainedCap {
			// Room KV is full; still broadcast so live members converge.
			log.Printf("[relay] room %q retained cap reached, not retaining %s", roomName, a.AnchorID)
		} else {
			rm.order = append(rm.order, a.AnchorID)
			rm.retained[a.AnchorID] = a
		}
	} else {
		rm.retained[a.AnchorID] = a
	}
	members := membersOf(rm)
	h.mu.Unlock()

	rec := a
	for _, mb := range members {
		mb.enqueue(Envelope{Op: OpPut, Record: &rec})
	}
}

func (h *Hub) delete(roomName, anchorID string) {
	h.mu.Lock()
	rm, ok := h.rooms[roomName]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := rm.retained[anchorID]; exists {
		delete(rm.retained, anchorID)
		for i, id := range rm.order {
			if id == anchorID {
				rm.order = append(rm.order[:i], rm.order[i+1:]...)
				break
			}
		}
	}
	members := membersOf(rm)
	h.mu.Unlock()

	for _, mb := range members {
		mb.enqueue(Envelope{Op: OpDelete, AnchorID: anchorID})
	}
}

func membersOf(rm *room) []*member {
	out := make([]*member, 0, len(rm.members))
	for mb := range rm.members {
		out = append(out, mb)
	}
	return out
}

func (h *Hub) writePump(m *member) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case env := <-m.send:
			_ = m.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			data, err := json.Marshal(env)
			if err != nil {
				continue
			}
			if err := m.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				m.close()
				return
			}
		case <-ping.C:
			_ = m.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := m.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				m.close()
				return
			}
		case <-m.done:
			return
		}
	}
}

// enqueue drops the envelope if the member's queue is full: a slow consumer
// must not hold up the room, and the snapshot-on-reconnect path re-converges
// it anyway.
func (m *member) enqueue(env Envelope) {
	select {
	case m.send <- env:
	case <-m.done:
	default:
	}
}

func (m *member) close() {
	m.once.Do(func() {
		close(m.done)
		m.conn.Close()
	})
}

// RoomStats reports member and retained counts for one room.
func (h *Hub) RoomStats(roomName string) (members, retained int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[roomName]
	if !ok {
		return 0, 0
	}
	return len(rm.members), len(rm.retained)
}

// Close disconnects every member and stops accepting joins.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*member
	for _, rm := range h.rooms {
		all = append(all, membersOf(rm)...)
	}
	h.rooms = make(map[string]*room)
	h.mu.Unlock()

	for _, m := range all {
		m.close()
	}
}
