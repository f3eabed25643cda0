package realtime

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Hub pushes ride updates to websocket clients tracking a ride.
type Hub struct {
	upgrader websocket.Upgrader

	mu         sync.RWMutex
	rideConns  map[string]map[*wsClient]struct{}
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
}

type wsClient struct {
	rideID string
	conn   *websocket.Conn
	send   chan interface{}
	once   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rideConns:  make(map[string]map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
	}
}

// Run owns registration until ctx is done, then drops every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.rideConns {
				for c := range clients {
					c.stop()
				}
			}
			h.rideConns = make(map[string]map[*wsClient]struct{})
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			if h.rideConns[c.rideID] == nil {
				h.rideConns[c.rideID] = make(map[*wsClient]struct{})
			}
			h.rideConns[c.rideID][c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rideConns[c.rideID]; ok {
				delete(clients, c)
				if len(clients) == 0 {
					delete(h.rideConns, c.rideID)
				}
			}
			h.mu.Unlock()
			c.stop()
		}
	}
}

// ServeRide upgrades the request and streams updates for rideID. initial,
// when non-nil, is written before any broadcast.
func (h *Hub) ServeRide(w http.ResponseWriter, r *http.Request, rideID string, initial interface{}) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	c := &wsClient{rideID: rideID, conn: conn, send: make(chan interface{}, sendBuffer)}
	if initial != nil {
		c.send <- initial
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// Subscribers reports how many sockets track rideID.
func (h *Hub) Subscribers(rideID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rideConns[rideID])
}

func (h *Hub) PublishRideUpdate(rideID string, payload interface{}) {
	h.broadcast(rideID, map[string]interface{}{
		"type": "ride_update",
		"ride": payload,
	})
}

func (h *Hub) PublishDriverLocation(rideID, driverID string, lat, lng float64) {
	if rideID == "" {
		return
	}
	h.broadcast(rideID, map[string]interface{}{
		"type":      "driver_location",
		"driver_id": driverID,
		"lat":       lat,
		"lng":       lng,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Hub) broadcast(rideID string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rideConns[rideID] {
		select {
		case c.send <- payload:
		default:
			log.Printf("ws client on ride %s too slow, dropping update", rideID)
		}
	}
}

func (h *Hub) readPump(c *wsClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
			c.conn.Close()
		}
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				c.conn.Close()
				return
			}
			if err := c.conn.WriteJSON(payload); err != nil {
				c.conn.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

func (c *wsClient) stop() {
	c.once.Do(func() { close(c.send) })
}
