package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go-catfood-scanner/internal/logger"
	"go-catfood-scanner/internal/observer"
	"go-catfood-scanner/internal/service"
	"go-catfood-scanner/pkg/models"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Preview frames arrive over the socket, so allow a full JPEG.
	maxMessageSize = 4 << 20

	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mobile clients connect from arbitrary origins
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client messages
const (
	msgCameraReady = "camera_ready"
	msgBarcode     = "barcode"
	msgFrame       = "frame"
	msgSnapshot    = "snapshot"
)

// clientMessage is a camera signal or request sent by the client
type clientMessage struct {
	Type             string           `json:"type"`
	Payload          string           `json:"payload,omitempty"`
	Symbology        models.Symbology `json:"symbology,omitempty"`
	ObservedAtMillis int64            `json:"observed_at_millis,omitempty"`
	Data             []byte           `json:"data,omitempty"`
}

// serverMessage wraps everything the server pushes
type serverMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub fans session events out to the websocket clients of that session.
// It is an observer of the event publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*wsClient]struct{})}
}

// GetObserverName implements observer.Observer
func (h *Hub) GetObserverName() string { return "websocket_hub" }

// OnEvent forwards a session event to that session's clients
func (h *Hub) OnEvent(ctx context.Context, event observer.ScanEvent) {
	if event.SessionID == "" {
		return
	}
	msg, err := json.Marshal(serverMessage{Type: "event", Payload: event})
	if err != nil {
		logger.WithError(err).Error("Failed to encode event for websocket clients")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[event.SessionID] {
		c.enqueue(msg)
	}
}

// Clients returns the number of clients connected to a session
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.session.ID()] == nil {
		h.clients[c.session.ID()] = make(map[*wsClient]struct{})
	}
	h.clients[c.session.ID()][c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.session.ID()]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.session.ID())
	}
	close(c.send)
}

// Serve upgrades the request and attaches the connection to session
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, session *service.Session) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &wsClient{
		hub:     h,
		conn:    conn,
		session: session,
		send:    make(chan []byte, sendBuffer),
		log:     logger.WithSession(session.ID()),
	}
	h.register(c)
	c.reply(msgSnapshot, session.Snapshot())

	go c.writePump()
	go c.readPump()
	return nil
}

// wsClient is a middleman between one websocket connection and its session
type wsClient struct {
	hub     *Hub
	conn    *websocket.Conn
	session *service.Session
	send    chan []byte
	log     *logrus.Entry
}

// enqueue never blocks; a client that falls behind loses messages
func (c *wsClient) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
		c.log.Warn("Websocket client is slow, message dropped")
	}
}

func (c *wsClient) reply(msgType string, payload interface{}) {
	msg, err := json.Marshal(serverMessage{Type: msgType, Payload: payload})
	if err != nil {
		c.log.WithError(err).Error("Failed to encode websocket reply")
		return
	}
	c.enqueue(msg)
}

// readPump applies client camera signals to the session
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("Websocket read failed")
			}
			return
		}
		c.handle(msg)
	}
}

func (c *wsClient) handle(msg clientMessage) {
	switch msg.Type {
	case msgCameraReady:
		c.session.CameraReady()
	case msgBarcode:
		c.session.PushBarcode(models.BarcodeScanEvent{
			Payload:          msg.Payload,
			Symbology:        msg.Symbology,
			ObservedAtMillis: msg.ObservedAtMillis,
		})
	case msgFrame:
		if len(msg.Data) > 0 {
			c.session.PushFrame(msg.Data)
		}
	case msgSnapshot:
		c.reply(msgSnapshot, c.session.Snapshot())
	default:
		c.reply("error", models.ErrorResponse{Error: "unknown message type", Message: msg.Type})
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
