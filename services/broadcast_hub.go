package services

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"marketpulse-backend/models"
)

// WebSocket service configuration
const (
	WebSocketWriteTimeout = 10 * time.Second
	WebSocketSendBuffer   = 256
	WebSocketReadLimit    = 4096
)

// Outbound and inbound message types
const (
	MsgConnected         = "connected"
	MsgPing              = "ping"
	MsgPong              = "pong"
	MsgSubscribe         = "subscribe"
	MsgUnsubscribe       = "unsubscribe"
	MsgSubscribed        = "subscribed"
	MsgUnsubscribed      = "unsubscribed"
	MsgMarketUpdate      = "market_update"
	MsgMarketStatus      = "market_status"
	MsgMarketMovers      = "market_movers"
	MsgSectorPerformance = "sector_performance"
	MsgMarketNews        = "market_news"
	MsgNotification      = "notification"
	MsgError             = "error"
)

// WSMessage is the envelope for every server-to-client message
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
	Time string      `json:"time,omitempty"`
}

// wsInbound is the envelope for every client-to-server message
type wsInbound struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
}

// MarketUpdatePayload is the data field of a market_update message
type MarketUpdatePayload struct {
	Symbol    string      `json:"symbol"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// ChannelPayload is the data field of subscribe/unsubscribe acknowledgements
type ChannelPayload struct {
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
}

// TokenValidator checks a bearer credential and returns the authenticated
// user id
type TokenValidator func(token string) (string, error)

// SymbolSubscriber receives the symbols clients ask to follow. The polling
// scheduler's subscription set implements it.
type SymbolSubscriber interface {
	Subscribe(symbol string)
	Unsubscribe(symbol string)
}

// WSClient owns a single authenticated connection. Nothing outside the hub
// holds a reference to it.
type WSClient struct {
	userID   string
	conn     *websocket.Conn
	send     chan []byte
	lastPong atomic.Int64 // unix nanos

	mu     sync.Mutex // guards closed and send-channel closure
	closed bool
}

// touchPong records pong activity for the heartbeat check
func (c *WSClient) touchPong() {
	c.lastPong.Store(time.Now().UnixNano())
}

// enqueue queues one payload for the write pump. Returns false when the
// client is already closed or its buffer is full. Sends and closure share
// the client mutex so a send can never hit a closed channel.
func (c *WSClient) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once
func (c *WSClient) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// BroadcastHub manages live client connections: it authenticates them,
// tracks liveness and pushes structured events to one, many or all clients.
// The registry keeps a single active connection per identity.
type BroadcastHub struct {
	validate   TokenValidator
	subscriber SymbolSubscriber
	heartbeat  time.Duration

	clients    map[string]*WSClient
	mu         sync.RWMutex
	register   chan *WSClient
	unregister chan *WSClient
	broadcast  chan []byte
	shutdown   chan struct{}
	done       chan struct{}
	upgrader   websocket.Upgrader
}

// NewBroadcastHub creates the hub and starts its run and heartbeat loops
func NewBroadcastHub(validate TokenValidator, subscriber SymbolSubscriber, heartbeat time.Duration) *BroadcastHub {
	hub := &BroadcastHub{
		validate:   validate,
		subscriber: subscriber,
		heartbeat:  heartbeat,
		clients:    make(map[string]*WSClient),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		broadcast:  make(chan []byte, WebSocketSendBuffer),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	go hub.run()
	go hub.heartbeatLoop()

	log.Println("Broadcast Hub initialized")
	return hub
}

// run is the hub loop: registration, removal and fan-out all pass through
// here so the registry never needs caller-side locking
func (h *BroadcastHub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.shutdown:
			h.mu.Lock()
			for _, client := range h.clients {
				client.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down"),
					time.Now().Add(time.Second))
				client.conn.Close()
				client.closeSend()
			}
			h.clients = make(map[string]*WSClient)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if prior, ok := h.clients[client.userID]; ok {
				// Last writer wins: a newer connection replaces the prior one
				prior.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "replaced by newer connection"),
					time.Now().Add(time.Second))
				prior.conn.Close()
				prior.closeSend()
			}
			h.clients[client.userID] = client
			clientCount := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client connected: %s. Total clients: %d", client.userID, clientCount)

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				client.closeSend()
			}
			clientCount := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected: %s. Total clients: %d", client.userID, clientCount)

		case payload := <-h.broadcast:
			h.mu.Lock()
			for userID, client := range h.clients {
				if !client.enqueue(payload) {
					// Buffer full: drop the client rather than block the hub
					delete(h.clients, userID)
					client.closeSend()
					client.conn.Close()
				}
			}
			h.mu.Unlock()
		}
	}
}

// heartbeatLoop evicts connections that missed a beat. A client whose last
// pong predates the previous tick is terminated at the next one.
func (h *BroadcastHub) heartbeatLoop() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.shutdown:
			return
		case <-ticker.C:
			now := time.Now()
			h.mu.RLock()
			stale := make([]*WSClient, 0)
			for _, client := range h.clients {
				lastPong := time.Unix(0, client.lastPong.Load())
				if now.Sub(lastPong) > h.heartbeat {
					stale = append(stale, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range stale {
				log.Printf("WebSocket client %s missed heartbeat, evicting", client.userID)
				client.conn.Close()
				select {
				case h.unregister <- client:
				case <-h.shutdown:
					return
				}
			}
		}
	}
}

// Shutdown stops the loops and closes every open connection cleanly
func (h *BroadcastHub) Shutdown() {
	close(h.shutdown)
	<-h.done
	log.Println("Broadcast Hub shutdown complete")
}

// authenticateRequest extracts and validates the bearer credential supplied
// as ?token= or an Authorization header
func (h *BroadcastHub) authenticateRequest(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		token = strings.TrimPrefix(header, "Bearer ")
		if token == header {
			token = ""
		}
	}
	if token == "" {
		return "", &models.AuthenticationError{Message: "missing credential"}
	}
	return h.validate(token)
}

// HandleWebSocket upgrades a connection, authenticates it and hands it to
// the hub. An invalid credential closes with 1008 before anything else is
// observable.
func (h *BroadcastHub) HandleWebSocket(c *gin.Context) {
	userID, authErr := h.authenticateRequest(c.Request)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	if authErr != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
			time.Now().Add(time.Second))
		conn.Close()
		log.Printf("WebSocket authentication failed: %v", authErr)
		return
	}

	client := &WSClient{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, WebSocketSendBuffer),
	}
	client.touchPong()

	h.register <- client

	go h.writePump(client)
	go h.readPump(client)

	h.sendDirect(client, WSMessage{
		Type: MsgConnected,
		Data: map[string]string{"user_id": userID},
		Time: time.Now().Format(time.RFC3339),
	})
}

// writePump writes queued messages and periodic protocol pings
func (h *BroadcastHub) writePump(client *WSClient) {
	ticker := time.NewTicker(h.heartbeat)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump dispatches inbound messages for one connection
func (h *BroadcastHub) readPump(client *WSClient) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.shutdown:
		}
		client.conn.Close()
	}()

	client.conn.SetReadLimit(WebSocketReadLimit)
	client.conn.SetPongHandler(func(string) error {
		client.touchPong()
		return nil
	})

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error for %s: %v", client.userID, err)
			}
			return
		}

		var inbound wsInbound
		if err := json.Unmarshal(payload, &inbound); err != nil {
			h.sendDirect(client, WSMessage{Type: MsgError, Data: map[string]string{"message": "malformed message"}})
			continue
		}

		switch inbound.Type {
		case MsgPing:
			client.touchPong()
			h.sendDirect(client, WSMessage{Type: MsgPong})

		case MsgSubscribe:
			symbol := NormalizeSymbol(inbound.Symbol)
			if symbol != "" && h.subscriber != nil {
				h.subscriber.Subscribe(symbol)
			}
			h.sendDirect(client, WSMessage{Type: MsgSubscribed, Data: ChannelPayload{Channel: inbound.Channel, Symbol: symbol}})

		case MsgUnsubscribe:
			symbol := NormalizeSymbol(inbound.Symbol)
			if symbol != "" && h.subscriber != nil {
				h.subscriber.Unsubscribe(symbol)
			}
			h.sendDirect(client, WSMessage{Type: MsgUnsubscribed, Data: ChannelPayload{Channel: inbound.Channel, Symbol: symbol}})

		default:
			h.sendDirect(client, WSMessage{Type: MsgError, Data: map[string]string{"message": "unknown message type"}})
		}
	}
}

// sendDirect queues a message for one client, dropping it if the client is
// gone or its buffer is full
func (h *BroadcastHub) sendDirect(client *WSClient, message WSMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}
	client.enqueue(payload)
}

// SendToOne pushes a message to a single identity. Fire and forget: an
// unknown or closed identity is a silent no-op.
func (h *BroadcastHub) SendToOne(userID string, message WSMessage) {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.sendDirect(client, message)
}

// SendToMany pushes a message to several identities
func (h *BroadcastHub) SendToMany(userIDs []string, message WSMessage) {
	for _, userID := range userIDs {
		h.SendToOne(userID, message)
	}
}

// BroadcastAll pushes a message to every open connection
func (h *BroadcastHub) BroadcastAll(message WSMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling broadcast message: %v", err)
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.shutdown:
	}
}

// ClientCount returns the number of registered connections
func (h *BroadcastHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsConnected reports whether an identity has an active registration
func (h *BroadcastHub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}
