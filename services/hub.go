package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub fans room events out to connected websocket clients. It is an
// observer of the engine: every state change happens through RoomService and
// the hub only mirrors the outcome to the roster.
type Hub struct {
	clients     map[*Client]bool
	register    chan *Client
	unregister  chan *Client
	mutex       sync.RWMutex
	roomService *RoomService
}

type Client struct {
	hub      *Hub
	id       string
	socket   *websocket.Conn
	send     chan []byte
	closed   bool // guarded by hub.mutex; set once when send is closed
	roomKey  string
	userID   uint
	username string
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewHub(roomService *RoomService) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		roomService: roomService,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client %s connected to room %s (user %d: %s)", client.id, client.roomKey, client.userID, client.username)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				h.dropClientLocked(client)
				log.Printf("Client %s disconnected from room %s (user %d: %s)", client.id, client.roomKey, client.userID, client.username)
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastToRoom sends a typed event to every client connected to the room.
func (h *Hub) BroadcastToRoom(roomKey string, messageType string, payload interface{}) {
	message := Message{Type: messageType, Payload: payload}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling %s message for room %s: %v", messageType, roomKey, err)
		return
	}

	h.mutex.Lock()
	for client := range h.clients {
		if client.roomKey != roomKey {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.dropClientLocked(client)
		}
	}
	h.mutex.Unlock()
}

// send queues data for one client. The hub mutex serializes it against the
// closes in Run and BroadcastToRoom, so a send from the read pump can never
// land on a channel the hub just closed.
func (h *Hub) send(client *Client, data []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if client.closed {
		return
	}
	select {
	case client.send <- data:
	default:
		h.dropClientLocked(client)
	}
}

// dropClientLocked closes the client's send channel exactly once and removes
// it from the roster. Callers hold h.mutex.
func (h *Hub) dropClientLocked(client *Client) {
	if !client.closed {
		client.closed = true
		close(client.send)
	}
	delete(h.clients, client)
}

// SendRoomStateSync pushes the current room projection to a single client,
// used when a client connects or asks to resynchronize.
func (h *Hub) SendRoomStateSync(client *Client) {
	room, err := h.roomService.CachedRoomState(client.roomKey)
	if err != nil {
		log.Printf("Error loading room state for client %s (room %s): %v", client.id, client.roomKey, err)
		return
	}

	message := Message{Type: "room_state_sync", Payload: room}
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling room state sync for room %s: %v", client.roomKey, err)
		return
	}

	h.send(client, data)
}

func (h *Hub) ConnectedUsers(roomKey string) []uint {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var userIDs []uint
	for client := range h.clients {
		if client.roomKey == roomKey {
			userIDs = append(userIDs, client.userID)
		}
	}
	return userIDs
}

func (h *Hub) IsUserConnected(roomKey string, userID uint) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if client.roomKey == roomKey && client.userID == userID {
			return true
		}
	}
	return false
}

func (h *Hub) RegisterClient(conn *websocket.Conn, roomKey string, userID uint, username string) *Client {
	client := &Client{
		hub:      h,
		id:       generateClientID(),
		socket:   conn,
		send:     make(chan []byte, 256),
		roomKey:  roomKey,
		userID:   userID,
		username: username,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message from user %d: %v", c.userID, err)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer c.socket.Close()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		response := Message{Type: "pong", Payload: "pong"}
		data, _ := json.Marshal(response)
		c.hub.send(c, data)

	case "request_room_state":
		c.hub.SendRoomStateSync(c)

	default:
		log.Printf("Unknown message type %q from user %d (%s) in room %s", msg.Type, c.userID, c.username, c.roomKey)
	}
}

func generateClientID() string {
	return fmt.Sprintf("client_%d", time.Now().UnixNano())
}
