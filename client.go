package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120 // input streams at up to 60Hz
)

// Client represents a WebSocket connection bound to a player identity
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         string // connection-scoped player identity
	roomCode   string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client with a fresh identity
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		id:         uuid.NewString(),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
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

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message.
// Prefixes with 0xFF marker byte so WritePump can distinguish from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgCreateRoom:
		c.handleCreateRoom(env.D)
	case MsgJoinRoom:
		c.handleJoinRoom(env.D)
	case MsgUpdateSettings:
		c.handleUpdateSettings(env.D)
	case MsgStartGame:
		c.handleStartGame()
	case MsgRestartGame:
		c.handleRestartGame()
	case MsgPlayerInput:
		c.handlePlayerInput(env.D)
	case MsgLeave:
		c.handleLeave()
	}
}

func (c *Client) handleCreateRoom(data json.RawMessage) {
	if c.roomCode != "" {
		return
	}
	var msg CreateRoomMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	room, err := c.hub.registry.CreateRoom(msg.Settings)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
		return
	}
	player, err := room.AddPlayer(c.id, msg.PlayerName)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
		return
	}
	c.roomCode = room.Code()
	room.SetClient(c.id, c)

	c.SendJSON(Envelope{T: MsgRoomCreated, Data: RoomCreatedMsg{
		RoomCode:   room.Code(),
		PlayerName: player.Name,
	}})
	room.BroadcastLobby()
}

func (c *Client) handleJoinRoom(data json.RawMessage) {
	if c.roomCode != "" {
		return
	}
	var msg JoinRoomMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	room, err := c.hub.registry.JoinRoom(msg.RoomCode)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
		return
	}
	player, err := room.AddPlayer(c.id, msg.PlayerName)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
		return
	}
	c.roomCode = room.Code()
	room.SetClient(c.id, c)

	c.SendJSON(Envelope{T: MsgRoomJoined, Data: RoomJoinedMsg{
		RoomCode:   room.Code(),
		PlayerName: player.Name,
	}})
	room.BroadcastLobby()
}

func (c *Client) handleUpdateSettings(data json.RawMessage) {
	room := c.currentRoom()
	if room == nil {
		return
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return
	}
	// unauthorized or out-of-phase requests are absorbed
	if err := room.UpdateSettings(c.id, settings); err != nil {
		log.Printf("updateSettings ignored for %s: %v", c.remoteAddr, err)
	}
}

func (c *Client) handleStartGame() {
	room := c.currentRoom()
	if room == nil {
		return
	}
	if err := room.Start(c.id); err != nil {
		log.Printf("startGame ignored for %s: %v", c.remoteAddr, err)
	}
}

func (c *Client) handleRestartGame() {
	room := c.currentRoom()
	if room == nil {
		return
	}
	if err := room.Restart(c.id); err != nil {
		log.Printf("restartGame ignored for %s: %v", c.remoteAddr, err)
	}
}

func (c *Client) handlePlayerInput(data json.RawMessage) {
	room := c.currentRoom()
	if room == nil {
		return
	}
	var input PlayerInput
	if err := json.Unmarshal(data, &input); err != nil {
		return
	}
	room.SetPlayerInput(c.id, input)
}

func (c *Client) handleLeave() {
	if c.roomCode != "" {
		c.hub.registry.RemoveConnection(c.id)
		c.roomCode = ""
	}
}

func (c *Client) currentRoom() *Room {
	if c.roomCode == "" {
		return nil
	}
	return c.hub.registry.Get(c.roomCode)
}
