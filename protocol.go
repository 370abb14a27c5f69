package main

import "encoding/json"

// Client -> Server message types
const (
	MsgCreateRoom     = "createRoom"
	MsgJoinRoom       = "joinRoom"
	MsgUpdateSettings = "updateSettings"
	MsgStartGame      = "startGame"
	MsgRestartGame    = "restartGame"
	MsgPlayerInput    = "playerInput"
	MsgLeave          = "leave"
)

// Server -> Client message types
const (
	MsgRoomCreated     = "roomCreated"
	MsgRoomJoined      = "roomJoined"
	MsgSettingsUpdated = "settingsUpdated"
	MsgGameStarted     = "gameStarted"
	MsgRoomReset       = "roomReset"
	MsgLobbyUpdate     = "lobbyUpdate"
	MsgGameState       = "gameStateUpdate" // msgpack binary frame
	MsgPlayerHit       = "playerHit"
	MsgMatchEnded      = "matchEnded"
	MsgError           = "error"
)

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; the payload stays raw until
// the type switch picks a concrete struct
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// Settings are the leader-configurable room options
type Settings struct {
	MapType  string `json:"mapType"`
	Duration int    `json:"duration"` // match length in seconds
}

// CreateRoomMsg is sent by a client to open a new room
type CreateRoomMsg struct {
	PlayerName string   `json:"playerName"`
	Settings   Settings `json:"settings"`
}

// JoinRoomMsg is sent by a client to join an existing lobby
type JoinRoomMsg struct {
	PlayerName string `json:"playerName"`
	RoomCode   string `json:"roomCode"`
}

// RoomCreatedMsg confirms room creation to the host
type RoomCreatedMsg struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

// RoomJoinedMsg confirms a successful join
type RoomJoinedMsg struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

// PlayerInput is the latest directional/dash intent reported by a client
type PlayerInput struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
	Dash  bool `json:"dash"`
}

// LobbyEntry is one row of a lobbyUpdate broadcast, in join order
type LobbyEntry struct {
	Name     string `json:"name"`
	IsLeader bool   `json:"isLeader"`
}

// GameStartedMsg is broadcast when the leader starts the match
type GameStartedMsg struct {
	MapType string `json:"mapType"`
}

// PlayerHitMsg marks a collision contact point, for client effects only
type PlayerHitMsg struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MatchEndedMsg is the terminal event for a match
type MatchEndedMsg struct {
	Winner string `json:"winner"`
}

// ErrorMsg sends an error to one client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// PlayerState is broadcast per player each tick
type PlayerState struct {
	ID           string  `json:"id" msgpack:"id"`
	Name         string  `json:"name" msgpack:"n"`
	X            float64 `json:"x" msgpack:"x"`
	Y            float64 `json:"y" msgpack:"y"`
	VX           float64 `json:"vx" msgpack:"vx"`
	VY           float64 `json:"vy" msgpack:"vy"`
	Alive        bool    `json:"alive" msgpack:"a"`
	DashCooldown int     `json:"dashCooldown" msgpack:"dc"`
	SpawnTimer   int     `json:"spawnTimer" msgpack:"st"`
}

// StateUpdate is the full per-tick snapshot, msgpack-encoded on the wire
type StateUpdate struct {
	Players     []PlayerState `json:"players" msgpack:"p"`
	ArenaRadius float64       `json:"arenaRadius" msgpack:"ar"`
	GameOver    bool          `json:"isGameOver" msgpack:"go"`
	Winner      string        `json:"winner,omitempty" msgpack:"w"`
	TimeLeft    int           `json:"timeLeft" msgpack:"tl"`
	Tick        uint64        `json:"tick" msgpack:"tick"`
}

// RoomInfo is used in the room list API
type RoomInfo struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
	Phase   string `json:"phase"`
}
