package main

import (
	"errors"
	"math"
	"sync"
	"time"
)

const (
	maxPlayersPerRoom = 16
	maxNameLen        = 16
)

// RoomPhase represents the lifecycle of a room
type RoomPhase int

const (
	PhaseLobby   RoomPhase = 0
	PhasePlaying RoomPhase = 1
	PhaseEnded   RoomPhase = 2
)

func (ph RoomPhase) String() string {
	switch ph {
	case PhasePlaying:
		return "playing"
	case PhaseEnded:
		return "ended"
	default:
		return "lobby"
	}
}

var (
	ErrNotLeader      = errors.New("not the room leader")
	ErrAlreadyStarted = errors.New("game already started")
	ErrRoomFull       = errors.New("room is full")
)

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// Room holds the lobby configuration, membership and live game state for
// one room. All fields are guarded by mu; the tick loop and connection
// handlers serialize through it, so input writes land on tick boundaries.
type Room struct {
	mu       sync.Mutex
	code     string
	leaderID string
	phase    RoomPhase
	mapType  string
	duration int // configured match length, seconds

	players map[string]*Player
	order   []string // join order, also the tick iteration order
	clients map[string]Broadcaster

	// live simulation state
	tick          uint64
	timeLeft      float64
	arenaRadius   float64
	shrinkPerTick float64
	gameOver      bool
	winner        string
	startedAt     time.Time

	running bool
	stopc   chan struct{}

	history *Recorder
}

// NewRoom creates a room in the lobby phase. The arena radius is primed to
// the configured map's starting value so the lobby preview reflects it.
func NewRoom(code string, settings Settings, history *Recorder) *Room {
	settings = normalizeSettings(settings)
	return &Room{
		code:        code,
		phase:       PhaseLobby,
		mapType:     settings.MapType,
		duration:    settings.Duration,
		arenaRadius: mapConfigFor(settings.MapType).StartRadius,
		players:     make(map[string]*Player),
		clients:     make(map[string]Broadcaster),
		history:     history,
	}
}

// Code returns the room code
func (r *Room) Code() string {
	return r.code
}

// Phase returns the current lifecycle phase
func (r *Room) Phase() RoomPhase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// PlayerCount returns the number of members
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// LeaderID returns the identity currently holding host privileges
func (r *Room) LeaderID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaderID
}

// AddPlayer adds a member while the room is in the lobby. The first member
// becomes the leader. Returns the player with its uniquified display name.
func (r *Room) AddPlayer(id, name string) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseLobby {
		return nil, ErrAlreadyStarted
	}
	if len(r.players) >= maxPlayersPerRoom {
		return nil, ErrRoomFull
	}

	if name == "" {
		name = "Player"
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}

	p := NewPlayer(id, UniqueName(name))
	r.players[id] = p
	r.order = append(r.order, id)
	if r.leaderID == "" {
		r.leaderID = id
	}
	return p, nil
}

// SetClient associates a broadcaster with a member
func (r *Room) SetClient(playerID string, client Broadcaster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[playerID]; ok {
		r.clients[playerID] = client
	}
}

// RemovePlayer removes a member, transferring leadership to the earliest
// remaining joiner if the leader left. Returns true when the room is empty
// and should be destroyed by its registry.
func (r *Room) RemovePlayer(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[id]; !ok {
		return len(r.players) == 0
	}
	delete(r.players, id)
	delete(r.clients, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if len(r.players) == 0 {
		r.stopLoopLocked()
		return true
	}
	if r.leaderID == id {
		r.leaderID = r.order[0]
	}
	r.broadcastLobbyLocked()
	return false
}

// UpdateSettings changes the map and duration. Leader-only, lobby-only.
func (r *Room) UpdateSettings(requesterID string, settings Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if requesterID != r.leaderID {
		return ErrNotLeader
	}
	if r.phase != PhaseLobby {
		return ErrAlreadyStarted
	}

	settings = normalizeSettings(settings)
	r.mapType = settings.MapType
	r.duration = settings.Duration
	// lobby preview follows the new map immediately
	r.arenaRadius = mapConfigFor(settings.MapType).StartRadius

	r.broadcastJSONLocked(Envelope{T: MsgSettingsUpdated, Data: settings})
	return nil
}

// Start transitions Lobby -> Playing and launches the tick loop
func (r *Room) Start(requesterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.beginMatchLocked(requesterID); err != nil {
		return err
	}

	r.stopc = make(chan struct{})
	r.running = true
	go r.runLoop(r.stopc)
	return nil
}

// beginMatchLocked resets the simulation state for a fresh match.
// Split from Start so tests can drive ticks deterministically.
func (r *Room) beginMatchLocked(requesterID string) error {
	if requesterID != r.leaderID {
		return ErrNotLeader
	}
	if r.phase != PhaseLobby {
		return ErrAlreadyStarted
	}

	cfg := mapConfigFor(r.mapType)
	r.phase = PhasePlaying
	r.gameOver = false
	r.winner = ""
	r.tick = 0
	r.timeLeft = float64(r.duration)
	r.arenaRadius = cfg.StartRadius
	// sized so the arena reaches the floor exactly at nominal match end
	r.shrinkPerTick = (cfg.StartRadius - ArenaFloor) / (float64(r.duration) * TickRate)
	r.startedAt = time.Now()

	// spawn evenly on a small circle to avoid immediate overlap
	n := len(r.order)
	for i, id := range r.order {
		angle := float64(i) / float64(n) * 2 * math.Pi
		r.players[id].ResetForSpawn(angle)
	}

	r.broadcastJSONLocked(Envelope{T: MsgGameStarted, Data: GameStartedMsg{MapType: r.mapType}})
	return nil
}

// Restart returns the room to the lobby, stopping any active loop.
// A restart of a room already in the lobby is a no-op.
func (r *Room) Restart(requesterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if requesterID != r.leaderID {
		return ErrNotLeader
	}
	if r.phase == PhaseLobby {
		return nil
	}

	r.stopLoopLocked()
	r.phase = PhaseLobby
	r.gameOver = false
	r.winner = ""
	r.arenaRadius = mapConfigFor(r.mapType).StartRadius

	r.broadcastJSONLocked(Envelope{T: MsgRoomReset})
	r.broadcastLobbyLocked()
	return nil
}

// SetPlayerInput stores the latest input snapshot verbatim; no-op for
// identities that are not members
func (r *Room) SetPlayerInput(id string, input PlayerInput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[id]; ok {
		p.Input = input
	}
}

// Stop cancels the tick loop; safe to call multiple times
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLoopLocked()
}

func (r *Room) stopLoopLocked() {
	if r.running {
		r.running = false
		close(r.stopc)
	}
}

// BroadcastLobby sends the member list to everyone in the room
func (r *Room) BroadcastLobby() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLobbyLocked()
}

func (r *Room) broadcastLobbyLocked() {
	entries := make([]LobbyEntry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, LobbyEntry{
			Name:     r.players[id].Name,
			IsLeader: id == r.leaderID,
		})
	}
	r.broadcastJSONLocked(Envelope{T: MsgLobbyUpdate, Data: entries})
}

func (r *Room) broadcastJSONLocked(msg Envelope) {
	for _, client := range r.clients {
		client.SendJSON(msg)
	}
}

func (r *Room) broadcastBinaryLocked(data []byte) {
	for _, client := range r.clients {
		client.SendBinary(data)
	}
}

// Info returns a summary for the room list API
func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{
		Code:    r.code,
		Players: len(r.players),
		Phase:   r.phase.String(),
	}
}
