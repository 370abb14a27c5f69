package main

import (
	"errors"
	"strings"
	"sync"
)

const maxRooms = 100

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomLimit    = errors.New("too many active rooms")
)

// Registry owns all rooms, keyed by code
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	history *Recorder
}

// NewRegistry creates an empty registry. history may be nil.
func NewRegistry(history *Recorder) *Registry {
	return &Registry{
		rooms:   make(map[string]*Room),
		history: history,
	}
}

// CreateRoom generates an unused code and creates a lobby room for it
func (reg *Registry) CreateRoom(settings Settings) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if len(reg.rooms) >= maxRooms {
		return nil, ErrRoomLimit
	}

	for {
		code := GenerateCode(roomCodeLen)
		if _, exists := reg.rooms[code]; exists {
			continue
		}
		room := NewRoom(code, settings, reg.history)
		reg.rooms[code] = room
		return room, nil
	}
}

// JoinRoom resolves a code to a joinable room. Codes are case-insensitive.
func (reg *Registry) JoinRoom(code string) (*Room, error) {
	room := reg.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if room.Phase() != PhaseLobby {
		return nil, ErrAlreadyStarted
	}
	return room, nil
}

// Get returns a room by code, or nil
func (reg *Registry) Get(code string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[strings.ToUpper(strings.TrimSpace(code))]
}

// RemoveConnection removes the identity from whichever room holds it (at
// most one), destroying the room if it empties out
func (reg *Registry) RemoveConnection(playerID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for code, room := range reg.rooms {
		room.mu.Lock()
		_, member := room.players[playerID]
		room.mu.Unlock()
		if !member {
			continue
		}
		if room.RemovePlayer(playerID) {
			room.Stop()
			delete(reg.rooms, code)
		}
		return
	}
}

// ListRooms returns a summary of every active room
func (reg *Registry) ListRooms() []RoomInfo {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	list := make([]RoomInfo, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		list = append(list, room.Info())
	}
	return list
}

// RoomCount returns the number of active rooms
func (reg *Registry) RoomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Shutdown stops every room's loop and clears the registry
func (reg *Registry) Shutdown() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for code, room := range reg.rooms {
		room.Stop()
		delete(reg.rooms, code)
	}
}
