package main

import "math"

// Player represents one participant inside a room
type Player struct {
	ID           string
	Name         string
	X, Y         float64
	VX, VY       float64
	Alive        bool
	DashCooldown int // ticks until next dash
	SpawnTimer   int // remaining invulnerability ticks
	Input        PlayerInput
}

// NewPlayer creates a player at the arena center, as in the lobby
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:    id,
		Name:  name,
		Alive: true,
	}
}

// ResetForSpawn places the player on the spawn circle at the given angle
// and arms the spawn grace period
func (p *Player) ResetForSpawn(angle float64) {
	p.X = math.Cos(angle) * SpawnCircleRadius
	p.Y = math.Sin(angle) * SpawnCircleRadius
	p.VX = 0
	p.VY = 0
	p.Alive = true
	p.DashCooldown = 0
	p.SpawnTimer = SpawnGraceTicks
}

// DistFromCenter returns the player's distance from the arena center
func (p *Player) DistFromCenter() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y)
}

// ToState converts to protocol state
func (p *Player) ToState() PlayerState {
	return PlayerState{
		ID:           p.ID,
		Name:         p.Name,
		X:            p.X,
		Y:            p.Y,
		VX:           p.VX,
		VY:           p.VY,
		Alive:        p.Alive,
		DashCooldown: p.DashCooldown,
		SpawnTimer:   p.SpawnTimer,
	}
}
