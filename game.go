package main

import (
	"log"
	"math"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate     = 60 // physics ticks per second
	TickDuration = time.Second / TickRate

	BaseAccel         = 0.7
	DashAccel         = 4.0
	Drag              = 0.94
	DashCooldownTicks = 90  // 1.5s
	SpawnGraceTicks   = 180 // 3s of post-spawn invulnerability
	HitDistance       = 40.0
	DashForce         = 16.0
	BaseForce         = 5.0
	ReactiveFactor    = 0.5
	SpawnCircleRadius = 100.0
	ArenaFloor        = 100.0

	SoloEndMessage = "Game Over (Solo)"
	DrawWinner     = "Draw"
)

// runLoop drives one room's fixed-tick simulation until the match ends,
// the room restarts, or the room is destroyed
func (r *Room) runLoop(stopc chan struct{}) {
	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-stopc:
			return
		case <-ticker.C:
			if !r.step() {
				return
			}
		}
	}
}

// step advances the simulation by one tick. Returns false once the loop
// should stop. The collision pass visits ordered pairs: each contact is
// resolved from both sides and emits a hit event from both sides, and a
// player eliminated early in the tick is skipped by later checks. That is
// the inherited arena behavior; do not fold it into unordered pairs.
func (r *Room) step() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhasePlaying || r.gameOver {
		return false
	}

	r.tick++
	r.timeLeft -= 1.0 / TickRate
	r.arenaRadius -= r.shrinkPerTick

	alive := make([]*Player, 0, len(r.players))
	for _, id := range r.order {
		p := r.players[id]
		if !p.Alive {
			continue
		}

		if p.DashCooldown > 0 {
			p.DashCooldown--
		}
		if p.SpawnTimer > 0 {
			p.SpawnTimer--
		}

		dashing := p.Input.Dash && p.DashCooldown == 0
		if dashing {
			p.DashCooldown = DashCooldownTicks
		}

		accel := BaseAccel
		if dashing {
			accel = DashAccel
		}
		if p.Input.Up {
			p.VY -= accel
		}
		if p.Input.Down {
			p.VY += accel
		}
		if p.Input.Left {
			p.VX -= accel
		}
		if p.Input.Right {
			p.VX += accel
		}

		p.VX *= Drag
		p.VY *= Drag
		p.X += p.VX
		p.Y += p.VY

		// collisions from this player's perspective, spawn grace gates both sides
		for _, id2 := range r.order {
			if id2 == id {
				continue
			}
			q := r.players[id2]
			if !q.Alive || p.SpawnTimer > 0 || q.SpawnTimer > 0 {
				continue
			}

			dx := q.X - p.X
			dy := q.Y - p.Y
			if Distance(p.X, p.Y, q.X, q.Y) < HitDistance {
				angle := math.Atan2(dy, dx)
				force := BaseForce
				if dashing {
					force = DashForce
				}
				q.VX += math.Cos(angle) * force
				q.VY += math.Sin(angle) * force
				p.VX -= math.Cos(angle) * force * ReactiveFactor
				p.VY -= math.Sin(angle) * force * ReactiveFactor
				r.broadcastJSONLocked(Envelope{T: MsgPlayerHit, Data: PlayerHitMsg{
					X: (p.X + q.X) / 2,
					Y: (p.Y + q.Y) / 2,
				}})
			}
		}

		if p.DistFromCenter() > r.arenaRadius {
			p.Alive = false
		} else {
			alive = append(alive, p)
		}
	}

	ended := r.evaluateWinLocked(alive)
	r.broadcastStateLocked()
	if ended {
		r.stopLoopLocked()
		return false
	}
	return true
}

// evaluateWinLocked checks the termination condition against the current
// roster and, when the match is over, finalizes the room and emits the
// terminal event
func (r *Room) evaluateWinLocked(alive []*Player) bool {
	total := len(r.players)
	if total == 0 {
		return false
	}

	switch {
	case total > 1 && len(alive) <= 1:
		r.winner = DrawWinner
		if len(alive) == 1 {
			r.winner = alive[0].Name
		}
	case total == 1 && len(alive) == 0:
		r.winner = SoloEndMessage
	default:
		return false
	}

	r.gameOver = true
	r.phase = PhaseEnded
	r.broadcastJSONLocked(Envelope{T: MsgMatchEnded, Data: MatchEndedMsg{Winner: r.winner}})
	r.recordMatchLocked()
	return true
}

func (r *Room) recordMatchLocked() {
	if r.history == nil {
		return
	}
	roster := make([]string, 0, len(r.order))
	for _, id := range r.order {
		roster = append(roster, r.players[id].Name)
	}
	r.history.Record(MatchResult{
		RoomCode: r.code,
		MapType:  r.mapType,
		Duration: r.duration,
		Elapsed:  time.Since(r.startedAt).Seconds(),
		Winner:   r.winner,
		Players:  len(r.order),
		Roster:   roster,
	})
}

// broadcastStateLocked sends the full snapshot to every connection in the
// room as a msgpack binary frame
func (r *Room) broadcastStateLocked() {
	state := StateUpdate{
		Players:     make([]PlayerState, 0, len(r.players)),
		ArenaRadius: r.arenaRadius,
		GameOver:    r.gameOver,
		Winner:      r.winner,
		TimeLeft:    int(math.Ceil(Clamp(r.timeLeft, 0, float64(r.duration)))),
		Tick:        r.tick,
	}
	for _, id := range r.order {
		state.Players = append(state.Players, r.players[id].ToState())
	}

	data, err := msgpack.Marshal(state)
	if err != nil {
		log.Printf("state marshal error: %v", err)
		return
	}
	r.broadcastBinaryLocked(data)
}
