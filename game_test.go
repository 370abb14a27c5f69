package main

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu   sync.Mutex
	msgs []Envelope
	bins [][]byte
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg.(Envelope))
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bins = append(m.bins, data)
}

func (m *mockBroadcaster) countType(t string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, env := range m.msgs {
		if env.T == t {
			n++
		}
	}
	return n
}

func (m *mockBroadcaster) lastOfType(t string) (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if m.msgs[i].T == t {
			return m.msgs[i], true
		}
	}
	return Envelope{}, false
}

func (m *mockBroadcaster) lastState(t *testing.T) StateUpdate {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.bins) == 0 {
		t.Fatal("no state frames broadcast")
	}
	var state StateUpdate
	if err := msgpack.Unmarshal(m.bins[len(m.bins)-1], &state); err != nil {
		t.Fatalf("msgpack unmarshal: %v", err)
	}
	return state
}

// startedRoom builds a room with n members and begins a match without
// launching the ticker goroutine, so tests drive ticks via step()
func startedRoom(t *testing.T, settings Settings, n int) (*Room, []string, []*mockBroadcaster) {
	t.Helper()
	room := NewRoom("TESTR", settings, nil)
	ids := make([]string, n)
	mocks := make([]*mockBroadcaster, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("conn-%d", i)
		if _, err := room.AddPlayer(ids[i], fmt.Sprintf("P%d", i)); err != nil {
			t.Fatalf("add player: %v", err)
		}
		mocks[i] = &mockBroadcaster{}
		room.SetClient(ids[i], mocks[i])
	}
	room.mu.Lock()
	err := room.beginMatchLocked(ids[0])
	room.mu.Unlock()
	if err != nil {
		t.Fatalf("begin match: %v", err)
	}
	return room, ids, mocks
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestArenaShrinkReachesFloor(t *testing.T) {
	// lava_pit starts at 700; over 2s the arena loses exactly 5 per tick
	room, _, _ := startedRoom(t, Settings{MapType: "lava_pit", Duration: 2}, 2)

	for i := 0; i < 2*TickRate; i++ {
		if !room.step() {
			t.Fatalf("match ended early at tick %d", i)
		}
	}

	room.mu.Lock()
	radius, over := room.arenaRadius, room.gameOver
	room.mu.Unlock()
	if !almostEqual(radius, ArenaFloor) {
		t.Errorf("arenaRadius = %f, want %f", radius, ArenaFloor)
	}
	if over {
		t.Error("game should not be over while spawn-circle players are inside the floor radius")
	}
}

func TestIdleMatchEndsInDraw(t *testing.T) {
	room, _, mocks := startedRoom(t, Settings{MapType: "lava_pit", Duration: 2}, 2)

	ticks := 0
	for room.step() {
		ticks++
		if ticks > 3*TickRate {
			t.Fatal("match never terminated")
		}
	}

	room.mu.Lock()
	winner, phase := room.winner, room.phase
	room.mu.Unlock()
	if winner != DrawWinner {
		t.Errorf("winner = %q, want %q", winner, DrawWinner)
	}
	if phase != PhaseEnded {
		t.Errorf("phase = %v, want ended", phase)
	}
	// both idle players sit on the spawn circle and outlive the floor by one tick
	if ticks != 2*TickRate+1 {
		t.Errorf("match lasted %d ticks, want %d", ticks, 2*TickRate+1)
	}

	env, ok := mocks[1].lastOfType(MsgMatchEnded)
	if !ok {
		t.Fatal("no matchEnded broadcast")
	}
	if env.Data.(MatchEndedMsg).Winner != DrawWinner {
		t.Errorf("matchEnded winner = %v", env.Data)
	}
}

func TestSoloEliminationEndsMatch(t *testing.T) {
	room, ids, mocks := startedRoom(t, Settings{Duration: 60}, 1)

	room.mu.Lock()
	room.players[ids[0]].X = 5000
	room.mu.Unlock()

	if room.step() {
		t.Error("step should report termination")
	}

	room.mu.Lock()
	winner, over := room.winner, room.gameOver
	alive := room.players[ids[0]].Alive
	room.mu.Unlock()
	if alive {
		t.Error("player outside the arena should be eliminated")
	}
	if !over || winner != SoloEndMessage {
		t.Errorf("gameOver=%v winner=%q, want solo end message", over, winner)
	}
	if mocks[0].countType(MsgMatchEnded) != 1 {
		t.Error("expected exactly one matchEnded broadcast")
	}
}

func TestLastSurvivorWins(t *testing.T) {
	room, ids, mocks := startedRoom(t, Settings{Duration: 60}, 3)

	// eliminating one of three keeps the match running
	room.mu.Lock()
	room.players[ids[2]].X = 5000
	room.mu.Unlock()
	if !room.step() {
		t.Fatal("match should continue with two players alive")
	}

	room.mu.Lock()
	room.players[ids[1]].X = 5000
	survivor := room.players[ids[0]].Name
	room.mu.Unlock()
	if room.step() {
		t.Error("match should end with one player alive")
	}

	env, ok := mocks[0].lastOfType(MsgMatchEnded)
	if !ok {
		t.Fatal("no matchEnded broadcast")
	}
	if got := env.Data.(MatchEndedMsg).Winner; got != survivor {
		t.Errorf("winner = %q, want %q", got, survivor)
	}
}

func TestDashActivationAndCooldown(t *testing.T) {
	room, ids, _ := startedRoom(t, Settings{Duration: 60}, 1)
	room.SetPlayerInput(ids[0], PlayerInput{Up: true, Dash: true})

	room.step()
	room.mu.Lock()
	p := room.players[ids[0]]
	vy1, cd1 := p.VY, p.DashCooldown
	room.mu.Unlock()

	if !almostEqual(vy1, -DashAccel*Drag) {
		t.Errorf("dash tick VY = %f, want %f", vy1, -DashAccel*Drag)
	}
	if cd1 != DashCooldownTicks {
		t.Errorf("dash cooldown = %d, want %d", cd1, DashCooldownTicks)
	}

	// cooldown gates the next tick down to base acceleration
	room.step()
	room.mu.Lock()
	vy2, cd2 := p.VY, p.DashCooldown
	room.mu.Unlock()

	if !almostEqual(vy2, (vy1-BaseAccel)*Drag) {
		t.Errorf("post-dash VY = %f, want %f", vy2, (vy1-BaseAccel)*Drag)
	}
	if cd2 != DashCooldownTicks-1 {
		t.Errorf("cooldown after one tick = %d, want %d", cd2, DashCooldownTicks-1)
	}
}

func TestDragAndIntegration(t *testing.T) {
	room, ids, _ := startedRoom(t, Settings{Duration: 60}, 1)

	room.mu.Lock()
	p := room.players[ids[0]]
	p.X, p.Y = 0, 0
	p.VX = 10
	room.mu.Unlock()

	room.step()

	room.mu.Lock()
	vx, x := p.VX, p.X
	room.mu.Unlock()
	if !almostEqual(vx, 10*Drag) {
		t.Errorf("VX = %f, want %f", vx, 10*Drag)
	}
	if !almostEqual(x, 10*Drag) {
		t.Errorf("X = %f, want %f", x, 10*Drag)
	}
}

func TestCollisionResolvesFromBothSides(t *testing.T) {
	room, ids, mocks := startedRoom(t, Settings{Duration: 60}, 2)

	room.mu.Lock()
	a := room.players[ids[0]]
	b := room.players[ids[1]]
	a.X, a.Y, a.SpawnTimer = 0, 0, 0
	b.X, b.Y, b.SpawnTimer = 30, 0, 0
	room.mu.Unlock()

	room.step()

	// first pass: a pushes b (+5) and recoils (-2.5); b then moves to 34.7,
	// still inside hit range, so the pair resolves a second time from b's side
	room.mu.Lock()
	avx, bvx := a.VX, b.VX
	room.mu.Unlock()
	if !almostEqual(avx, -BaseForce*ReactiveFactor-BaseForce) {
		t.Errorf("a.VX = %f, want %f", avx, -BaseForce*ReactiveFactor-BaseForce)
	}
	if !almostEqual(bvx, BaseForce*Drag+BaseForce*ReactiveFactor) {
		t.Errorf("b.VX = %f, want %f", bvx, BaseForce*Drag+BaseForce*ReactiveFactor)
	}
	if hits := mocks[0].countType(MsgPlayerHit); hits != 2 {
		t.Errorf("playerHit events = %d, want 2 (one per ordered pair)", hits)
	}
}

func TestDashingImpulseIsStronger(t *testing.T) {
	room, ids, mocks := startedRoom(t, Settings{Duration: 60}, 2)
	room.SetPlayerInput(ids[0], PlayerInput{Right: true, Dash: true})

	room.mu.Lock()
	a := room.players[ids[0]]
	b := room.players[ids[1]]
	a.X, a.Y, a.SpawnTimer = 0, 0, 0
	b.X, b.Y, b.SpawnTimer = 30, 0, 0
	room.mu.Unlock()

	room.step()

	// attacker moves to 3.76 before contact; target takes the full 16 and
	// is flung out of range before its own pass, so only one hit fires
	room.mu.Lock()
	avx, bvx := a.VX, b.VX
	room.mu.Unlock()
	if !almostEqual(bvx, DashForce*Drag) {
		t.Errorf("target VX = %f, want %f", bvx, DashForce*Drag)
	}
	if !almostEqual(avx, DashAccel*Drag-DashForce*ReactiveFactor) {
		t.Errorf("attacker VX = %f, want %f", avx, DashAccel*Drag-DashForce*ReactiveFactor)
	}
	if hits := mocks[1].countType(MsgPlayerHit); hits != 1 {
		t.Errorf("playerHit events = %d, want 1", hits)
	}
}

func TestSpawnGraceBlocksCollisions(t *testing.T) {
	room, ids, mocks := startedRoom(t, Settings{Duration: 60}, 2)

	room.mu.Lock()
	a := room.players[ids[0]]
	b := room.players[ids[1]]
	a.X, a.Y = 0, 0
	b.X, b.Y = 10, 0
	room.mu.Unlock()

	room.step()

	room.mu.Lock()
	avx, bvx := a.VX, b.VX
	st := a.SpawnTimer
	room.mu.Unlock()
	if avx != 0 || bvx != 0 {
		t.Errorf("impulse applied during spawn grace: a.VX=%f b.VX=%f", avx, bvx)
	}
	if mocks[0].countType(MsgPlayerHit) != 0 {
		t.Error("playerHit fired during spawn grace")
	}
	if st != SpawnGraceTicks-1 {
		t.Errorf("spawn timer = %d, want %d", st, SpawnGraceTicks-1)
	}
}

func TestStateBroadcastEveryTick(t *testing.T) {
	room, _, mocks := startedRoom(t, Settings{MapType: "lava_pit", Duration: 10}, 2)

	for i := 0; i < 90; i++ {
		room.step()
	}

	mocks[0].mu.Lock()
	frames := len(mocks[0].bins)
	mocks[0].mu.Unlock()
	if frames != 90 {
		t.Fatalf("state frames = %d, want 90", frames)
	}

	state := mocks[0].lastState(t)
	if state.Tick != 90 {
		t.Errorf("tick = %d, want 90", state.Tick)
	}
	if len(state.Players) != 2 {
		t.Errorf("players in state = %d, want 2", len(state.Players))
	}
	if state.TimeLeft != 9 {
		t.Errorf("timeLeft = %d, want 9 (ceil of 8.5)", state.TimeLeft)
	}
	if state.GameOver {
		t.Error("game should not be over")
	}

	room.mu.Lock()
	radius := room.arenaRadius
	room.mu.Unlock()
	if !almostEqual(state.ArenaRadius, radius) {
		t.Errorf("broadcast radius %f != room radius %f", state.ArenaRadius, radius)
	}
}

func TestStepRefusesOutsideMatch(t *testing.T) {
	room, _, _ := startedRoom(t, Settings{Duration: 60}, 2)

	room.mu.Lock()
	room.phase = PhaseLobby
	room.mu.Unlock()
	if room.step() {
		t.Error("step should stop once the room left the playing phase")
	}

	room.mu.Lock()
	room.phase = PhasePlaying
	room.gameOver = true
	room.mu.Unlock()
	if room.step() {
		t.Error("step should stop once the game is over")
	}
}
