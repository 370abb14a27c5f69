package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_code TEXT NOT NULL,
		map_type TEXT NOT NULL,
		duration INTEGER NOT NULL DEFAULT 0,
		elapsed REAL NOT NULL DEFAULT 0,
		winner TEXT NOT NULL DEFAULT '',
		players INTEGER NOT NULL DEFAULT 0,
		roster TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_matches_created ON matches(created_at);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// MatchResult describes one completed match
type MatchResult struct {
	RoomCode string
	MapType  string
	Duration int     // configured seconds
	Elapsed  float64 // actual seconds played
	Winner   string
	Players  int
	Roster   []string
}

// MatchRecord is a stored match row, as served by the history API
type MatchRecord struct {
	ID        int64     `json:"id"`
	RoomCode  string    `json:"roomCode"`
	MapType   string    `json:"mapType"`
	Duration  int       `json:"duration"`
	Elapsed   float64   `json:"elapsed"`
	Winner    string    `json:"winner"`
	Players   int       `json:"players"`
	Roster    []string  `json:"roster"`
	CreatedAt time.Time `json:"createdAt"`
}

// InsertMatch stores a completed match
func (db *DB) InsertMatch(m MatchResult) error {
	roster, _ := json.Marshal(m.Roster)
	_, err := db.conn.Exec(
		`INSERT INTO matches (room_code, map_type, duration, elapsed, winner, players, roster, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RoomCode, m.MapType, m.Duration, m.Elapsed, m.Winner, m.Players,
		string(roster), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// RecentMatches returns the most recent matches, newest first
func (db *DB) RecentMatches(limit int) ([]MatchRecord, error) {
	rows, err := db.conn.Query(
		`SELECT id, room_code, map_type, duration, elapsed, winner, players, roster, created_at
		 FROM matches ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]MatchRecord, 0, limit)
	for rows.Next() {
		var rec MatchRecord
		var roster, createdAt string
		if err := rows.Scan(&rec.ID, &rec.RoomCode, &rec.MapType, &rec.Duration,
			&rec.Elapsed, &rec.Winner, &rec.Players, &roster, &createdAt); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(roster), &rec.Roster)
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Recorder persists match results in the background so the tick loop
// never waits on the database
type Recorder struct {
	db      *DB
	results chan MatchResult
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewRecorder creates and starts the background writer. db may be nil,
// in which case Record is a no-op.
func NewRecorder(db *DB) *Recorder {
	r := &Recorder{
		db:      db,
		results: make(chan MatchResult, 64),
		stop:    make(chan struct{}),
	}
	r.wg.Add(1)
	go r.writer()
	return r
}

// Record enqueues a match result for async persistence (non-blocking)
func (r *Recorder) Record(m MatchResult) {
	select {
	case r.results <- m:
	default:
		// channel full, drop the record rather than block the game loop
	}
}

// Stop drains pending results and shuts down the writer
func (r *Recorder) Stop() {
	close(r.stop)
	r.wg.Wait()
}

// Recent returns the latest stored matches
func (r *Recorder) Recent(limit int) ([]MatchRecord, error) {
	if r.db == nil {
		return []MatchRecord{}, nil
	}
	return r.db.RecentMatches(limit)
}

func (r *Recorder) writer() {
	defer r.wg.Done()

	for {
		select {
		case m := <-r.results:
			r.flush(m)
		case <-r.stop:
			// Drain what is buffered, then exit. The channel stays open
			// so a Record racing with shutdown lands in the buffer
			// instead of panicking.
			for {
				select {
				case m := <-r.results:
					r.flush(m)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) flush(m MatchResult) {
	if r.db == nil {
		return
	}
	if err := r.db.InsertMatch(m); err != nil {
		log.Printf("history: insert error: %v", err)
	}
}
