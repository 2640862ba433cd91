package player

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/hezhaoyun/ichess-server/internal/elo"
)

// Record is the persisted player profile, keyed by pid.
type Record struct {
	PID  string `json:"pid" bson:"pid"`
	Name string `json:"name" bson:"name"`
	Elo  int    `json:"elo" bson:"elo"`
}

// Repository is the persistence adapter for player records. FindByPID
// returns (nil, nil) when the pid is unknown.
type Repository interface {
	FindByPID(ctx context.Context, pid string) (*Record, error)
	Upsert(ctx context.Context, rec *Record) error
	DeleteByPID(ctx context.Context, pid string) error
}

type registration struct {
	pid  string
	name string
}

// Store resolves session ids to player records. It keeps an in-memory
// cache keyed by sid and writes through to the repository. Persistence
// failures are logged and the cache stays authoritative for the session.
type Store struct {
	repo Repository

	mu       sync.Mutex
	sessions map[string]registration
	cache    map[string]*Record
}

func NewStore(repo Repository) *Store {
	return &Store{
		repo:     repo,
		sessions: make(map[string]registration),
		cache:    make(map[string]*Record),
	}
}

// Bind records the pid and display name a client announced on join.
func (s *Store) Bind(sid, pid, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sid] = registration{pid: pid, name: name}
	delete(s.cache, sid) // force a re-read under the new identity
}

// Unbind drops the session registration and its cache entry.
func (s *Store) Unbind(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	delete(s.cache, sid)
}

// Resolve returns the player record behind a session id, reading through
// the repository on a cache miss and creating a fresh record at the
// default rating for unknown pids. A sid that never joined falls back to
// using the sid itself as pid and name.
func (s *Store) Resolve(sid string) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(sid)
}

func (s *Store) resolveLocked(sid string) *Record {
	if rec, ok := s.cache[sid]; ok {
		return rec
	}

	pid, name := sid, sid
	if reg, ok := s.sessions[sid]; ok {
		pid, name = reg.pid, reg.name
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rec, err := s.repo.FindByPID(ctx, pid)
	if err != nil {
		log.Printf("Player lookup failed for pid=%s: %v", pid, err)
	}
	if rec == nil {
		rec = &Record{PID: pid, Name: name, Elo: elo.DefaultRating}
	} else if name != pid && rec.Name != name {
		rec.Name = name
	}
	s.upsertLocked(rec)

	s.cache[sid] = rec
	return rec
}

// CreateSynthetic installs a record for a server-made opponent (a bot
// session) and persists it so rating updates have something to write to.
func (s *Store) CreateSynthetic(sid, name string, rating int) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &Record{PID: sid, Name: name, Elo: rating}
	s.sessions[sid] = registration{pid: sid, name: name}
	s.cache[sid] = rec
	s.upsertLocked(rec)
	return rec
}

// ApplyRating updates both sides of a finished game. score is the
// winner's result (1 for a win, 0.5 for a draw). Both new ratings are
// computed from the pre-game values before either is assigned.
func (s *Store) ApplyRating(winnerSID, loserSID string, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	winner := s.resolveLocked(winnerSID)
	loser := s.resolveLocked(loserSID)

	newWinner := elo.Calc(winner.Elo, loser.Elo, score)
	newLoser := elo.Calc(loser.Elo, winner.Elo, 1-score)
	winner.Elo = newWinner
	loser.Elo = newLoser

	s.upsertLocked(winner)
	s.upsertLocked(loser)
}

func (s *Store) upsertLocked(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.repo.Upsert(ctx, rec); err != nil {
		log.Printf("Player upsert failed for pid=%s: %v", rec.PID, err)
	}
}
