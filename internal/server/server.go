package server

import (
	"log"
	"sync"
	"time"

	"github.com/hezhaoyun/ichess-server/internal/game"
	"github.com/hezhaoyun/ichess-server/internal/player"
)

// Options tunes the background loops.
type Options struct {
	BotWait     time.Duration // how long a player waits before a bot steps in
	MatchPeriod time.Duration // matchmaking scan interval
	TickPeriod  time.Duration // clock tick interval
}

func (o *Options) applyDefaults() {
	if o.BotWait <= 0 {
		o.BotWait = 15 * time.Second
	}
	if o.MatchPeriod <= 0 {
		o.MatchPeriod = 5 * time.Second
	}
	if o.TickPeriod <= 0 {
		o.TickPeriod = time.Second
	}
}

type waitingEntry struct {
	sid         string
	joinedAt    time.Time
	timeControl int
}

// Server owns the process-wide registries (online sessions, the waiting
// queue and active games) and serialises every mutation, from client
// events to matchmaking scans and clock ticks, behind one lock,
// reproducing single-threaded event-loop semantics.
type Server struct {
	store  *player.Store
	sender game.Sender
	picker game.MovePicker
	opts   Options

	mu      sync.Mutex
	online  map[string]bool
	waiting []waitingEntry
	games   map[string]*game.Session

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewServer(store *player.Store, sender game.Sender, picker game.MovePicker, opts Options) *Server {
	opts.applyDefaults()
	return &Server{
		store:  store,
		sender: sender,
		picker: picker,
		opts:   opts,
		online: make(map[string]bool),
		games:  make(map[string]*game.Session),
		stopCh: make(chan struct{}),
	}
}

// Start launches the matchmaking and clock loops.
func (s *Server) Start() {
	s.wg.Add(2)
	go s.matchLoop()
	go s.tickLoop()
	log.Println("Matchmaker and clock ticker started")
}

// Stop breaks both loops out of their sleeps and waits for them.
func (s *Server) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	log.Println("Matchmaker and clock ticker stopped")
}

// IsOnline implements game.Registry. Caller holds the server lock.
func (s *Server) IsOnline(sid string) bool {
	return s.online[sid]
}

// RemoveGame implements game.Registry. Caller holds the server lock.
func (s *Server) RemoveGame(gameID string) {
	delete(s.games, gameID)
}

// Exec implements game.Registry: runs fn under the server lock. Used by
// worker goroutines (engine moves, delayed bot replies) to re-enter the
// serialised world.
func (s *Server) Exec(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Stats returns the current online and waiting counts.
func (s *Server) Stats() (online, waiting int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.online), len(s.waiting)
}

// findGame locates the active game seating sid, if any. Lock held.
func (s *Server) findGame(sid string) *game.Session {
	for _, g := range s.games {
		if g.Has(sid) {
			return g
		}
	}
	return nil
}

func (s *Server) inWaiting(sid string) bool {
	for _, e := range s.waiting {
		if e.sid == sid {
			return true
		}
	}
	return false
}

func (s *Server) removeWaiting(sid string) {
	for i, e := range s.waiting {
		if e.sid == sid {
			s.waiting = append(s.waiting[:i], s.waiting[i+1:]...)
			return
		}
	}
}
