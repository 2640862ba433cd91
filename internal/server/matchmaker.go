package server

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/hezhaoyun/ichess-server/internal/elo"
	"github.com/hezhaoyun/ichess-server/internal/game"
	"github.com/hezhaoyun/ichess-server/internal/transport"
)

const (
	// Skill-band widening: start at one level of tolerance and widen one
	// level per five seconds of waiting, up to the cap.
	initialSkillTolerance   = 1
	toleranceWidenPeriodSec = 5
	maxSkillTolerance       = 4

	// Synthetic opponents get a rating within this band of the player's.
	botEloSpread = 100
)

// botNames is the pool of display names for synthetic opponents.
var botNames = [8]string{
	"Magnus", "Garry", "Bobby", "Judit",
	"Mikhail", "Fabiano", "Hikaru", "Wei Yi",
}

func (s *Server) matchLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.MatchPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.matchPass(time.Now())
			s.mu.Unlock()
		}
	}
}

// matchPass scans the waiting queue in insertion order, pairing players
// whose skill levels fall within a tolerance that widens with waiting
// time. Players waiting past the bot threshold get a synthetic opponent.
// Lock held.
func (s *Server) matchPass(now time.Time) {
	slated := make(map[string]bool)

	for i := range s.waiting {
		e := s.waiting[i]
		if slated[e.sid] {
			continue
		}

		rec := s.store.Resolve(e.sid)
		level := elo.LevelOf(rec.Elo)
		waited := now.Sub(e.joinedAt)

		tolerance := initialSkillTolerance + int(waited.Seconds())/toleranceWidenPeriodSec
		if tolerance > maxSkillTolerance {
			tolerance = maxSkillTolerance
		}

		paired := false
		for j := range s.waiting {
			t := s.waiting[j]
			if t.sid == e.sid || slated[t.sid] || t.timeControl != e.timeControl {
				continue
			}
			other := elo.LevelOf(s.store.Resolve(t.sid).Elo)
			if diff := level - other; diff <= tolerance && -diff <= tolerance {
				log.Printf("Matchmaking two players: %s (level %d) and %s (level %d)",
					e.sid, level, t.sid, other)
				slated[e.sid] = true
				slated[t.sid] = true
				s.sender.SendText([]string{e.sid, t.sid}, "Match found.. connecting")
				s.createGame([]string{e.sid, t.sid}, e.timeControl, "")
				paired = true
				break
			}
		}

		if !paired && waited > s.opts.BotWait {
			s.matchWithBot(e, rec.Elo, now)
			slated[e.sid] = true
		}
	}

	if len(slated) > 0 {
		kept := s.waiting[:0]
		for _, e := range s.waiting {
			if !slated[e.sid] {
				kept = append(kept, e)
			}
		}
		s.waiting = kept
	}
}

// matchWithBot synthesises an opponent for a player nobody matched.
// The bot gets a session id no transport will ever deliver to, a name
// from the fixed pool and a rating close to the player's own.
func (s *Server) matchWithBot(e waitingEntry, playerElo int, now time.Time) {
	botSID := fmt.Sprintf("%s%d", transport.BotPrefix, now.UnixNano())
	name := botNames[rand.Intn(len(botNames))]
	botElo := playerElo - botEloSpread + rand.Intn(2*botEloSpread+1)
	s.store.CreateSynthetic(botSID, name, botElo)

	log.Printf("Matching %s with bot %s (%s, elo %d)", e.sid, botSID, name, botElo)
	s.sender.SendText([]string{e.sid}, "Match found.. connecting")
	s.createGame([]string{e.sid, botSID}, e.timeControl, botSID)
}

// createGame seats a pair with randomised colours and registers the
// session before its opening announcements go out. Lock held.
func (s *Server) createGame(pair []string, timeControl int, botSID string) {
	rand.Shuffle(len(pair), func(i, j int) {
		pair[i], pair[j] = pair[j], pair[i]
	})

	id := uuid.NewString()
	sess := game.NewSession(id, [2]string{pair[0], pair[1]}, game.TimeControlAt(timeControl),
		botSID, s.sender, s.store, s.picker, s)
	s.games[id] = sess
	sess.Start()

	log.Printf("Hosted a game. ID = %s", id)
}
