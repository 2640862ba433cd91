package server

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hezhaoyun/ichess-server/internal/game"
)

type joinPayload struct {
	PID         string `json:"pid"`
	Name        string `json:"name"`
	TimeControl *int   `json:"time_control,omitempty"`
}

type matchPayload struct {
	TimeControl int `json:"time_control"`
}

type responsePayload struct {
	Accepted bool `json:"accepted"`
}

// OnConnect implements transport.Handler.
func (s *Server) OnConnect(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("New connection made: %s", sid)
	s.online[sid] = true

	s.welcome(sid)

	waiting := make([]string, 0, len(s.waiting))
	for _, e := range s.waiting {
		waiting = append(waiting, e.sid)
	}
	s.sender.SendText(waiting, "A new player has connected, waiting to be matched!")
}

// welcome sends the on-login message block. Lock held.
func (s *Server) welcome(sid string) {
	to := []string{sid}
	s.sender.SendText(to, "Welcome to Chessroad!")
	s.sender.SendText(to, fmt.Sprintf("Server time: %s", time.Now().Format("15:04")))
	s.sender.SendText(to, fmt.Sprintf("Players online: %d", len(s.online)))
	s.sender.SendText(to, fmt.Sprintf("Waiting for match: %d", len(s.waiting)))
}

// OnDisconnect implements transport.Handler. Disconnection is the only
// abort signal a client has: any game seating the sid collapses to a
// peer-disconnect loss.
func (s *Server) OnDisconnect(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.online, sid)
	s.removeWaiting(sid)

	// Collect first: OnPeerDisconnect deregisters the game.
	var affected []*game.Session
	for _, g := range s.games {
		if g.Has(sid) {
			affected = append(affected, g)
		}
	}
	for _, g := range affected {
		g.OnPeerDisconnect(sid)
	}

	// Unbind last so the forfeit rating update still sees the identity
	// the departed player joined under.
	s.store.Unbind(sid)

	log.Println("Connection lost and handled by the server")
}

// OnEvent implements transport.Handler: routes one inbound client event.
func (s *Server) OnEvent(sid string, event string, data json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event {
	case "join":
		s.handleJoin(sid, data)

	case "match":
		var p matchPayload
		if len(data) > 0 {
			if err := json.Unmarshal(data, &p); err != nil {
				p.TimeControl = game.DefaultTimeControlIndex
			}
		}
		s.handleMatch(sid, p.TimeControl)

	case "move":
		g := s.findGame(sid)
		if g == nil {
			log.Printf("%s is not in a game.", sid)
			return
		}
		var p game.MovePayload
		if err := json.Unmarshal(data, &p); err != nil {
			s.sender.SendText([]string{sid}, fmt.Sprintf("Command error: %s, please re-enter.", data))
			return
		}
		if !g.OnMove(p, sid) {
			log.Printf("%s sent an invalid move.", sid)
		}

	case "propose_draw":
		if g := s.findGame(sid); g != nil {
			if !g.OnDrawProposal(sid) {
				log.Printf("%s draw proposal failed", sid)
			}
		}

	case "draw_response":
		if g := s.findGame(sid); g != nil {
			var p responsePayload
			json.Unmarshal(data, &p)
			if !g.OnDrawResponse(sid, p.Accepted) {
				log.Printf("%s draw response failed", sid)
			}
		}

	case "propose_takeback":
		if g := s.findGame(sid); g != nil {
			if !g.OnTakebackProposal(sid) {
				log.Printf("%s takeback request failed", sid)
			}
		}

	case "takeback_response":
		if g := s.findGame(sid); g != nil {
			var p responsePayload
			json.Unmarshal(data, &p)
			if !g.OnTakebackResponse(sid, p.Accepted) {
				log.Printf("%s takeback response failed", sid)
			}
		}

	case "resign":
		g := s.findGame(sid)
		if g == nil {
			log.Printf("%s is not in a game.", sid)
			return
		}
		g.OnResign(sid)

	case "message":
		log.Printf("%s sent a message: %s", sid, data)

	default:
		log.Printf("%s sent an unknown event: %s", sid, event)
	}
}

func (s *Server) handleJoin(sid string, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PID == "" || p.Name == "" {
		s.sender.SendText([]string{sid}, "Login failed, please check your client version!")
		return
	}

	log.Printf("%s logged in as pid=%s name=%s", sid, p.PID, p.Name)
	s.store.Bind(sid, p.PID, p.Name)

	// A join doubles as an immediate match request.
	tc := game.DefaultTimeControlIndex
	if p.TimeControl != nil {
		tc = *p.TimeControl
	}
	s.handleMatch(sid, tc)
}

// handleMatch puts a session into the waiting queue. Playing sessions
// and duplicates are no-ops. Lock held.
func (s *Server) handleMatch(sid string, timeControl int) {
	log.Printf("%s wants to play.", sid)

	if s.findGame(sid) != nil {
		log.Printf("%s is already in a game.", sid)
		return
	}
	if s.inWaiting(sid) {
		return
	}

	s.waiting = append(s.waiting, waitingEntry{
		sid:         sid,
		joinedAt:    time.Now(),
		timeControl: timeControl,
	})
	s.sender.SendText([]string{sid}, "Please wait to be matched with another player..")
}
