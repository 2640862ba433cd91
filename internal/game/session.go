package game

import (
	"fmt"
	"log"
	"time"

	"github.com/hezhaoyun/ichess-server/internal/elo"
	"github.com/hezhaoyun/ichess-server/internal/player"
	"github.com/hezhaoyun/ichess-server/internal/rules"
	"github.com/hezhaoyun/ichess-server/internal/transport"
)

// Sender is the outbound half of the transport. Both calls skip bot sids.
type Sender interface {
	SendText(sids []string, text string)
	SendEvent(sids []string, event string, payload any)
}

// MovePicker supplies engine moves for bot seats.
type MovePicker interface {
	PickMove(fen string, skill int, limit time.Duration) (string, error)
}

// Registry is the session's view of the server's shared state. IsOnline
// and RemoveGame are called with the server lock already held; Exec runs
// a function under that lock from a worker goroutine.
type Registry interface {
	IsOnline(sid string) bool
	RemoveGame(gameID string)
	Exec(fn func())
}

// botReplyDelay paces bot responses to negotiation requests so they do
// not land before the client has drawn its own dialog.
const botReplyDelay = time.Second

// MovePayload carries a move in UCI notation.
type MovePayload struct {
	Move string `json:"move"`
}

type reasonPayload struct {
	Reason string `json:"reason"`
}

type timerPayload struct {
	Mine     int `json:"mine"`
	Opponent int `json:"opponent"`
}

type gameModePayload struct {
	Side        string         `json:"side"`
	WhitePlayer *player.Record `json:"white_player"`
	BlackPlayer *player.Record `json:"black_player"`
}

type requestPayload struct {
	Message string `json:"message"`
}

// Session is one live match. Every method runs under the server's
// serialising lock; worker goroutines re-enter through Registry.Exec.
type Session struct {
	ID        string
	players   [2]string // index 0 is white
	times     [2]float64
	increment float64
	position  *rules.Position
	current   int
	lastTick  time.Time

	terminated       bool
	drawProposer     string
	takebackProposer string
	botSID           string

	sender   Sender
	store    *player.Store
	picker   MovePicker
	registry Registry
}

// NewSession seats a pair for a timed game. The caller decides colours:
// pair[0] plays white. botSID is empty for human-vs-human games.
func NewSession(id string, pair [2]string, tc TimeControl, botSID string,
	sender Sender, store *player.Store, picker MovePicker, registry Registry) *Session {

	return &Session{
		ID:        id,
		players:   pair,
		times:     [2]float64{float64(tc.TotalSeconds), float64(tc.TotalSeconds)},
		increment: float64(tc.IncrementSeconds),
		position:  rules.NewPosition(),
		botSID:    botSID,
		sender:    sender,
		store:     store,
		picker:    picker,
		registry:  registry,
	}
}

// Start announces the game to both seats and opens white's turn. Called
// once, after the session has been registered.
func (s *Session) Start() {
	s.lastTick = time.Now()

	white := s.store.Resolve(s.players[0])
	black := s.store.Resolve(s.players[1])
	s.sender.SendEvent([]string{s.players[0]}, "game_mode",
		gameModePayload{Side: "white", WhitePlayer: white, BlackPlayer: black})
	s.sender.SendEvent([]string{s.players[1]}, "game_mode",
		gameModePayload{Side: "black", WhitePlayer: white, BlackPlayer: black})

	s.sendBoardState()

	if s.isBotTurn() {
		s.requestBotMove()
	} else {
		s.sender.SendEvent([]string{s.players[s.current]}, "go", struct{}{})
	}

	log.Printf("Waiting for player to make a move, game ID = %s", s.ID)
}

// Players returns both seats, white first.
func (s *Session) Players() []string {
	return []string{s.players[0], s.players[1]}
}

// Has reports whether sid is seated in this game.
func (s *Session) Has(sid string) bool {
	return sid == s.players[0] || sid == s.players[1]
}

// Terminated reports whether the game has reached a terminal outcome.
func (s *Session) Terminated() bool {
	return s.terminated
}

func (s *Session) opponentOf(sid string) string {
	if sid == s.players[0] {
		return s.players[1]
	}
	return s.players[0]
}

func (s *Session) indexOf(sid string) int {
	if sid == s.players[0] {
		return 0
	}
	return 1
}

func (s *Session) isBotTurn() bool {
	return s.botSID != "" && s.players[s.current] == s.botSID
}

// OnMove applies a move by sid. Anything invalid (finished game, wrong
// turn, missing or illegal move) earns the sender a text notice and
// leaves the game untouched.
func (s *Session) OnMove(p MovePayload, sid string) bool {
	if s.terminated || sid != s.players[s.current] || p.Move == "" || !s.position.Apply(p.Move) {
		s.sender.SendText([]string{sid}, fmt.Sprintf("Command error: %q, please re-enter.", p.Move))
		return false
	}

	// The mover already knows the move; echo it to the other seat only.
	s.sender.SendEvent([]string{s.opponentOf(sid)}, "move",
		MovePayload{Move: s.position.LastMoveUCI()})

	s.times[s.current] += s.increment
	s.afterMove()
	return true
}

func (s *Session) afterMove() {
	if s.handleDeparted() {
		return
	}

	switch s.position.Terminal() {
	case rules.OutcomeCheckmate:
		winner := s.players[s.current] // the side that just moved
		loser := s.opponentOf(winner)
		s.sender.SendEvent([]string{winner}, "win", reasonPayload{Reason: WinCheckmate})
		s.sender.SendEvent([]string{loser}, "lost", reasonPayload{Reason: LossCheckmated})
		s.store.ApplyRating(winner, loser, 1)
		s.terminate()
		return
	case rules.OutcomeStalemate:
		s.drawGame(DrawStalemate)
		return
	case rules.OutcomeInsufficientMaterial:
		s.drawGame(DrawInsufficientMaterial)
		return
	}

	// Charge the mover for their thinking time, then hand over the turn.
	now := time.Now()
	s.times[s.current] -= now.Sub(s.lastTick).Seconds()
	s.lastTick = now
	s.current = 1 - s.current

	s.sendBoardState()

	if s.isBotTurn() {
		s.requestBotMove()
	} else {
		s.sender.SendEvent([]string{s.players[s.current]}, "go", struct{}{})
	}
}

// handleDeparted ends the game if a seated human is no longer online.
// The transport's disconnect callback normally gets there first; this is
// the backstop for sessions dropped between events.
func (s *Session) handleDeparted() bool {
	for _, p := range s.players {
		if !transport.IsBot(p) && !s.registry.IsOnline(p) {
			s.declareDeparted(p)
			return true
		}
	}
	return false
}

func (s *Session) declareDeparted(sid string) {
	winner := s.opponentOf(sid)
	s.sender.SendEvent([]string{winner}, "win", reasonPayload{Reason: WinOpponentLeft})
	s.store.ApplyRating(winner, sid, 1)
	s.terminate()
}

// OnPeerDisconnect is invoked by the dispatcher when a seated player's
// transport closes.
func (s *Session) OnPeerDisconnect(sid string) {
	if s.terminated || !s.Has(sid) {
		return
	}
	log.Printf("Player in a chess game has disconnected: sid=%s game=%s", sid, s.ID)
	s.declareDeparted(sid)
}

// OnResign ends the game in the opponent's favour.
func (s *Session) OnResign(sid string) bool {
	if s.terminated || !s.Has(sid) {
		return false
	}
	winner := s.opponentOf(sid)
	s.sender.SendEvent([]string{winner}, "win", reasonPayload{Reason: WinOpponentResigned})
	s.sender.SendEvent([]string{sid}, "lost", reasonPayload{Reason: LossResigned})
	s.store.ApplyRating(winner, sid, 1)
	s.terminate()
	return true
}

// OnDrawProposal registers a draw offer. A second offer while one is
// pending is rejected. Bot opponents accept after a short delay.
func (s *Session) OnDrawProposal(sid string) bool {
	if s.terminated || !s.Has(sid) || s.drawProposer != "" {
		return false
	}
	s.drawProposer = sid

	opponent := s.opponentOf(sid)
	if s.botSID != "" && opponent == s.botSID {
		s.scheduleBotReply(func() { s.OnDrawResponse(s.botSID, true) })
		return true
	}

	s.sender.SendEvent([]string{opponent}, "draw_request",
		requestPayload{Message: "Opponent proposes a draw, do you accept?"})
	return true
}

// OnDrawResponse settles a pending draw offer. Only the proposer's
// opponent may answer.
func (s *Session) OnDrawResponse(sid string, accepted bool) bool {
	if s.terminated || s.drawProposer == "" || sid != s.opponentOf(s.drawProposer) {
		return false
	}

	if accepted {
		s.drawGame(DrawConsensus)
		return true
	}

	s.sender.SendEvent([]string{s.drawProposer}, "draw_declined", struct{}{})
	s.drawProposer = ""
	return true
}

// OnTakebackProposal registers a takeback request. Needs at least one
// ply on the board. Bot opponents accept after a short delay.
func (s *Session) OnTakebackProposal(sid string) bool {
	if s.terminated || !s.Has(sid) || s.takebackProposer != "" || s.position.MoveCount() < 1 {
		return false
	}
	s.takebackProposer = sid

	opponent := s.opponentOf(sid)
	if s.botSID != "" && opponent == s.botSID {
		s.scheduleBotReply(func() { s.OnTakebackResponse(s.botSID, true) })
		return true
	}

	s.sender.SendEvent([]string{opponent}, "takeback_request",
		requestPayload{Message: "Opponent requests a takeback, do you accept?"})
	return true
}

// OnTakebackResponse settles a pending takeback. An accepted takeback
// rewinds one full move: both players' plies come off, both clocks give
// back one increment, and the proposer is back on turn.
func (s *Session) OnTakebackResponse(sid string, accepted bool) bool {
	if s.terminated || s.takebackProposer == "" || sid != s.opponentOf(s.takebackProposer) {
		return false
	}
	proposer := s.takebackProposer
	s.takebackProposer = ""

	if !accepted {
		s.sender.SendEvent([]string{proposer}, "takeback_declined", struct{}{})
		return true
	}

	if s.position.MoveCount() < 2 {
		s.sender.SendEvent([]string{proposer}, "takeback_declined",
			reasonPayload{Reason: "Not enough moves to take back!"})
		return true
	}

	s.position.Pop()
	s.position.Pop()

	s.times[0] -= s.increment
	s.times[1] -= s.increment
	s.lastTick = time.Now()
	s.current = s.indexOf(proposer)

	s.sender.SendEvent(s.Players(), "takeback_success", struct{}{})
	s.sendBoardState()
	s.sender.SendEvent([]string{s.players[s.current]}, "go", struct{}{})
	return true
}

// UpdateClock charges elapsed wall time to the side on turn.
func (s *Session) UpdateClock(now time.Time) {
	s.times[s.current] -= now.Sub(s.lastTick).Seconds()
	s.lastTick = now
}

// TickClock advances the clocks and adjudicates flag-fall. Returns true
// when the game ended on time; otherwise both seats get a clock
// snapshot. Called by the shared ticker loop.
func (s *Session) TickClock(now time.Time) bool {
	if s.terminated {
		return true
	}

	s.UpdateClock(now)

	if s.times[0] < 0 || s.times[1] < 0 {
		loser := 0
		if s.times[1] < 0 {
			loser = 1
		}
		winner := 1 - loser
		s.sender.SendEvent([]string{s.players[loser]}, "lost", reasonPayload{Reason: LossOutOfTime})
		s.sender.SendEvent([]string{s.players[winner]}, "win", reasonPayload{Reason: WinOpponentOutOfTime})
		s.store.ApplyRating(s.players[winner], s.players[loser], 1)
		s.terminate()
		return true
	}

	for i, p := range s.players {
		s.sender.SendEvent([]string{p}, "timer",
			timerPayload{Mine: int(s.times[i]), Opponent: int(s.times[1-i])})
	}
	return false
}

// requestBotMove hands the engine query to a worker goroutine so the
// event path never blocks on the subprocess; the reply re-enters through
// the registry's lock.
func (s *Session) requestBotMove() {
	fen := s.position.FEN()
	skill := elo.LevelOf(s.store.Resolve(s.botSID).Elo)
	botSID := s.botSID

	go func() {
		move, err := s.picker.PickMove(fen, skill, time.Second)
		s.registry.Exec(func() {
			if s.terminated {
				return
			}
			if err != nil {
				log.Printf("Engine move failed for game %s: %v", s.ID, err)
				s.failInfra()
				return
			}
			s.OnMove(MovePayload{Move: move}, botSID)
		})
	}()
}

func (s *Session) scheduleBotReply(reply func()) {
	time.AfterFunc(botReplyDelay, func() {
		s.registry.Exec(func() {
			if !s.terminated {
				reply()
			}
		})
	})
}

// failInfra aborts a game the server can no longer host (engine died and
// no replacement could be spawned). Scored as a draw for both.
func (s *Session) failInfra() {
	s.drawGame(DrawInfraFailure)
}

func (s *Session) drawGame(reason string) {
	s.sender.SendEvent(s.Players(), "draw", reasonPayload{Reason: reason})
	s.store.ApplyRating(s.players[0], s.players[1], 0.5)
	s.terminate()
}

// terminate finalises the session: no further mutations, the game leaves
// the registry, and both humans get the lobby-return hint.
func (s *Session) terminate() {
	s.terminated = true
	s.drawProposer = ""
	s.takebackProposer = ""

	s.sender.SendEvent(s.Players(), "game_over", struct{}{})
	s.registry.RemoveGame(s.ID)

	s.sender.SendText(s.Players(), "Tap MATCH to match immediately.")
	s.sender.SendEvent(s.Players(), "waiting_match", struct{}{})

	log.Printf("The game has ended. ID = %s", s.ID)
}

func (s *Session) sendBoardState() {
	s.sender.SendText(s.Players(), "\n"+s.position.String())
}
