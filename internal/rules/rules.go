package rules

import (
	"github.com/notnil/chess"
)

// Outcome is the terminal state of a position.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCheckmate
	OutcomeStalemate
	OutcomeInsufficientMaterial
)

// Position wraps a chess game plus the UCI history of applied moves.
// The history is what makes Pop possible: notnil/chess has no undo, so
// taking a move back means replaying everything except the last ply.
type Position struct {
	game  *chess.Game
	moves []string
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	return &Position{game: chess.NewGame()}
}

// FromFEN builds a position from a FEN string with an empty move history.
func FromFEN(fen string) (*Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return &Position{game: chess.NewGame(opt)}, nil
}

// findMove maps a UCI string onto one of the legal moves of the current
// position. A string that does not parse simply matches nothing.
func (p *Position) findMove(uciMove string) *chess.Move {
	for _, m := range p.game.ValidMoves() {
		if m.String() == uciMove {
			return m
		}
	}
	return nil
}

// IsLegal reports whether the UCI string names a legal move. Malformed
// input is just an illegal move, never an error.
func (p *Position) IsLegal(uciMove string) bool {
	return p.findMove(uciMove) != nil
}

// Apply plays the move if it is legal and reports whether it did.
func (p *Position) Apply(uciMove string) bool {
	m := p.findMove(uciMove)
	if m == nil {
		return false
	}
	if err := p.game.Move(m); err != nil {
		return false
	}
	p.moves = append(p.moves, uciMove)
	return true
}

// Pop takes back the last ply by replaying the rest of the history onto a
// fresh board. Reports false when there is nothing to take back.
func (p *Position) Pop() bool {
	if len(p.moves) == 0 {
		return false
	}
	replay := p.moves[:len(p.moves)-1]
	game := chess.NewGame()
	for _, uciMove := range replay {
		var m *chess.Move
		for _, cand := range game.ValidMoves() {
			if cand.String() == uciMove {
				m = cand
				break
			}
		}
		if m == nil || game.Move(m) != nil {
			return false
		}
	}
	p.game = game
	p.moves = replay
	return true
}

// Terminal classifies the position. Fivefold repetition and the 75-move
// rule are folded into stalemate so those auto-draws still end the game.
func (p *Position) Terminal() Outcome {
	if p.game.Outcome() == chess.NoOutcome {
		return OutcomeNone
	}
	switch p.game.Method() {
	case chess.Checkmate:
		return OutcomeCheckmate
	case chess.InsufficientMaterial:
		return OutcomeInsufficientMaterial
	default:
		return OutcomeStalemate
	}
}

// MoveCount returns the number of plies played so far.
func (p *Position) MoveCount() int {
	return len(p.moves)
}

// LastMoveUCI returns the most recent ply, or "" on the initial position.
func (p *Position) LastMoveUCI() string {
	if len(p.moves) == 0 {
		return ""
	}
	return p.moves[len(p.moves)-1]
}

// FEN returns the current position in FEN notation.
func (p *Position) FEN() string {
	return p.game.Position().String()
}

// String renders the board as ASCII art for plain-text broadcasts.
func (p *Position) String() string {
	return p.game.Position().Board().Draw()
}
