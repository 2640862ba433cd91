package elo

import (
	"math"
)

const (
	// KFactor is the fixed K used for every rated game.
	KFactor = 30

	// DefaultRating is assigned to players seen for the first time.
	DefaultRating = 1500

	// Level buckets derived from Elo, also used as engine skill settings.
	MinLevel = 1
	MaxLevel = 20
)

// Calc returns the player's new rating against an opponent for a given
// result (1 win, 0.5 draw, 0 loss). Both sides of a game must be computed
// from the pre-game ratings: the rule is only zero-sum then.
func Calc(playerRating, opponentRating int, result float64) int {
	expected := expectedScore(playerRating, opponentRating)
	return int(math.Round(float64(playerRating) + KFactor*(result-expected)))
}

// expectedScore is the standard Elo expectation:
// E = 1 / (1 + 10^((opponent - player) / 400))
func expectedScore(playerRating, opponentRating int) float64 {
	exponent := float64(opponentRating-playerRating) / 400.0
	return 1.0 / (1.0 + math.Pow(10, exponent))
}

// LevelOf buckets a rating into the [1, 20] skill range used by
// matchmaking and by the engine's Skill Level option.
func LevelOf(rating int) int {
	level := (rating - 1000) / 100
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}
