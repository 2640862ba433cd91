package elo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalcEqualRatings(t *testing.T) {
	// Against an equal opponent the expectation is 0.5, so a win moves
	// the rating by exactly K/2.
	assert.Equal(t, 1515, Calc(1500, 1500, 1))
	assert.Equal(t, 1485, Calc(1500, 1500, 0))
	assert.Equal(t, 1500, Calc(1500, 1500, 0.5))
}

func TestCalcZeroSum(t *testing.T) {
	// Computed from the same pre-game ratings, the two sides of a game
	// must cancel out.
	cases := []struct {
		a, b  int
		score float64
	}{
		{1500, 1500, 1},
		{1200, 1800, 1},
		{1800, 1200, 1},
		{1350, 1420, 0.5},
		{2000, 1000, 0},
	}
	for _, c := range cases {
		deltaA := Calc(c.a, c.b, c.score) - c.a
		deltaB := Calc(c.b, c.a, 1-c.score) - c.b
		assert.Equal(t, 0, deltaA+deltaB, "a=%d b=%d score=%v", c.a, c.b, c.score)
	}
}

func TestCalcUnderdog(t *testing.T) {
	// Beating a much stronger opponent pays out close to the full K;
	// losing to them costs almost nothing.
	win := Calc(1200, 1800, 1) - 1200
	loss := Calc(1200, 1800, 0) - 1200
	assert.Greater(t, win, KFactor/2)
	assert.GreaterOrEqual(t, loss, -3)
	assert.LessOrEqual(t, loss, 0)
}

func TestLevelOf(t *testing.T) {
	assert.Equal(t, MinLevel, LevelOf(0))
	assert.Equal(t, MinLevel, LevelOf(1000))
	assert.Equal(t, MinLevel, LevelOf(1100))
	assert.Equal(t, 2, LevelOf(1200))
	assert.Equal(t, 5, LevelOf(1500))
	assert.Equal(t, 8, LevelOf(1800))
	assert.Equal(t, MaxLevel, LevelOf(3000))
	assert.Equal(t, MaxLevel, LevelOf(9999))
}

func TestLevelOfMonotone(t *testing.T) {
	prev := LevelOf(0)
	for rating := 100; rating <= 4000; rating += 100 {
		level := LevelOf(rating)
		assert.GreaterOrEqual(t, level, prev, "rating=%d", rating)
		assert.GreaterOrEqual(t, level, MinLevel)
		assert.LessOrEqual(t, level, MaxLevel)
		prev = level
	}
}
