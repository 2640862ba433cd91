package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAndLegality(t *testing.T) {
	p := NewPosition()

	assert.True(t, p.IsLegal("e2e4"))
	assert.False(t, p.IsLegal("e2e5"))
	assert.False(t, p.IsLegal("zzzz"))
	assert.False(t, p.IsLegal(""))

	assert.True(t, p.Apply("e2e4"))
	assert.Equal(t, 1, p.MoveCount())
	assert.Equal(t, "e2e4", p.LastMoveUCI())

	// White already moved; another white move must be rejected.
	assert.False(t, p.Apply("d2d4"))
	assert.Equal(t, 1, p.MoveCount())

	assert.True(t, p.Apply("e7e5"))
	assert.Equal(t, 2, p.MoveCount())
	assert.Equal(t, "e7e5", p.LastMoveUCI())
}

func TestPopRestoresPosition(t *testing.T) {
	p := NewPosition()
	require.True(t, p.Apply("e2e4"))
	fenAfterOne := p.FEN()
	require.True(t, p.Apply("e7e5"))

	assert.True(t, p.Pop())
	assert.Equal(t, 1, p.MoveCount())
	assert.Equal(t, fenAfterOne, p.FEN())
	assert.Equal(t, "e2e4", p.LastMoveUCI())

	// The popped ply is replayable again.
	assert.True(t, p.Apply("e7e5"))
}

func TestPopOnInitialPosition(t *testing.T) {
	p := NewPosition()
	assert.False(t, p.Pop())
	assert.Equal(t, 0, p.MoveCount())
	assert.Equal(t, "", p.LastMoveUCI())
}

func TestTerminalCheckmate(t *testing.T) {
	// Fool's mate.
	p := NewPosition()
	for _, m := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		require.True(t, p.Apply(m), "move %s", m)
	}
	assert.Equal(t, OutcomeCheckmate, p.Terminal())
}

func TestTerminalStalemate(t *testing.T) {
	p, err := FromFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeStalemate, p.Terminal())
}

func TestTerminalInsufficientMaterial(t *testing.T) {
	p, err := FromFEN("8/8/4k3/8/8/3K4/8/8 w - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInsufficientMaterial, p.Terminal())
}

func TestTerminalOngoing(t *testing.T) {
	p := NewPosition()
	assert.Equal(t, OutcomeNone, p.Terminal())
	p.Apply("e2e4")
	assert.Equal(t, OutcomeNone, p.Terminal())
}

func TestFromFENRejectsGarbage(t *testing.T) {
	_, err := FromFEN("not a position")
	assert.Error(t, err)
}
