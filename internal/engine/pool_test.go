package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseBinary(t *testing.T) {
	cases := []struct {
		goos    string
		hasAVX2 bool
		want    string
	}{
		{"darwin", false, binaryAppleSilicon},
		{"darwin", true, binaryAppleSilicon},
		{"linux", true, binaryLinuxAVX2},
		{"linux", false, binaryLinuxPOPCNT},
	}
	for _, c := range cases {
		got, err := chooseBinary(c.goos, c.hasAVX2)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%s avx2=%v", c.goos, c.hasAVX2)
	}

	_, err := chooseBinary("windows", true)
	assert.Error(t, err)
}

func TestBinaryPathOverride(t *testing.T) {
	t.Setenv("STOCKFISH_PATH", "/usr/local/bin/stockfish")
	path, err := BinaryPath()
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/stockfish", path)
}

func TestNewPoolCapacityDefault(t *testing.T) {
	p := NewPool("stockfish", 0)
	assert.Equal(t, DefaultCapacity, p.capacity)

	p = NewPool("stockfish", 3)
	assert.Equal(t, 3, p.capacity)
}

func TestReleaseNilIsNoop(t *testing.T) {
	p := NewPool("stockfish", 1)
	p.Release(nil)
	p.Discard(nil)
	assert.Empty(t, p.idle)
}
