package engine

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
	"golang.org/x/sys/cpu"
)

// Bundled engine binaries, selected by host platform.
const (
	binaryLinuxAVX2    = "./stockfish/linux-avx2"
	binaryLinuxPOPCNT  = "./stockfish/linux-popcnt"
	binaryAppleSilicon = "./stockfish/apple-silicon"
)

// DefaultCapacity is the number of idle engine handles kept warm.
const DefaultCapacity = 5

// BinaryPath picks the engine binary for this host. STOCKFISH_PATH
// overrides the bundled binaries.
func BinaryPath() (string, error) {
	if path := os.Getenv("STOCKFISH_PATH"); path != "" {
		return path, nil
	}
	return chooseBinary(runtime.GOOS, cpu.X86.HasAVX2)
}

func chooseBinary(goos string, hasAVX2 bool) (string, error) {
	switch goos {
	case "darwin":
		return binaryAppleSilicon, nil
	case "linux":
		if hasAVX2 {
			return binaryLinuxAVX2, nil
		}
		return binaryLinuxPOPCNT, nil
	default:
		return "", fmt.Errorf("no engine binary for %s", goos)
	}
}

// Handle is one UCI engine process checked out of the pool.
type Handle struct {
	eng *uci.Engine
}

// Pool keeps a bounded set of ready engine processes. Spawning is
// expensive, so released handles are kept idle up to capacity and only
// disposed beyond that.
type Pool struct {
	mu       sync.Mutex
	path     string
	capacity int
	idle     []*Handle
	closed   bool
}

func NewPool(path string, capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{path: path, capacity: capacity}
}

// Acquire returns an engine configured for the given skill level,
// reusing an idle handle or spawning a new process.
func (p *Pool) Acquire(skill int) (*Handle, error) {
	p.mu.Lock()
	var h *Handle
	if n := len(p.idle); n > 0 {
		h = p.idle[n-1]
		p.idle = p.idle[:n-1]
	}
	p.mu.Unlock()

	if h == nil {
		var err error
		h, err = p.spawn()
		if err != nil {
			return nil, err
		}
	}

	err := h.eng.Run(uci.CmdSetOption{Name: "Skill Level", Value: strconv.Itoa(skill)})
	if err != nil {
		h.eng.Close()
		return nil, fmt.Errorf("failed to set skill level: %w", err)
	}
	return h, nil
}

func (p *Pool) spawn() (*Handle, error) {
	eng, err := uci.New(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to start engine %s: %w", p.path, err)
	}
	if err := eng.Run(uci.CmdUCI, uci.CmdIsReady, uci.CmdUCINewGame); err != nil {
		eng.Close()
		return nil, fmt.Errorf("engine handshake failed: %w", err)
	}
	return &Handle{eng: eng}, nil
}

// Release returns a handle to the pool, terminating the process when the
// pool is already at capacity.
func (p *Pool) Release(h *Handle) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || len(p.idle) >= p.capacity {
		h.eng.Close()
		return
	}
	p.idle = append(p.idle, h)
}

// Discard terminates a handle whose process is no longer trusted.
func (p *Pool) Discard(h *Handle) {
	if h != nil {
		h.eng.Close()
	}
}

// Play asks the engine for a move on the given FEN within the time
// limit, returning the move in UCI notation.
func (h *Handle) Play(fen string, limit time.Duration) (string, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return "", fmt.Errorf("bad position: %w", err)
	}
	game := chess.NewGame(opt)

	err = h.eng.Run(
		uci.CmdPosition{Position: game.Position()},
		uci.CmdGo{MoveTime: limit},
	)
	if err != nil {
		return "", fmt.Errorf("engine search failed: %w", err)
	}

	best := h.eng.SearchResults().BestMove
	if best == nil {
		return "", fmt.Errorf("engine returned no move")
	}
	return best.String(), nil
}

// PickMove checks out an engine at the given skill, requests one move and
// returns the handle. Failed handles are disposed instead of pooled.
func (p *Pool) PickMove(fen string, skill int, limit time.Duration) (string, error) {
	h, err := p.Acquire(skill)
	if err != nil {
		return "", err
	}
	move, err := h.Play(fen, limit)
	if err != nil {
		p.Discard(h)
		return "", err
	}
	p.Release(h)
	return move, nil
}

// Close terminates every idle engine. In-flight handles are disposed as
// they are released.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for _, h := range p.idle {
		h.eng.Close()
	}
	p.idle = nil
	log.Println("Engine pool closed")
}
