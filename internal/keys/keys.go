package keys

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/imagine/internal/config"
)

// Clock returns the current time
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// NewClock returns the wall clock
func NewClock() Clock {
	return realClock{}
}

// Generator produces object keys of the form <epoch-millis>_<index>[...].png
type Generator struct {
	clock  Clock
	unique bool

	mu     sync.Mutex
	lastMs int64
	seq    atomic.Uint64
}

// NewGenerator creates a key generator for the given KEY_FORMAT. The legacy format
// repeats keys across invocations that share a millisecond.
func NewGenerator(format string, clock Clock) (*Generator, error) {
	if clock == nil {
		clock = NewClock()
	}
	switch format {
	case config.KeyFormatUnique, "":
		return &Generator{clock: clock, unique: true}, nil
	case config.KeyFormatLegacy:
		return &Generator{clock: clock}, nil
	default:
		return nil, fmt.Errorf("unsupported key format: %s", format)
	}
}

// Next returns the key for the 1-based iteration index
func (g *Generator) Next(index int) string {
	ms := g.millis()
	if !g.unique {
		return fmt.Sprintf("%d_%d.png", ms, index)
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d_%d_%d%s.png", ms, index, g.seq.Add(1), suffix)
}

// millis returns the clock in epoch milliseconds. In unique mode it never moves backwards.
func (g *Generator) millis() int64 {
	ms := g.clock.Now().UnixMilli()
	if !g.unique {
		return ms
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if ms < g.lastMs {
		ms = g.lastMs
	}
	g.lastMs = ms
	return ms
}
