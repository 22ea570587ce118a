package testutil

import (
	"fmt"
	"sync"
	"time"
)

// Epoch is the instant every test clock starts at.
var Epoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock hands out Epoch-based times, moving forward by step after each
// reading. A zero step freezes it. Safe for concurrent use.
type StubClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// FixedClock returns a clock that always reads Epoch.
func FixedClock() *StubClock {
	return &StubClock{now: Epoch}
}

// TickingClock returns a clock that starts at Epoch and advances by step
// on every call to Now, so successive writes get distinct timestamps.
func TickingClock(step time.Duration) *StubClock {
	return &StubClock{now: Epoch, step: step}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// StubIDGenerator returns sequential IDs: "id-1", "id-2", etc.
type StubIDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter int
}

func NewStubIDGenerator() *StubIDGenerator {
	return NewPrefixedIDGenerator("id")
}

// NewPrefixedIDGenerator returns "<prefix>-1", "<prefix>-2", etc. Give each
// generator sharing a database its own prefix.
func NewPrefixedIDGenerator(prefix string) *StubIDGenerator {
	return &StubIDGenerator{prefix: prefix}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}
