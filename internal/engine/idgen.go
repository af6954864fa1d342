package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator generates unique identifiers for events and simulation
// timelines. Implemented by ULIDGenerator and UUIDv7Generator (production)
// and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// ULIDGenerator generates time-sortable ULIDs.
//
// ULIDs embed a millisecond timestamp in the most significant bits, so ids
// assigned to auto-identified events sort by creation time. Useful when
// scanning an event table by id in logs and traces.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *rand.Rand
}

// NewULIDGenerator creates a generator seeded from the current time.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate returns a new ULID string.
// Thread-safe: the entropy source is guarded by a mutex.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// Used for simulation timeline ids, where a generated UUID keeps simulation
// names from ever colliding with caller-chosen timeline ids.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined ids for testing.
//
// This enables deterministic test execution and golden trace comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("id-1", "id-2")
//	gen.Generate() // "id-1"
//	gen.Generate() // "id-2"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics when all ids are consumed: fail-fast for test misconfiguration.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
