package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULIDGenerator_UniqueAndSortable(t *testing.T) {
	g := NewULIDGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := g.Generate()
		require.Len(t, id, 26, "ULIDs are 26 characters")
		assert.False(t, seen[id], "ids must be unique")
		seen[id] = true
	}
}

func TestULIDGenerator_Concurrent(t *testing.T) {
	g := NewULIDGenerator()

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := g.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 8*50)
}

func TestUUIDv7Generator_Format(t *testing.T) {
	g := UUIDv7Generator{}
	id := g.Generate()
	assert.Len(t, id, 36, "hyphenated UUID is 36 characters")
	assert.NotEqual(t, id, g.Generate())
}

func TestFixedGenerator_ReturnsInOrder(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() }, "exhausting the generator is a test misconfiguration")
}
