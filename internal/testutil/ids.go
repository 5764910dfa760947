package testutil

import (
	"fmt"
	"sync"
)

// FixedGenerator returns predetermined import ids for testing.
//
// This enables deterministic test execution and golden snapshot comparison.
// Once the listed ids are used up it continues with "import-N", counting
// from the number of ids given, so long scenarios never panic.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("import-a", "import-b")
//	gen.Generate() // "import-a"
//	gen.Generate() // "import-b"
//	gen.Generate() // "import-3"
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next id.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idx++
	if g.idx <= len(g.ids) {
		return g.ids[g.idx-1]
	}
	return fmt.Sprintf("import-%d", g.idx)
}
