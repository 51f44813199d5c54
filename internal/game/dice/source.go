package dice

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

// randSource implements Source over a PCG generator guarded by a mutex.
// The generator is not suitable for anything security sensitive.
type randSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandSource returns a deterministic Source seeded with seed.
//
// Postcondition: two sources built from the same seed yield the same sequence.
func NewRandSource(seed uint64) Source {
	return &randSource{rng: rand.New(rand.NewSource(seed))}
}

// NewSource returns a Source seeded from the wall clock.
func NewSource() Source {
	return NewRandSource(uint64(time.Now().UnixNano()))
}

// Intn returns a pseudo-random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" otherwise.
func (s *randSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
