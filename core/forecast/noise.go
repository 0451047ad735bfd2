package forecast

import (
	"math/rand/v2"
	"sync"
	"time"
)

// NoiseSource yields uniform values in [0, 1)
type NoiseSource interface {
	Float64() float64
}

// lockedSource makes a rand.Rand safe for concurrent requests
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// NewSource returns a goroutine-safe PCG source. Seed 0 seeds from the clock.
func NewSource(seed uint64) NoiseSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// FixedSource always returns the same value
type FixedSource float64

// Float64 implements NoiseSource
func (f FixedSource) Float64() float64 { return float64(f) }
