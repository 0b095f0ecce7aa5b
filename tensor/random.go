package tensor

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

// Source yields uniform samples in [0, 1).
type Source interface {
	Float64() float64
}

// lockedSource is safe for concurrent use; every op sampling from the
// package default goes through it.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

var defaultSource = &lockedSource{
	r: rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
}

// DefaultSource returns the shared, time-seeded source.
func DefaultSource() Source {
	return defaultSource
}

// Seed reseeds the shared source.
func Seed(seed int64) {
	defaultSource.mu.Lock()
	defaultSource.r.Seed(uint64(seed))
	defaultSource.mu.Unlock()
}

// NewSource returns a reproducible source. It is not safe for concurrent use.
func NewSource(seed int64) Source {
	return rand.New(rand.NewSource(uint64(seed)))
}

func Randn(shape ...int) *Tensor {
	out := Zeros(shape...)
	defaultSource.mu.Lock()
	for i := range out.data {
		out.data[i] = defaultSource.r.NormFloat64()
	}
	defaultSource.mu.Unlock()
	return out
}

// draw calls fn with n consecutive samples from src, holding the shared lock
// once for the whole run when src is the default source.
func draw(src Source, n int, fn func(i int, u float64)) {
	if src == nil {
		src = defaultSource
	}
	if ls, ok := src.(*lockedSource); ok {
		ls.mu.Lock()
		defer ls.mu.Unlock()
		for i := 0; i < n; i++ {
			fn(i, ls.r.Float64())
		}
		return
	}
	for i := 0; i < n; i++ {
		fn(i, src.Float64())
	}
}
