// Package random provides the seeded pseudo-random source shared by every
// randomized operation of a game session.
package random

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand/v2"
)

// streamSalt derives the second PCG word from the seed so a single uint64
// is enough to reproduce a session.
const streamSalt = 0x9e3779b97f4a7c15

// Source is a deterministic generator. Two sources built from the same seed
// produce identical draws for an identical call sequence.
type Source struct {
	seed uint64
	pcg  *mrand.PCG
	rng  *mrand.Rand
}

// State is a serializable snapshot of a Source.
type State struct {
	Seed      uint64 `json:"seed"`
	Generator []byte `json:"generator"`
}

// New creates a source seeded with seed.
func New(seed uint64) *Source {
	pcg := mrand.NewPCG(seed, seed^streamSalt)
	return &Source{
		seed: seed,
		pcg:  pcg,
		rng:  mrand.New(pcg),
	}
}

// NewSeed returns a seed read from the operating system's entropy source.
func NewSeed() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("read seed: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// Seed returns the seed the source was created (or last reset) with.
func (s *Source) Seed() uint64 {
	return s.seed
}

// Float64 returns a value in [0.0, 1.0).
func (s *Source) Float64() float64 {
	return s.rng.Float64()
}

// Intn returns a value in [0, n). It returns 0 when n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.IntN(n)
}

// Int returns a value in [min, max], inclusive on both ends.
func (s *Source) Int(min, max int) int {
	if max < min {
		min, max = max, min
	}
	return min + s.Intn(max-min+1)
}

// RollDie rolls a single die with the given number of sides (1..sides).
func (s *Source) RollDie(sides int) int {
	if sides <= 0 {
		return 0
	}
	return s.Intn(sides) + 1
}

// RollDice rolls count dice with the given number of sides.
func (s *Source) RollDice(count, sides int) []int {
	if count <= 0 {
		return nil
	}
	rolls := make([]int, count)
	for i := range rolls {
		rolls[i] = s.RollDie(sides)
	}
	return rolls
}

// Chance reports true with the given probability.
func (s *Source) Chance(probability float64) bool {
	return s.Float64() < probability
}

// WeightedIndex picks an index with probability proportional to its weight.
// It returns -1 when no weight is positive.
func (s *Source) WeightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}

	target := s.Float64() * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if target < w {
			return i
		}
		target -= w
	}
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return -1
}

// Pick returns a random element of items.
func Pick[T any](s *Source, items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[s.Intn(len(items))], true
}

// Shuffle returns a shuffled copy of items.
func Shuffle[T any](s *Source, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	s.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// State captures the generator position so it can be restored later.
func (s *Source) State() (State, error) {
	gen, err := s.pcg.MarshalBinary()
	if err != nil {
		return State{}, fmt.Errorf("marshal generator: %w", err)
	}
	return State{Seed: s.seed, Generator: gen}, nil
}

// Restore rewinds the source to a previously captured state. A state without
// generator bytes re-seeds from its seed.
func (s *Source) Restore(state State) error {
	if len(state.Generator) == 0 {
		s.reseed(state.Seed)
		return nil
	}

	pcg := mrand.NewPCG(0, 0)
	if err := pcg.UnmarshalBinary(state.Generator); err != nil {
		return fmt.Errorf("unmarshal generator: %w", err)
	}
	s.seed = state.Seed
	s.pcg = pcg
	s.rng = mrand.New(pcg)
	return nil
}

// Reset re-seeds the source from its original seed.
func (s *Source) Reset() {
	s.reseed(s.seed)
}

// Clone returns an independent source positioned at the same point.
func (s *Source) Clone() *Source {
	clone := New(s.seed)
	state, err := s.State()
	if err == nil {
		_ = clone.Restore(state)
	}
	return clone
}

func (s *Source) reseed(seed uint64) {
	s.seed = seed
	s.pcg = mrand.NewPCG(seed, seed^streamSalt)
	s.rng = mrand.New(s.pcg)
}
