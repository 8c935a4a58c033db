// Package generator implements seeded document synthesis from a
// model.Model (spec §4.7): every draw comes from a single deterministic
// pseudo-random stream so that identical (model, seed) pairs reproduce
// identical documents.
package generator

import (
	"hash/fnv"
	"math/rand/v2"
)

// Source wraps a math/rand/v2 generator. The spec's open question on
// PRNG choice is resolved in SPEC_FULL.md: PCG seeded from the caller's
// int64 (or process entropy when unseeded), not an attempt at bit-for-bit
// parity with the original single-precision sin() generator.
type Source struct {
	rng *rand.Rand
}

// NewSource builds a deterministic source from seed, or a
// non-deterministic one when seeded is false.
func NewSource(seed int64, seeded bool) *Source {
	if !seeded {
		return &Source{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	return &Source{rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))}
}

// Child derives a new, independently-seeded Source for one step of
// generation (e.g. one object property, one array element) by XOR-ing a
// 64-bit FNV-1a hash of path with the next value drawn from the parent
// stream, so the order of Child calls affects the result. Spec §9 design note (b) flags
// the original's "add a character code to the base seed" approach as
// something a reimplementation should document rather than preserve
// bit-for-bit; this is that documented replacement.
func (s *Source) Child(path string) *Source {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	mix := h.Sum64() ^ s.rng.Uint64()
	return &Source{rng: rand.New(rand.NewPCG(mix, mix^0x9e3779b97f4a7c15))}
}

func (s *Source) Float64() float64      { return s.rng.Float64() }
func (s *Source) IntN(n int) int        { return s.rng.IntN(n) }
func (s *Source) Uint64() uint64        { return s.rng.Uint64() }
func (s *Source) Bool() bool            { return s.rng.IntN(2) == 0 }
