package gridwarp

// rng.go implements the reversible pseudo-random stream consumed by workload
// and interarrival generation.  Rollback requires that every draw can be
// undone exactly, so the stream is a 64-bit linear-congruential generator
// whose state transition has a precomputed modular inverse: stepping
// backward is as cheap as stepping forward and reproduces the prior state
// bit for bit.  (The rngstream package used elsewhere in this module can
// only advance.)

import (
	"hash/fnv"
	"math"
)

const (
	lcgMult    uint64 = 0x5851f42d4c957f2d // 6364136223846793005
	lcgMultInv uint64 = 0xc097ef87329e28a5 // inverse of lcgMult mod 2^64
	lcgInc     uint64 = 1442695040888963407
)

// ReverseRng is an exactly invertible uniform pseudo-random stream.  Each
// master owns one; draws and reversals on it are confined to that master's
// handlers, so a stream never sees interleaved use.
type ReverseRng struct {
	state uint64
	count int64 // draws consumed, net of reversals
}

// NewReverseRng seeds a stream from a label, typically the name of the
// owning service, so that streams are reproducible run to run regardless of
// construction order.
func NewReverseRng(label string) *ReverseRng {
	h := fnv.New64a()
	h.Write([]byte(label))
	seed := h.Sum64()
	if seed == 0 {
		seed = lcgInc
	}
	return &ReverseRng{state: seed}
}

// RandU01 returns the next uniform draw in [0,1).
func (rng *ReverseRng) RandU01() float64 {
	rng.state = rng.state*lcgMult + lcgInc
	rng.count++
	return float64(rng.state>>11) / float64(uint64(1)<<53)
}

// ReverseU01 undoes the most recent draw.  The next RandU01 call returns
// the same value the undone draw returned.
func (rng *ReverseRng) ReverseU01() {
	rng.state = (rng.state - lcgInc) * lcgMultInv
	rng.count--
}

// Reverse undoes the n most recent draws.
func (rng *ReverseRng) Reverse(n int) {
	for idx := 0; idx < n; idx++ {
		rng.ReverseU01()
	}
}

// Count reports the number of draws consumed, net of reversals.
func (rng *ReverseRng) Count() int64 {
	return rng.count
}

// Exp returns an exponential variate with the given rate, consuming exactly
// one draw.
func (rng *ReverseRng) Exp(rate float64) float64 {
	return -math.Log(1.0-rng.RandU01()) / rate
}
