package gridwarp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReverseReproducesDraw(t *testing.T) {
	rng := NewReverseRng("machine-2")
	first := rng.RandU01()
	rng.ReverseU01()
	assert.Equal(t, first, rng.RandU01(), "a reversed draw must be reproduced exactly")
	assert.Equal(t, int64(1), rng.Count())
}

func TestReverseUnwindsManyDraws(t *testing.T) {
	rng := NewReverseRng("master-0")
	probe := NewReverseRng("master-0")

	expected := make([]float64, 1000)
	for idx := range expected {
		expected[idx] = probe.RandU01()
	}

	for range expected {
		rng.RandU01()
	}
	rng.Reverse(len(expected))
	require.Equal(t, int64(0), rng.Count())

	for idx, want := range expected {
		assert.Equal(t, want, rng.RandU01(), "draw %d diverged after unwinding", idx)
	}
}

func TestLabelSeedingIsReproducible(t *testing.T) {
	a := NewReverseRng("link-7")
	b := NewReverseRng("link-7")
	c := NewReverseRng("link-8")

	av := a.RandU01()
	assert.Equal(t, av, b.RandU01())
	assert.NotEqual(t, av, c.RandU01())
}

func TestExpConsumesOneDraw(t *testing.T) {
	rng := NewReverseRng("master-1")
	v := rng.Exp(0.1)
	assert.Greater(t, v, 0.0)
	assert.Equal(t, int64(1), rng.Count())

	rng.ReverseU01()
	assert.Equal(t, v, rng.Exp(0.1))
}
