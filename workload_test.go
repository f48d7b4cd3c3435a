package gridwarp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantWorkloadRejectsBadSizes(t *testing.T) {
	_, err := NewConstantWorkload("User1", 10, 0.0, 80.0)
	assert.Error(t, err, "zero processing size must be rejected")

	_, err = NewConstantWorkload("User1", 10, 1000.0, -1.0)
	assert.Error(t, err, "negative communication size must be rejected")

	_, err = NewConstantWorkload("User1", -1, 1000.0, 80.0)
	assert.Error(t, err, "negative task count must be rejected")
}

func TestConstantWorkloadGenerateReverse(t *testing.T) {
	wl, err := NewConstantWorkload("User1", 3, 1000.0, 80.0)
	require.NoError(t, err)
	rng := NewReverseRng("master-0")

	proc, comm := wl.Generate(rng)
	assert.Equal(t, 1000.0, proc)
	assert.Equal(t, 80.0, comm)
	assert.Equal(t, 2, wl.RemainingTasks())
	assert.Equal(t, int64(0), rng.Count(), "constant workloads consume no draws")

	wl.ReverseGenerate(rng)
	assert.Equal(t, 3, wl.RemainingTasks())
	assert.Equal(t, int64(0), rng.Count())
}

func TestUniformWorkloadRejectsBadBounds(t *testing.T) {
	cases := []struct {
		name                               string
		minProc, maxProc, minComm, maxComm float64
	}{
		{"zero min proc", 0.0, 10.0, 1.0, 2.0},
		{"zero max proc", 1.0, 0.0, 1.0, 2.0},
		{"zero min comm", 1.0, 10.0, 0.0, 2.0},
		{"zero max comm", 1.0, 10.0, 1.0, 0.0},
		{"empty proc interval", 10.0, 1.0, 1.0, 2.0},
		{"empty comm interval", 1.0, 10.0, 2.0, 1.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewUniformWorkload("User1", 5, tc.minProc, tc.maxProc, tc.minComm, tc.maxComm)
			assert.Error(t, err)
		})
	}
}

func TestUniformWorkloadGenerateReverse(t *testing.T) {
	wl, err := NewUniformWorkload("User1", 5, 100.0, 200.0, 10.0, 20.0)
	require.NoError(t, err)
	rng := NewReverseRng("master-0")

	proc, comm := wl.Generate(rng)
	assert.GreaterOrEqual(t, proc, 100.0)
	assert.LessOrEqual(t, proc, 200.0)
	assert.GreaterOrEqual(t, comm, 10.0)
	assert.LessOrEqual(t, comm, 20.0)
	assert.Equal(t, int64(2), rng.Count(), "uniform workloads consume two draws per task")
	assert.Equal(t, 4, wl.RemainingTasks())

	wl.ReverseGenerate(rng)
	assert.Equal(t, int64(0), rng.Count())
	assert.Equal(t, 5, wl.RemainingTasks())

	proc2, comm2 := wl.Generate(rng)
	assert.Equal(t, proc, proc2, "a reversed generate must be reproduced exactly")
	assert.Equal(t, comm, comm2)
}

func TestUniformWorkloadUnwindsBatch(t *testing.T) {
	const n = 25
	wl, err := NewUniformWorkload("User1", n, 100.0, 200.0, 10.0, 20.0)
	require.NoError(t, err)
	rng := NewReverseRng("master-0")

	procs := make([]float64, n)
	comms := make([]float64, n)
	for idx := 0; idx < n; idx++ {
		procs[idx], comms[idx] = wl.Generate(rng)
	}
	require.Equal(t, 0, wl.RemainingTasks())

	for idx := 0; idx < n; idx++ {
		wl.ReverseGenerate(rng)
	}
	assert.Equal(t, n, wl.RemainingTasks())
	assert.Equal(t, int64(0), rng.Count())

	for idx := 0; idx < n; idx++ {
		proc, comm := wl.Generate(rng)
		assert.Equal(t, procs[idx], proc, "draw %d diverged after unwinding", idx)
		assert.Equal(t, comms[idx], comm, "draw %d diverged after unwinding", idx)
	}
}

func TestUniformWorkloadDegenerateIntervals(t *testing.T) {
	wl, err := NewUniformWorkload("User1", 1, 10.0, 10.0, 5.0, 5.0)
	require.NoError(t, err)

	proc, comm := wl.Generate(NewReverseRng("master-0"))
	assert.Equal(t, 10.0, proc)
	assert.Equal(t, 5.0, comm)
}

func TestInterarrivalGenerators(t *testing.T) {
	_, err := NewFixedInterarrival(0.0)
	assert.Error(t, err)
	_, err = NewExpInterarrival(-1.0)
	assert.Error(t, err)

	fixed, err := NewFixedInterarrival(2.5)
	require.NoError(t, err)
	rng := NewReverseRng("master-0")
	assert.Equal(t, 2.5, fixed.Next(rng))
	fixed.ReverseNext(rng)
	assert.Equal(t, int64(0), rng.Count())

	exp, err := NewExpInterarrival(0.1)
	require.NoError(t, err)
	gap := exp.Next(rng)
	assert.Greater(t, gap, 0.0)
	assert.Equal(t, int64(1), rng.Count())
	exp.ReverseNext(rng)
	assert.Equal(t, gap, exp.Next(rng), "a reversed gap must be reproduced exactly")
}
