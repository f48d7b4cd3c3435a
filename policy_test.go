package gridwarp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobinCycles(t *testing.T) {
	_, err := NewRoundRobin(nil)
	assert.Error(t, err, "a policy over no machines must be rejected")

	rr, err := NewRoundRobin([]int{2, 4, 6})
	require.NoError(t, err)

	got := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		got = append(got, rr.NextMachine())
	}
	assert.Equal(t, []int{2, 4, 6, 2, 4, 6}, got)
}

func TestRoundRobinReverse(t *testing.T) {
	rr, err := NewRoundRobin([]int{2, 4, 6})
	require.NoError(t, err)

	rr.NextMachine()
	second := rr.NextMachine()
	rr.ReverseNextMachine()
	assert.Equal(t, second, rr.NextMachine(), "a reversed selection must be reproduced")

	// reversing across the wrap-around
	rr2, err := NewRoundRobin([]int{2, 4, 6})
	require.NoError(t, err)
	rr2.ReverseNextMachine()
	assert.Equal(t, 6, rr2.NextMachine())
	assert.Equal(t, 2, rr2.NextMachine())
}
