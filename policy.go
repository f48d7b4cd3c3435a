package gridwarp

// policy.go defines the policy a master consults to place each newly
// generated task.  Policies may keep state, and that state is mutated inside
// the master's forward handler, so every selection must be invertible.

import "fmt"

// SchedPolicy decides which machine receives the next task.
type SchedPolicy interface {
	// NextMachine returns the id of the machine that receives the next task.
	NextMachine() int

	// ReverseNextMachine undoes the immediately preceding NextMachine call.
	ReverseNextMachine()
}

// RoundRobin cycles through the governed machines in registration order.
type RoundRobin struct {
	machines []int
	next     int
}

// NewRoundRobin builds a round-robin policy over the given machine ids.
func NewRoundRobin(machines []int) (*RoundRobin, error) {
	if len(machines) == 0 {
		return nil, fmt.Errorf("round-robin policy needs at least one machine")
	}
	return &RoundRobin{machines: machines}, nil
}

func (rr *RoundRobin) NextMachine() int {
	id := rr.machines[rr.next]
	rr.next = (rr.next + 1) % len(rr.machines)
	return id
}

func (rr *RoundRobin) ReverseNextMachine() {
	rr.next = (rr.next - 1 + len(rr.machines)) % len(rr.machines)
}
