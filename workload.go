package gridwarp

// workload.go holds the generators that decide what each task demands and
// when the next one arrives.  Generation happens inside a master's forward
// handler and may be rolled back, so every generator pairs its forward
// operation with an exact inverse: a generate followed immediately by its
// reverse leaves the remaining-task counter and the random stream exactly
// where they started, and the next generate reproduces the identical draw.

import "fmt"

// Workload produces the (processing, communication) demands of a bounded
// stream of tasks.
type Workload interface {
	// Generate samples the demands of the next task, consuming a fixed
	// number of draws from rng and decrementing the remaining-task counter.
	Generate(rng *ReverseRng) (procSize, commSize float64)

	// ReverseGenerate undoes the immediately preceding Generate on the same
	// stream: draws are returned in reverse order of consumption and the
	// remaining-task counter is incremented.
	ReverseGenerate(rng *ReverseRng)

	// RemainingTasks reports how many tasks are yet to be generated.
	RemainingTasks() int

	// User names the owner of the generated tasks.
	User() string
}

// ConstantWorkload assigns identical demands to every task.  It consumes no
// random draws.
type ConstantWorkload struct {
	user      string
	remaining int
	procSize  float64
	commSize  float64
}

// NewConstantWorkload builds a constant workload of the given task count.
// Either size being non-positive is a fatal configuration error.
func NewConstantWorkload(user string, tasks int, procSize, commSize float64) (*ConstantWorkload, error) {
	if procSize <= 0.0 {
		return nil, fmt.Errorf("constant processing size must be positive, got %g", procSize)
	}
	if commSize <= 0.0 {
		return nil, fmt.Errorf("constant communication size must be positive, got %g", commSize)
	}
	if tasks < 0 {
		return nil, fmt.Errorf("task count must be non-negative, got %d", tasks)
	}
	return &ConstantWorkload{user: user, remaining: tasks, procSize: procSize, commSize: commSize}, nil
}

func (wl *ConstantWorkload) Generate(rng *ReverseRng) (float64, float64) {
	wl.remaining--
	return wl.procSize, wl.commSize
}

func (wl *ConstantWorkload) ReverseGenerate(rng *ReverseRng) {
	wl.remaining++
}

func (wl *ConstantWorkload) RemainingTasks() int { return wl.remaining }

func (wl *ConstantWorkload) User() string { return wl.user }

// UniformWorkload draws demands independently and uniformly from
// [minProc, maxProc] and [minComm, maxComm], consuming exactly two draws
// per task: the processing size first, the communication size second.
type UniformWorkload struct {
	user             string
	remaining        int
	minProc, maxProc float64
	minComm, maxComm float64
}

// NewUniformWorkload builds a uniform workload of the given task count.
// Any non-positive bound is a fatal configuration error.
func NewUniformWorkload(user string, tasks int, minProc, maxProc, minComm, maxComm float64) (*UniformWorkload, error) {
	if minProc <= 0.0 {
		return nil, fmt.Errorf("minimum processing size must be positive, got %g", minProc)
	}
	if maxProc <= 0.0 {
		return nil, fmt.Errorf("maximum processing size must be positive, got %g", maxProc)
	}
	if minComm <= 0.0 {
		return nil, fmt.Errorf("minimum communication size must be positive, got %g", minComm)
	}
	if maxComm <= 0.0 {
		return nil, fmt.Errorf("maximum communication size must be positive, got %g", maxComm)
	}
	if maxProc < minProc {
		return nil, fmt.Errorf("processing interval [%g, %g] is empty", minProc, maxProc)
	}
	if maxComm < minComm {
		return nil, fmt.Errorf("communication interval [%g, %g] is empty", minComm, maxComm)
	}
	if tasks < 0 {
		return nil, fmt.Errorf("task count must be non-negative, got %d", tasks)
	}
	return &UniformWorkload{user: user, remaining: tasks,
		minProc: minProc, maxProc: maxProc, minComm: minComm, maxComm: maxComm}, nil
}

func (wl *UniformWorkload) Generate(rng *ReverseRng) (float64, float64) {
	procSize := wl.minProc + rng.RandU01()*(wl.maxProc-wl.minProc)
	commSize := wl.minComm + rng.RandU01()*(wl.maxComm-wl.minComm)
	wl.remaining--
	return procSize, commSize
}

// ReverseGenerate undoes the two draws in reverse order of consumption: the
// communication size first, then the processing size.
func (wl *UniformWorkload) ReverseGenerate(rng *ReverseRng) {
	rng.ReverseU01()
	rng.ReverseU01()
	wl.remaining++
}

func (wl *UniformWorkload) RemainingTasks() int { return wl.remaining }

func (wl *UniformWorkload) User() string { return wl.user }

// Interarrival produces the virtual-time gap until a master's next task
// generation, under the same forward/reverse contract as Workload.
type Interarrival interface {
	// Next returns the gap before the next generation, consuming a fixed
	// number of draws from rng.
	Next(rng *ReverseRng) float64

	// ReverseNext undoes the immediately preceding Next on the same stream.
	ReverseNext(rng *ReverseRng)
}

// FixedInterarrival returns a constant gap, consuming no draws.
type FixedInterarrival struct {
	gap float64
}

func NewFixedInterarrival(gap float64) (*FixedInterarrival, error) {
	if gap <= 0.0 {
		return nil, fmt.Errorf("interarrival gap must be positive, got %g", gap)
	}
	return &FixedInterarrival{gap: gap}, nil
}

func (ia *FixedInterarrival) Next(rng *ReverseRng) float64 { return ia.gap }

func (ia *FixedInterarrival) ReverseNext(rng *ReverseRng) {}

// ExpInterarrival models a Poisson arrival process: gaps are exponentially
// distributed with the configured rate, consuming one draw each.
type ExpInterarrival struct {
	rate float64
}

func NewExpInterarrival(rate float64) (*ExpInterarrival, error) {
	if rate <= 0.0 {
		return nil, fmt.Errorf("arrival rate must be positive, got %g", rate)
	}
	return &ExpInterarrival{rate: rate}, nil
}

func (ia *ExpInterarrival) Next(rng *ReverseRng) float64 {
	return rng.Exp(ia.rate)
}

func (ia *ExpInterarrival) ReverseNext(rng *ReverseRng) {
	rng.ReverseU01()
}
