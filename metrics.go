package gridwarp

// metrics.go holds the two-tier metrics collectors.  The per-service
// collector is written only from Commit and Finalize handlers, never from
// speculative Forward calls, so work that is later rolled back never reaches
// a report.  The global collector is populated once, at shutdown, by folding
// in every finalized per-service collector.

import "fmt"

// MetricKind enumerates the quantities the collectors track.
type MetricKind int

const (
	MetricCommunicatedMbits MetricKind = iota
	MetricProcessedMflops
	MetricProcWaitingTime
	MetricCommWaitingTime
	MetricProcServices
	MetricCommServices
	MetricCompletedTasks
	MetricSimulationTime
)

// ServiceMetrics accumulates one service's committed counters.  Counters
// only ever grow; MetricSimulationTime keeps the largest reported value.
type ServiceMetrics struct {
	ProcServices   int
	CommServices   int
	CompletedTasks int

	CommunicatedMbits float64
	ProcessedMflops   float64
	ProcWaitingTime   float64
	CommWaitingTime   float64
	SimulationTime    float64
}

// AddCount bumps an integral counter.
func (sm *ServiceMetrics) AddCount(kind MetricKind, n int) {
	switch kind {
	case MetricProcServices:
		sm.ProcServices += n
	case MetricCommServices:
		sm.CommServices += n
	case MetricCompletedTasks:
		sm.CompletedTasks += n
	default:
		panic(fmt.Sprintf("metric kind %d is not an integral counter", kind))
	}
}

// AddValue accumulates a floating quantity.
func (sm *ServiceMetrics) AddValue(kind MetricKind, v float64) {
	switch kind {
	case MetricCommunicatedMbits:
		sm.CommunicatedMbits += v
	case MetricProcessedMflops:
		sm.ProcessedMflops += v
	case MetricProcWaitingTime:
		sm.ProcWaitingTime += v
	case MetricCommWaitingTime:
		sm.CommWaitingTime += v
	case MetricSimulationTime:
		if v > sm.SimulationTime {
			sm.SimulationTime = v
		}
	default:
		panic(fmt.Sprintf("metric kind %d is not a floating accumulator", kind))
	}
}

// GlobalMetricsCollector aggregates finalized per-service metrics.  It is
// populated exactly once per service, from Finalize, and reported once at
// process shutdown.
type GlobalMetricsCollector struct {
	totals ServiceMetrics
	merged int
}

// CreateGlobalMetricsCollector is a constructor.
func CreateGlobalMetricsCollector() *GlobalMetricsCollector {
	return new(GlobalMetricsCollector)
}

// Merge folds one service's finalized metrics into the global totals.
func (gmc *GlobalMetricsCollector) Merge(sm *ServiceMetrics) {
	gmc.totals.ProcServices += sm.ProcServices
	gmc.totals.CommServices += sm.CommServices
	gmc.totals.CompletedTasks += sm.CompletedTasks
	gmc.totals.CommunicatedMbits += sm.CommunicatedMbits
	gmc.totals.ProcessedMflops += sm.ProcessedMflops
	gmc.totals.ProcWaitingTime += sm.ProcWaitingTime
	gmc.totals.CommWaitingTime += sm.CommWaitingTime
	if sm.SimulationTime > gmc.totals.SimulationTime {
		gmc.totals.SimulationTime = sm.SimulationTime
	}
	gmc.merged++
}

// Totals returns a copy of the aggregated metrics.
func (gmc *GlobalMetricsCollector) Totals() ServiceMetrics {
	return gmc.totals
}

// Merged reports how many per-service collectors were folded in.
func (gmc *GlobalMetricsCollector) Merged() int {
	return gmc.merged
}

// Report prints the aggregated metrics at process shutdown.
func (gmc *GlobalMetricsCollector) Report() {
	fmt.Println("=== Global Simulation Metrics ===")
	fmt.Printf("Services reporting         : %d\n", gmc.merged)
	fmt.Printf("Completed tasks            : %d\n", gmc.totals.CompletedTasks)
	fmt.Printf("Processing services        : %d\n", gmc.totals.ProcServices)
	fmt.Printf("Communication services     : %d\n", gmc.totals.CommServices)
	fmt.Printf("Processed Mflops           : %.2f\n", gmc.totals.ProcessedMflops)
	fmt.Printf("Communicated Mbits         : %.2f\n", gmc.totals.CommunicatedMbits)
	fmt.Printf("Processing waiting time    : %.6f s\n", gmc.totals.ProcWaitingTime)
	fmt.Printf("Communication waiting time : %.6f s\n", gmc.totals.CommWaitingTime)
	fmt.Printf("Simulated time             : %.6f s\n", gmc.totals.SimulationTime)
}
