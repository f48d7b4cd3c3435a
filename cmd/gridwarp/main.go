package main

// The gridwarp command runs an optimistic grid-simulation model.  By default
// it builds a star model: one master fanning out over point-to-point links to
// a configurable number of machines, dispatching a fixed batch of identical
// tasks round-robin.  A model file given with --model-file replaces the star
// model entirely.

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gridwarp/gridwarp"
)

var (
	machineAmount int
	taskAmount    int
	window        int
	partitions    int
	logLevel      string
	traceFile     string
	modelFile     string
)

var rootCmd = &cobra.Command{
	Use:   "gridwarp",
	Short: "run an optimistic grid-simulation model",
	RunE:  run,

	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().IntVar(&machineAmount, "machine-amount", 10, "number of machines in the star model")
	rootCmd.Flags().IntVar(&taskAmount, "task-amount", 100, "number of tasks the master dispatches")
	rootCmd.Flags().IntVar(&window, "window", 1, "speculation window; 1 runs in timestamp order")
	rootCmd.Flags().IntVar(&partitions, "partitions", 1, "partition count; models are padded with dummies to divide evenly")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "logrus level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&traceFile, "trace-file", "", "write a committed-event trace to this yaml or json file")
	rootCmd.Flags().StringVar(&modelFile, "model-file", "", "load the model from this yaml or json file instead of building the star model")
}

// starModel registers the default topology: master 0 at the hub, one link and
// one machine per spoke.
func starModel(mb *gridwarp.ModelBuilder) error {
	const user = "User1"
	mb.RegisterUser(user, 1.0)

	machines := make([]int, 0, machineAmount)
	for i := 0; i < machineAmount; i++ {
		linkID := 2*i + 1
		machineID := 2*i + 2
		mb.RegisterLink(linkID, 0, machineID, 50.0, 0.0, 1.0)
		mb.RegisterMachine(machineID, 0.2, 0.0, 8, 9800.0, 4096, 0.0, 0.0)
		machines = append(machines, machineID)
	}

	wl, err := gridwarp.NewConstantWorkload(user, taskAmount, 1000.0, 80.0)
	if err != nil {
		return err
	}
	ia, err := gridwarp.NewExpInterarrival(0.1)
	if err != nil {
		return err
	}
	mb.RegisterMaster(0, wl, ia, machines)
	return nil
}

func run(cmd *cobra.Command, args []string) error {
	lvl, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)

	eng := gridwarp.CreateEngine(window)
	tracer := gridwarp.CreateTraceManager("gridwarp", traceFile != "")
	eng.SetTracer(tracer)

	mb := gridwarp.CreateModelBuilder()
	nlp := 0
	if modelFile != "" {
		mc, err := gridwarp.ReadModelCfg(modelFile)
		if err != nil {
			return err
		}
		if err := mc.Populate(mb); err != nil {
			return err
		}
		nlp = len(mc.Masters) + len(mc.Machines) + len(mc.Links) + len(mc.Switches)
	} else {
		if err := starModel(mb); err != nil {
			return err
		}
		nlp = 1 + 2*machineAmount
	}

	if partitions > 1 {
		pad := gridwarp.DummyPadding(nlp, partitions)
		for i := 0; i < pad; i++ {
			mb.RegisterDummy(nlp + i)
		}
		nlp += pad
		mapping := gridwarp.BlockMapping(nlp, partitions)
		logrus.Debugf("%d logical processes over %d partitions, %d dummies, lp 0 on partition %d",
			nlp, partitions, pad, mapping(0))
	}

	if err := mb.Build(eng); err != nil {
		return err
	}

	eng.Run()
	eng.GlobalMetrics().Report()
	logrus.Infof("committed %d events, %d rollbacks", eng.Commits(), eng.Rollbacks())

	if traceFile != "" {
		tracer.WriteToFile(traceFile, true)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
