package gridwarp

import "github.com/sirupsen/logrus"

// dummyDev pads a model out to a round number of logical processes when the
// service count does not divide evenly across partitions.  It accepts no
// meaningful events, so every phase is a no-op.
type dummyDev struct {
	dummyID   int
	dummyName string
}

// createDummy is a constructor.
func createDummy(id int, name string) *dummyDev {
	dd := new(dummyDev)
	dd.dummyID = id
	dd.dummyName = name
	return dd
}

func (dd *dummyDev) EntityID() int { return dd.dummyID }

func (dd *dummyDev) EntityName() string { return dd.dummyName }

func (dd *dummyDev) Forward(eng *Engine, ev *Event) {
	logrus.Debugf("%s ignoring event", dd.dummyName)
}

func (dd *dummyDev) Reverse(eng *Engine, ev *Event) {}

func (dd *dummyDev) Commit(eng *Engine, ev *Event) {}

func (dd *dummyDev) Finalize(eng *Engine) {}
