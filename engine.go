package gridwarp

// engine.go drives the optimistic simulation.  Every registered service is
// one logical process (LP).  Events are processed speculatively: with a
// speculation window of k the engine picks each next event uniformly among
// the k earliest pending ones, so services can observe events out of global
// timestamp order.  When a straggler is detected - an event older than work
// an LP has already applied - the engine reverses that LP's applied events
// newest-first down to the straggler's time, cancels everything those events
// emitted (rolling back downstream LPs that already consumed them), and
// re-enqueues the reversed events for replay.  Events older than every
// pending event (the global virtual time) can never be rolled back and are
// committed.  A window of 1 degenerates to conservative timestamp-order
// execution, in which no rollback ever triggers.

import (
	"container/heap"
	"fmt"

	"github.com/iti/evt/vrtime"
	"github.com/iti/rngstream"
	"github.com/sirupsen/logrus"
)

// queueItem is one pending or applied event addressed to a logical process.
type queueItem struct {
	ev        *Event
	dst       int
	time      vrtime.Time
	seq       int64 // insertion order; breaks timestamp ties deterministically
	processed bool  // currently applied at its destination
	cancelled bool  // unsent by a rollback of its emitter
	index     int   // position in the pending heap
}

// before orders queue items by virtual time, then insertion order.  It is a
// strict total order over all items.
func (qi *queueItem) before(other *queueItem) bool {
	if qi.time.Ticks() != other.time.Ticks() {
		return qi.time.Ticks() < other.time.Ticks()
	}
	return qi.seq < other.seq
}

// eventHeap is the pending-event queue.
type eventHeap []*queueItem

func (eh eventHeap) Len() int { return len(eh) }

func (eh eventHeap) Less(i, j int) bool { return eh[i].before(eh[j]) }

func (eh eventHeap) Swap(i, j int) {
	eh[i], eh[j] = eh[j], eh[i]
	eh[i].index = i
	eh[j].index = j
}

func (eh *eventHeap) Push(x any) {
	qi := x.(*queueItem)
	qi.index = len(*eh)
	*eh = append(*eh, qi)
}

func (eh *eventHeap) Pop() any {
	old := *eh
	n := len(old)
	qi := old[n-1]
	old[n-1] = nil
	*eh = old[:n-1]
	return qi
}

// procRecord remembers one applied forward transition: the item that caused
// it and the events it emitted, so the transition can be reversed and its
// emissions cancelled.
type procRecord struct {
	item  *queueItem
	sends []*queueItem
}

// lpRuntime is the engine-side bookkeeping for one logical process.  The
// processed history is ordered by the items' virtual time: rollback pops
// from the top, commit drains from the bottom.
type lpRuntime struct {
	entity    ServiceEntity
	processed []*procRecord
}

// Engine is the optimistic synchronization kernel.  Entities interact with
// it only to schedule new events and to read the current virtual time.
type Engine struct {
	queue   eventHeap
	lps     map[int]*lpRuntime
	order   []int // LP ids in registration order, for deterministic iteration
	now     vrtime.Time
	seq     int64
	window  int
	rng     *rngstream.RngStream
	current *procRecord // record of the event being forwarded, if any
	tracer  *TraceManager
	global  *GlobalMetricsCollector

	rollbacks int
	commits   int
}

// CreateEngine is a constructor.  The window selects how aggressively the
// engine speculates: 1 processes events in global timestamp order, k > 1
// picks each next event among the k earliest pending ones.
func CreateEngine(window int) *Engine {
	eng := new(Engine)
	eng.queue = make(eventHeap, 0)
	eng.lps = make(map[int]*lpRuntime)
	if window < 1 {
		window = 1
	}
	eng.window = window
	eng.rng = rngstream.New("engine")
	eng.global = CreateGlobalMetricsCollector()
	return eng
}

// SetTracer attaches a trace manager; committed events are logged to it.
func (eng *Engine) SetTracer(tm *TraceManager) {
	eng.tracer = tm
}

// Tracer returns the attached trace manager, nil if none.
func (eng *Engine) Tracer() *TraceManager {
	return eng.tracer
}

// RegisterEntity maps a service entity to a logical process.
func (eng *Engine) RegisterEntity(ent ServiceEntity) error {
	id := ent.EntityID()
	if _, present := eng.lps[id]; present {
		return fmt.Errorf("entity id %d registered twice", id)
	}
	eng.lps[id] = &lpRuntime{entity: ent, processed: make([]*procRecord, 0)}
	eng.order = append(eng.order, id)
	return nil
}

// CurrentTime returns the virtual time of the event being processed.
func (eng *Engine) CurrentTime() vrtime.Time {
	return eng.now
}

// CurrentSeconds returns the virtual time of the event being processed, in
// seconds.
func (eng *Engine) CurrentSeconds() float64 {
	return eng.now.Seconds()
}

// Rollbacks reports how many straggler rollbacks occurred during the run.
func (eng *Engine) Rollbacks() int {
	return eng.rollbacks
}

// Commits reports how many events have been committed.
func (eng *Engine) Commits() int {
	return eng.commits
}

// GlobalMetrics returns the engine's global collector.
func (eng *Engine) GlobalMetrics() *GlobalMetricsCollector {
	return eng.global
}

// Schedule emits ev to the service dst after the given virtual-time offset.
// When called from inside a forward handler the emission is remembered
// against that handler's event, so that a rollback of the sender cancels it.
func (eng *Engine) Schedule(dst int, ev *Event, offset vrtime.Time) {
	if _, present := eng.lps[dst]; !present {
		panic(fmt.Sprintf("event scheduled to unregistered service %d", dst))
	}
	t := vrtime.SecondsToTime(eng.now.Seconds() + offset.Seconds())
	ev.time = t
	eng.seq++
	qi := &queueItem{ev: ev, dst: dst, time: t, seq: eng.seq}
	heap.Push(&eng.queue, qi)
	if eng.current != nil {
		eng.current.sends = append(eng.current.sends, qi)
	}
}

// minPending returns the earliest live pending event, discarding cancelled
// items it meets along the way.
func (eng *Engine) minPending() *queueItem {
	for len(eng.queue) > 0 {
		if eng.queue[0].cancelled {
			heap.Pop(&eng.queue)
			continue
		}
		return eng.queue[0]
	}
	return nil
}

// nextItem pops the event to process next: the earliest pending event, or,
// when speculating, one of the window earliest.
func (eng *Engine) nextItem() *queueItem {
	if eng.minPending() == nil {
		return nil
	}
	if eng.window == 1 {
		return heap.Pop(&eng.queue).(*queueItem)
	}

	popped := make([]*queueItem, 0, eng.window)
	for len(popped) < eng.window && len(eng.queue) > 0 {
		qi := heap.Pop(&eng.queue).(*queueItem)
		if qi.cancelled {
			continue
		}
		popped = append(popped, qi)
	}

	pick := 0
	if len(popped) > 1 {
		pick = eng.rng.RandInt(0, len(popped)-1)
	}
	for idx, qi := range popped {
		if idx != pick {
			heap.Push(&eng.queue, qi)
		}
	}
	return popped[pick]
}

// Run processes events until the pending queue drains, then commits whatever
// remains, finalizes every entity, and folds the per-entity collectors into
// the global one.
func (eng *Engine) Run() {
	for {
		item := eng.nextItem()
		if item == nil {
			break
		}
		eng.deliver(item)
		eng.commitBelowGVT()
	}
	eng.commitAll()
	for _, id := range eng.order {
		eng.lps[id].entity.Finalize(eng)
	}
	logrus.Debugf("run complete: %d events committed, %d rollbacks", eng.commits, eng.rollbacks)
}

// deliver applies one event at its destination, first rolling the
// destination back if the event is a straggler.
func (eng *Engine) deliver(item *queueItem) {
	lp := eng.lps[item.dst]
	if n := len(lp.processed); n > 0 && item.before(lp.processed[n-1].item) {
		eng.rollback(lp, item)
	}

	eng.now = item.time
	item.processed = true
	rec := &procRecord{item: item}
	prev := eng.current
	eng.current = rec
	lp.entity.Forward(eng, item.ev)
	eng.current = prev
	lp.processed = append(lp.processed, rec)
}

// rollback reverses lp's applied events newest-first down to (but not
// including) the straggler's position in virtual time, cancelling everything
// those events emitted, and re-enqueues the reversed events for replay.
func (eng *Engine) rollback(lp *lpRuntime, straggler *queueItem) {
	eng.rollbacks++
	logrus.Debugf("rollback at %s: straggler at %f", lp.entity.EntityName(), straggler.time.Seconds())
	for n := len(lp.processed); n > 0 && straggler.before(lp.processed[n-1].item); n = len(lp.processed) {
		rec := lp.processed[n-1]
		lp.processed = lp.processed[:n-1]
		lp.entity.Reverse(eng, rec.item.ev)
		for _, sent := range rec.sends {
			eng.unsend(sent)
		}
		rec.item.processed = false
		heap.Push(&eng.queue, rec.item)
	}
}

// unsend cancels an emitted event.  A pending event is simply marked
// cancelled; an event the destination already consumed forces the
// destination to unwind back through it, reversing and re-enqueueing the
// younger work it finds on the way and cascading through anything that work
// emitted.
func (eng *Engine) unsend(sent *queueItem) {
	if sent.cancelled {
		return
	}
	if !sent.processed {
		sent.cancelled = true
		return
	}

	dst := eng.lps[sent.dst]
	for {
		n := len(dst.processed)
		rec := dst.processed[n-1]
		dst.processed = dst.processed[:n-1]
		dst.entity.Reverse(eng, rec.item.ev)
		for _, s := range rec.sends {
			eng.unsend(s)
		}
		rec.item.processed = false
		if rec.item == sent {
			rec.item.cancelled = true
			return
		}
		heap.Push(&eng.queue, rec.item)
	}
}

// commitBelowGVT commits every applied event strictly older than the
// earliest pending event; nothing can roll those back.
func (eng *Engine) commitBelowGVT() {
	gvt := eng.minPending()
	if gvt == nil {
		return
	}
	for _, id := range eng.order {
		lp := eng.lps[id]
		for len(lp.processed) > 0 && lp.processed[0].item.before(gvt) {
			eng.commitRecord(lp, lp.processed[0])
			lp.processed = lp.processed[1:]
		}
	}
}

// commitAll commits every record still outstanding; called once the pending
// queue has drained.
func (eng *Engine) commitAll() {
	for _, id := range eng.order {
		lp := eng.lps[id]
		for _, rec := range lp.processed {
			eng.commitRecord(lp, rec)
		}
		lp.processed = lp.processed[:0]
	}
}

func (eng *Engine) commitRecord(lp *lpRuntime, rec *procRecord) {
	lp.entity.Commit(eng, rec.item.ev)
	eng.commits++
	if eng.tracer != nil {
		eng.tracer.AddEvent(rec.item.time, rec.item.dst, rec.item.ev)
	}
}
