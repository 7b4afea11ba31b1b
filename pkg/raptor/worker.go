package raptor

import (
	"context"
	"sort"

	"transit_router/pkg/pareto"
)

// Stats counts the work done by one worker.
type Stats struct {
	Iterations          int
	Rounds              int // highest round reached in any iteration
	LabelsAccepted      int
	LabelsRejected      int
	LabelsDropped       int
	LabelsAllocated     int
	DestinationArrivals int
}

// Worker runs the Range-RAPTOR rounds of one search segment. A Worker is
// used by one goroutine and discarded after the search.
type Worker[T TripSchedule] struct {
	schedule  ScheduleProvider[T]
	transfers TransferProvider
	cost      *CostCalculator[T]
	params    *SearchParams

	state   *stopArrivals[T]
	egress  map[int][]*AccessEgress
	exits   map[int][]*ViaExit
	dest    *pareto.Set[*DestinationArrival[T]]
	bridges *pareto.Set[*DestinationArrival[T]]
	debug   *Debugger[T]
	stats   Stats

	// pass-through seeds continuing their trip, per round
	carry [][]*Label[T]
	// highest round holding labels injected before the rounds start
	seededUpTo int
}

// NewWorker creates a worker. Egress legs end the journey at the
// destination; exits end it at a via location. Either may be empty, but a
// worker with neither finds nothing.
func NewWorker[T TripSchedule](
	schedule ScheduleProvider[T],
	transfers TransferProvider,
	cost *CostCalculator[T],
	params *SearchParams,
	egress []AccessEgress,
	exits []ViaExit,
	debug *Debugger[T],
) *Worker[T] {
	w := &Worker[T]{
		schedule:  schedule,
		transfers: transfers,
		cost:      cost,
		params:    params,
		egress:    make(map[int][]*AccessEgress),
		exits:     make(map[int][]*ViaExit),
		debug:     debug,
		carry:     make([][]*Label[T], params.MaxRounds+1),
	}
	w.state = newStopArrivals[T](schedule.NumberOfStops(), params.MaxRounds, params.StopCriteria(), debug, &w.stats)

	for i := range egress {
		e := &egress[i]
		w.egress[e.Stop] = append(w.egress[e.Stop], e)
	}
	for i := range exits {
		x := &exits[i]
		w.exits[x.Stop] = append(w.exits[x.Stop], x)
	}

	destCriteria := params.DestinationCriteria()
	w.dest = pareto.NewSet(pareto.Comparator[*DestinationArrival[T]](destCriteria), pareto.KeepTies[*DestinationArrival[T]]())
	w.bridges = pareto.NewSet(bridgeComparator[T](params.StopCriteria()))
	return w
}

// bridgeComparator keeps pass-through arrivals on different trips apart,
// since each may continue its own trip in the next segment.
func bridgeComparator[T TripSchedule](c pareto.Criteria) func(l, r *DestinationArrival[T]) bool {
	base := pareto.Comparator[*DestinationArrival[T]](c)
	return func(l, r *DestinationArrival[T]) bool {
		if lt, rt := l.continuesTrip(), r.continuesTrip(); lt && rt {
			if l.Previous.Trip.TripIndex() != r.Previous.Trip.TripIndex() {
				return true
			}
		}
		return base(l, r)
	}
}

// Run searches every range iteration. Seeds are labels carried over from
// the previous via segment; they are injected once, in the first iteration.
// Cancellation is checked between rounds and iterations only.
func (w *Worker[T]) Run(ctx context.Context, access []AccessEgress, seeds []*Label[T]) error {
	times := w.params.DepartureTimes()
	if len(access) == 0 {
		// Seeds carry their own times; one iteration is enough.
		times = times[:1]
	}

	for i, t := range times {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.debug.setIteration(t)
		w.state.beginIteration()
		w.seededUpTo = -1
		w.stats.Iterations++

		if i == 0 {
			for _, s := range seeds {
				w.addSeed(s)
			}
		} else {
			for r := range w.carry {
				w.carry[r] = nil
			}
		}
		for j := range access {
			w.addAccess(&access[j], t)
		}
		if err := w.runRounds(ctx); err != nil {
			return err
		}
	}
	w.stats.LabelsAllocated = w.state.allocated()
	return nil
}

func (w *Worker[T]) runRounds(ctx context.Context) error {
	for r := 0; r <= w.params.MaxRounds; r++ {
		if r > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			w.transitPhase(r)
		}
		w.continuationPhase(r)
		w.transferPhase(r)
		w.egressPhase(r)

		if r > w.stats.Rounds {
			w.stats.Rounds = r
		}
		if len(w.state.rounds[r]) == 0 && r >= w.seededUpTo {
			break
		}
	}
	return nil
}

func (w *Worker[T]) pruned(arrival int) bool {
	return w.params.LatestArrival != 0 && arrival > w.params.LatestArrival
}

func (w *Worker[T]) addAccess(a *AccessEgress, t int) {
	if a.Rides > w.params.MaxRounds {
		return
	}
	dep, ok := a.EarliestDeparture(t)
	if !ok || w.pruned(dep+a.Duration) {
		return
	}
	l := w.state.alloc(a.Rides)
	*l = Label[T]{
		Stop:      a.Stop,
		Round:     a.Rides,
		Arrival:   dep + a.Duration,
		Departure: dep,
		C1:        a.C1,
		Kind:      KindAccess,
		Access:    a,
		onBoard:   a.ReachedOnBoard,
	}
	if w.offer(l) {
		w.seeded(l.Round)
	}
}

func (w *Worker[T]) addSeed(s *Label[T]) {
	if s.Round > w.params.MaxRounds || w.pruned(s.Arrival) {
		return
	}
	if s.continueTrip {
		// Continues even if dominated at the stop.
		w.carry[s.Round] = append(w.carry[s.Round], s)
		w.seeded(s.Round)
	}
	if w.offer(s) {
		w.seeded(s.Round)
	}
}

func (w *Worker[T]) seeded(round int) {
	if round > w.seededUpTo {
		w.seededUpTo = round
	}
}

func (w *Worker[T]) offer(l *Label[T]) bool {
	if !w.state.add(l) {
		w.state.release(l)
		return false
	}
	return true
}

// transitPhase boards trips from the labels improved in the previous round.
func (w *Worker[T]) transitPhase(r int) {
	prev := make([]*Label[T], 0, len(w.state.rounds[r-1]))
	for _, l := range w.state.rounds[r-1] {
		if !l.dropped {
			prev = append(prev, l)
		}
	}
	sort.SliceStable(prev, func(i, j int) bool { return prev[i].Stop < prev[j].Stop })

	transferSlack := w.schedule.TransferSlack()
	for _, l := range prev {
		if l.dropped {
			continue
		}
		earliest := l.Arrival + w.schedule.BoardSlack(l.Stop)
		if l.Round > 0 {
			earliest += transferSlack
		}
		for _, b := range w.schedule.TripsDepartingFrom(l.Stop, earliest) {
			if l.onTrip(b.Trip) {
				continue
			}
			boardTime := b.Trip.Departure(b.StopPos)
			c1 := l.C1 + w.cost.Boarding(l.Round == 0, l.Arrival, boardTime)
			c2 := w.cost.BoardingC2(l.C2, b.Trip)
			w.ride(l, b.Trip, b.StopPos, l.Stop, boardTime, c1, c2, r)
		}
	}
}

// continuationPhase keeps pass-through seeds on their trip.
func (w *Worker[T]) continuationPhase(r int) {
	for _, l := range w.carry[r] {
		w.ride(l, l.Trip, l.AlightPos, l.Stop, l.Arrival, l.C1, l.C2, r)
	}
}

// ride creates a transit label at every stop after fromPos.
func (w *Worker[T]) ride(from *Label[T], trip T, fromPos, boardStop, boardTime, c1, c2, round int) {
	for pos := fromPos + 1; pos < trip.NumberOfStops(); pos++ {
		stop := trip.StopIndex(pos)
		arrival := trip.Arrival(pos) + w.schedule.AlightSlack(stop)
		if w.pruned(arrival) {
			break
		}
		l := w.state.alloc(round)
		*l = Label[T]{
			Stop:      stop,
			Round:     round,
			Arrival:   arrival,
			Departure: from.Departure,
			C1:        c1 + w.cost.Transit(boardTime, arrival),
			C2:        c2,
			Kind:      KindTransit,
			Parent:    from,
			Trip:      trip,
			BoardStop: boardStop,
			BoardPos:  fromPos,
			BoardTime: boardTime,
			AlightPos: pos,
			onBoard:   true,
		}
		accepted := w.state.add(l)
		// A pass-through exit sees every trip crossing it, even those whose
		// arrival is dominated at the stop itself.
		bridged := w.bridgePassThrough(l)
		if !accepted && !bridged {
			w.state.release(l)
		}
	}
}

// transferPhase walks from the labels of round r.
func (w *Worker[T]) transferPhase(r int) {
	list := w.state.rounds[r]
	n := len(list)
	for i := 0; i < n; i++ {
		l := list[i]
		if l.dropped || !l.CanTransfer() {
			continue
		}
		transfers := w.transfers.From(l.Stop)
		for j := range transfers {
			tr := &transfers[j]
			if tr.To == l.Stop {
				continue
			}
			arrival := l.Arrival + tr.Duration
			if w.pruned(arrival) {
				continue
			}
			nl := w.state.alloc(r)
			*nl = Label[T]{
				Stop:      tr.To,
				Round:     r,
				Arrival:   arrival,
				Departure: l.Departure,
				C1:        l.C1 + tr.C1,
				C2:        l.C2,
				Kind:      KindTransfer,
				Parent:    l,
				Transfer:  tr,
			}
			w.offer(nl)
		}
	}
}

// egressPhase relaxes egress legs and via exits of the labels of round r.
func (w *Worker[T]) egressPhase(r int) {
	for _, l := range w.state.rounds[r] {
		if l.dropped {
			continue
		}
		for _, e := range w.egress[l.Stop] {
			if canEgress(l, e) {
				w.addDestination(l, e)
			}
		}
		for _, x := range w.exits[l.Stop] {
			if x.PassThrough && l.Kind == KindTransit {
				continue // bridged while riding
			}
			w.addBridge(l, x)
		}
	}
}

func (w *Worker[T]) addDestination(l *Label[T], e *AccessEgress) {
	if l.Round+e.Rides > w.params.MaxRounds {
		return
	}
	dep, ok := e.EarliestDeparture(l.Arrival)
	if !ok || w.pruned(dep+e.Duration) {
		return
	}
	d := &DestinationArrival[T]{
		Previous:  l,
		Egress:    e,
		Arrival:   dep + e.Duration,
		Departure: l.OriginDeparture(w.schedule),
		Round:     l.Round + e.Rides,
		C1:        l.C1 + w.cost.Wait(dep-l.Arrival) + e.C1,
		C2:        l.C2,
	}
	if w.dest.Add(d) {
		w.stats.DestinationArrivals++
	}
}

func (w *Worker[T]) addBridge(l *Label[T], x *ViaExit) bool {
	arrival := l.Arrival
	if !x.PassThrough {
		arrival += x.Dwell
	}
	if w.pruned(arrival) {
		return false
	}
	return w.bridges.Add(&DestinationArrival[T]{
		Previous:  l,
		Exit:      x,
		Arrival:   arrival,
		Departure: l.Departure,
		Round:     l.Round,
		C1:        l.C1,
		C2:        l.C2,
		onBoard:   x.PassThrough && l.onBoard,
	})
}

func (w *Worker[T]) bridgePassThrough(l *Label[T]) bool {
	added := false
	for _, x := range w.exits[l.Stop] {
		if x.PassThrough && w.addBridge(l, x) {
			added = true
		}
	}
	return added
}

// DestinationArrivals returns the Pareto set of arrivals at the
// destination, equal arrivals included.
func (w *Worker[T]) DestinationArrivals() []*DestinationArrival[T] {
	return w.dest.Elements()
}

// ViaSeeds converts the arrivals at the via exits into seed labels for the
// next segment. A visit seed is a via label after the dwell; a pass-through
// seed keeps the on-board state and may continue its trip.
func (w *Worker[T]) ViaSeeds() []*Label[T] {
	arrivals := w.bridges.Elements()
	seeds := make([]*Label[T], 0, len(arrivals))
	for _, d := range arrivals {
		prev, x := d.Previous, d.Exit
		s := &Label[T]{
			Stop:        prev.Stop,
			Round:       prev.Round,
			Arrival:     d.Arrival,
			Departure:   prev.Departure,
			C1:          d.C1,
			C2:          d.C2,
			Kind:        KindVia,
			Parent:      prev,
			ViaDwell:    d.Arrival - prev.Arrival,
			PassThrough: x.PassThrough,
		}
		if x.PassThrough {
			s.onBoard = prev.onBoard
			if prev.Kind == KindTransit {
				s.Trip = prev.Trip
				s.AlightPos = prev.AlightPos
				s.continueTrip = true
			}
		}
		seeds = append(seeds, s)
	}
	return seeds
}

// LabelsAt returns the current Pareto set of labels at stop.
func (w *Worker[T]) LabelsAt(stop int) []*Label[T] {
	return w.state.labelsAt(stop)
}

// Stats returns the work counters.
func (w *Worker[T]) Stats() Stats { return w.stats }
