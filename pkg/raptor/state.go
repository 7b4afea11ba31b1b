package raptor

import "transit_router/pkg/pareto"

// stopArrivals holds the Pareto set of labels per stop. Sets persist across
// range iterations; the per-round lists are reset for each iteration.
type stopArrivals[T TripSchedule] struct {
	sets   []*pareto.Set[*Label[T]]
	left   func(l, r *Label[T]) bool
	arenas []arena[T]
	rounds [][]*Label[T]
	debug  *Debugger[T]
	stats  *Stats
}

func newStopArrivals[T TripSchedule](numStops, maxRounds int, criteria pareto.Criteria, debug *Debugger[T], stats *Stats) *stopArrivals[T] {
	return &stopArrivals[T]{
		sets:   make([]*pareto.Set[*Label[T]], numStops),
		left:   pareto.Comparator[*Label[T]](criteria),
		arenas: make([]arena[T], maxRounds+1),
		rounds: make([][]*Label[T], maxRounds+1),
		debug:  debug,
		stats:  stats,
	}
}

func (s *stopArrivals[T]) beginIteration() {
	for r := range s.rounds {
		s.rounds[r] = s.rounds[r][:0]
	}
}

func (s *stopArrivals[T]) alloc(round int) *Label[T] {
	return s.arenas[round].alloc()
}

// release recycles a rejected label. Labels already reported to a debug
// handler are kept.
func (s *stopArrivals[T]) release(l *Label[T]) {
	if s.debug != nil {
		return
	}
	s.arenas[l.Round].release(l)
}

// add offers l to its stop set and, if accepted, to the list of labels that
// were improved in its round.
func (s *stopArrivals[T]) add(l *Label[T]) bool {
	set := s.sets[l.Stop]
	if set == nil {
		set = pareto.NewSet(s.left, pareto.WithListener[*Label[T]](stopListener[T]{s}))
		s.sets[l.Stop] = set
	}
	if !set.Add(l) {
		return false
	}
	s.rounds[l.Round] = append(s.rounds[l.Round], l)
	return true
}

func (s *stopArrivals[T]) labelsAt(stop int) []*Label[T] {
	if set := s.sets[stop]; set != nil {
		return set.Elements()
	}
	return nil
}

func (s *stopArrivals[T]) allocated() int {
	n := 0
	for i := range s.arenas {
		n += s.arenas[i].n
	}
	return n
}

type stopListener[T TripSchedule] struct {
	s *stopArrivals[T]
}

func (l stopListener[T]) Accepted(e *Label[T]) {
	l.s.stats.LabelsAccepted++
	l.s.debug.report(EventAccepted, e, nil)
}

func (l stopListener[T]) Rejected(e, by *Label[T]) {
	l.s.stats.LabelsRejected++
	l.s.debug.report(EventRejected, e, by)
}

func (l stopListener[T]) Dropped(e, by *Label[T]) {
	e.dropped = true
	l.s.stats.LabelsDropped++
	l.s.debug.report(EventDropped, e, by)
}
