package raptor

// EventKind is the kind of a label event.
type EventKind uint8

const (
	EventAccepted EventKind = iota
	EventRejected
	EventDropped
)

func (k EventKind) String() string {
	switch k {
	case EventAccepted:
		return "accepted"
	case EventRejected:
		return "rejected"
	default:
		return "dropped"
	}
}

// Event reports one decision of a stop set. By is the label that caused a
// rejection or drop, nil for accepted labels.
type Event[T TripSchedule] struct {
	Kind      EventKind
	Label     *Label[T]
	By        *Label[T]
	Iteration int // departure time of the range iteration
}

// DebugHandler receives label events.
type DebugHandler[T TripSchedule] interface {
	Event(e Event[T])
}

// DebugHandlerFunc adapts a function to DebugHandler.
type DebugHandlerFunc[T TripSchedule] func(e Event[T])

func (f DebugHandlerFunc[T]) Event(e Event[T]) { f(e) }

// DebugFilter selects which events reach the handler. With both fields
// empty every event is reported.
type DebugFilter struct {
	// Stops reports events for labels at any of these stops.
	Stops []int
	// Path reports events for labels whose stop sequence is a prefix of
	// this path.
	Path []int
}

// Debugger filters label events for a handler. A nil *Debugger is valid and
// reports nothing.
type Debugger[T TripSchedule] struct {
	handler   DebugHandler[T]
	stops     map[int]bool
	path      []int
	iteration int
}

// NewDebugger returns nil when handler is nil.
func NewDebugger[T TripSchedule](handler DebugHandler[T], filter DebugFilter) *Debugger[T] {
	if handler == nil {
		return nil
	}
	d := &Debugger[T]{handler: handler, path: filter.Path}
	if len(filter.Stops) > 0 {
		d.stops = make(map[int]bool, len(filter.Stops))
		for _, s := range filter.Stops {
			d.stops[s] = true
		}
	}
	return d
}

func (d *Debugger[T]) setIteration(t int) {
	if d != nil {
		d.iteration = t
	}
}

func (d *Debugger[T]) report(kind EventKind, l, by *Label[T]) {
	if d == nil || !d.matches(l) {
		return
	}
	d.handler.Event(Event[T]{Kind: kind, Label: l, By: by, Iteration: d.iteration})
}

func (d *Debugger[T]) matches(l *Label[T]) bool {
	if d.stops == nil && len(d.path) == 0 {
		return true
	}
	if d.stops[l.Stop] {
		return true
	}
	if len(d.path) == 0 {
		return false
	}
	stops := l.Stops()
	if len(stops) > len(d.path) {
		return false
	}
	for i, s := range stops {
		if d.path[i] != s {
			return false
		}
	}
	return true
}
