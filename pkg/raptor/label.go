package raptor

import (
	"fmt"

	"transit_router/pkg/pareto"
	"transit_router/pkg/transfer"
)

// Kind tells how a label reached its stop.
type Kind uint8

const (
	KindAccess Kind = iota
	KindTransit
	KindTransfer
	KindVia
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindTransit:
		return "transit"
	case KindTransfer:
		return "transfer"
	case KindVia:
		return "via"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Label is a multi-criteria arrival at a stop. Labels are immutable once
// offered to the stop state, except for the internal dropped flag.
type Label[T TripSchedule] struct {
	Stop    int
	Round   int // number of transit rides so far
	Arrival int
	// Departure is when the origin leg of the journey started, before
	// time-shifting.
	Departure int
	C1        int
	C2        int
	Kind      Kind
	Parent    *Label[T]

	// Transit labels.
	Trip      T
	BoardStop int
	BoardPos  int
	BoardTime int
	AlightPos int

	// Transfer labels.
	Transfer *transfer.Transfer

	// Access labels.
	Access *AccessEgress

	// Via labels.
	ViaDwell    int
	PassThrough bool

	onBoard      bool
	continueTrip bool
	dropped      bool
}

// Vector returns the values the label is compared on.
func (l *Label[T]) Vector() pareto.Vector {
	return pareto.Vector{
		Arrival: l.Arrival,
		Round:   l.Round,
		C1:      l.C1,
		C2:      l.C2,
		OnBoard: l.onBoard,
	}
}

// OnBoard reports whether the stop was reached directly from a vehicle.
func (l *Label[T]) OnBoard() bool { return l.onBoard }

// Transfers returns the number of transfers taken so far.
func (l *Label[T]) Transfers() int {
	if l.Round == 0 {
		return 0
	}
	return l.Round - 1
}

// CanTransfer reports whether a street transfer may follow. Two street legs
// in a row are not allowed, except after a via visit.
func (l *Label[T]) CanTransfer() bool {
	return l.onBoard || (l.Kind == KindVia && !l.PassThrough)
}

// onTrip reports whether l was reached on trip without leaving it.
func (l *Label[T]) onTrip(trip T) bool {
	if l.Kind != KindTransit && !l.continueTrip {
		return false
	}
	return l.Trip.TripIndex() == trip.TripIndex()
}

// ContinuesTrip reports whether l stays on the trip of a pass-through seed
// instead of boarding it.
func (l *Label[T]) ContinuesTrip() bool {
	p := l.Parent
	return l.Kind == KindTransit && p != nil && p.continueTrip &&
		p.onTrip(l.Trip) && l.BoardPos == p.AlightPos
}

// Dropped reports whether the label was evicted from its stop set.
func (l *Label[T]) Dropped() bool { return l.dropped }

// Root returns the first label in the chain.
func (l *Label[T]) Root() *Label[T] {
	for l.Parent != nil {
		l = l.Parent
	}
	return l
}

// Stops returns the stop sequence from the origin to l, without repeating
// a stop for labels that stay in place.
func (l *Label[T]) Stops() []int {
	var rev []int
	for cur := l; cur != nil; cur = cur.Parent {
		if len(rev) > 0 && rev[len(rev)-1] == cur.Stop {
			continue
		}
		rev = append(rev, cur.Stop)
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// OriginDeparture returns the journey start after shifting a walking
// access leg to arrive just in time for the first boarding.
func (l *Label[T]) OriginDeparture(slack SlackProvider) int {
	var firstRide *Label[T]
	cur := l
	for cur.Parent != nil {
		if cur.Kind == KindTransit && cur.Parent.Kind == KindAccess {
			firstRide = cur
		}
		cur = cur.Parent
	}
	root := cur
	if firstRide == nil || root.Access == nil || root.Round > 0 {
		return root.Departure
	}
	latestArrival := firstRide.BoardTime - slack.BoardSlack(root.Stop)
	dep, ok := root.Access.LatestDeparture(latestArrival - root.Access.Duration)
	if !ok || dep < root.Departure {
		return root.Departure
	}
	return dep
}

func (l *Label[T]) String() string {
	return fmt.Sprintf("%s@%d r%d arr=%d c1=%d c2=%d", l.Kind, l.Stop, l.Round, l.Arrival, l.C1, l.C2)
}

const arenaBlockSize = 256

// arena allocates labels in fixed-size blocks so pointers stay valid.
type arena[T TripSchedule] struct {
	cur []Label[T]
	n   int
}

func (a *arena[T]) alloc() *Label[T] {
	if len(a.cur) == cap(a.cur) {
		a.cur = make([]Label[T], 0, arenaBlockSize)
	}
	a.cur = a.cur[:len(a.cur)+1]
	a.n++
	return &a.cur[len(a.cur)-1]
}

// release returns l to the arena if it was the last allocation.
func (a *arena[T]) release(l *Label[T]) {
	if len(a.cur) > 0 && &a.cur[len(a.cur)-1] == l {
		a.cur[len(a.cur)-1] = Label[T]{}
		a.cur = a.cur[:len(a.cur)-1]
		a.n--
	}
}
