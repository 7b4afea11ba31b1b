// Package path rebuilds itineraries from search labels and ranks them.
package path

import (
	"strconv"
	"strings"

	"transit_router/pkg/pareto"
	"transit_router/pkg/raptor"
	"transit_router/pkg/transfer"
)

// LegKind identifies the mode of a leg.
type LegKind uint8

const (
	LegAccess LegKind = iota
	LegTransit
	LegTransfer
	LegEgress
)

func (k LegKind) String() string {
	switch k {
	case LegAccess:
		return "access"
	case LegTransit:
		return "transit"
	case LegTransfer:
		return "transfer"
	case LegEgress:
		return "egress"
	}
	return "LegKind(" + strconv.Itoa(int(k)) + ")"
}

// NoStop marks the origin or destination end of an access or egress leg.
const NoStop = -1

// Leg is one part of a path. Times are seconds since service-day midnight.
type Leg[T raptor.TripSchedule] struct {
	Kind      LegKind
	FromStop  int
	ToStop    int
	Departure int
	Arrival   int
	C1        int

	// Transit legs.
	Trip      T
	BoardPos  int
	AlightPos int
	Wait      int // seconds waited at the boarding stop, 0 for the first ride

	Transfer *transfer.Transfer
	Street   *raptor.AccessEgress // access and egress legs
}

// Duration returns the leg duration in seconds.
func (l *Leg[T]) Duration() int { return l.Arrival - l.Departure }

// Walking reports whether the leg is on foot.
func (l *Leg[T]) Walking() bool { return l.Kind != LegTransit }

// Path is a complete itinerary from origin to destination.
type Path[T raptor.TripSchedule] struct {
	Legs     []Leg[T]
	ViaStops []int

	Departure int
	Arrival   int
	Rides     int
	Transfers int
	C1        int
	C2        int

	TransferPriorityCost  int
	WaitTimeOptimizedCost int
	BreakTieCost          int
}

// Vector returns the values the path is compared on.
func (p *Path[T]) Vector() pareto.Vector {
	return pareto.Vector{
		Arrival:   p.Arrival,
		Departure: p.Departure,
		Round:     p.Rides,
		C1:        p.C1,
		C2:        p.C2,
	}
}

// Duration returns the total travel time in seconds.
func (p *Path[T]) Duration() int { return p.Arrival - p.Departure }

// RankKey is the generalized cost used to order Pareto-equal paths.
func (p *Path[T]) RankKey() int { return p.C1 + p.WaitTimeOptimizedCost }

// TransitLegs returns the transit legs in travel order.
func (p *Path[T]) TransitLegs() []*Leg[T] {
	var out []*Leg[T]
	for i := range p.Legs {
		if p.Legs[i].Kind == LegTransit {
			out = append(out, &p.Legs[i])
		}
	}
	return out
}

// Signature identifies the stop and trip sequence of the path. Two paths
// with the same signature differ only in timing.
func (p *Path[T]) Signature() string {
	var b strings.Builder
	for i := range p.Legs {
		leg := &p.Legs[i]
		if i > 0 {
			b.WriteByte('>')
		}
		switch leg.Kind {
		case LegAccess:
			b.WriteString("A")
			b.WriteString(strconv.Itoa(leg.ToStop))
		case LegTransit:
			b.WriteString("T")
			b.WriteString(strconv.Itoa(leg.Trip.TripIndex()))
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(leg.FromStop))
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(leg.ToStop))
		case LegTransfer:
			b.WriteString("W")
			b.WriteString(strconv.Itoa(leg.FromStop))
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(leg.ToStop))
		case LegEgress:
			b.WriteString("E")
			b.WriteString(strconv.Itoa(leg.FromStop))
		}
	}
	return b.String()
}
