package path

import (
	"errors"
	"fmt"

	"transit_router/pkg/raptor"
)

// ErrInconsistentPath is returned when the legs rebuilt from a label chain
// do not reproduce the criteria the search stored on it.
var ErrInconsistentPath = errors.New("path: inconsistent label chain")

// Reconstruct walks the label chain behind a destination arrival and emits
// its legs. The access leg is shifted to end just before the first
// boarding, transfer walks start right after alighting, and pass-through
// continuations of one trip are merged into a single leg. c1 and c2 are
// recomputed from the legs and must match the arrival.
func Reconstruct[T raptor.TripSchedule](d *raptor.DestinationArrival[T], slack raptor.SlackProvider, cost *raptor.CostCalculator[T]) (*Path[T], error) {
	if d.Egress == nil || d.Previous == nil {
		return nil, fmt.Errorf("%w: arrival without egress", ErrInconsistentPath)
	}
	chain := labelChain(d.Previous)
	root := chain[0]
	if root.Kind != raptor.KindAccess || root.Access == nil {
		return nil, fmt.Errorf("%w: chain starts with a %s label", ErrInconsistentPath, root.Kind)
	}

	p := &Path[T]{}
	acc := root.Access
	dep := d.Previous.OriginDeparture(slack)
	p.Legs = append(p.Legs, Leg[T]{
		Kind:      LegAccess,
		FromStop:  NoStop,
		ToStop:    root.Stop,
		Departure: dep,
		Arrival:   dep + acc.Duration,
		C1:        acc.C1,
		Street:    acc,
	})
	c1, c2 := acc.C1, 0
	rides := acc.Rides

	for i := 1; i < len(chain); i++ {
		l, prev := chain[i], chain[i-1]
		switch l.Kind {
		case raptor.KindTransit:
			if l.ContinuesTrip() {
				last := &p.Legs[len(p.Legs)-1]
				if last.Kind != LegTransit || last.Trip.TripIndex() != l.Trip.TripIndex() {
					return nil, fmt.Errorf("%w: continuation of trip %d without a ride on it", ErrInconsistentPath, l.Trip.TripIndex())
				}
				inc := cost.Transit(prev.Arrival, l.Arrival)
				last.ToStop = l.Stop
				last.AlightPos = l.AlightPos
				last.Arrival = l.Trip.Arrival(l.AlightPos)
				last.C1 += inc
				c1 += inc
				continue
			}
			wait := 0
			if prev.Round > 0 {
				wait = l.BoardTime - prev.Arrival
			}
			legC1 := cost.Boarding(prev.Round == 0, prev.Arrival, l.BoardTime) + cost.Transit(l.BoardTime, l.Arrival)
			c1 += legC1
			c2 = cost.BoardingC2(c2, l.Trip)
			rides++
			p.Legs = append(p.Legs, Leg[T]{
				Kind:      LegTransit,
				FromStop:  l.BoardStop,
				ToStop:    l.Stop,
				Departure: l.BoardTime,
				Arrival:   l.Trip.Arrival(l.AlightPos),
				C1:        legC1,
				Trip:      l.Trip,
				BoardPos:  l.BoardPos,
				AlightPos: l.AlightPos,
				Wait:      wait,
			})

		case raptor.KindTransfer:
			tr := l.Transfer
			p.Legs = append(p.Legs, Leg[T]{
				Kind:      LegTransfer,
				FromStop:  prev.Stop,
				ToStop:    l.Stop,
				Departure: prev.Arrival,
				Arrival:   prev.Arrival + tr.Duration,
				C1:        tr.C1,
				Transfer:  tr,
			})
			c1 += tr.C1

		case raptor.KindVia:
			p.ViaStops = append(p.ViaStops, l.Stop)
			c1 += l.C1 - prev.C1

		default:
			return nil, fmt.Errorf("%w: %s label inside the chain", ErrInconsistentPath, l.Kind)
		}
	}

	last := chain[len(chain)-1]
	e := d.Egress
	edep, ok := e.EarliestDeparture(last.Arrival)
	if !ok {
		return nil, fmt.Errorf("%w: egress at stop %d closed at %d", ErrInconsistentPath, e.Stop, last.Arrival)
	}
	egressC1 := cost.Wait(edep-last.Arrival) + e.C1
	c1 += egressC1
	rides += e.Rides
	p.Legs = append(p.Legs, Leg[T]{
		Kind:      LegEgress,
		FromStop:  last.Stop,
		ToStop:    NoStop,
		Departure: edep,
		Arrival:   edep + e.Duration,
		C1:        egressC1,
		Street:    e,
	})

	p.Departure = p.Legs[0].Departure
	p.Arrival = p.Legs[len(p.Legs)-1].Arrival
	p.Rides = rides
	p.Transfers = max(0, rides-1)
	p.C1 = c1
	p.C2 = c2

	switch {
	case p.Arrival != d.Arrival:
		return nil, fmt.Errorf("%w: arrival %d, search found %d", ErrInconsistentPath, p.Arrival, d.Arrival)
	case p.Departure != d.Departure:
		return nil, fmt.Errorf("%w: departure %d, search found %d", ErrInconsistentPath, p.Departure, d.Departure)
	case p.Rides != d.Round:
		return nil, fmt.Errorf("%w: %d rides, search found %d", ErrInconsistentPath, p.Rides, d.Round)
	case p.C1 != d.C1:
		return nil, fmt.Errorf("%w: c1 %d, search found %d", ErrInconsistentPath, p.C1, d.C1)
	case p.C2 != d.C2:
		return nil, fmt.Errorf("%w: c2 %d, search found %d", ErrInconsistentPath, p.C2, d.C2)
	}
	return p, nil
}

// labelChain returns the chain ending in l, origin first. A cycle is a
// programming error and panics.
func labelChain[T raptor.TripSchedule](l *raptor.Label[T]) []*raptor.Label[T] {
	seen := make(map[*raptor.Label[T]]bool)
	var rev []*raptor.Label[T]
	for cur := l; cur != nil; cur = cur.Parent {
		if seen[cur] {
			panic(fmt.Sprintf("path: label chain cycles at %v", cur))
		}
		seen[cur] = true
		rev = append(rev, cur)
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}
