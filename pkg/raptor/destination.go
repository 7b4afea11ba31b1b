package raptor

import "transit_router/pkg/pareto"

// ViaExit ends a search segment at a stop instead of the destination.
// Labels reaching Stop become seeds of the next segment.
type ViaExit struct {
	Stop int
	// Dwell is the time spent at the via location (visit only).
	Dwell int
	// PassThrough keeps the traveller on board.
	PassThrough bool
	// Location is the index of the via location the exit belongs to.
	Location int
}

// DestinationArrival is a journey that reached the destination through an
// egress leg, or the end of a segment through a via exit.
type DestinationArrival[T TripSchedule] struct {
	Previous *Label[T]
	Egress   *AccessEgress // nil for via exits
	Exit     *ViaExit      // nil for egress arrivals

	Arrival int
	// Departure is the time-shifted journey start.
	Departure int
	Round     int
	C1        int
	C2        int

	onBoard bool
}

// Vector returns the values the arrival is compared on.
func (d *DestinationArrival[T]) Vector() pareto.Vector {
	return pareto.Vector{
		Arrival:   d.Arrival,
		Departure: d.Departure,
		Round:     d.Round,
		C1:        d.C1,
		C2:        d.C2,
		OnBoard:   d.onBoard,
	}
}

// Transfers returns the number of transfers of the journey.
func (d *DestinationArrival[T]) Transfers() int {
	if d.Round == 0 {
		return 0
	}
	return d.Round - 1
}

func (d *DestinationArrival[T]) continuesTrip() bool {
	return d.Exit != nil && d.Exit.PassThrough && d.Previous.Kind == KindTransit
}

// canEgress reports whether egress e may follow label l. A walking egress
// needs a transit arrival, or a via visit, before it.
func canEgress[T TripSchedule](l *Label[T], e *AccessEgress) bool {
	return l.onBoard || l.Kind == KindVia || e.HasRides()
}
