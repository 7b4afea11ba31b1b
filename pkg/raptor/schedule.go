package raptor

import "transit_router/pkg/transfer"

// TripSchedule is the view of a single trip the search needs. Times are
// seconds since the service-day midnight and may exceed 24h.
// Implementations must be immutable; they are shared between searches.
type TripSchedule interface {
	// TripIndex identifies the trip within the timetable.
	TripIndex() int
	// PatternIndex identifies the stop pattern (route variant) of the trip.
	PatternIndex() int
	NumberOfStops() int
	StopIndex(pos int) int
	Arrival(pos int) int
	Departure(pos int) int
}

// Boarding is a trip that can be boarded at a given position of its pattern.
type Boarding[T TripSchedule] struct {
	Trip    T
	StopPos int
}

// ScheduleProvider supplies the compiled trip schedule of one service day.
type ScheduleProvider[T TripSchedule] interface {
	NumberOfStops() int
	// TripsDepartingFrom returns, for every pattern position serving stop,
	// the earliest trip departing at or after the given time, ordered by
	// departure time.
	TripsDepartingFrom(stop, after int) []Boarding[T]
	BoardSlack(stop int) int
	AlightSlack(stop int) int
	TransferSlack() int
}

// SlackProvider is the slack part of ScheduleProvider, used when paths are
// rebuilt after the search.
type SlackProvider interface {
	BoardSlack(stop int) int
	AlightSlack(stop int) int
	TransferSlack() int
}

// TransferProvider is the transfer graph as seen by one search.
type TransferProvider interface {
	From(stop int) []transfer.Transfer
}
