package raptor

import "fmt"

// Window is an opening-hours interval in seconds since service-day
// midnight; the leg may start at any time in [Open, Close].
type Window struct {
	Open  int
	Close int
}

// AccessEgress connects the origin to a stop, or a stop to the destination.
type AccessEgress struct {
	Stop     int
	Duration int // seconds
	C1       int // generalized cost, centi-seconds

	// Rides is the number of transit rides already inside the leg (flex).
	Rides int
	// ReachedOnBoard marks access legs that end while still on board, so a
	// transfer may follow directly.
	ReachedOnBoard bool
	// Opening restricts when the leg can start. Nil means always open.
	Opening *Window
	// ViaVisited is the number of via locations the leg itself passes.
	ViaVisited int
}

// HasRides reports whether the leg contains transit.
func (a *AccessEgress) HasRides() bool { return a.Rides > 0 }

// EarliestDeparture returns the earliest start at or after t.
func (a *AccessEgress) EarliestDeparture(t int) (int, bool) {
	if a.Opening == nil {
		return t, true
	}
	if t < a.Opening.Open {
		return a.Opening.Open, true
	}
	if t > a.Opening.Close {
		return 0, false
	}
	return t, true
}

// LatestDeparture returns the latest start at or before t.
func (a *AccessEgress) LatestDeparture(t int) (int, bool) {
	if a.Opening == nil {
		return t, true
	}
	if t > a.Opening.Close {
		return a.Opening.Close, true
	}
	if t < a.Opening.Open {
		return 0, false
	}
	return t, true
}

// Validate checks the leg against a network of numStops stops.
func (a *AccessEgress) Validate(numStops int) error {
	if a.Stop < 0 || a.Stop >= numStops {
		return fmt.Errorf("stop %d out of range [0, %d)", a.Stop, numStops)
	}
	if a.Duration < 0 || a.C1 < 0 || a.Rides < 0 || a.ViaVisited < 0 {
		return fmt.Errorf("stop %d: negative duration, cost, rides or via count", a.Stop)
	}
	if a.ReachedOnBoard && a.Rides == 0 {
		return fmt.Errorf("stop %d: reached on board without rides", a.Stop)
	}
	if a.Opening != nil && a.Opening.Close < a.Opening.Open {
		return fmt.Errorf("stop %d: opening closes (%d) before it opens (%d)", a.Stop, a.Opening.Close, a.Opening.Open)
	}
	return nil
}

func (a *AccessEgress) String() string {
	return fmt.Sprintf("stop %d %ds c1=%d rides=%d", a.Stop, a.Duration, a.C1, a.Rides)
}
