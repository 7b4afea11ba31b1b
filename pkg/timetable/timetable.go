package timetable

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"transit_router/pkg/linear"
	"transit_router/pkg/path"
	"transit_router/pkg/raptor"
	"transit_router/pkg/transfer"
)

// ErrInvalidTimetable is returned when timetable data is inconsistent.
var ErrInvalidTimetable = errors.New("invalid timetable")

// Stop is a boarding location.
type Stop struct {
	ID          string
	Name        string
	Lat         float64
	Lon         float64
	BoardSlack  int // seconds
	AlightSlack int // seconds
	Priority    path.Priority
}

// Pattern is a sequence of stops served by trips that never overtake each
// other. Trips are ordered by departure at every position.
type Pattern struct {
	Index int
	Route string
	Stops []int32
	Trips []*Trip
}

// Trip is one vehicle run along a pattern. It implements
// raptor.TripSchedule.
type Trip struct {
	ID         string
	index      int
	pattern    *Pattern
	arrivals   []int32
	departures []int32
}

func (t *Trip) TripIndex() int { return t.index }
func (t *Trip) PatternIndex() int { return t.pattern.Index }
func (t *Trip) NumberOfStops() int { return len(t.pattern.Stops) }
func (t *Trip) StopIndex(pos int) int { return int(t.pattern.Stops[pos]) }
func (t *Trip) Arrival(pos int) int { return int(t.arrivals[pos]) }
func (t *Trip) Departure(pos int) int { return int(t.departures[pos]) }
func (t *Trip) Route() string { return t.pattern.Route }
func (t *Trip) String() string { return t.ID }

// PositionOf returns the position of stop on the trip closest to hint, or
// -1 if the trip does not serve it. Loop patterns visit a stop more than
// once, so the hint picks the visit.
func (t *Trip) PositionOf(stop, hint int) int {
	return linear.FindNearest(hint, 0, len(t.pattern.Stops), func(i int) bool {
		return int(t.pattern.Stops[i]) == stop
	})
}

// patternPos is one position of a pattern serving a stop.
type patternPos struct {
	pattern int32
	pos     int32
}

// Timetable is a compiled single service day. It is immutable after
// construction and safe for concurrent use.
type Timetable struct {
	ServiceDate   string
	Stops         []Stop
	Patterns      []*Pattern
	Trips         []*Trip
	Transfers     []transfer.Transfer
	transferSlack int

	// CSR of pattern positions per stop, excluding last positions.
	stopFirst []uint32
	stopPos   []patternPos
	stopByID  map[string]int
	tripByID  map[string]*Trip
}

// NumberOfStops returns the number of stops.
func (tt *Timetable) NumberOfStops() int { return len(tt.Stops) }

func (tt *Timetable) BoardSlack(stop int) int { return tt.Stops[stop].BoardSlack }
func (tt *Timetable) AlightSlack(stop int) int { return tt.Stops[stop].AlightSlack }
func (tt *Timetable) TransferSlack() int { return tt.transferSlack }

// TransferPriority returns the transfer classification of stop.
func (tt *Timetable) TransferPriority(stop int) path.Priority {
	return tt.Stops[stop].Priority
}

// StopByID returns the index of the stop with the given ID.
func (tt *Timetable) StopByID(id string) (int, bool) {
	i, ok := tt.stopByID[id]
	return i, ok
}

// TripByID returns the trip with the given ID.
func (tt *Timetable) TripByID(id string) (*Trip, bool) {
	t, ok := tt.tripByID[id]
	return t, ok
}

// TransferIndex builds the transfer index over the timetable's stops.
func (tt *Timetable) TransferIndex() (*transfer.Index, error) {
	return transfer.NewIndex(len(tt.Stops), tt.Transfers)
}

// TripsDepartingFrom returns the earliest trip departing at or after the
// given time for every pattern position serving stop, ordered by departure.
func (tt *Timetable) TripsDepartingFrom(stop, after int) []raptor.Boarding[*Trip] {
	positions := tt.stopPos[tt.stopFirst[stop]:tt.stopFirst[stop+1]]
	out := make([]raptor.Boarding[*Trip], 0, len(positions))
	for _, pp := range positions {
		trips := tt.Patterns[pp.pattern].Trips
		pos := int(pp.pos)
		i := sort.Search(len(trips), func(i int) bool {
			return int(trips[i].departures[pos]) >= after
		})
		if i < len(trips) {
			out = append(out, raptor.Boarding[*Trip]{Trip: trips[i], StopPos: pos})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Trip.Departure(out[i].StopPos) < out[j].Trip.Departure(out[j].StopPos)
	})
	return out
}

// RouteInput is one route of a timetable before compilation: a stop
// sequence and the trips along it.
type RouteInput struct {
	ID    string
	Stops []int
	Trips []TripInput
}

// TripInput is one trip of a route. Arrivals and Departures have one entry
// per route stop.
type TripInput struct {
	ID         string
	Arrivals   []int
	Departures []int
}

// Builder assembles a Timetable.
type Builder struct {
	ServiceDate   string
	Stops         []Stop
	Routes        []RouteInput
	Transfers     []transfer.Transfer
	TransferSlack int
}

// Build validates the input and compiles it. Trips of one route that
// overtake each other are split into separate patterns.
func (b *Builder) Build() (*Timetable, error) {
	n := len(b.Stops)
	if b.TransferSlack < 0 {
		return nil, fmt.Errorf("%w: negative transfer slack", ErrInvalidTimetable)
	}
	for i := range b.Stops {
		s := &b.Stops[i]
		if s.BoardSlack < 0 || s.AlightSlack < 0 {
			return nil, fmt.Errorf("%w: stop %q: negative slack", ErrInvalidTimetable, s.ID)
		}
	}

	var patterns []*Pattern
	var trips []*Trip
	seen := make(map[string]bool)
	for _, r := range b.Routes {
		if len(r.Stops) < 2 {
			return nil, fmt.Errorf("%w: route %q has fewer than two stops", ErrInvalidTimetable, r.ID)
		}
		stops := make([]int32, len(r.Stops))
		for i, s := range r.Stops {
			if s < 0 || s >= n {
				return nil, fmt.Errorf("%w: route %q: stop %d out of range", ErrInvalidTimetable, r.ID, s)
			}
			stops[i] = int32(s)
		}

		runs := make([]*Trip, 0, len(r.Trips))
		for _, ti := range r.Trips {
			if seen[ti.ID] {
				return nil, fmt.Errorf("%w: duplicate trip %q", ErrInvalidTimetable, ti.ID)
			}
			seen[ti.ID] = true
			t, err := newTrip(ti, len(stops))
			if err != nil {
				return nil, fmt.Errorf("%w: route %q: %v", ErrInvalidTimetable, r.ID, err)
			}
			runs = append(runs, t)
		}
		sort.SliceStable(runs, func(i, j int) bool {
			return runs[i].departures[0] < runs[j].departures[0]
		})

		var groups []*Pattern
		for _, t := range runs {
			var dst *Pattern
			for _, g := range groups {
				if !overtakes(g.Trips[len(g.Trips)-1], t) {
					dst = g
					break
				}
			}
			if dst == nil {
				dst = &Pattern{Index: len(patterns), Route: r.ID, Stops: stops}
				patterns = append(patterns, dst)
				groups = append(groups, dst)
			}
			t.pattern = dst
			dst.Trips = append(dst.Trips, t)
		}
	}

	// Trip indices are pattern-major so the binary format can rebuild
	// patterns from their order alone.
	for _, p := range patterns {
		for _, t := range p.Trips {
			t.index = len(trips)
			trips = append(trips, t)
		}
	}

	return assemble(b.ServiceDate, b.Stops, patterns, trips, b.Transfers, b.TransferSlack)
}

func newTrip(in TripInput, numStops int) (*Trip, error) {
	if in.ID == "" {
		return nil, errors.New("trip without id")
	}
	if len(in.Arrivals) != numStops || len(in.Departures) != numStops {
		return nil, fmt.Errorf("trip %q: %d arrivals and %d departures for %d stops", in.ID, len(in.Arrivals), len(in.Departures), numStops)
	}
	t := &Trip{ID: in.ID, arrivals: make([]int32, numStops), departures: make([]int32, numStops)}
	for i := 0; i < numStops; i++ {
		arr, dep := in.Arrivals[i], in.Departures[i]
		if arr < 0 || dep < arr {
			return nil, fmt.Errorf("trip %q: departs before it arrives at position %d", in.ID, i)
		}
		if i > 0 && arr < in.Departures[i-1] {
			return nil, fmt.Errorf("trip %q: arrives at position %d before leaving position %d", in.ID, i, i-1)
		}
		t.arrivals[i], t.departures[i] = int32(arr), int32(dep)
	}
	return t, nil
}

// overtakes reports whether later runs ahead of earlier anywhere.
func overtakes(earlier, later *Trip) bool {
	for i := range earlier.departures {
		if later.departures[i] < earlier.departures[i] || later.arrivals[i] < earlier.arrivals[i] {
			return true
		}
	}
	return false
}

// assemble validates compiled data and builds the lookup indices.
func assemble(date string, stops []Stop, patterns []*Pattern, trips []*Trip, transfers []transfer.Transfer, slack int) (*Timetable, error) {
	n := len(stops)
	tt := &Timetable{
		ServiceDate:   date,
		Stops:         stops,
		Patterns:      patterns,
		Trips:         trips,
		Transfers:     transfers,
		transferSlack: slack,
		stopByID:      make(map[string]int, n),
		tripByID:      make(map[string]*Trip, len(trips)),
	}
	for i, s := range stops {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: stop %d without id", ErrInvalidTimetable, i)
		}
		if _, dup := tt.stopByID[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate stop %q", ErrInvalidTimetable, s.ID)
		}
		tt.stopByID[s.ID] = i
	}
	for _, t := range trips {
		tt.tripByID[t.ID] = t
	}
	for _, p := range patterns {
		for i := 1; i < len(p.Trips); i++ {
			if overtakes(p.Trips[i-1], p.Trips[i]) {
				return nil, fmt.Errorf("%w: trip %q overtakes %q on pattern %d", ErrInvalidTimetable, p.Trips[i].ID, p.Trips[i-1].ID, p.Index)
			}
		}
	}
	for i, t := range transfers {
		if t.From < 0 || t.From >= n || t.To < 0 || t.To >= n {
			return nil, fmt.Errorf("%w: transfer %d: %w", ErrInvalidTimetable, i, transfer.ErrStopOutOfRange)
		}
	}

	tt.stopFirst = make([]uint32, n+1)
	for _, p := range patterns {
		for _, s := range p.Stops[:len(p.Stops)-1] {
			tt.stopFirst[s+1]++
		}
	}
	for i := 1; i <= n; i++ {
		tt.stopFirst[i] += tt.stopFirst[i-1]
	}
	tt.stopPos = make([]patternPos, tt.stopFirst[n])
	fill := make([]uint32, n)
	copy(fill, tt.stopFirst[:n])
	for pi, p := range patterns {
		for pos, s := range p.Stops[:len(p.Stops)-1] {
			tt.stopPos[fill[s]] = patternPos{pattern: int32(pi), pos: int32(pos)}
			fill[s]++
		}
	}
	return tt, nil
}

// Locations returns the coordinates of every stop, indexed by stop.
func (tt *Timetable) Locations() []orb.Point {
	out := make([]orb.Point, len(tt.Stops))
	for i, s := range tt.Stops {
		out[i] = orb.Point{s.Lon, s.Lat}
	}
	return out
}
