package raptor

import (
	"sort"
	"testing"

	"transit_router/pkg/transfer"
)

type testTrip struct {
	index, pattern int
	stops          []int
	arr, dep       []int
}

func (t *testTrip) TripIndex() int { return t.index }
func (t *testTrip) PatternIndex() int { return t.pattern }
func (t *testTrip) NumberOfStops() int { return len(t.stops) }
func (t *testTrip) StopIndex(pos int) int { return t.stops[pos] }
func (t *testTrip) Arrival(pos int) int { return t.arr[pos] }
func (t *testTrip) Departure(pos int) int { return t.dep[pos] }

// trip builds a trip that dwells zero seconds at every stop.
func trip(index, pattern int, stops []int, times []int) *testTrip {
	return &testTrip{index: index, pattern: pattern, stops: stops, arr: times, dep: times}
}

type testSchedule struct {
	numStops      int
	trips         []*testTrip
	boardSlack    int
	alightSlack   int
	transferSlack int
}

func (s *testSchedule) NumberOfStops() int { return s.numStops }
func (s *testSchedule) BoardSlack(int) int { return s.boardSlack }
func (s *testSchedule) AlightSlack(int) int { return s.alightSlack }
func (s *testSchedule) TransferSlack() int { return s.transferSlack }

func (s *testSchedule) TripsDepartingFrom(stop, after int) []Boarding[*testTrip] {
	type key struct{ pattern, pos int }
	best := map[key]Boarding[*testTrip]{}
	for _, t := range s.trips {
		for pos := 0; pos < len(t.stops)-1; pos++ {
			if t.stops[pos] != stop || t.dep[pos] < after {
				continue
			}
			k := key{t.pattern, pos}
			if b, ok := best[k]; !ok || t.dep[pos] < b.Trip.dep[pos] {
				best[k] = Boarding[*testTrip]{Trip: t, StopPos: pos}
			}
		}
	}
	out := make([]Boarding[*testTrip], 0, len(best))
	for _, b := range best {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].Trip.dep[out[i].StopPos], out[j].Trip.dep[out[j].StopPos]
		if di != dj {
			return di < dj
		}
		return out[i].Trip.pattern < out[j].Trip.pattern
	})
	return out
}

func transfers(t *testing.T, numStops int, edges ...transfer.Transfer) TransferProvider {
	t.Helper()
	ix, err := transfer.NewIndex(numStops, edges)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return ix.ForRequest(transfer.Walk)
}

func walk(from, to, seconds int) transfer.Transfer {
	return transfer.Transfer{From: from, To: to, Duration: seconds, C1: seconds * CentiSecondsPerSecond, Modes: transfer.Walk}
}

func leg(stop, seconds int) AccessEgress {
	return AccessEgress{Stop: stop, Duration: seconds, C1: seconds * CentiSecondsPerSecond}
}

func hms(h, m, s int) int { return h*3600 + m*60 + s }
