package path

import (
	"context"
	"testing"

	"transit_router/pkg/pareto"
	"transit_router/pkg/raptor"
	"transit_router/pkg/transfer"
)

type testTrip struct {
	index int
	stops []int
	times []int
}

func (t *testTrip) TripIndex() int { return t.index }
func (t *testTrip) PatternIndex() int { return t.index }
func (t *testTrip) NumberOfStops() int { return len(t.stops) }
func (t *testTrip) StopIndex(pos int) int { return t.stops[pos] }
func (t *testTrip) Arrival(pos int) int { return t.times[pos] }
func (t *testTrip) Departure(pos int) int { return t.times[pos] }

// testSchedule gives every trip its own pattern.
type testSchedule struct {
	numStops                  int
	trips                     []*testTrip
	board, alight, transferTo int
}

func (s *testSchedule) NumberOfStops() int { return s.numStops }
func (s *testSchedule) BoardSlack(int) int { return s.board }
func (s *testSchedule) AlightSlack(int) int { return s.alight }
func (s *testSchedule) TransferSlack() int { return s.transferTo }

func (s *testSchedule) TripsDepartingFrom(stop, after int) []raptor.Boarding[*testTrip] {
	var out []raptor.Boarding[*testTrip]
	for _, t := range s.trips {
		for pos := 0; pos < len(t.stops)-1; pos++ {
			if t.stops[pos] == stop && t.times[pos] >= after {
				out = append(out, raptor.Boarding[*testTrip]{Trip: t, StopPos: pos})
			}
		}
	}
	return out
}

type search struct {
	schedule *testSchedule
	edges    []transfer.Transfer
	params   raptor.SearchParams
	cost     *raptor.CostCalculator[*testTrip]
}

func newSearch(s *testSchedule, edges ...transfer.Transfer) *search {
	p := raptor.DefaultSearchParams()
	p.Cost = pareto.CostC1
	return &search{schedule: s, edges: edges, params: p, cost: raptor.NewCostCalculator[*testTrip](raptor.DefaultCostParams(), nil)}
}

func (s *search) view(t *testing.T) *transfer.View {
	t.Helper()
	ix, err := transfer.NewIndex(s.schedule.numStops, s.edges)
	if err != nil {
		t.Fatal(err)
	}
	return ix.ForRequest(transfer.Walk)
}

func (s *search) run(t *testing.T, access, egress []raptor.AccessEgress) []*Path[*testTrip] {
	t.Helper()
	w := raptor.NewWorker[*testTrip](s.schedule, s.view(t), s.cost, &s.params, egress, nil, nil)
	if err := w.Run(context.Background(), access, nil); err != nil {
		t.Fatal(err)
	}
	return s.reconstruct(t, w.DestinationArrivals())
}

func (s *search) reconstruct(t *testing.T, arrivals []*raptor.DestinationArrival[*testTrip]) []*Path[*testTrip] {
	t.Helper()
	var paths []*Path[*testTrip]
	for _, d := range arrivals {
		p, err := Reconstruct(d, s.schedule, s.cost)
		if err != nil {
			t.Fatalf("Reconstruct: %v", err)
		}
		paths = append(paths, p)
	}
	return paths
}

func street(stop, seconds int) raptor.AccessEgress {
	return raptor.AccessEgress{Stop: stop, Duration: seconds, C1: seconds * raptor.CentiSecondsPerSecond}
}

func walk(from, to, seconds int) transfer.Transfer {
	return transfer.Transfer{From: from, To: to, Duration: seconds, C1: seconds * raptor.CentiSecondsPerSecond, Modes: transfer.Walk}
}
