package raptor

import (
	"context"
	"errors"
	"testing"

	"transit_router/pkg/pareto"
)

func searchParams(edt int, cost pareto.Cost) SearchParams {
	p := DefaultSearchParams()
	p.EarliestDeparture = edt
	p.Cost = cost
	return p
}

func newTestWorker(s *testSchedule, tp TransferProvider, p SearchParams, egress []AccessEgress, exits []ViaExit) *Worker[*testTrip] {
	cost := NewCostCalculator[*testTrip](DefaultCostParams(), nil)
	return NewWorker[*testTrip](s, tp, cost, &p, egress, exits, nil)
}

func runWorker(t *testing.T, s *testSchedule, tp TransferProvider, p SearchParams, access, egress []AccessEgress) *Worker[*testTrip] {
	t.Helper()
	w := newTestWorker(s, tp, p, egress, nil)
	if err := w.Run(context.Background(), access, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return w
}

// abcNetwork: trip 0 runs A(0) 00:10 -> B(1) 00:20 -> C(2) 00:30, trip 1
// runs B'(3) at 00:23 to C at secondArrival, B -> B' is a 120s walk.
func abcNetwork(t *testing.T, secondArrival int) (*testSchedule, TransferProvider) {
	s := &testSchedule{numStops: 4, trips: []*testTrip{
		trip(0, 0, []int{0, 1, 2}, []int{hms(0, 10, 0), hms(0, 20, 0), hms(0, 30, 0)}),
		trip(1, 1, []int{3, 2}, []int{hms(0, 23, 0), secondArrival}),
	}}
	return s, transfers(t, 4, walk(1, 3, 120))
}

func TestTransferAlternativePruned(t *testing.T) {
	for _, cost := range []pareto.Cost{pareto.CostNone, pareto.CostC1} {
		t.Run(cost.String(), func(t *testing.T) {
			s, tp := abcNetwork(t, hms(0, 33, 0))
			w := runWorker(t, s, tp, searchParams(hms(0, 10, 0), cost),
				[]AccessEgress{leg(0, 0)}, []AccessEgress{leg(2, 0)})

			got := w.DestinationArrivals()
			if len(got) != 1 {
				t.Fatalf("got %d arrivals, want 1: %v", len(got), got)
			}
			d := got[0]
			if d.Arrival != hms(0, 30, 0) || d.Transfers() != 0 || d.Round != 1 {
				t.Errorf("arrival=%d round=%d, want direct ride arriving 00:30", d.Arrival, d.Round)
			}
			if d.Departure != hms(0, 10, 0) {
				t.Errorf("departure = %d, want %d", d.Departure, hms(0, 10, 0))
			}
			if cost == pareto.CostC1 && d.C1 != 6000+120000 {
				t.Errorf("c1 = %d, want %d", d.C1, 6000+120000)
			}
		})
	}
}

func TestTransferAlternativeKeptWhenFaster(t *testing.T) {
	s, tp := abcNetwork(t, hms(0, 28, 20))
	w := runWorker(t, s, tp, searchParams(hms(0, 10, 0), pareto.CostC1),
		[]AccessEgress{leg(0, 0)}, []AccessEgress{leg(2, 0)})

	got := w.DestinationArrivals()
	if len(got) != 2 {
		t.Fatalf("got %d arrivals, want 2", len(got))
	}
	rounds := map[int]int{}
	for _, d := range got {
		rounds[d.Round] = d.Arrival
	}
	if rounds[1] != hms(0, 30, 0) || rounds[2] != hms(0, 28, 20) {
		t.Errorf("arrivals by round = %v", rounds)
	}
}

func TestRangeIterationsKeepLaterDepartures(t *testing.T) {
	s := &testSchedule{numStops: 2, trips: []*testTrip{
		trip(0, 0, []int{0, 1}, []int{600, 1200}),
		trip(1, 0, []int{0, 1}, []int{1200, 1800}),
	}}
	tp := transfers(t, 2)
	p := searchParams(0, pareto.CostC1)
	p.SearchWindow = 1200
	p.IterationStep = 600

	w := runWorker(t, s, tp, p, []AccessEgress{leg(0, 60)}, []AccessEgress{leg(1, 0)})
	got := w.DestinationArrivals()
	if len(got) != 2 {
		t.Fatalf("got %d arrivals, want 2", len(got))
	}
	byArrival := map[int]int{}
	for _, d := range got {
		byArrival[d.Arrival] = d.Departure
	}
	// The access walk is shifted to end as the trip departs.
	if byArrival[1200] != 540 || byArrival[1800] != 1140 {
		t.Errorf("departures by arrival = %v", byArrival)
	}
	if st := w.Stats(); st.Iterations != 3 {
		t.Errorf("iterations = %d, want 3", st.Iterations)
	}
}

// twoRideNetwork: a slow direct trip and a faster two-ride alternative.
func twoRideNetwork(t *testing.T) (*testSchedule, TransferProvider) {
	return &testSchedule{numStops: 3, trips: []*testTrip{
		trip(0, 0, []int{0, 2}, []int{600, 3600}),
		trip(1, 1, []int{0, 1}, []int{600, 900}),
		trip(2, 2, []int{1, 2}, []int{1000, 1500}),
	}}, transfers(t, 3)
}

func bestArrival(ds []*DestinationArrival[*testTrip]) int {
	best := -1
	for _, d := range ds {
		if best < 0 || d.Arrival < best {
			best = d.Arrival
		}
	}
	return best
}

func TestMoreRoundsNeverWorse(t *testing.T) {
	s, tp := twoRideNetwork(t)
	prev := -1
	for rounds := 1; rounds <= 3; rounds++ {
		p := searchParams(0, pareto.CostNone)
		p.MaxRounds = rounds
		w := runWorker(t, s, tp, p, []AccessEgress{leg(0, 0)}, []AccessEgress{leg(2, 0)})
		best := bestArrival(w.DestinationArrivals())
		if best < 0 {
			t.Fatalf("rounds=%d: no arrival", rounds)
		}
		if prev >= 0 && best > prev {
			t.Errorf("rounds=%d: best arrival %d worse than %d", rounds, best, prev)
		}
		prev = best
		for _, d := range w.DestinationArrivals() {
			if d.Round > rounds {
				t.Errorf("rounds=%d: arrival used %d rides", rounds, d.Round)
			}
		}
	}
	if prev != 1500 {
		t.Errorf("best arrival = %d, want 1500", prev)
	}
}

func TestMaxRoundsOne(t *testing.T) {
	s, tp := twoRideNetwork(t)
	p := searchParams(0, pareto.CostNone)
	p.MaxRounds = 1
	w := runWorker(t, s, tp, p, []AccessEgress{leg(0, 0)}, []AccessEgress{leg(2, 0)})
	got := w.DestinationArrivals()
	if len(got) != 1 || got[0].Arrival != 3600 {
		t.Fatalf("got %v, want the direct trip only", got)
	}
}

func TestLatestArrivalPrunes(t *testing.T) {
	s, tp := twoRideNetwork(t)
	p := searchParams(0, pareto.CostNone)
	p.LatestArrival = 2000
	w := runWorker(t, s, tp, p, []AccessEgress{leg(0, 0)}, []AccessEgress{leg(2, 0)})
	for _, d := range w.DestinationArrivals() {
		if d.Arrival > 2000 {
			t.Errorf("arrival %d after latest arrival", d.Arrival)
		}
	}
	if len(w.DestinationArrivals()) != 1 {
		t.Errorf("got %d arrivals, want 1", len(w.DestinationArrivals()))
	}
}

func TestRunCancelled(t *testing.T) {
	s, tp := twoRideNetwork(t)
	w := newTestWorker(s, tp, searchParams(0, pareto.CostC1), []AccessEgress{leg(2, 0)}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Run(ctx, []AccessEgress{leg(0, 0)}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
}

func TestWalkingAccessCannotEgressDirectly(t *testing.T) {
	s, tp := twoRideNetwork(t)
	w := runWorker(t, s, tp, searchParams(0, pareto.CostC1), []AccessEgress{leg(2, 30)}, []AccessEgress{leg(2, 0)})
	if n := len(w.DestinationArrivals()); n != 0 {
		t.Fatalf("got %d arrivals from a walk-only journey", n)
	}

	flex := AccessEgress{Stop: 2, Duration: 900, C1: 90000, Rides: 1, ReachedOnBoard: true}
	w = runWorker(t, s, tp, searchParams(0, pareto.CostC1), []AccessEgress{flex}, []AccessEgress{leg(2, 0)})
	got := w.DestinationArrivals()
	if len(got) == 0 {
		t.Fatal("flex access reached on board should reach the destination")
	}
	if got[0].Arrival != 900 || got[0].Round != 1 {
		t.Errorf("flex arrival=%d round=%d", got[0].Arrival, got[0].Round)
	}
}

func TestEgressOpeningHoursChargeWait(t *testing.T) {
	s, tp := abcNetwork(t, hms(0, 33, 0))
	egress := leg(2, 60)
	egress.Opening = &Window{Open: 2000, Close: 4000}
	w := runWorker(t, s, tp, searchParams(hms(0, 10, 0), pareto.CostC1), []AccessEgress{leg(0, 0)}, []AccessEgress{egress})

	got := w.DestinationArrivals()
	if len(got) != 1 {
		t.Fatalf("got %d arrivals, want 1", len(got))
	}
	if got[0].Arrival != 2060 {
		t.Errorf("arrival = %d, want 2060", got[0].Arrival)
	}
	if want := 126000 + 200*100 + 6000; got[0].C1 != want {
		t.Errorf("c1 = %d, want %d", got[0].C1, want)
	}
}

func TestDebuggerFiltersByStop(t *testing.T) {
	s, tp := abcNetwork(t, hms(0, 33, 0))
	var events []Event[*testTrip]
	debug := NewDebugger[*testTrip](DebugHandlerFunc[*testTrip](func(e Event[*testTrip]) {
		events = append(events, e)
	}), DebugFilter{Stops: []int{2}})

	p := searchParams(hms(0, 10, 0), pareto.CostC1)
	cost := NewCostCalculator[*testTrip](DefaultCostParams(), nil)
	w := NewWorker[*testTrip](s, tp, cost, &p, []AccessEgress{leg(2, 0)}, nil, debug)
	if err := w.Run(context.Background(), []AccessEgress{leg(0, 0)}, nil); err != nil {
		t.Fatal(err)
	}

	if len(events) == 0 {
		t.Fatal("no events")
	}
	var accepted, rejected int
	for _, e := range events {
		if e.Label.Stop != 2 {
			t.Errorf("event at stop %d passed the filter", e.Label.Stop)
		}
		switch e.Kind {
		case EventAccepted:
			accepted++
		case EventRejected:
			rejected++
			if e.By == nil {
				t.Error("rejection without a cause")
			}
		}
	}
	// The direct ride is accepted at C, the later transfer alternative rejected.
	if accepted != 1 || rejected != 1 {
		t.Errorf("accepted=%d rejected=%d, want 1 and 1", accepted, rejected)
	}
}

func TestDebuggerEventLabelsStayIntact(t *testing.T) {
	s, tp := abcNetwork(t, hms(0, 33, 0))
	type seen struct {
		e    Event[*testTrip]
		snap Label[*testTrip]
	}
	var events []seen
	debug := NewDebugger[*testTrip](DebugHandlerFunc[*testTrip](func(e Event[*testTrip]) {
		events = append(events, seen{e, *e.Label})
	}), DebugFilter{})

	p := searchParams(hms(0, 10, 0), pareto.CostC1)
	cost := NewCostCalculator[*testTrip](DefaultCostParams(), nil)
	w := NewWorker[*testTrip](s, tp, cost, &p, []AccessEgress{leg(2, 0)}, nil, debug)
	if err := w.Run(context.Background(), []AccessEgress{leg(0, 0)}, nil); err != nil {
		t.Fatal(err)
	}

	var rejected int
	for _, ev := range events {
		if ev.e.Kind == EventRejected {
			rejected++
		}
		if l := ev.e.Label; l.Stop != ev.snap.Stop || l.Arrival != ev.snap.Arrival || l.C1 != ev.snap.C1 {
			t.Errorf("%s label changed after the event: %v, was stop %d arrival %d",
				ev.e.Kind, l, ev.snap.Stop, ev.snap.Arrival)
		}
	}
	if rejected == 0 {
		t.Error("no rejected events")
	}
}

func TestDebuggerFiltersByPath(t *testing.T) {
	d := NewDebugger[*testTrip](DebugHandlerFunc[*testTrip](func(Event[*testTrip]) {}), DebugFilter{Path: []int{0, 1, 3}})
	root := &Label[*testTrip]{Stop: 0, Kind: KindAccess}
	atB := &Label[*testTrip]{Stop: 1, Kind: KindTransit, Parent: root}
	atC := &Label[*testTrip]{Stop: 2, Kind: KindTransit, Parent: atB}
	walked := &Label[*testTrip]{Stop: 3, Kind: KindTransfer, Parent: atB}

	if !d.matches(atB) || !d.matches(walked) {
		t.Error("labels on the path should match")
	}
	if d.matches(atC) {
		t.Error("label off the path matched")
	}
	if NewDebugger[*testTrip](nil, DebugFilter{}) != nil {
		t.Error("nil handler should give a nil debugger")
	}
}

func TestPassThroughContinuesTrip(t *testing.T) {
	s := &testSchedule{numStops: 3, trips: []*testTrip{
		trip(0, 0, []int{0, 1, 2}, []int{600, 900, 1200}),
	}}
	tp := transfers(t, 3)
	p := searchParams(0, pareto.CostC1)

	first := newTestWorker(s, tp, p, nil, []ViaExit{{Stop: 1, PassThrough: true}})
	if err := first.Run(context.Background(), []AccessEgress{leg(0, 0)}, nil); err != nil {
		t.Fatal(err)
	}
	seeds := first.ViaSeeds()
	if len(seeds) != 1 {
		t.Fatalf("got %d seeds, want 1", len(seeds))
	}
	if s := seeds[0]; !s.OnBoard() || !s.continueTrip || s.Kind != KindVia || s.Arrival != 900 {
		t.Fatalf("seed = %v onBoard=%v continue=%v", s, s.OnBoard(), s.continueTrip)
	}

	second := newTestWorker(s, tp, p, []AccessEgress{leg(2, 0)}, nil)
	if err := second.Run(context.Background(), nil, seeds); err != nil {
		t.Fatal(err)
	}
	got := second.DestinationArrivals()
	if len(got) != 1 {
		t.Fatalf("got %d arrivals, want 1", len(got))
	}
	d := got[0]
	if d.Arrival != 1200 || d.Round != 1 {
		t.Errorf("arrival=%d round=%d, want 1200 without reboarding", d.Arrival, d.Round)
	}
	if d.C1 != 6000+60000 {
		t.Errorf("c1 = %d, want %d", d.C1, 66000)
	}
	if d.Departure != 600 {
		t.Errorf("departure = %d, want 600", d.Departure)
	}
}

func TestVisitDwellsBeforeNextSegment(t *testing.T) {
	s := &testSchedule{numStops: 3, trips: []*testTrip{
		trip(0, 0, []int{0, 1, 2}, []int{600, 900, 1200}),
		trip(1, 1, []int{1, 2}, []int{1300, 1500}),
	}}
	tp := transfers(t, 3)
	p := searchParams(0, pareto.CostC1)

	first := newTestWorker(s, tp, p, nil, []ViaExit{{Stop: 1, Dwell: 300}})
	if err := first.Run(context.Background(), []AccessEgress{leg(0, 0)}, nil); err != nil {
		t.Fatal(err)
	}
	seeds := first.ViaSeeds()
	if len(seeds) != 1 || seeds[0].Arrival != 1200 || seeds[0].ViaDwell != 300 {
		t.Fatalf("seeds = %v", seeds)
	}

	second := newTestWorker(s, tp, p, []AccessEgress{leg(2, 0)}, nil)
	if err := second.Run(context.Background(), nil, seeds); err != nil {
		t.Fatal(err)
	}
	got := second.DestinationArrivals()
	if len(got) != 1 {
		t.Fatalf("got %d arrivals, want 1", len(got))
	}
	if d := got[0]; d.Arrival != 1500 || d.Round != 2 || d.C1 != 36000+6000+10000+20000 {
		t.Errorf("arrival=%d round=%d c1=%d", d.Arrival, d.Round, d.C1)
	}
}

func TestLabelStopsAndArena(t *testing.T) {
	var a arena[*testTrip]
	root := a.alloc()
	*root = Label[*testTrip]{Stop: 4, Kind: KindAccess}
	via := a.alloc()
	*via = Label[*testTrip]{Stop: 4, Kind: KindVia, Parent: root}
	next := a.alloc()
	*next = Label[*testTrip]{Stop: 7, Kind: KindTransit, Parent: via, Round: 1}

	if got := next.Stops(); len(got) != 2 || got[0] != 4 || got[1] != 7 {
		t.Errorf("Stops = %v, want [4 7]", got)
	}
	if next.Root() != root {
		t.Error("Root did not return the access label")
	}
	a.release(root) // not the last allocation
	if a.n != 3 {
		t.Errorf("n = %d after releasing an older label", a.n)
	}
	a.release(next)
	if a.n != 2 {
		t.Errorf("n = %d after releasing the last label", a.n)
	}
}
