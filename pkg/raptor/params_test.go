package raptor

import (
	"errors"
	"reflect"
	"testing"

	"transit_router/pkg/pareto"
)

func TestDepartureTimes(t *testing.T) {
	tests := []struct {
		name        string
		edt, window int
		step        int
		want        []int
	}{
		{"single", 600, 0, 60, []int{600}},
		{"exact steps", 0, 180, 60, []int{180, 120, 60, 0}},
		{"uneven", 100, 150, 60, []int{250, 190, 130, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := SearchParams{EarliestDeparture: tt.edt, SearchWindow: tt.window, IterationStep: tt.step}
			if got := p.DepartureTimes(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DepartureTimes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchParamsValidate(t *testing.T) {
	valid := DefaultSearchParams()
	valid.EarliestDeparture = 3600
	valid.SearchWindow = 1800

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid params: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(p *SearchParams)
	}{
		{"negative rounds", func(p *SearchParams) { p.MaxRounds = -1 }},
		{"negative window", func(p *SearchParams) { p.SearchWindow = -1 }},
		{"no step", func(p *SearchParams) { p.IterationStep = 0 }},
		{"arrival inside window", func(p *SearchParams) { p.LatestArrival = 4000 }},
		{"no mode", func(p *SearchParams) { p.Mode = 0 }},
		{"tightening relax", func(p *SearchParams) { p.Relax = pareto.RelaxFunction{Ratio: 0.5} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Validate = %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestBuilderCopyOnWrite(t *testing.T) {
	p := DefaultSearchParams()
	if got := p.Builder().MaxRounds(p.MaxRounds).Build(); got != &p {
		t.Error("unchanged builder should return the original")
	}
	q := p.Builder().MaxRounds(3).SearchWindow(600).Build()
	if q == &p {
		t.Fatal("changed builder returned the original")
	}
	if q.MaxRounds != 3 || q.SearchWindow != 600 || p.MaxRounds != 6 {
		t.Errorf("q=%+v p=%+v", *q, p)
	}
}

func TestCostCalculator(t *testing.T) {
	c := NewCostCalculator[*testTrip](CostParams{BoardCost: 60, TransferCost: 30, WaitReluctance: 0.5, TransitReluctance: 2}, func(t *testTrip) int {
		return t.pattern + 1
	})
	if got := c.Boarding(true, 0, 500); got != 6000 {
		t.Errorf("first boarding = %d, want 6000", got)
	}
	// 60s board + 30s transfer + 100s wait at 0.5
	if got := c.Boarding(false, 400, 500); got != 6000+3000+5000 {
		t.Errorf("boarding = %d", got)
	}
	if got := c.Transit(500, 800); got != 60000 {
		t.Errorf("transit = %d, want 60000", got)
	}
	if got := c.BoardingC2(1, &testTrip{pattern: 4}); got != 6 {
		t.Errorf("c2 = %d, want 6", got)
	}
	if got := NewCostCalculator[*testTrip](DefaultCostParams(), nil).BoardingC2(7, &testTrip{}); got != 7 {
		t.Errorf("c2 without function = %d, want 7", got)
	}
}

func TestAccessEgressWindow(t *testing.T) {
	a := AccessEgress{Stop: 1, Duration: 60, Opening: &Window{Open: 100, Close: 200}}
	if dep, ok := a.EarliestDeparture(50); !ok || dep != 100 {
		t.Errorf("EarliestDeparture(50) = %d, %v", dep, ok)
	}
	if _, ok := a.EarliestDeparture(250); ok {
		t.Error("EarliestDeparture after close should fail")
	}
	if dep, ok := a.LatestDeparture(250); !ok || dep != 200 {
		t.Errorf("LatestDeparture(250) = %d, %v", dep, ok)
	}
	if _, ok := a.LatestDeparture(50); ok {
		t.Error("LatestDeparture before open should fail")
	}
	if err := a.Validate(1); err == nil {
		t.Error("stop out of range accepted")
	}
	bad := AccessEgress{Stop: 0, ReachedOnBoard: true}
	if err := bad.Validate(1); err == nil {
		t.Error("on board without rides accepted")
	}
}
