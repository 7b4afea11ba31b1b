package pareto

import (
	"math/rand"
	"testing"
)

type item struct {
	name string
	v    Vector
}

func (i item) Vector() Vector { return i.v }

type recorder struct {
	accepted, rejected, dropped []string
}

func (r *recorder) Accepted(e item)        { r.accepted = append(r.accepted, e.name) }
func (r *recorder) Rejected(e item, _ item) { r.rejected = append(r.rejected, e.name) }
func (r *recorder) Dropped(e item, _ item)  { r.dropped = append(r.dropped, e.name) }

func newItemSet(c Criteria, opts ...Option[item]) *Set[item] {
	return NewSet(Comparator[item](c), opts...)
}

func names(s *Set[item]) map[string]bool {
	out := make(map[string]bool)
	for _, e := range s.Elements() {
		out[e.name] = true
	}
	return out
}

func TestDominates(t *testing.T) {
	tests := []struct {
		name string
		c    Criteria
		a, b Vector
		want bool
	}{
		{"earlier arrival", Criteria{Cost: CostNone}, Vector{Arrival: 10}, Vector{Arrival: 20}, true},
		{"fewer rounds", Criteria{Cost: CostNone}, Vector{Arrival: 10, Round: 1}, Vector{Arrival: 10, Round: 2}, true},
		{"equal", Criteria{Cost: CostC1}, Vector{Arrival: 10, C1: 5}, Vector{Arrival: 10, C1: 5}, false},
		{"trade off", Criteria{Cost: CostC1}, Vector{Arrival: 10, C1: 9}, Vector{Arrival: 20, C1: 5}, false},
		{"c1 ignored with none", Criteria{Cost: CostNone}, Vector{Arrival: 10, C1: 9}, Vector{Arrival: 10, C1: 5}, false},
		{"c1 better", Criteria{Cost: CostC1}, Vector{Arrival: 10, C1: 4}, Vector{Arrival: 10, C1: 5}, true},
		{"c2 ignored with c1", Criteria{Cost: CostC1}, Vector{Arrival: 10, C1: 5, C2: 1}, Vector{Arrival: 10, C1: 5, C2: 2}, false},
		{"c2 with c1 and c2", Criteria{Cost: CostC1AndC2}, Vector{Arrival: 10, C1: 5, C2: 1}, Vector{Arrival: 10, C1: 5, C2: 2}, true},
		{"later departure", Criteria{DepartureTime: true}, Vector{Arrival: 10, Departure: 5}, Vector{Arrival: 10, Departure: 3}, true},
		{"departure ignored", Criteria{}, Vector{Arrival: 10, Departure: 5}, Vector{Arrival: 10, Departure: 3}, false},
		{"on board", Criteria{OnBoard: true}, Vector{Arrival: 10, OnBoard: true}, Vector{Arrival: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Dominates(tt.a, tt.b); got != tt.want {
				t.Errorf("Dominates = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRelaxedC1(t *testing.T) {
	relaxed := Criteria{Cost: CostC1RelaxedIfC2Optimal, Relax: RelaxFunction{Ratio: 1.1}}
	strict := Criteria{Cost: CostC1RelaxedIfC2Optimal}

	best := Vector{Arrival: 100, C1: 1000, C2: 1}
	// 5% worse on c1, different c2 group.
	cand := Vector{Arrival: 100, C1: 1050, C2: 0}

	if !relaxed.LeftDominanceExists(cand, best) {
		t.Error("relaxed: candidate within threshold should count as better")
	}
	if relaxed.Dominates(best, cand) {
		t.Error("relaxed: best should not dominate candidate within threshold")
	}
	if !strict.Dominates(best, cand) {
		t.Error("strict: best should dominate worse c1")
	}

	// Same c2 group always compares c1 strictly.
	sameGroup := Vector{Arrival: 100, C1: 1050, C2: 1}
	if !relaxed.Dominates(best, sameGroup) {
		t.Error("relaxed: equal c2 should use strict c1")
	}

	// Beyond the threshold the candidate is dominated again.
	far := Vector{Arrival: 100, C1: 1200, C2: 0}
	if !relaxed.Dominates(best, far) {
		t.Error("relaxed: candidate beyond threshold should be dominated")
	}

	// A worse c2 never relaxes c1.
	good := Vector{Arrival: 100, C1: 1000, C2: 3}
	bad := Vector{Arrival: 100, C1: 1050, C2: 5}
	if relaxed.LeftDominanceExists(bad, good) {
		t.Error("relaxed: worse c2 and worse c1 counted as better")
	}
	if !relaxed.Dominates(good, bad) {
		t.Error("relaxed: label better on both costs should dominate")
	}
	s := newItemSet(relaxed)
	s.Add(item{"bad", bad})
	s.Add(item{"good", good})
	if got := names(s); len(got) != 1 || !got["good"] {
		t.Errorf("set = %v, want only good", got)
	}
}

func TestRelaxFunction(t *testing.T) {
	tests := []struct {
		f    RelaxFunction
		in   int
		want int
	}{
		{RelaxFunction{}, 100, 100},
		{NoRelax, 100, 100},
		{RelaxFunction{Ratio: 1.5}, 100, 150},
		{RelaxFunction{Ratio: 1, Slack: 30}, 100, 130},
		{RelaxFunction{Ratio: 1.25, Slack: 10}, 200, 260},
	}
	for _, tt := range tests {
		if got := tt.f.Relax(tt.in); got != tt.want {
			t.Errorf("%+v.Relax(%d) = %d, want %d", tt.f, tt.in, got, tt.want)
		}
	}

	if err := (RelaxFunction{Ratio: 0.5}).Validate(); err == nil {
		t.Error("ratio < 1 should be invalid")
	}
	if err := (RelaxFunction{Slack: -1}).Validate(); err == nil {
		t.Error("negative slack should be invalid")
	}
}

func TestParseCost(t *testing.T) {
	for _, c := range []Cost{CostNone, CostC1, CostC1AndC2, CostC1RelaxedIfC2Optimal} {
		got, err := ParseCost(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCost(%q) = %v, %v", c.String(), got, err)
		}
	}
	if _, err := ParseCost("fastest"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestSetAddEvicts(t *testing.T) {
	rec := &recorder{}
	s := newItemSet(Criteria{Cost: CostC1}, WithListener[item](rec))

	s.Add(item{"slow-cheap", Vector{Arrival: 200, C1: 10}})
	s.Add(item{"fast-expensive", Vector{Arrival: 100, C1: 50}})
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	// Dominates both.
	if !s.Add(item{"best", Vector{Arrival: 100, C1: 10}}) {
		t.Fatal("best should be accepted")
	}
	if s.Len() != 1 || s.At(0).name != "best" {
		t.Fatalf("set = %v, want only best", names(s))
	}
	if len(rec.dropped) != 2 {
		t.Errorf("dropped = %v, want 2 entries", rec.dropped)
	}
	if len(rec.accepted) != 3 {
		t.Errorf("accepted = %v, want 3 entries", rec.accepted)
	}
}

func TestSetRejectsDominatedBeforeEviction(t *testing.T) {
	rec := &recorder{}
	s := newItemSet(Criteria{Cost: CostC1}, WithListener[item](rec))
	s.Add(item{"a", Vector{Arrival: 100, C1: 10}})
	s.Add(item{"b", Vector{Arrival: 50, C1: 100}})

	// Better than b on c1, but dominated by a.
	if s.Add(item{"c", Vector{Arrival: 100, C1: 20}}) {
		t.Fatal("c should be rejected")
	}
	if len(rec.dropped) != 0 {
		t.Errorf("nothing should be dropped, got %v", rec.dropped)
	}
	if got := names(s); !got["a"] || !got["b"] {
		t.Errorf("set = %v, want a and b", got)
	}
}

func TestSetTies(t *testing.T) {
	c := Criteria{Cost: CostC1}
	s := newItemSet(c)
	s.Add(item{"first", Vector{Arrival: 100, C1: 10}})
	if s.Add(item{"second", Vector{Arrival: 100, C1: 10}}) {
		t.Error("tie should be discarded")
	}

	kept := newItemSet(c, KeepTies[item]())
	kept.Add(item{"first", Vector{Arrival: 100, C1: 10}})
	if !kept.Add(item{"second", Vector{Arrival: 100, C1: 10}}) {
		t.Error("tie should be kept")
	}
	if kept.Add(item{"worse", Vector{Arrival: 100, C1: 11}}) {
		t.Error("dominated candidate should be rejected even when keeping ties")
	}
	if kept.Len() != 2 {
		t.Errorf("Len = %d, want 2", kept.Len())
	}
}

func TestSetNonDominationInvariant(t *testing.T) {
	modes := []Criteria{
		{Cost: CostNone},
		{Cost: CostC1},
		{Cost: CostC1AndC2},
		{Cost: CostC1RelaxedIfC2Optimal},
		{Cost: CostC1RelaxedIfC2Optimal, Relax: RelaxFunction{Ratio: 1.2, Slack: 5}},
		{Cost: CostC1, OnBoard: true, DepartureTime: true},
	}
	rng := rand.New(rand.NewSource(42))

	for _, c := range modes {
		s := newItemSet(c)
		for i := 0; i < 500; i++ {
			s.Add(item{v: Vector{
				Arrival:   rng.Intn(50),
				Departure: rng.Intn(5),
				Round:     rng.Intn(4),
				C1:        rng.Intn(100),
				C2:        rng.Intn(3),
				OnBoard:   rng.Intn(2) == 0,
			}})
		}
		elems := s.Elements()
		for i := range elems {
			for j := range elems {
				if i != j && c.Dominates(elems[i].v, elems[j].v) {
					t.Fatalf("%+v: %+v dominates %+v", c, elems[i].v, elems[j].v)
				}
			}
		}
	}
}

func TestSetClear(t *testing.T) {
	s := newItemSet(Criteria{})
	s.Add(item{"a", Vector{Arrival: 1}})
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
	if !s.Add(item{"b", Vector{Arrival: 5}}) {
		t.Error("add after clear should succeed")
	}
}
