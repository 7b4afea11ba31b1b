package pareto

import (
	"fmt"
	"math"
	"strings"
)

// Cost selects which generalized-cost criteria take part in dominance.
// Arrival time and round are always compared.
type Cost int

const (
	// CostNone compares arrival time and round only.
	CostNone Cost = iota
	// CostC1 adds the primary generalized cost.
	CostC1
	// CostC1AndC2 adds both cost dimensions as independent criteria.
	CostC1AndC2
	// CostC1RelaxedIfC2Optimal compares c1 against the relaxed threshold
	// only for a label with the better c2; otherwise c1 compares strictly.
	CostC1RelaxedIfC2Optimal
)

var costNames = [...]string{
	CostNone:                 "none",
	CostC1:                   "c1",
	CostC1AndC2:              "c1_and_c2",
	CostC1RelaxedIfC2Optimal: "c1_relaxed_if_c2_optimal",
}

func (c Cost) String() string {
	if c < 0 || int(c) >= len(costNames) {
		return fmt.Sprintf("Cost(%d)", int(c))
	}
	return costNames[c]
}

// UsesC2 reports whether labels need a c2 value under this mode.
func (c Cost) UsesC2() bool {
	return c == CostC1AndC2 || c == CostC1RelaxedIfC2Optimal
}

// ParseCost parses the names returned by Cost.String.
func ParseCost(s string) (Cost, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range costNames {
		if name == s {
			return Cost(i), nil
		}
	}
	return CostNone, fmt.Errorf("pareto: unknown cost mode %q", s)
}

// RelaxFunction maps a cost to the threshold a competing cost must stay
// under: ratio*v + slack. The zero value means no relaxation.
type RelaxFunction struct {
	Ratio float64
	Slack int
}

// NoRelax is the strict comparison.
var NoRelax = RelaxFunction{Ratio: 1}

// IsNone reports whether the function leaves values unchanged.
func (f RelaxFunction) IsNone() bool {
	return (f.Ratio == 0 || f.Ratio == 1) && f.Slack == 0
}

// Relax returns the relaxed threshold for v.
func (f RelaxFunction) Relax(v int) int {
	if f.IsNone() {
		return v
	}
	ratio := f.Ratio
	if ratio == 0 {
		ratio = 1
	}
	return int(math.Round(float64(v)*ratio)) + f.Slack
}

// Validate rejects functions that would tighten instead of relax.
func (f RelaxFunction) Validate() error {
	if f.Ratio != 0 && f.Ratio < 1 {
		return fmt.Errorf("pareto: relax ratio %.3f must be >= 1", f.Ratio)
	}
	if f.Slack < 0 {
		return fmt.Errorf("pareto: relax slack %d must be >= 0", f.Slack)
	}
	return nil
}

// Vector is the set of values a label or path is compared on.
type Vector struct {
	Arrival   int // lower is better
	Departure int // higher is better, compared only with Criteria.DepartureTime
	Round     int // lower is better
	C1        int
	C2        int
	OnBoard   bool // true is better, compared only with Criteria.OnBoard
}

// Criteria is the fixed comparison configuration of one search.
type Criteria struct {
	Cost          Cost
	Relax         RelaxFunction
	DepartureTime bool
	OnBoard       bool
}

// LeftDominanceExists reports whether l is better than r in at least one
// active criterion.
func (c Criteria) LeftDominanceExists(l, r Vector) bool {
	if l.Arrival < r.Arrival || l.Round < r.Round {
		return true
	}
	if c.DepartureTime && l.Departure > r.Departure {
		return true
	}
	if c.OnBoard && l.OnBoard && !r.OnBoard {
		return true
	}

	switch c.Cost {
	case CostNone:
		return false
	case CostC1:
		return l.C1 < r.C1
	case CostC1AndC2:
		return l.C1 < r.C1 || l.C2 < r.C2
	case CostC1RelaxedIfC2Optimal:
		// Only a better c2 excuses a worse c1.
		if l.C2 < r.C2 {
			return l.C1 < c.Relax.Relax(r.C1)
		}
		return l.C1 < r.C1
	}
	panic(fmt.Sprintf("pareto: unhandled cost mode %v", c.Cost))
}

// Dominates reports whether a is at least as good as b on every active
// criterion and strictly better on one.
func (c Criteria) Dominates(a, b Vector) bool {
	return c.LeftDominanceExists(a, b) && !c.LeftDominanceExists(b, a)
}

// Comparator adapts the criteria to a Set comparator over values that can
// report their vector.
func Comparator[T interface{ Vector() Vector }](c Criteria) func(l, r T) bool {
	return func(l, r T) bool {
		return c.LeftDominanceExists(l.Vector(), r.Vector())
	}
}
