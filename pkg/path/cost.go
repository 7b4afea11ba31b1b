package path

import (
	"fmt"
	"math"
	"strings"

	"transit_router/pkg/raptor"
)

// Priority classifies a stop as a transfer point.
type Priority uint8

const (
	PriorityUnclassified Priority = iota
	PriorityDiscouraged
	PriorityAllowed
	PriorityRecommended
	PriorityPreferred
)

var priorityNames = [...]string{
	PriorityUnclassified: "unclassified",
	PriorityDiscouraged:  "discouraged",
	PriorityAllowed:      "allowed",
	PriorityRecommended:  "recommended",
	PriorityPreferred:    "preferred",
}

func (p Priority) String() string {
	if int(p) < len(priorityNames) {
		return priorityNames[p]
	}
	return fmt.Sprintf("Priority(%d)", uint8(p))
}

// ParsePriority parses a classification name, case-insensitively. The
// empty string is unclassified.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityUnclassified, nil
	}
	for i, name := range priorityNames {
		if name == s {
			return Priority(i), nil
		}
	}
	return PriorityUnclassified, fmt.Errorf("path: unknown transfer priority %q", s)
}

// PriorityCosts maps each classification to the penalty added per boarding
// or alighting. Unclassified stops cost nothing.
type PriorityCosts struct {
	Discouraged int `yaml:"discouraged" json:"discouraged" validate:"gte=0"`
	Allowed     int `yaml:"allowed" json:"allowed" validate:"gte=0"`
	Recommended int `yaml:"recommended" json:"recommended" validate:"gte=0"`
	Preferred   int `yaml:"preferred" json:"preferred" validate:"gte=0"`
}

// DefaultPriorityCosts returns the default penalty table.
func DefaultPriorityCosts() PriorityCosts {
	return PriorityCosts{Discouraged: 3600, Allowed: 60, Recommended: 20, Preferred: 0}
}

// Cost returns the penalty for p.
func (c PriorityCosts) Cost(p Priority) int {
	switch p {
	case PriorityDiscouraged:
		return c.Discouraged
	case PriorityAllowed:
		return c.Allowed
	case PriorityRecommended:
		return c.Recommended
	case PriorityPreferred:
		return c.Preferred
	}
	return 0
}

// StopPriorities supplies the transfer classification of stops.
type StopPriorities interface {
	TransferPriority(stop int) Priority
}

// WaitTimeCostParams configures the wait-time optimized cost. Factor is the
// cost multiplier of a zero-second wait relative to MinSafeWaitTime; below
// 1 the cost is disabled.
type WaitTimeCostParams struct {
	Factor          float64 `yaml:"factor" json:"factor" validate:"gte=0"`
	MinSafeWaitTime int     `yaml:"minSafeWaitTime" json:"minSafeWaitTime" validate:"gte=0"` // seconds, 0 derives it
}

// Enabled reports whether the cost applies.
func (w WaitTimeCostParams) Enabled() bool { return w.Factor >= 1 }

const (
	safeWaitShare    = 0.0667
	minSafeWaitLower = 120
	minSafeWaitUpper = 2400
)

// MinSafeWaitTime derives the safe wait time from the shortest in-vehicle
// time among paths, bounded to [2min, 40min].
func MinSafeWaitTime[T raptor.TripSchedule](paths []*Path[T]) int {
	best := -1
	for _, p := range paths {
		transit := 0
		for _, leg := range p.TransitLegs() {
			transit += leg.Duration()
		}
		if transit > 0 && (best < 0 || transit < best) {
			best = transit
		}
	}
	if best < 0 {
		return minSafeWaitLower
	}
	t0 := int(math.Round(float64(best) * safeWaitShare))
	return min(max(t0, minSafeWaitLower), minSafeWaitUpper)
}

// waitCost returns the centi-second cost of waiting w seconds at a
// transfer: f(w) = n*t0 / (1 + (n-1)*w/t0), minus the wait already charged
// by the search.
func waitCost(w int, n float64, t0 int, waitReluctance float64) int {
	fw := n * float64(t0) / (1 + (n-1)*float64(w)/float64(t0))
	return int(math.Round((fw - waitReluctance*float64(w)) * raptor.CentiSecondsPerSecond))
}

// Ranking configures the auxiliary costs used to rank Pareto-equal paths.
type Ranking struct {
	Priorities     StopPriorities // nil leaves every stop unclassified
	PriorityCosts  PriorityCosts
	WaitTime       WaitTimeCostParams
	WaitReluctance float64
}

// TransferPriorityCost sums the penalty of every boarding and alighting
// stop of p.
func TransferPriorityCost[T raptor.TripSchedule](p *Path[T], r *Ranking) int {
	if r.Priorities == nil {
		return 0
	}
	total := 0
	for _, leg := range p.TransitLegs() {
		total += r.PriorityCosts.Cost(r.Priorities.TransferPriority(leg.FromStop))
		total += r.PriorityCosts.Cost(r.Priorities.TransferPriority(leg.ToStop))
	}
	return total
}

// Score computes the auxiliary costs of every path. The wait-time cost uses
// the derived safe wait time when none is configured.
func Score[T raptor.TripSchedule](paths []*Path[T], r Ranking) {
	t0 := r.WaitTime.MinSafeWaitTime
	if t0 <= 0 {
		t0 = MinSafeWaitTime(paths)
	}
	for _, p := range paths {
		p.TransferPriorityCost = TransferPriorityCost(p, &r)
		p.BreakTieCost = walkSeconds(p)
		p.WaitTimeOptimizedCost = 0
		if !r.WaitTime.Enabled() {
			continue
		}
		for i, leg := range p.TransitLegs() {
			if i == 0 {
				continue
			}
			p.WaitTimeOptimizedCost += waitCost(leg.Wait, r.WaitTime.Factor, t0, r.WaitReluctance)
		}
	}
}

// walkSeconds is the time spent on street legs.
func walkSeconds[T raptor.TripSchedule](p *Path[T]) int {
	total := 0
	for i := range p.Legs {
		if p.Legs[i].Walking() {
			total += p.Legs[i].Duration()
		}
	}
	return total
}
