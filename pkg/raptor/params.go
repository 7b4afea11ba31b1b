package raptor

import (
	"errors"
	"fmt"

	"transit_router/pkg/pareto"
	"transit_router/pkg/transfer"
)

// ErrInvalidParams is returned for search bounds that cannot be searched.
var ErrInvalidParams = errors.New("invalid search params")

// SearchParams holds the fixed bounds and criteria of one search. It is an
// immutable, comparable value; derive modified copies with Builder.
type SearchParams struct {
	EarliestDeparture int // seconds since service-day midnight
	SearchWindow      int // seconds; 0 runs a single iteration
	IterationStep     int // seconds between range iterations
	LatestArrival     int // 0 means unbounded
	MaxRounds         int // maximum number of transit rides
	Cost              pareto.Cost
	Relax             pareto.RelaxFunction
	Mode              transfer.Mode
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		IterationStep: 60,
		MaxRounds:     6,
		Cost:          pareto.CostC1,
		Relax:         pareto.NoRelax,
		Mode:          transfer.Walk,
	}
}

// Validate checks that bounds are monotonic.
func (p *SearchParams) Validate() error {
	switch {
	case p.EarliestDeparture < 0:
		return fmt.Errorf("%w: earliest departure %d is negative", ErrInvalidParams, p.EarliestDeparture)
	case p.MaxRounds < 0:
		return fmt.Errorf("%w: max rounds %d is negative", ErrInvalidParams, p.MaxRounds)
	case p.SearchWindow < 0:
		return fmt.Errorf("%w: search window %d is negative", ErrInvalidParams, p.SearchWindow)
	case p.SearchWindow > 0 && p.IterationStep <= 0:
		return fmt.Errorf("%w: iteration step %d must be positive with a search window", ErrInvalidParams, p.IterationStep)
	case p.LatestArrival != 0 && p.LatestArrival <= p.EarliestDeparture+p.SearchWindow:
		return fmt.Errorf("%w: latest arrival %d is not after the search window end %d",
			ErrInvalidParams, p.LatestArrival, p.EarliestDeparture+p.SearchWindow)
	case p.Mode == 0:
		return fmt.Errorf("%w: no transfer mode", ErrInvalidParams)
	}
	if err := p.Relax.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// DepartureTimes returns the range iterations, latest first.
func (p *SearchParams) DepartureTimes() []int {
	if p.SearchWindow == 0 {
		return []int{p.EarliestDeparture}
	}
	var times []int
	for t := p.EarliestDeparture + p.SearchWindow; t >= p.EarliestDeparture; t -= p.IterationStep {
		times = append(times, t)
	}
	if times[len(times)-1] != p.EarliestDeparture {
		times = append(times, p.EarliestDeparture)
	}
	return times
}

// StopCriteria is the comparison used for labels at stops.
func (p *SearchParams) StopCriteria() pareto.Criteria {
	return pareto.Criteria{Cost: p.Cost, Relax: p.Relax, OnBoard: true}
}

// DestinationCriteria is the comparison used for destination arrivals and
// paths.
func (p *SearchParams) DestinationCriteria() pareto.Criteria {
	return pareto.Criteria{Cost: p.Cost, Relax: p.Relax, DepartureTime: true}
}

// ParamsBuilder derives a modified copy of SearchParams.
type ParamsBuilder struct {
	orig *SearchParams
	p    SearchParams
}

// Builder starts a builder from p.
func (p *SearchParams) Builder() *ParamsBuilder {
	return &ParamsBuilder{orig: p, p: *p}
}

func (b *ParamsBuilder) EarliestDeparture(t int) *ParamsBuilder {
	b.p.EarliestDeparture = t
	return b
}

func (b *ParamsBuilder) SearchWindow(seconds int) *ParamsBuilder {
	b.p.SearchWindow = seconds
	return b
}

func (b *ParamsBuilder) IterationStep(seconds int) *ParamsBuilder {
	b.p.IterationStep = seconds
	return b
}

func (b *ParamsBuilder) LatestArrival(t int) *ParamsBuilder {
	b.p.LatestArrival = t
	return b
}

func (b *ParamsBuilder) MaxRounds(n int) *ParamsBuilder {
	b.p.MaxRounds = n
	return b
}

func (b *ParamsBuilder) Cost(c pareto.Cost) *ParamsBuilder {
	b.p.Cost = c
	return b
}

func (b *ParamsBuilder) Relax(f pareto.RelaxFunction) *ParamsBuilder {
	b.p.Relax = f
	return b
}

func (b *ParamsBuilder) Mode(m transfer.Mode) *ParamsBuilder {
	b.p.Mode = m
	return b
}

// Build returns the original params when nothing changed, so callers can
// cache on pointer identity.
func (b *ParamsBuilder) Build() *SearchParams {
	if b.orig != nil && b.p == *b.orig {
		return b.orig
	}
	p := b.p
	return &p
}
