// Package planner is the entry point of a journey search: it validates a
// request, runs one Range-RAPTOR worker per via segment, and turns the
// destination arrivals into a ranked set of paths.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"transit_router/pkg/path"
	"transit_router/pkg/raptor"
	"transit_router/pkg/transfer"
	"transit_router/pkg/via"
)

var (
	// ErrInvalidRequest is returned for requests rejected before the search
	// starts.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInconsistentData is returned when the schedule, the transfers and
	// the labels built from them disagree.
	ErrInconsistentData = errors.New("inconsistent data")
)

// Transfers is the transfer graph shared by all searches.
type Transfers interface {
	NumberOfStops() int
	ForRequest(mode transfer.Mode) *transfer.View
}

// Request is one journey search.
type Request struct {
	Params raptor.SearchParams
	Cost   raptor.CostParams
	Access []raptor.AccessEgress
	Egress []raptor.AccessEgress
	// Via lists the locations to pass, in order.
	Via           []via.Location
	PriorityCosts path.PriorityCosts
	WaitTime      path.WaitTimeCostParams
	// Debug enables label events for this search; nil disables them.
	Debug *raptor.DebugFilter
}

// NewRequest returns a request with default parameters and costs.
func NewRequest(access, egress []raptor.AccessEgress) Request {
	return Request{
		Params:        raptor.DefaultSearchParams(),
		Cost:          raptor.DefaultCostParams(),
		Access:        access,
		Egress:        egress,
		PriorityCosts: path.DefaultPriorityCosts(),
	}
}

// Result is the outcome of a search. No path found is an empty Paths
// slice, not an error.
type Result[T raptor.TripSchedule] struct {
	Paths    []*path.Path[T]
	Segments int
	Stats    raptor.Stats
	Elapsed  time.Duration
}

// Planner runs searches over one schedule. It is safe for concurrent use.
type Planner[T raptor.TripSchedule] struct {
	schedule   raptor.ScheduleProvider[T]
	transfers  Transfers
	priorities path.StopPriorities
	c2         func(trip T) int
	debug      raptor.DebugHandler[T]
	observer   Observer
}

// Option configures a Planner.
type Option[T raptor.TripSchedule] func(*Planner[T])

// WithStopPriorities sets the transfer classification of stops used to
// rank equal paths.
func WithStopPriorities[T raptor.TripSchedule](sp path.StopPriorities) Option[T] {
	return func(p *Planner[T]) { p.priorities = sp }
}

// WithC2 sets the value added to the second cost on every boarding.
func WithC2[T raptor.TripSchedule](c2 func(trip T) int) Option[T] {
	return func(p *Planner[T]) { p.c2 = c2 }
}

// WithDebugHandler receives the label events of searches that set
// Request.Debug.
func WithDebugHandler[T raptor.TripSchedule](h raptor.DebugHandler[T]) Option[T] {
	return func(p *Planner[T]) { p.debug = h }
}

// WithObserver reports every finished search.
func WithObserver[T raptor.TripSchedule](o Observer) Option[T] {
	return func(p *Planner[T]) { p.observer = o }
}

// New creates a planner. The transfer index must cover exactly the stops
// of the schedule.
func New[T raptor.TripSchedule](schedule raptor.ScheduleProvider[T], transfers Transfers, opts ...Option[T]) (*Planner[T], error) {
	if n, m := schedule.NumberOfStops(), transfers.NumberOfStops(); n != m {
		return nil, fmt.Errorf("%w: schedule has %d stops, transfer index %d", ErrInconsistentData, n, m)
	}
	p := &Planner[T]{schedule: schedule, transfers: transfers}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NumberOfStops returns the number of stops searched over.
func (p *Planner[T]) NumberOfStops() int { return p.schedule.NumberOfStops() }

// Search runs a journey search.
func (p *Planner[T]) Search(ctx context.Context, req Request) (res *Result[T], err error) {
	start := time.Now()
	defer func() { p.observe(start, res, err) }()

	// Step 1: Validate.
	if err := p.validate(&req); err != nil {
		return nil, err
	}

	// Step 2: Split into via segments.
	segments, err := via.Split(req.Access, req.Egress, req.Via, p.schedule.NumberOfStops())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	// Step 3: Run one worker per segment, each seeded by the via arrivals
	// of the one before.
	cost := raptor.NewCostCalculator[T](req.Cost, p.c2)
	var debug *raptor.Debugger[T]
	if req.Debug != nil {
		debug = raptor.NewDebugger(p.debug, *req.Debug)
	}
	view := p.transfers.ForRequest(req.Params.Mode)
	res = &Result[T]{Segments: len(segments)}

	var arrivals []*raptor.DestinationArrival[T]
	var seeds []*raptor.Label[T]
	for i := range segments {
		seg := &segments[i]
		if len(seg.Access) == 0 && len(seeds) == 0 {
			continue
		}
		w := raptor.NewWorker[T](p.schedule, view, cost, &req.Params, seg.Egress, seg.Exits, debug)
		if err := w.Run(ctx, seg.Access, seeds); err != nil {
			return nil, err
		}
		arrivals = append(arrivals, w.DestinationArrivals()...)
		if !seg.Last() {
			seeds = w.ViaSeeds()
		}
		addStats(&res.Stats, w.Stats())
	}

	// Step 4: Rebuild, rank and prune the paths.
	paths := make([]*path.Path[T], 0, len(arrivals))
	for _, d := range arrivals {
		pth, err := path.Reconstruct(d, p.schedule, cost)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInconsistentData, err)
		}
		paths = append(paths, pth)
	}
	path.Score(paths, path.Ranking{
		Priorities:     p.priorities,
		PriorityCosts:  req.PriorityCosts,
		WaitTime:       req.WaitTime,
		WaitReluctance: req.Cost.WaitReluctance,
	})
	res.Paths = path.Optimize(paths, req.Params.DestinationCriteria())
	res.Elapsed = time.Since(start)
	return res, nil
}

func (p *Planner[T]) validate(req *Request) error {
	n := p.schedule.NumberOfStops()
	if len(req.Access) == 0 {
		return fmt.Errorf("%w: no access legs", ErrInvalidRequest)
	}
	if len(req.Egress) == 0 {
		return fmt.Errorf("%w: no egress legs", ErrInvalidRequest)
	}
	for i := range req.Access {
		if err := req.Access[i].Validate(n); err != nil {
			return fmt.Errorf("%w: access: %v", ErrInvalidRequest, err)
		}
	}
	for i := range req.Egress {
		if err := req.Egress[i].Validate(n); err != nil {
			return fmt.Errorf("%w: egress: %v", ErrInvalidRequest, err)
		}
	}
	if err := req.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := req.Cost.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.WaitTime.Factor < 0 || req.WaitTime.MinSafeWaitTime < 0 {
		return fmt.Errorf("%w: negative wait-time cost parameters", ErrInvalidRequest)
	}
	return nil
}

func addStats(dst *raptor.Stats, s raptor.Stats) {
	dst.Iterations += s.Iterations
	dst.Rounds = max(dst.Rounds, s.Rounds)
	dst.LabelsAccepted += s.LabelsAccepted
	dst.LabelsRejected += s.LabelsRejected
	dst.LabelsDropped += s.LabelsDropped
	dst.LabelsAllocated += s.LabelsAllocated
	dst.DestinationArrivals += s.DestinationArrivals
}
