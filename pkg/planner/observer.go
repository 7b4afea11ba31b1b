package planner

import (
	"context"
	"errors"
	"time"

	"transit_router/pkg/raptor"
)

// Outcome classifies a finished search.
type Outcome string

const (
	OutcomeFound     Outcome = "found"
	OutcomeNoRoute   Outcome = "no_route"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeError     Outcome = "error"
)

// SearchReport describes one finished search.
type SearchReport struct {
	Outcome  Outcome
	Duration time.Duration
	Segments int
	Paths    int
	Stats    raptor.Stats
}

// Observer is notified after every search, successful or not.
type Observer interface {
	SearchFinished(r SearchReport)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(r SearchReport)

func (f ObserverFunc) SearchFinished(r SearchReport) { f(r) }

// Classify maps a search error to its outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeFound
	case errors.Is(err, ErrInvalidRequest):
		return OutcomeInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	}
	return OutcomeError
}

func (p *Planner[T]) observe(start time.Time, res *Result[T], err error) {
	if p.observer == nil {
		return
	}
	r := SearchReport{Outcome: Classify(err), Duration: time.Since(start)}
	if res != nil {
		r.Segments = res.Segments
		r.Paths = len(res.Paths)
		r.Stats = res.Stats
		if len(res.Paths) == 0 {
			r.Outcome = OutcomeNoRoute
		}
	}
	p.observer.SearchFinished(r)
}
