package raptor

import (
	"fmt"
	"math"
)

// CentiSecondsPerSecond converts seconds to the cost unit.
const CentiSecondsPerSecond = 100

// CostParams configures the generalized cost (c1).
type CostParams struct {
	BoardCost         int     `yaml:"boardCost" validate:"gte=0"`    // seconds
	TransferCost      int     `yaml:"transferCost" validate:"gte=0"` // seconds
	WaitReluctance    float64 `yaml:"waitReluctance" validate:"gte=0"`
	TransitReluctance float64 `yaml:"transitReluctance" validate:"gte=0"`
}

// DefaultCostParams returns the default generalized cost configuration.
func DefaultCostParams() CostParams {
	return CostParams{
		BoardCost:         60,
		TransferCost:      0,
		WaitReluctance:    1.0,
		TransitReluctance: 1.0,
	}
}

// Validate rejects negative costs.
func (p CostParams) Validate() error {
	if p.BoardCost < 0 || p.TransferCost < 0 || p.WaitReluctance < 0 || p.TransitReluctance < 0 {
		return fmt.Errorf("cost params must be non-negative: %+v", p)
	}
	return nil
}

// CostCalculator computes c1 and c2 increments in integer centi-seconds.
// The wait before the first boarding is never charged; the access leg is
// time-shifted to remove it.
type CostCalculator[T TripSchedule] struct {
	boardCost     int
	transferCost  int
	waitFactor    int
	transitFactor int
	c2            func(trip T) int
}

// NewCostCalculator builds a calculator. c2 returns the value added to c2
// on every boarding of trip; nil leaves c2 unchanged.
func NewCostCalculator[T TripSchedule](p CostParams, c2 func(trip T) int) *CostCalculator[T] {
	return &CostCalculator[T]{
		boardCost:     p.BoardCost * CentiSecondsPerSecond,
		transferCost:  p.TransferCost * CentiSecondsPerSecond,
		waitFactor:    int(math.Round(p.WaitReluctance * CentiSecondsPerSecond)),
		transitFactor: int(math.Round(p.TransitReluctance * CentiSecondsPerSecond)),
		c2:            c2,
	}
}

// Boarding is the cost of boarding at boardTime after arriving at
// prevArrival. firstBoarding is true when no transit was ridden before.
func (c *CostCalculator[T]) Boarding(firstBoarding bool, prevArrival, boardTime int) int {
	if firstBoarding {
		return c.boardCost
	}
	return c.boardCost + c.transferCost + c.Wait(boardTime-prevArrival)
}

// Transit is the in-vehicle cost from boarding to arrival (alight slack
// included).
func (c *CostCalculator[T]) Transit(boardTime, arrival int) int {
	return c.transitFactor * (arrival - boardTime)
}

// Wait is the cost of waiting for the given number of seconds.
func (c *CostCalculator[T]) Wait(seconds int) int {
	return c.waitFactor * seconds
}

// WaitFactor returns the wait factor in centi-seconds per second.
func (c *CostCalculator[T]) WaitFactor() int { return c.waitFactor }

// BoardingC2 returns c2 after boarding trip.
func (c *CostCalculator[T]) BoardingC2(c2 int, trip T) int {
	if c.c2 == nil {
		return c2
	}
	return c2 + c.c2(trip)
}
