// Package access turns a coordinate into walking access or egress legs to
// the stops around it. Distances are straight-line; there is no street
// network behind them.
package access

import (
	"errors"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/tidwall/rtree"

	"transit_router/pkg/raptor"
)

// ErrNoStopsNearby is returned when no stop lies within walking distance.
var ErrNoStopsNearby = errors.New("no stops within walking distance")

// Params configures the walking legs.
type Params struct {
	MaxDistance float64 `yaml:"maxDistance" validate:"gt=0"` // meters
	WalkSpeed   float64 `yaml:"walkSpeed" validate:"gt=0"`   // meters per second
	Reluctance  float64 `yaml:"reluctance" validate:"gte=0"`
	MaxStops    int     `yaml:"maxStops" validate:"gte=0"` // 0 keeps every stop in range
}

// DefaultParams returns the default walking parameters.
func DefaultParams() Params {
	return Params{
		MaxDistance: 800,
		WalkSpeed:   1.33,
		Reluctance:  2.0,
		MaxStops:    12,
	}
}

// Candidate is a stop within walking distance.
type Candidate struct {
	Stop     int
	Distance float64 // meters
}

// Locator finds stops near a coordinate using an R-tree over stop
// locations. It is safe for concurrent use once built.
type Locator struct {
	tree   rtree.RTreeG[int]
	points []orb.Point
	params Params
}

// NewLocator indexes stop locations; points[i] is the location of stop i.
func NewLocator(points []orb.Point, p Params) *Locator {
	l := &Locator{points: points, params: p}
	for i, pt := range points {
		l.tree.Insert([2]float64{pt.Lon(), pt.Lat()}, [2]float64{pt.Lon(), pt.Lat()}, i)
	}
	return l
}

// Params returns the walking parameters.
func (l *Locator) Params() Params { return l.params }

// Nearby returns the stops within walking distance of pt, nearest first.
func (l *Locator) Nearby(pt orb.Point) []Candidate {
	b := geo.NewBoundAroundPoint(pt, l.params.MaxDistance)
	var out []Candidate
	l.tree.Search(
		[2]float64{b.Min.Lon(), b.Min.Lat()},
		[2]float64{b.Max.Lon(), b.Max.Lat()},
		func(_, _ [2]float64, stop int) bool {
			d := geo.DistanceHaversine(pt, l.points[stop])
			if d <= l.params.MaxDistance {
				out = append(out, Candidate{Stop: stop, Distance: d})
			}
			return true
		},
	)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Stop < out[j].Stop
	})
	if l.params.MaxStops > 0 && len(out) > l.params.MaxStops {
		out = out[:l.params.MaxStops]
	}
	return out
}

// Legs returns one walking leg per nearby stop. The same legs serve as
// access from an origin or egress to a destination.
func (l *Locator) Legs(pt orb.Point) ([]raptor.AccessEgress, error) {
	near := l.Nearby(pt)
	if len(near) == 0 {
		return nil, ErrNoStopsNearby
	}
	legs := make([]raptor.AccessEgress, len(near))
	for i, c := range near {
		legs[i] = l.Leg(c)
	}
	return legs, nil
}

// Leg converts a candidate into a walking leg.
func (l *Locator) Leg(c Candidate) raptor.AccessEgress {
	secs := int(math.Ceil(c.Distance / l.params.WalkSpeed))
	return raptor.AccessEgress{
		Stop:     c.Stop,
		Duration: secs,
		C1:       int(math.Round(float64(secs) * l.params.Reluctance * raptor.CentiSecondsPerSecond)),
	}
}
