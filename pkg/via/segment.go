// Package via splits a search with via locations into an ordered chain of
// search segments.
package via

import (
	"errors"
	"fmt"

	"transit_router/pkg/raptor"
)

var (
	// ErrUnreachableSegment is returned when a leg references a segment past
	// the end of the chain, or no egress can be reached from any access.
	ErrUnreachableSegment = errors.New("via: unreachable segment")
	// ErrInvalidLocation is returned for malformed via locations.
	ErrInvalidLocation = errors.New("via: invalid location")
)

// Connection is a stop through which a via location is reached.
type Connection struct {
	Stop     int `json:"stop" yaml:"stop"`
	Duration int `json:"duration" yaml:"duration"` // seconds spent at the location
}

// Location is a mandatory via point. A visit location is left after a
// dwell; a pass-through location must be crossed on board or on foot
// without stopping.
type Location struct {
	Label           string       `json:"label" yaml:"label"`
	PassThrough     bool         `json:"passThrough" yaml:"passThrough"`
	MinimumWaitTime int          `json:"minimumWaitTime" yaml:"minimumWaitTime"`
	Connections     []Connection `json:"connections" yaml:"connections"`
}

// Dwell returns the time spent at the location when reached through c.
func (l *Location) Dwell(c Connection) int {
	if l.PassThrough {
		return 0
	}
	return max(c.Duration, l.MinimumWaitTime)
}

// Validate checks the location against a network of numStops stops.
func (l *Location) Validate(numStops int) error {
	if len(l.Connections) == 0 {
		return fmt.Errorf("%w: %q has no connections", ErrInvalidLocation, l.Label)
	}
	if l.MinimumWaitTime < 0 {
		return fmt.Errorf("%w: %q has a negative minimum wait time", ErrInvalidLocation, l.Label)
	}
	if l.PassThrough && l.MinimumWaitTime > 0 {
		return fmt.Errorf("%w: pass-through %q cannot have a minimum wait time", ErrInvalidLocation, l.Label)
	}
	for _, c := range l.Connections {
		if c.Stop < 0 || c.Stop >= numStops {
			return fmt.Errorf("%w: %q connects to stop %d out of range [0, %d)", ErrInvalidLocation, l.Label, c.Stop, numStops)
		}
		if c.Duration < 0 {
			return fmt.Errorf("%w: %q has a negative duration at stop %d", ErrInvalidLocation, l.Label, c.Stop)
		}
		if l.PassThrough && c.Duration != 0 {
			return fmt.Errorf("%w: pass-through %q has duration %d at stop %d", ErrInvalidLocation, l.Label, c.Duration, c.Stop)
		}
	}
	return nil
}

// Segment is one leg of the via chain, searched by its own worker.
type Segment struct {
	Index  int
	Access []raptor.AccessEgress
	Egress []raptor.AccessEgress
	// Exits end the segment at the next via location; nil for the last.
	Exits []raptor.ViaExit
	// Location is the via location ending the segment; nil for the last.
	Location *Location
}

// Last reports whether the segment ends at the destination.
func (s *Segment) Last() bool { return s.Location == nil }

// Split builds len(locations)+1 segments. An access leg that already
// visited k via locations starts in segment k; an egress leg that visits k
// of them itself ends segment n-k.
func Split(access, egress []raptor.AccessEgress, locations []Location, numStops int) ([]Segment, error) {
	n := len(locations)
	for i := range locations {
		if err := locations[i].Validate(numStops); err != nil {
			return nil, err
		}
	}

	segments := make([]Segment, n+1)
	for i := range segments {
		segments[i].Index = i
		if i < n {
			loc := &locations[i]
			segments[i].Location = loc
			for _, c := range loc.Connections {
				segments[i].Exits = append(segments[i].Exits, raptor.ViaExit{
					Stop:        c.Stop,
					Dwell:       loc.Dwell(c),
					PassThrough: loc.PassThrough,
					Location:    i,
				})
			}
		}
	}

	firstAccess := n + 1
	for _, a := range access {
		if a.ViaVisited > n {
			return nil, fmt.Errorf("%w: access at stop %d visited %d of %d via locations", ErrUnreachableSegment, a.Stop, a.ViaVisited, n)
		}
		segments[a.ViaVisited].Access = append(segments[a.ViaVisited].Access, a)
		firstAccess = min(firstAccess, a.ViaVisited)
	}
	lastEgress := -1
	for _, e := range egress {
		if e.ViaVisited > n {
			return nil, fmt.Errorf("%w: egress at stop %d visits %d of %d via locations", ErrUnreachableSegment, e.Stop, e.ViaVisited, n)
		}
		k := n - e.ViaVisited
		segments[k].Egress = append(segments[k].Egress, e)
		lastEgress = max(lastEgress, k)
	}
	if len(access) > 0 && len(egress) > 0 && lastEgress < firstAccess {
		return nil, fmt.Errorf("%w: every egress ends before the first access segment %d", ErrUnreachableSegment, firstAccess)
	}
	return segments, nil
}
