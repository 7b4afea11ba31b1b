package timetable

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Features returns every stop as a point and every pattern as a line
// string through its stops.
func (tt *Timetable) Features() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range tt.Stops {
		s := &tt.Stops[i]
		f := geojson.NewFeature(orb.Point{s.Lon, s.Lat})
		f.ID = s.ID
		f.Properties["kind"] = "stop"
		f.Properties["name"] = s.Name
		f.Properties["priority"] = s.Priority.String()
		fc.Append(f)
	}
	for _, p := range tt.Patterns {
		f := geojson.NewFeature(tt.patternLine(p, 0, len(p.Stops)-1))
		f.Properties["kind"] = "pattern"
		f.Properties["route"] = p.Route
		f.Properties["trips"] = len(p.Trips)
		fc.Append(f)
	}
	return fc
}

// TripLine returns the stop coordinates of t from position from to
// position to, both included.
func (tt *Timetable) TripLine(t *Trip, from, to int) orb.LineString {
	return tt.patternLine(t.pattern, from, to)
}

func (tt *Timetable) patternLine(p *Pattern, from, to int) orb.LineString {
	ls := make(orb.LineString, 0, to-from+1)
	for _, s := range p.Stops[from : to+1] {
		ls = append(ls, orb.Point{tt.Stops[s].Lon, tt.Stops[s].Lat})
	}
	return ls
}
