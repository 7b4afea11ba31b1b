package timetable

import (
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"gopkg.in/yaml.v3"

	"transit_router/pkg/path"
	"transit_router/pkg/raptor"
	"transit_router/pkg/transfer"
)

// Fixture is the YAML form of a timetable.
type Fixture struct {
	ServiceDate   string            `yaml:"serviceDate" validate:"omitempty,datetime=2006-01-02"`
	TransferSlack int               `yaml:"transferSlack" validate:"gte=0"`
	Stops         []FixtureStop     `yaml:"stops" validate:"required,min=1,dive"`
	Routes        []FixtureRoute    `yaml:"routes" validate:"dive"`
	Transfers     []FixtureTransfer `yaml:"transfers" validate:"dive"`
	WalkTransfers *WalkTransfers    `yaml:"walkTransfers"`
}

type FixtureStop struct {
	ID          string  `yaml:"id" validate:"required"`
	Name        string  `yaml:"name"`
	Lat         float64 `yaml:"lat" validate:"latitude"`
	Lon         float64 `yaml:"lon" validate:"longitude"`
	BoardSlack  int     `yaml:"boardSlack" validate:"gte=0"`
	AlightSlack int     `yaml:"alightSlack" validate:"gte=0"`
	Priority    string  `yaml:"priority" validate:"omitempty,oneof=unclassified discouraged allowed recommended preferred"`
}

type FixtureRoute struct {
	ID          string             `yaml:"id" validate:"required"`
	Stops       []string           `yaml:"stops" validate:"required,min=2"`
	Trips       []FixtureTrip      `yaml:"trips" validate:"dive"`
	Frequencies []FixtureFrequency `yaml:"frequencies" validate:"dive"`
}

// FixtureTrip lists either Times (arrival equals departure) or separate
// Arrivals and Departures.
type FixtureTrip struct {
	ID         string   `yaml:"id" validate:"required"`
	Times      []string `yaml:"times"`
	Arrivals   []string `yaml:"arrivals"`
	Departures []string `yaml:"departures"`
}

// FixtureFrequency expands into one trip every Headway seconds from Start
// to End inclusive. Offsets are the seconds from the first stop to each
// route stop.
type FixtureFrequency struct {
	Start   string `yaml:"start" validate:"required"`
	End     string `yaml:"end" validate:"required"`
	Headway int    `yaml:"headway" validate:"gt=0"`
	Offsets []int  `yaml:"offsets" validate:"required"`
}

type FixtureTransfer struct {
	From     string   `yaml:"from" validate:"required"`
	To       string   `yaml:"to" validate:"required"`
	Duration int      `yaml:"duration" validate:"gte=0"`
	Modes    []string `yaml:"modes" validate:"dive,oneof=walk bike car"`
}

// WalkTransfers generates walking transfers between every pair of stops
// within MaxDistance of each other.
type WalkTransfers struct {
	MaxDistance float64 `yaml:"maxDistance" validate:"gt=0"` // meters
	Speed       float64 `yaml:"speed" validate:"gt=0"`       // meters per second
	Reluctance  float64 `yaml:"reluctance" validate:"gte=0"`
}

// LoadFixture reads and compiles a YAML timetable.
func LoadFixture(filename string) (*Timetable, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture compiles a YAML timetable.
func ParseFixture(data []byte) (*Timetable, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimetable, err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimetable, err)
	}
	b, err := f.builder()
	if err != nil {
		return nil, err
	}
	return b.Build()
}

func (f *Fixture) builder() (*Builder, error) {
	b := &Builder{ServiceDate: f.ServiceDate, TransferSlack: f.TransferSlack}
	ids := make(map[string]int, len(f.Stops))
	for _, s := range f.Stops {
		prio, err := path.ParsePriority(s.Priority)
		if err != nil {
			return nil, fmt.Errorf("%w: stop %q: %v", ErrInvalidTimetable, s.ID, err)
		}
		if _, dup := ids[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate stop %q", ErrInvalidTimetable, s.ID)
		}
		ids[s.ID] = len(b.Stops)
		b.Stops = append(b.Stops, Stop{
			ID:          s.ID,
			Name:        s.Name,
			Lat:         s.Lat,
			Lon:         s.Lon,
			BoardSlack:  s.BoardSlack,
			AlightSlack: s.AlightSlack,
			Priority:    prio,
		})
	}
	lookup := func(id string) (int, error) {
		i, ok := ids[id]
		if !ok {
			return 0, fmt.Errorf("%w: unknown stop %q", ErrInvalidTimetable, id)
		}
		return i, nil
	}

	for _, r := range f.Routes {
		in := RouteInput{ID: r.ID}
		for _, id := range r.Stops {
			s, err := lookup(id)
			if err != nil {
				return nil, fmt.Errorf("route %q: %w", r.ID, err)
			}
			in.Stops = append(in.Stops, s)
		}
		for _, t := range r.Trips {
			ti, err := t.input()
			if err != nil {
				return nil, fmt.Errorf("%w: route %q: %v", ErrInvalidTimetable, r.ID, err)
			}
			in.Trips = append(in.Trips, ti)
		}
		for _, fr := range r.Frequencies {
			trips, err := fr.expand(r.ID, len(r.Stops))
			if err != nil {
				return nil, fmt.Errorf("%w: route %q: %v", ErrInvalidTimetable, r.ID, err)
			}
			in.Trips = append(in.Trips, trips...)
		}
		b.Routes = append(b.Routes, in)
	}

	for _, t := range f.Transfers {
		from, err := lookup(t.From)
		if err != nil {
			return nil, err
		}
		to, err := lookup(t.To)
		if err != nil {
			return nil, err
		}
		modes := transfer.Walk
		if len(t.Modes) > 0 {
			modes = 0
			for _, m := range t.Modes {
				mode, err := transfer.ParseMode(m)
				if err != nil {
					return nil, fmt.Errorf("%w: transfer %s -> %s: %v", ErrInvalidTimetable, t.From, t.To, err)
				}
				modes |= mode
			}
		}
		b.Transfers = append(b.Transfers, transfer.Transfer{
			From:     from,
			To:       to,
			Duration: t.Duration,
			C1:       t.Duration * raptor.CentiSecondsPerSecond,
			Modes:    modes,
		})
	}
	if f.WalkTransfers != nil {
		b.Transfers = append(b.Transfers, f.WalkTransfers.generate(b.Stops)...)
	}
	return b, nil
}

func (t *FixtureTrip) input() (TripInput, error) {
	in := TripInput{ID: t.ID}
	arr, dep := t.Arrivals, t.Departures
	if len(t.Times) > 0 {
		if len(arr) > 0 || len(dep) > 0 {
			return in, fmt.Errorf("trip %q: times and arrivals/departures are exclusive", t.ID)
		}
		arr, dep = t.Times, t.Times
	}
	var err error
	if in.Arrivals, err = parseClocks(arr); err != nil {
		return in, fmt.Errorf("trip %q: %w", t.ID, err)
	}
	if in.Departures, err = parseClocks(dep); err != nil {
		return in, fmt.Errorf("trip %q: %w", t.ID, err)
	}
	return in, nil
}

func (fr *FixtureFrequency) expand(route string, numStops int) ([]TripInput, error) {
	if len(fr.Offsets) != numStops {
		return nil, fmt.Errorf("frequency %s-%s: %d offsets for %d stops", fr.Start, fr.End, len(fr.Offsets), numStops)
	}
	start, err := ParseClock(fr.Start)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(fr.End)
	if err != nil {
		return nil, err
	}
	var out []TripInput
	for t := start; t <= end; t += fr.Headway {
		times := make([]int, numStops)
		for i, off := range fr.Offsets {
			times[i] = t + off
		}
		out = append(out, TripInput{
			ID:         route + "@" + FormatClock(t),
			Arrivals:   times,
			Departures: times,
		})
	}
	return out, nil
}

func (w *WalkTransfers) generate(stops []Stop) []transfer.Transfer {
	reluctance := w.Reluctance
	if reluctance == 0 {
		reluctance = 1
	}
	var out []transfer.Transfer
	for i := range stops {
		a := orb.Point{stops[i].Lon, stops[i].Lat}
		bound := geo.NewBoundAroundPoint(a, w.MaxDistance)
		for j := range stops {
			b := orb.Point{stops[j].Lon, stops[j].Lat}
			if i == j || !bound.Contains(b) {
				continue
			}
			d := geo.DistanceHaversine(a, b)
			if d > w.MaxDistance {
				continue
			}
			secs := int(math.Ceil(d / w.Speed))
			out = append(out, transfer.Transfer{
				From:     i,
				To:       j,
				Duration: secs,
				C1:       int(math.Round(float64(secs) * reluctance * raptor.CentiSecondsPerSecond)),
				Modes:    transfer.Walk,
			})
		}
	}
	return out
}

func parseClocks(in []string) ([]int, error) {
	out := make([]int, len(in))
	for i, s := range in {
		t, err := ParseClock(s)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
