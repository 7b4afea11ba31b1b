package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"

	"transit_router/pkg/access"
	"transit_router/pkg/config"
	"transit_router/pkg/path"
	"transit_router/pkg/planner"
	"transit_router/pkg/timetable"
	"transit_router/pkg/transfer"
	"transit_router/pkg/via"
)

const maxBodyBytes = 16 << 10

// Planner runs journey searches over the loaded timetable.
type Planner interface {
	Search(ctx context.Context, req planner.Request) (*planner.Result[*timetable.Trip], error)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	planner  Planner
	tt       *timetable.Timetable
	locator  *access.Locator
	cfg      *config.Config
	validate *validator.Validate
	stats    StatsResponse
}

// NewHandlers creates handlers searching tt with p. Coordinates are turned
// into access and egress legs by loc.
func NewHandlers(p Planner, tt *timetable.Timetable, loc *access.Locator, cfg *config.Config) *Handlers {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handlers{
		planner:  p,
		tt:       tt,
		locator:  loc,
		cfg:      cfg,
		validate: v,
		stats: StatsResponse{
			ServiceDate:  tt.ServiceDate,
			NumStops:     len(tt.Stops),
			NumPatterns:  len(tt.Patterns),
			NumTrips:     len(tt.Trips),
			NumTransfers: len(tt.Transfers),
		},
	}
}

// HandlePlan handles POST /api/v1/plan.
func (h *Handlers) HandlePlan(w http.ResponseWriter, r *http.Request) {
	id := RequestID(r.Context())

	// Enforce Content-Type.
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "")
		return
	}

	// Parse request.
	var req PlanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "")
		return
	}

	// Validate input.
	if err := validateCoord(req.From); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_coordinates", "from")
		return
	}
	if err := validateCoord(req.To); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_coordinates", "to")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", invalidField(err))
		return
	}

	// Build the search.
	sreq, code, field := h.searchRequest(&req)
	if code != "" {
		status := http.StatusBadRequest
		if code == "no_stops_nearby" {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, r, status, code, field)
		return
	}

	// Search.
	res, err := h.planner.Search(r.Context(), sreq)
	if err != nil {
		switch {
		case errors.Is(err, via.ErrUnreachableSegment):
			writeError(w, r, http.StatusUnprocessableEntity, "via_unreachable", "via")
		case errors.Is(err, planner.ErrInvalidRequest):
			writeError(w, r, http.StatusBadRequest, "invalid_request", "")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, r, http.StatusServiceUnavailable, "request_timeout", "")
		default:
			log.Printf("plan %s: %v", id, err)
			writeError(w, r, http.StatusInternalServerError, "internal_error", "")
		}
		return
	}
	if len(res.Paths) == 0 {
		writeError(w, r, http.StatusNotFound, "no_route_found", "")
		return
	}

	// Build response.
	resp := PlanResponse{
		RequestID:   id,
		ServiceDate: h.tt.ServiceDate,
		Search: SearchStatsJSON{
			Segments:   res.Segments,
			Iterations: res.Stats.Iterations,
			Rounds:     res.Stats.Rounds,
			ElapsedMS:  float64(res.Elapsed.Microseconds()) / 1000,
		},
	}
	for _, p := range res.Paths {
		resp.Itineraries = append(resp.Itineraries, h.itinerary(p))
	}
	log.Printf("plan %s: %d itineraries, %d iterations, %d rounds in %s",
		id, len(resp.Itineraries), res.Stats.Iterations, res.Stats.Rounds, res.Elapsed)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// searchRequest turns a validated plan request into a planner request. A
// non-empty code reports the client error instead.
func (h *Handlers) searchRequest(req *PlanRequest) (sreq planner.Request, code, field string) {
	departure, err := timetable.ParseClock(req.Departure)
	if err != nil {
		return sreq, "invalid_departure", "departure"
	}

	accessLegs, err := h.locator.Legs(orb.Point{req.From.Lng, req.From.Lat})
	if err != nil {
		return sreq, "no_stops_nearby", "from"
	}
	egressLegs, err := h.locator.Legs(orb.Point{req.To.Lng, req.To.Lat})
	if err != nil {
		return sreq, "no_stops_nearby", "to"
	}

	sreq = planner.NewRequest(accessLegs, egressLegs)
	defaults, err := h.cfg.SearchParams(departure)
	if err != nil {
		return sreq, "invalid_request", ""
	}
	b := defaults.Builder()
	if req.SearchWindow != nil {
		if limit := h.cfg.Search.MaxSearchWindow; limit > 0 && *req.SearchWindow > limit {
			return sreq, "search_window_too_large", "search_window"
		}
		b.SearchWindow(*req.SearchWindow)
	}
	if req.MaxRounds != nil {
		b.MaxRounds(*req.MaxRounds)
	}
	if req.Mode != "" {
		mode, err := transfer.ParseMode(req.Mode)
		if err != nil {
			return sreq, "invalid_request", "mode"
		}
		b.Mode(mode)
	}
	sreq.Params = *b.Build()
	sreq.Cost = h.cfg.Cost
	sreq.PriorityCosts = h.cfg.Ranking.PriorityCosts
	sreq.WaitTime = h.cfg.Ranking.WaitTime

	for i, v := range req.Via {
		loc := via.Location{
			Label:           v.Label,
			PassThrough:     v.PassThrough,
			MinimumWaitTime: v.MinWaitSeconds,
		}
		if loc.Label == "" {
			loc.Label = fmt.Sprintf("via%d", i+1)
		}
		for _, stopID := range v.Stops {
			stop, ok := h.tt.StopByID(stopID)
			if !ok {
				return sreq, "unknown_stop", "via"
			}
			loc.Connections = append(loc.Connections, via.Connection{Stop: stop})
		}
		sreq.Via = append(sreq.Via, loc)
	}
	return sreq, "", ""
}

func (h *Handlers) itinerary(p *path.Path[*timetable.Trip]) ItineraryJSON {
	it := ItineraryJSON{
		Departure:       timetable.FormatClock(p.Departure),
		Arrival:         timetable.FormatClock(p.Arrival),
		DurationSeconds: p.Duration(),
		Transfers:       p.Transfers,
		GeneralizedCost: p.C1,
	}
	for i := range p.Legs {
		leg := &p.Legs[i]
		lj := LegJSON{
			Mode:            leg.Kind.String(),
			From:            h.stopJSON(leg.FromStop),
			To:              h.stopJSON(leg.ToStop),
			Departure:       timetable.FormatClock(leg.Departure),
			Arrival:         timetable.FormatClock(leg.Arrival),
			DurationSeconds: leg.Duration(),
		}
		if leg.Kind == path.LegTransit {
			lj.Route = leg.Trip.Route()
			lj.Trip = leg.Trip.ID
			lj.WaitSeconds = leg.Wait
			lj.Stops = leg.AlightPos - leg.BoardPos
		}
		it.Legs = append(it.Legs, lj)
	}

	// Via stops are reached in leg order; a pass-through stop may lie
	// inside a transit leg.
	next := 0
	for _, stop := range p.ViaStops {
		for ; next < len(p.Legs); next++ {
			if t, ok := timeAt(&p.Legs[next], stop); ok {
				it.Via = append(it.Via, ViaVisitJSON{Stop: *h.stopJSON(stop), Time: timetable.FormatClock(t)})
				break
			}
		}
	}
	return it
}

func timeAt(leg *path.Leg[*timetable.Trip], stop int) (int, bool) {
	if leg.Kind == path.LegTransit {
		if pos := leg.Trip.PositionOf(stop, leg.BoardPos); pos > leg.BoardPos && pos <= leg.AlightPos {
			return leg.Trip.Arrival(pos), true
		}
	}
	if leg.ToStop == stop {
		return leg.Arrival, true
	}
	return 0, false
}

func (h *Handlers) stopJSON(stop int) *StopJSON {
	if stop == path.NoStop {
		return nil
	}
	s := &h.tt.Stops[stop]
	return &StopJSON{ID: s.ID, Name: s.Name, Lat: s.Lat, Lng: s.Lon}
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.stats)
}

func validateCoord(ll LatLngJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func invalidField(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field()
	}
	return ""
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field, RequestID: RequestID(r.Context())})
}
