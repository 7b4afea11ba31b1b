package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"transit_router/pkg/api"
	"transit_router/pkg/timetable"
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

func main() {
	timetablePath := flag.String("timetable", "timetable.bin", "Path to compiled timetable binary")
	routerURL := flag.String("router-url", "http://localhost:8080", "transit_router backend URL")
	from := flag.String("from", "", "Origin as lat,lng; with --to, plans and draws the itineraries")
	to := flag.String("to", "", "Destination as lat,lng")
	departure := flag.String("departure", "08:00", "Earliest departure HH:MM[:SS]")
	output := flag.String("output", "", "Output GeoJSON path (default stdout)")
	flag.Parse()

	tt, err := timetable.ReadBinary(*timetablePath)
	if err != nil {
		log.Fatalf("Failed to load timetable: %v", err)
	}
	fc := tt.Features()

	if *from != "" || *to != "" {
		req := api.PlanRequest{Departure: *departure}
		if req.From, err = parseLatLng(*from); err != nil {
			log.Fatalf("Invalid --from: %v", err)
		}
		if req.To, err = parseLatLng(*to); err != nil {
			log.Fatalf("Invalid --to: %v", err)
		}
		start := time.Now()
		resp, err := queryPlan(*routerURL, req)
		if err != nil {
			log.Fatalf("Plan failed: %v", err)
		}
		log.Printf("%d itineraries in %s", len(resp.Itineraries), time.Since(start).Round(time.Millisecond))
		for i, it := range resp.Itineraries {
			for _, f := range itineraryFeatures(tt, req, i, it) {
				fc.Append(f)
			}
		}
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		log.Fatalf("Failed to encode GeoJSON: %v", err)
	}
	if *output == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", *output, err)
	}
	log.Printf("Wrote %d features to %s", len(fc.Features), *output)
}

func parseLatLng(s string) (api.LatLngJSON, error) {
	var ll api.LatLngJSON
	if _, err := fmt.Sscanf(s, "%f,%f", &ll.Lat, &ll.Lng); err != nil {
		return ll, fmt.Errorf("expected lat,lng: %w", err)
	}
	return ll, nil
}

func queryPlan(routerURL string, req api.PlanRequest) (*api.PlanResponse, error) {
	body, _ := json.Marshal(req)
	resp, err := httpClient.Post(routerURL+"/api/v1/plan", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var errResp api.ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("%s (HTTP %d)", errResp.Error, resp.StatusCode)
		}
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var planResp api.PlanResponse
	if err := json.Unmarshal(data, &planResp); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	return &planResp, nil
}

// itineraryFeatures draws each leg of it. Transit legs follow the stops of
// their trip; walking legs are straight lines.
func itineraryFeatures(tt *timetable.Timetable, req api.PlanRequest, n int, it api.ItineraryJSON) []*geojson.Feature {
	var out []*geojson.Feature
	for _, leg := range it.Legs {
		from := point(leg.From, req.From)
		to := point(leg.To, req.To)
		line := orb.LineString{from, to}
		if leg.Mode == "transit" {
			if l, ok := transitLine(tt, leg); ok {
				line = l
			}
		}
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "leg"
		f.Properties["itinerary"] = n
		f.Properties["mode"] = leg.Mode
		f.Properties["departure"] = leg.Departure
		f.Properties["arrival"] = leg.Arrival
		if leg.Route != "" {
			f.Properties["route"] = leg.Route
			f.Properties["trip"] = leg.Trip
		}
		out = append(out, f)
	}
	return out
}

func transitLine(tt *timetable.Timetable, leg api.LegJSON) (orb.LineString, bool) {
	trip, ok := tt.TripByID(leg.Trip)
	if !ok || leg.From == nil {
		return nil, false
	}
	stop, ok := tt.StopByID(leg.From.ID)
	if !ok {
		return nil, false
	}
	board := trip.PositionOf(stop, 0)
	if board < 0 || board+leg.Stops >= trip.NumberOfStops() {
		return nil, false
	}
	return tt.TripLine(trip, board, board+leg.Stops), true
}

// point returns the stop location, or the request coordinate at the
// origin and destination ends.
func point(s *api.StopJSON, end api.LatLngJSON) orb.Point {
	if s == nil {
		return orb.Point{end.Lng, end.Lat}
	}
	return orb.Point{s.Lng, s.Lat}
}
