package api

// PlanRequest is the JSON body for POST /api/v1/plan.
type PlanRequest struct {
	From LatLngJSON `json:"from"`
	To   LatLngJSON `json:"to"`

	// Departure is the earliest departure as HH:MM[:SS] on the service day.
	Departure    string    `json:"departure" validate:"required"`
	SearchWindow *int      `json:"search_window,omitempty" validate:"omitempty,gte=0"` // seconds
	MaxRounds    *int      `json:"max_rounds,omitempty" validate:"omitempty,gte=1,lte=32"`
	Mode         string    `json:"mode,omitempty" validate:"omitempty,oneof=walk bike car"`
	Via          []ViaJSON `json:"via,omitempty" validate:"omitempty,max=5,dive"`
}

// ViaJSON is a via location given by the stops that reach it.
type ViaJSON struct {
	Label          string   `json:"label"`
	Stops          []string `json:"stops" validate:"required,min=1,dive,required"`
	MinWaitSeconds int      `json:"min_wait_seconds,omitempty" validate:"gte=0"`
	PassThrough    bool     `json:"pass_through,omitempty"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PlanResponse is the JSON response for a successful plan query.
type PlanResponse struct {
	RequestID   string          `json:"request_id"`
	ServiceDate string          `json:"service_date"`
	Itineraries []ItineraryJSON `json:"itineraries"`
	Search      SearchStatsJSON `json:"search"`
}

// ItineraryJSON is one ranked path.
type ItineraryJSON struct {
	Departure       string         `json:"departure"`
	Arrival         string         `json:"arrival"`
	DurationSeconds int            `json:"duration_seconds"`
	Transfers       int            `json:"transfers"`
	GeneralizedCost int            `json:"generalized_cost"` // centi-seconds
	Legs            []LegJSON      `json:"legs"`
	Via             []ViaVisitJSON `json:"via,omitempty"`
}

// LegJSON is one leg of an itinerary. From is omitted on access legs and
// To on egress legs.
type LegJSON struct {
	Mode            string    `json:"mode"`
	From            *StopJSON `json:"from,omitempty"`
	To              *StopJSON `json:"to,omitempty"`
	Departure       string    `json:"departure"`
	Arrival         string    `json:"arrival"`
	DurationSeconds int       `json:"duration_seconds"`
	Route           string    `json:"route,omitempty"`
	Trip            string    `json:"trip,omitempty"`
	WaitSeconds     int       `json:"wait_seconds,omitempty"`
	Stops           int       `json:"stops,omitempty"` // stops travelled on a transit leg
}

// StopJSON describes a stop.
type StopJSON struct {
	ID   string  `json:"id"`
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// ViaVisitJSON is the stop and time at which a via location was reached.
type ViaVisitJSON struct {
	Stop StopJSON `json:"stop"`
	Time string   `json:"time"`
}

// SearchStatsJSON summarises the work a search did.
type SearchStatsJSON struct {
	Segments   int     `json:"segments"`
	Iterations int     `json:"iterations"`
	Rounds     int     `json:"rounds"`
	ElapsedMS  float64 `json:"elapsed_ms"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	ServiceDate  string `json:"service_date"`
	NumStops     int    `json:"num_stops"`
	NumPatterns  int    `json:"num_patterns"`
	NumTrips     int    `json:"num_trips"`
	NumTransfers int    `json:"num_transfers"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
