// Package metrics exposes search and HTTP metrics in the Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transit_router/pkg/planner"
)

// Collector holds the search, HTTP and timetable metrics on a private
// registry. It implements planner.Observer.
type Collector struct {
	reg *prometheus.Registry

	Searches         *prometheus.CounterVec // outcome label
	SearchDuration   prometheus.Histogram
	SearchRounds     prometheus.Histogram
	SearchPaths      prometheus.Histogram
	SearchIterations prometheus.Counter
	Labels           *prometheus.CounterVec // result label: accepted|rejected|dropped

	Requests        *prometheus.CounterVec // route, status labels
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge

	TimetableStops    prometheus.Gauge
	TimetablePatterns prometheus.Gauge
	TimetableTrips    prometheus.Gauge
}

// NewCollector creates a collector on its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_searches_total",
			Help: "Total journey searches by outcome.",
		}, []string{"outcome"}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transit_search_duration_seconds",
			Help:    "Duration of journey searches.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		SearchRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transit_search_rounds",
			Help:    "Highest round reached by a search.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		SearchPaths: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transit_search_paths",
			Help:    "Number of paths returned by a search.",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		}),
		SearchIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_search_iterations_total",
			Help: "Total range iterations run.",
		}),
		Labels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_search_labels_total",
			Help: "Total stop labels by pareto result.",
		}, []string{"result"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_http_requests_total",
			Help: "Total HTTP requests by route and status.",
		}, []string{"route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transit_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_http_in_flight",
			Help: "Number of HTTP requests being served.",
		}),
		TimetableStops: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_timetable_stops",
			Help: "Number of stops in the loaded timetable.",
		}),
		TimetablePatterns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_timetable_patterns",
			Help: "Number of patterns in the loaded timetable.",
		}),
		TimetableTrips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_timetable_trips",
			Help: "Number of trips in the loaded timetable.",
		}),
	}

	reg.MustRegister(
		c.Searches, c.SearchDuration, c.SearchRounds, c.SearchPaths,
		c.SearchIterations, c.Labels,
		c.Requests, c.RequestDuration, c.InFlight,
		c.TimetableStops, c.TimetablePatterns, c.TimetableTrips,
	)
	return c
}

// SearchFinished records a finished search.
func (c *Collector) SearchFinished(r planner.SearchReport) {
	c.Searches.WithLabelValues(string(r.Outcome)).Inc()
	c.SearchDuration.Observe(r.Duration.Seconds())
	if r.Outcome == planner.OutcomeInvalid {
		return
	}
	c.SearchRounds.Observe(float64(r.Stats.Rounds))
	c.SearchPaths.Observe(float64(r.Paths))
	c.SearchIterations.Add(float64(r.Stats.Iterations))
	c.Labels.WithLabelValues("accepted").Add(float64(r.Stats.LabelsAccepted))
	c.Labels.WithLabelValues("rejected").Add(float64(r.Stats.LabelsRejected))
	c.Labels.WithLabelValues("dropped").Add(float64(r.Stats.LabelsDropped))
}

// SetTimetable records the size of the loaded timetable.
func (c *Collector) SetTimetable(stops, patterns, trips int) {
	c.TimetableStops.Set(float64(stops))
	c.TimetablePatterns.Set(float64(patterns))
	c.TimetableTrips.Set(float64(trips))
}

// ObserveRequest records one served HTTP request.
func (c *Collector) ObserveRequest(route string, status int, d time.Duration) {
	c.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	c.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }
