// Package metrics collects Prometheus counters for authentication and
// collection activity and serves them for scraping.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services and middleware report to.
type Recorder interface {
	RecordSignUp(outcome string)
	RecordSignIn(outcome string)
	RecordOAuthLink(outcome string)
	RecordEntriesUpserted(count int)
	RecordHTTPStatus(statusCode int)
	RecordRateLimited(scope string)
}

// Outcome labels shared by the auth counters.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeCreated  = "created"
	OutcomeLinked   = "linked"
)

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	signUps         *prometheus.CounterVec
	signIns         *prometheus.CounterVec
	oauthLinks      *prometheus.CounterVec
	entriesUpserted prometheus.Counter
	httpStatus      *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "momo_signup_total",
			Help: "Email sign-up attempts by outcome.",
		}, []string{"outcome"}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "momo_signin_total",
			Help: "Email sign-in attempts by outcome.",
		}, []string{"outcome"}),
		oauthLinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "momo_oauth_resolve_total",
			Help: "OAuth resolutions: created (new account) or linked (existing).",
		}, []string{"outcome"}),
		entriesUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "momo_collection_entries_upserted_total",
			Help: "Collection entries written by upserts.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "momo_http_status_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "momo_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
	}

	reg.MustRegister(
		c.signUps,
		c.signIns,
		c.oauthLinks,
		c.entriesUpserted,
		c.httpStatus,
		c.rateLimited,
	)
	return c
}

func (c *Collector) RecordSignUp(outcome string)    { c.signUps.WithLabelValues(outcome).Inc() }
func (c *Collector) RecordSignIn(outcome string)    { c.signIns.WithLabelValues(outcome).Inc() }
func (c *Collector) RecordOAuthLink(outcome string) { c.oauthLinks.WithLabelValues(outcome).Inc() }
func (c *Collector) RecordRateLimited(scope string) { c.rateLimited.WithLabelValues(scope).Inc() }

func (c *Collector) RecordEntriesUpserted(count int) {
	c.entriesUpserted.Add(float64(count))
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler returns the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
