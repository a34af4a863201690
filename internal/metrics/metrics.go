// Package metrics exposes Prometheus counters for authentication outcomes.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the service layer reports to.
type Recorder interface {
	RecordSignup(outcome string)
	RecordLogin(provider, outcome string)
	RecordExclusiveCode(delivered bool)
	RecordTokenRejection(reason string)
}

type Collector struct {
	signups         *prometheus.CounterVec
	logins          *prometheus.CounterVec
	exclusiveCodes  *prometheus.CounterVec
	tokenRejections *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ventry_auth_signups_total",
			Help: "Signup attempts by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ventry_auth_logins_total",
			Help: "Login attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		exclusiveCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ventry_auth_exclusive_codes_total",
			Help: "Exclusive codes issued, by email delivery result.",
		}, []string{"delivered"}),
		tokenRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ventry_auth_token_rejections_total",
			Help: "Bearer tokens rejected, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(c.signups, c.logins, c.exclusiveCodes, c.tokenRejections)
	return c
}

func (c *Collector) RecordSignup(outcome string) {
	c.signups.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordLogin(provider, outcome string) {
	c.logins.WithLabelValues(provider, outcome).Inc()
}

func (c *Collector) RecordExclusiveCode(delivered bool) {
	c.exclusiveCodes.WithLabelValues(strconv.FormatBool(delivered)).Inc()
}

func (c *Collector) RecordTokenRejection(reason string) {
	c.tokenRejections.WithLabelValues(reason).Inc()
}

// Handler serves the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordSignup(string)         {}
func (Nop) RecordLogin(string, string)  {}
func (Nop) RecordExclusiveCode(bool)    {}
func (Nop) RecordTokenRejection(string) {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
