// Package metrics exposes hub instrumentation as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	ActiveBrokers   prometheus.Gauge
	ActiveListeners prometheus.Gauge

	BrokersCreated   prometheus.Counter
	BrokersDestroyed prometheus.Counter

	MessagesAppended *prometheus.CounterVec // type label: AIS|Aircraft|Rail|Transit
	SourceFetches    *prometheus.CounterVec // source and outcome labels

	FlightLookups       prometheus.Counter
	FlightLookupMemoHit prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ActiveBrokers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hub_active_brokers",
			Help: "Number of live region brokers, including those pending destruction.",
		}),
		ActiveListeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hub_active_listeners",
			Help: "Number of attached client listeners across all brokers.",
		}),
		BrokersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_brokers_created_total",
			Help: "Total region brokers created.",
		}),
		BrokersDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_brokers_destroyed_total",
			Help: "Total region brokers destroyed.",
		}),
		MessagesAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_messages_appended_total",
			Help: "Total messages appended to broker logs.",
		}, []string{"type"}),
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_source_fetches_total",
			Help: "Total upstream fetch attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		FlightLookups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_flight_lookups_total",
			Help: "Total flight callsign lookups reaching the upstream service.",
		}),
		FlightLookupMemoHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_flight_lookup_memo_hits_total",
			Help: "Total flight callsign lookups served from the memo cache.",
		}),
	}

	reg.MustRegister(
		c.ActiveBrokers, c.ActiveListeners,
		c.BrokersCreated, c.BrokersDestroyed,
		c.MessagesAppended, c.SourceFetches,
		c.FlightLookups, c.FlightLookupMemoHit,
	)
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// hub.Metrics implementation.

func (c *Collector) BrokerCreated() {
	c.BrokersCreated.Inc()
	c.ActiveBrokers.Inc()
}

func (c *Collector) BrokerDestroyed() {
	c.BrokersDestroyed.Inc()
	c.ActiveBrokers.Dec()
}

func (c *Collector) MessageAppended(msgType string) {
	c.MessagesAppended.WithLabelValues(msgType).Inc()
}

func (c *Collector) ListenerAdded() { c.ActiveListeners.Inc() }

func (c *Collector) ListenerRemoved() { c.ActiveListeners.Dec() }

// sources.Metrics implementation.

func (c *Collector) SourceFetchOK(source string) {
	c.SourceFetches.WithLabelValues(source, "ok").Inc()
}

func (c *Collector) SourceFetchError(source string) {
	c.SourceFetches.WithLabelValues(source, "error").Inc()
}

// flights instrumentation.

func (c *Collector) FlightLookup(memoHit bool) {
	if memoHit {
		c.FlightLookupMemoHit.Inc()
	} else {
		c.FlightLookups.Inc()
	}
}
