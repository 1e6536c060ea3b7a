package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics exposes counters for every edge of the behov/subsumsjon pipeline.
type Metrics struct {
	BehovProduced      prometheus.Counter
	PacketsMottatt     *prometheus.CounterVec
	PacketsIgnorert    prometheus.Counter
	SubsumsjonLagret   prometheus.Counter
	SubsumsjonSlettet  prometheus.Counter
	SubsumsjonBrukt    prometheus.Counter
	BruktEventFiltrert prometheus.Counter
}

// New registers the pipeline instruments on the given registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		BehovProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regelport_behov_produced_total",
			Help: "Number of behov published to the rule engine topic.",
		}),
		PacketsMottatt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "regelport_packets_handled_total",
			Help: "Number of inbound result packets accepted, by strategy.",
		}, []string{"strategy"}),
		PacketsIgnorert: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regelport_packets_ignored_total",
			Help: "Number of inbound result packets no strategy accepted.",
		}),
		SubsumsjonLagret: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regelport_subsumsjon_stored_total",
			Help: "Number of subsumsjon rows persisted.",
		}),
		SubsumsjonSlettet: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regelport_subsumsjon_deleted_total",
			Help: "Number of subsumsjon rows deleted by the retention job.",
		}),
		SubsumsjonBrukt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regelport_subsumsjon_brukt_total",
			Help: "Number of subsumsjon rows marked as used.",
		}),
		BruktEventFiltrert: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regelport_brukt_events_filtered_total",
			Help: "Number of usage events dropped by the closed-case filter.",
		}),
	}

	pipeline := []prometheus.Collector{
		m.BehovProduced,
		m.PacketsMottatt,
		m.PacketsIgnorert,
		m.SubsumsjonLagret,
		m.SubsumsjonSlettet,
		m.SubsumsjonBrukt,
		m.BruktEventFiltrert,
	}
	for _, c := range pipeline {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return nil, err
		}
	}
	return m, nil
}

// NewRegistry builds the process-wide prometheus registry with the standard
// go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
