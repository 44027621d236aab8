// Package metrics exposes poller and dispatcher health to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/dispatcher"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/poller"
)

type pollerStats interface {
	Stats() poller.Stats
}

type dispatcherStats interface {
	Stats() dispatcher.Stats
}

// Collector samples poller and dispatcher state on each scrape.
type Collector struct {
	poller     pollerStats
	dispatcher dispatcherStats

	available         prometheus.Gauge
	lastSuccess       prometheus.Gauge
	pollsTotal        *prometheus.GaugeVec
	staleGroups       *prometheus.GaugeVec
	commandsTotal     *prometheus.GaugeVec
	commandQueueDepth prometheus.Gauge
}

func NewCollector(p pollerStats, d dispatcherStats) *Collector {
	return &Collector{
		poller:     p,
		dispatcher: d,
		available: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nanokvm_device_available",
			Help: "1 when the device is reachable, 0 after consecutive poll failures",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nanokvm_last_successful_poll_timestamp_seconds",
			Help: "Last successful poll timestamp (epoch seconds)",
		}),
		pollsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nanokvm_polls_total",
			Help: "Polls by outcome since start",
		}, []string{"outcome"}),
		staleGroups: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nanokvm_status_group_stale",
			Help: "1 when the status group carries stale values",
		}, []string{"group"}),
		commandsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nanokvm_commands_total",
			Help: "Dispatched commands by outcome since start",
		}, []string{"outcome"}),
		commandQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nanokvm_command_queue_depth",
			Help: "Commands currently queued for the device",
		}),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.available.Describe(ch)
	c.lastSuccess.Describe(ch)
	c.pollsTotal.Describe(ch)
	c.staleGroups.Describe(ch)
	c.commandsTotal.Describe(ch)
	c.commandQueueDepth.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	pStats := c.poller.Stats()
	dStats := c.dispatcher.Stats()

	if pStats.Available {
		c.available.Set(1)
	} else {
		c.available.Set(0)
	}
	if !pStats.LastSuccess.IsZero() {
		c.lastSuccess.Set(float64(pStats.LastSuccess.Unix()))
	}
	c.pollsTotal.WithLabelValues("success").Set(float64(pStats.PollSuccess))
	c.pollsTotal.WithLabelValues("partial").Set(float64(pStats.PollPartial))
	c.pollsTotal.WithLabelValues("failure").Set(float64(pStats.PollFailure))

	c.staleGroups.Reset()
	for _, group := range pStats.StaleGroups {
		c.staleGroups.WithLabelValues(group.String()).Set(1)
	}

	c.commandsTotal.WithLabelValues("success").Set(float64(dStats.Succeeded))
	c.commandsTotal.WithLabelValues("failure").Set(float64(dStats.Failed))
	c.commandQueueDepth.Set(float64(dStats.QueueDepth))

	c.available.Collect(ch)
	c.lastSuccess.Collect(ch)
	c.pollsTotal.Collect(ch)
	c.staleGroups.Collect(ch)
	c.commandsTotal.Collect(ch)
	c.commandQueueDepth.Collect(ch)
}
