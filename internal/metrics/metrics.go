// Package metrics defines the Prometheus instrumentation the orchestrator
// exposes. This is ambient observability, not one of the concerns spec.md
// scopes out (GraphQL surface, config loading, logging setup, store
// transport) — it is carried regardless, per SPEC_FULL.md §2.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector bundles the metrics every RobotHandler reports against. A nil
// *Collector is valid and every
// method becomes a no-op, so components can be constructed without metrics
// in tests.
type Collector struct {
	JobsDispatched  *prometheus.CounterVec
	JobsTerminal    *prometheus.CounterVec
	QueueDepth      *prometheus.GaugeVec
	TriggerAttempts *prometheus.CounterVec
}

// NewCollector builds and registers the collector's metrics against reg.
// Pass prometheus.NewRegistry() in tests to avoid colliding with the global
// default registry across parallel test packages.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		JobsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warehousefleet",
			Name:      "jobs_dispatched_total",
			Help:      "Jobs handed to a robot transport, by robot and operation.",
		}, []string{"robot", "operation"}),
		JobsTerminal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warehousefleet",
			Name:      "jobs_terminal_total",
			Help:      "Jobs that reached a terminal status, by robot and status.",
		}, []string{"robot", "status"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "warehousefleet",
			Name:      "robot_queue_depth",
			Help:      "Number of jobs currently queued (excluding the current job) per robot.",
		}, []string{"robot"}),
		TriggerAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warehousefleet",
			Name:      "robot_trigger_attempts_total",
			Help:      "Trigger invocations per robot, labeled by whether a job was dispatched.",
		}, []string{"robot", "dispatched"}),
	}

	reg.MustRegister(c.JobsDispatched, c.JobsTerminal, c.QueueDepth, c.TriggerAttempts)
	return c
}

func (c *Collector) dispatched(robot string, op string) {
	if c == nil {
		return
	}
	c.JobsDispatched.WithLabelValues(robot, op).Inc()
}

func (c *Collector) terminal(robot string, status string) {
	if c == nil {
		return
	}
	c.JobsTerminal.WithLabelValues(robot, status).Inc()
}

func (c *Collector) queueDepth(robot string, depth int) {
	if c == nil {
		return
	}
	c.QueueDepth.WithLabelValues(robot).Set(float64(depth))
}

func (c *Collector) trigger(robot string, dispatched bool) {
	if c == nil {
		return
	}
	label := "false"
	if dispatched {
		label = "true"
	}
	c.TriggerAttempts.WithLabelValues(robot, label).Inc()
}

// Dispatched records a job handed to the transport.
func (c *Collector) Dispatched(robot, op string) { c.dispatched(robot, op) }

// Terminal records a job reaching a terminal status.
func (c *Collector) Terminal(robot, status string) { c.terminal(robot, status) }

// QueueDepthSet records the current queue length for a robot.
func (c *Collector) QueueDepthSet(robot string, depth int) { c.queueDepth(robot, depth) }

// Trigger records one trigger() invocation and whether it dispatched a job.
func (c *Collector) Trigger(robot string, dispatched bool) { c.trigger(robot, dispatched) }
