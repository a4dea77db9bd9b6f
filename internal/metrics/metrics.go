// Package metrics holds the prometheus collectors of the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons for TimersRejected.
const (
	ReasonRunning  = "running"
	ReasonNotOwner = "not_owner"
	ReasonIdle     = "idle"
	ReasonInvalid  = "invalid"
)

// Metrics groups all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	TimersStarted   prometheus.Counter
	TimersFinished  prometheus.Counter
	TimersStopped   prometheus.Counter
	TimersAborted   prometheus.Counter
	TimersRejected  *prometheus.CounterVec
	ActiveTimers    prometheus.Gauge
	FanoutMessages  prometheus.Counter
	PersistFailures prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TimersStarted:   f.NewCounter(prometheus.CounterOpts{Name: "timerbot_timers_started_total", Help: "Timers started"}),
		TimersFinished:  f.NewCounter(prometheus.CounterOpts{Name: "timerbot_timers_finished_total", Help: "Timers that ran down to zero"}),
		TimersStopped:   f.NewCounter(prometheus.CounterOpts{Name: "timerbot_timers_stopped_total", Help: "Timers stopped by their owner"}),
		TimersAborted:   f.NewCounter(prometheus.CounterOpts{Name: "timerbot_timers_aborted_total", Help: "Timers dropped after a failed status edit"}),
		TimersRejected:  f.NewCounterVec(prometheus.CounterOpts{Name: "timerbot_timers_rejected_total", Help: "Rejected timer requests"}, []string{"reason"}),
		ActiveTimers:    f.NewGauge(prometheus.GaugeOpts{Name: "timerbot_active_timers", Help: "Currently running timers"}),
		FanoutMessages:  f.NewCounter(prometheus.CounterOpts{Name: "timerbot_fanout_messages_total", Help: "Subscriber notification messages sent"}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{Name: "timerbot_subscriber_persist_failures_total", Help: "Failed subscriber table writes"}),
	}
}

func (m *Metrics) Started() {
	if m != nil {
		m.TimersStarted.Inc()
		m.ActiveTimers.Inc()
	}
}

func (m *Metrics) Finished() {
	if m != nil {
		m.TimersFinished.Inc()
		m.ActiveTimers.Dec()
	}
}

func (m *Metrics) Stopped() {
	if m != nil {
		m.TimersStopped.Inc()
		m.ActiveTimers.Dec()
	}
}

func (m *Metrics) Aborted() {
	if m != nil {
		m.TimersAborted.Inc()
		m.ActiveTimers.Dec()
	}
}

func (m *Metrics) Rejected(reason string) {
	if m != nil {
		m.TimersRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) FanoutSent() {
	if m != nil {
		m.FanoutMessages.Inc()
	}
}

func (m *Metrics) PersistFailed() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}
