package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "zonarated"

// Outcome label values shared by the counters below.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

type Metrics struct {
	admissionDecisions *prometheus.CounterVec
	credentialsIssued  *prometheus.CounterVec
	consumptions       *prometheus.CounterVec
	deliveries         *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	schedulerTasks     *prometheus.CounterVec
	jobOutcomes        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		admissionDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "decisions_total",
			Help:      "Join request decisions by result.",
		}, []string{"decision"}),
		credentialsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "credentials_issued_total",
			Help:      "Single-use invite links requested from Telegram.",
		}, []string{"status"}),
		consumptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "consumptions_total",
			Help:      "Download session consumption attempts by outcome.",
		}, []string{"entrypoint", "outcome"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "deliveries_total",
			Help:      "Content deliveries by kind and status.",
		}, []string{"kind", "status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Best-effort notifications by status.",
		}, []string{"status"}),
		schedulerTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "task_runs_total",
			Help:      "Reconciliation sub-task runs by task and result.",
		}, []string{"task", "result"}),
		jobOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_total",
			Help:      "Scheduled publish jobs by terminal status.",
		}, []string{"status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.admissionDecisions,
			m.credentialsIssued,
			m.consumptions,
			m.deliveries,
			m.notifications,
			m.schedulerTasks,
			m.jobOutcomes,
		)
	}
	return m
}

func status(err error) string {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeSuccess
}

// All recorders tolerate a nil receiver so components can run without metrics.

func (m *Metrics) AdmissionDecision(decision string) {
	if m == nil {
		return
	}
	m.admissionDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) CredentialIssued(err error) {
	if m == nil {
		return
	}
	m.credentialsIssued.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) Consumption(entrypoint, outcome string) {
	if m == nil {
		return
	}
	m.consumptions.WithLabelValues(entrypoint, outcome).Inc()
}

func (m *Metrics) Delivery(kind string, err error) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(kind, status(err)).Inc()
}

func (m *Metrics) Notification(err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) SchedulerTask(task string, err error) {
	if m == nil {
		return
	}
	m.schedulerTasks.WithLabelValues(task, status(err)).Inc()
}

func (m *Metrics) JobOutcome(jobStatus string) {
	if m == nil {
		return
	}
	m.jobOutcomes.WithLabelValues(jobStatus).Inc()
}
