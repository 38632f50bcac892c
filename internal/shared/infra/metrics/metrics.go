package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics agrupa los contadores Prometheus del servicio.
// Todos los métodos aceptan receptor nil para que los tests no tengan que registrar nada.
type Metrics struct {
	WorkflowsStarted  prometheus.Counter
	WorkflowsFinished *prometheus.CounterVec
	ActivityAttempts  *prometheus.CounterVec
	OutboxDispatched  *prometheus.CounterVec
}

// New crea y registra las métricas en el Registerer indicado.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WorkflowsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "hexacert_workflows_started_total",
			Help: "Workflows de emisión nuevos (las reanudaciones no cuentan)",
		}),
		WorkflowsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hexacert_workflows_finished_total",
			Help: "Workflows de emisión terminados por resultado",
		}, []string{"result"}),
		ActivityAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hexacert_activity_attempts_total",
			Help: "Intentos de actividad por actividad y resultado",
		}, []string{"activity", "outcome"}),
		OutboxDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hexacert_outbox_dispatched_total",
			Help: "Mensajes de outbox procesados por el dispatcher",
		}, []string{"result"}),
	}
}

func (m *Metrics) WorkflowStarted() {
	if m == nil {
		return
	}
	m.WorkflowsStarted.Inc()
}

func (m *Metrics) WorkflowFinished(result string) {
	if m == nil {
		return
	}
	m.WorkflowsFinished.WithLabelValues(result).Inc()
}

func (m *Metrics) ActivityAttempt(activity, outcome string) {
	if m == nil {
		return
	}
	m.ActivityAttempts.WithLabelValues(activity, outcome).Inc()
}

func (m *Metrics) OutboxResult(result string) {
	if m == nil {
		return
	}
	m.OutboxDispatched.WithLabelValues(result).Inc()
}
