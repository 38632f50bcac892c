package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_CountersIncrement(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.WorkflowStarted()
	m.WorkflowFinished("done")
	m.WorkflowFinished("done")
	m.ActivityAttempt("DeliverToWallet", "faulted")
	m.OutboxResult("delivered")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkflowsStarted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WorkflowsFinished.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActivityAttempts.WithLabelValues("DeliverToWallet", "faulted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxDispatched.WithLabelValues("delivered")))
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.WorkflowStarted()
		m.WorkflowFinished("done")
		m.ActivityAttempt("IssueToLedger", "completed")
		m.OutboxResult("failed")
	})
}
