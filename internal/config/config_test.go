package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	issuanceDomain "github.com/davicafu/hexacert/internal/issuance/domain"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg := load(envFrom(nil))

	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.False(t, cfg.UseKafka)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, time.Second, cfg.OutboxPeriod)
	assert.Equal(t, time.Minute, cfg.ResumePeriod)
	assert.Equal(t, 500, cfg.ResumeBatch)
	assert.Equal(t, issuanceDomain.DefaultPolicies(), cfg.Policies)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	cfg := load(envFrom(map[string]string{
		"STORE_DRIVER":           "Postgres",
		"DATABASE_URL":           "postgres://x",
		"USE_KAFKA":              "true",
		"KAFKA_BROKERS":          "a:9092,b:9092",
		"OUTBOX_PERIOD":          "250ms",
		"RESUME_PERIOD":          "30s",
		"RESUME_BATCH":           "50",
		"WORKFLOW_CONCURRENCY":   "4",
		"LEDGER_SUBMIT_ATTEMPTS": "7",
		"COMMIT_POLL_INTERVAL":   "2s",
		"WALLET_ATTEMPTS":        "not-a-number",
	}))

	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.True(t, cfg.UseKafka)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 250*time.Millisecond, cfg.OutboxPeriod)
	assert.Equal(t, 4, cfg.WorkflowConcurrency)
	assert.Equal(t, 30*time.Second, cfg.ResumePeriod)
	assert.Equal(t, 50, cfg.ResumeBatch)
	assert.Equal(t, 7, cfg.Policies.IssueToLedger.Rules[0].MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Policies.AwaitCommitment.Rules[0].Interval)
	assert.Equal(t, 3, cfg.Policies.DeliverToWallet.Rules[0].MaxAttempts)
	require.NoError(t, cfg.Validate())
}

func TestLoadDoesNotShareDefaultPolicies(t *testing.T) {
	cfg := load(envFrom(map[string]string{"LEDGER_SUBMIT_ATTEMPTS": "9"}))
	assert.Equal(t, 9, cfg.Policies.IssueToLedger.Rules[0].MaxAttempts)
	assert.Equal(t, 3, issuanceDomain.DefaultPolicies().IssueToLedger.Rules[0].MaxAttempts)
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&Config{StoreDriver: DriverPostgres}).Validate())
	assert.Error(t, (&Config{StoreDriver: "oracle"}).Validate())
	assert.NoError(t, (&Config{StoreDriver: DriverMongoDB, OutboxPeriod: time.Second, ResumePeriod: time.Minute}).Validate())
	assert.Error(t, (&Config{StoreDriver: DriverSQLite, OutboxPeriod: time.Second}).Validate())
}
