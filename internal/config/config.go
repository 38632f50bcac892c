package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	issuanceDomain "github.com/davicafu/hexacert/internal/issuance/domain"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongoDB  = "mongodb"
)

type Config struct {
	StoreDriver string
	SQLitePath  string
	DatabaseURL string
	MongoURI    string
	MongoDB     string

	RedisAddr string
	CacheTTL  time.Duration

	UseKafka     bool
	KafkaBrokers []string
	KafkaGroupID string

	ClickHouseAddr string
	ClickHouseDB   string

	LedgerURL     string
	ClientTimeout time.Duration

	HTTPPort string
	LogLevel string

	OutboxPeriod        time.Duration
	OutboxLimit         int
	WorkflowConcurrency int
	ResumeBatch         int
	ResumePeriod        time.Duration

	Policies issuanceDomain.Policies
}

// LoadConfig lee la configuración del entorno. Los valores mal formados caen al valor por defecto.
func LoadConfig() *Config {
	return load(os.Getenv)
}

func load(getenv func(string) string) *Config {
	getEnv := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}
	getInt := func(key string, fallback int) int {
		if v, err := strconv.Atoi(getenv(key)); err == nil && v > 0 {
			return v
		}
		return fallback
	}
	getDuration := func(key string, fallback time.Duration) time.Duration {
		if v, err := time.ParseDuration(getenv(key)); err == nil && v > 0 {
			return v
		}
		return fallback
	}

	cfg := &Config{
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
		SQLitePath:  getEnv("SQLITE_PATH", "./hexacert.db"),
		DatabaseURL: getenv("DATABASE_URL"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "hexacert"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTTL:  getDuration("CACHE_TTL", 5*time.Minute),

		UseKafka:     strings.EqualFold(getenv("USE_KAFKA"), "true"),
		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "hexacert"),

		ClickHouseAddr: getenv("CLICKHOUSE_ADDR"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "default"),

		LedgerURL:     getEnv("LEDGER_URL", "http://localhost:9090"),
		ClientTimeout: getDuration("CLIENT_TIMEOUT", 10*time.Second),

		HTTPPort: getEnv("HTTP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OutboxPeriod:        getDuration("OUTBOX_PERIOD", time.Second),
		OutboxLimit:         getInt("OUTBOX_LIMIT", 10),
		WorkflowConcurrency: getInt("WORKFLOW_CONCURRENCY", 16),
		ResumeBatch:         getInt("RESUME_BATCH", 500),
		ResumePeriod:        getDuration("RESUME_PERIOD", time.Minute),
	}

	p := issuanceDomain.DefaultPolicies()
	p.IssueToLedger.Rules[0].MaxAttempts = getInt("LEDGER_SUBMIT_ATTEMPTS", p.IssueToLedger.Rules[0].MaxAttempts)
	p.AwaitCommitment.Rules[0].MaxAttempts = getInt("COMMIT_POLL_ATTEMPTS", p.AwaitCommitment.Rules[0].MaxAttempts)
	p.AwaitCommitment.Rules[0].Interval = getDuration("COMMIT_POLL_INTERVAL", p.AwaitCommitment.Rules[0].Interval)
	p.DeliverToWallet.Rules[0].MaxAttempts = getInt("WALLET_ATTEMPTS", p.DeliverToWallet.Rules[0].MaxAttempts)
	p.MarkIssued.Rules[0].MaxAttempts = getInt("MARK_ISSUED_ATTEMPTS", p.MarkIssued.Rules[0].MaxAttempts)
	cfg.Policies = p

	return cfg
}

// Validate comprueba las combinaciones que no tienen valor por defecto posible.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for store driver %q", c.StoreDriver)
		}
	case DriverMongoDB:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.OutboxPeriod <= 0 || c.ResumePeriod <= 0 {
		return fmt.Errorf("OUTBOX_PERIOD and RESUME_PERIOD must be positive")
	}
	return nil
}
