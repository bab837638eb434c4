package params

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the relay reads at startup. Defaults match
// the reference values this system has always shipped with.
type Config struct {
	// MaxBatchSize is the hard ceiling on orders per batch.
	MaxBatchSize int
	// MinBatchSize is required for a timeout-triggered close.
	MinBatchSize int
	// BatchTimeout is the age-based close condition for a collecting batch.
	BatchTimeout time.Duration
	// DepositExpiry is the pending-deposit TTL, counted from submit.
	DepositExpiry time.Duration
	// DepositPollInterval is the DepositMatcher scan cadence.
	DepositPollInterval time.Duration
	// AmountMatchToleranceMicros is the deposit/order amount tolerance, in
	// micro-USDC, before a deposit is treated as a mismatch.
	AmountMatchToleranceMicros int64
	// UnmatchedRetention is how long a resolved unmatched deposit is kept
	// before the Scheduler reaps it.
	UnmatchedRetention time.Duration
	// SchedulerTick is the Scheduler's wake-up interval.
	SchedulerTick time.Duration
	// HTTPAddr is the bind address for the HTTP surface.
	HTTPAddr string
	// DataDir holds the Pebble store and JSON snapshot.
	DataDir string
	// CustodyAddress is the on-chain account deposits are advertised against.
	CustodyAddress string
}

func Default() Config {
	return Config{
		MaxBatchSize:               25,
		MinBatchSize:               1,
		BatchTimeout:               60 * time.Second,
		DepositExpiry:              time.Hour,
		DepositPollInterval:        15 * time.Second,
		AmountMatchToleranceMicros: 10_000, // 0.01 USDC
		UnmatchedRetention:         7 * 24 * time.Hour,
		SchedulerTick:              time.Second,
		HTTPAddr:                   ":8080",
		DataDir:                    "data",
		CustodyAddress:             "11111111111111111111111111111111",
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("RELAY_MAX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxBatchSize = n
		}
	}
	if v := os.Getenv("RELAY_MIN_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MinBatchSize = n
		}
	}
	if v := os.Getenv("RELAY_BATCH_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BatchTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("RELAY_DEPOSIT_EXPIRY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DepositExpiry = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("RELAY_DEPOSIT_POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DepositPollInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("RELAY_AMOUNT_MATCH_TOLERANCE_MICROS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.AmountMatchToleranceMicros = n
		}
	}
	if v := os.Getenv("RELAY_UNMATCHED_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.UnmatchedRetention = time.Duration(n) * 24 * time.Hour
		}
	}
	if v := os.Getenv("RELAY_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("RELAY_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("RELAY_CUSTODY_ADDRESS"); v != "" {
		cfg.CustodyAddress = v
	}

	return cfg
}
