package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	GRPCAddr      string
	APIToken      string
	Storage       string
	DBConnStr     string
	RunMigrations bool

	LogLevel       string
	LogPretty      bool
	TracingEnabled bool

	Market        string
	CalendarFile  string
	Updater       string
	CurveCacheTTL time.Duration

	DispatcherWorkers int
	DispatcherQueue   int
	JobTimeout        time.Duration

	// ScheduleSpec is a cron expression; empty disables the nightly job
	ScheduleSpec        string
	ScheduledPortfolios []int64
	LookbackDays        int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	portfolios, err := getEnvAsInt64List("SCHEDULE_PORTFOLIOS")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		GRPCAddr:      getEnv("GRPC_ADDR", ":8080"),
		APIToken:      getEnv("API_TOKEN", "dev-token"),
		Storage:       strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		DBConnStr:     databaseConnString(),
		RunMigrations: getEnvAsBool("RUN_MIGRATIONS", true),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPretty:      getEnvAsBool("LOG_PRETTY", false),
		TracingEnabled: getEnvAsBool("TRACING_ENABLED", false),

		Market:        strings.ToUpper(getEnv("MARKET", "JP")),
		CalendarFile:  getEnv("CALENDAR_FILE", ""),
		Updater:       getEnv("EVALUATION_UPDATER", "wealthflow-calculator"),
		CurveCacheTTL: getEnvAsDuration("CURVE_CACHE_TTL", 10*time.Minute),

		DispatcherWorkers: getEnvAsInt("DISPATCHER_WORKERS", 4),
		DispatcherQueue:   getEnvAsInt("DISPATCHER_QUEUE", 64),
		JobTimeout:        getEnvAsDuration("JOB_TIMEOUT", 30*time.Minute),

		ScheduleSpec:        getEnv("SCHEDULE_SPEC", ""),
		ScheduledPortfolios: portfolios,
		LookbackDays:        getEnvAsInt("SCHEDULE_LOOKBACK_DAYS", 7),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Storage != StorageMemory && c.Storage != StoragePostgres {
		return fmt.Errorf("STORAGE must be %q or %q, got %q", StorageMemory, StoragePostgres, c.Storage)
	}
	if c.APIToken == "" {
		return fmt.Errorf("API_TOKEN is required")
	}
	if c.DispatcherWorkers <= 0 {
		return fmt.Errorf("DISPATCHER_WORKERS must be positive")
	}
	if c.ScheduleSpec != "" && len(c.ScheduledPortfolios) == 0 {
		return fmt.Errorf("SCHEDULE_PORTFOLIOS is required when SCHEDULE_SPEC is set")
	}
	if c.LookbackDays < 0 {
		return fmt.Errorf("SCHEDULE_LOOKBACK_DAYS cannot be negative")
	}
	return nil
}

// databaseConnString prefers DB_CONN_STR and otherwise builds one from the
// individual DB_* variables (Docker friendly)
func databaseConnString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "calculator"),
	)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsInt64List(key string) ([]int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid portfolio id %q: %w", key, part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
