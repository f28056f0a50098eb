package shared

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	StoreDriver string
	MySQLDSN    string
	SQLitePath  string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	// ApprovalQuorum is the number of approvals at which a review becomes
	// approved. Read once at startup.
	ApprovalQuorum int

	DirectoryBase string
	DirectoryRPS  int
	WriteRPS      int

	ImportFile    string
	ImportWorkers int

	// TracesExporter selects where workflow spans go: none or log.
	TracesExporter string
}

func Load() Config {
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ""),
		StoreDriver:    env("STORE_DRIVER", DriverMySQL),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/campus_coffee?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		SQLitePath:     env("SQLITE_PATH", "./campus_coffee.db"),
		RedisAddr:      env("REDIS_ADDR", ""),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 60)) * time.Second,
		ApprovalQuorum: atoi("APPROVAL_MIN_COUNT", 3),
		DirectoryBase:  env("DIRECTORY_BASE_URL", ""),
		DirectoryRPS:   atoi("DIRECTORY_RPS", 20),
		WriteRPS:       atoi("WRITE_RPS", 50),
		ImportFile:     env("IMPORT_FILE", ""),
		ImportWorkers:  atoi("IMPORT_WORKERS", 8),
		TracesExporter: env("TRACES_EXPORTER", "none"),
	}
	if c.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR is empty; filter cache disabled")
	}
	return c
}

// Validate rejects configurations the workflow cannot run with.
func (c Config) Validate() error {
	if c.ApprovalQuorum < 0 {
		return fmt.Errorf("APPROVAL_MIN_COUNT must be >= 0, got %d", c.ApprovalQuorum)
	}
	switch c.StoreDriver {
	case DriverMySQL, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.ImportWorkers <= 0 {
		return fmt.Errorf("IMPORT_WORKERS must be > 0, got %d", c.ImportWorkers)
	}
	switch c.TracesExporter {
	case "", "none", "log":
	default:
		return fmt.Errorf("unknown TRACES_EXPORTER %q", c.TracesExporter)
	}
	return nil
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer env value")
	}
	return def
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
