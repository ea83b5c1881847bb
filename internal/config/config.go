package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

const (
	DefaultTimeZone = "America/Bogota"

	// Ingestion limits
	HeaderScanLimit   = 30
	MaxReportedErrors = 10
	ProductCodeLength = 7
	BatchSize         = 500

	// Upload log retention job
	DefaultPruneSchedule      = "0 3 * * *"
	DefaultUploadLogRetention = 90 * 24 * time.Hour
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	ReplaceAtomic   = "atomic"
	ReplaceTwoPhase = "two-phase"
)

type DatabaseOptions struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"pdm"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"10"`
}

// ConnectionString is the keyword/value DSN understood by both lib/pq and pgx.
func (d DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// ArchiveOptions controls copying accepted uploads to S3.
type ArchiveOptions struct {
	Enabled bool   `env:"ARCHIVE_ENABLED" envDefault:"false"`
	Bucket  string `env:"ARCHIVE_S3_BUCKET"`
	Region  string `env:"ARCHIVE_S3_REGION" envDefault:"us-east-1"`
	BaseURL string `env:"ARCHIVE_S3_BASE_URL"`
	Prefix  string `env:"ARCHIVE_PREFIX" envDefault:"pdm/ejecucion/"`
}

type Configuration struct {
	Database DatabaseOptions
	Archive  ArchiveOptions

	ServicesFile       string        `env:"SERVICES_FILE" envDefault:"services.yaml"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	MaxUploadSize      int64         `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"`
	LedgerStore        string        `env:"LEDGER_STORE" envDefault:"postgres"`
	ReplaceMode        string        `env:"LEDGER_REPLACE_MODE" envDefault:"atomic"`
	RunMigrations      bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
	OrganizationHeader string        `env:"ORGANIZATION_HEADER" envDefault:"X-Organization-ID"`
	UploadLogRetention time.Duration `env:"UPLOAD_LOG_RETENTION" envDefault:"2160h"`
}

func (c *Configuration) Validate() error {
	switch c.LedgerStore {
	case StorePostgres, StoreMemory:
	default:
		return errors.Errorf("LEDGER_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.LedgerStore)
	}
	switch c.ReplaceMode {
	case ReplaceAtomic, ReplaceTwoPhase:
	default:
		return errors.Errorf("LEDGER_REPLACE_MODE must be %q or %q, got %q", ReplaceAtomic, ReplaceTwoPhase, c.ReplaceMode)
	}
	if c.MaxUploadSize <= 0 {
		return errors.Errorf("MAX_UPLOAD_SIZE must be positive, got %d", c.MaxUploadSize)
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return errors.New("ARCHIVE_S3_BUCKET is required when ARCHIVE_ENABLED is set")
	}
	if c.OrganizationHeader == "" {
		return errors.New("ORGANIZATION_HEADER must not be empty")
	}
	return nil
}

// Load reads the given env files (missing ones are skipped) and parses the
// process environment into a Configuration.
func Load(envFiles ...string) (*Configuration, error) {
	existing := make([]string, 0, len(envFiles))
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, errors.Wrap(err, "load env files")
		}
	}

	cfg := &Configuration{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
