package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrInvalid marks configuration problems detected before any storage access.
var ErrInvalid = errors.New("invalid configuration")

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	FirebaseProjectID   string
	FirebaseCredsBase64 string
	FirebaseCredsFile   string
	EmulatorHost        string
	LogLevel            string
	TenantIDPattern     string

	Reconcile ReconcileConfig
	Audit     AuditConfig
	Server    ServerConfig
}

// ReconcileConfig is the raw reconcile job input. Empty strings mean "not set" so a
// preset can fill them in; nothing here carries a collection default.
type ReconcileConfig struct {
	Preset            string
	Collection        string
	TenantID          string
	TenantField       string
	Strategy          string
	CreatorField      string
	CreatorCollection string
	ParentField       string
	ParentCollection  string
	DryRun            bool
	PageSize          int
	BatchSize         int
	ReportDir         string
	ReportPath        string
	RunsCollection    string
}

// AuditConfig configures the read-only tenant distribution audit.
type AuditConfig struct {
	Collection        string
	TenantField       string
	TenantsCollection string
	PageSize          int
}

// ServerConfig configures the run viewer.
type ServerConfig struct {
	Port           string
	GinMode        string
	AllowedOrigins string
}

const (
	DefaultTenantIDPattern = `^[A-Za-z0-9]{20}$`
	DefaultRunsCollection  = "reconcile_runs"
	DefaultPageSize        = 300
	DefaultBatchSize       = 100

	// MaxBatchSize is the Firestore limit on writes per commit.
	MaxBatchSize = 500
)

// Load reads environment variables into a Config with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		FirebaseProjectID:   strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID")),
		FirebaseCredsBase64: strings.TrimSpace(os.Getenv("FIREBASE_CREDS_BASE64")),
		FirebaseCredsFile:   strings.TrimSpace(os.Getenv("FIREBASE_CREDS_FILE")),
		EmulatorHost:        strings.TrimSpace(os.Getenv("FIRESTORE_EMULATOR_HOST")),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		TenantIDPattern:     getEnv("TENANT_ID_PATTERN", DefaultTenantIDPattern),
		Reconcile: ReconcileConfig{
			Preset:            strings.TrimSpace(os.Getenv("RECONCILE_PRESET")),
			Collection:        strings.TrimSpace(os.Getenv("RECONCILE_COLLECTION")),
			TenantID:          strings.TrimSpace(os.Getenv("RECONCILE_TENANT_ID")),
			TenantField:       strings.TrimSpace(os.Getenv("RECONCILE_TENANT_FIELD")),
			Strategy:          strings.TrimSpace(os.Getenv("RECONCILE_STRATEGY")),
			CreatorField:      strings.TrimSpace(os.Getenv("RECONCILE_CREATOR_FIELD")),
			CreatorCollection: strings.TrimSpace(os.Getenv("RECONCILE_CREATOR_COLLECTION")),
			ParentField:       strings.TrimSpace(os.Getenv("RECONCILE_PARENT_FIELD")),
			ParentCollection:  strings.TrimSpace(os.Getenv("RECONCILE_PARENT_COLLECTION")),
			ReportDir:         getEnv("RECONCILE_REPORT_DIR", "reports"),
			ReportPath:        strings.TrimSpace(os.Getenv("RECONCILE_REPORT_PATH")),
			RunsCollection:    getEnv("RECONCILE_RUNS_COLLECTION", DefaultRunsCollection),
		},
		Audit: AuditConfig{
			Collection:        strings.TrimSpace(os.Getenv("AUDIT_COLLECTION")),
			TenantField:       getEnv("AUDIT_TENANT_FIELD", "tenantId"),
			TenantsCollection: strings.TrimSpace(os.Getenv("AUDIT_TENANTS_COLLECTION")),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")),
		},
	}

	var err error
	if cfg.Reconcile.DryRun, err = parseBoolEnv("RECONCILE_DRY_RUN", true); err != nil {
		return Config{}, fmt.Errorf("%w: parse RECONCILE_DRY_RUN: %v", ErrInvalid, err)
	}
	if cfg.Reconcile.PageSize, err = parseIntEnv("RECONCILE_PAGE_SIZE", DefaultPageSize); err != nil {
		return Config{}, fmt.Errorf("%w: parse RECONCILE_PAGE_SIZE: %v", ErrInvalid, err)
	}
	if cfg.Reconcile.BatchSize, err = parseIntEnv("RECONCILE_BATCH_SIZE", DefaultBatchSize); err != nil {
		return Config{}, fmt.Errorf("%w: parse RECONCILE_BATCH_SIZE: %v", ErrInvalid, err)
	}
	if cfg.Audit.PageSize, err = parseIntEnv("AUDIT_PAGE_SIZE", DefaultPageSize); err != nil {
		return Config{}, fmt.Errorf("%w: parse AUDIT_PAGE_SIZE: %v", ErrInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures the Firestore connection settings are present.
func (c Config) Validate() error {
	if c.FirebaseProjectID == "" {
		return fmt.Errorf("%w: FIREBASE_PROJECT_ID is required", ErrInvalid)
	}
	if c.EmulatorHost == "" && c.FirebaseCredsBase64 == "" && c.FirebaseCredsFile == "" {
		return fmt.Errorf("%w: provide FIREBASE_CREDS_BASE64 or FIREBASE_CREDS_FILE for Firestore auth", ErrInvalid)
	}
	return nil
}

// Validate checks the numeric bounds of the reconcile input. Field-level requirements
// depend on the selected preset and are checked when options are built.
func (r ReconcileConfig) Validate() error {
	if r.TenantID == "" {
		return fmt.Errorf("%w: RECONCILE_TENANT_ID is required", ErrInvalid)
	}
	if r.PageSize <= 0 {
		return fmt.Errorf("%w: RECONCILE_PAGE_SIZE must be positive, got %d", ErrInvalid, r.PageSize)
	}
	if r.BatchSize <= 0 || r.BatchSize > MaxBatchSize {
		return fmt.Errorf("%w: RECONCILE_BATCH_SIZE must be between 1 and %d, got %d", ErrInvalid, MaxBatchSize, r.BatchSize)
	}
	return nil
}

// Validate checks the audit input.
func (a AuditConfig) Validate() error {
	if a.Collection == "" {
		return fmt.Errorf("%w: AUDIT_COLLECTION is required", ErrInvalid)
	}
	if a.PageSize <= 0 {
		return fmt.Errorf("%w: AUDIT_PAGE_SIZE must be positive, got %d", ErrInvalid, a.PageSize)
	}
	return nil
}

// FirebaseCredentialsJSON returns the service account JSON bytes and the source used.
func (c Config) FirebaseCredentialsJSON() ([]byte, string, error) {
	if c.FirebaseCredsBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(c.FirebaseCredsBase64)
		if err != nil {
			return nil, "base64", fmt.Errorf("decode FIREBASE_CREDS_BASE64: %w", err)
		}
		return decoded, "base64", nil
	}
	if c.FirebaseCredsFile != "" {
		data, err := os.ReadFile(c.FirebaseCredsFile)
		if err != nil {
			return nil, "file", fmt.Errorf("read FIREBASE_CREDS_FILE: %w", err)
		}
		return data, "file", nil
	}
	return nil, "", errors.New("no firebase credentials found")
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func parseBoolEnv(key string, defaultVal bool) (bool, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(val)
}

func parseIntEnv(key string, defaultVal int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(val)
}
