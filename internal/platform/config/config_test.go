package config

import (
	"encoding/base64"
	"errors"
	"testing"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FIREBASE_PROJECT_ID", "pm-prod")
	t.Setenv("FIREBASE_CREDS_BASE64", base64.StdEncoding.EncodeToString([]byte(`{"type":"service_account"}`)))
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Reconcile.DryRun {
		t.Errorf("dry run should default to true")
	}
	if cfg.Reconcile.PageSize != DefaultPageSize || cfg.Reconcile.BatchSize != DefaultBatchSize {
		t.Errorf("page/batch = %d/%d", cfg.Reconcile.PageSize, cfg.Reconcile.BatchSize)
	}
	if cfg.Reconcile.Collection != "" {
		t.Errorf("collection must not have a default, got %q", cfg.Reconcile.Collection)
	}
	if cfg.Reconcile.RunsCollection != DefaultRunsCollection {
		t.Errorf("runs collection = %q", cfg.Reconcile.RunsCollection)
	}
	if cfg.TenantIDPattern != DefaultTenantIDPattern {
		t.Errorf("tenant id pattern = %q", cfg.TenantIDPattern)
	}

	creds, source, err := cfg.FirebaseCredentialsJSON()
	if err != nil {
		t.Fatalf("FirebaseCredentialsJSON: %v", err)
	}
	if source != "base64" || string(creds) != `{"type":"service_account"}` {
		t.Errorf("creds = %q from %q", creds, source)
	}
}

func TestLoadRequiresProject(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "")
	_, err := Load()
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestLoadEmulatorSkipsCredentials(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "demo-pm")
	t.Setenv("FIRESTORE_EMULATOR_HOST", "localhost:8081")
	if _, err := Load(); err != nil {
		t.Fatalf("Load with emulator: %v", err)
	}
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("RECONCILE_PAGE_SIZE", "lots")
	_, err := Load()
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestReconcileConfigValidate(t *testing.T) {
	valid := ReconcileConfig{TenantID: "x", PageSize: 10, BatchSize: 10}
	tests := []struct {
		name   string
		mutate func(*ReconcileConfig)
		ok     bool
	}{
		{"valid", func(*ReconcileConfig) {}, true},
		{"missing tenant", func(c *ReconcileConfig) { c.TenantID = "" }, false},
		{"zero page", func(c *ReconcileConfig) { c.PageSize = 0 }, false},
		{"zero batch", func(c *ReconcileConfig) { c.BatchSize = 0 }, false},
		{"batch over firestore limit", func(c *ReconcileConfig) { c.BatchSize = MaxBatchSize + 1 }, false},
		{"batch at limit", func(c *ReconcileConfig) { c.BatchSize = MaxBatchSize }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}
