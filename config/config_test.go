package config

import (
	"strings"
	"testing"
	"time"
)

func TestScraperConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ScraperConfig)
		wantErr string
	}{
		{
			name: "negative parallelism",
			mutate: func(cfg *ScraperConfig) {
				cfg.Parallelism = -1
			},
			wantErr: "parallelism",
		},
		{
			name: "zero max pages",
			mutate: func(cfg *ScraperConfig) {
				cfg.MaxPages = 0
			},
			wantErr: "max pages",
		},
		{
			name: "empty base url",
			mutate: func(cfg *ScraperConfig) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *ScraperConfig) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *ScraperConfig) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "backoff exceeds max",
			mutate: func(cfg *ScraperConfig) {
				cfg.RetryBackoff = 5 * time.Second
				cfg.RetryBackoffMax = 1 * time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "bad output format",
			mutate: func(cfg *ScraperConfig) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "zero dedupe cache",
			mutate: func(cfg *ScraperConfig) {
				cfg.DedupeCacheSize = 0
			},
			wantErr: "dedupe cache",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultScraperConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultScraperConfigValid(t *testing.T) {
	cfg := DefaultScraperConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestAPIConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*APIConfig)
		wantErr string
	}{
		{
			name: "empty addr",
			mutate: func(cfg *APIConfig) {
				cfg.Addr = ""
			},
			wantErr: "listen address",
		},
		{
			name: "empty data file",
			mutate: func(cfg *APIConfig) {
				cfg.DataFile = ""
			},
			wantErr: "data file",
		},
		{
			name: "empty jwt secret",
			mutate: func(cfg *APIConfig) {
				cfg.JWTSecret = ""
			},
			wantErr: "jwt secret",
		},
		{
			name: "zero token ttl",
			mutate: func(cfg *APIConfig) {
				cfg.TokenTTL = 0
			},
			wantErr: "token ttl",
		},
		{
			name: "bad mode",
			mutate: func(cfg *APIConfig) {
				cfg.Mode = "production"
			},
			wantErr: "mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAPIConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultAPIConfigValid(t *testing.T) {
	cfg := DefaultAPIConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("BOOKDATA_TEST_INT", "42")
	t.Setenv("BOOKDATA_TEST_BAD_INT", "nope")
	t.Setenv("BOOKDATA_TEST_STR", "hello")
	t.Setenv("BOOKDATA_TEST_DUR", "30m")

	if v, ok, err := EnvInt("BOOKDATA_TEST_INT"); err != nil || !ok || v != 42 {
		t.Fatalf("EnvInt = (%d, %v, %v), want (42, true, nil)", v, ok, err)
	}
	if _, _, err := EnvInt("BOOKDATA_TEST_BAD_INT"); err == nil {
		t.Fatal("expected error for non-integer value")
	}
	if _, ok, err := EnvInt("BOOKDATA_TEST_UNSET"); ok || err != nil {
		t.Fatalf("unset var should report (false, nil), got (%v, %v)", ok, err)
	}
	if v, ok := EnvString("BOOKDATA_TEST_STR"); !ok || v != "hello" {
		t.Fatalf("EnvString = (%q, %v)", v, ok)
	}
	if v, ok, err := EnvDuration("BOOKDATA_TEST_DUR"); err != nil || !ok || v != 30*time.Minute {
		t.Fatalf("EnvDuration = (%v, %v, %v)", v, ok, err)
	}
}
