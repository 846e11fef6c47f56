package authkit

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestDefaultConfigLifetimes(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Token.AccessTTL != 15*time.Minute {
		t.Fatalf("expected 15m access TTL, got %v", cfg.Token.AccessTTL)
	}
	if cfg.Token.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh TTL, got %v", cfg.Token.RefreshTTL)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty access secret", func(c *Config) { c.Token.AccessSecret = nil }},
		{"empty refresh secret", func(c *Config) { c.Token.RefreshSecret = nil }},
		{"identical secrets", func(c *Config) { c.Token.RefreshSecret = c.Token.AccessSecret }},
		{"zero access ttl", func(c *Config) { c.Token.AccessTTL = 0 }},
		{"refresh not longer than access", func(c *Config) { c.Token.RefreshTTL = c.Token.AccessTTL }},
		{"excessive leeway", func(c *Config) { c.Token.Leeway = 5 * time.Minute }},
		{"empty prefix", func(c *Config) { c.Session.RedisPrefix = "" }},
		{"audit without buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected Validate to reject config")
			}
		})
	}
}

func TestInsecureDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.InsecureDefaults(); len(got) != 2 {
		t.Fatalf("expected both placeholder secrets flagged, got %v", got)
	}

	cfg.Token.AccessSecret = []byte("rotated-access-secret")
	if got := cfg.InsecureDefaults(); len(got) != 1 {
		t.Fatalf("expected one remaining placeholder, got %v", got)
	}

	cfg.Token.RefreshSecret = []byte("rotated-refresh-secret")
	if got := cfg.InsecureDefaults(); len(got) != 0 {
		t.Fatalf("expected no placeholders, got %v", got)
	}
}

func TestCloneConfigIndependence(t *testing.T) {
	original := DefaultConfig()
	clone := cloneConfig(original)

	clone.Token.AccessSecret[0] = 'X'
	if original.Token.AccessSecret[0] == 'X' {
		t.Fatal("expected cloned secret to be an independent copy")
	}
}
