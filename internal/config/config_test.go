package config

import (
	"strings"
	"testing"
)

func TestValidateConfig(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		if err := validateConfig(GetDefaults()); err != nil {
			t.Errorf("defaults rejected: %v", err)
		}
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Server.Port = 70000
		if err := validateConfig(cfg); err == nil {
			t.Error("port 70000 accepted")
		}
	})

	t.Run("unknown builtin policy", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Policy.Name = "sox"
		err := validateConfig(cfg)
		if err == nil {
			t.Fatal("unknown policy accepted")
		}
		if !strings.Contains(err.Error(), "sox") {
			t.Errorf("error does not name the policy: %v", err)
		}
	})

	t.Run("policy file overrides builtin check", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Policy.Name = ""
		cfg.Policy.File = "/etc/data-sentinel/policy.yaml"
		if err := validateConfig(cfg); err != nil {
			t.Errorf("file-based policy rejected: %v", err)
		}
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Logging.Level = "verbose"
		if err := validateConfig(cfg); err == nil {
			t.Error("log level verbose accepted")
		}
	})

	t.Run("rate limit needs positive bounds", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Server.RateLimit.RequestsPerSecond = 0
		if err := validateConfig(cfg); err == nil {
			t.Error("zero rps accepted with rate limiting enabled")
		}
		cfg.Server.RateLimit.Enabled = false
		if err := validateConfig(cfg); err != nil {
			t.Errorf("disabled rate limit still validated: %v", err)
		}
	})
}
