package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Profile file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the TELNETLOAD_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Durations use Go
// syntax ("250ms", "2s").  Malformed values are ignored.

const envPrefix = "TELNETLOAD_"

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  Call it after the profile file
// has been applied and before CLI flags so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := env("HOST"); v != "" {
		cfg.Host = v
	}
	if v, ok := envInt("PORT"); ok && v > 0 {
		cfg.Port = v
	}
	if v, ok := envInt("CLIENTS"); ok && v >= 0 {
		cfg.Clients = v
	}
	if v, ok := envDuration("STAGGER"); ok {
		cfg.Stagger = v
	}
	if envBool("NO_DNS") {
		cfg.NoDNS = true
	}

	// Script
	if v := env("USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := env("PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v, ok := envDuration("LOGIN_DELAY"); ok {
		cfg.LoginDelay = v
	}
	if v := env("COMMAND"); v != "" {
		cfg.Command = v
	}
	if v := env("PROMPT"); v != "" {
		cfg.Prompt = v
	}
	if v, ok := envInt("ITERATIONS"); ok && v >= 0 {
		cfg.Iterations = v
	}
	if v, ok := envDuration("INTERVAL"); ok {
		cfg.Interval = v
	}

	// Resilience
	if v, ok := envDuration("READ_TIMEOUT"); ok {
		cfg.ReadTimeout = v
	}
	if v, ok := envDuration("CONNECT_TIMEOUT"); ok {
		cfg.ConnectTimeout = v
	}
	if v, ok := envInt("CONNECT_RETRIES"); ok && v >= 0 {
		cfg.ConnectRetries = v
	}

	// SSH tunnel
	if v := env("TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := env("SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := env("KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := env("REPORT"); v != "" {
		cfg.ReportPath = v
	}
	if v := env("STATS_ADDR"); v != "" {
		cfg.StatsAddr = v
	}
	if v, ok := envInt("VERBOSE"); ok && v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func env(key string) string {
	return os.Getenv(envPrefix + key)
}

func envInt(key string) (int, bool) {
	v := env(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envDuration(key string) (time.Duration, bool) {
	v := env(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

func envBool(key string) bool {
	v := strings.ToLower(env(key))
	return v == "1" || v == "true" || v == "yes"
}
