// Package config defines the runtime configuration for telnetload and
// provides helpers for parsing tunnel specifications and ports.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ncerr "telnetload/internal/errors"
)

// Config holds every tuneable for a single telnetload run.
type Config struct {
	// ── Target ───────────────────────────────────────────────────────
	Host    string
	Port    int
	Clients int
	Stagger time.Duration // pause between launching consecutive clients
	NoDNS   bool

	// ── Script ───────────────────────────────────────────────────────
	Username   string
	Password   string
	LoginDelay time.Duration
	Command    string
	Prompt     string // delimiter awaited after each command
	Iterations int
	Interval   time.Duration

	// ── Resilience (all off by default) ──────────────────────────────
	ReadTimeout    time.Duration // 0 → wait for the prompt forever
	ConnectTimeout time.Duration
	ConnectRetries int

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Mock target ──────────────────────────────────────────────────
	Serve      bool
	ListenPort int

	// ── Output ───────────────────────────────────────────────────────
	ReportPath string
	StatsAddr  string
	Verbose    int
}

// ── Port helpers ─────────────────────────────────────────────────────

// ParsePort accepts a numeric port in 1-65535.
func ParsePort(spec string) (int, error) {
	port, err := strconv.Atoi(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", spec)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec, when set, into the Tunnel* fields.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Serve {
		return c.validateServe()
	}

	if c.Host == "" {
		return &ncerr.ConfigError{Field: "host", Message: "target host is required",
			Hint: "pass it as the first positional argument"}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &ncerr.ConfigError{Field: "port", Value: c.Port, Message: "out of range 1-65535"}
	}
	if c.Clients < 0 {
		return &ncerr.ConfigError{Field: "clients", Value: c.Clients, Message: "must not be negative"}
	}
	if c.Iterations < 0 {
		return &ncerr.ConfigError{Field: "iterations", Value: c.Iterations, Message: "must not be negative"}
	}
	if c.Iterations > 0 && c.Prompt == "" {
		return &ncerr.ConfigError{Field: "prompt", Message: "must not be empty",
			Hint: "every command waits for this delimiter, e.g. --prompt '#'"}
	}
	if c.ConnectRetries < 0 {
		return &ncerr.ConfigError{Field: "connect-retries", Value: c.ConnectRetries, Message: "must not be negative"}
	}

	for _, d := range []struct {
		field string
		value time.Duration
	}{
		{"stagger", c.Stagger},
		{"login-delay", c.LoginDelay},
		{"interval", c.Interval},
		{"read-timeout", c.ReadTimeout},
		{"connect-timeout", c.ConnectTimeout},
	} {
		if d.value < 0 {
			return &ncerr.ConfigError{Field: d.field, Value: d.value, Message: "must not be negative"}
		}
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return fmt.Errorf("tunnel host is required")
	}
	return nil
}

func (c *Config) validateServe() error {
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return &ncerr.ConfigError{Field: "port", Value: c.ListenPort, Message: "serve mode requires a listen port",
			Hint: "telnetload --serve -p 8080"}
	}
	if c.Prompt == "" {
		return &ncerr.ConfigError{Field: "prompt", Message: "must not be empty"}
	}
	if c.TunnelEnabled {
		return fmt.Errorf("serve mode and --tunnel are mutually exclusive")
	}
	return nil
}

// Plan describes the effective run in a few human-readable lines.
func (c *Config) Plan() string {
	var b strings.Builder
	if c.Serve {
		fmt.Fprintf(&b, "serve  :%d prompt %q\n", c.ListenPort, c.Prompt)
		return b.String()
	}

	fmt.Fprintf(&b, "target   %s:%d\n", c.Host, c.Port)
	fmt.Fprintf(&b, "clients  %d, %v apart\n", c.Clients, c.Stagger)
	fmt.Fprintf(&b, "login    %q / %s, %v apart\n", c.Username, strings.Repeat("*", len(c.Password)), c.LoginDelay)
	fmt.Fprintf(&b, "poll     %d × %q until %q, %v apart\n", c.Iterations, c.Command, c.Prompt, c.Interval)

	readTimeout := "none"
	if c.ReadTimeout > 0 {
		readTimeout = c.ReadTimeout.String()
	}
	fmt.Fprintf(&b, "timeouts read %s, connect %v, retries %d\n", readTimeout, c.ConnectTimeout, c.ConnectRetries)

	if c.TunnelEnabled {
		fmt.Fprintf(&b, "tunnel   %s@%s:%d\n", c.TunnelUser, c.TunnelHost, c.TunnelPort)
	}
	if c.ReportPath != "" {
		fmt.Fprintf(&b, "report   %s\n", c.ReportPath)
	}
	if c.StatsAddr != "" {
		fmt.Fprintf(&b, "stats    http://%s/api/stats\n", c.StatsAddr)
	}
	return b.String()
}
