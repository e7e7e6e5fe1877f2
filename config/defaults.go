package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// The defaults reproduce the historical hard-coded load script: 5000
// clients against 127.0.0.1:8080, started 10ms apart, each logging in
// and polling "show status" 100 times.

const (
	DefaultHost    = "127.0.0.1"
	DefaultPort    = 8080
	DefaultClients = 5000
	DefaultStagger = 10 * time.Millisecond

	DefaultUsername   = "username"
	DefaultPassword   = "password"
	DefaultLoginDelay = 100 * time.Millisecond

	DefaultCommand    = "show status"
	DefaultPrompt     = "#"
	DefaultIterations = 100
	DefaultInterval   = 500 * time.Millisecond

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultServeHostname is the device name the mock target puts in
	// front of its prompt.
	DefaultServeHostname = "telnetload"

	// DefaultStatsInterval is how often the live stats endpoint pushes
	// a snapshot to websocket subscribers.
	DefaultStatsInterval = time.Second
)

// Defaults returns a Config populated with the default values.
func Defaults() *Config {
	return &Config{
		Host:       DefaultHost,
		Port:       DefaultPort,
		Clients:    DefaultClients,
		Stagger:    DefaultStagger,
		Username:   DefaultUsername,
		Password:   DefaultPassword,
		LoginDelay: DefaultLoginDelay,
		Command:    DefaultCommand,
		Prompt:     DefaultPrompt,
		Iterations: DefaultIterations,
		Interval:   DefaultInterval,
	}
}
