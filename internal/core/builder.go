package core

import (
	"fmt"
	"io"
	"time"

	"telnetload/config"
	"telnetload/internal/capability"
	"telnetload/internal/metrics"
	"telnetload/internal/report"
	"telnetload/internal/retry"
	"telnetload/internal/stats"
	"telnetload/internal/transport"
	"telnetload/tunnel"
	"telnetload/util"
)

// Build constructs the appropriate Mode from the given configuration.
// Failure lines of a load run are written to out.
func Build(cfg *config.Config, logger *util.Logger, out io.Writer) (Mode, error) {
	if cfg.Serve {
		return buildServe(cfg, logger), nil
	}
	return buildLoad(cfg, logger, out)
}

// ── mode builders ────────────────────────────────────────────────────

func buildLoad(cfg *config.Config, logger *util.Logger, out io.Writer) (Mode, error) {
	address, err := util.ResolveAddr(cfg.Host, cfg.Port, cfg.NoDNS)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	console := report.NewConsole(out)

	driver := &Driver{
		Dialer:     buildDialer(cfg, logger),
		Capability: buildCapability(cfg),
		Address:    address,
		Clients:    cfg.Clients,
		Stagger:    cfg.Stagger,
		Backoff:    buildBackoff(cfg, logger),
		Metrics:    m,
		Logger:     logger,
		OnResult:   console.Record,
	}

	mode := &LoadMode{
		Driver:     driver,
		Metrics:    m,
		ReportPath: cfg.ReportPath,
		Logger:     logger,
	}
	if cfg.StatsAddr != "" {
		mode.Stats = stats.NewServer(cfg.StatsAddr, m, config.DefaultStatsInterval, logger)
	}
	return mode, nil
}

func buildServe(cfg *config.Config, logger *util.Logger) Mode {
	return &ServeMode{
		Address:  fmt.Sprintf(":%d", cfg.ListenPort),
		Hostname: config.DefaultServeHostname,
		Prompt:   cfg.Prompt,
		Logger:   logger,
	}
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.ConnectTimeout,
		}, logger)
	}
	return &transport.TCPDialer{Timeout: cfg.ConnectTimeout}
}

// buildCapability maps the script settings onto an Exchange.
func buildCapability(cfg *config.Config) capability.Capability {
	return &capability.Exchange{
		Username:    cfg.Username,
		Password:    cfg.Password,
		LoginDelay:  cfg.LoginDelay,
		Command:     cfg.Command,
		Prompt:      cfg.Prompt,
		Iterations:  cfg.Iterations,
		Interval:    cfg.Interval,
		ReadTimeout: cfg.ReadTimeout,
	}
}

// buildBackoff returns nil unless connect retries were requested.
func buildBackoff(cfg *config.Config, logger *util.Logger) *retry.Backoff {
	b := retry.ForConnect(cfg.ConnectRetries)
	if b == nil {
		return nil
	}
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Verbose("dial attempt %d failed: %v; retrying in %v", attempt, err, wait.Round(time.Millisecond))
	}
	return b
}

