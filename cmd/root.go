// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"telnetload/config"
	"telnetload/internal/core"
	"telnetload/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X telnetload/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the appropriate telnetload mode.
func Execute(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout, os.Stderr)
}

// flagFields copies a flag's value from the parsed scratch config onto
// the effective one.  Only flags the user actually set are copied, so
// env vars and the profile keep their say over the rest.
var flagFields = map[string]func(dst, src *config.Config){ //nolint:gochecknoglobals
	"clients":         func(d, s *config.Config) { d.Clients = s.Clients },
	"stagger":         func(d, s *config.Config) { d.Stagger = s.Stagger },
	"no-dns":          func(d, s *config.Config) { d.NoDNS = s.NoDNS },
	"username":        func(d, s *config.Config) { d.Username = s.Username },
	"password":        func(d, s *config.Config) { d.Password = s.Password },
	"login-delay":     func(d, s *config.Config) { d.LoginDelay = s.LoginDelay },
	"command":         func(d, s *config.Config) { d.Command = s.Command },
	"prompt":          func(d, s *config.Config) { d.Prompt = s.Prompt },
	"iterations":      func(d, s *config.Config) { d.Iterations = s.Iterations },
	"interval":        func(d, s *config.Config) { d.Interval = s.Interval },
	"read-timeout":    func(d, s *config.Config) { d.ReadTimeout = s.ReadTimeout },
	"connect-timeout": func(d, s *config.Config) { d.ConnectTimeout = s.ConnectTimeout },
	"connect-retries": func(d, s *config.Config) { d.ConnectRetries = s.ConnectRetries },
	"tunnel":          func(d, s *config.Config) { d.TunnelSpec = s.TunnelSpec },
	"ssh-key":         func(d, s *config.Config) { d.SSHKeyPath = s.SSHKeyPath },
	"ssh-password":    func(d, s *config.Config) { d.SSHPassword = s.SSHPassword },
	"ssh-agent":       func(d, s *config.Config) { d.UseSSHAgent = s.UseSSHAgent },
	"strict-hostkey":  func(d, s *config.Config) { d.StrictHostKey = s.StrictHostKey },
	"known-hosts":     func(d, s *config.Config) { d.KnownHostsPath = s.KnownHostsPath },
	"serve":           func(d, s *config.Config) { d.Serve = s.Serve },
	"port":            func(d, s *config.Config) { d.ListenPort = s.ListenPort },
	"report":          func(d, s *config.Config) { d.ReportPath = s.ReportPath },
	"stats-addr":      func(d, s *config.Config) { d.StatsAddr = s.StatsAddr },
	"verbose":         func(d, s *config.Config) { d.Verbose = s.Verbose },
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fv := config.Defaults()
	fs := flag.NewFlagSet("telnetload", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── load shape ───────────────────────────────────────────────
	fs.IntVarP(&fv.Clients, "clients", "c", fv.Clients, "Number of concurrent clients")
	fs.DurationVar(&fv.Stagger, "stagger", fv.Stagger, "Delay between client launches")
	fs.BoolVarP(&fv.NoDNS, "no-dns", "n", false, "Numeric-only, no DNS resolution")

	// ── script ───────────────────────────────────────────────────
	fs.StringVarP(&fv.Username, "username", "u", fv.Username, "Login line sent first")
	fs.StringVar(&fv.Password, "password", fv.Password, "Login line sent after --login-delay")
	fs.DurationVar(&fv.LoginDelay, "login-delay", fv.LoginDelay, "Pause between username and password")
	fs.StringVarP(&fv.Command, "command", "C", fv.Command, "Command sent each iteration")
	fs.StringVarP(&fv.Prompt, "prompt", "P", fv.Prompt, "Delimiter awaited after each command")
	fs.IntVarP(&fv.Iterations, "iterations", "i", fv.Iterations, "Command round trips per client")
	fs.DurationVar(&fv.Interval, "interval", fv.Interval, "Pause after each round trip")

	// ── resilience ───────────────────────────────────────────────
	fs.DurationVar(&fv.ReadTimeout, "read-timeout", 0, "Give up on a prompt after this long (0 = wait forever)")
	fs.DurationVarP(&fv.ConnectTimeout, "connect-timeout", "w", 0, "Dial timeout (0 = OS default)")
	fs.IntVar(&fv.ConnectRetries, "connect-retries", 0, "Extra dial attempts with backoff")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&fv.TunnelSpec, "tunnel", "T", "", "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&fv.SSHKeyPath, "ssh-key", "", "SSH private key file")
	fs.BoolVar(&fv.SSHPassword, "ssh-password", false, "Prompt for SSH password")
	fs.BoolVar(&fv.UseSSHAgent, "ssh-agent", false, "Use SSH agent")
	fs.BoolVar(&fv.StrictHostKey, "strict-hostkey", false, "Verify SSH host keys")
	fs.StringVar(&fv.KnownHostsPath, "known-hosts", "", "Custom known_hosts path")

	// ── mock target ──────────────────────────────────────────────
	fs.BoolVarP(&fv.Serve, "serve", "l", false, "Run a mock telnet target instead of a load")
	fs.IntVarP(&fv.ListenPort, "port", "p", 0, "Listen port for --serve")

	// ── output ───────────────────────────────────────────────────
	fs.StringVarP(&fv.ReportPath, "report", "o", "", "Write a JSON report (.sz → snappy-compressed)")
	fs.StringVar(&fv.StatsAddr, "stats-addr", "", "Serve live stats on this address")
	fs.CountVarP(&fv.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var profilePath string
	var showVersion, showHelp, dryRun bool
	fs.StringVarP(&profilePath, "config", "f", "", "Load a YAML, JSON or TOML profile")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate and print the plan, then exit")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(stderr, fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(stderr, fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "telnetload %s\n", version)
		return nil
	}

	// ── layer the configuration ──────────────────────────────────
	cfg := config.Defaults()
	if profilePath != "" {
		profile, err := config.LoadFile(profilePath)
		if err != nil {
			return err
		}
		if err := profile.Apply(cfg); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)
	fs.Visit(func(f *flag.Flag) {
		if apply, ok := flagFields[f.Name]; ok {
			apply(cfg, fv)
		}
	})

	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		fmt.Fprint(stdout, cfg.Plan())
		return nil
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(stderr)

	mode, err := core.Build(cfg, logger, stdout)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// parsePositional applies the optional [host] [port] arguments.
func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Serve {
		if len(remaining) > 0 {
			return fmt.Errorf("--serve takes no positional arguments (use -p PORT)")
		}
		return nil
	}

	switch len(remaining) {
	case 0:
	case 2:
		port, err := config.ParsePort(remaining[1])
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		cfg.Port = port
		fallthrough
	case 1:
		cfg.Host = remaining[0]
	default:
		return fmt.Errorf("too many arguments: want [host] [port]")
	}
	return nil
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `telnetload – telnet load generator v%s

Opens many concurrent telnet sessions against one target, logs each in,
and polls a command until every session is done.  Failed clients are
reported one per line on stdout.

Usage:
  telnetload [options] [host] [port]          Load (default 127.0.0.1 8080)
  telnetload -l -p <port> [options]           Mock target
  telnetload -T user@gateway [options] <host> <port>

Options:
`, version)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  telnetload                                  5000 clients → 127.0.0.1:8080
  telnetload -c 50 -i 10 10.0.0.1 23          50 clients, 10 polls each
  telnetload -l -p 8080                       Mock target on 8080
  telnetload --read-timeout 5s -o run.json.sz lab 23
  telnetload -T admin@bastion sw-core-1 23    Through an SSH bastion
`)
}
