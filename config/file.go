package config

// file.go - profile files.
//
// A profile captures a reusable load scenario.  YAML, JSON and TOML
// are accepted, chosen by file extension.  Only keys present in the
// file override the defaults.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Profile mirrors the subset of Config that is meaningful to persist.
// Durations are kept as strings ("10ms") so every format reads them
// the same way.
type Profile struct {
	Target  *TargetProfile  `yaml:"target" json:"target" toml:"target"`
	Clients *int            `yaml:"clients" json:"clients" toml:"clients"`
	Stagger string          `yaml:"stagger" json:"stagger" toml:"stagger"`
	Login   *LoginProfile   `yaml:"login" json:"login" toml:"login"`
	Poll    *PollProfile    `yaml:"poll" json:"poll" toml:"poll"`
	Connect *ConnectProfile `yaml:"connect" json:"connect" toml:"connect"`
	Tunnel  string          `yaml:"tunnel" json:"tunnel" toml:"tunnel"`
	Report  string          `yaml:"report" json:"report" toml:"report"`
	Stats   string          `yaml:"stats_addr" json:"stats_addr" toml:"stats_addr"`
}

type TargetProfile struct {
	Host  string `yaml:"host" json:"host" toml:"host"`
	Port  int    `yaml:"port" json:"port" toml:"port"`
	NoDNS bool   `yaml:"no_dns" json:"no_dns" toml:"no_dns"`
}

type LoginProfile struct {
	Username string `yaml:"username" json:"username" toml:"username"`
	Password string `yaml:"password" json:"password" toml:"password"`
	Delay    string `yaml:"delay" json:"delay" toml:"delay"`
}

type PollProfile struct {
	Command     string `yaml:"command" json:"command" toml:"command"`
	Prompt      string `yaml:"prompt" json:"prompt" toml:"prompt"`
	Iterations  *int   `yaml:"iterations" json:"iterations" toml:"iterations"`
	Interval    string `yaml:"interval" json:"interval" toml:"interval"`
	ReadTimeout string `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout"`
}

type ConnectProfile struct {
	Timeout string `yaml:"timeout" json:"timeout" toml:"timeout"`
	Retries *int   `yaml:"retries" json:"retries" toml:"retries"`
}

// LoadFile reads and decodes a profile from path.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var p Profile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	case ".json":
		err = json.Unmarshal(data, &p)
	case ".toml":
		err = toml.Unmarshal(data, &p)
	default:
		return nil, fmt.Errorf("profile %s: unsupported extension %q (want .yaml, .json or .toml)", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return &p, nil
}

// Apply overlays the keys present in p onto cfg.
func (p *Profile) Apply(cfg *Config) error {
	if t := p.Target; t != nil {
		if t.Host != "" {
			cfg.Host = t.Host
		}
		if t.Port != 0 {
			cfg.Port = t.Port
		}
		if t.NoDNS {
			cfg.NoDNS = true
		}
	}
	if p.Clients != nil {
		cfg.Clients = *p.Clients
	}
	if err := setDuration(&cfg.Stagger, "stagger", p.Stagger); err != nil {
		return err
	}

	if l := p.Login; l != nil {
		if l.Username != "" {
			cfg.Username = l.Username
		}
		if l.Password != "" {
			cfg.Password = l.Password
		}
		if err := setDuration(&cfg.LoginDelay, "login.delay", l.Delay); err != nil {
			return err
		}
	}

	if q := p.Poll; q != nil {
		if q.Command != "" {
			cfg.Command = q.Command
		}
		if q.Prompt != "" {
			cfg.Prompt = q.Prompt
		}
		if q.Iterations != nil {
			cfg.Iterations = *q.Iterations
		}
		if err := setDuration(&cfg.Interval, "poll.interval", q.Interval); err != nil {
			return err
		}
		if err := setDuration(&cfg.ReadTimeout, "poll.read_timeout", q.ReadTimeout); err != nil {
			return err
		}
	}

	if c := p.Connect; c != nil {
		if err := setDuration(&cfg.ConnectTimeout, "connect.timeout", c.Timeout); err != nil {
			return err
		}
		if c.Retries != nil {
			cfg.ConnectRetries = *c.Retries
		}
	}

	if p.Tunnel != "" {
		cfg.TunnelSpec = p.Tunnel
	}
	if p.Report != "" {
		cfg.ReportPath = p.Report
	}
	if p.Stats != "" {
		cfg.StatsAddr = p.Stats
	}
	return nil
}

func setDuration(dst *time.Duration, key, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("profile key %s: %w", key, err)
	}
	*dst = d
	return nil
}
