// Package config loads server configuration and stub mapping files.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerSettings  `yaml:"server" json:"server"`
	Admin   AdminSettings   `yaml:"admin" json:"admin"`
	Stubs   StubSettings    `yaml:"stubs" json:"stubs"`
	Content ContentSettings `yaml:"content" json:"content"`
	Journal JournalSettings `yaml:"journal" json:"journal"`
	Proxy   ProxySettings   `yaml:"proxy" json:"proxy"`
	Logging LogSettings     `yaml:"logging" json:"logging"`
}

// ServerSettings configures the stub traffic listener.
type ServerSettings struct {
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	TLSPort      int    `yaml:"tlsPort" json:"tlsPort"`
	CertFile     string `yaml:"certFile" json:"certFile"`
	KeyFile      string `yaml:"keyFile" json:"keyFile"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes" json:"maxBodyBytes"`

	// TieBreak orders equally good stub candidates: "newest" or "oldest".
	TieBreak string `yaml:"tieBreak" json:"tieBreak"`
}

// AdminSettings configures the admin API listener.
type AdminSettings struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// StubSettings configures stub mapping file loading.
type StubSettings struct {
	// Dir is the root directory scanned for mapping files.
	Dir string `yaml:"dir" json:"dir"`

	// Globs select files under Dir. Defaults to every .yaml/.yml/.json.
	Globs []string `yaml:"globs" json:"globs"`

	// Watch reloads mapping files when they change on disk.
	Watch bool `yaml:"watch" json:"watch"`
}

// ContentSettings configures the bodyFile content store.
type ContentSettings struct {
	Dir string `yaml:"dir" json:"dir"`
}

// JournalSettings configures the request journal.
type JournalSettings struct {
	MaxEntries int `yaml:"maxEntries" json:"maxEntries"`
}

// ProxySettings configures unmatched request forwarding. A non-empty
// Target switches unmatched handling from 404 diagnostics to proxying.
type ProxySettings struct {
	Target string `yaml:"target" json:"target"`

	// Record learns stub mappings from proxied exchanges.
	Record bool `yaml:"record" json:"record"`

	// QueueSize bounds the recording queue.
	QueueSize int `yaml:"queueSize" json:"queueSize"`
}

// LogSettings configures operational logging.
type LogSettings struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerSettings{
			Host:     "0.0.0.0",
			Port:     8080,
			TieBreak: "newest",
		},
		Admin: AdminSettings{
			Host: "127.0.0.1",
			Port: 8081,
		},
		Journal: JournalSettings{
			MaxEntries: 1000,
		},
		Logging: LogSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file (YAML or JSON by extension) over the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config file extension: %s", path)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Admin.Port < 0 || c.Admin.Port > 65535 {
		return fmt.Errorf("admin.port out of range: %d", c.Admin.Port)
	}
	if c.Server.TLSPort != 0 {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("server.tlsPort requires certFile and keyFile")
		}
	}
	switch c.Server.TieBreak {
	case "", "newest", "oldest":
	default:
		return fmt.Errorf("server.tieBreak must be \"newest\" or \"oldest\", got %q", c.Server.TieBreak)
	}
	if c.Proxy.Target != "" {
		u, err := url.Parse(c.Proxy.Target)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("proxy.target must be an http(s) URL, got %q", c.Proxy.Target)
		}
	}
	if c.Proxy.Record && c.Proxy.Target == "" {
		return fmt.Errorf("proxy.record requires proxy.target")
	}
	if c.Journal.MaxEntries < 0 {
		return fmt.Errorf("journal.maxEntries must not be negative")
	}
	return nil
}
