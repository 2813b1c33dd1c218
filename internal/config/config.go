// Package config provides YAML configuration file loading and validation.
// It handles environment variable expansion, default value application,
// and resolution of endpoint aliases to connection URLs.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dmagro/eth-console/internal/client"
	"github.com/dmagro/eth-console/internal/transport"
)

// Config represents the root configuration structure loaded from YAML.
type Config struct {
	Clients     []string          `yaml:"clients"`      // Client libraries to attach, primary first
	CallTimeout time.Duration     `yaml:"call_timeout"` // Per-call limit (0 = none)
	DialTimeout time.Duration     `yaml:"dial_timeout"` // Connection setup limit
	Prompt      string            `yaml:"prompt"`       // Console prompt
	HistoryFile string            `yaml:"history_file"` // Persisted console history ("" = none)
	Headers     map[string]string `yaml:"headers"`      // HTTP headers sent to every endpoint
	Endpoints   []Endpoint        `yaml:"endpoints"`    // Named node URLs
}

// Endpoint is a named node connection. The URL supports ${VAR} expansion.
type Endpoint struct {
	Name    string            `yaml:"name"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"` // Added to the global headers
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Clients:     append([]string(nil), client.DefaultLibraries...),
		DialTimeout: 10 * time.Second,
		Prompt:      "→ ",
	}
}

// Validate validates the configuration and applies defaults where appropriate.
// Suspicious but usable values are reported to log as warnings.
func (c *Config) Validate(log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	def := Default()

	if len(c.Clients) == 0 {
		c.Clients = def.Clients
	}
	seen := make(map[string]bool, len(c.Clients))
	for i, name := range c.Clients {
		lib, err := client.LookupLibrary(name)
		if err != nil {
			return fmt.Errorf("clients: %w", err)
		}
		if seen[lib.Name] {
			return fmt.Errorf("clients: %s listed twice", lib.Name)
		}
		seen[lib.Name] = true
		c.Clients[i] = lib.Name
	}

	if c.CallTimeout < 0 {
		return fmt.Errorf("call_timeout must be >= 0")
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("dial_timeout must be >= 0")
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.Prompt == "" {
		c.Prompt = def.Prompt
	}
	c.HistoryFile = expandHome(c.HistoryFile)

	const low = 500 * time.Millisecond
	if c.CallTimeout > 0 && c.CallTimeout < low {
		log.Warn("call_timeout is very low; calls may fail under normal network jitter", zap.Duration("call_timeout", c.CallTimeout))
	}

	names := make(map[string]bool, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		if ep.Name == "" {
			return fmt.Errorf("endpoint %s: name is required", ep.URL)
		}
		if names[ep.Name] {
			return fmt.Errorf("endpoint %s: defined twice", ep.Name)
		}
		names[ep.Name] = true
		if ep.URL == "" {
			return fmt.Errorf("endpoint %s: url is required", ep.Name)
		}
		if _, err := transport.Resolve(ep.URL); err != nil {
			return fmt.Errorf("endpoint %s: %w", ep.Name, err)
		}
	}
	return nil
}

// Target is a resolved connection target.
type Target struct {
	Name    string // endpoint alias, empty for a literal URL
	URL     string
	Headers http.Header
}

// Resolve maps an endpoint alias or literal URL to a connection target,
// merging the global and per-endpoint headers. extra headers are applied
// last.
func (c *Config) Resolve(target string, extra http.Header) Target {
	t := Target{URL: strings.TrimSpace(target), Headers: http.Header{}}
	for k, v := range c.Headers {
		t.Headers.Set(k, v)
	}
	for _, ep := range c.Endpoints {
		if ep.Name == t.URL {
			t.Name, t.URL = ep.Name, ep.URL
			for k, v := range ep.Headers {
				t.Headers.Set(k, v)
			}
			break
		}
	}
	for k, vs := range extra {
		t.Headers.Del(k)
		for _, v := range vs {
			t.Headers.Add(k, v)
		}
	}
	return t
}

// Load reads and parses a YAML configuration file, expanding environment
// variables and validating the result.
//
// Environment variable expansion:
//
//	Any value can use ${VAR} syntax, expanded with os.ExpandEnv().
//	Example: url: ${MAINNET_RPC_URL}
func Load(path string, log *zap.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(log); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string, log *zap.Logger) (*Config, error) {
	cfg, err := Load(path, log)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		return cfg, cfg.Validate(log)
	}
	return cfg, err
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// LoadEnv reads KEY=VALUE lines from a .env file in the current directory
// and sets them with os.Setenv, so that ${VAR} references in the config can
// be kept out of the YAML. Empty lines and # comments are skipped, values
// may be quoted, and a missing file is not an error. Variables from the file
// override the process environment.
func LoadEnv() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Split on the first "=" so values may contain "="
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
			os.Setenv(key, value)
		}
	}
}
