// Package config loads the process configuration from YAML with flag-style
// overrides applied by the caller.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type BackendConfig struct {
	BaseURL          string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model            string `json:"model,omitempty" yaml:"model,omitempty"`
	RequestTimeoutMS int    `json:"request_timeout_ms,omitempty" yaml:"request_timeout_ms,omitempty"`
}

type SelectorConfig struct {
	CapMessages      int `json:"cap_messages,omitempty" yaml:"cap_messages,omitempty"`
	CapChars         int `json:"cap_chars,omitempty" yaml:"cap_chars,omitempty"`
	HumanTruncChars  int `json:"human_trunc_chars,omitempty" yaml:"human_trunc_chars,omitempty"`
	AITruncChars     int `json:"ai_trunc_chars,omitempty" yaml:"ai_trunc_chars,omitempty"`
	SystemTruncChars int `json:"system_trunc_chars,omitempty" yaml:"system_trunc_chars,omitempty"`
}

type ArchiveConfig struct {
	// Path is the sqlite database file. Empty disables the archive.
	Path          string   `json:"path,omitempty" yaml:"path,omitempty"`
	ArtifactsRoot string   `json:"artifacts_root,omitempty" yaml:"artifacts_root,omitempty"`
	AllowGlobs    []string `json:"allow_globs,omitempty" yaml:"allow_globs,omitempty"`
}

type Config struct {
	Addr      string `json:"addr,omitempty" yaml:"addr,omitempty"`
	ProbePort bool   `json:"probe_port,omitempty" yaml:"probe_port,omitempty"`
	Backlog   int    `json:"backlog,omitempty" yaml:"backlog,omitempty"`

	Backend  BackendConfig  `json:"backend,omitempty" yaml:"backend,omitempty"`
	Selector SelectorConfig `json:"selector,omitempty" yaml:"selector,omitempty"`
	Archive  ArchiveConfig  `json:"archive,omitempty" yaml:"archive,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8000"
	}
	if c.Backlog <= 0 {
		c.Backlog = 50
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:11434"
	}
	if c.Backend.RequestTimeoutMS <= 0 {
		c.Backend.RequestTimeoutMS = 600_000
	}
	if c.Archive.ArtifactsRoot == "" {
		c.Archive.ArtifactsRoot = "artifacts"
	}
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL)
	}
	return nil
}

// RequestTimeout returns the backend call timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutMS) * time.Millisecond
}
