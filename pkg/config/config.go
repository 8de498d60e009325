// Package config loads and validates devguard configuration from YAML and
// supports hot reload of the file while a host is running.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSuppressionWindow is the cooldown between reported failures at the
// same call site.
const DefaultSuppressionWindow = time.Second

// Config is the complete devguard host configuration.
type Config struct {
	// SuppressionWindow is the per-site failure-spam cooldown.
	SuppressionWindow time.Duration `yaml:"suppression_window"`
	// Headless picks the automated dialog policy: "continue", "interrupt",
	// or "" for interactive prompting.
	Headless string `yaml:"headless"`
	// LogPath receives diagnostic log lines; empty means stderr.
	LogPath string `yaml:"log_path"`
	// ReportPath persists end-of-session report entries (JSONL).
	ReportPath string `yaml:"report_path"`
	// AuditPath persists confirmation dialog resolutions (JSONL).
	AuditPath string `yaml:"audit_path"`

	Telemetry Telemetry `yaml:"telemetry"`
}

// Telemetry configures the OpenTelemetry wiring.
type Telemetry struct {
	Enabled        bool     `yaml:"enabled"`
	ServiceName    string   `yaml:"service_name"`
	ServiceVersion string   `yaml:"service_version"`
	Environment    string   `yaml:"environment"`
	OTLPEndpoint   string   `yaml:"otlp_endpoint"`
	MaskPatterns   []string `yaml:"mask_patterns"`
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		SuppressionWindow: DefaultSuppressionWindow,
		Telemetry: Telemetry{
			ServiceName: "devguard",
		},
	}
}

// Load reads, parses and validates the YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a validated Config. Missing fields fall back
// to defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate normalizes and checks the configuration.
func (c *Config) Validate() error {
	if c.SuppressionWindow < 0 {
		return fmt.Errorf("config: suppression_window must not be negative, got %s", c.SuppressionWindow)
	}
	if c.SuppressionWindow == 0 {
		c.SuppressionWindow = DefaultSuppressionWindow
	}
	c.Headless = strings.ToLower(strings.TrimSpace(c.Headless))
	switch c.Headless {
	case "", "continue", "interrupt":
	default:
		return fmt.Errorf("config: headless must be \"continue\" or \"interrupt\", got %q", c.Headless)
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "devguard"
	}
	return nil
}
