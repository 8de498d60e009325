package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, time.Second, cfg.SuppressionWindow)
	assert.Equal(t, "devguard", cfg.Telemetry.ServiceName)
	assert.Empty(t, cfg.Headless)
}

func TestParseFullConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
suppression_window: 2s
headless: continue
log_path: /tmp/devguard.log
report_path: /tmp/report.jsonl
audit_path: /tmp/audit.jsonl
telemetry:
  enabled: true
  service_name: editor-preview
  environment: dev
  otlp_endpoint: localhost:4318
  mask_patterns:
    - '(?i)password=\S+'
`))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.SuppressionWindow)
	assert.Equal(t, "continue", cfg.Headless)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "editor-preview", cfg.Telemetry.ServiceName)
	assert.Equal(t, "localhost:4318", cfg.Telemetry.OTLPEndpoint)
	assert.Len(t, cfg.Telemetry.MaskPatterns, 1)
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`headless: INTERRUPT`))
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.SuppressionWindow)
	assert.Equal(t, "interrupt", cfg.Headless)
}

func TestParseRejectsInvalidHeadless(t *testing.T) {
	_, err := Parse([]byte(`headless: panic`))
	assert.ErrorContains(t, err, "headless")
}

func TestValidateRejectsNegativeWindow(t *testing.T) {
	cfg := Default()
	cfg.SuppressionWindow = -time.Second
	assert.ErrorContains(t, cfg.Validate(), "suppression_window")
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("suppression_window: [broken"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("suppression_window: 500ms\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.SuppressionWindow)
}
