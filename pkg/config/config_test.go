package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kubescape/sysflow-agent/pkg/exporters"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFrom(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.ExporterID)
	assert.Equal(t, time.Duration(0), cfg.FileDuration)
	assert.False(t, cfg.FilterContainers)
	assert.Equal(t, time.Second, cfg.IdleTimeout)
	assert.Equal(t, time.Second, cfg.MaintenanceInterval)
	assert.Equal(t, 30*time.Second, cfg.FlowExpireInterval)
	assert.Equal(t, 60*time.Second, cfg.FlowIdleTimeout)
	assert.Equal(t, 1024, cfg.MaxAncestorDepth)
	assert.Equal(t, 250000, cfg.ProcessTableWarnSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.PrometheusAddress)
	assert.Equal(t, "-", cfg.Source.Path)
	assert.Equal(t, 1024, cfg.ProcessRegistry().MaxAncestorDepth)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	data := `{
  "exporterID": "node-1",
  "fileDuration": "5m",
  "filterContainers": true,
  "flowInterval": "10s",
  "maxAncestorDepth": 64,
  "source": {"path": "/captures/run.jsonl", "ordered": true, "maxBufferSize": 50},
  "exporters": {
    "stdoutExporter": false,
    "syslogExporterURL": "localhost:514",
    "fileExporterConfig": {"dir": "/var/sysflow", "prefix": "trace"},
    "httpExporterConfig": {"url": "http://collector:8080"}
  }
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(data), 0644))

	cfg, err := LoadConfigFrom(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, "node-1", cfg.ExporterID)
	assert.Equal(t, 5*time.Minute, cfg.FileDuration)
	assert.True(t, cfg.FilterContainers)
	assert.Equal(t, 10*time.Second, cfg.DataFlow().FlowInterval)
	assert.Equal(t, 64, cfg.ProcessRegistry().MaxAncestorDepth)
	assert.Equal(t, SourceConfig{Path: "/captures/run.jsonl", Ordered: true, CollectionInterval: 100 * time.Millisecond, MaxBufferSize: 50}, cfg.Source)

	require.NotNil(t, cfg.Exporters.StdoutExporter)
	assert.False(t, *cfg.Exporters.StdoutExporter)
	assert.Equal(t, "localhost:514", cfg.Exporters.SyslogExporter)
	assert.Equal(t, &exporters.FileExporterConfig{Dir: "/var/sysflow", Prefix: "trace"}, cfg.Exporters.FileExporterConfig)
	require.NotNil(t, cfg.Exporters.HTTPExporterConfig)
	assert.Equal(t, "http://collector:8080", cfg.Exporters.HTTPExporterConfig.URL)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv(ExporterIDEnvVar, "from-env")
	cfg, err := LoadConfigFrom(viper.New(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ExporterID)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"maintenanceInterval": "-1s"}`), 0644))
	_, err := LoadConfigFrom(viper.New(), dir)
	assert.Error(t, err)
}
