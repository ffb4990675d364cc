package exporters

import (
	"os"
	"testing"

	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/stretchr/testify/assert"
)

func TestInitStdoutExporter(t *testing.T) {
	// Test when useStdout is nil
	exporter := InitStdoutExporter(nil)
	assert.NotNil(t, exporter)

	// Test when useStdout is true
	useStdout := new(bool)
	*useStdout = true
	exporter = InitStdoutExporter(useStdout)
	assert.NotNil(t, exporter)
	assert.NotNil(t, exporter.logger)

	// Test when useStdout is false
	useStdout = new(bool)
	*useStdout = false
	exporter = InitStdoutExporter(useStdout)
	assert.Nil(t, exporter)

	// Test when STDOUT_ENABLED environment variable is set to "false"
	os.Setenv("STDOUT_ENABLED", "false")
	exporter = InitStdoutExporter(nil)
	assert.Nil(t, exporter)

	// Test when STDOUT_ENABLED environment variable is not set
	os.Unsetenv("STDOUT_ENABLED")
	exporter = InitStdoutExporter(nil)
	assert.NotNil(t, exporter)
}

func TestStdoutExporter_Export(t *testing.T) {
	exporter := InitStdoutExporter(nil)
	assert.NotNil(t, exporter)

	assert.NoError(t, exporter.Export(sysflow.NewProcessEventRecord(sysflow.ProcessEvent{OpFlags: sysflow.OpExec})))
	assert.NoError(t, exporter.Export(sysflow.NewHeaderRecord(sysflow.Header{Version: sysflow.HeaderVersion})))
}
