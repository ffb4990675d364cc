package exporters

import (
	"errors"
	"testing"
	"time"

	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporterBusFanOut(t *testing.T) {
	good := &ExporterMock{}
	bad := &ExporterMock{ExportErr: errors.New("disk full")}
	bus := NewExporterBus(good, bad)

	err := bus.Export(sysflow.NewHeaderRecord(sysflow.Header{}))
	require.Error(t, err)
	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, "mock", exportErr.Exporter)
	assert.Len(t, good.Records, 1)

	require.NoError(t, bus.Rotate(time.Unix(10, 0)))
	require.NoError(t, bus.Flush())
	require.NoError(t, bus.Close())
	assert.Len(t, good.Rotations, 1)
	assert.Equal(t, 1, good.Flushes)
	assert.True(t, good.Closed)
	assert.True(t, bad.Closed)
}

func TestInitExportersRequiresOne(t *testing.T) {
	disabled := false
	t.Setenv("HTTP_ENDPOINT_URL", "")
	t.Setenv("SYSLOG_HOST", "")
	t.Setenv("EXPORTER_CSV_PROCESS_PATH", "")
	_, err := InitExporters(ExportersConfig{StdoutExporter: &disabled}, afero.NewMemMapFs(), "node-1", false)
	assert.Error(t, err)

	bus, err := InitExporters(ExportersConfig{
		StdoutExporter:     &disabled,
		FileExporterConfig: &FileExporterConfig{Dir: "/out", Prefix: "sf"},
	}, afero.NewMemMapFs(), "node-1", false)
	require.NoError(t, err)
	assert.Len(t, bus.exporters, 1)
	require.NoError(t, bus.Close())
}
