package writer

import (
	"errors"
	"testing"
	"time"

	"github.com/kubescape/sysflow-agent/pkg/exporters"
	"github.com/kubescape/sysflow-agent/pkg/metricsmanager"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSysFlowWriterSegments(t *testing.T) {
	sink := &exporters.ExporterMock{}
	metrics := metricsmanager.NewMetricsMock()
	w := NewSysFlowWriter(exporters.NewExporterBus(sink), "node-1", time.Minute, metrics)

	start := time.Unix(1000, 0)
	require.NoError(t, w.Initialize(start))
	firstSegment := w.SegmentID()

	w.WriteProcess(&sysflow.Process{OID: sysflow.OID{Hpid: 1, CreateTS: 1}})
	w.WriteProcessEvent(&sysflow.ProcessEvent{OpFlags: sysflow.OpClone})
	assert.Equal(t, int64(3), w.NumRecords())

	assert.False(t, w.IsExpired(start.Add(59*time.Second)))
	assert.True(t, w.IsExpired(start.Add(time.Minute)))

	require.NoError(t, w.Reset(start.Add(time.Minute)))
	assert.Equal(t, int64(1), w.NumRecords())
	assert.NotEqual(t, firstSegment, w.SegmentID())
	assert.False(t, w.IsExpired(start.Add(90*time.Second)))
	assert.Len(t, sink.Rotations, 1)

	require.Len(t, sink.Records, 4)
	header := sink.Records[0].Header
	require.NotNil(t, header)
	assert.Equal(t, int64(sysflow.HeaderVersion), header.Version)
	assert.Equal(t, "node-1", header.Exporter)
	assert.Equal(t, sysflow.HeaderRecord, sink.Records[3].Type)
	assert.Equal(t, 2, metrics.RecordCounter.Get(sysflow.HeaderRecord))
	assert.Equal(t, int32(1), metrics.FileRotationCounter.Load())

	require.NoError(t, w.Close())
	assert.True(t, sink.Closed)
}

func TestSysFlowWriterNoRotation(t *testing.T) {
	w := NewSysFlowWriter(exporters.NewExporterBus(&exporters.ExporterMock{}), "node-1", 0, metricsmanager.NewMetricsMock())
	require.NoError(t, w.Initialize(time.Unix(0, 0)))
	assert.False(t, w.IsExpired(time.Unix(1<<40, 0)))
}

func TestSysFlowWriterCopiesRecords(t *testing.T) {
	sink := &exporters.ExporterMock{}
	w := NewSysFlowWriter(exporters.NewExporterBus(sink), "node-1", 0, metricsmanager.NewMetricsMock())

	p := &sysflow.Process{Exe: "/bin/sh"}
	w.WriteProcess(p)
	p.Exe = "/bin/bash"

	assert.Equal(t, "/bin/sh", sink.Records[0].Process.Exe)
}

func TestSysFlowWriterExportErrorsAreCounted(t *testing.T) {
	metrics := metricsmanager.NewMetricsMock()
	sink := &exporters.ExporterMock{ExportErr: errors.New("broken pipe")}
	w := NewSysFlowWriter(exporters.NewExporterBus(sink), "node-1", 0, metrics)

	w.WriteNetworkFlow(&sysflow.NetworkFlow{})
	assert.Equal(t, 1, metrics.ExportErrorCounter.Get("mock"))
	assert.Equal(t, int64(1), w.NumRecords())
}
