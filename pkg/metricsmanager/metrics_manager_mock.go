package metricsmanager

import (
	"sync/atomic"

	"github.com/goradd/maps"
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

var _ MetricsManager = (*MetricsMock)(nil)

type MetricsMock struct {
	FailedEventCounter           atomic.Int32
	TableOverflowCounter         atomic.Int32
	FileRotationCounter          atomic.Int32
	ProcessTableSize             atomic.Int64
	ContainerTableSize           atomic.Int64
	FileTableSize                atomic.Int64
	EventCounter                 maps.SafeMap[events.EventType, int]
	RecordCounter                maps.SafeMap[sysflow.RecordType, int]
	InconsistentReferenceCounter maps.SafeMap[string, int]
	ExportErrorCounter           maps.SafeMap[string, int]
}

func NewMetricsMock() *MetricsMock {
	return &MetricsMock{}
}

func (m *MetricsMock) Start() {
}

func (m *MetricsMock) Destroy() {
	m.FailedEventCounter.Store(0)
	m.TableOverflowCounter.Store(0)
	m.FileRotationCounter.Store(0)
	m.EventCounter.Clear()
	m.RecordCounter.Clear()
	m.InconsistentReferenceCounter.Clear()
	m.ExportErrorCounter.Clear()
}

func (m *MetricsMock) ReportEvent(eventType events.EventType) {
	m.EventCounter.Set(eventType, m.EventCounter.Get(eventType)+1)
}

func (m *MetricsMock) ReportFailedEvent() {
	m.FailedEventCounter.Add(1)
}

func (m *MetricsMock) ReportRecordWritten(recordType sysflow.RecordType) {
	m.RecordCounter.Set(recordType, m.RecordCounter.Get(recordType)+1)
}

func (m *MetricsMock) ReportInconsistentReference(kind string) {
	m.InconsistentReferenceCounter.Set(kind, m.InconsistentReferenceCounter.Get(kind)+1)
}

func (m *MetricsMock) ReportTableSizes(processes, containers, files int) {
	m.ProcessTableSize.Store(int64(processes))
	m.ContainerTableSize.Store(int64(containers))
	m.FileTableSize.Store(int64(files))
}

func (m *MetricsMock) ReportTableOverflow() {
	m.TableOverflowCounter.Add(1)
}

func (m *MetricsMock) ReportFileRotation() {
	m.FileRotationCounter.Add(1)
}

func (m *MetricsMock) ReportExportError(exporter string) {
	m.ExportErrorCounter.Set(exporter, m.ExportErrorCounter.Get(exporter)+1)
}
