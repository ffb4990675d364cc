package metricsmanager

import (
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

var _ MetricsManager = (*MetricsNoop)(nil)

// MetricsNoop is used when the prometheus exporter is disabled.
type MetricsNoop struct{}

func NewMetricsNoop() *MetricsNoop {
	return &MetricsNoop{}
}

func (m *MetricsNoop) Start() {}
func (m *MetricsNoop) Destroy() {}
func (m *MetricsNoop) ReportEvent(_ events.EventType) {}
func (m *MetricsNoop) ReportFailedEvent() {}
func (m *MetricsNoop) ReportRecordWritten(_ sysflow.RecordType) {}
func (m *MetricsNoop) ReportInconsistentReference(_ string) {}
func (m *MetricsNoop) ReportTableSizes(_, _, _ int) {}
func (m *MetricsNoop) ReportTableOverflow() {}
func (m *MetricsNoop) ReportFileRotation() {}
func (m *MetricsNoop) ReportExportError(_ string) {}
