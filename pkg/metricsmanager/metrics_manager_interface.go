package metricsmanager

import (
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

// MetricsManager is an interface for reporting metrics
type MetricsManager interface {
	Start()
	Destroy()
	ReportEvent(eventType events.EventType)
	ReportFailedEvent()
	ReportRecordWritten(recordType sysflow.RecordType)
	ReportInconsistentReference(kind string)
	ReportTableSizes(processes, containers, files int)
	ReportTableOverflow()
	ReportFileRotation()
	ReportExportError(exporter string)
}
