package writer

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/exporters"
	"github.com/kubescape/sysflow-agent/pkg/metricsmanager"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

// Sink is what the writer hands finished records to.
type Sink interface {
	Export(rec sysflow.Record) error
	Rotate(now time.Time) error
	Flush() error
	Close() error
}

var _ Sink = (*exporters.ExporterBus)(nil)
var _ Writer = (*SysFlowWriter)(nil)

// SysFlowWriter turns collector objects into immutable records, stamps every
// segment with a header and tracks segment rotation.
type SysFlowWriter struct {
	sink         Sink
	metrics      metricsmanager.MetricsManager
	exporterID   string
	fileDuration time.Duration
	start        time.Time
	numRecs      int64
	segmentID    string
}

// NewSysFlowWriter creates a writer. A zero fileDuration disables rotation.
func NewSysFlowWriter(sink Sink, exporterID string, fileDuration time.Duration, metrics metricsmanager.MetricsManager) *SysFlowWriter {
	return &SysFlowWriter{
		sink:         sink,
		metrics:      metrics,
		exporterID:   exporterID,
		fileDuration: fileDuration,
	}
}

func (w *SysFlowWriter) Initialize(now time.Time) error {
	w.start = now
	w.writeHeader(now)
	return nil
}

func (w *SysFlowWriter) writeHeader(now time.Time) {
	w.segmentID = uuid.NewString()
	w.write(sysflow.NewHeaderRecord(sysflow.Header{
		Version:   sysflow.HeaderVersion,
		Exporter:  w.exporterID,
		SegmentID: w.segmentID,
		StartTS:   now.UnixNano(),
	}))
}

func (w *SysFlowWriter) write(rec sysflow.Record) {
	w.numRecs++
	w.metrics.ReportRecordWritten(rec.Type)
	if err := w.sink.Export(rec); err != nil {
		w.metrics.ReportExportError(exportErrorSource(err))
		logger.L().Warning("SysFlowWriter - failed to export record",
			helpers.String("type", string(rec.Type)), helpers.Error(err))
	}
}

func exportErrorSource(err error) string {
	var exportErr *exporters.ExportError
	if errors.As(err, &exportErr) {
		return exportErr.Exporter
	}
	return "bus"
}

func (w *SysFlowWriter) WriteContainer(c *sysflow.Container) {
	w.write(sysflow.NewContainerRecord(*c))
}

func (w *SysFlowWriter) WriteProcess(p *sysflow.Process) {
	w.write(sysflow.NewProcessRecord(*p))
}

func (w *SysFlowWriter) WriteFile(f *sysflow.File) {
	w.write(sysflow.NewFileRecord(*f))
}

func (w *SysFlowWriter) WriteProcessEvent(e *sysflow.ProcessEvent) {
	w.write(sysflow.NewProcessEventRecord(*e))
}

func (w *SysFlowWriter) WriteNetworkFlow(f *sysflow.NetworkFlow) {
	w.write(sysflow.NewNetworkFlowRecord(*f))
}

func (w *SysFlowWriter) WriteFileFlow(f *sysflow.FileFlow) {
	w.write(sysflow.NewFileFlowRecord(*f))
}

func (w *SysFlowWriter) IsExpired(now time.Time) bool {
	if w.fileDuration <= 0 {
		return false
	}
	return now.Sub(w.start) >= w.fileDuration
}

func (w *SysFlowWriter) Reset(now time.Time) error {
	if err := w.sink.Rotate(now); err != nil {
		return fmt.Errorf("rotating output: %w", err)
	}
	w.numRecs = 0
	w.start = now
	w.metrics.ReportFileRotation()
	w.writeHeader(now)
	return nil
}

func (w *SysFlowWriter) NumRecords() int64 {
	return w.numRecs
}

// SegmentID identifies the current segment; it is carried in its header.
func (w *SysFlowWriter) SegmentID() string {
	return w.segmentID
}

func (w *SysFlowWriter) Close() error {
	if err := w.sink.Flush(); err != nil {
		logger.L().Warning("SysFlowWriter - flush before close failed", helpers.Error(err))
	}
	return w.sink.Close()
}
