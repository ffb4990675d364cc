package exporters

import (
	"sync"
	"time"

	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

// generic exporter interface
type Exporter interface {
	// Name identifies the exporter in logs and metrics.
	Name() string
	// Export delivers one record. The exporter owns rec from here on.
	Export(rec sysflow.Record) error
	// Rotate starts a new output segment.
	Rotate(now time.Time) error
	// Flush pushes buffered records out.
	Flush() error
	Close() error
}

var _ Exporter = (*ExporterMock)(nil)

// ExporterMock keeps every record it receives, segment by segment.
type ExporterMock struct {
	mu        sync.Mutex
	Records   []sysflow.Record
	Rotations []time.Time
	Flushes   int
	Closed    bool
	// ExportErr is returned from Export when set.
	ExportErr error
}

func (e *ExporterMock) Name() string {
	return "mock"
}

func (e *ExporterMock) Export(rec sysflow.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ExportErr != nil {
		return e.ExportErr
	}
	e.Records = append(e.Records, rec)
	return nil
}

func (e *ExporterMock) Rotate(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Rotations = append(e.Rotations, now)
	return nil
}

func (e *ExporterMock) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Flushes++
	return nil
}

func (e *ExporterMock) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Closed = true
	return nil
}
