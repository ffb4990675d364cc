package writer

import (
	"time"

	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

var _ Writer = (*WriterMock)(nil)

// WriterMock keeps every record in emission order.
type WriterMock struct {
	Records  []sysflow.Record
	Resets   int
	Expired  bool
	ResetErr error
	Closed   bool
	segCount int64
}

func NewWriterMock() *WriterMock {
	return &WriterMock{}
}

func (w *WriterMock) add(rec sysflow.Record) {
	w.Records = append(w.Records, rec)
	w.segCount++
}

func (w *WriterMock) Initialize(_ time.Time) error {
	w.add(sysflow.NewHeaderRecord(sysflow.Header{Version: sysflow.HeaderVersion}))
	return nil
}

func (w *WriterMock) WriteContainer(c *sysflow.Container) {
	w.add(sysflow.NewContainerRecord(*c))
}

func (w *WriterMock) WriteProcess(p *sysflow.Process) {
	w.add(sysflow.NewProcessRecord(*p))
}

func (w *WriterMock) WriteFile(f *sysflow.File) {
	w.add(sysflow.NewFileRecord(*f))
}

func (w *WriterMock) WriteProcessEvent(e *sysflow.ProcessEvent) {
	w.add(sysflow.NewProcessEventRecord(*e))
}

func (w *WriterMock) WriteNetworkFlow(f *sysflow.NetworkFlow) {
	w.add(sysflow.NewNetworkFlowRecord(*f))
}

func (w *WriterMock) WriteFileFlow(f *sysflow.FileFlow) {
	w.add(sysflow.NewFileFlowRecord(*f))
}

func (w *WriterMock) IsExpired(_ time.Time) bool {
	return w.Expired
}

func (w *WriterMock) Reset(_ time.Time) error {
	w.Resets++
	if w.ResetErr != nil {
		return w.ResetErr
	}
	w.Expired = false
	w.segCount = 0
	w.add(sysflow.NewHeaderRecord(sysflow.Header{Version: sysflow.HeaderVersion}))
	return nil
}

func (w *WriterMock) NumRecords() int64 {
	return w.segCount
}

func (w *WriterMock) Close() error {
	w.Closed = true
	return nil
}

// OfType returns the recorded records of one type, in order.
func (w *WriterMock) OfType(t sysflow.RecordType) []sysflow.Record {
	var out []sysflow.Record
	for _, rec := range w.Records {
		if rec.Type == t {
			out = append(out, rec)
		}
	}
	return out
}

// Processes returns the emitted process records, in order.
func (w *WriterMock) Processes() []sysflow.Process {
	var out []sysflow.Process
	for _, rec := range w.OfType(sysflow.ProcessRecord) {
		out = append(out, *rec.Process)
	}
	return out
}

// ProcessEvents returns the emitted process event records, in order.
func (w *WriterMock) ProcessEvents() []sysflow.ProcessEvent {
	var out []sysflow.ProcessEvent
	for _, rec := range w.OfType(sysflow.ProcessEventRecord) {
		out = append(out, *rec.ProcessEvent)
	}
	return out
}

// Clear forgets recorded output.
func (w *WriterMock) Clear() {
	w.Records = nil
}
