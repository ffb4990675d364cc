package processevent

import (
	"strconv"

	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/dataflow"
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/processregistry"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/kubescape/sysflow-agent/pkg/writer"
)

// ProcessEventProcessor turns clone, exec, exit and setuid events into
// process event records. Every record is preceded by the export of its process.
type ProcessEventProcessor struct {
	processes processregistry.ProcessRegistry
	flows     dataflow.DataFlowProcessor
	writer    writer.Writer
	// requested uid of setuid calls in flight, by thread
	setUIDs map[int64]uint32
}

func NewProcessEventProcessor(processes processregistry.ProcessRegistry, flows dataflow.DataFlowProcessor, w writer.Writer) *ProcessEventProcessor {
	return &ProcessEventProcessor{
		processes: processes,
		flows:     flows,
		writer:    w,
		setUIDs:   make(map[int64]uint32),
	}
}

// SetUID remembers the uid argument of a setuid call until its exit event.
func (p *ProcessEventProcessor) SetUID(ev *events.SysFlowEvent) {
	if ev.UID == nil {
		return
	}
	p.setUIDs[ev.TID] = *ev.UID
}

func (p *ProcessEventProcessor) WriteCloneEvent(ev *events.SysFlowEvent) {
	rec := p.resolve(ev, sysflow.StateCreated)
	p.write(rec, ev, sysflow.OpClone, nil)
}

func (p *ProcessEventProcessor) WriteSetUIDEvent(ev *events.SysFlowEvent) {
	rec := p.resolve(ev, sysflow.StateReup)
	// an unknown target uid is written without an argument rather than as root
	var args []string
	switch stored, ok := p.setUIDs[ev.TID]; {
	case ev.UID != nil:
		args = []string{strconv.FormatUint(uint64(*ev.UID), 10)}
	case ok:
		args = []string{strconv.FormatUint(uint64(stored), 10)}
	default:
		logger.L().Debug("ProcessEventProcessor.WriteSetUIDEvent - uid unknown", helpers.Int("tid", int(ev.TID)))
	}
	delete(p.setUIDs, ev.TID)
	p.write(rec, ev, sysflow.OpSetUID, args)
}

// WriteExitEvent flushes the exiting thread's flows ahead of the exit record.
// A main thread exit takes the whole process with it.
func (p *ProcessEventProcessor) WriteExitEvent(ev *events.SysFlowEvent) {
	rec := p.resolve(ev, sysflow.StateReup)
	tid := ev.TID
	if ev.IsMainThread() {
		tid = -1
	}
	p.flows.RemoveAndWriteFlowsForThread(rec, tid, ev.TS)
	p.write(rec, ev, sysflow.OpExit, nil)
	delete(p.setUIDs, ev.TID)
	if ev.IsMainThread() {
		p.processes.MarkForDeletion(rec)
	}
}

func (p *ProcessEventProcessor) WriteExecEvent(ev *events.SysFlowEvent) {
	rec, created := p.processes.ResolveOrCreate(ev, sysflow.StateCreated)
	p.processes.ExportChain(rec)
	if !created {
		p.processes.UpdateFromEvent(rec, ev, sysflow.StateModified)
		p.processes.WriteRecord(rec)
	}
	p.write(rec, ev, sysflow.OpExec, nil)
}

func (p *ProcessEventProcessor) resolve(ev *events.SysFlowEvent, state sysflow.ObjectState) *processregistry.ProcessRecord {
	rec, _ := p.processes.ResolveOrCreate(ev, state)
	p.processes.ExportChain(rec)
	return rec
}

func (p *ProcessEventProcessor) write(rec *processregistry.ProcessRecord, ev *events.SysFlowEvent, op sysflow.OpFlags, args []string) {
	p.writer.WriteProcessEvent(&sysflow.ProcessEvent{
		OpFlags: op,
		TS:      ev.TS,
		ProcOID: rec.OID(),
		TID:     ev.TID,
		Ret:     ev.Ret,
		Args:    args,
	})
}
