package processregistry

import (
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

// ProcessRegistry owns every live process record of a collector run.
type ProcessRegistry interface {
	// ResolveOrCreate returns the record of the event's process, materializing
	// it and its unwritten ancestors. It emits nothing; pair it with ExportChain.
	ResolveOrCreate(ev *events.SysFlowEvent, state sysflow.ObjectState) (*ProcessRecord, bool)
	// ExportChain writes the record and every unwritten ancestor, oldest first.
	// Returns the number of process records written.
	ExportChain(rec *ProcessRecord) int
	Lookup(oid sysflow.OID) (*ProcessRecord, bool)
	ExportIfUnwritten(oid sysflow.OID) bool
	RebindContainer(rec *ProcessRecord, ev *events.SysFlowEvent)
	UpdateFromEvent(rec *ProcessRecord, ev *events.SysFlowEvent, state sysflow.ObjectState)
	// WriteRecord writes rec alone, whatever its written flag.
	WriteRecord(rec *ProcessRecord)
	MarkForDeletion(rec *ProcessRecord)
	// ReclaimPending removes exited processes nothing refers to any more.
	ReclaimPending() int
	// SweepIdle removes every unreferenced process and marks survivors
	// unwritten for the next segment.
	SweepIdle() int
	// DrainAll flushes everything still open and empties the registry.
	DrainAll(endTS int64) int
	Size() int
	Walk(fn func(rec *ProcessRecord) bool)
}
