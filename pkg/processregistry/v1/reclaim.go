package processregistry

import (
	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/processregistry"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

// MarkForDeletion flags an exited process. The record stays in the registry
// until ReclaimPending or SweepIdle finds it unreferenced.
func (r *ProcessRegistry) MarkForDeletion(rec *processregistry.ProcessRecord) {
	rec.PendingDeletion = true
	rec.Process.State = sysflow.StateExited
	r.pending.Add(rec.OID())
}

func (r *ProcessRegistry) ReclaimPending() int {
	var queue []sysflow.OID
	for _, oid := range r.pending.ToSlice() {
		rec, ok := r.processes[oid]
		if !ok {
			r.pending.Remove(oid)
			continue
		}
		if !rec.HasReferences() {
			queue = append(queue, oid)
		}
	}
	return r.reclaim(queue, true)
}

func (r *ProcessRegistry) SweepIdle() int {
	var queue []sysflow.OID
	for oid, rec := range r.processes {
		if !rec.HasReferences() {
			queue = append(queue, oid)
		}
	}
	removed := r.reclaim(queue, false)
	for _, rec := range r.processes {
		rec.Written = false
	}
	logger.L().Debug("ProcessRegistry.SweepIdle - swept process table",
		helpers.Int("removed", removed),
		helpers.Int("remaining", len(r.processes)))
	return removed
}

// reclaim removes every queued record that is still unreferenced. A removal
// that leaves the parent unreferenced queues the parent too, so a chain of
// idle ancestors drains in one call. With exitedOnly set, only parents that
// have exited themselves are queued.
func (r *ProcessRegistry) reclaim(queue []sysflow.OID, exitedOnly bool) int {
	removed := 0
	for len(queue) > 0 {
		oid := queue[0]
		queue = queue[1:]
		rec, ok := r.processes[oid]
		if !ok || rec.HasReferences() {
			continue
		}
		r.remove(rec)
		removed++

		poid, ok := rec.ParentOID()
		if !ok {
			continue
		}
		parent, ok := r.processes[poid]
		if !ok {
			continue
		}
		parent.Children.Remove(oid)
		if exitedOnly && !parent.PendingDeletion {
			continue
		}
		if !parent.HasReferences() {
			queue = append(queue, poid)
		}
	}
	return removed
}

func (r *ProcessRegistry) remove(rec *processregistry.ProcessRecord) {
	r.unbind(rec)
	delete(r.processes, rec.OID())
	r.pending.Remove(rec.OID())
}
