package processregistry

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/containerregistry"
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/fileregistry"
	"github.com/kubescape/sysflow-agent/pkg/metricsmanager"
	"github.com/kubescape/sysflow-agent/pkg/processregistry"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/kubescape/sysflow-agent/pkg/utils"
	"github.com/kubescape/sysflow-agent/pkg/writer"
	"github.com/samber/lo"
)

var _ processregistry.ProcessRegistry = (*ProcessRegistry)(nil)

// ProcessRegistry is the single owning store of process records, keyed by
// OID. It is not safe for concurrent use; the event loop is its only caller.
type ProcessRegistry struct {
	config     processregistry.Config
	processes  map[sysflow.OID]*processregistry.ProcessRecord
	pending    mapset.Set[sysflow.OID]
	containers containerregistry.ContainerRegistry
	files      fileregistry.FileRegistry
	writer     writer.Writer
	names      *utils.NameResolver
	metrics    metricsmanager.MetricsManager
}

func NewProcessRegistry(config processregistry.Config, containers containerregistry.ContainerRegistry, files fileregistry.FileRegistry,
	w writer.Writer, names *utils.NameResolver, metrics metricsmanager.MetricsManager) *ProcessRegistry {
	return &ProcessRegistry{
		config:     config.WithDefaults(),
		processes:  make(map[sysflow.OID]*processregistry.ProcessRecord),
		pending:    mapset.NewThreadUnsafeSet[sysflow.OID](),
		containers: containers,
		files:      files,
		writer:     w,
		names:      names,
		metrics:    metrics,
	}
}

func threadOID(t *events.Thread) sysflow.OID {
	return sysflow.OID{Hpid: t.PID, CreateTS: t.CloneTS}
}

// firstRealAncestor skips the zero-identity threads the kernel reports above init.
func firstRealAncestor(t *events.Thread) *events.Thread {
	for ; t != nil; t = t.Parent {
		if !t.IsZero() {
			return t
		}
	}
	return nil
}

func (r *ProcessRegistry) Lookup(oid sysflow.OID) (*processregistry.ProcessRecord, bool) {
	rec, ok := r.processes[oid]
	return rec, ok
}

func (r *ProcessRegistry) Size() int {
	return len(r.processes)
}

// Walk visits records oldest first until fn returns false.
func (r *ProcessRegistry) Walk(fn func(rec *processregistry.ProcessRecord) bool) {
	for _, oid := range r.sortedOIDs() {
		rec, ok := r.processes[oid]
		if !ok {
			continue
		}
		if !fn(rec) {
			return
		}
	}
}

func (r *ProcessRegistry) sortedOIDs() []sysflow.OID {
	oids := lo.Keys(r.processes)
	slices.SortFunc(oids, sysflow.OID.Compare)
	return oids
}

func (r *ProcessRegistry) ResolveOrCreate(ev *events.SysFlowEvent, state sysflow.ObjectState) (*processregistry.ProcessRecord, bool) {
	mt := ev.MainThread()
	key := threadOID(mt)
	rec, found := r.processes[key]
	if found && rec.Written {
		return rec, false
	}
	if found {
		rec.Process.State = sysflow.StateReup
		r.rebind(rec, mt, ev)
	} else {
		rec = r.createRecord(mt, ev, state)
		r.processes[key] = rec
	}
	r.materializeAncestors(ev, mt, rec)
	return rec, !found
}

// materializeAncestors walks the kernel's parent chain above child, creating
// or refreshing each unwritten ancestor and linking every record to its
// parent. The walk stops at the first ancestor already written.
func (r *ProcessRegistry) materializeAncestors(ev *events.SysFlowEvent, mt *events.Thread, child *processregistry.ProcessRecord) {
	visited := mapset.NewThreadUnsafeSet[sysflow.OID](child.OID())
	depth := 0
	for t := firstRealAncestor(mt.Parent); t != nil; t = firstRealAncestor(t.Parent) {
		key := threadOID(t)
		if depth >= r.config.MaxAncestorDepth || visited.Contains(key) {
			err := &processregistry.AncestryCycleError{OID: key, Depth: depth}
			logger.L().Warning("ProcessRegistry.ResolveOrCreate - ancestor walk stopped", helpers.Error(err))
			r.metrics.ReportInconsistentReference("ancestry")
			return
		}
		visited.Add(key)
		depth++

		parent, found := r.processes[key]
		if found && parent.Written {
			r.link(child, parent)
			return
		}
		if found {
			parent.Process.State = sysflow.StateReup
			r.rebind(parent, t, ev)
		} else {
			parent = r.createRecord(t, ev, sysflow.StateReup)
			r.processes[key] = parent
		}
		r.link(child, parent)
		child = parent
	}
}

// link records child in parent's child set. A child that was reparented is
// first detached from its previous parent so no stale back-reference remains.
func (r *ProcessRegistry) link(child, parent *processregistry.ProcessRecord) {
	parentOID := parent.OID()
	if prev, ok := child.ParentOID(); ok && prev != parentOID {
		if old, ok := r.processes[prev]; ok {
			old.Children.Remove(child.OID())
		}
		child.Written = false
	}
	child.Process.POID = &parentOID
	parent.Children.Add(child.OID())
}

func (r *ProcessRegistry) createRecord(t *events.Thread, ev *events.SysFlowEvent, state sysflow.ObjectState) *processregistry.ProcessRecord {
	p := sysflow.Process{
		State:     state,
		OID:       threadOID(t),
		TS:        ev.TS,
		Exe:       t.ResolvedExe(),
		ExeArgs:   utils.JoinArgs(t.Args),
		UID:       t.UID,
		UserName:  r.names.UserName(t.UID),
		GID:       t.GID,
		GroupName: r.names.GroupName(t.GID),
		TTY:       t.TTY,
	}
	if parent := firstRealAncestor(t.Parent); parent != nil {
		poid := threadOID(parent)
		p.POID = &poid
	}
	rec := processregistry.NewProcessRecord(p)
	if cont := r.resolveContainer(t, ev); cont != nil {
		r.bind(rec, cont.Container.ID)
	}
	return rec
}

// resolveContainer picks the container of thread t. Threads without their own
// container id inherit the event's container.
func (r *ProcessRegistry) resolveContainer(t *events.Thread, ev *events.SysFlowEvent) *containerregistry.ContainerObj {
	if ev.InContainer() && (t.ContainerID == "" || t.ContainerID == ev.Container.ID) {
		return r.containers.GetContainer(ev)
	}
	if t.ContainerID != "" {
		return r.containers.GetContainerByID(t.ContainerID)
	}
	return nil
}

func (r *ProcessRegistry) bind(rec *processregistry.ProcessRecord, containerID string) {
	id := containerID
	rec.Process.ContainerID = &id
	r.containers.Ref(id)
}

func (r *ProcessRegistry) unbind(rec *processregistry.ProcessRecord) {
	if id := rec.ContainerID(); id != "" {
		r.containers.Deref(id)
	}
	rec.Process.ContainerID = nil
}

func (r *ProcessRegistry) RebindContainer(rec *processregistry.ProcessRecord, ev *events.SysFlowEvent) {
	r.rebind(rec, ev.MainThread(), ev)
}

// rebind always releases the old binding before taking the new one, even when
// both name the same container.
func (r *ProcessRegistry) rebind(rec *processregistry.ProcessRecord, t *events.Thread, ev *events.SysFlowEvent) {
	previous := rec.ContainerID()
	r.unbind(rec)
	if cont := r.resolveContainer(t, ev); cont != nil {
		r.bind(rec, cont.Container.ID)
	}
	if rec.ContainerID() != previous {
		rec.Written = false
	}
}

func (r *ProcessRegistry) UpdateFromEvent(rec *processregistry.ProcessRecord, ev *events.SysFlowEvent, state sysflow.ObjectState) {
	mt := ev.MainThread()
	rec.Process.State = state
	rec.Process.TS = ev.TS
	rec.Process.Exe = mt.ResolvedExe()
	rec.Process.ExeArgs = utils.JoinArgs(mt.Args)
	rec.Process.UID = mt.UID
	rec.Process.GID = mt.GID
	rec.Process.UserName = r.names.UserName(mt.UID)
	rec.Process.GroupName = r.names.GroupName(mt.GID)
	rec.Written = false
}
