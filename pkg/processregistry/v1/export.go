package processregistry

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/processregistry"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

func (r *ProcessRegistry) ExportChain(rec *processregistry.ProcessRecord) int {
	chain := r.unwrittenChain(rec)
	for _, p := range chain {
		r.write(p)
	}
	return len(chain)
}

// unwrittenChain collects rec and its unwritten ancestors, oldest first. The
// walk ends at the first written or unknown ancestor.
func (r *ProcessRegistry) unwrittenChain(rec *processregistry.ProcessRecord) []*processregistry.ProcessRecord {
	if rec.Written {
		return nil
	}
	chain := []*processregistry.ProcessRecord{rec}
	visited := mapset.NewThreadUnsafeSet(rec.OID())
	for cur := rec; ; {
		poid, ok := cur.ParentOID()
		if !ok {
			break
		}
		if len(chain) > r.config.MaxAncestorDepth || visited.Contains(poid) {
			err := &processregistry.AncestryCycleError{OID: poid, Depth: len(chain)}
			logger.L().Warning("ProcessRegistry.ExportChain - ancestor walk stopped", helpers.Error(err))
			r.metrics.ReportInconsistentReference("ancestry")
			break
		}
		visited.Add(poid)
		parent, ok := r.processes[poid]
		if !ok || parent.Written {
			break
		}
		chain = append(chain, parent)
		cur = parent
	}
	slices.Reverse(chain)
	return chain
}

func (r *ProcessRegistry) ExportIfUnwritten(oid sysflow.OID) bool {
	rec, ok := r.processes[oid]
	if !ok {
		err := &processregistry.ProcessNotFoundError{OID: oid}
		logger.L().Warning("ProcessRegistry.ExportIfUnwritten - inconsistent reference", helpers.Error(err))
		r.metrics.ReportInconsistentReference("process")
		return false
	}
	exported := false
	if id := rec.ContainerID(); id != "" {
		exported = r.containers.ExportContainer(id)
	}
	return r.ExportChain(rec) > 0 || exported
}

func (r *ProcessRegistry) WriteRecord(rec *processregistry.ProcessRecord) {
	r.write(rec)
}

// write emits the record's container ahead of the record itself.
func (r *ProcessRegistry) write(rec *processregistry.ProcessRecord) {
	if id := rec.ContainerID(); id != "" {
		r.containers.ExportContainer(id)
	}
	r.writer.WriteProcess(&rec.Process)
	rec.Written = true
}
