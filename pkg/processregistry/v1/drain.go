package processregistry

import (
	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/processregistry"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

// DrainAll ends the run: processes owning open flows are exported with their
// ancestors, every open flow is written truncated at endTS and the table is
// emptied. Returns the number of flows flushed.
func (r *ProcessRegistry) DrainAll(endTS int64) int {
	flushed := 0
	for _, oid := range r.sortedOIDs() {
		rec := r.processes[oid]
		if rec.HasFlows() && !rec.Written {
			r.ExportChain(rec)
		}
		flushed += r.truncateFlows(rec, endTS)
	}
	for _, rec := range r.processes {
		r.unbind(rec)
	}
	released := len(r.processes)
	r.processes = make(map[sysflow.OID]*processregistry.ProcessRecord)
	r.pending.Clear()
	logger.L().Info("ProcessRegistry.DrainAll - released process table",
		helpers.Int("processes", released),
		helpers.Int("flows", flushed))
	return flushed
}

func (r *ProcessRegistry) truncateFlows(rec *processregistry.ProcessRecord, endTS int64) int {
	n := 0
	for key, nf := range rec.NetFlows {
		nf.Flow.OpFlags |= sysflow.OpTruncate
		nf.Flow.EndTS = endTS
		r.writer.WriteNetworkFlow(&nf.Flow)
		delete(rec.NetFlows, key)
		n++
	}
	for key, ff := range rec.FileFlows {
		ff.Flow.OpFlags |= sysflow.OpTruncate
		ff.Flow.EndTS = endTS
		r.files.ExportFile(key.FileOID)
		r.writer.WriteFileFlow(&ff.Flow)
		r.files.Deref(key.FileOID)
		delete(rec.FileFlows, key)
		n++
	}
	return n
}
