package dataflow

import (
	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/processregistry"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

func (d *DataFlowProcessor) HandleFileEvent(ev *events.SysFlowEvent) {
	file := d.files.GetFile(ev)
	if file == nil {
		logger.L().Debug("DataFlowProcessor.HandleFileEvent - event without file path", helpers.String("type", string(ev.Type)))
		d.metrics.ReportFailedEvent()
		return
	}
	rec := d.resolve(ev)
	key := processregistry.FileFlowKey{TID: ev.TID, FD: ev.File.FD, FileOID: file.File.OID}
	ff, ok := rec.FileFlows[key]

	switch ev.Type {
	case events.OpenEventType:
		if ok {
			d.closeFileFlow(rec, key, ff, sysflow.OpTruncate, ev.TS)
		}
		ff = d.newFileFlow(rec, ev, key)
		ff.Flow.OpFlags = sysflow.OpOpen
		ff.Flow.OpenFlags = ev.File.OpenFlags
	case events.WriteEventType:
		if !ok {
			ff = d.newFileFlow(rec, ev, key)
		}
		ff.Flow.OpFlags |= sysflow.OpWrite
		ff.Flow.NumWSendOps++
		ff.Flow.NumWSendBytes += ev.File.Bytes
		ff.LastUpdate = ev.TS
	case events.ReadEventType:
		if !ok {
			ff = d.newFileFlow(rec, ev, key)
		}
		ff.Flow.OpFlags |= sysflow.OpRead
		ff.Flow.NumRRecvOps++
		ff.Flow.NumRRecvBytes += ev.File.Bytes
		ff.LastUpdate = ev.TS
	case events.CloseEventType:
		if !ok {
			ff = d.newFileFlow(rec, ev, key)
		}
		d.closeFileFlow(rec, key, ff, sysflow.OpClose, ev.TS)
	}
}

// newFileFlow holds a reference on the file until the flow is released.
func (d *DataFlowProcessor) newFileFlow(rec *processregistry.ProcessRecord, ev *events.SysFlowEvent, key processregistry.FileFlowKey) *processregistry.FileFlowObj {
	ff := &processregistry.FileFlowObj{
		Flow: sysflow.FileFlow{
			ProcOID: rec.OID(),
			TS:      ev.TS,
			TID:     key.TID,
			FileOID: key.FileOID,
			FD:      key.FD,
		},
		LastUpdate: ev.TS,
	}
	rec.FileFlows[key] = ff
	d.files.Ref(key.FileOID)
	return ff
}

func (d *DataFlowProcessor) closeFileFlow(rec *processregistry.ProcessRecord, key processregistry.FileFlowKey, ff *processregistry.FileFlowObj, op sysflow.OpFlags, endTS int64) {
	ff.Flow.OpFlags |= op
	ff.Flow.EndTS = endTS
	d.writeFileFlow(rec, key, ff)
	delete(rec.FileFlows, key)
	d.files.Deref(key.FileOID)
}

func (d *DataFlowProcessor) writeFileFlow(rec *processregistry.ProcessRecord, key processregistry.FileFlowKey, ff *processregistry.FileFlowObj) {
	d.processes.ExportIfUnwritten(rec.OID())
	d.files.ExportFile(key.FileOID)
	d.writer.WriteFileFlow(&ff.Flow)
}
