package dataflow

import (
	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/processregistry"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

func netFlowKey(ev *events.SysFlowEvent) processregistry.NetFlowKey {
	n := ev.Net
	return processregistry.NetFlowKey{
		TID:   ev.TID,
		FD:    n.FD,
		SIP:   n.SIP,
		SPort: n.SPort,
		DIP:   n.DIP,
		DPort: n.DPort,
		Proto: n.Proto,
	}
}

func (d *DataFlowProcessor) HandleNetworkEvent(ev *events.SysFlowEvent) {
	if ev.Net == nil {
		logger.L().Debug("DataFlowProcessor.HandleNetworkEvent - event without network info", helpers.String("type", string(ev.Type)))
		d.metrics.ReportFailedEvent()
		return
	}
	rec := d.resolve(ev)
	key := netFlowKey(ev)
	nf, ok := rec.NetFlows[key]

	switch ev.Type {
	case events.AcceptEventType, events.ConnectEventType:
		if ok {
			// fd reused without an observed close
			d.closeNetFlow(rec, key, nf, sysflow.OpTruncate, ev.TS)
		}
		op := sysflow.OpConnect
		if ev.Type == events.AcceptEventType {
			op = sysflow.OpAccept
		}
		nf = d.newNetFlow(rec, ev, key)
		nf.Flow.OpFlags = op
	case events.SendEventType, events.WriteEventType:
		if !ok {
			nf = d.newNetFlow(rec, ev, key)
		}
		nf.Flow.OpFlags |= sysflow.OpWrite
		nf.Flow.NumWSendOps++
		nf.Flow.NumWSendBytes += ev.Net.Bytes
		nf.LastUpdate = ev.TS
	case events.RecvEventType, events.ReadEventType:
		if !ok {
			nf = d.newNetFlow(rec, ev, key)
		}
		nf.Flow.OpFlags |= sysflow.OpRead
		nf.Flow.NumRRecvOps++
		nf.Flow.NumRRecvBytes += ev.Net.Bytes
		nf.LastUpdate = ev.TS
	case events.CloseEventType:
		if !ok {
			nf = d.newNetFlow(rec, ev, key)
		}
		d.closeNetFlow(rec, key, nf, sysflow.OpClose, ev.TS)
	}
}

func (d *DataFlowProcessor) newNetFlow(rec *processregistry.ProcessRecord, ev *events.SysFlowEvent, key processregistry.NetFlowKey) *processregistry.NetFlowObj {
	nf := &processregistry.NetFlowObj{
		Flow: sysflow.NetworkFlow{
			ProcOID: rec.OID(),
			TS:      ev.TS,
			TID:     key.TID,
			SIP:     key.SIP,
			SPort:   key.SPort,
			DIP:     key.DIP,
			DPort:   key.DPort,
			Proto:   key.Proto,
			FD:      key.FD,
		},
		LastUpdate: ev.TS,
	}
	rec.NetFlows[key] = nf
	return nf
}

func (d *DataFlowProcessor) closeNetFlow(rec *processregistry.ProcessRecord, key processregistry.NetFlowKey, nf *processregistry.NetFlowObj, op sysflow.OpFlags, endTS int64) {
	nf.Flow.OpFlags |= op
	nf.Flow.EndTS = endTS
	d.writeNetFlow(rec, nf)
	delete(rec.NetFlows, key)
}

func (d *DataFlowProcessor) writeNetFlow(rec *processregistry.ProcessRecord, nf *processregistry.NetFlowObj) {
	d.processes.ExportIfUnwritten(rec.OID())
	d.writer.WriteNetworkFlow(&nf.Flow)
}
