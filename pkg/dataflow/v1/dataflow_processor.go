package dataflow

import (
	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/dataflow"
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/fileregistry"
	"github.com/kubescape/sysflow-agent/pkg/metricsmanager"
	"github.com/kubescape/sysflow-agent/pkg/processregistry"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/kubescape/sysflow-agent/pkg/writer"
)

var _ dataflow.DataFlowProcessor = (*DataFlowProcessor)(nil)

type DataFlowProcessor struct {
	idleTimeout int64
	interval    int64
	processes   processregistry.ProcessRegistry
	files       fileregistry.FileRegistry
	writer      writer.Writer
	metrics     metricsmanager.MetricsManager
}

func NewDataFlowProcessor(cfg dataflow.Config, processes processregistry.ProcessRegistry, files fileregistry.FileRegistry,
	w writer.Writer, metrics metricsmanager.MetricsManager) *DataFlowProcessor {
	cfg = cfg.WithDefaults()
	return &DataFlowProcessor{
		idleTimeout: cfg.FlowIdleTimeout.Nanoseconds(),
		interval:    cfg.FlowInterval.Nanoseconds(),
		processes:   processes,
		files:       files,
		writer:      w,
		metrics:     metrics,
	}
}

// resolve returns the acting process, exporting it and its ancestry first.
func (d *DataFlowProcessor) resolve(ev *events.SysFlowEvent) *processregistry.ProcessRecord {
	rec, _ := d.processes.ResolveOrCreate(ev, sysflow.StateReup)
	d.processes.ExportChain(rec)
	return rec
}

func (d *DataFlowProcessor) RemoveAndWriteFlowsForThread(rec *processregistry.ProcessRecord, tid int64, endTS int64) int {
	n := 0
	for key, nf := range rec.NetFlows {
		if tid != -1 && key.TID != tid {
			continue
		}
		d.closeNetFlow(rec, key, nf, sysflow.OpTruncate, endTS)
		n++
	}
	for key, ff := range rec.FileFlows {
		if tid != -1 && key.TID != tid {
			continue
		}
		d.closeFileFlow(rec, key, ff, sysflow.OpTruncate, endTS)
		n++
	}
	return n
}

func (d *DataFlowProcessor) CheckExpired(nowTS int64) int {
	expired := 0
	d.processes.Walk(func(rec *processregistry.ProcessRecord) bool {
		for key, nf := range rec.NetFlows {
			switch {
			case nowTS-nf.LastUpdate >= d.idleTimeout:
				d.closeNetFlow(rec, key, nf, sysflow.OpTruncate, nf.LastUpdate)
				expired++
			case d.interval > 0 && nowTS-nf.Flow.TS >= d.interval:
				nf.Flow.EndTS = nowTS
				d.writeNetFlow(rec, nf)
				resetNetCounters(nf, nowTS)
			}
		}
		for key, ff := range rec.FileFlows {
			switch {
			case nowTS-ff.LastUpdate >= d.idleTimeout:
				d.closeFileFlow(rec, key, ff, sysflow.OpTruncate, ff.LastUpdate)
				expired++
			case d.interval > 0 && nowTS-ff.Flow.TS >= d.interval:
				ff.Flow.EndTS = nowTS
				d.writeFileFlow(rec, key, ff)
				resetFileCounters(ff, nowTS)
			}
		}
		return true
	})
	if expired > 0 {
		logger.L().Debug("DataFlowProcessor.CheckExpired - closed idle flows", helpers.Int("flows", expired))
	}
	return expired
}

func resetNetCounters(nf *processregistry.NetFlowObj, ts int64) {
	f := &nf.Flow
	f.TS, f.EndTS, f.OpFlags = ts, 0, 0
	f.NumRRecvOps, f.NumWSendOps, f.NumRRecvBytes, f.NumWSendBytes = 0, 0, 0, 0
}

func resetFileCounters(ff *processregistry.FileFlowObj, ts int64) {
	f := &ff.Flow
	f.TS, f.EndTS, f.OpFlags = ts, 0, 0
	f.NumRRecvOps, f.NumWSendOps, f.NumRRecvBytes, f.NumWSendBytes = 0, 0, 0, 0
}
