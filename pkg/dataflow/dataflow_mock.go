package dataflow

import (
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/processregistry"
)

var _ DataFlowProcessor = (*DataFlowMock)(nil)

// DataFlowMock records calls without touching any flow table.
type DataFlowMock struct {
	NetworkEvents []*events.SysFlowEvent
	FileEvents    []*events.SysFlowEvent
	Removed       []int64
	ExpireChecks  []int64
}

func (d *DataFlowMock) HandleNetworkEvent(ev *events.SysFlowEvent) {
	d.NetworkEvents = append(d.NetworkEvents, ev)
}

func (d *DataFlowMock) HandleFileEvent(ev *events.SysFlowEvent) {
	d.FileEvents = append(d.FileEvents, ev)
}

func (d *DataFlowMock) RemoveAndWriteFlowsForThread(_ *processregistry.ProcessRecord, tid int64, _ int64) int {
	d.Removed = append(d.Removed, tid)
	return 0
}

func (d *DataFlowMock) CheckExpired(nowTS int64) int {
	d.ExpireChecks = append(d.ExpireChecks, nowTS)
	return 0
}
