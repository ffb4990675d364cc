package processregistry

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

// NetFlowKey identifies an open network flow of a thread.
type NetFlowKey struct {
	TID   int64
	FD    int64
	SIP   string
	SPort uint16
	DIP   string
	DPort uint16
	Proto uint8
}

type NetFlowObj struct {
	Flow       sysflow.NetworkFlow
	LastUpdate int64
}

// FileFlowKey identifies an open file flow of a thread.
type FileFlowKey struct {
	TID     int64
	FD      int64
	FileOID sysflow.FileOID
}

type FileFlowObj struct {
	Flow       sysflow.FileFlow
	LastUpdate int64
}

// ProcessRecord is the registry's state for one live process. Children holds
// OIDs, never pointers: every cross reference goes back through the registry.
type ProcessRecord struct {
	Process         sysflow.Process
	Children        mapset.Set[sysflow.OID]
	NetFlows        map[NetFlowKey]*NetFlowObj
	FileFlows       map[FileFlowKey]*FileFlowObj
	Written         bool
	PendingDeletion bool
}

func NewProcessRecord(p sysflow.Process) *ProcessRecord {
	return &ProcessRecord{
		Process:   p,
		Children:  mapset.NewThreadUnsafeSet[sysflow.OID](),
		NetFlows:  make(map[NetFlowKey]*NetFlowObj),
		FileFlows: make(map[FileFlowKey]*FileFlowObj),
	}
}

func (r *ProcessRecord) OID() sysflow.OID {
	return r.Process.OID
}

func (r *ProcessRecord) ParentOID() (sysflow.OID, bool) {
	if r.Process.POID == nil {
		return sysflow.OID{}, false
	}
	return *r.Process.POID, true
}

func (r *ProcessRecord) ContainerID() string {
	if r.Process.ContainerID == nil {
		return ""
	}
	return *r.Process.ContainerID
}

// HasReferences reports whether a child or an open flow still points at the record.
func (r *ProcessRecord) HasReferences() bool {
	return r.Children.Cardinality() > 0 || len(r.NetFlows) > 0 || len(r.FileFlows) > 0
}

func (r *ProcessRecord) HasFlows() bool {
	return len(r.NetFlows) > 0 || len(r.FileFlows) > 0
}
