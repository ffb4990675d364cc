package fileregistry

import (
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

// FileObj is a file referenced by at least one open file flow.
type FileObj struct {
	File    sysflow.File
	Written bool
	Refs    int
}

type FileRegistry interface {
	// GetFile resolves the file named by a file event, creating it if unseen.
	// Returns nil when the event carries no path.
	GetFile(ev *events.SysFlowEvent) *FileObj
	ExportFile(key sysflow.FileOID) bool
	Ref(key sysflow.FileOID)
	Deref(key sysflow.FileOID)
	SweepIdle()
	Size() int
}
