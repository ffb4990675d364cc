package containerregistry

import (
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

// ContainerObj is a live container with the number of process records bound to it.
type ContainerObj struct {
	Container sysflow.Container
	Written   bool
	Refs      int
}

// ContainerRegistry owns container objects for the current collector run.
type ContainerRegistry interface {
	// GetContainer resolves the container the event ran in, creating and
	// exporting it on first sight. Returns nil for host events.
	GetContainer(ev *events.SysFlowEvent) *ContainerObj
	// GetContainerByID returns a known container or nil.
	GetContainerByID(id string) *ContainerObj
	Ref(id string)
	Deref(id string)
	// ExportContainer writes the container if it is not part of the current
	// segment yet. Returns whether a record was written.
	ExportContainer(id string) bool
	// SweepIdle drops unreferenced containers and marks the rest unwritten
	// for the next segment.
	SweepIdle()
	Size() int
}
