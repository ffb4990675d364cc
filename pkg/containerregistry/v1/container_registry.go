package containerregistry

import (
	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/containerregistry"
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/metricsmanager"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/kubescape/sysflow-agent/pkg/writer"
)

var _ containerregistry.ContainerRegistry = (*ContainerRegistry)(nil)

// ContainerRegistry is single-threaded: it is only touched from the event loop.
type ContainerRegistry struct {
	containers map[string]*containerregistry.ContainerObj
	writer     writer.Writer
	metrics    metricsmanager.MetricsManager
}

func NewContainerRegistry(w writer.Writer, metrics metricsmanager.MetricsManager) *ContainerRegistry {
	return &ContainerRegistry{
		containers: make(map[string]*containerregistry.ContainerObj),
		writer:     w,
		metrics:    metrics,
	}
}

func (c *ContainerRegistry) GetContainer(ev *events.SysFlowEvent) *containerregistry.ContainerObj {
	if !ev.InContainer() {
		return nil
	}
	info := ev.Container
	cont, ok := c.containers[info.ID]
	if !ok {
		cont = &containerregistry.ContainerObj{
			Container: sysflow.Container{
				ID:         info.ID,
				Name:       info.Name,
				Image:      info.Image,
				ImageID:    info.ImageID,
				Type:       info.Type,
				Privileged: info.Privileged,
			},
		}
		c.containers[info.ID] = cont
		logger.L().Debug("ContainerRegistry.GetContainer - new container",
			helpers.String("containerID", info.ID),
			helpers.String("image", info.Image))
	}
	c.export(cont)
	return cont
}

func (c *ContainerRegistry) GetContainerByID(id string) *containerregistry.ContainerObj {
	return c.containers[id]
}

func (c *ContainerRegistry) Ref(id string) {
	cont, ok := c.containers[id]
	if !ok {
		c.missing("Ref", id)
		return
	}
	cont.Refs++
}

func (c *ContainerRegistry) Deref(id string) {
	cont, ok := c.containers[id]
	if !ok {
		c.missing("Deref", id)
		return
	}
	if cont.Refs == 0 {
		logger.L().Warning("ContainerRegistry.Deref - reference count already zero", helpers.String("containerID", id))
		c.metrics.ReportInconsistentReference("container_refcount")
		return
	}
	cont.Refs--
}

func (c *ContainerRegistry) ExportContainer(id string) bool {
	cont, ok := c.containers[id]
	if !ok {
		c.missing("ExportContainer", id)
		return false
	}
	return c.export(cont)
}

func (c *ContainerRegistry) export(cont *containerregistry.ContainerObj) bool {
	if cont.Written {
		return false
	}
	c.writer.WriteContainer(&cont.Container)
	cont.Written = true
	return true
}

func (c *ContainerRegistry) SweepIdle() {
	for id, cont := range c.containers {
		if cont.Refs <= 0 {
			delete(c.containers, id)
			continue
		}
		cont.Written = false
	}
}

func (c *ContainerRegistry) Size() int {
	return len(c.containers)
}

func (c *ContainerRegistry) missing(op, id string) {
	logger.L().Warning("ContainerRegistry."+op+" - container not found", helpers.String("containerID", id))
	c.metrics.ReportInconsistentReference("container")
}
