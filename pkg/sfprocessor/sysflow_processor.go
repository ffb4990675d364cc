package sfprocessor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/config"
	"github.com/kubescape/sysflow-agent/pkg/containerregistry"
	containerregistryv1 "github.com/kubescape/sysflow-agent/pkg/containerregistry/v1"
	"github.com/kubescape/sysflow-agent/pkg/dataflow"
	dataflowv1 "github.com/kubescape/sysflow-agent/pkg/dataflow/v1"
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/fileregistry"
	fileregistryv1 "github.com/kubescape/sysflow-agent/pkg/fileregistry/v1"
	"github.com/kubescape/sysflow-agent/pkg/metricsmanager"
	"github.com/kubescape/sysflow-agent/pkg/processevent"
	"github.com/kubescape/sysflow-agent/pkg/processregistry"
	processregistryv1 "github.com/kubescape/sysflow-agent/pkg/processregistry/v1"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/kubescape/sysflow-agent/pkg/utils"
	"github.com/kubescape/sysflow-agent/pkg/writer"
)

type Option func(*SysFlowProcessor)

// WithClock replaces the wall clock driving maintenance and rotation.
func WithClock(now func() time.Time) Option {
	return func(p *SysFlowProcessor) {
		p.now = now
	}
}

func WithNameResolver(names *utils.NameResolver) Option {
	return func(p *SysFlowProcessor) {
		p.names = names
	}
}

// SysFlowProcessor drives one collector run: it pulls events from the
// source, dispatches them and interleaves the periodic maintenance that keeps
// the tables bounded. All state is owned by the Run goroutine.
type SysFlowProcessor struct {
	cfg     config.Config
	source  events.Source
	writer  writer.Writer
	metrics metricsmanager.MetricsManager
	names   *utils.NameResolver
	now     func() time.Time

	containers    containerregistry.ContainerRegistry
	files         fileregistry.FileRegistry
	processes     processregistry.ProcessRegistry
	flows         dataflow.DataFlowProcessor
	processEvents *processevent.ProcessEventProcessor

	lastMaintenance time.Time
	lastExpireTS    int64
	lastEventTS     int64
	numEvents       int64
}

func NewSysFlowProcessor(cfg config.Config, source events.Source, w writer.Writer, metrics metricsmanager.MetricsManager, opts ...Option) *SysFlowProcessor {
	p := &SysFlowProcessor{
		cfg:     cfg,
		source:  source,
		writer:  w,
		metrics: metrics,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.names == nil {
		p.names = utils.NewNameResolver(cfg.NameCacheSize)
	}

	p.containers = containerregistryv1.NewContainerRegistry(w, metrics)
	p.files = fileregistryv1.NewFileRegistry(w, metrics)
	p.processes = processregistryv1.NewProcessRegistry(cfg.ProcessRegistry(), p.containers, p.files, w, p.names, metrics)
	p.flows = dataflowv1.NewDataFlowProcessor(cfg.DataFlow(), p.processes, p.files, w, metrics)
	p.processEvents = processevent.NewProcessEventProcessor(p.processes, p.flows, w)
	return p
}

// Run consumes the source until it ends or ctx is cancelled. Open state is
// drained to the writer on every exit path; an upstream failure is returned.
func (p *SysFlowProcessor) Run(ctx context.Context) error {
	if err := p.writer.Initialize(p.now()); err != nil {
		return fmt.Errorf("initializing writer: %w", err)
	}
	p.lastMaintenance = p.now()

	for ctx.Err() == nil {
		ev, err := p.source.Next(ctx)
		if errors.Is(err, events.ErrTimeout) {
			if ctx.Err() != nil {
				break
			}
			p.maintain()
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.shutdown()
			return fmt.Errorf("reading events: %w", err)
		}

		if p.now().Sub(p.lastMaintenance) >= p.cfg.MaintenanceInterval {
			p.maintain()
		}
		p.handle(ev)
	}

	p.shutdown()
	return nil
}

func (p *SysFlowProcessor) handle(ev *events.SysFlowEvent) {
	if ev.Thread == nil {
		p.metrics.ReportFailedEvent()
		return
	}
	if _, ok := sysflow.NewOID(ev.Thread.PID, ev.Thread.CloneTS); !ok {
		logger.L().Debug("SysFlowProcessor - invalid process identity",
			helpers.Int("pid", int(ev.Thread.PID)),
			helpers.Int("cloneTS", int(ev.Thread.CloneTS)))
		p.metrics.ReportFailedEvent()
		return
	}
	p.metrics.ReportEvent(ev.Type)
	p.numEvents++
	p.lastEventTS = ev.TS
	if p.lastExpireTS == 0 {
		p.lastExpireTS = ev.TS
	}
	if p.cfg.FilterContainers && !ev.InContainer() {
		return
	}

	switch ev.Type {
	case events.CloneEventType:
		p.processEvents.WriteCloneEvent(ev)
	case events.ExecveEventType:
		p.processEvents.WriteExecEvent(ev)
	case events.ExitEventType:
		p.processEvents.WriteExitEvent(ev)
	case events.SetUIDEnterEventType:
		p.processEvents.SetUID(ev)
	case events.SetUIDEventType:
		p.processEvents.WriteSetUIDEvent(ev)
	default:
		switch {
		case ev.IsNetwork():
			p.flows.HandleNetworkEvent(ev)
		case ev.IsFile():
			p.flows.HandleFileEvent(ev)
		default:
			logger.L().Debug("SysFlowProcessor - unsupported event", helpers.String("type", string(ev.Type)))
			p.metrics.ReportFailedEvent()
		}
	}
}

func (p *SysFlowProcessor) maintain() {
	now := p.now()
	p.lastMaintenance = now

	if p.writer.IsExpired(now) {
		p.rotate(now)
	}
	if p.lastEventTS-p.lastExpireTS >= p.cfg.FlowExpireInterval.Nanoseconds() {
		p.flows.CheckExpired(p.lastEventTS)
		p.lastExpireTS = p.lastEventTS
	}
	p.processes.ReclaimPending()

	size := p.processes.Size()
	if p.cfg.ProcessTableWarnSize > 0 && size > p.cfg.ProcessTableWarnSize {
		logger.L().Warning("SysFlowProcessor - process table above warning size",
			helpers.Int("size", size),
			helpers.Int("warnSize", p.cfg.ProcessTableWarnSize))
		p.metrics.ReportTableOverflow()
	}
	p.metrics.ReportTableSizes(size, p.containers.Size(), p.files.Size())
}

// rotate starts a new segment. Segments are self-contained, so every surviving
// entity is re-exported on its next use.
func (p *SysFlowProcessor) rotate(now time.Time) {
	p.logStats("SysFlowProcessor - rotating output")
	if err := p.writer.Reset(now); err != nil {
		// the old segment stays open, so its entities must not be re-exported
		logger.L().Error("SysFlowProcessor - rotating output", helpers.Error(err))
		return
	}
	removed := p.processes.SweepIdle()
	p.containers.SweepIdle()
	p.files.SweepIdle()
	logger.L().Debug("SysFlowProcessor - tables swept", helpers.Int("processesRemoved", removed))
}

func (p *SysFlowProcessor) shutdown() {
	flushed := p.processes.DrainAll(p.lastEventTS)
	logger.L().Debug("SysFlowProcessor - drained", helpers.Int("flows", flushed))
	p.logStats("SysFlowProcessor - finished")
}

func (p *SysFlowProcessor) logStats(msg string) {
	logger.L().Info(msg,
		helpers.String("events", humanize.Comma(p.numEvents)),
		helpers.String("records", humanize.Comma(p.writer.NumRecords())),
		helpers.Int("processes", p.processes.Size()),
		helpers.Int("containers", p.containers.Size()),
		helpers.Int("files", p.files.Size()))
}
